package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/homenest/estate/metrics"
	"github.com/homenest/estate/models"
)

// ViewResult is the outcome of RecordView.
type ViewResult struct {
	IsNew     bool  `json:"isNew"`
	ViewCount int64 `json:"viewCount"`
}

// ViewService records property views at most once per identity.
type ViewService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewViewService creates a ViewService over db.
func NewViewService(db *gorm.DB) *ViewService {
	return &ViewService{db: db, now: time.Now}
}

// RecordView registers a view of propertyID by viewer.
//
// The first view by an identity inserts a ledger row and increments the
// property's counter by one; later views only refresh viewed_at. The insert
// uses ON CONFLICT DO NOTHING against the identity's unique index, so two
// concurrent first views resolve to one new view and one repeat. A nil viewer
// is a no-op returning the zero result. ip is stored only on the first view.
func (s *ViewService) RecordView(ctx context.Context, propertyID uint, viewer Identity, ip string) (ViewResult, error) {
	if viewer == nil {
		metrics.RecordView(metrics.ViewAnonymous)
		return ViewResult{}, nil
	}

	now := s.now().UTC()
	var result ViewResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.PropertyView{PropertyID: propertyID, IPAddress: ip, ViewedAt: now}
		viewer.stamp(&row)

		cols := viewer.conflictColumns()
		conflict := clause.OnConflict{DoNothing: true}
		for _, c := range cols {
			conflict.Columns = append(conflict.Columns, clause.Column{Name: c})
		}
		ins := tx.Clauses(conflict).Create(&row)
		if ins.Error != nil {
			return ins.Error
		}

		if ins.RowsAffected > 0 {
			upd := tx.Model(&models.Property{}).
				Where("id = ?", propertyID).
				UpdateColumn("views", gorm.Expr("views + ?", 1))
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected == 0 {
				return ErrPropertyNotFound
			}
			result.IsNew = true
		} else {
			if err := viewer.match(tx.Model(&models.PropertyView{}), propertyID).
				UpdateColumn("viewed_at", now).Error; err != nil {
				return err
			}
		}

		var p models.Property
		if err := tx.Select("id", "views").Where("id = ?", propertyID).Take(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPropertyNotFound
			}
			return err
		}
		result.ViewCount = p.Views
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrPropertyNotFound):
		metrics.RecordView(metrics.ViewError)
		return ViewResult{}, err
	default:
		metrics.RecordView(metrics.ViewError)
		return ViewResult{}, fmt.Errorf("%w: %v", ErrCannotRecordView, err)
	}

	if result.IsNew {
		metrics.RecordView(metrics.ViewNew)
	} else {
		metrics.RecordView(metrics.ViewRepeat)
	}
	return result, nil
}

// ViewCount returns the denormalized counter of propertyID.
func (s *ViewService) ViewCount(ctx context.Context, propertyID uint) (int64, error) {
	var p models.Property
	if err := s.db.WithContext(ctx).Select("id", "views").Where("id = ?", propertyID).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrPropertyNotFound
		}
		return 0, err
	}
	return p.Views, nil
}
