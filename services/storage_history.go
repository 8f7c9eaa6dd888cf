package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/homenest/estate/metrics"
	"github.com/homenest/estate/models"
	"github.com/homenest/estate/storage"
)

// MonthKeyLayout formats the storage history key (UTC).
const MonthKeyLayout = "2006-01"

// StorageHistoryTracker snapshots aggregate file-storage usage into one row per
// calendar month. Each call recomputes the full aggregate from the provider, so
// concurrent snapshots need no merging: the last writer wins.
type StorageHistoryTracker struct {
	db     *gorm.DB
	lister storage.ObjectLister
	now    func() time.Time
}

// NewStorageHistoryTracker creates a tracker reading usage from lister.
func NewStorageHistoryTracker(db *gorm.DB, lister storage.ObjectLister) *StorageHistoryTracker {
	return &StorageHistoryTracker{db: db, lister: lister, now: time.Now}
}

// Stats returns live usage under prefix without writing anything.
func (t *StorageHistoryTracker) Stats(ctx context.Context, prefix string) (storage.Stats, error) {
	objects, err := t.lister.ListObjects(ctx, prefix)
	if err != nil {
		return storage.Stats{}, fmt.Errorf("%w: %v", ErrStorageQuery, err)
	}
	return storage.Summarize(objects), nil
}

// UpdateStorageHistory upserts the current month's record from live provider
// stats and returns it. A provider failure writes nothing.
func (t *StorageHistoryTracker) UpdateStorageHistory(ctx context.Context) (*models.StorageHistory, error) {
	_, rec, err := t.Snapshot(ctx)
	return rec, err
}

// Snapshot is UpdateStorageHistory that also returns the global live stats it recorded.
func (t *StorageHistoryTracker) Snapshot(ctx context.Context) (storage.Stats, *models.StorageHistory, error) {
	stats, err := t.Stats(ctx, "")
	if err != nil {
		metrics.RecordStorageSnapshot(0, 0, 0, 0, 0, 0, err)
		return storage.Stats{}, nil, err
	}

	rec, err := t.upsert(ctx, stats, t.now().UTC())
	metrics.RecordStorageSnapshot(stats.TotalFiles, stats.Images.Count, stats.Brochures.Count,
		stats.TotalSizeMB, stats.Images.SizeMB, stats.Brochures.SizeMB, err)
	if err != nil {
		return storage.Stats{}, nil, err
	}
	return stats, rec, nil
}

func (t *StorageHistoryTracker) upsert(ctx context.Context, stats storage.Stats, now time.Time) (*models.StorageHistory, error) {
	month := now.Format(MonthKeyLayout)
	row := models.StorageHistory{
		RecordMonth:     month,
		TotalFiles:      stats.TotalFiles,
		TotalSizeMB:     stats.TotalSizeMB,
		ImagesCount:     stats.Images.Count,
		ImagesSizeMB:    stats.Images.SizeMB,
		BrochuresCount:  stats.Brochures.Count,
		BrochuresSizeMB: stats.Brochures.SizeMB,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	db := t.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "record_month"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_files", "total_size_mb",
			"images_count", "images_size_mb",
			"brochures_count", "brochures_size_mb",
			"updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoragePersist, err)
	}

	var out models.StorageHistory
	if err := db.Where("record_month = ?", month).Take(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoragePersist, err)
	}
	return &out, nil
}

// History returns up to limit monthly records, newest month first.
func (t *StorageHistoryTracker) History(ctx context.Context, limit int) ([]models.StorageHistory, error) {
	switch {
	case limit <= 0:
		limit = 24
	case limit > 120:
		limit = 120
	}
	var rows []models.StorageHistory
	err := t.db.WithContext(ctx).Order("record_month DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
