package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homenest/estate/middleware"
	"github.com/homenest/estate/models"
	"github.com/homenest/estate/services"
	"github.com/homenest/estate/storage"
	"github.com/homenest/estate/utils"
)

const maxSessionIDLength = 128

// PropertyController manages listings and their view counters.
type PropertyController struct {
	db      *gorm.DB
	views   *services.ViewService
	store   storage.Provider
	tracker *services.StorageHistoryTracker
	tasks   *services.TaskRunner
}

// NewPropertyController creates a PropertyController.
func NewPropertyController(db *gorm.DB, views *services.ViewService, store storage.Provider,
	tracker *services.StorageHistoryTracker, tasks *services.TaskRunner) *PropertyController {
	return &PropertyController{db: db, views: views, store: store, tracker: tracker, tasks: tasks}
}

// ListProperties returns paginated listings, newest first.
func (p *PropertyController) ListProperties(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	city := strings.TrimSpace(ctx.Query("city"))
	listingType := strings.TrimSpace(ctx.Query("listing_type"))

	// Free-text searches are not cached to keep the key space bounded.
	cacheKey := ""
	if search == "" {
		cacheKey = fmt.Sprintf("%scity=%s:type=%s:page=%d:size=%d", cachePropertyListPrefix, city, listingType, page, pageSize)
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			utils.Cached(ctx, b)
			return
		}
	}

	query := p.db.Model(&models.Property{})
	if search != "" {
		query = query.Where("title LIKE ? OR description LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if city != "" {
		query = query.Where("city = ?", city)
	}
	if listingType != "" {
		query = query.Where("listing_type = ?", listingType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count properties")
		return
	}

	var items []models.Property
	if err := query.Preload("Owner").Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list properties")
		return
	}

	payload := gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	if cacheKey != "" {
		utils.CacheSetJSON(cacheKey, payload, 5*time.Minute)
	}
	utils.Success(ctx, payload)
}

// GetProperty returns a single listing with its files.
func (p *PropertyController) GetProperty(ctx *gin.Context) {
	id, ok := propertyID(ctx)
	if !ok {
		return
	}
	if b, ok := utils.CacheGetBytes(detailCacheKey(id)); ok {
		utils.Cached(ctx, b)
		return
	}

	var property models.Property
	if err := p.db.Preload("Owner").Preload("Files").First(&property, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "property not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load property")
		return
	}

	payload := gin.H{"property": property}
	utils.CacheSetJSON(detailCacheKey(id), payload, time.Hour)
	utils.Success(ctx, payload)
}

// CreateProperty lets an authenticated user list a property.
func (p *PropertyController) CreateProperty(ctx *gin.Context) {
	var req struct {
		Title        string  `json:"title" binding:"required"`
		Description  string  `json:"description"`
		PropertyType string  `json:"property_type" binding:"required"`
		ListingType  string  `json:"listing_type" binding:"required"`
		Price        int64   `json:"price" binding:"gte=0"`
		City         string  `json:"city"`
		Address      string  `json:"address"`
		Bedrooms     int     `json:"bedrooms" binding:"gte=0"`
		Bathrooms    int     `json:"bathrooms" binding:"gte=0"`
		AreaSqm      float64 `json:"area_sqm" binding:"gte=0"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	title := utils.StripTags(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}
	if !models.ValidPropertyType(req.PropertyType) {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid property type")
		return
	}
	if !models.ValidListingType(req.ListingType) {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid listing type")
		return
	}

	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	property := models.Property{
		OwnerID:      userID,
		Title:        title,
		Description:  utils.Sanitize(req.Description),
		PropertyType: req.PropertyType,
		ListingType:  req.ListingType,
		Price:        req.Price,
		City:         utils.StripTags(strings.TrimSpace(req.City)),
		Address:      utils.StripTags(strings.TrimSpace(req.Address)),
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		AreaSqm:      req.AreaSqm,
	}
	if err := p.db.Omit("Owner", "Files").Create(&property).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create property")
		return
	}

	utils.InvalidateByPrefix(cachePropertyListPrefix)
	utils.Created(ctx, gin.H{"property": property})
}

// DeleteProperty removes a listing, its view ledger and its stored files.
func (p *PropertyController) DeleteProperty(ctx *gin.Context) {
	id, ok := propertyID(ctx)
	if !ok {
		return
	}
	var property models.Property
	if err := p.db.Preload("Files").First(&property, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40404, "property not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load property")
		return
	}

	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}
	if property.OwnerID != userID && !middleware.LoadAdmin(ctx, p.db) {
		utils.Error(ctx, http.StatusForbidden, 40302, "you can only delete your own properties")
		return
	}

	err := p.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("property_id = ?", id).Delete(&models.PropertyView{}).Error; err != nil {
			return err
		}
		if err := tx.Where("property_id = ?", id).Delete(&models.PropertyFile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Property{}, id).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to delete property")
		return
	}

	if len(property.Files) > 0 {
		files := property.Files
		// The snapshot is queued only after the objects are gone so it sees the new usage.
		p.tasks.Go("property_files_cleanup", func(taskCtx context.Context) error {
			defer p.tasks.SnapshotStorage(p.tracker, "property_delete")
			var failed int
			for _, f := range files {
				if err := p.store.Delete(taskCtx, f.ObjectKey); err != nil {
					failed++
					utils.Logger.Warn("stored file delete failed", zap.String("key", f.ObjectKey), zap.Error(err))
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files not deleted", failed, len(files))
			}
			return nil
		})
	}

	utils.InvalidateByPrefix(cachePropertyListPrefix)
	utils.CacheDelete(detailCacheKey(id))
	utils.Success(ctx, gin.H{"message": "property deleted"})
}

// RecordView counts a unique viewer for a property. Identity is the bearer
// token's user when present, otherwise the client supplied session id. Requests
// carrying neither are accepted but never counted.
func (p *PropertyController) RecordView(ctx *gin.Context) {
	id, ok := propertyID(ctx)
	if !ok {
		return
	}

	var req struct {
		SessionID string `json:"sessionId"`
	}
	// Bodies of unknown length may still be empty; only a non-empty body must be JSON.
	if body := ctx.Request.Body; body != nil && body != http.NoBody {
		if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			utils.Error(ctx, http.StatusBadRequest, 40041, "invalid request payload")
			return
		}
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(ctx.GetHeader("X-Session-ID"))
	}
	if len(sessionID) > maxSessionIDLength {
		utils.Error(ctx, http.StatusBadRequest, 40042, "session id too long")
		return
	}

	userID, _ := middleware.CurrentUserID(ctx)
	viewer := services.IdentityFrom(userID, sessionID)

	result, err := p.views.RecordView(ctx.Request.Context(), id, viewer, ctx.ClientIP())
	if err != nil {
		if errors.Is(err, services.ErrPropertyNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "property not found")
			return
		}
		utils.Logger.Error("record view failed", zap.Uint("property_id", id), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50040, "cannot record view")
		return
	}

	if result.IsNew {
		utils.CacheDelete(detailCacheKey(id))
	}
	utils.Success(ctx, result)
}
