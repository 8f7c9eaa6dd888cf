package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homenest/estate/models"
	"github.com/homenest/estate/services"
	"github.com/homenest/estate/utils"
)

// StatsController exposes storage usage to administrators.
type StatsController struct {
	db      *gorm.DB
	tracker *services.StorageHistoryTracker
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB, tracker *services.StorageHistoryTracker) *StatsController {
	return &StatsController{db: db, tracker: tracker}
}

// GetStorageStats returns live usage of one property's files together with the
// global usage, and records the global usage as this month's history entry.
func (s *StatsController) GetStorageStats(ctx *gin.Context) {
	id, ok := propertyID(ctx)
	if !ok {
		return
	}
	if err := s.db.Select("id").First(&models.Property{}, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "property not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load property")
		return
	}

	reqCtx := ctx.Request.Context()
	propertyStats, err := s.tracker.Stats(reqCtx, ObjectPrefix(id))
	if err != nil {
		utils.Logger.Error("property storage stats failed", zap.Uint("property_id", id), zap.Error(err))
		utils.Error(ctx, http.StatusBadGateway, 50250, "storage provider unavailable")
		return
	}

	global, record, err := s.tracker.Snapshot(reqCtx)
	if err != nil {
		utils.Logger.Error("storage snapshot failed", zap.Error(err))
		if errors.Is(err, services.ErrStorageQuery) {
			utils.Error(ctx, http.StatusBadGateway, 50250, "storage provider unavailable")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to record storage history")
		return
	}

	utils.Success(ctx, gin.H{
		"property_id": id,
		"property":    propertyStats,
		"global":      global,
		"history":     record,
	})
}

// GetStorageHistory lists monthly usage records, newest month first.
func (s *StatsController) GetStorageHistory(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	items, err := s.tracker.History(ctx.Request.Context(), limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to load storage history")
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}
