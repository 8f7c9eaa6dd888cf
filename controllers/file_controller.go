package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homenest/estate/config"
	"github.com/homenest/estate/middleware"
	"github.com/homenest/estate/models"
	"github.com/homenest/estate/services"
	"github.com/homenest/estate/storage"
	"github.com/homenest/estate/utils"
)

// FileController uploads and removes property images and brochures.
type FileController struct {
	db      *gorm.DB
	store   storage.Provider
	tracker *services.StorageHistoryTracker
	tasks   *services.TaskRunner
}

// NewFileController creates a FileController.
func NewFileController(db *gorm.DB, store storage.Provider, tracker *services.StorageHistoryTracker, tasks *services.TaskRunner) *FileController {
	return &FileController{db: db, store: store, tracker: tracker, tasks: tasks}
}

// ObjectPrefix is the storage prefix holding every file of a property.
func ObjectPrefix(propertyID uint) string {
	return "properties/" + strconv.FormatUint(uint64(propertyID), 10) + "/"
}

// Upload stores one multipart "file" for a property the caller owns and
// schedules a storage history snapshot.
func (f *FileController) Upload(ctx *gin.Context) {
	id, ok := propertyID(ctx)
	if !ok {
		return
	}
	property, ok := f.ownedProperty(ctx, id)
	if !ok {
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	category := storage.Classify(header.Filename)
	if category == storage.CategoryOther {
		utils.Error(ctx, http.StatusBadRequest, 40031, "unsupported file type "+ext)
		return
	}

	maxMB := config.Get().MaxUploadMB
	maxSize := int64(maxMB) * 1024 * 1024
	if header.Size > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40032, fmt.Sprintf("file size exceeds %dMB", maxMB))
		return
	}

	key := fmt.Sprintf("%s%s/%s%s", ObjectPrefix(property.ID), category, uuid.NewString(), ext)
	written, err := f.store.Put(ctx.Request.Context(), key, &io.LimitedReader{R: file, N: maxSize + 1})
	if err != nil {
		utils.Logger.Error("file upload failed", zap.String("key", key), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to store file")
		return
	}
	if written > maxSize {
		_ = f.store.Delete(ctx.Request.Context(), key)
		utils.Error(ctx, http.StatusBadRequest, 40032, fmt.Sprintf("file size exceeds %dMB", maxMB))
		return
	}

	record := models.PropertyFile{
		PropertyID:   property.ID,
		ObjectKey:    key,
		URL:          f.store.URL(key),
		Category:     string(category),
		OriginalName: utils.StripTags(filepath.Base(header.Filename)),
		SizeBytes:    written,
	}
	if err := f.db.Create(&record).Error; err != nil {
		_ = f.store.Delete(ctx.Request.Context(), key)
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to save file record")
		return
	}

	f.tasks.SnapshotStorage(f.tracker, "file_upload")
	utils.CacheDelete(detailCacheKey(property.ID))
	utils.Created(ctx, gin.H{"file": record})
}

// Delete removes one file of a property the caller owns.
func (f *FileController) Delete(ctx *gin.Context) {
	id, ok := propertyID(ctx)
	if !ok {
		return
	}
	if _, ok := f.ownedProperty(ctx, id); !ok {
		return
	}

	var record models.PropertyFile
	if err := f.db.Where("id = ? AND property_id = ?", ctx.Param("fileId"), id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "file not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to load file")
		return
	}

	if err := f.store.Delete(ctx.Request.Context(), record.ObjectKey); err != nil {
		utils.Logger.Error("stored file delete failed", zap.String("key", record.ObjectKey), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to delete stored file")
		return
	}
	if err := f.db.Delete(&record).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to delete file record")
		return
	}

	f.tasks.SnapshotStorage(f.tracker, "file_delete")
	utils.CacheDelete(detailCacheKey(id))
	utils.Success(ctx, gin.H{"message": "file deleted"})
}

func (f *FileController) ownedProperty(ctx *gin.Context, id uint) (models.Property, bool) {
	var property models.Property
	if err := f.db.Select("id", "owner_id").First(&property, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "property not found")
			return property, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load property")
		return property, false
	}
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "unauthorized")
		return property, false
	}
	if property.OwnerID != userID && !middleware.LoadAdmin(ctx, f.db) {
		utils.Error(ctx, http.StatusForbidden, 40303, "you can only manage files of your own properties")
		return property, false
	}
	return property, true
}
