package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/homenest/estate/config"
	"github.com/homenest/estate/storage"
	"github.com/homenest/estate/utils"
)

// ConfigController serves client-facing configuration.
type ConfigController struct{}

func NewConfigController() *ConfigController { return &ConfigController{} }

// GetUploadConfig tells clients which files an upload accepts.
func (c *ConfigController) GetUploadConfig(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"max_upload_mb": cfg.MaxUploadMB,
		"extensions": gin.H{
			"image":    storage.Extensions(storage.CategoryImage),
			"brochure": storage.Extensions(storage.CategoryBrochure),
		},
	})
}
