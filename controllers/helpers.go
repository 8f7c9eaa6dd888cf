package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/homenest/estate/utils"
)

const (
	cachePropertyListPrefix   = "cache:properties:list:"
	cachePropertyDetailPrefix = "cache:property:detail:"
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

// propertyID parses the :id path parameter, writing a 400 when it is not a
// positive integer.
func propertyID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param("id")), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid property id")
		return 0, false
	}
	return uint(id), true
}

func detailCacheKey(id uint) string {
	return cachePropertyDetailPrefix + strconv.FormatUint(uint64(id), 10)
}
