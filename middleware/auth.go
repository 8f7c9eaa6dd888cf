package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/homenest/estate/models"
	"github.com/homenest/estate/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw bearer token.
	ContextTokenKey = "token"
	// ContextIsAdminKey caches the admin flag once loaded.
	ContextIsAdminKey = "is_admin"
)

// bearerToken extracts the token from an Authorization header. code is the
// application error code when the header is present but unusable.
func bearerToken(header string) (token string, code int, msg string) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", 40102, "invalid authorization header format"
	}
	token = strings.TrimSpace(parts[1])
	if token == "" {
		return "", 40103, "empty bearer token"
	}
	return token, 0, ""
}

func authenticate(ctx *gin.Context, token string) bool {
	if utils.IsTokenBlacklisted(token) {
		return false
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		return false
	}
	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextUsernameKey, claims.Username)
	ctx.Set(ContextTokenKey, token)
	return true
}

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if header == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}
		token, code, msg := bearerToken(header)
		if code != 0 {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}
		if !authenticate(ctx, token) {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// OptionalAuth attaches the user identity when a valid bearer token is sent and
// otherwise lets the request through anonymously.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if header := ctx.GetHeader("Authorization"); header != "" {
			if token, code, _ := bearerToken(header); code == 0 {
				authenticate(ctx, token)
			}
		}
		ctx.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !LoadAdmin(ctx, db) {
			utils.Error(ctx, http.StatusForbidden, 40310, "admin only")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// CurrentUserID returns the authenticated user id, if any.
func CurrentUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	default:
		return 0, false
	}
}

// LoadAdmin reports whether the authenticated user carries the admin flag.
// The answer is read from the database once per request and kept on ctx.
func LoadAdmin(ctx *gin.Context, db *gorm.DB) bool {
	if v, ok := ctx.Get(ContextIsAdminKey); ok {
		admin, _ := v.(bool)
		return admin
	}
	admin := false
	if uid, ok := CurrentUserID(ctx); ok {
		var user models.User
		err := db.WithContext(ctx.Request.Context()).Select("id", "is_admin").First(&user, uid).Error
		admin = err == nil && user.IsAdmin
	}
	ctx.Set(ContextIsAdminKey, admin)
	return admin
}
