package middleware

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/internal/models"
	"CourseMarket/pkg/logger"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ClientIDCtx    = "client_id"
	ClientRolesCtx = "client_roles"
)

type AuthService interface {
	ParseToken(ctx context.Context, token string) (*jwt.Token, error)
	IsAccessToken(ctx context.Context, token *jwt.Token) bool
	AccessClaims(ctx context.Context, token string) (userID uuid.UUID, roles []string, err error)
	User(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type AuthMiddlewareProvider struct {
	log     logger.Log
	service AuthService
}

func NewAuthMiddlewareProvider(log logger.Log, s AuthService) *AuthMiddlewareProvider {
	return &AuthMiddlewareProvider{
		log:     log.With("middleware", "auth"),
		service: s,
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticate resolves the caller from an access token. The user must still exist.
func (h *AuthMiddlewareProvider) authenticate(ctx context.Context, token string) (uuid.UUID, []string, error) {
	parsed, err := h.service.ParseToken(ctx, token)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if !h.service.IsAccessToken(ctx, parsed) {
		return uuid.Nil, nil, errors.New("not an access token")
	}
	userID, roles, err := h.service.AccessClaims(ctx, token)
	if err != nil {
		return uuid.Nil, nil, err
	}
	user, err := h.service.User(ctx, userID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return user.ID, roles, nil
}

func (h *AuthMiddlewareProvider) AuthMiddleware(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		abort(c, http.StatusUnauthorized, "missing bearer token")
		return
	}

	userID, roles, err := h.authenticate(c.Request.Context(), token)
	if err != nil {
		h.log.Debug("rejected token", logger.Err(err))
		if errors.Is(err, app_errors.ErrTokenExpired) {
			abort(c, http.StatusUnauthorized, app_errors.ErrTokenExpired.Error())
			return
		}
		abort(c, http.StatusUnauthorized, "invalid token")
		return
	}

	c.Set(ClientIDCtx, userID)
	c.Set(ClientRolesCtx, roles)
	c.Next()
}

// OptionalAuth identifies the caller when a valid token is sent and lets anonymous requests through.
func (h *AuthMiddlewareProvider) OptionalAuth(c *gin.Context) {
	if token := bearerToken(c); token != "" {
		if userID, roles, err := h.authenticate(c.Request.Context(), token); err == nil {
			c.Set(ClientIDCtx, userID)
			c.Set(ClientRolesCtx, roles)
		}
	}
	c.Next()
}
