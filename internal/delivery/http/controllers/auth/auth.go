package auth

import (
	"CourseMarket/internal/delivery/http/controllers/common"
	"CourseMarket/internal/models"
	"CourseMarket/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthService interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	LoginUser(ctx context.Context, email, password string) (*models.TokenPair, error)
	RefreshTokens(ctx context.Context, token string) (*models.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	User(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type AuthHandler struct {
	log     logger.Log
	service AuthService
}

func NewAuthHandler(l logger.Log, auth AuthService) *AuthHandler {
	return &AuthHandler{
		log:     l.With("handler", "auth"),
		service: auth,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func newTokenResponse(pair *models.TokenPair) tokenResponse {
	return tokenResponse{AccessToken: pair.AccessToken.Raw, RefreshToken: pair.RefreshToken.Raw}
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	user, err := h.service.User(c.Request.Context(), userID)
	if err != nil {
		common.Error(c, h.log, "load current user", err)
		return
	}
	common.OK(c, http.StatusOK, user)
}

type createUserRequest struct {
	Name     string   `json:"name" binding:"required,notblank,max=200"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required"`
	Roles    []string `json:"roles"`
}

// CreateUser is the admin provisioning endpoint; self-service registration is not offered.
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if !common.BindJSON(c, &req) {
		return
	}
	user, err := h.service.CreateUser(c.Request.Context(), models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		common.Error(c, h.log, "create user", err)
		return
	}
	common.OK(c, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !common.BindJSON(c, &req) {
		return
	}
	pair, err := h.service.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.Error(c, h.log, "login", err)
		return
	}
	common.OK(c, http.StatusOK, newTokenResponse(pair))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !common.BindJSON(c, &req) {
		return
	}
	pair, err := h.service.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		common.Error(c, h.log, "refresh tokens", err)
		return
	}
	common.OK(c, http.StatusOK, newTokenResponse(pair))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	if err := h.service.Logout(c.Request.Context(), userID); err != nil {
		common.Error(c, h.log, "logout", err)
		return
	}
	c.Status(http.StatusNoContent)
}
