package certificate

import (
	"CourseMarket/internal/delivery/http/controllers/common"
	"CourseMarket/internal/models"
	"CourseMarket/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Service interface {
	Generate(ctx context.Context, userID, courseID uuid.UUID) (*models.CertificateView, error)
	Get(ctx context.Context, id, userID uuid.UUID, roles []string) (*models.CertificateView, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]models.CertificateView, error)
	Verify(ctx context.Context, number string) (*models.CertificateVerification, error)
	Revoke(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	log     logger.Log
	service Service
}

func NewHandler(l logger.Log, s Service) *Handler {
	return &Handler{log: l.With("handler", "certificate"), service: s}
}

func (h *Handler) Generate(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	courseID, ok := common.UUIDParam(c, "course_id")
	if !ok {
		return
	}
	cert, err := h.service.Generate(c.Request.Context(), userID, courseID)
	if err != nil {
		common.Error(c, h.log, "generate certificate", err)
		return
	}
	common.OK(c, http.StatusOK, cert)
}

func (h *Handler) Get(c *gin.Context) {
	userID, roles, ok := common.Caller(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "certificate_id")
	if !ok {
		return
	}
	cert, err := h.service.Get(c.Request.Context(), id, userID, roles)
	if err != nil {
		common.Error(c, h.log, "get certificate", err)
		return
	}
	common.OK(c, http.StatusOK, cert)
}

func (h *Handler) ListMine(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	certs, err := h.service.ListMine(c.Request.Context(), userID)
	if err != nil {
		common.Error(c, h.log, "list certificates", err)
		return
	}
	common.OK(c, http.StatusOK, certs)
}

// Verify is public. An unknown number answers 404, a revoked one answers 200 with valid=false.
func (h *Handler) Verify(c *gin.Context) {
	res, err := h.service.Verify(c.Request.Context(), c.Param("number"))
	if err != nil {
		common.Error(c, h.log, "verify certificate", err)
		return
	}
	common.OK(c, http.StatusOK, res)
}

func (h *Handler) Revoke(c *gin.Context) {
	id, ok := common.UUIDParam(c, "certificate_id")
	if !ok {
		return
	}
	if err := h.service.Revoke(c.Request.Context(), id); err != nil {
		common.Error(c, h.log, "revoke certificate", err)
		return
	}
	common.OK(c, http.StatusOK, gin.H{"certificate_id": id, "status": models.CertificateRevoked})
}
