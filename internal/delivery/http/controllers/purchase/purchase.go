package purchase

import (
	"CourseMarket/internal/delivery/http/controllers/common"
	"CourseMarket/internal/models"
	purchasesvc "CourseMarket/internal/service/purchase"
	"CourseMarket/pkg/logger"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Service interface {
	Initiate(ctx context.Context, userID, courseID uuid.UUID, paymentType string, installments int) (*purchasesvc.Checkout, error)
	Confirm(ctx context.Context, userID uuid.UUID, intentID string) (*models.Enrollment, error)
	PayNextInstallment(ctx context.Context, userID, courseID uuid.UUID) (*purchasesvc.Checkout, error)
	MyEnrollments(ctx context.Context, userID uuid.UUID) ([]models.EnrolledCourse, error)
	PendingInstallments(ctx context.Context, userID uuid.UUID) ([]models.PendingInstallment, error)
	SetDefaulted(ctx context.Context, enrollmentID uuid.UUID) (*models.Enrollment, error)
}

type Handler struct {
	log     logger.Log
	service Service
}

func NewHandler(l logger.Log, s Service) *Handler {
	return &Handler{
		log:     l.With("handler", "purchase"),
		service: s,
	}
}

type initiateRequest struct {
	CourseID        uuid.UUID `json:"courseId" binding:"required"`
	PaymentType     string    `json:"paymentType" binding:"required,payment_type"`
	InstallmentPlan int       `json:"installmentPlan" binding:"installment_plan"`
}

type confirmRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required,notblank"`
}

type payInstallmentRequest struct {
	CourseID uuid.UUID `json:"courseId" binding:"required"`
}

// purchaseView is the enrollment as returned by confirm, with the plan flattened.
type purchaseView struct {
	*models.Enrollment
	PaymentType  string               `json:"payment_type"`
	Installments []models.Installment `json:"installments,omitempty"`
}

func newPurchaseView(e *models.Enrollment) purchaseView {
	return purchaseView{Enrollment: e, PaymentType: e.PaymentType(), Installments: e.Installments()}
}

func (h *Handler) Initiate(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	var req initiateRequest
	if !common.BindJSON(c, &req) {
		return
	}
	checkout, err := h.service.Initiate(c.Request.Context(), userID, req.CourseID, req.PaymentType, req.InstallmentPlan)
	if err != nil {
		common.Error(c, h.log, "initiate purchase", err)
		return
	}
	common.OK(c, http.StatusCreated, checkout)
}

func (h *Handler) Confirm(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	var req confirmRequest
	if !common.BindJSON(c, &req) {
		return
	}
	e, err := h.service.Confirm(c.Request.Context(), userID, req.PaymentIntentID)
	if err != nil {
		common.Error(c, h.log, "confirm purchase", err)
		return
	}
	common.OK(c, http.StatusOK, gin.H{"purchase": newPurchaseView(e)})
}

func (h *Handler) PayNextInstallment(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	var req payInstallmentRequest
	if !common.BindJSON(c, &req) {
		return
	}
	checkout, err := h.service.PayNextInstallment(c.Request.Context(), userID, req.CourseID)
	if err != nil {
		common.Error(c, h.log, "pay installment", err)
		return
	}
	common.OK(c, http.StatusCreated, checkout)
}

func (h *Handler) MyEnrollments(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	list, err := h.service.MyEnrollments(c.Request.Context(), userID)
	if err != nil {
		common.Error(c, h.log, "list enrollments", err)
		return
	}
	common.OK(c, http.StatusOK, list)
}

func (h *Handler) PendingInstallments(c *gin.Context) {
	userID, _, ok := common.Caller(c)
	if !ok {
		return
	}
	list, err := h.service.PendingInstallments(c.Request.Context(), userID)
	if err != nil {
		common.Error(c, h.log, "pending installments", err)
		return
	}
	common.OK(c, http.StatusOK, list)
}

func (h *Handler) SetDefaulted(c *gin.Context) {
	id, ok := common.UUIDParam(c, "enrollment_id")
	if !ok {
		return
	}
	e, err := h.service.SetDefaulted(c.Request.Context(), id)
	if err != nil {
		common.Error(c, h.log, "set defaulted", err)
		return
	}
	common.OK(c, http.StatusOK, newPurchaseView(e))
}
