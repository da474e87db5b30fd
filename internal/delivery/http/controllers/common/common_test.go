package common

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/pkg/logger"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{app_errors.ErrCourseNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", app_errors.ErrEnrollmentNotFound), http.StatusNotFound},
		{app_errors.ErrTokenExpired, http.StatusUnauthorized},
		{app_errors.ErrNotEnrollmentOwner, http.StatusForbidden},
		{app_errors.ErrInvalidInstallmentPlan, http.StatusBadRequest},
		{app_errors.ErrInvalidRating, http.StatusBadRequest},
		{app_errors.ErrAlreadyEnrolled, http.StatusConflict},
		{app_errors.ErrPaymentInProgress, http.StatusConflict},
		{fmt.Errorf("%w: card declined", app_errors.ErrPaymentProvider), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestError_HidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Error(c, logger.NewDiscard(), "load", errors.New("pq: relation does not exist"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"internal server error"}`, w.Body.String())
	assert.Len(t, c.Errors, 1)
}

type sample struct {
	Plan    int    `json:"installmentPlan" binding:"installment_plan"`
	Type    string `json:"paymentType" binding:"required,payment_type"`
	Comment string `json:"comment" binding:"notblank"`
}

func TestCustomValidators(t *testing.T) {
	require.NoError(t, RegisterValidators())

	ok := sample{Plan: 12, Type: "installment", Comment: "fine"}
	assert.NoError(t, binding.Validator.ValidateStruct(&ok))

	zero := sample{Type: "full", Comment: "x"}
	assert.NoError(t, binding.Validator.ValidateStruct(&zero))

	bad := sample{Plan: 3, Type: "crypto", Comment: "   "}
	err := binding.Validator.ValidateStruct(&bad)
	require.Error(t, err)
	msg := ValidationMessage(err)
	assert.Contains(t, msg, "installmentPlan must be one of [6 12 24]")
	assert.Contains(t, msg, "paymentType must be full or installment")
	assert.Contains(t, msg, "comment is required")
}
