package common

import (
	"CourseMarket/internal/app_errors"
	"CourseMarket/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type okResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

func OK(c *gin.Context, status int, data any) {
	c.JSON(status, okResponse{Success: true, Data: data})
}

func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Success: false, Message: message})
}

var statusByErr = []struct {
	status int
	errs   []error
}{
	{http.StatusNotFound, []error{
		app_errors.ErrUserNotFound, app_errors.ErrCourseNotFound, app_errors.ErrEnrollmentNotFound,
		app_errors.ErrReviewNotFound, app_errors.ErrCertificateNotFound, app_errors.ErrNotificationNotFound,
		app_errors.ErrNoPendingInstallment,
	}},
	{http.StatusUnauthorized, []error{
		app_errors.ErrIncorrectPassword, app_errors.ErrTokenExpired, app_errors.ErrTokenNotFound,
		app_errors.ErrInvalidToken,
	}},
	{http.StatusForbidden, []error{
		app_errors.ErrNotCourseAuthor, app_errors.ErrNotEnrollmentOwner, app_errors.ErrForbidden,
		app_errors.ErrNotEnrolled,
	}},
	{http.StatusBadRequest, []error{
		app_errors.ErrInvalidPaymentType, app_errors.ErrInvalidInstallmentPlan, app_errors.ErrVideoNotInCourse,
		app_errors.ErrEmptyVideoList, app_errors.ErrInvalidRating, app_errors.ErrEmptyComment,
		app_errors.ErrCourseNotPublished, app_errors.ErrCourseNotCompleted, app_errors.ErrPaymentNotSucceeded,
		app_errors.ErrInvalidSignature, app_errors.ErrNotVideo, app_errors.ErrNotImage,
		app_errors.ErrInvalidStatus, app_errors.ErrWeakPassword, app_errors.ErrInvalidRole,
	}},
	{http.StatusRequestEntityTooLarge, []error{app_errors.ErrFileSize}},
	{http.StatusConflict, []error{
		app_errors.ErrUserExists, app_errors.ErrAlreadyEnrolled, app_errors.ErrCertificateRevoked,
		app_errors.ErrPaymentInProgress,
	}},
	{http.StatusBadGateway, []error{app_errors.ErrPaymentProvider, app_errors.ErrMediaHost}},
}

// StatusFor maps a service error to its HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	for _, group := range statusByErr {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

// Error writes err as {success:false, message}. Internal failures are logged and their details hidden.
func Error(c *gin.Context, log logger.Log, op string, err error) {
	status := StatusFor(err)
	msg := err.Error()
	switch {
	case status >= http.StatusInternalServerError:
		log.ErrorErr(op+" failed", err, "path", c.FullPath())
		msg = "internal server error"
		if status == http.StatusBadGateway {
			msg = "upstream service unavailable"
		}
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		log.Warn(op+" denied", "error", err.Error(), "path", c.FullPath())
	}
	_ = c.Error(err)
	Fail(c, status, msg)
}
