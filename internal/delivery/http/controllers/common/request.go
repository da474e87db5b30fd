package common

import (
	"CourseMarket/internal/delivery/http/controllers/middleware"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Caller returns the authenticated user id and roles. It writes a 401 and returns false when absent.
func Caller(c *gin.Context) (uuid.UUID, []string, bool) {
	raw, exists := c.Get(middleware.ClientIDCtx)
	if !exists {
		Fail(c, http.StatusUnauthorized, "user not authenticated")
		return uuid.Nil, nil, false
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		Fail(c, http.StatusInternalServerError, "invalid user id in context")
		return uuid.Nil, nil, false
	}
	roles, _ := c.Get(middleware.ClientRolesCtx)
	r, _ := roles.([]string)
	return userID, r, true
}

// OptionalCaller is Caller for routes open to anonymous visitors.
func OptionalCaller(c *gin.Context) (uuid.UUID, []string) {
	raw, exists := c.Get(middleware.ClientIDCtx)
	if !exists {
		return uuid.Nil, nil
	}
	userID, _ := raw.(uuid.UUID)
	roles, _ := c.Get(middleware.ClientRolesCtx)
	r, _ := roles.([]string)
	return userID, r
}

// UUIDParam parses a path parameter, writing a 400 on failure.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		Fail(c, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// Page reads limit/offset query parameters with the given default limit.
func Page(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int, ok bool) {
	limit = defaultLimit
	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			Fail(c, http.StatusBadRequest, "limit must be a positive integer")
			return 0, 0, false
		}
		limit = min(v, maxLimit)
	}
	if s := c.Query("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			Fail(c, http.StatusBadRequest, "offset must be a non-negative integer")
			return 0, 0, false
		}
		offset = v
	}
	return limit, offset, true
}

// BindJSON binds and validates the body, writing a 400 with the validation message on failure.
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		Fail(c, http.StatusBadRequest, ValidationMessage(err))
		return false
	}
	return true
}
