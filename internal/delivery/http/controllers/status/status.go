package status

import (
	"CourseMarket/pkg/logger"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const pingTimeout = 2 * time.Second

// Pinger is any backing service that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type StatusHandler struct {
	log  logger.Log
	deps map[string]Pinger
}

func NewStatusHandler(log logger.Log, deps map[string]Pinger) *StatusHandler {
	return &StatusHandler{log: log.With("handler", "status"), deps: deps}
}

// Status answers 200 when every dependency responds, 503 otherwise.
func (h *StatusHandler) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	code := http.StatusOK
	checks := make(gin.H, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			h.log.Warn("dependency unavailable", "dependency", name, "error", err.Error())
			checks[name] = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	status := "available"
	if code != http.StatusOK {
		status = "degraded"
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}
