package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/clockface/server/internal/observability"
)

// MetricsResponse is the system metrics overview.
type MetricsResponse struct {
	*observability.MetricsSnapshot
	SuccessRate float64 `json:"success_rate"`
	Resolving   bool    `json:"resolving"`
}

// GetMetrics returns request and resolver counters since start.
// GET /api/v1/system/metrics
func (s *APIV1Service) GetMetrics(c echo.Context) error {
	snap := s.Metrics.Snapshot()
	return c.JSON(http.StatusOK, MetricsResponse{
		MetricsSnapshot: snap,
		SuccessRate:     snap.SuccessRate(),
		Resolving:       s.Clock.Snapshot().Resolving,
	})
}
