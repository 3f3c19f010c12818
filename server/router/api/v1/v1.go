package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/clockface/internal/profile"
	"github.com/hrygo/clockface/server/internal/observability"
	"github.com/hrygo/clockface/server/middleware"
	"github.com/hrygo/clockface/server/service/timekeeper"
)

// APIV1Service serves the clock HTTP API.
type APIV1Service struct {
	Profile *profile.Profile
	Clock   *timekeeper.Service
	Metrics *observability.Metrics

	// resolveLimiter throttles phrase resolution per client IP.
	resolveLimiter *middleware.RateLimiter

	streamsDone  chan struct{}
	closeStreams sync.Once
}

func NewAPIV1Service(profile *profile.Profile, clock *timekeeper.Service) *APIV1Service {
	s := &APIV1Service{
		Profile:        profile,
		Clock:          clock,
		Metrics:        observability.NewMetrics(1000),
		resolveLimiter: middleware.NewRateLimiter(profile.ResolveRate, profile.ResolveBurst),
		streamsDone:    make(chan struct{}),
	}
	clock.OnResolution(func(r timekeeper.Resolution) {
		s.Metrics.RecordResolution(r.Found, r.Stale)
	})
	return s
}

// CloseStreams ends every open clock stream. Call it before shutting the HTTP
// server down; streams never go idle on their own.
func (s *APIV1Service) CloseStreams() {
	s.closeStreams.Do(func() { close(s.streamsDone) })
}

// RegisterRoutes registers the clock API with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	echoServer.GET("/healthz", s.Healthz)

	api := echoServer.Group("/api/v1", echomiddleware.CORS(), s.requestLogger)

	clock := api.Group("/clock")
	clock.GET("", s.GetClock)
	clock.GET("/stream", s.StreamClock)
	clock.GET("/angles", s.GetAngles)
	clock.PUT("/time", s.SetTime)
	clock.PATCH("/time/:field", s.SetField)
	clock.POST("/resume", s.Resume)
	clock.POST("/pause", s.Pause)
	clock.POST("/toggle", s.TogglePause)
	clock.POST("/resolve", s.ResolvePhrase, s.resolveLimiter.Middleware(s.rateLimited))
	clock.POST("/focus", s.EnterFocus)
	clock.DELETE("/focus", s.ExitFocus)
	clock.POST("/cancel", s.Cancel)
	clock.POST("/style", s.SetStyle)

	api.GET("/system/metrics", s.GetMetrics)
}

// requestLogger attaches a request context and records per-operation metrics.
func (s *APIV1Service) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		rc := observability.NewRequestContext(slog.Default(), req.Method+" "+c.Path(), c.RealIP())
		c.Response().Header().Set(echo.HeaderXRequestID, rc.RequestID)
		c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), rc)))

		err := next(c)

		status := c.Response().Status
		if err != nil {
			status = http.StatusInternalServerError
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
		}
		s.Metrics.RecordRequest(rc.Operation, rc.Duration(), status >= http.StatusBadRequest)
		rc.Debug("request completed",
			slog.Int(observability.LogFieldStatus, status),
			slog.Int64(observability.LogFieldDuration, rc.DurationMs()))
		return err
	}
}

// requestContext returns the request context attached by requestLogger.
func requestContext(c echo.Context) *observability.RequestContext {
	if rc, ok := observability.FromContext(c.Request().Context()); ok {
		return rc
	}
	return observability.NewRequestContext(slog.Default(), c.Path(), c.RealIP())
}
