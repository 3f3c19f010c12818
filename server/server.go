// Package server wires the clock service to its HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/clockface/internal/profile"
	"github.com/hrygo/clockface/plugin/ai/aitime"
	"github.com/hrygo/clockface/plugin/ai/timeout"
	apiv1 "github.com/hrygo/clockface/server/router/api/v1"
	"github.com/hrygo/clockface/server/service/timekeeper"
	"github.com/hrygo/clockface/server/timezone"
)

// Server is the clock HTTP server.
type Server struct {
	Profile *profile.Profile
	Clock   *timekeeper.Service

	echoServer *echo.Echo
	api        *apiv1.APIV1Service

	mu       sync.Mutex
	listener net.Listener
}

// NewServer builds the resolver chain, the clock service and the HTTP routes.
func NewServer(profile *profile.Profile) (*Server, error) {
	resolver, err := aitime.NewResolverFromProfile(profile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create time resolver")
	}
	return NewServerWithResolver(profile, resolver)
}

// NewServerWithResolver is NewServer with an explicit resolver.
func NewServerWithResolver(profile *profile.Profile, resolver aitime.Resolver) (*Server, error) {
	location, err := timezone.ParseTimezone(profile.Timezone)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load clock timezone")
	}

	clock, err := timekeeper.NewService(resolver, timekeeper.Config{
		TickInterval:   profile.TickInterval,
		Location:       location,
		StartFrozen:    profile.StartFrozen,
		Style:          profile.Style,
		ResolveTimeout: profile.ResolverTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create clock service")
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomiddleware.Recover())

	api := apiv1.NewAPIV1Service(profile, clock)
	api.RegisterRoutes(echoServer)

	return &Server{
		Profile:    profile,
		Clock:      clock,
		echoServer: echoServer,
		api:        api,
	}, nil
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start listens on the profile address and serves until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", address)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.echoServer.Listener = listener

	slog.Info("clock server started",
		slog.String("addr", listener.Addr().String()),
		slog.String("mode", s.Profile.Mode),
		slog.String("version", s.Profile.Version))

	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "clock server stopped")
	}
	return nil
}

// Addr returns the bound address once Start is listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown ends open clock streams, drains in-flight requests and stops the
// clock.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, timeout.ShutdownTimeout)
	defer cancel()

	slog.Info("clock server shutting down")
	start := time.Now()
	s.api.CloseStreams()
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown clock server", slog.String("error", err.Error()))
	}
	s.Clock.Close()
	slog.Info("clock server stopped", slog.Duration("took", time.Since(start)))
}
