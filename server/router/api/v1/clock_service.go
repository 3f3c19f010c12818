package v1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/clockface/plugin/ai/aitime"
	"github.com/hrygo/clockface/plugin/ai/timeout"
	"github.com/hrygo/clockface/plugin/clock"
	clockerrors "github.com/hrygo/clockface/server/internal/errors"
	"github.com/hrygo/clockface/server/internal/observability"
	"github.com/hrygo/clockface/server/service/timekeeper"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    clockerrors.ErrorCode `json:"code"`
	Message string                `json:"message"`
	Details string                `json:"details,omitempty"`
}

// SetTimeRequest replaces the whole time. Seconds default to zero.
type SetTimeRequest struct {
	Hours   *int `json:"hours"`
	Minutes *int `json:"minutes"`
	Seconds *int `json:"seconds"`
}

// SetFieldRequest sets one slider.
type SetFieldRequest struct {
	Value *int `json:"value"`
}

// ResolveRequest carries a free-text time description.
type ResolveRequest struct {
	Phrase string `json:"phrase"`
	// Async returns 202 immediately instead of waiting for the outcome.
	Async bool `json:"async"`
}

// ResolveResponse is returned once the phrase has been resolved.
type ResolveResponse struct {
	ResolveID  string                `json:"resolve_id"`
	Found      bool                  `json:"found"`
	Resolution *timekeeper.Resolution `json:"resolution,omitempty"`
	Snapshot   timekeeper.Snapshot   `json:"snapshot"`
}

// StyleRequest selects a style by name. An empty name toggles.
type StyleRequest struct {
	Style string `json:"style"`
}

// AnglesResponse is the pure angle mapping of a time.
type AnglesResponse struct {
	Time    clock.TimeValue `json:"time"`
	Display string          `json:"display"`
	Angles  clock.Angles    `json:"angles"`
}

// GetClock returns the current snapshot.
// GET /api/v1/clock
func (s *APIV1Service) GetClock(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Clock.Snapshot())
}

// SetTime replaces the displayed time.
// PUT /api/v1/clock/time
func (s *APIV1Service) SetTime(c echo.Context) error {
	var req SetTimeRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, clockerrors.InvalidArgument("invalid request body", err))
	}
	if req.Hours == nil || req.Minutes == nil {
		return s.fail(c, clockerrors.InvalidArgument("hours and minutes are required", nil))
	}
	seconds := 0
	if req.Seconds != nil {
		seconds = *req.Seconds
	}

	tv, err := clock.NewTimeValue(*req.Hours, *req.Minutes, seconds)
	if err != nil {
		return s.fail(c, err)
	}
	return s.respond(c)(s.Clock.SetTime(tv))
}

// SetField sets one time field.
// PATCH /api/v1/clock/time/:field
func (s *APIV1Service) SetField(c echo.Context) error {
	field, err := clock.ParseField(c.Param("field"))
	if err != nil {
		return s.fail(c, err)
	}
	var req SetFieldRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, clockerrors.InvalidArgument("invalid request body", err))
	}
	if req.Value == nil {
		return s.fail(c, clockerrors.InvalidArgument("value is required", nil))
	}
	return s.respond(c)(s.Clock.SetField(field, *req.Value))
}

// Resume returns to real time.
// POST /api/v1/clock/resume
func (s *APIV1Service) Resume(c echo.Context) error {
	return s.respond(c)(s.Clock.Resume())
}

// Pause freezes the displayed time.
// POST /api/v1/clock/pause
func (s *APIV1Service) Pause(c echo.Context) error {
	return s.respond(c)(s.Clock.Pause())
}

// TogglePause flips between real time and frozen.
// POST /api/v1/clock/toggle
func (s *APIV1Service) TogglePause(c echo.Context) error {
	return s.respond(c)(s.Clock.TogglePause())
}

// ResolvePhrase sets the clock from a free-text time description.
// POST /api/v1/clock/resolve
func (s *APIV1Service) ResolvePhrase(c echo.Context) error {
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, clockerrors.InvalidArgument("invalid request body", err))
	}
	rc := requestContext(c)
	ctx := c.Request().Context()

	if req.Async {
		id, err := s.Clock.SubmitPhrase(ctx, req.Phrase)
		if err != nil {
			return s.fail(c, err)
		}
		rc.Info("time phrase submitted", slog.String("resolve_id", id))
		return c.JSON(http.StatusAccepted, ResolveResponse{ResolveID: id, Snapshot: s.Clock.Snapshot()})
	}

	ctx, cancel := context.WithTimeout(ctx, timeout.ResolveTimeout)
	defer cancel()
	res, snap, err := s.Clock.ResolvePhrase(ctx, req.Phrase)
	if err != nil {
		return s.fail(c, err)
	}

	rc.Info("time phrase resolved",
		slog.String("resolve_id", res.ID),
		slog.Bool("found", res.Found),
		slog.Bool("applied", res.Applied))
	return c.JSON(http.StatusOK, ResolveResponse{
		ResolveID:  res.ID,
		Found:      res.Found,
		Resolution: &res,
		Snapshot:   snap,
	})
}

// EnterFocus switches to the distraction-free mode.
// POST /api/v1/clock/focus
func (s *APIV1Service) EnterFocus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Clock.EnterFocus())
}

// ExitFocus returns to the interactive mode.
// DELETE /api/v1/clock/focus
func (s *APIV1Service) ExitFocus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Clock.ExitFocus())
}

// Cancel is the escape gesture.
// POST /api/v1/clock/cancel
func (s *APIV1Service) Cancel(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Clock.Cancel())
}

// SetStyle selects or toggles the clock style.
// POST /api/v1/clock/style
func (s *APIV1Service) SetStyle(c echo.Context) error {
	var req StyleRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, clockerrors.InvalidArgument("invalid request body", err))
	}
	if req.Style == "" {
		return s.respond(c)(s.Clock.ToggleStyle())
	}
	return s.respond(c)(s.Clock.SetStyle(req.Style))
}

// GetAngles maps a time to hand angles. Without ?time= the displayed time is used.
// GET /api/v1/clock/angles
func (s *APIV1Service) GetAngles(c echo.Context) error {
	tv := s.Clock.Snapshot().Time
	if raw := c.QueryParam("time"); raw != "" {
		var err error
		if tv, err = clock.ParseTimeValue(raw); err != nil {
			return s.fail(c, err)
		}
	}
	return c.JSON(http.StatusOK, AnglesResponse{
		Time:    tv,
		Display: tv.String(),
		Angles:  clock.HandAngles(tv),
	})
}

// StreamClock streams snapshots as server-sent events until the client leaves
// or the server shuts down.
// GET /api/v1/clock/stream
func (s *APIV1Service) StreamClock(c echo.Context) error {
	snapshots, unsubscribe := s.Clock.Subscribe()
	defer unsubscribe()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, s.Clock.Snapshot()); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.streamsDone:
			return nil
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			if err := writeEvent(w, snap); err != nil {
				requestContext(c).Debug("clock stream closed", slog.String("error", err.Error()))
				return nil
			}
		}
	}
}

func writeEvent(w *echo.Response, snap timekeeper.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: clock\ndata: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// Healthz reports liveness.
// GET /healthz
func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
	})
}

func (s *APIV1Service) rateLimited(c echo.Context) error {
	return s.fail(c, clockerrors.RateLimitExceeded("too many time phrases, retry in a moment"))
}

// respond writes the snapshot on success or the mapped error.
func (s *APIV1Service) respond(c echo.Context) func(timekeeper.Snapshot, error) error {
	return func(snap timekeeper.Snapshot, err error) error {
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(http.StatusOK, snap)
	}
}

// fail maps err to a coded error response.
func (s *APIV1Service) fail(c echo.Context, err error) error {
	clockErr := toClockError(err)
	status := clockErr.Code.HTTPStatus()

	rc := requestContext(c)
	attrs := []slog.Attr{
		slog.String(observability.LogFieldErrorCode, string(clockErr.Code)),
		slog.Int(observability.LogFieldStatus, status),
	}
	if status >= http.StatusInternalServerError {
		rc.Error("request failed", err, attrs...)
	} else {
		rc.Debug("request rejected", append(attrs, slog.String("error", err.Error()))...)
	}

	resp := ErrorResponse{Code: clockErr.Code, Message: clockErr.Message}
	if clockErr.Cause != nil {
		resp.Details = clockErr.Cause.Error()
	}
	if clockErr.Code == clockerrors.ErrCodeRateLimitExceeded {
		c.Response().Header().Set(echo.HeaderRetryAfter, "1")
	}
	return c.JSON(status, resp)
}

// toClockError maps domain errors onto API error codes.
func toClockError(err error) *clockerrors.ClockError {
	var clockErr *clockerrors.ClockError
	switch {
	case errors.As(err, &clockErr):
		return clockErr
	case errors.Is(err, clock.ErrOutOfRange),
		errors.Is(err, clock.ErrUnknownField),
		errors.Is(err, clock.ErrInvalidFormat),
		errors.Is(err, clock.ErrUnknownStyle):
		return clockerrors.InvalidArgument("invalid time input", err)
	case errors.Is(err, aitime.ErrEmptyPhrase), errors.Is(err, aitime.ErrPhraseTooLong):
		return clockerrors.InvalidArgument("invalid time phrase", err)
	case errors.Is(err, timekeeper.ErrControlsHidden):
		return clockerrors.ControlsHidden(err)
	case errors.Is(err, aitime.ErrBusy):
		return clockerrors.ResolverBusy(err)
	case errors.Is(err, timekeeper.ErrClosed):
		return clockerrors.ServiceUnavailable("clock is shutting down", err)
	case errors.Is(err, context.DeadlineExceeded):
		return clockerrors.Timeout("time resolution timed out", err)
	default:
		return clockerrors.Internal(err)
	}
}
