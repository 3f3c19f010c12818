package v1

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/clockface/internal/profile"
	"github.com/hrygo/clockface/plugin/ai/aitime"
	clockerrors "github.com/hrygo/clockface/server/internal/errors"
	"github.com/hrygo/clockface/server/service/timekeeper"
)

type testAPI struct {
	echo     *echo.Echo
	service  *APIV1Service
	clock    *timekeeper.Service
	resolver *aitime.MockResolver
	fake     *clockwork.FakeClock
}

func newTestAPI(t *testing.T, configure func(p *profile.Profile)) *testAPI {
	t.Helper()
	p := profile.Default()
	p.Version = "test"
	if configure != nil {
		configure(p)
	}

	fake := clockwork.NewFakeClockAt(time.Date(2026, 10, 17, 14, 5, 30, 0, time.UTC))
	resolver := aitime.NewMockResolver()
	clock, err := timekeeper.NewService(resolver, timekeeper.Config{Clock: fake})
	require.NoError(t, err)
	t.Cleanup(clock.Close)

	api := NewAPIV1Service(p, clock)
	e := echo.New()
	api.RegisterRoutes(e)

	return &testAPI{echo: e, service: api, clock: clock, resolver: resolver, fake: fake}
}

func (a *testAPI) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestGetClock(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/api/v1/clock", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	snap := decode[timekeeper.Snapshot](t, rec)
	assert.Equal(t, "14:05:30", snap.Display)
	assert.True(t, snap.RealTime)
	assert.Equal(t, timekeeper.ModeInteractive, snap.Mode)
	assert.Equal(t, 2*30+5*0.5, snap.Angles.Hour)
}

func TestSetTime(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  clockerrors.ErrorCode
		wantTime string
	}{
		{"full", `{"hours": 7, "minutes": 45, "seconds": 12}`, http.StatusOK, "", "07:45:12"},
		{"seconds default", `{"hours": 23, "minutes": 0}`, http.StatusOK, "", "23:00:00"},
		{"missing minutes", `{"hours": 7}`, http.StatusBadRequest, clockerrors.ErrCodeInvalidArgument, ""},
		{"out of range", `{"hours": 24, "minutes": 0}`, http.StatusBadRequest, clockerrors.ErrCodeInvalidArgument, ""},
		{"malformed", `{"hours":`, http.StatusBadRequest, clockerrors.ErrCodeInvalidArgument, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, nil)
			rec := api.do(t, http.MethodPut, "/api/v1/clock/time", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decode[ErrorResponse](t, rec).Code)
				assert.True(t, api.clock.Snapshot().RealTime)
				return
			}
			snap := decode[timekeeper.Snapshot](t, rec)
			assert.Equal(t, tt.wantTime, snap.Display)
			assert.False(t, snap.RealTime)
		})
	}
}

func TestSetField(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPatch, "/api/v1/clock/time/minutes", `{"value": 59}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "14:59:30", decode[timekeeper.Snapshot](t, rec).Display)

	rec = api.do(t, http.MethodPatch, "/api/v1/clock/time/h", `{"value": 0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "00:59:30", decode[timekeeper.Snapshot](t, rec).Display)

	rec = api.do(t, http.MethodPatch, "/api/v1/clock/time/days", `{"value": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPatch, "/api/v1/clock/time/seconds", `{"value": 60}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPatch, "/api/v1/clock/time/seconds", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPauseResumeToggle(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/api/v1/clock/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[timekeeper.Snapshot](t, rec).RealTime)

	api.fake.Advance(time.Minute)
	rec = api.do(t, http.MethodPost, "/api/v1/clock/resume", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[timekeeper.Snapshot](t, rec)
	assert.True(t, snap.RealTime)
	assert.Equal(t, "14:06:30", snap.Display)

	rec = api.do(t, http.MethodPost, "/api/v1/clock/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, timekeeper.ModeManual, decode[timekeeper.Snapshot](t, rec).RunMode)
}

func TestResolvePhrase(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		api := newTestAPI(t, nil)
		api.resolver.SetAnswer("quarter past ten", aitime.Candidate{Hours: 10, Minutes: 15})

		rec := api.do(t, http.MethodPost, "/api/v1/clock/resolve", `{"phrase": "quarter past ten"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[ResolveResponse](t, rec)
		assert.True(t, resp.Found)
		assert.NotEmpty(t, resp.ResolveID)
		require.NotNil(t, resp.Resolution)
		assert.True(t, resp.Resolution.Applied)
		assert.Equal(t, "10:15:00", resp.Snapshot.Display)
		assert.False(t, resp.Snapshot.RealTime)
		assert.Equal(t, int64(1), api.service.Metrics.Snapshot().ResolveFound)
	})

	t.Run("not found leaves clock running", func(t *testing.T) {
		api := newTestAPI(t, nil)

		rec := api.do(t, http.MethodPost, "/api/v1/clock/resolve", `{"phrase": "what a lovely day"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[ResolveResponse](t, rec)
		assert.False(t, resp.Found)
		assert.True(t, resp.Snapshot.RealTime)
		assert.Equal(t, "14:05:30", resp.Snapshot.Display)
	})

	t.Run("empty phrase", func(t *testing.T) {
		api := newTestAPI(t, nil)

		rec := api.do(t, http.MethodPost, "/api/v1/clock/resolve", `{"phrase": "   "}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, clockerrors.ErrCodeInvalidArgument, decode[ErrorResponse](t, rec).Code)
		assert.Empty(t, api.resolver.Calls())
	})

	t.Run("busy", func(t *testing.T) {
		api := newTestAPI(t, nil)
		api.resolver.Gate = make(chan struct{})
		defer close(api.resolver.Gate)

		rec := api.do(t, http.MethodPost, "/api/v1/clock/resolve", `{"phrase": "noon", "async": true}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.True(t, decode[ResolveResponse](t, rec).Snapshot.Resolving)

		rec = api.do(t, http.MethodPost, "/api/v1/clock/resolve", `{"phrase": "midnight"}`)
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, clockerrors.ErrCodeResolverBusy, decode[ErrorResponse](t, rec).Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		api := newTestAPI(t, func(p *profile.Profile) {
			p.ResolveRate = 0.001
			p.ResolveBurst = 1
		})

		rec := api.do(t, http.MethodPost, "/api/v1/clock/resolve", `{"phrase": "noon"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = api.do(t, http.MethodPost, "/api/v1/clock/resolve", `{"phrase": "noon"}`)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get(echo.HeaderRetryAfter))
		assert.Equal(t, clockerrors.ErrCodeRateLimitExceeded, decode[ErrorResponse](t, rec).Code)
	})
}

func TestFocusMode(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/api/v1/clock/focus", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[timekeeper.Snapshot](t, rec)
	assert.Equal(t, timekeeper.ModeFocused, snap.Mode)
	assert.Equal(t, []timekeeper.Control{timekeeper.ControlExit}, snap.Controls)
	assert.True(t, snap.RealTime)

	rec = api.do(t, http.MethodPatch, "/api/v1/clock/time/hours", `{"value": 3}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, clockerrors.ErrCodeControlsHidden, decode[ErrorResponse](t, rec).Code)

	rec = api.do(t, http.MethodPost, "/api/v1/clock/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, timekeeper.ModeInteractive, decode[timekeeper.Snapshot](t, rec).Mode)

	api.do(t, http.MethodPost, "/api/v1/clock/focus", "")
	rec = api.do(t, http.MethodDelete, "/api/v1/clock/focus", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, timekeeper.ModeInteractive, decode[timekeeper.Snapshot](t, rec).Mode)
}

func TestSetStyle(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/api/v1/clock/style", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dark", decode[timekeeper.Snapshot](t, rec).Style.Name)

	rec = api.do(t, http.MethodPost, "/api/v1/clock/style", `{"style": "swiss"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "swiss", decode[timekeeper.Snapshot](t, rec).Style.Name)

	rec = api.do(t, http.MethodPost, "/api/v1/clock/style", `{"style": "neon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAngles(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/api/v1/clock/angles?time=10:10:30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[AnglesResponse](t, rec)
	assert.Equal(t, 305.0, resp.Angles.Hour)
	assert.Equal(t, 63.0, resp.Angles.Minute)
	assert.Equal(t, 180.0, resp.Angles.Second)

	rec = api.do(t, http.MethodGet, "/api/v1/clock/angles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "14:05:30", decode[AnglesResponse](t, rec).Display)

	rec = api.do(t, http.MethodGet, "/api/v1/clock/angles?time=noonish", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamClock(t *testing.T) {
	api := newTestAPI(t, nil)
	srv := httptest.NewServer(api.echo)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/clock/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get(echo.HeaderContentType))

	events := make(chan timekeeper.Snapshot, 4)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
				var snap timekeeper.Snapshot
				if json.Unmarshal([]byte(data), &snap) != nil {
					continue
				}
				select {
				case events <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	select {
	case first := <-events:
		assert.Equal(t, "14:05:30", first.Display)
	case <-ctx.Done():
		t.Fatal("no initial event")
	}

	_, err = api.clock.SetField("hours", 8)
	require.NoError(t, err)

	select {
	case snap := <-events:
		assert.Equal(t, "08:05:30", snap.Display)
	case <-ctx.Done():
		t.Fatal("no event after edit")
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", decode[map[string]string](t, rec)["version"])

	api.do(t, http.MethodGet, "/api/v1/clock", "")
	api.do(t, http.MethodPut, "/api/v1/clock/time", `{"hours": 99, "minutes": 0}`)

	rec = api.do(t, http.MethodGet, "/api/v1/system/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[MetricsResponse](t, rec)
	assert.Equal(t, int64(2), resp.RequestTotal)
	assert.Equal(t, int64(1), resp.RequestFailed)
	assert.Equal(t, 50.0, resp.SuccessRate)
}

func TestResolvePhrase_AsyncOutcomesAreCounted(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		api := newTestAPI(t, nil)
		api.resolver.SetAnswer("noon", aitime.Candidate{Hours: 12})

		rec := api.do(t, http.MethodPost, "/api/v1/clock/resolve", `{"phrase": "noon", "async": true}`)
		require.Equal(t, http.StatusAccepted, rec.Code)

		require.Eventually(t, func() bool {
			return api.service.Metrics.Snapshot().ResolveFound == 1
		}, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, "12:00:00", api.clock.Snapshot().Display)
		assert.Zero(t, api.service.Metrics.Snapshot().ResolveStale)
	})

	t.Run("stale", func(t *testing.T) {
		api := newTestAPI(t, nil)
		api.resolver.SetAnswer("noon", aitime.Candidate{Hours: 12})
		api.resolver.Gate = make(chan struct{})

		rec := api.do(t, http.MethodPost, "/api/v1/clock/resolve", `{"phrase": "noon", "async": true}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
		rec = api.do(t, http.MethodPost, "/api/v1/clock/resume", "")
		require.Equal(t, http.StatusOK, rec.Code)
		close(api.resolver.Gate)

		require.Eventually(t, func() bool {
			return api.service.Metrics.Snapshot().ResolveStale == 1
		}, 2*time.Second, 5*time.Millisecond)
		assert.True(t, api.clock.Snapshot().RealTime)

		rec = api.do(t, http.MethodGet, "/api/v1/system/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(1), decode[MetricsResponse](t, rec).ResolveStale)
	})
}

func TestStreamClock_EndsOnCloseStreams(t *testing.T) {
	api := newTestAPI(t, nil)
	srv := httptest.NewServer(api.echo)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/clock/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	ended := make(chan struct{})
	go func() {
		defer close(ended)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
		}
	}()

	api.service.CloseStreams()
	api.service.CloseStreams()

	select {
	case <-ended:
	case <-ctx.Done():
		t.Fatal("stream still open after CloseStreams")
	}
}
