package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/metrics"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

type fixture struct {
	stack   *stack.Manager
	expirer *stack.Expirer
	server  *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := 0
	m := stack.NewManager(stack.Config{
		Scheduler: stack.Immediate,
		NewID: func() string {
			n++
			return "t" + string(rune('0'+n))
		},
	}, logger)
	e := stack.NewExpirer(m)
	s := New(m, Config{Logger: logger, Expirer: e, StreamPing: time.Hour})
	t.Cleanup(func() {
		s.Close()
		e.Stop()
		_ = m.Close()
	})
	return &fixture{stack: m, expirer: e, server: s}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestShow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/toasts", `{"content":"hello","urgency":"critical","icon":"bell","hints":{"k":"v"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp ShowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "t1", resp.ID)

	fg, ok := f.stack.Snapshot().Foreground.Get()
	require.True(t, ok)
	assert.Equal(t, "hello", fg.Content)
	assert.Equal(t, model.UrgencyCritical, fg.Options.UrgencyOr(model.UrgencyLow))
	assert.Equal(t, "bell", fg.Options.IconOr(""))
	assert.Equal(t, "v", fg.Options.Hint("k"))
}

func TestShow_StructuredMessageAndExplicitID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/toasts", `{"id":"build","app_name":"ci","summary":"Build passed","body":"main"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"id":"build"}`, rec.Body.String())

	got, ok := f.stack.Get("build")
	require.True(t, ok)
	assert.Equal(t, model.Message{AppName: "ci", Summary: "Build passed", Body: "main"}, got.Content)
}

func TestShow_BadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"content":`},
		{"empty body", ``},
		{"no content", `{"icon":"x"}`},
		{"bad urgency", `{"content":"x","urgency":"extreme"}`},
		{"bad placement", `{"content":"x","placement":"left"}`},
		{"bad duration", `{"content":"x","duration":"soon"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/toasts", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
	assert.True(t, f.stack.Snapshot().Empty())
}

func TestShow_UnknownFieldsIgnored(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/toasts", `{"content":"x","colour":"red"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestShow_DurationExpires(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/toasts", `{"content":"brief","duration":"20ms"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	fg, _ := f.stack.Snapshot().Foreground.Get()
	assert.Equal(t, 20*time.Millisecond, *fg.Options.Duration)
	assert.Eventually(t, func() bool { return !f.stack.IsOpen("t1") }, time.Second, 5*time.Millisecond)
}

func TestShow_SupersedeWithoutDurationKeepsToastOpen(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/toasts", `{"content":"old","id":"same","duration":"30ms"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/v1/toasts", `{"content":"new","id":"same"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	time.Sleep(100 * time.Millisecond)

	fg, ok := f.stack.Snapshot().Foreground.Get()
	require.True(t, ok)
	assert.Equal(t, "new", fg.Content)
	assert.True(t, fg.Open)
	assert.True(t, f.stack.IsOpen("same"))
}

func TestUpdate_WithoutDurationKeepsTimer(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/toasts", `{"content":"brief","id":"a","duration":"30ms"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = f.do(t, http.MethodPatch, "/api/v1/toasts/a", `{"content":"still brief"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	assert.Eventually(t, func() bool { return !f.stack.IsOpen("a") }, time.Second, 5*time.Millisecond)
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	f.stack.Show("hello", &model.Options{ID: "a"})

	rec := f.do(t, http.MethodGet, "/api/v1/toasts/a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Toast
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, "hello", got.Content)
	assert.True(t, got.Open)

	rec = f.do(t, http.MethodGet, "/api/v1/toasts/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	f.stack.Show("hello", &model.Options{ID: "a", Icon: model.Ptr("bell")})

	rec := f.do(t, http.MethodPatch, "/api/v1/toasts/a", `{"type":"success"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	got, _ := f.stack.Get("a")
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, "bell", got.Options.IconOr(""))
	assert.Equal(t, "success", got.Options.TypeOr(""))

	rec = f.do(t, http.MethodPatch, "/api/v1/toasts/a", `{"content":"bye"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	got, _ = f.stack.Get("a")
	assert.Equal(t, "bye", got.Content)
}

func TestHideAndDestroy(t *testing.T) {
	f := newFixture(t)
	f.stack.Show("hello", &model.Options{ID: "a"})

	rec := f.do(t, http.MethodPost, "/api/v1/toasts/a/hide", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.False(t, f.stack.IsOpen("a"))
	_, tracked := f.stack.Get("a")
	assert.True(t, tracked)

	rec = f.do(t, http.MethodDelete, "/api/v1/toasts/a", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	_, tracked = f.stack.Get("a")
	assert.False(t, tracked)
}

func TestHideAll(t *testing.T) {
	f := newFixture(t)
	f.stack.Show("a", nil)
	f.stack.Show("b", nil)
	f.stack.SetUnfolded(true)

	rec := f.do(t, http.MethodPost, "/api/v1/toasts/hide-all", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	s := f.stack.Snapshot()
	assert.False(t, s.Unfolded)
	for _, toast := range s.Toasts() {
		assert.False(t, toast.Open)
	}
}

func TestStateVisibleUnfold(t *testing.T) {
	f := newFixture(t)
	f.stack.Show("a", nil)
	f.stack.Show("b", nil)

	rec := f.do(t, http.MethodPost, "/api/v1/unfold", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, f.stack.Snapshot().Unfolded)

	rec = f.do(t, http.MethodPost, "/api/v1/unfold", `{"unfolded":true}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, f.stack.Snapshot().Unfolded)

	rec = f.do(t, http.MethodPut, "/api/v1/visible", `{"visible":false}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var state struct {
		Foreground *model.Toast  `json:"foreground"`
		History    []model.Toast `json:"history"`
		Unfolded   bool          `json:"unfolded"`
		Visible    bool          `json:"visible"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.NotNil(t, state.Foreground)
	assert.Equal(t, "t2", state.Foreground.ID)
	require.Len(t, state.History, 1)
	assert.Equal(t, "t1", state.History[0].ID)
	assert.True(t, state.Unfolded)
	assert.False(t, state.Visible)
}

func TestHealthAndMetrics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := stack.NewManager(stack.Config{Scheduler: stack.Immediate}, logger)
	defer m.Close()

	reg := prometheus.NewRegistry()
	st := metrics.NewStack(m, metrics.WithRegistry(reg))
	defer st.Stop()
	s := New(m, Config{
		Logger:         logger,
		Metrics:        metrics.NewHTTP(metrics.WithRegistry(reg)),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	m.Show("a", nil)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `toastd_stack_events_total{kind="shown"} 1`)
	assert.Contains(t, body, "toastd_toasts_tracked 1")
	assert.Contains(t, body, `toastd_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestStream(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readState := func() stateFrame {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var s stateFrame
		require.NoError(t, conn.ReadJSON(&s))
		return s
	}

	initial := readState()
	assert.Nil(t, initial.Foreground)

	f.stack.Show("hello", &model.Options{ID: "a"})
	next := readState()
	require.NotNil(t, next.Foreground)
	assert.Equal(t, "a", next.Foreground.ID)
	assert.Equal(t, uint64(1), next.Version)
}

func TestStream_ClosedOnServerClose(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first stateFrame
	require.NoError(t, conn.ReadJSON(&first))

	f.server.Close()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}

func TestServe_StopsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.server.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

type stateFrame struct {
	Version    uint64       `json:"version"`
	Foreground *model.Toast `json:"foreground"`
}
