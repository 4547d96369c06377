package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
	"github.com/arlebowski/Tiny-Time-sub002/internal/trigger"
)

var testNow = time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)

type fakeReader struct {
	sched *models.PersistedSchedule
	err   error
}

func (f *fakeReader) Today(context.Context, time.Time) (*models.PersistedSchedule, error) {
	return f.sched, f.err
}

type fakeRebuilder struct {
	sched   *models.PersistedSchedule
	err     error
	reasons []string
}

func (f *fakeRebuilder) RebuildNow(_ context.Context, reason string) (*models.PersistedSchedule, error) {
	f.reasons = append(f.reasons, reason)
	return f.sched, f.err
}

type fakeFirer struct {
	kinds   []trigger.Kind
	reasons []string
}

func (f *fakeFirer) Fire(kind trigger.Kind, reason string) string {
	f.kinds = append(f.kinds, kind)
	f.reasons = append(f.reasons, reason)
	return "trigger-1"
}

type fixture struct {
	reader    *fakeReader
	rebuilder *fakeRebuilder
	firer     *fakeFirer
	router    *gin.Engine
	handler   *Handler
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{reader: &fakeReader{}, rebuilder: &fakeRebuilder{}, firer: &fakeFirer{}}
	f.handler = &Handler{
		Schedules: f.reader,
		Rebuilder: f.rebuilder,
		Triggers:  f.firer,
		Logger:    zap.NewNop(),
		Now:       func() time.Time { return testNow },
	}
	f.router = NewRouter(f.handler, zap.NewNop())
	return f
}

func (f *fixture) do(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var decoded map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func sample() *models.PersistedSchedule {
	return &models.PersistedSchedule{
		DateKey: "2024-03-12",
		Items:   []models.ScheduleEvent{{Type: models.EventFeed, Time: testNow.Add(time.Hour), PatternBased: true}},
	}
}

func TestGetToday(t *testing.T) {
	f := newFixture()
	f.reader.sched = sample()

	w, body := f.do(http.MethodGet, "/schedule/today", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	data := body["data"].(map[string]any)
	assert.Equal(t, "2024-03-12", data["dateKey"])
	items := data["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, float64(testNow.Add(time.Hour).UnixMilli()), items[0].(map[string]any)["timeMs"])
	assert.Equal(t, true, body["meta"].(map[string]any)["persisted"])
}

func TestGetToday_AbsentIsEmpty(t *testing.T) {
	f := newFixture()

	w, body := f.do(http.MethodGet, "/schedule/today", "")

	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "2024-03-12", data["dateKey"])
	assert.Empty(t, data["items"])
	assert.Equal(t, false, body["meta"].(map[string]any)["persisted"])
}

func TestGetToday_StoreError(t *testing.T) {
	f := newFixture()
	f.reader.err = errors.New("redis down")

	w, body := f.do(http.MethodGet, "/schedule/today", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, body["error"].(map[string]any)["message"], "redis down")
}

func TestPostRebuild(t *testing.T) {
	f := newFixture()
	f.rebuilder.sched = sample()

	w, _ := f.do(http.MethodPost, "/schedule/rebuild", "")
	assert.Equal(t, http.StatusOK, w.Code)

	f.rebuilder.sched = nil
	w, body := f.do(http.MethodPost, "/schedule/rebuild", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, true, body["meta"].(map[string]any)["skipped"])

	f.rebuilder.err = errors.New("boom")
	w, _ = f.do(http.MethodPost, "/schedule/rebuild", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, []string{"http", "http", "http"}, f.rebuilder.reasons)
}

func TestPostTrigger(t *testing.T) {
	f := newFixture()

	w, body := f.do(http.MethodPost, "/triggers", `{"kind":"input_logged","reason":"feeding saved"}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "trigger-1", body["data"].(map[string]any)["id"])
	assert.Equal(t, []trigger.Kind{trigger.KindInputLogged}, f.firer.kinds)
	assert.Equal(t, []string{"feeding saved"}, f.firer.reasons)

	w, _ = f.do(http.MethodPost, "/triggers", `{"kind":"focus"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "http:focus", f.firer.reasons[1])
}

func TestPostTrigger_Invalid(t *testing.T) {
	f := newFixture()

	for _, body := range []string{`{"kind":"blur"}`, `{}`, `not json`} {
		w, decoded := f.do(http.MethodPost, "/triggers", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.NotNil(t, decoded["error"], body)
	}
	assert.Empty(t, f.firer.kinds)
}

func TestHealth(t *testing.T) {
	f := newFixture()
	f.handler.Checks = map[string]HealthCheck{
		"redis": func(context.Context) error { return nil },
	}

	w, body := f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["data"].(map[string]any)["status"])

	f.handler.Checks["postgres"] = func(context.Context) error { return errors.New("dial tcp: refused") }
	w, body = f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", body["data"].(map[string]any)["status"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}
