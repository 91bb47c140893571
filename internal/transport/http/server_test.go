package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpumon/internal/config"
	"cpumon/internal/core/auth"
	"cpumon/internal/core/monitor"
	"cpumon/internal/domain"
	"cpumon/internal/logger"
)

type staticUsage []domain.UsageRecord

func (s staticUsage) Latest() []domain.UsageRecord { return s }

type fakeAlerts struct {
	records []domain.UsageRecord
	limit   int64
	err     error
}

func (f *fakeAlerts) Recent(ctx context.Context, limit int64) ([]domain.UsageRecord, error) {
	f.limit = limit
	return f.records, f.err
}

func newTestServer(t *testing.T, cfg *config.Config, alerts AlertLog) (*Server, *monitor.ThresholdStore) {
	t.Helper()

	store, err := monitor.NewThresholdStore(4)
	require.NoError(t, err)

	if cfg == nil {
		cfg = &config.Config{}
	}

	usage := staticUsage{{CPU: 0, Percent: 12}, {CPU: 4, Average: true, Percent: 7}}
	return NewServer(cfg, store, usage, alerts, nil, logger.NewNop()), store
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestReadThresholds(t *testing.T) {
	s, store := newTestServer(t, nil, nil)
	store.Set(4, 80)
	full := store.Render()

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/cpu_threshold", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, full, rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, len(full), mustAtoi(t, rec.Header().Get("X-Next-Offset")))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/cpu_threshold?offset=10", nil))
	assert.Equal(t, full[10:], rec.Body.String())

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/cpu_threshold?offset=100000", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "100000", rec.Header().Get("X-Next-Offset"))
}

func TestReadThresholdsBadOffset(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	for _, q := range []string{"abc", "-1"} {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/cpu_threshold?offset="+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestWriteThresholds(t *testing.T) {
	s, store := newTestServer(t, nil, nil)

	tests := []struct {
		name   string
		method string
		body   string
		id     int
		want   uint64
	}{
		{"put applies", http.MethodPut, "2 50", 2, 50},
		{"post applies", http.MethodPost, "4 90\n", 4, 90},
		{"out of range ignored", http.MethodPut, "1 150", 1, 0},
		{"garbage ignored", http.MethodPut, "hello", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, httptest.NewRequest(tt.method, "/cpu_threshold", strings.NewReader(tt.body)))
			require.Equal(t, http.StatusOK, rec.Code)

			var res struct {
				Message string         `json:"message"`
				Data    map[string]int `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.Equal(t, "accepted", res.Message)
			assert.Equal(t, len(tt.body), res.Data["bytes"])
			assert.Equal(t, tt.want, store.Get(tt.id))
		})
	}
}

func TestWriteThresholdsReadsAtMostMaxWriteSize(t *testing.T) {
	s, store := newTestServer(t, nil, nil)

	body := strings.Repeat(" ", monitor.MaxWriteSize) + "1 60"
	rec := serve(s, httptest.NewRequest(http.MethodPut, "/cpu_threshold", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bytes":2048`)
	assert.Equal(t, uint64(0), store.Get(1))
}

func TestWriteThresholdsRequiresToken(t *testing.T) {
	cfg := &config.Config{ControlSecret: "s3cret"}
	s, store := newTestServer(t, cfg, nil)

	rec := serve(s, httptest.NewRequest(http.MethodPut, "/cpu_threshold", strings.NewReader("1 40")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bad := httptest.NewRequest(http.MethodPut, "/cpu_threshold", strings.NewReader("1 40"))
	bad.Header.Set("Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, serve(s, bad).Code)
	assert.Equal(t, uint64(0), store.Get(1))

	token, err := auth.NewTokens("s3cret").Issue("test", time.Minute)
	require.NoError(t, err)

	good := httptest.NewRequest(http.MethodPut, "/cpu_threshold", strings.NewReader("1 40"))
	good.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, serve(s, good).Code)
	assert.Equal(t, uint64(40), store.Get(1))

	// Reads stay open.
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/cpu_threshold", nil)).Code)
}

func TestUsage(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/usage", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Data []domain.UsageRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Data, 2)
	assert.True(t, res.Data[1].Average)
	assert.Equal(t, uint64(12), res.Data[0].Percent)
}

func TestUsageEmptyBeforeFirstTick(t *testing.T) {
	store, err := monitor.NewThresholdStore(1)
	require.NoError(t, err)
	s := NewServer(&config.Config{}, store, staticUsage(nil), nil, nil, logger.NewNop())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/usage", nil))
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestAlerts(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s, _ := newTestServer(t, nil, nil)
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/alerts", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("default limit", func(t *testing.T) {
		alerts := &fakeAlerts{records: []domain.UsageRecord{{CPU: 1, ThresholdExceeded: true}}}
		s, _ := newTestServer(t, nil, alerts)

		rec := serve(s, httptest.NewRequest(http.MethodGet, "/alerts", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(defaultAlertLimit), alerts.limit)
		assert.Contains(t, rec.Body.String(), `"threshold_exceeded":true`)
	})

	t.Run("explicit limit", func(t *testing.T) {
		alerts := &fakeAlerts{}
		s, _ := newTestServer(t, nil, alerts)

		serve(s, httptest.NewRequest(http.MethodGet, "/alerts?limit=5", nil))
		assert.Equal(t, int64(5), alerts.limit)
	})

	t.Run("invalid limit", func(t *testing.T) {
		s, _ := newTestServer(t, nil, &fakeAlerts{})

		for _, q := range []string{"0", "5000", "x"} {
			rec := serve(s, httptest.NewRequest(http.MethodGet, "/alerts?limit="+q, nil))
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, q)
		}
	})

	t.Run("backend error", func(t *testing.T) {
		s, _ := newTestServer(t, nil, &fakeAlerts{err: errors.New("down")})
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/alerts", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, &config.Config{AllowedOrigins: []string{"http://ui.example"}}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/cpu_threshold", nil)
	req.Header.Set("Origin", "http://ui.example")
	rec := serve(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://ui.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	assert.Empty(t, serve(s, req).Header().Get("Access-Control-Allow-Origin"))
}

func TestStartShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, &config.Config{Address: "127.0.0.1:0"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not stop")
	}
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()

	var n int
	_, err := fmt.Sscan(s, &n)
	require.NoError(t, err)
	return n
}
