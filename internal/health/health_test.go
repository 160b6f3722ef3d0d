package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestRoot(t *testing.T) {
	t.Parallel()

	srv := New(":0", nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Body, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pinger   Pinger
		wantCode int
		want     string
	}{
		{name: "no pinger", wantCode: http.StatusOK, want: "ok"},
		{
			name:     "healthy store",
			pinger:   pingerFunc(func(context.Context) error { return nil }),
			wantCode: http.StatusOK,
			want:     "ok",
		},
		{
			name:     "store down",
			pinger:   pingerFunc(func(context.Context) error { return errors.New("database is closed") }),
			wantCode: http.StatusServiceUnavailable,
			want:     "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := New(":0", tt.pinger, nil)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			require.Equal(t, tt.wantCode, rec.Code)
			var got Status
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	srv := New(":0", nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartStopsOnCancel(t *testing.T) {
	t.Parallel()

	srv := New("127.0.0.1:0", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
