package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthz(t *testing.T) {
	tests := []struct {
		name       string
		checker    Checker
		wantCode   int
		wantStatus string
	}{
		{"no checker", nil, http.StatusOK, "ok"},
		{"healthy", CheckerFunc(func(context.Context, time.Duration) error { return nil }), http.StatusOK, "ok"},
		{"down", CheckerFunc(func(context.Context, time.Duration) error { return errors.New("db gone") }), http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewRouter(tt.checker, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var body healthResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing default collectors")
	}
}

func TestWatchHealth(t *testing.T) {
	_, hs := NewGRPCServer()
	ctx, cancel := context.WithCancel(context.Background())
	checked := make(chan struct{}, 1)
	checker := CheckerFunc(func(context.Context, time.Duration) error {
		select {
		case checked <- struct{}{}:
		default:
		}
		return errors.New("down")
	})

	done := make(chan struct{})
	go func() {
		WatchHealth(ctx, hs, checker, time.Hour, nil)
		close(done)
	}()
	<-checked

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		if err == nil && resp.Status == healthpb.HealthCheckResponse_NOT_SERVING {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("status never became NOT_SERVING: %v %v", resp, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WatchHealth did not return after cancel")
	}
}
