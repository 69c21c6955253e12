package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWaitReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if err := WaitReachable(context.Background(), server.URL, time.Second); err != nil {
		t.Fatalf("WaitReachable() error = %v", err)
	}
}

func TestWaitReachable_Unhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if err := WaitReachable(context.Background(), server.URL, time.Second); err == nil {
		t.Fatal("expected error for unhealthy backend")
	}
}
