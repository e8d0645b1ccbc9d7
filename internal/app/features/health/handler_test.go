package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/dalemusser/hackhub/internal/app/features/health"
	"github.com/dalemusser/hackhub/internal/testutil"
)

func TestServe_DatabaseConnected(t *testing.T) {
	// Set up a test database to get a connected client
	db := testutil.SetupTestDB(t)
	client := db.Client()
	handler := health.NewHandler(client, zap.NewNop())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	handler.Serve(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", contentType, "application/json")
	}

	var response struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if response.Status != "ok" {
		t.Errorf("status: got %q, want %q", response.Status, "ok")
	}
	if response.Database != "connected" {
		t.Errorf("database: got %q, want %q", response.Database, "connected")
	}
}

func TestLive_NoDatabase(t *testing.T) {
	// Liveness must answer even with no usable Mongo client.
	handler := health.NewHandler(nil, zap.NewNop())

	req := httptest.NewRequest("GET", "/health/live", nil)
	rec := httptest.NewRecorder()

	handler.Live(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("status: got %q, want %q", response.Status, "ok")
	}
	if response.Database != "skipped" {
		t.Errorf("database: got %q, want %q", response.Database, "skipped")
	}
}
