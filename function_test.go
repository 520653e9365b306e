package cloudfunctions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/pep299/article-bias-analyzer/internal/application"
)

func TestMain(m *testing.M) {
	// Set up test environment variables
	os.Setenv("STORAGE_TYPE", "memory")
	os.Setenv("CACHE_TYPE", "memory")

	code := m.Run()

	os.Unsetenv("STORAGE_TYPE")
	os.Unsetenv("CACHE_TYPE")

	os.Exit(code)
}

func TestAnalyzeBiasHealthCheck(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()

	AnalyzeBias(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["status"] != "success" {
		t.Errorf("Expected status 'success', got %v", response["status"])
	}
}

func TestAnalyzeBiasWithoutKey(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/analyze",
		strings.NewReader(`{"article":{"title":"T","text":"body"}}`))
	w := httptest.NewRecorder()

	AnalyzeBias(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if !strings.Contains(w.Body.String(), "missing_or_invalid_credential") {
		t.Errorf("Expected missing credential kind, got %s", w.Body.String())
	}
}

func TestAnalyzeBiasUnknownRoute(t *testing.T) {
	req := httptest.NewRequest("GET", "/nope", nil)
	w := httptest.NewRecorder()

	AnalyzeBias(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestAnalyzeBiasRetriesFailedStartup(t *testing.T) {
	handlerMu.Lock()
	saved := handler
	handler = nil
	handlerMu.Unlock()

	realBuild := buildApp
	t.Cleanup(func() {
		buildApp = realBuild
		handlerMu.Lock()
		handler = saved
		handlerMu.Unlock()
	})

	attempts := 0
	buildApp = func(ctx context.Context) (*application.Application, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("storage not ready")
		}
		return realBuild(ctx)
	}

	w := httptest.NewRecorder()
	AnalyzeBias(w, httptest.NewRequest("GET", "/api/v1/health", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	w = httptest.NewRecorder()
	AnalyzeBias(w, httptest.NewRequest("GET", "/api/v1/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d after retry, got %d", http.StatusOK, w.Code)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 build attempts, got %d", attempts)
	}
}
