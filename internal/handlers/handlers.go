package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pep299/article-bias-analyzer/internal/credential"
	"github.com/pep299/article-bias-analyzer/internal/model"
	"github.com/pep299/article-bias-analyzer/internal/render"
	"github.com/pep299/article-bias-analyzer/internal/response"
)

// MemoryOnlyNotice is returned when a saved key will not survive a restart
const MemoryOnlyNotice = "Note: API key saved for this session only. It will be lost when the server restarts."

const maxBodyBytes = 1 << 20

// saveKeyRequest is the body of PUT /key
type saveKeyRequest struct {
	APIKey string `json:"api_key"`
}

// analyzeRequest is the body of POST /analyze. Either URL or Article is set.
type analyzeRequest struct {
	URL     string         `json:"url"`
	Article *model.Article `json:"article"`
}

// analyzeResponse is the display-ready analysis
type analyzeResponse struct {
	model.Payload
	Bar   barData      `json:"bar"`
	Chart render.Chart `json:"chart"`
	SVG   string       `json:"chart_svg"`
}

// barData is the proportional bar shown when no chart can be drawn
type barData struct {
	LeftPercent  int `json:"left_percent"`
	RightPercent int `json:"right_percent"`
}

// healthHandler provides health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := s.credentials.Status()
	_ = response.WriteSuccess(w, "ok", map[string]interface{}{
		"timestamp":  time.Now().Unix(),
		"version":    Version,
		"key_usable": status.Usable,
		"durable":    status.Durable,
	})
}

// keyStatusHandler shows the masked key and its state
func (s *Server) keyStatusHandler(w http.ResponseWriter, r *http.Request) {
	_ = response.WriteSuccess(w, "", s.credentials.Status())
}

// saveKeyHandler validates and stores a key
func (s *Server) saveKeyHandler(w http.ResponseWriter, r *http.Request) {
	var req saveKeyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		_ = response.WriteBadRequest(w, "Invalid request body")
		return
	}

	result, err := s.credentials.Save(r.Context(), req.APIKey)
	if err != nil {
		_ = response.WriteAppError(w, err)
		return
	}

	message := "API key saved and verified successfully!"
	if !result.Durable {
		message += " " + MemoryOnlyNotice
	}
	_ = response.WriteSuccess(w, message, result)
}

// clearKeyHandler removes the stored key. The caller confirms with
// ?confirm=true; without it nothing changes.
func (s *Server) clearKeyHandler(w http.ResponseWriter, r *http.Request) {
	confirmed := strings.EqualFold(r.URL.Query().Get("confirm"), "true")

	err := s.credentials.Clear(r.Context(), func(string) bool { return confirmed })
	if errors.Is(err, credential.ErrNotConfirmed) {
		_ = response.WriteConflict(w, credential.ClearQuestion+" Repeat the request with ?confirm=true.")
		return
	}
	if err != nil {
		_ = response.WriteAppError(w, err)
		return
	}

	_ = response.WriteSuccess(w, "API key cleared", s.credentials.Status())
}

// analyzeHandler scores an article given inline or by URL. With
// ?refresh=true any cached estimate is dropped first.
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		_ = response.WriteBadRequest(w, "Invalid request body")
		return
	}
	refresh := strings.EqualFold(r.URL.Query().Get("refresh"), "true")
	pageURL := strings.TrimSpace(req.URL)

	var (
		payload *model.Payload
		err     error
	)
	switch {
	case req.Article != nil:
		if refresh {
			err = s.analyzer.ForgetArticle(r.Context(), *req.Article)
		}
		if err == nil {
			payload, err = s.analyzer.Analyze(r.Context(), *req.Article)
		}
	case pageURL != "":
		if refresh {
			err = s.analyzer.ForgetURL(r.Context(), pageURL)
		}
		if err == nil {
			payload, err = s.analyzer.AnalyzeURL(r.Context(), pageURL)
		}
	default:
		_ = response.WriteBadRequest(w, "Either url or article is required")
		return
	}
	if err != nil {
		s.logger.Info("analysis failed", zap.String("url", req.URL), zap.Error(err))
		_ = response.WriteAppError(w, err)
		return
	}

	barLeft, barRight := payload.Left, payload.Right
	if barLeft+barRight == 0 {
		barLeft, barRight = 50, 50
	}

	message := "analysis complete"
	if payload.Degenerate {
		message = "the model reply contained no percentages"
	}

	_ = response.WriteSuccess(w, message, analyzeResponse{
		Payload: *payload,
		Bar:     barData{LeftPercent: barLeft, RightPercent: barRight},
		Chart:   render.ChartData(*payload),
		SVG:     render.DonutSVG(payload.Left, payload.Right),
	})
}

// cacheStatsHandler returns cache statistics
func (s *Server) cacheStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cacheManager.GetStats(r.Context())
	if err != nil {
		_ = response.WriteInternalError(w, fmt.Sprintf("Error getting cache stats: %v", err))
		return
	}

	_ = response.WriteSuccess(w, "", stats)
}

// cacheClearHandler clears the cache
func (s *Server) cacheClearHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.cacheManager.Clear(r.Context()); err != nil {
		_ = response.WriteInternalError(w, fmt.Sprintf("Error clearing cache: %v", err))
		return
	}

	_ = response.WriteSuccess(w, "Cache cleared successfully", nil)
}
