package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/onionwatch/onionwatch/internal/classifier"
	"github.com/onionwatch/onionwatch/internal/engine"
)

// createReportRequest is the body of POST /api/reports. The API key is
// supplied per request and never persisted or logged.
type createReportRequest struct {
	ScanID      int64   `json:"scan_id"`
	APIKey      string  `json:"api_key"`
	ModelName   string  `json:"model_name"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// handleCreateReport creates a classification job for an existing scan.
// An unknown scan id is a synchronous 404: no report record is created.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.APIKey == "" || req.ModelName == "" {
		writeError(w, http.StatusBadRequest, "api_key and model_name are required")
		return
	}

	report, err := s.engine.CreateReport(r.Context(), engine.CreateReportRequest{
		ScanID: req.ScanID,
		Params: classifier.Params{
			APIKey:      req.APIKey,
			Model:       req.ModelName,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		},
	})
	if err != nil {
		if errors.Is(err, engine.ErrScanNotFound) {
			writeError(w, http.StatusNotFound, "scan not found")
			return
		}
		s.logger.Error("report creation failed", "scan_id", req.ScanID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create report")
		return
	}

	writeJSON(w, http.StatusCreated, newReportSnapshot(report))
}

// handleListReports lists all reports in creation order.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.engine.ListReports(r.Context())
	if err != nil {
		s.logger.Error("report listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	snaps := make([]reportSnapshot, 0, len(reports))
	for i := range reports {
		snaps = append(snaps, newReportSnapshot(&reports[i]))
	}
	writeJSON(w, http.StatusOK, snaps)
}

// handleGetReport returns one report snapshot or 404.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	report, err := s.engine.GetReport(r.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrReportNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		s.logger.Error("report lookup failed", "report_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	writeJSON(w, http.StatusOK, newReportSnapshot(report))
}
