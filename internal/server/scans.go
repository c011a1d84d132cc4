package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/onionwatch/onionwatch/internal/database"
	"github.com/onionwatch/onionwatch/internal/engine"
	"github.com/onionwatch/onionwatch/internal/model"
	"github.com/onionwatch/onionwatch/internal/tor"
)

// createScanRequest is the body of POST /api/scans.
type createScanRequest struct {
	Name       string `json:"name"`
	Target     string `json:"target"`
	ProxyHTTP  string `json:"proxy_http"`
	ProxyHTTPS string `json:"proxy_https"`
}

// handleCreateScan creates a collection job and returns its snapshot. The
// response is always a running job; completion is observed via GET.
func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	var req createScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scan, err := s.engine.CreateScan(r.Context(), engine.CreateScanRequest{
		Name:   req.Name,
		Target: req.Target,
		Proxy:  tor.ProxyConfig{HTTP: req.ProxyHTTP, HTTPS: req.ProxyHTTPS},
	})
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrEmptyName),
			errors.Is(err, engine.ErrEmptyTarget),
			errors.Is(err, tor.ErrNoProxyConfigured),
			errors.Is(err, tor.ErrInvalidProxyEndpoint):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("scan creation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create scan")
		}
		return
	}

	writeJSON(w, http.StatusCreated, newScanSnapshot(scan))
}

// handleListScans lists scans, optionally filtered by ?name= substring and
// ?status= exact match. Filters compose with AND.
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	filter := database.ScanFilter{
		NameContains: r.URL.Query().Get("name"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := model.Status(raw)
		if !status.IsValid() {
			writeError(w, http.StatusBadRequest, "unknown status: "+raw)
			return
		}
		filter.Status = status
	}

	scans, err := s.engine.ListScans(r.Context(), filter)
	if err != nil {
		s.logger.Error("scan listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list scans")
		return
	}

	snaps := make([]scanSnapshot, 0, len(scans))
	for i := range scans {
		snaps = append(snaps, newScanSnapshot(&scans[i]))
	}
	writeJSON(w, http.StatusOK, snaps)
}

// handleGetScan returns one scan snapshot or 404.
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scan id")
		return
	}

	scan, err := s.engine.GetScan(r.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrScanNotFound) {
			writeError(w, http.StatusNotFound, "scan not found")
			return
		}
		s.logger.Error("scan lookup failed", "scan_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load scan")
		return
	}

	writeJSON(w, http.StatusOK, newScanSnapshot(scan))
}

// handleDeleteScans removes every scan and report.
func (s *Server) handleDeleteScans(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteAllScans(r.Context()); err != nil {
		s.logger.Error("delete-all failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete scans")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// testConnectionRequest is the body of POST /api/scans/test-connection.
type testConnectionRequest struct {
	ProxyHTTP  string `json:"proxy_http"`
	ProxyHTTPS string `json:"proxy_https"`
}

// handleTestConnection probes the given proxy endpoints synchronously. It
// is the one network-touching endpoint outside the job lifecycle, kept
// synchronous because the probe is bounded by a short timeout.
func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var req testConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := tor.ProxyConfig{HTTP: req.ProxyHTTP, HTTPS: req.ProxyHTTPS}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	client, err := tor.NewClient(cfg, 10*time.Second)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
		writeError(w, http.StatusBadRequest, status.Error().Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
