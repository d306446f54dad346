package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/On-Jun9/ShutterOrient/internal/index"
	"github.com/On-Jun9/ShutterOrient/internal/orientation"
	"github.com/On-Jun9/ShutterOrient/internal/pipeline"
	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type APIErrorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIErrorResponse{Message: message})
}

func writeValidationError(w http.ResponseWriter, field, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(ValidationError{
		Field:   field,
		Message: message,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"version": s.version})
}

func (s *Server) handleOrientation(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		writeValidationError(w, "ref", "ref is required")
		return
	}

	res, err := s.pipeline.Resolve(r.Context(), types.ImageRef(ref))
	if err != nil {
		if errors.Is(err, orientation.ErrLocatorFailure) {
			writeAPIError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, res)
}

type IndexRequest struct {
	Ref types.ImageRef `json:"ref"`
	Raw int            `json:"raw"`
}

func (s *Server) handleGetIndex(w http.ResponseWriter, r *http.Request) {
	store := s.pipeline.Index()

	if ref := r.URL.Query().Get("ref"); ref != "" {
		raw, ok, err := store.Lookup(types.ImageRef(ref))
		if err != nil {
			writeAPIError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			writeAPIError(w, http.StatusNotFound, fmt.Sprintf("no index entry for %q", ref))
			return
		}
		writeJSON(w, IndexRequest{Ref: types.ImageRef(ref), Raw: raw})
		return
	}

	entries, err := store.List()
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []types.IndexEntry{}
	}
	writeJSON(w, entries)
}

func (s *Server) handleSetIndex(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.pipeline.Index().Set(req.Ref, req.Raw); err != nil {
		var validationErr *index.ValidationError
		if errors.As(err, &validationErr) {
			writeValidationError(w, validationErr.Field, validationErr.Message)
			return
		}

		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		writeValidationError(w, "ref", "ref is required")
		return
	}

	if err := s.pipeline.Index().Delete(types.ImageRef(ref)); err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, map[string]string{"status": "ok"})
}

type ScanRequest struct {
	Root string `json:"root"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if !s.runMu.TryLock() {
		writeAPIError(w, http.StatusConflict, "scan already running")
		return
	}

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.runMu.Unlock()
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Root == "" {
		s.runMu.Unlock()
		writeValidationError(w, "root", "root is required")
		return
	}

	writeJSON(w, map[string]string{"status": "started"})

	go s.runScan(req.Root)
}

func (s *Server) runScan(root string) {
	defer s.runMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			s.pipeline.Logger().Error("scan panicked", fmt.Errorf("%v", r))
			s.broadcastProgress(pipeline.ProgressUpdate{Type: "error", Error: fmt.Sprintf("Internal Server Error: %v", r)})
		}
	}()

	s.pipeline.SetProgressCallback(s.broadcastProgress)
	defer s.pipeline.SetProgressCallback(nil)

	// Run already reports scan failures through the progress callback.
	if _, _, err := s.pipeline.Run(context.Background(), root); err != nil {
		s.pipeline.Logger().Error("scan failed", err)
	}
}

func (s *Server) broadcastJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.hub.broadcast <- data
}

func (s *Server) broadcastProgress(update pipeline.ProgressUpdate) {
	s.broadcastJSON(update)
}
