package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trpdata/salesloader/internal/logging"
	"github.com/trpdata/salesloader/internal/source"
	"github.com/trpdata/salesloader/internal/store"
)

const defaultListLimit = 100

// handleHealthCheck is the unauthenticated probe for load balancers.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "trp-api",
	})
}

// handleHealth is the authenticated health endpoint; it proves the sales
// table itself is reachable, not just the connection.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.RowCount(r.Context()); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, r, fmt.Errorf("invalid limit %q", raw), http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var params store.SalesRecordParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.respondError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if err := validateCreate(params); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	rec, err := s.store.Insert(r.Context(), params)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	var params store.SalesRecordParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.respondError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if err := validateDate(params.Date); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	rec, err := s.store.Update(r.Context(), id, params)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.store.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload ingests an uploaded spreadsheet into the sales table.
// The whole file loads in one transaction; the response is the run
// report with the resolved column mapping and row counts.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Ingest.MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	sheet := r.FormValue("sheet")
	if sheet == "" {
		sheet = s.cfg.Ingest.Sheet
	}

	table, err := source.Read(file, header.Filename, sheet)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Ingest.Timeout)
	defer cancel()

	logger := logging.WithFields(r.Context(), "file", header.Filename, "rows", len(table.Rows))
	logger.Info("ingestion started")

	report, err := s.ingestor.Run(ctx, table.Headers, table.Rows)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	logger.Info("ingestion completed", "run_id", report.RunID, "loaded", report.Loaded)
	writeJSON(w, http.StatusOK, report)
}

func recordID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid record id %q", raw)
	}
	return id, nil
}

// validateCreate enforces the minimum fields a hand-entered record
// needs: outlet, date, category, and quantity.
func validateCreate(p store.SalesRecordParams) error {
	if p.Outlet == nil || *p.Outlet == "" {
		return fmt.Errorf("outlet is required")
	}
	if p.Date == nil {
		return fmt.Errorf("date is required")
	}
	if p.Category == nil || *p.Category == "" {
		return fmt.Errorf("category is required")
	}
	if p.Quantity == nil {
		return fmt.Errorf("quantity is required")
	}
	return validateDate(p.Date)
}

func validateDate(date *string) error {
	if date == nil {
		return nil
	}
	if _, err := time.Parse("2006-01-02", *date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD")
	}
	return nil
}
