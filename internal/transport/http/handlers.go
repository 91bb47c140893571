package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"cpumon/internal/core/monitor"
	"cpumon/internal/domain"
)

const (
	thresholdPageSize = 4096
	defaultAlertLimit = 50
)

type pageQuery struct {
	Offset int64 `validate:"gte=0"`
}

type alertsQuery struct {
	Limit int64 `validate:"gte=1,lte=1000"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

// handleReadThresholds returns one page of the rendered table starting at
// ?offset. X-Next-Offset carries the cursor for the next page.
func (s *Server) handleReadThresholds(w http.ResponseWriter, r *http.Request) {
	q := pageQuery{}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		off, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, &Response{Message: "invalid offset"})
			return
		}
		q.Offset = off
	}
	if errs := ValidateStruct(&q); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, &Response{Message: "invalid offset", Errors: errs})
		return
	}

	buf := make([]byte, thresholdPageSize)
	n, err := s.thresholds.ReadAt(buf, q.Offset)
	if err != nil && !errors.Is(err, io.EOF) {
		s.log.Error("http: read thresholds failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, &Response{Message: "failed to read thresholds"})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Next-Offset", strconv.FormatInt(q.Offset+int64(n), 10))
	w.WriteHeader(http.StatusOK)
	w.Write(buf[:n])
}

// handleWriteThresholds hands the body to the store. Rejected input is not
// an error: the response only reports how many bytes were consumed.
func (s *Server) handleWriteThresholds(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, monitor.MaxWriteSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, &Response{Message: "failed to read body"})
		return
	}

	n, _ := s.thresholds.Write(body)
	s.log.Debug("http: threshold write", "bytes", n)

	writeJSON(w, http.StatusOK, &Response{
		Message: "accepted",
		Data:    map[string]int{"bytes": n},
	})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	records := s.usage.Latest()
	if records == nil {
		records = []domain.UsageRecord{}
	}

	writeJSON(w, http.StatusOK, &Response{Data: records})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		writeJSON(w, http.StatusNotFound, &Response{Message: "alert log disabled"})
		return
	}

	q := alertsQuery{Limit: defaultAlertLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeValidationError(w, map[string]string{"limit": "The limit must be an integer."})
			return
		}
		q.Limit = limit
	}
	if errs := ValidateStruct(&q); len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	records, err := s.alerts.Recent(r.Context(), q.Limit)
	if err != nil {
		s.log.Error("http: read alert log failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, &Response{Message: "failed to read alerts"})
		return
	}

	writeJSON(w, http.StatusOK, &Response{Data: records})
}
