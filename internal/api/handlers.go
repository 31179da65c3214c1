package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"stationhours/internal/availability"
	"stationhours/internal/model"
	"stationhours/internal/report"

	"github.com/go-chi/chi/v5"
)

// MaxReportDays is the longest range GET /report.xlsx accepts.
const MaxReportDays = 31

// StationsResponse is the response for GET /api/v1/stations.
type StationsResponse struct {
	Stations []model.Station `json:"stations"`
}

// ScheduleRequest is the body of PUT /api/v1/stations/{id}/schedule.
type ScheduleRequest struct {
	Rules []availability.WeekdayRule `json:"rules"`
}

// ScheduleResponse carries a normalized weekly schedule.
type ScheduleResponse struct {
	StationID int64                      `json:"station_id"`
	Rules     []availability.WeekdayRule `json:"rules"`
}

// OverrideRequest is the body of PUT /api/v1/stations/{id}/override.
type OverrideRequest struct {
	Mode  string     `json:"mode"`
	Until *time.Time `json:"until,omitempty"`
}

// handleListStations returns stations; ?active=true limits to active ones.
// GET /api/v1/stations
func (s *HTTPServer) handleListStations(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))

	stations, err := s.svc.ListStations(r.Context(), activeOnly)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if stations == nil {
		stations = []model.Station{}
	}
	writeJSON(w, http.StatusOK, StationsResponse{Stations: stations})
}

// GET /api/v1/stations/{id}/status
func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := stationID(w, r)
	if !ok {
		return
	}
	status, err := s.svc.Status(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleTimeline returns the segments of ?date=YYYY-MM-DD, today by default.
// GET /api/v1/stations/{id}/timeline
func (s *HTTPServer) handleTimeline(w http.ResponseWriter, r *http.Request) {
	id, ok := stationID(w, r)
	if !ok {
		return
	}

	date := availability.DateOf(s.svc.Now())
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := availability.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		date = d
	}

	plan, err := s.svc.Timeline(r.Context(), id, date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// GET /api/v1/stations/{id}/schedule
func (s *HTTPServer) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := stationID(w, r)
	if !ok {
		return
	}
	rules, err := s.svc.Schedule(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{StationID: id, Rules: rules})
}

// PUT /api/v1/stations/{id}/schedule
func (s *HTTPServer) handlePutSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := stationID(w, r)
	if !ok {
		return
	}
	var req ScheduleRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rules, err := s.svc.UpdateSchedule(r.Context(), id, req.Rules)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{StationID: id, Rules: rules})
}

// POST /api/v1/stations/{id}/exceptions
func (s *HTTPServer) handlePostException(w http.ResponseWriter, r *http.Request) {
	id, ok := stationID(w, r)
	if !ok {
		return
	}
	var exc availability.Exception
	if err := decodeJSON(r.Body, &exc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.svc.SaveException(r.Context(), id, exc); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exc)
}

// DELETE /api/v1/stations/{id}/exceptions/{date}
func (s *HTTPServer) handleDeleteException(w http.ResponseWriter, r *http.Request) {
	id, ok := stationID(w, r)
	if !ok {
		return
	}
	date, err := availability.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	if err := s.svc.RemoveException(r.Context(), id, date); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePutOverride sets a manual override and returns the resulting status.
// PUT /api/v1/stations/{id}/override
func (s *HTTPServer) handlePutOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := stationID(w, r)
	if !ok {
		return
	}
	var req OverrideRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	o := availability.ManualOverride{Mode: availability.OverrideMode(req.Mode), Until: req.Until}
	if err := s.svc.SetOverride(r.Context(), id, o); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	status, err := s.svc.Status(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// DELETE /api/v1/stations/{id}/override
func (s *HTTPServer) handleDeleteOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := stationID(w, r)
	if !ok {
		return
	}
	if err := s.svc.ClearOverride(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReport streams an Excel workbook covering ?days= days from today (default 7).
// GET /api/v1/stations/{id}/report.xlsx
func (s *HTTPServer) handleReport(w http.ResponseWriter, r *http.Request) {
	id, ok := stationID(w, r)
	if !ok {
		return
	}

	days := availability.DaysPerWeek
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxReportDays {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", MaxReportDays))
			return
		}
		days = n
	}

	st, err := s.svc.Station(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	plans, err := s.svc.Week(r.Context(), id, days)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	now := s.svc.Now()
	var buf bytes.Buffer
	if err := report.WriteWeek(&buf, st, plans, now); err != nil {
		s.writeServiceError(w, r, fmt.Errorf("build report: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, report.Filename(st, availability.DateOf(now))))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func stationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid station id")
		return 0, false
	}
	return id, true
}
