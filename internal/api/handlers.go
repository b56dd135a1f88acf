package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"fairway/internal/metrics"
	"fairway/internal/models"
)

type bookingRequest struct {
	models.BookingCandidate
	Version  int64        `json:"version"`
	Actor    models.Actor `json:"actor"`
	Override bool         `json:"override"`
}

type actionRequest struct {
	Version int64        `json:"version"`
	Actor   models.Actor `json:"actor"`
	Minutes int          `json:"minutes"` // extend only
}

type maintenanceRequest struct {
	On    bool         `json:"on"`
	Actor models.Actor `json:"actor"`
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/v1/availability/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	bayID, err := parseID(rest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bay id is required")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := parseDate(dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	snapshot, err := s.bookings.DayAvailability(r.Context(), bayID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *HTTPServer) handleAvailabilityBulk(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_bulk")
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	type request struct {
		Bays  []string `json:"bays"`
		Dates []string `json:"dates"`
	}

	var body request
	if r.Method == http.MethodGet {
		body.Bays = splitCSV(r.URL.Query().Get("bays"))
		body.Dates = splitCSV(r.URL.Query().Get("dates"))
	} else {
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	if len(body.Bays) == 0 {
		writeError(w, http.StatusBadRequest, "bays is required")
		return
	}
	if len(body.Dates) == 0 {
		writeError(w, http.StatusBadRequest, "dates is required")
		return
	}

	results := make([]*models.DayAvailability, 0, len(body.Bays)*len(body.Dates))
	for _, rawBay := range body.Bays {
		bayID, err := parseID(rawBay)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid bay id: %s", rawBay))
			return
		}
		for _, rawDate := range body.Dates {
			date, err := parseDate(rawDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid date format: %s", rawDate))
				return
			}
			snapshot, err := s.bookings.DayAvailability(r.Context(), bayID, date)
			if err != nil {
				// Skip unknown bays so one missing bay does not sink the batch.
				continue
			}
			results = append(results, snapshot)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *HTTPServer) handleBays(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bays")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	bays, err := s.bays.GetBays(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bays": bays})
}

// handleBayActions routes /api/v1/bays/{id}/maintenance.
func (s *HTTPServer) handleBayActions(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bay_actions")
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bays/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "maintenance" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	bayID, err := parseID(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bay id")
		return
	}

	var body maintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.bays.SetMaintenance(r.Context(), bayID, body.On, body.Actor); err != nil {
		writeServiceError(w, err)
		return
	}

	bay, err := s.bays.GetBayByID(r.Context(), bayID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bay)
}

// handleBookings serves POST (create) and GET (list by range or member).
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings")
	switch r.Method {
	case http.MethodPost:
		s.createBooking(w, r)
	case http.MethodGet:
		s.listBookings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	var body bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), body.BookingCandidate, body.Actor, body.Override)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if rawMember := strings.TrimSpace(q.Get("member_id")); rawMember != "" {
		memberID, err := parseID(rawMember)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid member_id")
			return
		}
		bookings, err := s.bookings.GetMemberBookings(r.Context(), memberID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
		return
	}

	start, err := parseDate(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start is required as YYYY-MM-DD")
		return
	}
	end, err := parseDate(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end is required as YYYY-MM-DD")
		return
	}

	bookings, err := s.bookings.GetBookingsByRange(r.Context(), start, end.AddDate(0, 0, 1))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// handleBookingActions routes /api/v1/bookings/{id} and its lifecycle verbs.
func (s *HTTPServer) handleBookingActions(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("booking_actions")
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.Split(rest, "/")

	bookingID, err := parseID(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.getBooking(w, r, bookingID)
		case http.MethodPut:
			s.updateBooking(w, r, bookingID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if len(parts) != 2 || r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.bookingVerb(w, r, bookingID, parts[1])
}

func (s *HTTPServer) getBooking(w http.ResponseWriter, r *http.Request, id int64) {
	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) updateBooking(w http.ResponseWriter, r *http.Request, id int64) {
	var body bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, err := s.bookings.UpdateBooking(r.Context(), id, body.Version, body.BookingCandidate, body.Actor, body.Override)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) bookingVerb(w http.ResponseWriter, r *http.Request, id int64, verb string) {
	var body actionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var err error
	switch verb {
	case "check-in":
		err = s.bookings.CheckIn(r.Context(), id, body.Version, body.Actor)
	case "no-show":
		err = s.bookings.MarkNoShow(r.Context(), id, body.Version, body.Actor)
	case "complete":
		err = s.bookings.CompleteBooking(r.Context(), id, body.Version, body.Actor)
	case "cancel":
		err = s.bookings.CancelBooking(r.Context(), id, body.Version, body.Actor)
	case "extend":
		var booking *models.Booking
		booking, err = s.bookings.ExtendBooking(r.Context(), id, body.Version, body.Minutes, body.Actor)
		if err == nil {
			writeJSON(w, http.StatusOK, booking)
			return
		}
	default:
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if err != nil {
		writeServiceError(w, err)
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// handleMembers serves the directory sync surface: GET lists the mirror,
// PUT/POST upserts a snapshot coming from the external member system.
func (s *HTTPServer) handleMembers(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("members")
	switch r.Method {
	case http.MethodGet:
		members, err := s.members.GetMembers(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"members": members})
	case http.MethodPost, http.MethodPut:
		var member models.Member
		if err := json.NewDecoder(r.Body).Decode(&member); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if member.ID == 0 || member.FullName == "" {
			writeError(w, http.StatusBadRequest, "member id and full_name are required")
			return
		}
		if err := s.members.SaveMember(r.Context(), &member); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, member)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleMemberByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("members")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	memberID, err := parseID(strings.TrimPrefix(r.URL.Path, "/api/v1/members/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	member, err := s.members.GetMember(r.Context(), memberID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// handleSettings exposes the facility parameters clients need to render a
// booking form without hardcoding them.
func (s *HTTPServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("settings")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":                    s.facility.Name,
		"timezone":                s.facility.Timezone,
		"default_booking_minutes": s.facility.DefaultBookingMinutes,
		"max_concurrent_bookings": s.facility.MaxConcurrentBookings,
		"business_hours":          s.facility.BusinessHours,
	})
}

func (s *HTTPServer) handleAudit(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("audit")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	objectType := strings.TrimSpace(q.Get("object_type"))

	var objectID int64
	if raw := strings.TrimSpace(q.Get("object_id")); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid object_id")
			return
		}
		objectID = id
	}

	limit := models.DefaultAuditPageSize
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		parsed, err := parseID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = int(parsed)
	}

	entries, err := s.audit.ListEntries(r.Context(), objectType, objectID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *HTTPServer) handleExportSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export_schedule")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "exports are not configured")
		return
	}

	q := r.URL.Query()
	start, err := parseDate(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start is required as YYYY-MM-DD")
		return
	}
	end, err := parseDate(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end is required as YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end must not be before start")
		return
	}

	path, err := s.exporter.ExportSchedule(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}
