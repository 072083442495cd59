package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gearbook/internal/domain"
	"gearbook/internal/export"
	"gearbook/internal/metrics"
	"gearbook/internal/models"
)

func (s *HTTPServer) identity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return models.Identity{}, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

type equipmentRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Model       string `json:"model"`
	Status      string `json:"status"`
}

func (s *HTTPServer) handleCreateEquipment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_equipment")
	caller, ok := s.identity(w, r)
	if !ok {
		return
	}

	var body equipmentRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if body.Status != "" && !models.EquipmentStatus(body.Status).Known() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status: %s", body.Status))
		return
	}

	eq := &models.Equipment{
		Name:        body.Name,
		Category:    body.Category,
		Location:    body.Location,
		Description: body.Description,
		Model:       body.Model,
		Status:      models.EquipmentStatus(body.Status),
	}

	created, err := s.equipment.Create(r.Context(), eq, caller)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_equipment")
	if _, ok := s.identity(w, r); !ok {
		return
	}

	filter := domain.EquipmentFilter{
		Category: r.URL.Query().Get("category"),
		Status:   models.EquipmentStatus(r.URL.Query().Get("status")),
	}

	items, err := s.equipment.List(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []*models.Equipment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"equipment": items})
}

func (s *HTTPServer) handleGetEquipment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_equipment")
	if _, ok := s.identity(w, r); !ok {
		return
	}

	eq, err := s.equipment.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

type equipmentUpdateRequest struct {
	Name        *string `json:"name"`
	Category    *string `json:"category"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	Model       *string `json:"model"`
}

func (s *HTTPServer) handleUpdateEquipment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("update_equipment")
	caller, ok := s.identity(w, r)
	if !ok {
		return
	}

	var body equipmentUpdateRequest
	if !decodeBody(w, r, &body) {
		return
	}

	upd := domain.EquipmentUpdate{
		Name:        body.Name,
		Category:    body.Category,
		Location:    body.Location,
		Description: body.Description,
		Model:       body.Model,
	}

	eq, err := s.equipment.UpdateMetadata(r.Context(), r.PathValue("id"), upd, caller)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

type statusRequest struct {
	Status string `json:"status"`
}

// Equipment status is a settable override, changed only through this
// explicit endpoint. Check-out and check-in never flip it implicitly.
func (s *HTTPServer) handleSetEquipmentStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("set_equipment_status")
	caller, ok := s.identity(w, r)
	if !ok {
		return
	}

	var body statusRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if !models.EquipmentStatus(body.Status).Known() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status: %s", body.Status))
		return
	}

	eq, err := s.equipment.SetStatus(r.Context(), r.PathValue("id"), models.EquipmentStatus(body.Status), caller)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

func (s *HTTPServer) handleDeleteEquipment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("delete_equipment")
	caller, ok := s.identity(w, r)
	if !ok {
		return
	}

	if err := s.equipment.Delete(r.Context(), r.PathValue("id"), caller); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bookingRequest struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")
	caller, ok := s.identity(w, r)
	if !ok {
		return
	}

	var body bookingRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.StartDate.IsZero() || body.EndDate.IsZero() {
		writeError(w, http.StatusBadRequest, "start_date and end_date are required")
		return
	}

	rng := models.TimeRange{Start: body.StartDate, End: body.EndDate}
	res, err := s.booking.CreateReservation(r.Context(), r.PathValue("id"), caller, rng)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_bookings")
	caller, ok := s.identity(w, r)
	if !ok {
		return
	}

	filter := domain.ReservationFilter{
		Status:      models.ReservationStatus(r.URL.Query().Get("status")),
		RequesterID: r.URL.Query().Get("requester_id"),
	}

	seq, err := s.booking.ListReservations(r.Context(), r.PathValue("id"), filter, caller)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	bookings := []models.Reservation{}
	for res := range seq {
		bookings = append(bookings, res)
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleBookingAction(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.identity(w, r)
	if !ok {
		return
	}

	equipmentID := r.PathValue("id")
	bookingID := r.PathValue("bookingID")
	action := r.PathValue("action")

	var (
		res *models.Reservation
		err error
	)
	switch action {
	case "approve":
		metrics.IncHTTP("approve_booking")
		res, err = s.booking.Approve(r.Context(), equipmentID, bookingID, caller)
	case "deny":
		metrics.IncHTTP("deny_booking")
		res, err = s.booking.Deny(r.Context(), equipmentID, bookingID, caller)
	case "check-out":
		metrics.IncHTTP("check_out_booking")
		res, err = s.booking.CheckOut(r.Context(), equipmentID, bookingID, caller)
	case "check-in":
		metrics.IncHTTP("check_in_booking")
		res, err = s.booking.CheckIn(r.Context(), equipmentID, bookingID, caller)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown booking action: %s", action))
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export_reservations")
	caller, ok := s.identity(w, r)
	if !ok {
		return
	}
	if !caller.Role.CanManageBookings() {
		writeError(w, http.StatusForbidden, "export requires staff or admin role")
		return
	}

	items, err := s.equipment.List(r.Context(), domain.EquipmentFilter{})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteReservationsWorkbook(&buf, items); err != nil {
		s.logger.Error().Err(err).Msg("export failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	fileName := fmt.Sprintf("reservations_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
