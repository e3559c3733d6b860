package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pramenzivota/rezervace/services/booking-service/internal/arbiter"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/availability"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/schedule"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/storage"
)

// PublicHandler serves the booking wizard: catalog, availability, booking
// and cancellation. No auth; the gateway rate-limits this surface.
type PublicHandler struct {
	catalog      *storage.CatalogRepository
	scheduleSrc  *storage.ScheduleSource
	settingsRepo *storage.SettingsRepository
	arb          *arbiter.Arbiter
	logger       *slog.Logger
	now          func() time.Time
}

func NewPublicHandler(
	catalog *storage.CatalogRepository,
	scheduleSrc *storage.ScheduleSource,
	settingsRepo *storage.SettingsRepository,
	arb *arbiter.Arbiter,
	logger *slog.Logger,
) *PublicHandler {
	return &PublicHandler{
		catalog:      catalog,
		scheduleSrc:  scheduleSrc,
		settingsRepo: settingsRepo,
		arb:          arb,
		logger:       logger,
		now:          time.Now,
	}
}

type categoryItem struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Color       string        `json:"color,omitempty"`
	Services    []serviceItem `json:"services"`
}

type serviceItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Currency        string `json:"currency"`
	Color           string `json:"color,omitempty"`
}

type employeeItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type slotItem struct {
	EmployeeID string `json:"employee_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// ListServices returns the active catalog grouped by category. Categories
// with no active services are omitted.
func (h *PublicHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("list categories failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
		return
	}
	services, err := h.catalog.ListServices(r.Context(), true)
	if err != nil {
		h.logger.Error("list services failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
		return
	}

	byCategory := make(map[string][]serviceItem)
	for _, svc := range services {
		byCategory[svc.CategoryID] = append(byCategory[svc.CategoryID], serviceItem{
			ID:              svc.ID,
			Name:            svc.Name,
			Description:     svc.Description,
			DurationMinutes: svc.DurationMinutes,
			PriceCents:      svc.PriceCents,
			Currency:        svc.Currency,
			Color:           svc.Color,
		})
	}

	out := make([]categoryItem, 0, len(categories))
	for _, c := range categories {
		items := byCategory[c.ID]
		if len(items) == 0 {
			continue
		}
		out = append(out, categoryItem{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Color:       c.Color,
			Services:    items,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

// ListEmployees returns active employees qualified for the given service.
func (h *PublicHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	if serviceID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "service_id is required")
		return
	}

	ids, err := h.scheduleSrc.QualifiedEmployeeIDs(r.Context(), serviceID)
	if err != nil {
		h.logger.Error("list qualified employees failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
		return
	}

	out := make([]employeeItem, 0, len(ids))
	for _, id := range ids {
		emp, ok, err := h.catalog.EmployeeByID(r.Context(), id)
		if err != nil {
			h.logger.Error("load employee failed", "err", err, "employee_id", id)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "")
			return
		}
		if !ok {
			continue
		}
		out = append(out, employeeItem{ID: emp.ID, Name: emp.DisplayName()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": out})
}

// Slots lists bookable candidates for a service over a date range. A listed
// slot is not a reservation; it can be taken by the time book is called.
func (h *PublicHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	serviceID := strings.TrimSpace(q.Get("service_id"))
	if serviceID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "service_id is required")
		return
	}

	cfg, err := h.settingsRepo.Get(r.Context())
	if err != nil {
		h.logger.Error("load settings failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
		return
	}
	loc := cfg.Location()

	from, err := parseDateParam(q.Get("from"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid from date")
		return
	}
	to := from
	if raw := q.Get("to"); raw != "" {
		to, err = parseDateParam(raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid to date")
			return
		}
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "to is before from")
		return
	}

	svc, ok, err := h.catalog.ServiceByID(r.Context(), serviceID)
	if err != nil {
		h.logger.Error("load service failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
		return
	}
	if !ok || !svc.Active {
		writeError(w, http.StatusNotFound, "UNKNOWN_SERVICE", "")
		return
	}

	index := schedule.New(h.scheduleSrc, loc, cfg.PendingBlocksSlots)
	calc := availability.NewCalculator(index)
	slots, err := calc.ComputeSlots(r.Context(), availability.SlotsRequest{
		Service:     svc,
		EmployeeID:  strings.TrimSpace(q.Get("employee_id")),
		From:        from,
		To:          to,
		Step:        cfg.SlotStep(),
		Now:         h.now(),
		MinLeadTime: cfg.MinLeadTime(),
	})
	if err != nil {
		if errors.Is(err, availability.ErrEmployeeNotQualified) {
			writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST", arbiter.ReasonNotQualified)
			return
		}
		h.logger.Error("compute slots failed", "err", err, "service_id", serviceID)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
		return
	}

	out := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotItem{
			EmployeeID: s.EmployeeID,
			StartTime:  s.Start.In(loc).Format(time.RFC3339),
			EndTime:    s.End.In(loc).Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": out})
}

type bookRequest struct {
	ServiceID     string `json:"service_id"`
	EmployeeID    string `json:"employee_id"`
	StartTime     string `json:"start_time"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Note          string `json:"note"`
	PaymentMethod string `json:"payment_method"`
}

type appointmentResponse struct {
	ID              string `json:"id"`
	ServiceID       string `json:"service_id"`
	EmployeeID      string `json:"employee_id"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	PaymentMethod   string `json:"payment_method"`
	PaymentStatus   string `json:"payment_status"`
	CanceledAt      string `json:"canceled_at,omitempty"`
}

// Book submits the booking to the arbiter. On a lost race the client gets
// 409 and should re-fetch slots.
func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}
	startAt, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid start_time")
		return
	}

	cfg, err := h.settingsRepo.Get(r.Context())
	if err != nil {
		h.logger.Error("load settings failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
		return
	}

	appt, err := h.arb.Submit(r.Context(), cfg, arbiter.Request{
		ServiceID:  req.ServiceID,
		EmployeeID: req.EmployeeID,
		StartAt:    startAt,
		Customer: arbiter.CustomerInfo{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			Note:      req.Note,
		},
		PaymentMethod:  model.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod))),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.writeArbiterError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"appointment": toAppointmentResponse(*appt)})
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

func (h *PublicHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}
	if strings.TrimSpace(req.AppointmentID) == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "appointment_id is required")
		return
	}

	appt, err := h.arb.Cancel(r.Context(), strings.TrimSpace(req.AppointmentID), strings.TrimSpace(req.Reason))
	if err != nil {
		h.writeArbiterError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": toAppointmentResponse(*appt)})
}

func (h *PublicHandler) writeArbiterError(w http.ResponseWriter, err error) {
	writeArbiterError(w, h.logger, err)
}

// writeArbiterError maps arbiter errors onto the API error envelope. Shared
// by the public and admin surfaces.
func writeArbiterError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, arbiter.ErrSlotConflict):
		writeError(w, http.StatusConflict, "SLOT_CONFLICT", "")
	case errors.Is(err, arbiter.ErrUnknownService):
		writeError(w, http.StatusNotFound, "UNKNOWN_SERVICE", "")
	case errors.Is(err, arbiter.ErrUnknownEmployee):
		writeError(w, http.StatusNotFound, "UNKNOWN_EMPLOYEE", "")
	case errors.Is(err, arbiter.ErrUnknownAppointment):
		writeError(w, http.StatusNotFound, "UNKNOWN_APPOINTMENT", "")
	default:
		if reason := arbiter.InvalidReason(err); reason != "" {
			writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST", reason)
			return
		}
		logger.Error("booking operation failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
	}
}

func toAppointmentResponse(appt model.Appointment) appointmentResponse {
	resp := appointmentResponse{
		ID:              appt.ID,
		ServiceID:       appt.ServiceID,
		EmployeeID:      appt.EmployeeID,
		StartTime:       appt.StartAt.UTC().Format(time.RFC3339),
		EndTime:         appt.EndAt.UTC().Format(time.RFC3339),
		DurationMinutes: appt.DurationMinutes,
		PriceCents:      appt.PriceCents,
		Currency:        appt.Currency,
		Status:          string(appt.Status),
		PaymentMethod:   string(appt.PaymentMethod),
		PaymentStatus:   string(appt.PaymentStatus),
	}
	if appt.CanceledAt != nil {
		resp.CanceledAt = appt.CanceledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// parseDateParam accepts YYYY-MM-DD, anchored to midnight in loc.
func parseDateParam(raw string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), loc)
}
