package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pramenzivota/rezervace/services/booking-service/internal/events"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/storage"
)

// EventsHandler serves group events: the public listing and registration,
// plus the admin CRUD. Registration goes through the registrar so capacity
// is enforced transactionally.
type EventsHandler struct {
	repo      *storage.EventRepository
	registrar *events.Registrar
	logger    *slog.Logger
	now       func() time.Time
}

func NewEventsHandler(repo *storage.EventRepository, registrar *events.Registrar, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{repo: repo, registrar: registrar, logger: logger, now: time.Now}
}

type eventItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	StartsAt        string `json:"starts_at"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Currency        string `json:"currency"`
	Capacity        int    `json:"capacity"`
	Registered      int    `json:"registered"`
	SpotsLeft       int    `json:"spots_left"`
	Location        string `json:"location,omitempty"`
	Instructor      string `json:"instructor,omitempty"`
	Category        string `json:"category,omitempty"`
	Requirements    string `json:"requirements,omitempty"`
	Active          bool   `json:"active"`
}

func toEventItem(ev model.Event) eventItem {
	left := ev.Capacity - ev.Registered
	if left < 0 {
		left = 0
	}
	return eventItem{
		ID:              ev.ID,
		Name:            ev.Name,
		Description:     ev.Description,
		StartsAt:        ev.StartsAt.UTC().Format(time.RFC3339),
		DurationMinutes: ev.DurationMinutes,
		PriceCents:      ev.PriceCents,
		Currency:        ev.Currency,
		Capacity:        ev.Capacity,
		Registered:      ev.Registered,
		SpotsLeft:       left,
		Location:        ev.Location,
		Instructor:      ev.Instructor,
		Category:        ev.Category,
		Requirements:    ev.Requirements,
		Active:          ev.Active,
	}
}

// List returns upcoming active events with remaining capacity.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	evs, err := h.repo.ListUpcoming(r.Context(), h.now())
	if err != nil {
		h.logger.Error("list events failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
		return
	}
	out := make([]eventItem, 0, len(evs))
	for _, ev := range evs {
		out = append(out, toEventItem(ev))
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

type registerRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Experience    string `json:"experience"`
	PaymentMethod string `json:"payment_method"`
	GDPRConsent   bool   `json:"gdpr_consent"`
}

type registrationResponse struct {
	ID            string `json:"id"`
	EventID       string `json:"event_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
}

// Register admits one participant to the event in the path.
func (h *EventsHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}

	reg, err := h.registrar.Register(r.Context(), events.Request{
		EventID:       r.PathValue("id"),
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Experience:    req.Experience,
		PaymentMethod: model.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod))),
		Consent:       req.GDPRConsent,
	})
	if err != nil {
		h.writeRegistrarError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"registration": registrationResponse{
		ID:            reg.ID,
		EventID:       reg.EventID,
		Name:          reg.Name,
		Email:         reg.Email,
		Status:        string(reg.Status),
		PaymentMethod: string(reg.PaymentMethod),
	}})
}

func (h *EventsHandler) writeRegistrarError(w http.ResponseWriter, err error) {
	writeRegistrarError(w, h.logger, err)
}

// writeRegistrarError maps registrar errors onto the API error envelope.
func writeRegistrarError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, events.ErrUnknownEvent):
		writeError(w, http.StatusNotFound, "UNKNOWN_EVENT", "")
	case errors.Is(err, events.ErrEventFull):
		writeError(w, http.StatusConflict, "EVENT_FULL", "")
	case errors.Is(err, events.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "ALREADY_REGISTERED", "")
	default:
		if reason := events.InvalidReason(err); reason != "" {
			writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST", reason)
			return
		}
		logger.Error("event registration failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
	}
}

type eventRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	StartsAt        string `json:"starts_at"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Currency        string `json:"currency"`
	Capacity        int    `json:"capacity"`
	Location        string `json:"location"`
	Instructor      string `json:"instructor"`
	Category        string `json:"category"`
	Requirements    string `json:"requirements"`
	Active          *bool  `json:"active"`
}

func (req eventRequest) toModel() (model.Event, string) {
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return model.Event{}, "invalid starts_at"
	}
	if strings.TrimSpace(req.Name) == "" {
		return model.Event{}, "name is required"
	}
	if req.DurationMinutes <= 0 {
		return model.Event{}, "duration_minutes must be positive"
	}
	if req.Capacity <= 0 {
		return model.Event{}, "capacity must be positive"
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "CZK"
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return model.Event{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		StartsAt:        startsAt,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Currency:        currency,
		Capacity:        req.Capacity,
		Location:        req.Location,
		Instructor:      req.Instructor,
		Category:        req.Category,
		Requirements:    req.Requirements,
		Active:          active,
	}, ""
}

// AdminEvents handles GET (list, inactive included) and POST (create).
func (h *EventsHandler) AdminEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		evs, err := h.repo.ListAll(r.Context())
		if err != nil {
			h.logger.Error("list events failed", "err", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "")
			return
		}
		out := make([]eventItem, 0, len(evs))
		for _, ev := range evs {
			out = append(out, toEventItem(ev))
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": out})
	case http.MethodPost:
		var req eventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
			return
		}
		ev, problem := req.toModel()
		if problem != "" {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", problem)
			return
		}
		id, err := h.repo.Create(r.Context(), ev)
		if err != nil {
			h.logger.Error("create event failed", "err", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": id})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// AdminEventByID handles GET, PUT (full update) and DELETE (deactivate).
func (h *EventsHandler) AdminEventByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		ev, ok, err := h.repo.ByID(r.Context(), id)
		if err != nil {
			h.logger.Error("load event failed", "err", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "")
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "UNKNOWN_EVENT", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"event": toEventItem(ev)})
	case http.MethodPut:
		var req eventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
			return
		}
		ev, problem := req.toModel()
		if problem != "" {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", problem)
			return
		}
		ev.ID = id
		ok, err := h.repo.Update(r.Context(), ev)
		if err != nil {
			h.logger.Error("update event failed", "err", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "")
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "UNKNOWN_EVENT", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	case http.MethodDelete:
		ok, err := h.repo.Deactivate(r.Context(), id)
		if err != nil {
			h.logger.Error("deactivate event failed", "err", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "")
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "UNKNOWN_EVENT", "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type registrationItem struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Experience    string `json:"experience,omitempty"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	CreatedAt     string `json:"created_at"`
}

// AdminRegistrations lists the participants of one event.
func (h *EventsHandler) AdminRegistrations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.PathValue("id")
	if _, ok, err := h.repo.ByID(r.Context(), id); err != nil {
		h.logger.Error("load event failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
		return
	} else if !ok {
		writeError(w, http.StatusNotFound, "UNKNOWN_EVENT", "")
		return
	}

	regs, err := h.repo.RegistrationsFor(r.Context(), id)
	if err != nil {
		h.logger.Error("list registrations failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
		return
	}
	out := make([]registrationItem, 0, len(regs))
	for _, reg := range regs {
		out = append(out, registrationItem{
			ID:            reg.ID,
			Name:          reg.Name,
			Email:         reg.Email,
			Phone:         reg.Phone,
			Experience:    reg.Experience,
			Status:        string(reg.Status),
			PaymentMethod: string(reg.PaymentMethod),
			CreatedAt:     reg.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"registrations": out})
}
