package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pramenzivota/rezervace/libs/auth"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/arbiter"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/settings"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// AdminHandler is the dashboard API. The gateway verifies the JWT before
// proxying; login is the only unauthenticated admin route.
type AdminHandler struct {
	catalog      *storage.CatalogRepository
	appointments *storage.AppointmentRepository
	customers    *storage.CustomerRepository
	settingsRepo *storage.SettingsRepository
	arb          *arbiter.Arbiter
	logger       *slog.Logger

	adminEmail        string
	adminPasswordHash string
	jwtSecret         string
	tokenTTL          time.Duration
}

type AdminConfig struct {
	AdminEmail        string
	AdminPasswordHash string
	JWTSecret         string
	TokenTTL          time.Duration
}

func NewAdminHandler(
	catalog *storage.CatalogRepository,
	appointments *storage.AppointmentRepository,
	customers *storage.CustomerRepository,
	settingsRepo *storage.SettingsRepository,
	arb *arbiter.Arbiter,
	logger *slog.Logger,
	cfg AdminConfig,
) *AdminHandler {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AdminHandler{
		catalog:           catalog,
		appointments:      appointments,
		customers:         customers,
		settingsRepo:      settingsRepo,
		arb:               arb,
		logger:            logger,
		adminEmail:        strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		adminPasswordHash: cfg.AdminPasswordHash,
		jwtSecret:         cfg.JWTSecret,
		tokenTTL:          ttl,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks the configured admin credential and issues a signed token.
// Failures are logged but the response never says which part was wrong.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.adminEmail == "" || h.adminPasswordHash == "" || h.jwtSecret == "" {
		writeError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if email != h.adminEmail ||
		bcrypt.CompareHashAndPassword([]byte(h.adminPasswordHash), []byte(req.Password)) != nil {
		h.logger.Warn("admin login rejected", "email", email)
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "")
		return
	}

	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:  email,
		Role: "admin",
		Iat:  now.Unix(),
		Exp:  now.Add(h.tokenTTL).Unix(),
	}, h.jwtSecret)
	if err != nil {
		h.logger.Error("token signing failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": now.Add(h.tokenTTL).UTC().Format(time.RFC3339),
	})
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	SortOrder   int    `json:"sort_order"`
}

// Categories handles GET (list) and POST (create) on the collection.
func (h *AdminHandler) Categories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out, err := h.catalog.ListCategories(r.Context())
		if err != nil {
			h.internal(w, "list categories failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": out})
	case http.MethodPost:
		var req categoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "name is required")
			return
		}
		id, err := h.catalog.CreateCategory(r.Context(), model.ServiceCategory{
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			Color:       req.Color,
			SortOrder:   req.SortOrder,
		})
		if err != nil {
			h.internal(w, "create category failed", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": id})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// CategoryByID handles PUT and DELETE on one category.
func (h *AdminHandler) CategoryByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodPut:
		var req categoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "name is required")
			return
		}
		ok, err := h.catalog.UpdateCategory(r.Context(), model.ServiceCategory{
			ID:          id,
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			Color:       req.Color,
			SortOrder:   req.SortOrder,
		})
		if err != nil {
			h.internal(w, "update category failed", err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "UNKNOWN_CATEGORY", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	case http.MethodDelete:
		ok, err := h.catalog.DeleteCategory(r.Context(), id)
		if err != nil {
			h.internal(w, "delete category failed", err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "UNKNOWN_CATEGORY", "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type serviceRequest struct {
	CategoryID      string `json:"category_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Currency        string `json:"currency"`
	Color           string `json:"color"`
	Active          *bool  `json:"active"`
}

func (req serviceRequest) toModel(id string) (model.Service, bool) {
	if strings.TrimSpace(req.Name) == "" || req.CategoryID == "" ||
		req.DurationMinutes <= 0 || req.PriceCents < 0 {
		return model.Service{}, false
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return model.Service{
		ID:              id,
		CategoryID:      req.CategoryID,
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Currency:        strings.ToUpper(strings.TrimSpace(req.Currency)),
		Color:           req.Color,
		Active:          active,
	}, true
}

func (h *AdminHandler) Services(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out, err := h.catalog.ListServices(r.Context(), false)
		if err != nil {
			h.internal(w, "list services failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"services": out})
	case http.MethodPost:
		var req serviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
			return
		}
		svc, ok := req.toModel("")
		if !ok {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "missing or invalid fields")
			return
		}
		id, err := h.catalog.CreateService(r.Context(), svc)
		if err != nil {
			h.internal(w, "create service failed", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": id})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) ServiceByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		svc, ok, err := h.catalog.ServiceByID(r.Context(), id)
		if err != nil {
			h.internal(w, "load service failed", err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "UNKNOWN_SERVICE", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"service": svc})
	case http.MethodPut:
		var req serviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
			return
		}
		svc, valid := req.toModel(id)
		if !valid {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "missing or invalid fields")
			return
		}
		ok, err := h.catalog.UpdateService(r.Context(), svc)
		if err != nil {
			h.internal(w, "update service failed", err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "UNKNOWN_SERVICE", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	case http.MethodDelete:
		ok, err := h.catalog.DeactivateService(r.Context(), id)
		if err != nil {
			h.internal(w, "deactivate service failed", err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "UNKNOWN_SERVICE", "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type employeeRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes"`
	Active    *bool  `json:"active"`
}

func (h *AdminHandler) Employees(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out, err := h.catalog.ListEmployees(r.Context(), false)
		if err != nil {
			h.internal(w, "list employees failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"employees": out})
	case http.MethodPost:
		var req employeeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
			strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "first_name and last_name are required")
			return
		}
		active := true
		if req.Active != nil {
			active = *req.Active
		}
		id, err := h.catalog.CreateEmployee(r.Context(), model.Employee{
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Email:     strings.TrimSpace(req.Email),
			Phone:     strings.TrimSpace(req.Phone),
			Notes:     req.Notes,
			Active:    active,
		})
		if err != nil {
			h.internal(w, "create employee failed", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": id})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) EmployeeByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		emp, ok, err := h.catalog.EmployeeByID(r.Context(), id)
		if err != nil {
			h.internal(w, "load employee failed", err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "UNKNOWN_EMPLOYEE", "")
			return
		}
		hours, err := h.catalog.WorkingHoursFor(r.Context(), id)
		if err != nil {
			h.internal(w, "load working hours failed", err)
			return
		}
		serviceIDs, err := h.catalog.QualifiedServiceIDs(r.Context(), id)
		if err != nil {
			h.internal(w, "load qualifications failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"employee":      emp,
			"working_hours": toWorkingHourItems(hours),
			"service_ids":   serviceIDs,
		})
	case http.MethodPut:
		var req employeeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
			strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "first_name and last_name are required")
			return
		}
		active := true
		if req.Active != nil {
			active = *req.Active
		}
		ok, err := h.catalog.UpdateEmployee(r.Context(), model.Employee{
			ID:        id,
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Email:     strings.TrimSpace(req.Email),
			Phone:     strings.TrimSpace(req.Phone),
			Notes:     req.Notes,
			Active:    active,
		})
		if err != nil {
			h.internal(w, "update employee failed", err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "UNKNOWN_EMPLOYEE", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	case http.MethodDelete:
		ok, err := h.catalog.DeactivateEmployee(r.Context(), id)
		if err != nil {
			h.internal(w, "deactivate employee failed", err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "UNKNOWN_EMPLOYEE", "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type workingHourItem struct {
	Weekday     int `json:"weekday"`
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

func toWorkingHourItems(hours []model.WorkingHours) []workingHourItem {
	out := make([]workingHourItem, 0, len(hours))
	for _, wh := range hours {
		out = append(out, workingHourItem{
			Weekday:     int(wh.Weekday),
			StartMinute: wh.StartMinute,
			EndMinute:   wh.EndMinute,
		})
	}
	return out
}

// WorkingHours replaces an employee's weekly template.
func (h *AdminHandler) WorkingHours(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.PathValue("id")

	var req struct {
		WorkingHours []workingHourItem `json:"working_hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}
	hours := make([]model.WorkingHours, 0, len(req.WorkingHours))
	for _, item := range req.WorkingHours {
		if item.Weekday < 0 || item.Weekday > 6 ||
			item.StartMinute < 0 || item.EndMinute > 24*60 || item.EndMinute <= item.StartMinute {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid working hours entry")
			return
		}
		hours = append(hours, model.WorkingHours{
			EmployeeID:  id,
			Weekday:     time.Weekday(item.Weekday),
			StartMinute: item.StartMinute,
			EndMinute:   item.EndMinute,
		})
	}
	if err := h.catalog.ReplaceWorkingHours(r.Context(), id, hours); err != nil {
		h.internal(w, "replace working hours failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

// Qualifications replaces the set of services an employee may perform.
func (h *AdminHandler) Qualifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.PathValue("id")

	var req struct {
		ServiceIDs []string `json:"service_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}
	if err := h.catalog.ReplaceQualifications(r.Context(), id, req.ServiceIDs); err != nil {
		h.internal(w, "replace qualifications failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

// Appointments lists with optional filters: employee_id, service_id, status,
// from, to (RFC 3339), limit.
func (h *AdminHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	filter := storage.ListFilter{
		EmployeeID: strings.TrimSpace(q.Get("employee_id")),
		ServiceID:  strings.TrimSpace(q.Get("service_id")),
		Status:     model.AppointmentStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid from")
			return
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid to")
			return
		}
		filter.To = t
	}

	appts, err := h.appointments.List(r.Context(), filter)
	if err != nil {
		h.internal(w, "list appointments failed", err)
		return
	}
	out := make([]appointmentResponse, 0, len(appts))
	for _, appt := range appts {
		out = append(out, toAppointmentResponse(appt))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

func (h *AdminHandler) ApproveAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.arb.Approve)
}

func (h *AdminHandler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.arb.Complete)
}

func (h *AdminHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional; a missing reason is fine.
	_ = json.NewDecoder(r.Body).Decode(&req)

	appt, err := h.arb.Cancel(r.Context(), r.PathValue("id"), strings.TrimSpace(req.Reason))
	if err != nil {
		h.writeArbiterError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": toAppointmentResponse(*appt)})
}

// MarkPaid records an on-site (or otherwise out-of-band) payment against the
// appointment without involving a provider.
func (h *AdminHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.PathValue("id")
	ok, err := h.appointments.SetPaymentStatus(r.Context(), id, model.PaymentStatusPaid)
	if err != nil {
		h.internal(w, "mark paid failed", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "UNKNOWN_APPOINTMENT", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "payment_status": string(model.PaymentStatusPaid)})
}

func (h *AdminHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (*model.Appointment, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	appt, err := op(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeArbiterError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": toAppointmentResponse(*appt)})
}

// Customers lists customers with their aggregates; search matches name or
// email.
func (h *AdminHandler) Customers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	out, err := h.customers.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")), 0)
	if err != nil {
		h.internal(w, "list customers failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": out})
}

// CustomerByID returns one customer with recent history on GET; PUT updates
// the admin-facing note.
func (h *AdminHandler) CustomerByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		c, ok, err := h.customers.ByID(r.Context(), id)
		if err != nil {
			h.internal(w, "load customer failed", err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "UNKNOWN_CUSTOMER", "")
			return
		}
		appts, err := h.appointments.ForCustomer(r.Context(), id, 50)
		if err != nil {
			h.internal(w, "load customer appointments failed", err)
			return
		}
		out := make([]appointmentResponse, 0, len(appts))
		for _, appt := range appts {
			out = append(out, toAppointmentResponse(appt))
		}
		writeJSON(w, http.StatusOK, map[string]any{"customer": c, "appointments": out})
	case http.MethodPut:
		var req struct {
			Note string `json:"note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
			return
		}
		ok, err := h.customers.UpdateNote(r.Context(), id, req.Note)
		if err != nil {
			h.internal(w, "update customer note failed", err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "UNKNOWN_CUSTOMER", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Stats aggregates the dashboard numbers for [from, to); defaults to the
// current day in the business timezone.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg, err := h.settingsRepo.Get(r.Context())
	if err != nil {
		h.internal(w, "load settings failed", err)
		return
	}
	loc := cfg.Location()

	now := time.Now().In(loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		from, err = parseDateParam(raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid from date")
			return
		}
	}
	if raw := q.Get("to"); raw != "" {
		to, err = parseDateParam(raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid to date")
			return
		}
		to = to.AddDate(0, 0, 1)
	}

	stats, err := h.appointments.Stats(r.Context(), from, to)
	if err != nil {
		h.internal(w, "load stats failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":               from.Format(time.RFC3339),
		"to":                 to.Format(time.RFC3339),
		"total_appointments": stats.TotalAppointments,
		"pending":            stats.PendingCount,
		"approved":           stats.ApprovedCount,
		"canceled":           stats.CanceledCount,
		"completed":          stats.CompletedCount,
		"revenue_cents":      stats.RevenueCents,
		"unique_customers":   stats.UniqueCustomers,
	})
}

type settingsPayload struct {
	BusinessName         string `json:"business_name"`
	ContactEmail         string `json:"contact_email"`
	ContactPhone         string `json:"contact_phone"`
	Address              string `json:"address"`
	Timezone             string `json:"timezone"`
	MinLeadTimeHours     int    `json:"min_lead_time_hours"`
	MaxAdvanceDays       int    `json:"max_advance_days"`
	SlotStepMinutes      int    `json:"slot_step_minutes"`
	AutoApprove          bool   `json:"auto_approve"`
	PendingBlocksSlots   bool   `json:"pending_blocks_slots"`
	AllowWeekendBookings bool   `json:"allow_weekend_bookings"`
	RequirePhone         bool   `json:"require_phone"`
	DefaultCurrency      string `json:"default_currency"`
	PaymentProvider      string `json:"payment_provider"`
}

func (h *AdminHandler) Settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg, err := h.settingsRepo.Get(r.Context())
		if err != nil {
			h.internal(w, "load settings failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": toSettingsPayload(cfg)})
	case http.MethodPut:
		var req settingsPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
			return
		}
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown timezone")
			return
		}
		if req.SlotStepMinutes <= 0 || req.MinLeadTimeHours < 0 || req.MaxAdvanceDays < 0 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid booking policy values")
			return
		}
		cfg := settings.Settings{
			BusinessName:         strings.TrimSpace(req.BusinessName),
			ContactEmail:         strings.TrimSpace(req.ContactEmail),
			ContactPhone:         strings.TrimSpace(req.ContactPhone),
			Address:              strings.TrimSpace(req.Address),
			Timezone:             req.Timezone,
			MinLeadTimeHours:     req.MinLeadTimeHours,
			MaxAdvanceDays:       req.MaxAdvanceDays,
			SlotStepMinutes:      req.SlotStepMinutes,
			AutoApprove:          req.AutoApprove,
			PendingBlocksSlots:   req.PendingBlocksSlots,
			AllowWeekendBookings: req.AllowWeekendBookings,
			RequirePhone:         req.RequirePhone,
			DefaultCurrency:      strings.ToUpper(strings.TrimSpace(req.DefaultCurrency)),
			PaymentProvider:      strings.ToLower(strings.TrimSpace(req.PaymentProvider)),
		}
		if err := h.settingsRepo.Update(r.Context(), cfg); err != nil {
			h.internal(w, "update settings failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": toSettingsPayload(cfg)})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func toSettingsPayload(cfg settings.Settings) settingsPayload {
	return settingsPayload{
		BusinessName:         cfg.BusinessName,
		ContactEmail:         cfg.ContactEmail,
		ContactPhone:         cfg.ContactPhone,
		Address:              cfg.Address,
		Timezone:             cfg.Timezone,
		MinLeadTimeHours:     cfg.MinLeadTimeHours,
		MaxAdvanceDays:       cfg.MaxAdvanceDays,
		SlotStepMinutes:      cfg.SlotStepMinutes,
		AutoApprove:          cfg.AutoApprove,
		PendingBlocksSlots:   cfg.PendingBlocksSlots,
		AllowWeekendBookings: cfg.AllowWeekendBookings,
		RequirePhone:         cfg.RequirePhone,
		DefaultCurrency:      cfg.DefaultCurrency,
		PaymentProvider:      cfg.PaymentProvider,
	}
}

func (h *AdminHandler) internal(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "err", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "")
}

func (h *AdminHandler) writeArbiterError(w http.ResponseWriter, err error) {
	writeArbiterError(w, h.logger, err)
}
