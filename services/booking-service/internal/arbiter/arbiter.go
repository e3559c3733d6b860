// Package arbiter is the sole authority that turns a slot selection into a
// durable appointment. Every write goes through one storage transaction: the
// conflict re-check, the insert and the customer counter update commit or
// fail together, and a Postgres exclusion constraint backstops the re-check
// so two racing submissions can never both land.
package arbiter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pramenzivota/rezervace/services/booking-service/internal/availability"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/outbox"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/reminders"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/schedule"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/settings"
)

type CustomerInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Note      string
}

type Request struct {
	ServiceID     string
	EmployeeID    string
	StartAt       time.Time
	Customer      CustomerInfo
	PaymentMethod model.PaymentMethod
	// IdempotencyKey, when set, makes a retried submit return the
	// appointment created by the first attempt instead of re-running the
	// side effects.
	IdempotencyKey string
}

// Store provides the transactional boundary. The function passed to InTx
// must see a consistent snapshot and its writes must be atomic; the pgx
// implementation runs it in a database transaction.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the storage surface available inside one arbiter transaction.
type Tx interface {
	ServiceByID(ctx context.Context, id string) (model.Service, bool, error)
	EmployeeByID(ctx context.Context, id string) (model.Employee, bool, error)
	IsQualified(ctx context.Context, employeeID, serviceID string) (bool, error)
	WorkingHoursFor(ctx context.Context, employeeID string) ([]model.WorkingHours, error)

	// BlockingIntervals returns appointment intervals with a status in
	// statuses overlapping [from, to). Must read the current transaction
	// snapshot, not a cache.
	BlockingIntervals(ctx context.Context, employeeID string, from, to time.Time, statuses []model.AppointmentStatus) ([]availability.Interval, error)

	UpsertCustomerByEmail(ctx context.Context, info CustomerInfo) (customerID string, err error)
	CustomerByID(ctx context.Context, id string) (model.Customer, bool, error)
	AdjustCustomerTotals(ctx context.Context, customerID string, deltaAppointments int, deltaSpentCents int64) error

	// InsertAppointment assigns appt.ID and CreatedAt. Returns
	// ErrSlotConflict when the no-overlap constraint rejects the row.
	InsertAppointment(ctx context.Context, appt *model.Appointment) error
	AppointmentByID(ctx context.Context, id string) (model.Appointment, bool, error)
	AppointmentForUpdate(ctx context.Context, id string) (model.Appointment, bool, error)
	SetAppointmentStatus(ctx context.Context, id string, status model.AppointmentStatus, canceledAt *time.Time, cancelReason string) error

	LockBookingKey(ctx context.Context, key string) (appointmentID string, finalized bool, err error)
	FinalizeBookingKey(ctx context.Context, key, appointmentID string) error

	InsertOutboxEvent(ctx context.Context, ev outbox.Event) error
	InsertReminderJob(ctx context.Context, job reminders.Job) error
	CancelReminderJobs(ctx context.Context, appointmentID string) error
}

type Arbiter struct {
	store           Store
	logger          *slog.Logger
	reminderOffsets []time.Duration
	now             func() time.Time
}

func New(store Store, logger *slog.Logger, reminderOffsets []time.Duration) *Arbiter {
	return &Arbiter{
		store:           store,
		logger:          logger,
		reminderOffsets: reminderOffsets,
		now:             time.Now,
	}
}

// WithClock overrides the arbiter's clock. Test hook.
func (a *Arbiter) WithClock(now func() time.Time) *Arbiter {
	a.now = now
	return a
}

// Submit validates the request against the live schedule and commits the
// appointment. cfg is the settings snapshot for this request.
func (a *Arbiter) Submit(ctx context.Context, cfg settings.Settings, req Request) (*model.Appointment, error) {
	req = normalize(req)
	if err := validateShape(cfg, req); err != nil {
		return nil, err
	}

	var result model.Appointment
	err := a.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if req.IdempotencyKey != "" {
			apptID, finalized, err := tx.LockBookingKey(ctx, req.IdempotencyKey)
			if err != nil {
				return err
			}
			if finalized {
				appt, ok, err := tx.AppointmentByID(ctx, apptID)
				if err != nil {
					return err
				}
				if !ok {
					return ErrUnknownAppointment
				}
				result = appt
				return nil
			}
		}

		svc, ok, err := tx.ServiceByID(ctx, req.ServiceID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownService
		}
		if !svc.Active {
			return invalid(ReasonServiceInactive)
		}

		emp, ok, err := tx.EmployeeByID(ctx, req.EmployeeID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownEmployee
		}
		if !emp.Active {
			return invalid(ReasonEmployeeInactive)
		}

		qualified, err := tx.IsQualified(ctx, req.EmployeeID, req.ServiceID)
		if err != nil {
			return err
		}
		if !qualified {
			return invalid(ReasonNotQualified)
		}

		now := a.now()
		start := req.StartAt
		end := start.Add(svc.Duration())
		loc := cfg.Location()

		if start.Before(now.Add(cfg.MinLeadTime())) {
			return invalid(ReasonLeadTime)
		}
		if cfg.MaxAdvanceDays > 0 && start.After(now.In(loc).AddDate(0, 0, cfg.MaxAdvanceDays)) {
			return invalid(ReasonTooFarAhead)
		}
		local := start.In(loc)
		if !cfg.AllowWeekendBookings && (local.Weekday() == time.Saturday || local.Weekday() == time.Sunday) {
			return invalid(ReasonWeekendClosed)
		}

		hours, err := tx.WorkingHoursFor(ctx, req.EmployeeID)
		if err != nil {
			return err
		}
		proposed := availability.Interval{Start: start, End: end}
		if !withinAnyWindow(proposed, schedule.WindowsOn(hours, local, loc)) {
			return invalid(ReasonOutsideWorkingHours)
		}

		// Fresh conflict check against the transaction snapshot. The
		// exclusion constraint on insert is the backstop for races this
		// read cannot see.
		busy, err := tx.BlockingIntervals(ctx, req.EmployeeID, start, end, schedule.BlockingStatuses(cfg.PendingBlocksSlots))
		if err != nil {
			return err
		}
		for _, b := range busy {
			if proposed.Overlaps(b) {
				return ErrSlotConflict
			}
		}

		customerID, err := tx.UpsertCustomerByEmail(ctx, req.Customer)
		if err != nil {
			return err
		}

		status := model.StatusPending
		if cfg.AutoApprove {
			status = model.StatusApproved
		}
		currency := svc.Currency
		if currency == "" {
			currency = cfg.DefaultCurrency
		}
		paymentStatus := model.PaymentStatusPending
		if req.PaymentMethod == model.PaymentOnSite {
			paymentStatus = model.PaymentStatusNotRequired
		}

		appt := model.Appointment{
			ServiceID:       svc.ID,
			EmployeeID:      emp.ID,
			CustomerID:      customerID,
			StartAt:         start,
			EndAt:           end,
			DurationMinutes: svc.DurationMinutes,
			PriceCents:      svc.PriceCents,
			Currency:        currency,
			Status:          status,
			PaymentMethod:   req.PaymentMethod,
			PaymentStatus:   paymentStatus,
		}
		if err := tx.InsertAppointment(ctx, &appt); err != nil {
			return err
		}

		if err := tx.AdjustCustomerTotals(ctx, customerID, 1, appt.PriceCents); err != nil {
			return err
		}

		if err := a.emitBookedEvent(ctx, tx, appt, req.Customer, svc, emp); err != nil {
			return err
		}
		if err := a.scheduleReminders(ctx, tx, appt, req.Customer, svc, emp, now); err != nil {
			return err
		}

		if req.IdempotencyKey != "" {
			if err := tx.FinalizeBookingKey(ctx, req.IdempotencyKey, appt.ID); err != nil {
				return err
			}
		}

		result = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("appointment committed",
		"appointment_id", result.ID,
		"employee_id", result.EmployeeID,
		"service_id", result.ServiceID,
		"start_at", result.StartAt.UTC().Format(time.RFC3339),
		"status", string(result.Status),
	)
	return &result, nil
}

// Cancel frees the held interval. Canceling an already-canceled appointment
// is a no-op returning the existing record, so retries are safe.
func (a *Arbiter) Cancel(ctx context.Context, appointmentID, reason string) (*model.Appointment, error) {
	var result model.Appointment
	err := a.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, ok, err := tx.AppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownAppointment
		}
		if appt.Status == model.StatusCanceled {
			result = appt
			return nil
		}
		if appt.Status == model.StatusCompleted {
			return invalid(ReasonInvalidTransition)
		}

		canceledAt := a.now().UTC()
		if err := tx.SetAppointmentStatus(ctx, appt.ID, model.StatusCanceled, &canceledAt, reason); err != nil {
			return err
		}
		if err := tx.AdjustCustomerTotals(ctx, appt.CustomerID, -1, -appt.PriceCents); err != nil {
			return err
		}
		if err := tx.CancelReminderJobs(ctx, appt.ID); err != nil {
			return err
		}

		// The notification consumer renders from the event alone, so names
		// and contacts ride along.
		serviceName, employeeName := "", ""
		if svc, ok, err := tx.ServiceByID(ctx, appt.ServiceID); err != nil {
			return err
		} else if ok {
			serviceName = svc.Name
		}
		if emp, ok, err := tx.EmployeeByID(ctx, appt.EmployeeID); err != nil {
			return err
		} else if ok {
			employeeName = emp.DisplayName()
		}
		customerName, customerEmail, customerPhone := "", "", ""
		if c, ok, err := tx.CustomerByID(ctx, appt.CustomerID); err != nil {
			return err
		} else if ok {
			customerName = c.FirstName + " " + c.LastName
			customerEmail = c.Email
			customerPhone = c.Phone
		}

		payload, err := json.Marshal(map[string]any{
			"appointment_id": appt.ID,
			"employee_id":    appt.EmployeeID,
			"employee_name":  employeeName,
			"service_id":     appt.ServiceID,
			"service_name":   serviceName,
			"customer_id":    appt.CustomerID,
			"customer_name":  customerName,
			"customer_email": customerEmail,
			"customer_phone": customerPhone,
			"start_time":     appt.StartAt.UTC().Format(time.RFC3339),
			"end_time":       appt.EndAt.UTC().Format(time.RFC3339),
			"canceled_at":    canceledAt.Format(time.RFC3339),
			"reason":         reason,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertOutboxEvent(ctx, outbox.Event{
			AggregateType: "appointment",
			AggregateID:   appt.ID,
			EventType:     outbox.EventAppointmentCanceled,
			Payload:       payload,
		}); err != nil {
			return err
		}

		appt.Status = model.StatusCanceled
		appt.CanceledAt = &canceledAt
		appt.CancelReason = reason
		result = appt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Approve moves PENDING to APPROVED. Administrative action.
func (a *Arbiter) Approve(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	return a.transition(ctx, appointmentID, model.StatusPending, model.StatusApproved, outbox.EventAppointmentApproved)
}

// Complete moves APPROVED to COMPLETED. Administrative action.
func (a *Arbiter) Complete(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	return a.transition(ctx, appointmentID, model.StatusApproved, model.StatusCompleted, "")
}

func (a *Arbiter) transition(ctx context.Context, appointmentID string, from, to model.AppointmentStatus, eventType string) (*model.Appointment, error) {
	var result model.Appointment
	err := a.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, ok, err := tx.AppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownAppointment
		}
		if appt.Status != from {
			return invalid(ReasonInvalidTransition)
		}
		if err := tx.SetAppointmentStatus(ctx, appt.ID, to, nil, ""); err != nil {
			return err
		}
		if eventType != "" {
			// Same enrichment as Cancel: the notification consumer renders
			// from the event alone, so names and contacts ride along.
			serviceName, employeeName := "", ""
			if svc, ok, err := tx.ServiceByID(ctx, appt.ServiceID); err != nil {
				return err
			} else if ok {
				serviceName = svc.Name
			}
			if emp, ok, err := tx.EmployeeByID(ctx, appt.EmployeeID); err != nil {
				return err
			} else if ok {
				employeeName = emp.DisplayName()
			}
			customerName, customerEmail, customerPhone := "", "", ""
			if c, ok, err := tx.CustomerByID(ctx, appt.CustomerID); err != nil {
				return err
			} else if ok {
				customerName = c.FirstName + " " + c.LastName
				customerEmail = c.Email
				customerPhone = c.Phone
			}

			payload, err := json.Marshal(map[string]any{
				"appointment_id": appt.ID,
				"employee_id":    appt.EmployeeID,
				"employee_name":  employeeName,
				"service_id":     appt.ServiceID,
				"service_name":   serviceName,
				"customer_id":    appt.CustomerID,
				"customer_name":  customerName,
				"customer_email": customerEmail,
				"customer_phone": customerPhone,
				"start_time":     appt.StartAt.UTC().Format(time.RFC3339),
				"end_time":       appt.EndAt.UTC().Format(time.RFC3339),
				"status":         string(to),
			})
			if err != nil {
				return err
			}
			if err := tx.InsertOutboxEvent(ctx, outbox.Event{
				AggregateType: "appointment",
				AggregateID:   appt.ID,
				EventType:     eventType,
				Payload:       payload,
			}); err != nil {
				return err
			}
		}
		appt.Status = to
		result = appt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *Arbiter) emitBookedEvent(ctx context.Context, tx Tx, appt model.Appointment, customer CustomerInfo, svc model.Service, emp model.Employee) error {
	payload, err := json.Marshal(map[string]any{
		"appointment_id":    appt.ID,
		"service_id":        appt.ServiceID,
		"service_name":      svc.Name,
		"employee_id":       appt.EmployeeID,
		"employee_name":     emp.DisplayName(),
		"customer_id":       appt.CustomerID,
		"customer_name":     customer.FirstName + " " + customer.LastName,
		"customer_email":    customer.Email,
		"customer_phone":    customer.Phone,
		"start_time":        appt.StartAt.UTC().Format(time.RFC3339),
		"end_time":          appt.EndAt.UTC().Format(time.RFC3339),
		"status":            string(appt.Status),
		"total_price_cents": appt.PriceCents,
		"currency":          appt.Currency,
		"payment_method":    string(appt.PaymentMethod),
	})
	if err != nil {
		return err
	}
	return tx.InsertOutboxEvent(ctx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     outbox.EventAppointmentBooked,
		Payload:       payload,
	})
}

func (a *Arbiter) scheduleReminders(ctx context.Context, tx Tx, appt model.Appointment, customer CustomerInfo, svc model.Service, emp model.Employee, now time.Time) error {
	templateData := map[string]any{
		"customer_name": customer.FirstName + " " + customer.LastName,
		"service_name":  svc.Name,
		"employee_name": emp.DisplayName(),
		"start_time":    appt.StartAt.UTC().Format(time.RFC3339),
	}
	for _, offset := range a.reminderOffsets {
		remindAt := appt.StartAt.Add(-offset)
		if remindAt.Before(now) {
			continue
		}
		recipients := []struct {
			channel string
			to      string
		}{
			{"email", customer.Email},
			{"sms", customer.Phone},
		}
		for _, r := range recipients {
			if strings.TrimSpace(r.to) == "" {
				continue
			}
			job := reminders.Job{
				IdempotencyKey: fmt.Sprintf("%s:%s:%d", appt.ID, r.channel, int(offset.Minutes())),
				AppointmentID:  appt.ID,
				Channel:        r.channel,
				Recipient:      r.to,
				RemindAt:       remindAt,
				TemplateData:   templateData,
				MaxAttempts:    5,
			}
			if err := tx.InsertReminderJob(ctx, job); err != nil {
				return err
			}
		}
	}
	return nil
}

func normalize(req Request) Request {
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	req.Customer.FirstName = strings.TrimSpace(req.Customer.FirstName)
	req.Customer.LastName = strings.TrimSpace(req.Customer.LastName)
	req.Customer.Email = strings.ToLower(strings.TrimSpace(req.Customer.Email))
	req.Customer.Phone = strings.TrimSpace(req.Customer.Phone)
	if req.PaymentMethod == "" {
		req.PaymentMethod = model.PaymentOnSite
	}
	return req
}

func validateShape(cfg settings.Settings, req Request) error {
	if req.ServiceID == "" || req.EmployeeID == "" || req.StartAt.IsZero() ||
		req.Customer.FirstName == "" || req.Customer.LastName == "" || req.Customer.Email == "" {
		return invalid(ReasonMissingFields)
	}
	if !strings.Contains(req.Customer.Email, "@") {
		return invalid(ReasonInvalidEmail)
	}
	if cfg.RequirePhone && req.Customer.Phone == "" {
		return invalid(ReasonPhoneRequired)
	}
	switch req.PaymentMethod {
	case model.PaymentOnSite, model.PaymentComgate, model.PaymentStripe:
	default:
		return invalid(ReasonUnknownPayment)
	}
	return nil
}

func withinAnyWindow(proposed availability.Interval, windows []availability.Interval) bool {
	for _, w := range windows {
		if w.Contains(proposed) {
			return true
		}
	}
	return false
}
