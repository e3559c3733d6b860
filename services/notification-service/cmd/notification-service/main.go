package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pramenzivota/rezervace/libs/config"
	"github.com/pramenzivota/rezervace/libs/db"
	"github.com/pramenzivota/rezervace/libs/httpx"
	"github.com/pramenzivota/rezervace/libs/kafkax"
	otelx "github.com/pramenzivota/rezervace/libs/otel"
	"github.com/pramenzivota/rezervace/libs/runtime"
	"github.com/pramenzivota/rezervace/services/notification-service/internal/consumer"
	"github.com/pramenzivota/rezervace/services/notification-service/internal/email"
	"github.com/pramenzivota/rezervace/services/notification-service/internal/inbox"
	"github.com/pramenzivota/rezervace/services/notification-service/internal/sms"
	"github.com/pramenzivota/rezervace/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// appointmentPayload covers the booked and canceled event shapes; unused
// fields stay empty.
type appointmentPayload struct {
	AppointmentID   string `json:"appointment_id"`
	ServiceName     string `json:"service_name"`
	EmployeeName    string `json:"employee_name"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	StartTime       string `json:"start_time"`
	TotalPriceCents int64  `json:"total_price_cents"`
	Currency        string `json:"currency"`
}

type eventRegistrationPayload struct {
	RegistrationID   string `json:"registration_id"`
	EventName        string `json:"event_name"`
	StartsAt         string `json:"starts_at"`
	Location         string `json:"location"`
	Instructor       string `json:"instructor"`
	ParticipantName  string `json:"participant_name"`
	ParticipantEmail string `json:"participant_email"`
	PriceCents       int64  `json:"price_cents"`
	Currency         string `json:"currency"`
}

type reminderPayload struct {
	AppointmentID string         `json:"appointment_id"`
	Channel       string         `json:"channel"`
	Recipient     string         `json:"recipient"`
	RemindAt      string         `json:"remind_at"`
	TemplateData  map[string]any `json:"template_data"`
}

type app struct {
	logger        *slog.Logger
	notifications *storage.Repository
	email         email.Sender
	sms           sms.Sender
	businessName  string
	businessPhone string
	location      *time.Location
}

func (a *app) templateData(appointmentID, customerName, serviceName, employeeName, startRFC3339, price string) email.TemplateData {
	date, clock := "", ""
	if t, err := time.Parse(time.RFC3339, startRFC3339); err == nil {
		local := t.In(a.location)
		date = local.Format("2.1.2006")
		clock = local.Format("15:04")
	}
	return email.TemplateData{
		AppointmentID: appointmentID,
		CustomerName:  customerName,
		ServiceName:   serviceName,
		EmployeeName:  employeeName,
		Date:          date,
		Time:          clock,
		Price:         price,
		BusinessName:  a.businessName,
		BusinessPhone: a.businessPhone,
	}
}

func formatPrice(cents int64, currency string) string {
	if cents <= 0 {
		return ""
	}
	whole := cents / 100
	if currency == "" {
		currency = "CZK"
	}
	return fmt.Sprintf("%d %s", whole, currency)
}

func (a *app) record(ctx context.Context, n storage.Notification) {
	if err := a.notifications.Insert(ctx, n); err != nil {
		a.logger.Error("failed to persist notification", "err", err)
	}
}

// handleBooked sends the confirmation email for a new appointment.
func (a *app) handleBooked(ctx context.Context, msg kafka.Message) error {
	var p appointmentPayload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		a.logger.Error("invalid booked payload", "err", err)
		return nil
	}
	if p.AppointmentID == "" || p.CustomerEmail == "" {
		a.logger.Error("missing booked fields", "appointment_id", p.AppointmentID)
		return nil
	}

	data := a.templateData(p.AppointmentID, p.CustomerName, p.ServiceName, p.EmployeeName,
		p.StartTime, formatPrice(p.TotalPriceCents, p.Currency))
	subject, body := email.Confirmation(data)

	status, reason := "sent", ""
	if err := a.email.Send(p.CustomerEmail, subject, body); err != nil {
		status, reason = "failed", err.Error()
		a.logger.Error("confirmation email failed", "err", err, "recipient", p.CustomerEmail)
	}
	a.record(ctx, storage.Notification{
		AppointmentID: p.AppointmentID,
		Kind:          "confirmation",
		Channel:       "email",
		Recipient:     p.CustomerEmail,
		Payload:       map[string]any{"service_name": p.ServiceName, "start_time": p.StartTime},
		Status:        status,
		ErrorReason:   reason,
	})
	a.logger.Info("booked event processed", "appointment_id", p.AppointmentID, "status", status)
	return nil
}

// handleApproved tells the customer their pending appointment went through.
func (a *app) handleApproved(ctx context.Context, msg kafka.Message) error {
	var p appointmentPayload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		a.logger.Error("invalid approved payload", "err", err)
		return nil
	}
	if p.AppointmentID == "" || p.CustomerEmail == "" {
		a.logger.Info("approved event without recipient", "appointment_id", p.AppointmentID)
		return nil
	}

	data := a.templateData(p.AppointmentID, p.CustomerName, p.ServiceName, p.EmployeeName, p.StartTime, "")
	subject, body := email.Approval(data)

	status, reason := "sent", ""
	if err := a.email.Send(p.CustomerEmail, subject, body); err != nil {
		status, reason = "failed", err.Error()
		a.logger.Error("approval email failed", "err", err, "recipient", p.CustomerEmail)
	}
	a.record(ctx, storage.Notification{
		AppointmentID: p.AppointmentID,
		Kind:          "approval",
		Channel:       "email",
		Recipient:     p.CustomerEmail,
		Payload:       map[string]any{"service_name": p.ServiceName, "start_time": p.StartTime},
		Status:        status,
		ErrorReason:   reason,
	})
	a.logger.Info("approved event processed", "appointment_id", p.AppointmentID, "status", status)
	return nil
}

func (a *app) handleCanceled(ctx context.Context, msg kafka.Message) error {
	var p appointmentPayload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		a.logger.Error("invalid canceled payload", "err", err)
		return nil
	}
	if p.AppointmentID == "" || p.CustomerEmail == "" {
		a.logger.Info("canceled event without recipient", "appointment_id", p.AppointmentID)
		return nil
	}

	data := a.templateData(p.AppointmentID, p.CustomerName, p.ServiceName, p.EmployeeName, p.StartTime, "")
	subject, body := email.Cancellation(data)

	status, reason := "sent", ""
	if err := a.email.Send(p.CustomerEmail, subject, body); err != nil {
		status, reason = "failed", err.Error()
		a.logger.Error("cancellation email failed", "err", err, "recipient", p.CustomerEmail)
	}
	a.record(ctx, storage.Notification{
		AppointmentID: p.AppointmentID,
		Kind:          "cancellation",
		Channel:       "email",
		Recipient:     p.CustomerEmail,
		Payload:       map[string]any{"service_name": p.ServiceName, "start_time": p.StartTime},
		Status:        status,
		ErrorReason:   reason,
	})
	a.logger.Info("canceled event processed", "appointment_id", p.AppointmentID, "status", status)
	return nil
}

// handleEventRegistered confirms a group-event registration.
func (a *app) handleEventRegistered(ctx context.Context, msg kafka.Message) error {
	var p eventRegistrationPayload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		a.logger.Error("invalid registration payload", "err", err)
		return nil
	}
	if p.RegistrationID == "" || p.ParticipantEmail == "" {
		a.logger.Error("missing registration fields", "registration_id", p.RegistrationID)
		return nil
	}

	date, clock := "", ""
	if t, err := time.Parse(time.RFC3339, p.StartsAt); err == nil {
		local := t.In(a.location)
		date = local.Format("2.1.2006")
		clock = local.Format("15:04")
	}
	subject, body := email.EventConfirmation(email.EventData{
		EventName:       p.EventName,
		ParticipantName: p.ParticipantName,
		Date:            date,
		Time:            clock,
		Location:        p.Location,
		Instructor:      p.Instructor,
		Price:           formatPrice(p.PriceCents, p.Currency),
		BusinessName:    a.businessName,
		BusinessPhone:   a.businessPhone,
	})

	status, reason := "sent", ""
	if err := a.email.Send(p.ParticipantEmail, subject, body); err != nil {
		status, reason = "failed", err.Error()
		a.logger.Error("registration email failed", "err", err, "recipient", p.ParticipantEmail)
	}
	a.record(ctx, storage.Notification{
		AppointmentID: p.RegistrationID,
		Kind:          "event_registration",
		Channel:       "email",
		Recipient:     p.ParticipantEmail,
		Payload:       map[string]any{"event_name": p.EventName, "starts_at": p.StartsAt},
		Status:        status,
		ErrorReason:   reason,
	})
	a.logger.Info("registration event processed", "registration_id", p.RegistrationID, "status", status)
	return nil
}

func (a *app) handleReminder(ctx context.Context, msg kafka.Message) error {
	var p reminderPayload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		a.logger.Error("invalid reminder payload", "err", err)
		return nil
	}
	if p.AppointmentID == "" || p.Channel == "" || p.Recipient == "" {
		a.logger.Error("missing reminder fields", "appointment_id", p.AppointmentID)
		return nil
	}

	str := func(key string) string {
		v, _ := p.TemplateData[key].(string)
		return v
	}
	data := a.templateData(p.AppointmentID, str("customer_name"), str("service_name"), str("employee_name"), str("start_time"), "")

	status, reason := "sent", ""
	switch strings.ToLower(p.Channel) {
	case "email":
		subject, body := email.Reminder(data)
		if err := a.email.Send(p.Recipient, subject, body); err != nil {
			status, reason = "failed", err.Error()
			a.logger.Error("reminder email failed", "err", err, "recipient", p.Recipient)
		}
	case "sms":
		if err := a.sms.Send(ctx, p.Recipient, email.ReminderSMS(data)); err != nil {
			status, reason = "failed", err.Error()
			a.logger.Error("reminder sms failed", "err", err, "recipient", p.Recipient)
		}
	default:
		status, reason = "failed", "unsupported channel: "+p.Channel
		a.logger.Error("unsupported channel", "channel", p.Channel)
	}

	a.record(ctx, storage.Notification{
		AppointmentID: p.AppointmentID,
		Kind:          "reminder",
		Channel:       strings.ToLower(p.Channel),
		Recipient:     p.Recipient,
		Payload:       p.TemplateData,
		Status:        status,
		ErrorReason:   reason,
	})
	a.logger.Info("reminder processed", "appointment_id", p.AppointmentID, "channel", p.Channel, "status", status)
	return nil
}

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	loc, err := time.LoadLocation(config.String("BUSINESS_TIMEZONE", "Europe/Prague"))
	if err != nil {
		logger.Warn("unknown timezone, using UTC", "err", err)
		loc = time.UTC
	}

	emailSender := email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@pramenzivota.cz"),
	)

	var smsSender sms.Sender
	switch strings.ToLower(config.String("SMS_PROVIDER", "noop")) {
	case "webhook":
		smsSender = sms.NewWebhookSender(config.String("SMS_WEBHOOK_URL", ""), config.String("SMS_WEBHOOK_TOKEN", ""))
	default:
		smsSender = sms.NewNoopSender()
	}

	a := &app{
		logger:        logger,
		notifications: storage.NewRepository(pool),
		email:         emailSender,
		sms:           smsSender,
		businessName:  config.String("BUSINESS_NAME", "Pramen života"),
		businessPhone: config.String("BUSINESS_PHONE", "+420 123 456 789"),
		location:      loc,
	}

	inboxRepo := inbox.NewRepository(pool)
	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	startConsumer := func(topic string, handler consumer.Handler) {
		if strings.TrimSpace(topic) == "" {
			return
		}
		c := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handler)
		go c.Run(ctx)
	}

	startConsumer(config.String("TOPIC_BOOKED", "booking.appointment.booked.v1"), a.handleBooked)
	startConsumer(config.String("TOPIC_APPROVED", "booking.appointment.approved.v1"), a.handleApproved)
	startConsumer(config.String("TOPIC_CANCELED", "booking.appointment.canceled.v1"), a.handleCanceled)
	startConsumer(config.String("TOPIC_REMINDER_DUE", "booking.reminder.due.v1"), a.handleReminder)
	startConsumer(config.String("TOPIC_EVENT_REGISTERED", "booking.event.registered.v1"), a.handleEventRegistered)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
