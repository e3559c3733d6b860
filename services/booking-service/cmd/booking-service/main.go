package main

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pramenzivota/rezervace/libs/config"
	"github.com/pramenzivota/rezervace/libs/db"
	"github.com/pramenzivota/rezervace/libs/httpx"
	"github.com/pramenzivota/rezervace/libs/kafkax"
	otelx "github.com/pramenzivota/rezervace/libs/otel"
	"github.com/pramenzivota/rezervace/libs/runtime"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/arbiter"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/events"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/handlers"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/outbox"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/payments"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/reminders"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func parseReminderOffsets(raw string, logger *slog.Logger) []time.Duration {
	var offsets []time.Duration
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mins, err := strconv.Atoi(part)
		if err != nil || mins <= 0 {
			logger.Warn("invalid reminder offset", "value", part)
			continue
		}
		offsets = append(offsets, time.Duration(mins)*time.Minute)
	}
	if len(offsets) == 0 {
		offsets = []time.Duration{24 * time.Hour}
	}
	return offsets
}

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
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
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	store := storage.NewStore(pool)
	catalogRepo := storage.NewCatalogRepository(pool)
	appointmentRepo := storage.NewAppointmentRepository(pool)
	customerRepo := storage.NewCustomerRepository(pool)
	settingsRepo := storage.NewSettingsRepository(pool)
	paymentRepo := storage.NewPaymentRepository(pool)
	scheduleSrc := storage.NewScheduleSource(pool)

	eventRepo := storage.NewEventRepository(pool)

	offsets := parseReminderOffsets(config.String("REMINDER_OFFSETS_MINUTES", "1440,120"), logger)
	arb := arbiter.New(store, logger, offsets)
	registrar := events.NewRegistrar(storage.NewEventStore(pool), logger)

	brokers := config.String("KAFKA_BROKERS", "")
	outboxRepo := outbox.NewRepository()
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	reminderWorker := reminders.NewWorker(pool, reminders.NewRepository(), outboxRepo, logger, reminders.WorkerConfig{
		Interval:  time.Duration(config.Int("REMINDER_POLL_SECONDS", 5)) * time.Second,
		BatchSize: 50,
	})
	go reminderWorker.Run(ctx)

	comgate := payments.NewComgate(payments.ComgateConfig{
		Merchant: config.String("COMGATE_MERCHANT_ID", ""),
		Secret:   config.String("COMGATE_SECRET", ""),
		TestMode: config.Bool("COMGATE_TEST_MODE", true),
	})
	stripeProv := payments.NewStripe(config.String("STRIPE_SECRET_KEY", ""))

	publicHandler := handlers.NewPublicHandler(catalogRepo, scheduleSrc, settingsRepo, arb, logger)
	adminHandler := handlers.NewAdminHandler(catalogRepo, appointmentRepo, customerRepo, settingsRepo, arb, logger, handlers.AdminConfig{
		AdminEmail:        config.String("ADMIN_EMAIL", ""),
		AdminPasswordHash: config.String("ADMIN_PASSWORD_BCRYPT", ""),
		JWTSecret:         config.String("JWT_SECRET", ""),
		TokenTTL:          time.Duration(config.Int("ADMIN_TOKEN_TTL_HOURS", 12)) * time.Hour,
	})
	eventsHandler := handlers.NewEventsHandler(eventRepo, registrar, logger)
	paymentsHandler := handlers.NewPaymentsHandler(paymentRepo, appointmentRepo, customerRepo, settingsRepo, comgate, stripeProv, logger, handlers.PaymentsConfig{
		StripeWebhookSecret:    config.String("STRIPE_WEBHOOK_SECRET", ""),
		StripeWebhookTolerance: config.DurationSeconds("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 5*time.Minute),
	})

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMux(readyChecks...)

	mux.HandleFunc("/api/v1/public/services", publicHandler.ListServices)
	mux.HandleFunc("/api/v1/public/employees", publicHandler.ListEmployees)
	mux.HandleFunc("/api/v1/public/slots", publicHandler.Slots)
	mux.HandleFunc("/api/v1/public/book", publicHandler.Book)
	mux.HandleFunc("/api/v1/public/appointments/cancel", publicHandler.Cancel)
	mux.HandleFunc("/api/v1/public/events", eventsHandler.List)
	mux.HandleFunc("/api/v1/public/events/{id}/register", eventsHandler.Register)

	mux.HandleFunc("/api/v1/payments/create", paymentsHandler.Create)
	mux.HandleFunc("/api/v1/payments/stripe/webhook", paymentsHandler.StripeWebhook)
	mux.HandleFunc("/api/v1/payments/comgate/callback", paymentsHandler.ComgateCallback)

	mux.HandleFunc("/api/v1/admin/login", adminHandler.Login)
	mux.HandleFunc("/api/v1/admin/categories", adminHandler.Categories)
	mux.HandleFunc("/api/v1/admin/categories/{id}", adminHandler.CategoryByID)
	mux.HandleFunc("/api/v1/admin/services", adminHandler.Services)
	mux.HandleFunc("/api/v1/admin/services/{id}", adminHandler.ServiceByID)
	mux.HandleFunc("/api/v1/admin/employees", adminHandler.Employees)
	mux.HandleFunc("/api/v1/admin/employees/{id}", adminHandler.EmployeeByID)
	mux.HandleFunc("/api/v1/admin/employees/{id}/working-hours", adminHandler.WorkingHours)
	mux.HandleFunc("/api/v1/admin/employees/{id}/services", adminHandler.Qualifications)
	mux.HandleFunc("/api/v1/admin/appointments", adminHandler.Appointments)
	mux.HandleFunc("/api/v1/admin/appointments/{id}/approve", adminHandler.ApproveAppointment)
	mux.HandleFunc("/api/v1/admin/appointments/{id}/complete", adminHandler.CompleteAppointment)
	mux.HandleFunc("/api/v1/admin/appointments/{id}/cancel", adminHandler.CancelAppointment)
	mux.HandleFunc("/api/v1/admin/appointments/{id}/mark-paid", adminHandler.MarkPaid)
	mux.HandleFunc("/api/v1/admin/events", eventsHandler.AdminEvents)
	mux.HandleFunc("/api/v1/admin/events/{id}", eventsHandler.AdminEventByID)
	mux.HandleFunc("/api/v1/admin/events/{id}/registrations", eventsHandler.AdminRegistrations)
	mux.HandleFunc("/api/v1/admin/customers", adminHandler.Customers)
	mux.HandleFunc("/api/v1/admin/customers/{id}", adminHandler.CustomerByID)
	mux.HandleFunc("/api/v1/admin/stats", adminHandler.Stats)
	mux.HandleFunc("/api/v1/admin/settings", adminHandler.Settings)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
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
