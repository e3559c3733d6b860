package storage

import (
	"context"

	"github.com/pramenzivota/rezervace/libs/db"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/settings"
)

// SettingsRepository persists the single business settings row. Get seeds the
// defaults on first use so a fresh database behaves sensibly.
type SettingsRepository struct {
	pool *db.Pool
}

func NewSettingsRepository(pool *db.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

func (r *SettingsRepository) Get(ctx context.Context) (settings.Settings, error) {
	cfg := settings.Defaults()
	err := r.pool.QueryRow(ctx, `
		SELECT business_name, contact_email, contact_phone, address, timezone,
			min_lead_time_hours, max_advance_days, slot_step_minutes,
			auto_approve, pending_blocks_slots, allow_weekend_bookings,
			require_phone, default_currency, payment_provider
		FROM settings
		WHERE id = 1
	`).Scan(
		&cfg.BusinessName,
		&cfg.ContactEmail,
		&cfg.ContactPhone,
		&cfg.Address,
		&cfg.Timezone,
		&cfg.MinLeadTimeHours,
		&cfg.MaxAdvanceDays,
		&cfg.SlotStepMinutes,
		&cfg.AutoApprove,
		&cfg.PendingBlocksSlots,
		&cfg.AllowWeekendBookings,
		&cfg.RequirePhone,
		&cfg.DefaultCurrency,
		&cfg.PaymentProvider,
	)
	if IsNotFound(err) {
		defaults := settings.Defaults()
		if err := r.Update(ctx, defaults); err != nil {
			return defaults, err
		}
		return defaults, nil
	}
	if err != nil {
		return settings.Defaults(), err
	}
	return cfg, nil
}

func (r *SettingsRepository) Update(ctx context.Context, cfg settings.Settings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settings
			(id, business_name, contact_email, contact_phone, address, timezone,
			min_lead_time_hours, max_advance_days, slot_step_minutes,
			auto_approve, pending_blocks_slots, allow_weekend_bookings,
			require_phone, default_currency, payment_provider)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE
		SET business_name = EXCLUDED.business_name,
			contact_email = EXCLUDED.contact_email,
			contact_phone = EXCLUDED.contact_phone,
			address = EXCLUDED.address,
			timezone = EXCLUDED.timezone,
			min_lead_time_hours = EXCLUDED.min_lead_time_hours,
			max_advance_days = EXCLUDED.max_advance_days,
			slot_step_minutes = EXCLUDED.slot_step_minutes,
			auto_approve = EXCLUDED.auto_approve,
			pending_blocks_slots = EXCLUDED.pending_blocks_slots,
			allow_weekend_bookings = EXCLUDED.allow_weekend_bookings,
			require_phone = EXCLUDED.require_phone,
			default_currency = EXCLUDED.default_currency,
			payment_provider = EXCLUDED.payment_provider,
			updated_at = now()
	`, cfg.BusinessName, cfg.ContactEmail, cfg.ContactPhone, cfg.Address, cfg.Timezone,
		cfg.MinLeadTimeHours, cfg.MaxAdvanceDays, cfg.SlotStepMinutes,
		cfg.AutoApprove, cfg.PendingBlocksSlots, cfg.AllowWeekendBookings,
		cfg.RequirePhone, cfg.DefaultCurrency, cfg.PaymentProvider)
	return err
}
