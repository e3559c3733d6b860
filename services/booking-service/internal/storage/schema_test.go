package storage

import (
	"os"
	"regexp"
	"strings"
	"testing"
)

// The repositories in this package hand-write their SQL, so nothing but
// these tests catches a column referenced in a query that the migration
// never creates.

func loadSchema(t *testing.T) string {
	t.Helper()
	raw, err := os.ReadFile("../../migrations/001_schema.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	return string(raw)
}

// tableColumns extracts the column names of one CREATE TABLE block.
func tableColumns(t *testing.T, schema, table string) map[string]bool {
	t.Helper()
	re := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS ` + table + ` \((.*?)\n\);`)
	m := re.FindStringSubmatch(schema)
	if m == nil {
		t.Fatalf("table %s not found in schema", table)
	}

	cols := make(map[string]bool)
	for _, line := range strings.Split(m[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		first := strings.Fields(line)[0]
		switch first {
		case "CONSTRAINT", "UNIQUE", "PRIMARY", "FOREIGN", "CHECK", "EXCLUDE":
			continue
		}
		if regexp.MustCompile(`^[a-z_]+$`).MatchString(first) {
			cols[first] = true
		}
	}
	return cols
}

func TestOutboxTableHasPublisherColumns(t *testing.T) {
	cols := tableColumns(t, loadSchema(t), "outbox_events")

	// Every column the outbox repository selects, inserts or updates.
	for _, want := range []string{
		"id", "event_id", "aggregate_type", "aggregate_id", "event_type",
		"payload", "traceparent", "tracestate", "created_at", "published_at",
	} {
		if !cols[want] {
			t.Errorf("outbox_events is missing column %q", want)
		}
	}
}

func TestReminderJobsTableHasWorkerColumns(t *testing.T) {
	cols := tableColumns(t, loadSchema(t), "reminder_jobs")

	for _, want := range []string{
		"id", "idempotency_key", "appointment_id", "channel", "recipient",
		"remind_at", "template_data", "status", "next_run_at", "attempts",
		"max_attempts", "last_error", "traceparent", "tracestate",
		"created_at", "updated_at",
	} {
		if !cols[want] {
			t.Errorf("reminder_jobs is missing column %q", want)
		}
	}
}

func TestAppointmentsAcceptNotRequiredPaymentStatus(t *testing.T) {
	schema := loadSchema(t)
	re := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS appointments \(.*?\n\);`)
	block := re.FindString(schema)
	if block == "" {
		t.Fatal("appointments table not found in schema")
	}
	if !strings.Contains(block, "'NOT_REQUIRED'") {
		t.Error("appointments payment_status check does not accept NOT_REQUIRED")
	}
}

func TestEventRegistrationsUniquePerEmail(t *testing.T) {
	schema := loadSchema(t)
	re := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS event_registrations \(.*?\n\);`)
	block := re.FindString(schema)
	if block == "" {
		t.Fatal("event_registrations table not found in schema")
	}
	if !strings.Contains(block, "UNIQUE (event_id, email)") {
		t.Error("event_registrations is missing the per-email uniqueness")
	}
}
