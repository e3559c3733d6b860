package email

import (
	"strings"
	"testing"
)

func sampleData() TemplateData {
	return TemplateData{
		AppointmentID: "3f2b1c0a-9d8e-4f00-b111-222233334444",
		CustomerName:  "Petr Dvořák",
		ServiceName:   "Klasická masáž",
		EmployeeName:  "Jana Nováková",
		Date:          "2.3.2026",
		Time:          "10:00",
		Price:         "900 CZK",
		BusinessName:  "Pramen života s.r.o.",
		BusinessPhone: "+420 123 456 789",
	}
}

func TestConfirmation(t *testing.T) {
	subject, body := Confirmation(sampleData())

	if !strings.Contains(subject, "Potvrzení rezervace #3f2b1c0a") {
		t.Fatalf("unexpected subject %q", subject)
	}
	if strings.Contains(subject, "-9d8e") {
		t.Fatalf("subject leaked the full uuid: %q", subject)
	}
	for _, want := range []string{
		"Vážený/á Petr Dvořák",
		"Služba: Klasická masáž",
		"Datum: 2.3.2026 v 10:00",
		"Terapeut: Jana Nováková",
		"Cena: 900 CZK",
		"Prosím dostavte se 10 minut před začátkem.",
		"+420 123 456 789",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("confirmation body missing %q:\n%s", want, body)
		}
	}
}

func TestApproval(t *testing.T) {
	subject, body := Approval(sampleData())

	if !strings.Contains(subject, "Rezervace potvrzena #3f2b1c0a") {
		t.Fatalf("unexpected subject %q", subject)
	}
	for _, want := range []string{
		"Vážený/á Petr Dvořák",
		"Vaše rezervace byla potvrzena.",
		"Služba: Klasická masáž",
		"Datum: 2.3.2026 v 10:00",
		"Terapeut: Jana Nováková",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("approval body missing %q:\n%s", want, body)
		}
	}
}

func TestCancellation(t *testing.T) {
	subject, body := Cancellation(sampleData())

	if !strings.Contains(subject, "Zrušení rezervace #3f2b1c0a") {
		t.Fatalf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, "Vaše rezervace byla zrušena.") {
		t.Fatalf("cancellation body missing cancellation notice:\n%s", body)
	}
	if strings.Contains(body, "Cena") {
		t.Fatal("cancellation body should not mention price")
	}
}

func TestReminder(t *testing.T) {
	subject, body := Reminder(sampleData())

	if subject != "Připomínka rezervace - 2.3.2026 v 10:00" {
		t.Fatalf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, "připomínáme Vaši nadcházející rezervaci") {
		t.Fatalf("reminder body missing notice:\n%s", body)
	}
}

func TestReminderSMS(t *testing.T) {
	sms := ReminderSMS(sampleData())
	for _, want := range []string{"Klasická masáž", "2.3.2026", "10:00", "+420 123 456 789"} {
		if !strings.Contains(sms, want) {
			t.Fatalf("sms missing %q: %q", want, sms)
		}
	}
	if strings.Contains(sms, "\n") {
		t.Fatalf("sms should be single line: %q", sms)
	}
}

func TestEventConfirmation(t *testing.T) {
	subject, body := EventConfirmation(EventData{
		EventName:       "Večer dechových technik",
		ParticipantName: "Petr Dvořák",
		Date:            "2.3.2026",
		Time:            "18:00",
		Location:        "Studio Pramen",
		Instructor:      "Jana Nováková",
		Price:           "500 CZK",
		BusinessName:    "Pramen života s.r.o.",
		BusinessPhone:   "+420 123 456 789",
	})

	if subject != "Potvrzení registrace - Večer dechových technik" {
		t.Fatalf("unexpected subject %q", subject)
	}
	for _, want := range []string{
		"Vážený/á Petr Dvořák",
		"Název: Večer dechových technik",
		"Datum: 2.3.2026 v 18:00",
		"Místo: Studio Pramen",
		"Instruktor: Jana Nováková",
		"Cena: 500 CZK",
		"Dostavte se prosím 15 minut před začátkem.",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("event confirmation body missing %q:\n%s", want, body)
		}
	}
}

func TestShortIDWithoutDash(t *testing.T) {
	if got := shortID("plain"); got != "plain" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}
