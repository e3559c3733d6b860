package email

import (
	"fmt"
	"strings"
)

// TemplateData carries everything the Czech customer-facing templates need.
// Date and Time are already formatted in the business timezone.
type TemplateData struct {
	AppointmentID string
	CustomerName  string
	ServiceName   string
	EmployeeName  string
	Date          string
	Time          string
	Price         string
	BusinessName  string
	BusinessPhone string
}

// Confirmation is sent right after a booking is committed.
func Confirmation(d TemplateData) (subject, body string) {
	subject = fmt.Sprintf("Potvrzení rezervace #%s - %s", shortID(d.AppointmentID), d.BusinessName)
	body = fmt.Sprintf(`Vážený/á %s,

Vaše rezervace byla úspěšně vytvořena.

Detaily:
- Služba: %s
- Datum: %s v %s
- Terapeut: %s
- Cena: %s

Prosím dostavte se 10 minut před začátkem.
Pro zrušení volejte nejpozději 24h předem.

S pozdravem,
%s
%s
`, d.CustomerName, d.ServiceName, d.Date, d.Time, d.EmployeeName, d.Price, d.BusinessName, d.BusinessPhone)
	return subject, body
}

// Approval is sent when a pending appointment is approved by the admin.
func Approval(d TemplateData) (subject, body string) {
	subject = fmt.Sprintf("Rezervace potvrzena #%s - %s", shortID(d.AppointmentID), d.BusinessName)
	body = fmt.Sprintf(`Vážený/á %s,

Vaše rezervace byla potvrzena.

Detaily:
- Služba: %s
- Datum: %s v %s
- Terapeut: %s

Prosím dostavte se 10 minut před začátkem.
Pro zrušení volejte nejpozději 24h předem.

S pozdravem,
%s
%s
`, d.CustomerName, d.ServiceName, d.Date, d.Time, d.EmployeeName, d.BusinessName, d.BusinessPhone)
	return subject, body
}

// Cancellation is sent when an appointment is canceled.
func Cancellation(d TemplateData) (subject, body string) {
	subject = fmt.Sprintf("Zrušení rezervace #%s - %s", shortID(d.AppointmentID), d.BusinessName)
	body = fmt.Sprintf(`Vážený/á %s,

Vaše rezervace byla zrušena.

Detaily zrušené rezervace:
- Služba: %s
- Datum: %s v %s
- Terapeut: %s

Pokud jste rezervaci nezrušili Vy, kontaktujte nás prosím.

S pozdravem,
%s
%s
`, d.CustomerName, d.ServiceName, d.Date, d.Time, d.EmployeeName, d.BusinessName, d.BusinessPhone)
	return subject, body
}

// Reminder is sent ahead of the appointment start.
func Reminder(d TemplateData) (subject, body string) {
	subject = fmt.Sprintf("Připomínka rezervace - %s v %s", d.Date, d.Time)
	body = fmt.Sprintf(`Vážený/á %s,

připomínáme Vaši nadcházející rezervaci.

- Služba: %s
- Datum: %s v %s
- Terapeut: %s

Prosím dostavte se 10 minut před začátkem.

S pozdravem,
%s
%s
`, d.CustomerName, d.ServiceName, d.Date, d.Time, d.EmployeeName, d.BusinessName, d.BusinessPhone)
	return subject, body
}

// ReminderSMS is the short single-segment variant for the SMS channel.
func ReminderSMS(d TemplateData) string {
	return fmt.Sprintf("%s: připomínáme rezervaci %s dne %s v %s. %s",
		d.BusinessName, d.ServiceName, d.Date, d.Time, d.BusinessPhone)
}

// EventData carries what the group-event registration email needs. Date and
// Time are already formatted in the business timezone.
type EventData struct {
	EventName       string
	ParticipantName string
	Date            string
	Time            string
	Location        string
	Instructor      string
	Price           string
	BusinessName    string
	BusinessPhone   string
}

// EventConfirmation is sent after a participant registers for a group event.
func EventConfirmation(d EventData) (subject, body string) {
	subject = fmt.Sprintf("Potvrzení registrace - %s", d.EventName)
	body = fmt.Sprintf(`Vážený/á %s,

děkujeme za registraci! Vaše registrace na událost byla úspěšně zpracována.

Detaily události:
- Název: %s
- Datum: %s v %s
- Místo: %s
- Instruktor: %s
- Cena: %s

Důležité informace:
- Dostavte se prosím 15 minut před začátkem.
- V ceně jsou zahrnuty všechny potřebné materiály.
- Zrušení je možné do 7 dnů před akcí.

S pozdravem,
%s
%s
`, d.ParticipantName, d.EventName, d.Date, d.Time, d.Location, d.Instructor,
		d.Price, d.BusinessName, d.BusinessPhone)
	return subject, body
}

// shortID keeps the first uuid group so subjects stay readable.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
