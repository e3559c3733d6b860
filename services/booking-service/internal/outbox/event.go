package outbox

// Event is the domain event envelope written to the outbox table inside the
// booking transaction. The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	EventAppointmentBooked   = "booking.appointment.booked.v1"
	EventAppointmentApproved = "booking.appointment.approved.v1"
	EventAppointmentCanceled = "booking.appointment.canceled.v1"
	EventReminderDue         = "booking.reminder.due.v1"
	EventPaymentCompleted    = "booking.payment.completed.v1"
	EventRegistrationCreated = "booking.event.registered.v1"
)
