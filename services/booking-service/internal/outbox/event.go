package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
)

// Event types double as Kafka topic names.
const (
	EventAppointmentRequested     = "booking.appointment.requested.v1"
	EventAppointmentStatusChanged = "booking.appointment.status_changed.v1"
	EventAppointmentReminder      = "booking.appointment.reminder.v1"

	AggregateAppointment = "appointment"
)

// Event is the domain event envelope written to the outbox alongside the state change.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Record is an outbox row waiting to be published.
type Record struct {
	Event
	Traceparent string
	Tracestate  string
	CreatedAt   time.Time
}

type AppointmentRequested struct {
	AppointmentID  string `json:"appointment_id"`
	ProviderID     string `json:"provider_id"`
	BusinessName   string `json:"business_name"`
	ProviderEmail  string `json:"provider_email"`
	NotifyProvider bool   `json:"notify_provider"`
	ClientName     string `json:"client_name"`
	ClientPhone    string `json:"client_phone"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Note           string `json:"note,omitempty"`
}

type AppointmentStatusChanged struct {
	AppointmentID  string `json:"appointment_id"`
	ProviderID     string `json:"provider_id"`
	BusinessName   string `json:"business_name"`
	ProviderEmail  string `json:"provider_email"`
	NotifyProvider bool   `json:"notify_provider"`
	ClientName     string `json:"client_name"`
	ClientPhone    string `json:"client_phone"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	From           string `json:"from"`
	To             string `json:"to"`
	InitiatedBy    string `json:"initiated_by"`
}

type AppointmentReminder struct {
	AppointmentID string `json:"appointment_id"`
	ProviderID    string `json:"provider_id"`
	BusinessName  string `json:"business_name"`
	ClientName    string `json:"client_name"`
	ClientPhone   string `json:"client_phone"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

func newEvent(eventType, appointmentID string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		EventID:       uuid.NewString(),
		AggregateType: AggregateAppointment,
		AggregateID:   appointmentID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}

func Requested(p model.Provider, a model.Appointment) (Event, error) {
	return newEvent(EventAppointmentRequested, a.ID, AppointmentRequested{
		AppointmentID:  a.ID,
		ProviderID:     p.ID,
		BusinessName:   p.BusinessName,
		ProviderEmail:  p.Email,
		NotifyProvider: p.Notifications.NotifyOnNew,
		ClientName:     a.ClientName,
		ClientPhone:    a.ClientPhone,
		Date:           a.Date,
		Time:           a.Time,
		Note:           a.Note,
	})
}

func StatusChanged(p model.Provider, a model.Appointment, from, to model.Status, initiatedBy string) (Event, error) {
	return newEvent(EventAppointmentStatusChanged, a.ID, AppointmentStatusChanged{
		AppointmentID:  a.ID,
		ProviderID:     p.ID,
		BusinessName:   p.BusinessName,
		ProviderEmail:  p.Email,
		NotifyProvider: p.Notifications.NotifyOnStatusChange,
		ClientName:     a.ClientName,
		ClientPhone:    a.ClientPhone,
		Date:           a.Date,
		Time:           a.Time,
		From:           string(from),
		To:             string(to),
		InitiatedBy:    initiatedBy,
	})
}

func Reminder(p model.Provider, a model.Appointment) (Event, error) {
	return newEvent(EventAppointmentReminder, a.ID, AppointmentReminder{
		AppointmentID: a.ID,
		ProviderID:    p.ID,
		BusinessName:  p.BusinessName,
		ClientName:    a.ClientName,
		ClientPhone:   a.ClientPhone,
		Date:          a.Date,
		Time:          a.Time,
	})
}
