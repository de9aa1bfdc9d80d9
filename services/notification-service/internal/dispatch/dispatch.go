package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/slotdesk/libs/kafkax"
	"github.com/md-rashed-zaman/slotdesk/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/slotdesk/services/notification-service/internal/sms"
)

const (
	EventAppointmentRequested     = "booking.appointment.requested.v1"
	EventAppointmentStatusChanged = "booking.appointment.status_changed.v1"
	EventAppointmentReminder      = "booking.appointment.reminder.v1"
)

// Topics lists every event the dispatcher understands.
func Topics() []string {
	return []string{EventAppointmentRequested, EventAppointmentStatusChanged, EventAppointmentReminder}
}

type appointmentRequested struct {
	AppointmentID  string `json:"appointment_id"`
	BusinessName   string `json:"business_name"`
	ProviderEmail  string `json:"provider_email"`
	NotifyProvider bool   `json:"notify_provider"`
	ClientName     string `json:"client_name"`
	ClientPhone    string `json:"client_phone"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Note           string `json:"note"`
}

type statusChanged struct {
	AppointmentID  string `json:"appointment_id"`
	BusinessName   string `json:"business_name"`
	ProviderEmail  string `json:"provider_email"`
	NotifyProvider bool   `json:"notify_provider"`
	ClientName     string `json:"client_name"`
	ClientPhone    string `json:"client_phone"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	From           string `json:"from"`
	To             string `json:"to"`
}

type reminder struct {
	AppointmentID string `json:"appointment_id"`
	BusinessName  string `json:"business_name"`
	ClientName    string `json:"client_name"`
	ClientPhone   string `json:"client_phone"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

// Dispatcher turns booking events into provider emails and client text messages.
type Dispatcher struct {
	email  email.Sender
	sms    sms.Sender
	logger *slog.Logger
}

func New(emailSender email.Sender, smsSender sms.Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{email: emailSender, sms: smsSender, logger: logger}
}

// Handle returns an error only for delivery failures worth retrying. Malformed
// and unknown events are logged and dropped.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)
	switch meta.EventType {
	case EventAppointmentRequested:
		var p appointmentRequested
		if !d.decode(msg, meta, &p) {
			return nil
		}
		return d.requested(p)
	case EventAppointmentStatusChanged:
		var p statusChanged
		if !d.decode(msg, meta, &p) {
			return nil
		}
		return d.statusChanged(ctx, p)
	case EventAppointmentReminder:
		var p reminder
		if !d.decode(msg, meta, &p) {
			return nil
		}
		return d.reminder(ctx, p)
	default:
		d.logger.Warn("unhandled event type", "event_type", meta.EventType, "event_id", meta.EventID)
		return nil
	}
}

func (d *Dispatcher) decode(msg kafka.Message, meta kafkax.EventMeta, dst any) bool {
	if err := json.Unmarshal(msg.Value, dst); err != nil {
		d.logger.Error("invalid event payload", "err", err, "event_type", meta.EventType, "event_id", meta.EventID)
		return false
	}
	return true
}

func (d *Dispatcher) requested(p appointmentRequested) error {
	if !p.NotifyProvider || p.ProviderEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("New appointment request: %s on %s at %s", p.ClientName, p.Date, p.Time)
	var b strings.Builder
	fmt.Fprintf(&b, "%s requested an appointment with %s.\n\n", p.ClientName, p.BusinessName)
	fmt.Fprintf(&b, "Date: %s\nTime: %s\nPhone: %s\n", p.Date, p.Time, p.ClientPhone)
	if p.Note != "" {
		fmt.Fprintf(&b, "Note: %s\n", p.Note)
	}
	b.WriteString("\nConfirm or reject it from your dashboard.")
	if err := d.email.Send(p.ProviderEmail, subject, b.String()); err != nil {
		return fmt.Errorf("email provider: %w", err)
	}
	d.logger.Info("provider notified", "appointment_id", p.AppointmentID, "channel", "email")
	return nil
}

func (d *Dispatcher) statusChanged(ctx context.Context, p statusChanged) error {
	var errs []error
	if p.ClientPhone != "" {
		body := prefixed(p.BusinessName, fmt.Sprintf("Your appointment on %s at %s is now %s.", p.Date, p.Time, p.To))
		if err := d.sms.Send(ctx, p.ClientPhone, body); err != nil {
			errs = append(errs, fmt.Errorf("sms client: %w", err))
		} else {
			d.logger.Info("client notified", "appointment_id", p.AppointmentID, "channel", "sms", "provider", d.sms.ProviderID())
		}
	}
	if p.NotifyProvider && p.ProviderEmail != "" {
		subject := fmt.Sprintf("Appointment %s: %s on %s at %s", p.To, p.ClientName, p.Date, p.Time)
		body := fmt.Sprintf("The appointment with %s on %s at %s moved from %s to %s.", p.ClientName, p.Date, p.Time, p.From, p.To)
		if err := d.email.Send(p.ProviderEmail, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("email provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) reminder(ctx context.Context, p reminder) error {
	if p.ClientPhone == "" {
		d.logger.Warn("reminder without phone", "appointment_id", p.AppointmentID)
		return nil
	}
	body := prefixed(p.BusinessName, fmt.Sprintf("Hi %s, this is a reminder of your appointment on %s at %s.", p.ClientName, p.Date, p.Time))
	if err := d.sms.Send(ctx, p.ClientPhone, body); err != nil {
		return fmt.Errorf("sms reminder: %w", err)
	}
	d.logger.Info("reminder sent", "appointment_id", p.AppointmentID, "provider", d.sms.ProviderID())
	return nil
}

func prefixed(business, body string) string {
	if business == "" {
		return body
	}
	return "[" + business + "] " + body
}
