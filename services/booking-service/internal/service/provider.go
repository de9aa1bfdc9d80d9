package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/outbox"
)

const initiatedByProvider = "provider"

// ProviderAppointments lists newest first, optionally narrowed by status and a
// name or phone query.
func (s *Service) ProviderAppointments(ctx context.Context, providerID, status, q string) ([]model.Appointment, error) {
	if _, err := s.session(ctx, providerID); err != nil {
		return nil, err
	}
	appts, err := s.store.ProviderAppointments(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if status = strings.TrimSpace(status); status != "" {
		st, err := model.ParseStatus(status)
		if err != nil {
			return nil, &ValidationError{Fields: map[string]string{"status": err.Error()}}
		}
		appts = lifecycle.ByStatus(appts, providerID, st)
	}
	return lifecycle.NewestFirst(lifecycle.Search(appts, q)), nil
}

func (s *Service) ownAppointment(ctx context.Context, providerID, id string) (model.Provider, []model.Appointment, model.Appointment, error) {
	p, err := s.session(ctx, providerID)
	if err != nil {
		return model.Provider{}, nil, model.Appointment{}, err
	}
	appts, err := s.store.ProviderAppointments(ctx, providerID)
	if err != nil {
		return model.Provider{}, nil, model.Appointment{}, err
	}
	a, ok := lifecycle.Find(appts, id)
	if !ok {
		return model.Provider{}, nil, model.Appointment{}, ErrNotFound
	}
	return p, appts, a, nil
}

// SetAppointmentStatus applies a provider decision. Illegal transitions return
// lifecycle.ErrInvalidTransition; a concurrent change returns storage.ErrConflict.
func (s *Service) SetAppointmentStatus(ctx context.Context, providerID, id string, to model.Status) (model.Appointment, error) {
	p, appts, _, err := s.ownAppointment(ctx, providerID, id)
	if err != nil {
		return model.Appointment{}, err
	}
	_, change, err := lifecycle.SetStatus(appts, id, to, s.now())
	if err != nil {
		return model.Appointment{}, notFound(err)
	}
	evt, err := outbox.StatusChanged(p, change.Appointment, change.From, change.To, initiatedByProvider)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := s.store.TransitionStatus(ctx, id, change.From, change.To, evt); err != nil {
		return model.Appointment{}, notFound(err)
	}
	s.logger.InfoContext(ctx, "appointment status changed",
		"appointment_id", id,
		"provider_id", providerID,
		"from", change.From,
		"to", change.To,
	)
	return change.Appointment, nil
}

// SendReminder marks the reminder as sent. The reminder event is emitted only the
// first time; sent reports whether this call did it.
func (s *Service) SendReminder(ctx context.Context, providerID, id string) (appt model.Appointment, sent bool, err error) {
	p, _, a, err := s.ownAppointment(ctx, providerID, id)
	if err != nil {
		return model.Appointment{}, false, err
	}
	if a.Status == model.StatusRejected {
		return model.Appointment{}, false, ErrReminderRejected
	}
	evt, err := outbox.Reminder(p, a)
	if err != nil {
		return model.Appointment{}, false, err
	}
	sent, err = s.store.MarkReminderSent(ctx, id, evt)
	if err != nil {
		return model.Appointment{}, false, notFound(err)
	}
	if sent {
		s.logger.InfoContext(ctx, "appointment reminder queued", "appointment_id", id, "provider_id", providerID)
	}
	a.ReminderSent = true
	return a, sent, nil
}

func (s *Service) Clients(ctx context.Context, providerID string) ([]model.Client, error) {
	if _, err := s.session(ctx, providerID); err != nil {
		return nil, err
	}
	appts, err := s.store.ProviderAppointments(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return lifecycle.Clients(appts, providerID), nil
}

// ClientHistory returns one client's appointments, latest visit first.
func (s *Service) ClientHistory(ctx context.Context, providerID, phone string) ([]model.Appointment, error) {
	if _, err := s.session(ctx, providerID); err != nil {
		return nil, err
	}
	appts, err := s.store.ProviderAppointments(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return lifecycle.ByVisitDesc(lifecycle.ByPhone(appts, providerID, phone)), nil
}

func (s *Service) Settings(ctx context.Context, providerID string) (model.Provider, error) {
	return s.session(ctx, providerID)
}

// SettingsUpdate carries the fields a provider may change. Nil fields are left
// as they are; Availability replaces the whole weekly schedule.
type SettingsUpdate struct {
	Name          *string
	BusinessName  *string
	BusinessType  *model.BusinessType
	Slug          *string
	Email         *string
	Password      *string
	LogoURL       *string
	HeaderColor   *string
	Notifications *model.NotificationPrefs
	Availability  *[]model.RecurringSlot
}

// UpdateSettings saves only provider-editable fields, so an admin activation
// change made meanwhile is kept.
func (s *Service) UpdateSettings(ctx context.Context, providerID string, u SettingsUpdate) (model.Provider, error) {
	p, err := s.session(ctx, providerID)
	if err != nil {
		return model.Provider{}, err
	}
	problems := map[string]string{}

	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
		if p.Name == "" {
			problems["name"] = "must not be empty"
		}
	}
	if u.BusinessName != nil {
		p.BusinessName = strings.TrimSpace(*u.BusinessName)
		if p.BusinessName == "" {
			problems["business_name"] = "must not be empty"
		}
	}
	if u.BusinessType != nil {
		if !u.BusinessType.Valid() {
			problems["business_type"] = "unknown business type"
		}
		p.BusinessType = *u.BusinessType
	}
	if u.Slug != nil {
		p.Slug = directory.CleanSlug(*u.Slug)
		if p.Slug == "" {
			problems["slug"] = directory.ErrEmptySlug.Error()
		}
	}
	if u.Email != nil {
		p.Email = strings.ToLower(strings.TrimSpace(*u.Email))
		if p.Email == "" {
			problems["email"] = "must not be empty"
		}
	}
	if u.LogoURL != nil {
		p.LogoURL = strings.TrimSpace(*u.LogoURL)
	}
	if u.HeaderColor != nil {
		p.HeaderColor = strings.TrimSpace(*u.HeaderColor)
	}
	if u.Notifications != nil {
		p.Notifications = *u.Notifications
	}
	if u.Availability != nil {
		slots := s.withSlotIDs(*u.Availability)
		if err := availability.Validate(slots); err != nil {
			var se *availability.SlotError
			if errors.As(err, &se) {
				for i, msg := range se.Problems {
					problems[fmt.Sprintf("availability[%d]", i)] = msg
				}
			} else {
				problems["availability"] = err.Error()
			}
		}
		p.Availability = slots
	}
	if u.Password != nil {
		hash, err := s.hasher.Hash(*u.Password)
		if err != nil {
			problems["password"] = err.Error()
		} else {
			p.PasswordHash = hash
		}
	}
	if len(problems) > 0 {
		return model.Provider{}, &ValidationError{Fields: problems}
	}

	if err := s.store.UpdateProvider(ctx, p); err != nil {
		return model.Provider{}, notFound(err)
	}
	s.logger.InfoContext(ctx, "provider settings updated", "provider_id", providerID)
	return s.provider(ctx, providerID)
}

func (s *Service) withSlotIDs(in []model.RecurringSlot) []model.RecurringSlot {
	out := make([]model.RecurringSlot, len(in))
	for i, slot := range in {
		slot.Start = strings.TrimSpace(slot.Start)
		slot.End = strings.TrimSpace(slot.End)
		if slot.ID == "" {
			slot.ID = s.newID()
		}
		out[i] = slot
	}
	return out
}
