package service

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/accounts"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/storage"
)

// PublicProfile is what a customer sees on a provider's booking page.
type PublicProfile struct {
	Slug            string             `json:"slug"`
	Name            string             `json:"name"`
	BusinessName    string             `json:"business_name"`
	BusinessType    model.BusinessType `json:"business_type"`
	LogoURL         string             `json:"logo_url,omitempty"`
	HeaderColor     string             `json:"header_color,omitempty"`
	HasAvailability bool               `json:"has_availability"`
}

func (s *Service) PublicProvider(ctx context.Context, slug string) (PublicProfile, error) {
	p, err := s.activeProvider(ctx, slug)
	if err != nil {
		return PublicProfile{}, err
	}
	return PublicProfile{
		Slug:            p.Slug,
		Name:            p.Name,
		BusinessName:    p.BusinessName,
		BusinessType:    p.BusinessType,
		LogoURL:         p.LogoURL,
		HeaderColor:     p.HeaderColor,
		HasAvailability: len(p.Availability) > 0,
	}, nil
}

type DaySlots struct {
	Date            string `json:"date"`
	HasAvailability bool   `json:"has_availability"`
	// Open is false when no recurring slot falls on the date's weekday.
	Open       bool                `json:"open"`
	Candidates []booking.Candidate `json:"slots"`
}

// Slots resolves the bookable times for date and marks the occupied ones.
func (s *Service) Slots(ctx context.Context, slug, date string) (DaySlots, error) {
	p, err := s.activeProvider(ctx, slug)
	if err != nil {
		return DaySlots{}, err
	}
	day, err := model.ParseDate(date)
	if err != nil {
		return DaySlots{}, err
	}
	if date < s.now().Format(model.DateLayout) {
		return DaySlots{}, booking.ErrPastDate
	}
	appts, err := s.store.ProviderAppointments(ctx, p.ID)
	if err != nil {
		return DaySlots{}, err
	}
	return DaySlots{
		Date:            date,
		HasAvailability: len(p.Availability) > 0,
		Open:            availability.HasDay(p.Availability, day),
		Candidates:      booking.Candidates(p, appts, day),
	}, nil
}

type BookRequest struct {
	Date        string
	Time        string
	ClientName  string
	ClientPhone string
	Note        string
}

// eventClaimer claims a slot and records the matching requested event.
type eventClaimer struct {
	store    storage.Store
	provider model.Provider
}

func (c eventClaimer) ClaimSlot(ctx context.Context, appt model.Appointment) error {
	evt, err := outbox.Requested(c.provider, appt)
	if err != nil {
		return err
	}
	return c.store.ClaimSlot(ctx, appt, evt)
}

// Book walks a workflow from slot selection to submission in one call. The
// candidate list is resolved fresh so a stale client view still gets ErrSlotTaken.
func (s *Service) Book(ctx context.Context, slug string, req BookRequest) (model.Appointment, error) {
	p, err := s.activeProvider(ctx, slug)
	if err != nil {
		return model.Appointment{}, err
	}
	w := booking.NewWorkflow(p.ID)
	if err := w.SelectDate(req.Date, s.now()); err != nil {
		return model.Appointment{}, err
	}
	day, err := model.ParseDate(req.Date)
	if err != nil {
		return model.Appointment{}, err
	}
	appts, err := s.store.ProviderAppointments(ctx, p.ID)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := w.SelectTime(req.Time, booking.Candidates(p, appts, day)); err != nil {
		return model.Appointment{}, err
	}
	if err := w.Continue(); err != nil {
		return model.Appointment{}, err
	}
	if err := w.EnterDetails(booking.Details{ClientName: req.ClientName, ClientPhone: req.ClientPhone, Note: req.Note}); err != nil {
		return model.Appointment{}, err
	}
	appt, err := w.Submit(ctx, eventClaimer{store: s.store, provider: p}, s.now(), s.newID)
	if err != nil {
		return model.Appointment{}, err
	}
	s.logger.InfoContext(ctx, "appointment requested",
		"appointment_id", appt.ID,
		"provider_id", p.ID,
		"date", appt.Date,
		"time", appt.Time,
	)
	return appt, nil
}

// MyBookings lists a customer's appointments with one provider, latest visit first.
func (s *Service) MyBookings(ctx context.Context, slug, phone string) ([]model.Appointment, error) {
	p, err := s.activeProvider(ctx, slug)
	if err != nil {
		return nil, err
	}
	appts, err := s.store.ProviderAppointments(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return lifecycle.ByVisitDesc(lifecycle.ByPhone(appts, p.ID, phone)), nil
}

type Session struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	Role       string    `json:"role"`
	ProviderID string    `json:"provider_id,omitempty"`
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	var lookup accounts.ProviderLookup = func(ctx context.Context, email string) (model.Provider, bool, error) {
		p, err := s.store.ProviderByEmail(ctx, email)
		if errors.Is(err, storage.ErrNotFound) {
			return model.Provider{}, false, nil
		}
		if err != nil {
			return model.Provider{}, false, err
		}
		return p, true, nil
	}
	principal, err := s.authn.Login(ctx, lookup, email, password)
	if err != nil {
		return Session{}, err
	}
	token, exp, err := s.tokens.Issue(principal.Email, principal.Role, principal.ProviderID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, Role: principal.Role, ProviderID: principal.ProviderID}, nil
}

var _ booking.SlotClaimer = eventClaimer{}
