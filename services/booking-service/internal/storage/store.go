package storage

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/outbox"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means the row changed between read and conditional write.
	ErrConflict = errors.New("concurrent modification")
)

// Store persists providers and appointments. Writes that emit an event record it
// in the outbox atomically with the change. Slot, slug and email uniqueness are
// enforced here and reported as booking.ErrSlotTaken, *directory.DuplicateSlugError
// and directory.ErrEmailTaken.
type Store interface {
	ListProviders(ctx context.Context) ([]model.Provider, error)
	ProviderByID(ctx context.Context, id string) (model.Provider, error)
	ProviderBySlug(ctx context.Context, slug string) (model.Provider, error)
	ProviderByEmail(ctx context.Context, email string) (model.Provider, error)
	CreateProvider(ctx context.Context, p model.Provider) error
	// UpdateProvider saves the provider-editable fields of p. Active and
	// TrialEndsAt are owned by the admin and left as stored.
	UpdateProvider(ctx context.Context, p model.Provider) error
	SetProviderActive(ctx context.Context, id string, active bool) error

	ProviderAppointments(ctx context.Context, providerID string) ([]model.Appointment, error)
	// ClaimSlot inserts appt only if no pending or confirmed appointment holds its slot.
	ClaimSlot(ctx context.Context, appt model.Appointment, evt outbox.Event) error
	// TransitionStatus moves id from one status to another, failing with ErrConflict
	// if the current status is no longer from.
	TransitionStatus(ctx context.Context, id string, from, to model.Status, evt outbox.Event) error
	// MarkReminderSent sets the flag once and reports whether it changed. evt is
	// recorded only on change.
	MarkReminderSent(ctx context.Context, id string, evt outbox.Event) (bool, error)

	outbox.Source
}
