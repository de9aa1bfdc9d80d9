package storage

import (
	"context"
	"sync"
	"time"

	otelx "github.com/md-rashed-zaman/slotdesk/libs/otel"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/outbox"
)

// State is everything the memory store persists as one snapshot.
type State struct {
	Providers    []model.Provider    `json:"providers"`
	Appointments []model.Appointment `json:"appointments"`
	Outbox       []outbox.Record     `json:"outbox"`
}

// MemoryStore serializes every write under one mutex and saves the whole state
// after each change. A failed save leaves the previous state in place.
type MemoryStore struct {
	mu    sync.Mutex
	state State
	snap  Snapshot[State]
	now   func() time.Time
}

func NewMemoryStore(ctx context.Context, snap Snapshot[State]) (*MemoryStore, error) {
	st, err := snap.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{state: st, snap: snap, now: time.Now}, nil
}

func (s *MemoryStore) read() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// mutate applies fn to a copy of the state header and commits it only if fn and
// the snapshot save both succeed. fn must not modify slices in place.
func (s *MemoryStore) mutate(ctx context.Context, fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.snap.Save(ctx, next); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *MemoryStore) record(ctx context.Context, st *State, evt outbox.Event) {
	tp, ts := otelx.TraceContextStrings(ctx)
	out := make([]outbox.Record, len(st.Outbox), len(st.Outbox)+1)
	copy(out, st.Outbox)
	st.Outbox = append(out, outbox.Record{Event: evt, Traceparent: tp, Tracestate: ts, CreatedAt: s.now()})
}

func (s *MemoryStore) ListProviders(context.Context) ([]model.Provider, error) {
	return append([]model.Provider(nil), s.read().Providers...), nil
}

func (s *MemoryStore) ProviderByID(_ context.Context, id string) (model.Provider, error) {
	if p, ok := directory.FindByID(s.read().Providers, id); ok {
		return p, nil
	}
	return model.Provider{}, ErrNotFound
}

func (s *MemoryStore) ProviderBySlug(_ context.Context, slug string) (model.Provider, error) {
	if p, ok := directory.ResolveBySlug(s.read().Providers, slug); ok {
		return p, nil
	}
	return model.Provider{}, ErrNotFound
}

func (s *MemoryStore) ProviderByEmail(_ context.Context, email string) (model.Provider, error) {
	if p, ok := directory.FindByEmail(s.read().Providers, email); ok {
		return p, nil
	}
	return model.Provider{}, ErrNotFound
}

func (s *MemoryStore) CreateProvider(ctx context.Context, p model.Provider) error {
	return s.mutate(ctx, func(st *State) error {
		if directory.SlugTaken(st.Providers, p.Slug, "") {
			return &directory.DuplicateSlugError{Slug: p.Slug}
		}
		if _, ok := directory.FindByEmail(st.Providers, p.Email); ok {
			return directory.ErrEmailTaken
		}
		out := make([]model.Provider, len(st.Providers), len(st.Providers)+1)
		copy(out, st.Providers)
		st.Providers = append(out, p)
		return nil
	})
}

func (s *MemoryStore) UpdateProvider(ctx context.Context, p model.Provider) error {
	return s.mutate(ctx, func(st *State) error {
		providers, err := directory.SetSlug(st.Providers, p.ID, p.Slug)
		if err != nil {
			if err == directory.ErrNotFound {
				return ErrNotFound
			}
			return err
		}
		if other, ok := directory.FindByEmail(providers, p.Email); ok && other.ID != p.ID {
			return directory.ErrEmailTaken
		}
		for i := range providers {
			if providers[i].ID == p.ID {
				p.Slug = providers[i].Slug
				p.Active = providers[i].Active
				p.TrialEndsAt = providers[i].TrialEndsAt
				providers[i] = p
			}
		}
		st.Providers = providers
		return nil
	})
}

func (s *MemoryStore) SetProviderActive(ctx context.Context, id string, active bool) error {
	return s.mutate(ctx, func(st *State) error {
		providers := append([]model.Provider(nil), st.Providers...)
		for i := range providers {
			if providers[i].ID == id {
				providers[i].Active = active
				st.Providers = providers
				return nil
			}
		}
		return ErrNotFound
	})
}

func (s *MemoryStore) ProviderAppointments(_ context.Context, providerID string) ([]model.Appointment, error) {
	return lifecycle.ByProvider(s.read().Appointments, providerID), nil
}

func (s *MemoryStore) ClaimSlot(ctx context.Context, appt model.Appointment, evt outbox.Event) error {
	return s.mutate(ctx, func(st *State) error {
		appts, err := booking.Claim(st.Appointments, appt)
		if err != nil {
			return err
		}
		st.Appointments = appts
		s.record(ctx, st, evt)
		return nil
	})
}

func (s *MemoryStore) TransitionStatus(ctx context.Context, id string, from, to model.Status, evt outbox.Event) error {
	return s.mutate(ctx, func(st *State) error {
		cur, ok := lifecycle.Find(st.Appointments, id)
		if !ok {
			return ErrNotFound
		}
		if cur.Status != from {
			return ErrConflict
		}
		appts, _, err := lifecycle.SetStatus(st.Appointments, id, to, s.now())
		if err != nil {
			return err
		}
		st.Appointments = appts
		s.record(ctx, st, evt)
		return nil
	})
}

func (s *MemoryStore) MarkReminderSent(ctx context.Context, id string, evt outbox.Event) (bool, error) {
	var changed bool
	err := s.mutate(ctx, func(st *State) error {
		appts, ch, err := lifecycle.MarkReminderSent(st.Appointments, id)
		if err != nil {
			if err == lifecycle.ErrNotFound {
				return ErrNotFound
			}
			return err
		}
		changed = ch
		if ch {
			st.Appointments = appts
			s.record(ctx, st, evt)
		}
		return nil
	})
	return changed, err
}

// WithPending hands out the oldest records and drops them once publish succeeds.
func (s *MemoryStore) WithPending(ctx context.Context, limit int, publish func([]outbox.Record) error) (int, error) {
	pending := s.read().Outbox
	if len(pending) > limit {
		pending = pending[:limit]
	}
	if len(pending) == 0 {
		return 0, nil
	}
	batch := append([]outbox.Record(nil), pending...)
	if err := publish(batch); err != nil {
		return 0, err
	}

	done := make(map[string]struct{}, len(batch))
	for _, r := range batch {
		done[r.EventID] = struct{}{}
	}
	err := s.mutate(ctx, func(st *State) error {
		rest := make([]outbox.Record, 0, len(st.Outbox))
		for _, r := range st.Outbox {
			if _, ok := done[r.EventID]; !ok {
				rest = append(rest, r)
			}
		}
		st.Outbox = rest
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(batch), nil
}

// PendingEvents reports the outbox depth.
func (s *MemoryStore) PendingEvents() int {
	return len(s.read().Outbox)
}

var _ Store = (*MemoryStore)(nil)

