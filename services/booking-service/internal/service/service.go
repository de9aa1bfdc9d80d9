// Package service composes the booking core with persistence, credentials and
// outbox events. Handlers call it; it knows nothing about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotdesk/libs/auth"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/accounts"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/storage"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrReminderRejected is returned when a reminder is requested for a rejected appointment.
	ErrReminderRejected = errors.New("cannot remind a rejected appointment")
)

// ValidationError lists field problems for a write that was refused.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type Options struct {
	TrialDays int
	Now       func() time.Time
	NewID     func() string
}

type Service struct {
	store     storage.Store
	authn     *accounts.Authenticator
	hasher    accounts.BcryptVerifier
	tokens    *auth.Issuer
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	trialDays int
}

func New(store storage.Store, authn *accounts.Authenticator, hasher accounts.BcryptVerifier, tokens *auth.Issuer, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.TrialDays <= 0 {
		opts.TrialDays = directory.DefaultTrialDays
	}
	return &Service{
		store:     store,
		authn:     authn,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		now:       opts.Now,
		newID:     opts.NewID,
		trialDays: opts.TrialDays,
	}
}

// notFound folds the per-package not-found errors into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, directory.ErrNotFound) || errors.Is(err, lifecycle.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// activeProvider resolves a public slug. Inactive providers are not bookable and
// are reported as not found.
func (s *Service) activeProvider(ctx context.Context, slug string) (model.Provider, error) {
	p, err := s.store.ProviderBySlug(ctx, slug)
	if err != nil {
		return model.Provider{}, notFound(err)
	}
	if !p.Active {
		return model.Provider{}, ErrNotFound
	}
	return p, nil
}

// session loads the provider behind a provider token. A provider disabled after
// the token was issued is refused.
func (s *Service) session(ctx context.Context, id string) (model.Provider, error) {
	p, err := s.provider(ctx, id)
	if err != nil {
		return model.Provider{}, err
	}
	if !p.Active {
		return model.Provider{}, accounts.ErrAccountDisabled
	}
	return p, nil
}

func (s *Service) provider(ctx context.Context, id string) (model.Provider, error) {
	p, err := s.store.ProviderByID(ctx, id)
	if err != nil {
		return model.Provider{}, notFound(err)
	}
	return p, nil
}
