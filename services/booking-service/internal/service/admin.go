package service

import (
	"context"
	"strings"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
)

// ListProviders searches owner name, business name and email. An empty query
// lists everyone.
func (s *Service) ListProviders(ctx context.Context, q string) ([]model.Provider, error) {
	providers, err := s.store.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	return directory.Search(providers, q), nil
}

type NewProviderRequest struct {
	Name         string
	BusinessName string
	BusinessType model.BusinessType
	Email        string
	Password     string
	Slug         string
	// TrialDays overrides the configured trial length when positive.
	TrialDays int
}

// CreateProvider onboards an active provider on a trial. The store re-checks
// slug and email uniqueness so concurrent onboarding cannot produce duplicates.
func (s *Service) CreateProvider(ctx context.Context, req NewProviderRequest) (model.Provider, error) {
	problems := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		problems["name"] = "must not be empty"
	}
	if strings.TrimSpace(req.BusinessName) == "" {
		problems["business_name"] = "must not be empty"
	}
	if strings.TrimSpace(req.Email) == "" {
		problems["email"] = "must not be empty"
	}
	if req.BusinessType != "" && !req.BusinessType.Valid() {
		problems["business_type"] = "unknown business type"
	}
	if req.TrialDays < 0 {
		problems["trial_days"] = "must not be negative"
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		problems["password"] = err.Error()
	}
	if len(problems) > 0 {
		return model.Provider{}, &ValidationError{Fields: problems}
	}

	trialDays := s.trialDays
	if req.TrialDays > 0 {
		trialDays = req.TrialDays
	}
	existing, err := s.store.ListProviders(ctx)
	if err != nil {
		return model.Provider{}, err
	}
	p, err := directory.NewProvider(existing, directory.NewProviderInput{
		Name:         req.Name,
		BusinessName: req.BusinessName,
		BusinessType: req.BusinessType,
		Email:        req.Email,
		PasswordHash: hash,
		Slug:         req.Slug,
		TrialDays:    trialDays,
	}, s.now(), s.newID)
	if err != nil {
		return model.Provider{}, err
	}
	if err := s.store.CreateProvider(ctx, p); err != nil {
		return model.Provider{}, err
	}
	s.logger.InfoContext(ctx, "provider onboarded", "provider_id", p.ID, "slug", p.Slug)
	return p, nil
}

// TrialEntry is a provider with its remaining trial days.
type TrialEntry struct {
	Provider model.Provider
	DaysLeft int
}

type TrialDashboard struct {
	ExpiringSoon []TrialEntry
	Expired      []TrialEntry
}

func (s *Service) Trials(ctx context.Context) (TrialDashboard, error) {
	providers, err := s.store.ListProviders(ctx)
	if err != nil {
		return TrialDashboard{}, err
	}
	now := s.now()
	report := directory.Trials(providers, now)
	entries := func(ps []model.Provider) []TrialEntry {
		out := make([]TrialEntry, 0, len(ps))
		for _, p := range ps {
			out = append(out, TrialEntry{Provider: p, DaysLeft: directory.DaysLeft(p, now)})
		}
		return out
	}
	return TrialDashboard{ExpiringSoon: entries(report.ExpiringSoon), Expired: entries(report.Expired)}, nil
}

// SetActive enables or disables a provider. Disabled providers vanish from public
// lookup and cannot log in; their data is kept.
func (s *Service) SetActive(ctx context.Context, providerID string, active bool) (model.Provider, error) {
	p, err := s.provider(ctx, providerID)
	if err != nil {
		return model.Provider{}, err
	}
	if p.Active == active {
		return p, nil
	}
	if err := s.store.SetProviderActive(ctx, providerID, active); err != nil {
		return model.Provider{}, notFound(err)
	}
	p.Active = active
	s.logger.InfoContext(ctx, "provider activation changed", "provider_id", providerID, "active", active)
	return p, nil
}
