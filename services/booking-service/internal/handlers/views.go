package handlers

import (
	"time"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
)

// providerView is a provider without credentials.
type providerView struct {
	ID            string                  `json:"id"`
	Slug          string                  `json:"slug"`
	Name          string                  `json:"name"`
	BusinessName  string                  `json:"business_name"`
	BusinessType  model.BusinessType      `json:"business_type"`
	Email         string                  `json:"email"`
	Active        bool                    `json:"active"`
	TrialEndsAt   time.Time               `json:"trial_ends_at"`
	TrialDaysLeft int                     `json:"trial_days_left"`
	LogoURL       string                  `json:"logo_url,omitempty"`
	HeaderColor   string                  `json:"header_color,omitempty"`
	Notifications model.NotificationPrefs `json:"notifications"`
	Availability  []model.RecurringSlot   `json:"availability"`
	CreatedAt     time.Time               `json:"created_at"`
}

func toProviderView(p model.Provider, now time.Time) providerView {
	slots := p.Availability
	if slots == nil {
		slots = []model.RecurringSlot{}
	}
	return providerView{
		ID:            p.ID,
		Slug:          p.Slug,
		Name:          p.Name,
		BusinessName:  p.BusinessName,
		BusinessType:  p.BusinessType,
		Email:         p.Email,
		Active:        p.Active,
		TrialEndsAt:   p.TrialEndsAt,
		TrialDaysLeft: directory.DaysLeft(p, now),
		LogoURL:       p.LogoURL,
		HeaderColor:   p.HeaderColor,
		Notifications: p.Notifications,
		Availability:  slots,
		CreatedAt:     p.CreatedAt,
	}
}

func toProviderViews(ps []model.Provider, now time.Time) []providerView {
	out := make([]providerView, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProviderView(p, now))
	}
	return out
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func list[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items}
}
