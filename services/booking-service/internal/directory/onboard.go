package directory

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
)

const DefaultTrialDays = 30

var ErrEmailTaken = errors.New("email already registered")

type NewProviderInput struct {
	Name         string
	BusinessName string
	BusinessType model.BusinessType
	Email        string
	PasswordHash string
	Slug         string
	TrialDays    int
}

// NewProvider builds an active provider on a trial. Without an explicit slug the
// business name is cleaned into one.
func NewProvider(existing []model.Provider, in NewProviderInput, now time.Time, newID func() string) (model.Provider, error) {
	raw := in.Slug
	if strings.TrimSpace(raw) == "" {
		raw = in.BusinessName
	}
	slug := CleanSlug(raw)
	if slug == "" {
		return model.Provider{}, ErrEmptySlug
	}
	if SlugTaken(existing, slug, "") {
		return model.Provider{}, &DuplicateSlugError{Slug: slug}
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, ok := FindByEmail(existing, email); ok {
		return model.Provider{}, ErrEmailTaken
	}
	days := in.TrialDays
	if days <= 0 {
		days = DefaultTrialDays
	}
	bt := in.BusinessType
	if !bt.Valid() {
		bt = model.BusinessOther
	}

	return model.Provider{
		ID:            newID(),
		Slug:          slug,
		Name:          strings.TrimSpace(in.Name),
		BusinessName:  strings.TrimSpace(in.BusinessName),
		BusinessType:  bt,
		Email:         email,
		PasswordHash:  in.PasswordHash,
		TrialEndsAt:   now.AddDate(0, 0, days),
		Active:        true,
		Notifications: model.DefaultNotificationPrefs(),
		CreatedAt:     now,
	}, nil
}

// DaysLeft rounds the remaining trial up to whole days; negative once expired.
func DaysLeft(p model.Provider, now time.Time) int {
	return int(math.Ceil(p.TrialEndsAt.Sub(now).Hours() / 24))
}

type TrialReport struct {
	ExpiringSoon []model.Provider
	Expired      []model.Provider
}

// Trials buckets providers whose trial ends within 7 days or has already ended.
func Trials(providers []model.Provider, now time.Time) TrialReport {
	var r TrialReport
	for _, p := range providers {
		switch d := DaysLeft(p, now); {
		case d < 0:
			r.Expired = append(r.Expired, p)
		case d <= 7:
			r.ExpiringSoon = append(r.ExpiringSoon, p)
		}
	}
	return r
}
