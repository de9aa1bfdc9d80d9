// Package directory resolves public slugs to providers and keeps slugs unique.
package directory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
)

var (
	ErrNotFound  = errors.New("provider not found")
	ErrEmptySlug = errors.New("slug must not be empty")
)

// DuplicateSlugError means another provider already answers to Slug.
type DuplicateSlugError struct {
	Slug string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("slug %q is already taken", e.Slug)
}

// CleanSlug trims, lowercases and collapses whitespace runs into a single hyphen.
func CleanSlug(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), "-")
}

func sameSlug(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ResolveBySlug matches case-insensitively after trimming both sides. Not finding a
// provider is a normal outcome.
func ResolveBySlug(providers []model.Provider, slug string) (model.Provider, bool) {
	if strings.TrimSpace(slug) == "" {
		return model.Provider{}, false
	}
	for _, p := range providers {
		if sameSlug(p.Slug, slug) {
			return p, true
		}
	}
	return model.Provider{}, false
}

func FindByID(providers []model.Provider, id string) (model.Provider, bool) {
	for _, p := range providers {
		if p.ID == id {
			return p, true
		}
	}
	return model.Provider{}, false
}

// FindByEmail matches case-insensitively after trimming.
func FindByEmail(providers []model.Provider, email string) (model.Provider, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.Provider{}, false
	}
	for _, p := range providers {
		if strings.EqualFold(strings.TrimSpace(p.Email), email) {
			return p, true
		}
	}
	return model.Provider{}, false
}

// SlugTaken reports whether a provider other than exceptID holds slug.
func SlugTaken(providers []model.Provider, slug, exceptID string) bool {
	for _, p := range providers {
		if p.ID != exceptID && sameSlug(p.Slug, slug) {
			return true
		}
	}
	return false
}

// SetSlug returns a copy of providers with providerID's slug replaced by the cleaned
// newSlug. On any error the input is returned untouched.
func SetSlug(providers []model.Provider, providerID, newSlug string) ([]model.Provider, error) {
	slug := CleanSlug(newSlug)
	if slug == "" {
		return providers, ErrEmptySlug
	}
	idx := -1
	for i, p := range providers {
		if p.ID == providerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return providers, ErrNotFound
	}
	if SlugTaken(providers, slug, providerID) {
		return providers, &DuplicateSlugError{Slug: slug}
	}

	out := make([]model.Provider, len(providers))
	copy(out, providers)
	out[idx].Slug = slug
	return out, nil
}

// Search matches q against owner name, business name and email, case-insensitively.
// An empty query returns every provider.
func Search(providers []model.Provider, q string) []model.Provider {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]model.Provider, 0, len(providers))
	for _, p := range providers {
		if q == "" ||
			strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.BusinessName), q) ||
			strings.Contains(strings.ToLower(p.Email), q) {
			out = append(out, p)
		}
	}
	return out
}
