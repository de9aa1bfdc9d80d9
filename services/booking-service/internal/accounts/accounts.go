// Package accounts verifies admin and provider credentials.
package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/md-rashed-zaman/slotdesk/libs/auth"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLen = 8

var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// Verifier compares an attempt against a stored credential.
type Verifier interface {
	VerifyCredentials(stored, attempt string) bool
}

type BcryptVerifier struct {
	cost int
}

func NewBcryptVerifier(cost int) BcryptVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptVerifier{cost: cost}
}

func (v BcryptVerifier) Hash(raw string) (string, error) {
	if len(raw) < MinPasswordLen {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), v.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (v BcryptVerifier) VerifyCredentials(stored, attempt string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(attempt)) == nil
}

// Principal is an authenticated caller.
type Principal struct {
	Role       string
	ProviderID string
	Email      string
}

// Authenticator resolves an email to the admin account or a provider.
type Authenticator struct {
	verifier  Verifier
	adminMail string
	adminHash string
	// dummyHash keeps unknown-email logins as slow as wrong-password ones.
	dummyHash string
}

func NewAuthenticator(v BcryptVerifier, adminEmail, adminHash string) (*Authenticator, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("slotdesk-unknown-account"), v.cost)
	if err != nil {
		return nil, err
	}
	return &Authenticator{
		verifier:  v,
		adminMail: strings.ToLower(strings.TrimSpace(adminEmail)),
		adminHash: adminHash,
		dummyHash: string(dummy),
	}, nil
}

// ProviderLookup finds a provider by email. ok is false when none exists.
type ProviderLookup func(ctx context.Context, email string) (p model.Provider, ok bool, err error)

// Login checks the admin account first, then providers. Unknown emails and wrong
// passwords are indistinguishable, and a disabled account is only reported after
// the password matched.
func (a *Authenticator) Login(ctx context.Context, lookup ProviderLookup, email, password string) (Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if a.adminMail != "" && a.adminHash != "" && email == a.adminMail {
		if !a.verifier.VerifyCredentials(a.adminHash, password) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{Role: auth.RoleAdmin, Email: email}, nil
	}

	p, ok, err := lookup(ctx, email)
	if err != nil {
		return Principal{}, err
	}
	if !ok || p.PasswordHash == "" {
		a.verifier.VerifyCredentials(a.dummyHash, password)
		return Principal{}, ErrInvalidCredentials
	}
	if !a.verifier.VerifyCredentials(p.PasswordHash, password) {
		return Principal{}, ErrInvalidCredentials
	}
	if !p.Active {
		return Principal{}, ErrAccountDisabled
	}
	return Principal{Role: auth.RoleProvider, ProviderID: p.ID, Email: p.Email}, nil
}
