package model

import (
	"fmt"
	"time"
)

// DateLayout is the canonical calendar date string stored on appointments.
const DateLayout = "2006-01-02"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected:
		return true
	}
	return false
}

// Active reports whether the status holds its slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

type BusinessType string

const (
	BusinessMedical   BusinessType = "medical"
	BusinessSports    BusinessType = "sports"
	BusinessBeauty    BusinessType = "beauty"
	BusinessEducation BusinessType = "education"
	BusinessOther     BusinessType = "other"
)

func (b BusinessType) Valid() bool {
	switch b {
	case BusinessMedical, BusinessSports, BusinessBeauty, BusinessEducation, BusinessOther:
		return true
	}
	return false
}

// RecurringSlot is a weekly availability window. DayOfWeek is 0=Sunday..6=Saturday;
// Start and End are "HH:MM" wall-clock times with End exclusive.
type RecurringSlot struct {
	ID        string `json:"id"`
	DayOfWeek int    `json:"day_of_week"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

type NotificationPrefs struct {
	PushEnabled          bool `json:"push_enabled"`
	NotifyOnNew          bool `json:"notify_on_new"`
	NotifyOnStatusChange bool `json:"notify_on_status_change"`
}

func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{PushEnabled: true, NotifyOnNew: true, NotifyOnStatusChange: true}
}

type Provider struct {
	ID            string            `json:"id"`
	Slug          string            `json:"slug"`
	Name          string            `json:"name"`
	BusinessName  string            `json:"business_name"`
	BusinessType  BusinessType      `json:"business_type"`
	Email         string            `json:"email"`
	PasswordHash  string            `json:"password_hash"`
	TrialEndsAt   time.Time         `json:"trial_ends_at"`
	Active        bool              `json:"active"`
	LogoURL       string            `json:"logo_url,omitempty"`
	HeaderColor   string            `json:"header_color,omitempty"`
	Notifications NotificationPrefs `json:"notifications"`
	Availability  []RecurringSlot   `json:"availability"`
	CreatedAt     time.Time         `json:"created_at"`
}

type Appointment struct {
	ID           string    `json:"id"`
	ProviderID   string    `json:"provider_id"`
	ClientName   string    `json:"client_name"`
	ClientPhone  string    `json:"client_phone"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Note         string    `json:"note,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	ReminderSent bool      `json:"reminder_sent"`
}

// Client is one row of a provider's roster, keyed by phone.
type Client struct {
	Phone     string `json:"phone"`
	Name      string `json:"name"`
	Visits    int    `json:"visits"`
	LastVisit string `json:"last_visit"`
}

// ParseDate parses a canonical "YYYY-MM-DD" date as a UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return d, nil
}
