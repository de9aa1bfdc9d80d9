package booking

import (
	"errors"
	"time"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
)

// ErrSlotTaken means a pending or confirmed appointment already holds the slot.
var ErrSlotTaken = errors.New("time slot already booked")

// IsBooked reports whether a non-rejected appointment holds the exact provider,
// date and time strings.
func IsBooked(appts []model.Appointment, providerID, date, tm string) bool {
	for _, a := range appts {
		if a.ProviderID == providerID && a.Date == date && a.Time == tm && a.Status != model.StatusRejected {
			return true
		}
	}
	return false
}

// Candidate is a resolved time with its occupancy at the moment of resolution.
type Candidate struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Candidates resolves the provider's times for day and marks the occupied ones.
func Candidates(p model.Provider, appts []model.Appointment, day time.Time) []Candidate {
	date := day.Format(model.DateLayout)
	times := availability.ResolveSlots(p.Availability, day)
	out := make([]Candidate, 0, len(times))
	for _, t := range times {
		out = append(out, Candidate{Time: t, Available: !IsBooked(appts, p.ID, date, t)})
	}
	return out
}

// Claim appends appt unless its slot is occupied. On conflict the input slice
// is returned unchanged with ErrSlotTaken.
func Claim(appts []model.Appointment, appt model.Appointment) ([]model.Appointment, error) {
	if IsBooked(appts, appt.ProviderID, appt.Date, appt.Time) {
		return appts, ErrSlotTaken
	}
	out := make([]model.Appointment, len(appts), len(appts)+1)
	copy(out, appts)
	return append(out, appt), nil
}
