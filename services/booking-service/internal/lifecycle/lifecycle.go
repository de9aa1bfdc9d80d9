// Package lifecycle moves appointments between statuses and answers the
// provider-side queries over an appointment collection.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// CanTransition allows pending->confirmed, pending->rejected and confirmed->rejected.
// Rejected is terminal and re-applying the current status is not a transition.
func CanTransition(from, to model.Status) bool {
	switch from {
	case model.StatusPending:
		return to == model.StatusConfirmed || to == model.StatusRejected
	case model.StatusConfirmed:
		return to == model.StatusRejected
	}
	return false
}

// StatusChanged is emitted for every accepted transition.
type StatusChanged struct {
	Appointment model.Appointment
	From        model.Status
	To          model.Status
	At          time.Time
}

// SetStatus returns a copy of appts with id moved to status to. Illegal
// transitions return ErrInvalidTransition and the input unchanged.
func SetStatus(appts []model.Appointment, id string, to model.Status, now time.Time) ([]model.Appointment, StatusChanged, error) {
	idx := indexOf(appts, id)
	if idx < 0 {
		return appts, StatusChanged{}, ErrNotFound
	}
	from := appts[idx].Status
	if !CanTransition(from, to) {
		return appts, StatusChanged{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	out := make([]model.Appointment, len(appts))
	copy(out, appts)
	out[idx].Status = to
	return out, StatusChanged{Appointment: out[idx], From: from, To: to, At: now}, nil
}

// MarkReminderSent flips the reminder flag once. changed is false when it was
// already set.
func MarkReminderSent(appts []model.Appointment, id string) (out []model.Appointment, changed bool, err error) {
	idx := indexOf(appts, id)
	if idx < 0 {
		return appts, false, ErrNotFound
	}
	if appts[idx].ReminderSent {
		return appts, false, nil
	}
	out = make([]model.Appointment, len(appts))
	copy(out, appts)
	out[idx].ReminderSent = true
	return out, true, nil
}

func Find(appts []model.Appointment, id string) (model.Appointment, bool) {
	if idx := indexOf(appts, id); idx >= 0 {
		return appts[idx], true
	}
	return model.Appointment{}, false
}

func indexOf(appts []model.Appointment, id string) int {
	for i := range appts {
		if appts[i].ID == id {
			return i
		}
	}
	return -1
}
