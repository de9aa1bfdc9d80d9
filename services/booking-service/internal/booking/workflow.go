package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
)

type Step int

const (
	SelectingSlot Step = iota
	EnteringDetails
	Submitted
)

func (s Step) String() string {
	switch s {
	case SelectingSlot:
		return "selecting_slot"
	case EnteringDetails:
		return "entering_details"
	case Submitted:
		return "submitted"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

var (
	ErrWrongStep      = errors.New("operation not allowed in current step")
	ErrIncomplete     = errors.New("date and time must both be chosen")
	ErrPastDate       = errors.New("date is in the past")
	ErrUnknownTime    = errors.New("time is not offered on that date")
	ErrMissingDetails = errors.New("client name and phone are required")
)

// SlotClaimer atomically inserts an appointment if its slot is still free and
// returns ErrSlotTaken otherwise.
type SlotClaimer interface {
	ClaimSlot(ctx context.Context, appt model.Appointment) error
}

type Details struct {
	ClientName  string
	ClientPhone string
	Note        string
}

// Workflow is one customer's booking attempt against one provider.
type Workflow struct {
	providerID string
	step       Step
	date       string
	time       string
	details    Details
}

func NewWorkflow(providerID string) *Workflow {
	return &Workflow{providerID: providerID}
}

func (w *Workflow) Step() Step         { return w.step }
func (w *Workflow) Date() string       { return w.date }
func (w *Workflow) Time() string       { return w.time }
func (w *Workflow) Details() Details   { return w.details }
func (w *Workflow) ProviderID() string { return w.providerID }

// SelectDate picks a date no earlier than today. A different date clears the chosen time.
func (w *Workflow) SelectDate(date string, today time.Time) error {
	if w.step != SelectingSlot {
		return ErrWrongStep
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return err
	}
	if d.Format(model.DateLayout) < today.Format(model.DateLayout) {
		return ErrPastDate
	}
	if date != w.date {
		w.time = ""
	}
	w.date = date
	return nil
}

// SelectTime picks one of the offered candidates for the chosen date.
func (w *Workflow) SelectTime(tm string, offered []Candidate) error {
	if w.step != SelectingSlot {
		return ErrWrongStep
	}
	if w.date == "" {
		return ErrIncomplete
	}
	for _, c := range offered {
		if c.Time != tm {
			continue
		}
		if !c.Available {
			return ErrSlotTaken
		}
		w.time = tm
		return nil
	}
	return ErrUnknownTime
}

// Continue moves to detail entry once date and time are chosen.
func (w *Workflow) Continue() error {
	if w.step != SelectingSlot {
		return ErrWrongStep
	}
	if w.date == "" || w.time == "" {
		return ErrIncomplete
	}
	w.step = EnteringDetails
	return nil
}

// Back returns to slot selection. Entered details are kept.
func (w *Workflow) Back() error {
	if w.step != EnteringDetails {
		return ErrWrongStep
	}
	w.step = SelectingSlot
	return nil
}

func (w *Workflow) EnterDetails(d Details) error {
	if w.step != EnteringDetails {
		return ErrWrongStep
	}
	d.ClientName = strings.TrimSpace(d.ClientName)
	d.ClientPhone = strings.TrimSpace(d.ClientPhone)
	d.Note = strings.TrimSpace(d.Note)
	if d.ClientName == "" || d.ClientPhone == "" {
		return ErrMissingDetails
	}
	w.details = d
	return nil
}

// Submit asks claimer to insert a pending appointment. If the slot was taken in the
// meantime the workflow goes back to slot selection with the time cleared and
// ErrSlotTaken is returned. Other claimer errors leave the step unchanged.
func (w *Workflow) Submit(ctx context.Context, claimer SlotClaimer, now time.Time, newID func() string) (model.Appointment, error) {
	if w.step != EnteringDetails {
		return model.Appointment{}, ErrWrongStep
	}
	if w.details.ClientName == "" || w.details.ClientPhone == "" {
		return model.Appointment{}, ErrMissingDetails
	}

	appt := model.Appointment{
		ID:          newID(),
		ProviderID:  w.providerID,
		ClientName:  w.details.ClientName,
		ClientPhone: w.details.ClientPhone,
		Date:        w.date,
		Time:        w.time,
		Note:        w.details.Note,
		Status:      model.StatusPending,
		CreatedAt:   now,
	}
	if err := claimer.ClaimSlot(ctx, appt); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			w.step = SelectingSlot
			w.time = ""
		}
		return model.Appointment{}, err
	}
	w.step = Submitted
	return appt, nil
}

// Reset starts a fresh attempt for the same provider.
func (w *Workflow) Reset() {
	*w = Workflow{providerID: w.providerID}
}
