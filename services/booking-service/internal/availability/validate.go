package availability

import (
	"errors"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
)

var ErrInvalidSlot = errors.New("invalid recurring slot")

// SlotError describes every problem found in a recurring slot set, keyed by index.
type SlotError struct {
	Problems map[int]string
}

func (e *SlotError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for i := 0; len(parts) < len(e.Problems); i++ {
		if p, ok := e.Problems[i]; ok {
			parts = append(parts, fmt.Sprintf("slot %d: %s", i, p))
		}
	}
	return ErrInvalidSlot.Error() + ": " + strings.Join(parts, "; ")
}

func (e *SlotError) Unwrap() error { return ErrInvalidSlot }

// Validate rejects slots with a day outside 0..6, unparsable bounds, or
// end not after start. Overlapping slots on the same day are allowed.
func Validate(recurring []model.RecurringSlot) error {
	problems := map[int]string{}
	for i, s := range recurring {
		if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
			problems[i] = fmt.Sprintf("day_of_week %d out of range 0..6", s.DayOfWeek)
			continue
		}
		start, err := ParseClock(s.Start)
		if err != nil {
			problems[i] = "start: " + err.Error()
			continue
		}
		end, err := ParseClock(s.End)
		if err != nil {
			problems[i] = "end: " + err.Error()
			continue
		}
		if end <= start {
			problems[i] = fmt.Sprintf("end %s must be after start %s", s.End, s.Start)
		}
	}
	if len(problems) > 0 {
		return &SlotError{Problems: problems}
	}
	return nil
}
