package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
)

// Step is the spacing between candidate times inside a recurring slot.
const Step = 30 * time.Minute

// ResolveSlots returns the candidate "HH:MM" times for the weekday of day, merged
// across every recurring slot on that weekday, de-duplicated and sorted. Windows
// are half-open: start is offered, end is not. No configured slot on that weekday
// yields an empty result. Malformed slots contribute nothing.
func ResolveSlots(recurring []model.RecurringSlot, day time.Time) []string {
	weekday := int(day.Weekday())
	step := int(Step / time.Minute)

	seen := map[int]struct{}{}
	for _, s := range recurring {
		if s.DayOfWeek != weekday {
			continue
		}
		start, err := ParseClock(s.Start)
		if err != nil {
			continue
		}
		end, err := ParseClock(s.End)
		if err != nil {
			continue
		}
		for m := start; m < end; m += step {
			seen[m] = struct{}{}
		}
	}

	minutes := make([]int, 0, len(seen))
	for m := range seen {
		minutes = append(minutes, m)
	}
	sort.Ints(minutes)

	out := make([]string, 0, len(minutes))
	for _, m := range minutes {
		out = append(out, FormatClock(m))
	}
	return out
}

// HasDay reports whether any recurring slot falls on the weekday of day.
func HasDay(recurring []model.RecurringSlot, day time.Time) bool {
	weekday := int(day.Weekday())
	for _, s := range recurring {
		if s.DayOfWeek == weekday {
			return true
		}
	}
	return false
}

// ParseClock parses a zero-padded 24-hour "HH:MM" into minutes after midnight.
func ParseClock(raw string) (int, error) {
	if len(raw) != 5 || raw[2] != ':' {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", raw)
	}
	h, okH := twoDigits(raw[0], raw[1])
	m, okM := twoDigits(raw[3], raw[4])
	if !okH || !okM || h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", raw)
	}
	return h*60 + m, nil
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}
