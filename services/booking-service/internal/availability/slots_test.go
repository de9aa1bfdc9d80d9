package availability

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
)

// 2024-06-10 is a Monday.
var monday = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

func TestResolveSlots_HalfOpenThirtyMinuteSteps(t *testing.T) {
	recurring := []model.RecurringSlot{{DayOfWeek: 1, Start: "09:00", End: "11:00"}}

	got := ResolveSlots(recurring, monday)
	want := []string{"09:00", "09:30", "10:00", "10:30"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolveSlots_PartialTrailingWindow(t *testing.T) {
	recurring := []model.RecurringSlot{{DayOfWeek: 1, Start: "09:00", End: "09:45"}}

	got := ResolveSlots(recurring, monday)
	if !reflect.DeepEqual(got, []string{"09:00", "09:30"}) {
		t.Fatalf("unexpected slots %v", got)
	}
}

func TestHasDay(t *testing.T) {
	recurring := []model.RecurringSlot{{DayOfWeek: 1, Start: "09:00", End: "11:00"}}

	if !HasDay(recurring, monday) {
		t.Fatal("expected Monday to be open")
	}
	if HasDay(recurring, monday.AddDate(0, 0, 1)) {
		t.Fatal("expected Tuesday to be closed")
	}
	if HasDay(nil, monday) {
		t.Fatal("no slots means no open day")
	}
}

func TestResolveSlots_FiltersByWeekday(t *testing.T) {
	recurring := []model.RecurringSlot{{DayOfWeek: 1, Start: "09:00", End: "11:00"}}

	if got := ResolveSlots(recurring, monday.AddDate(0, 0, 1)); len(got) != 0 {
		t.Fatalf("expected no slots on Tuesday, got %v", got)
	}
}

func TestResolveSlots_EmptyAvailability(t *testing.T) {
	for i := 0; i < 7; i++ {
		if got := ResolveSlots(nil, monday.AddDate(0, 0, i)); len(got) != 0 {
			t.Fatalf("expected empty result, got %v", got)
		}
	}
}

func TestResolveSlots_MergesAndDeduplicates(t *testing.T) {
	recurring := []model.RecurringSlot{
		{DayOfWeek: 1, Start: "17:00", End: "18:00"},
		{DayOfWeek: 1, Start: "09:00", End: "10:00"},
		{DayOfWeek: 1, Start: "09:30", End: "10:30"},
		{DayOfWeek: 2, Start: "12:00", End: "13:00"},
	}

	got := ResolveSlots(recurring, monday)
	want := []string{"09:00", "09:30", "10:00", "17:00", "17:30"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolveSlots_Deterministic(t *testing.T) {
	recurring := []model.RecurringSlot{
		{DayOfWeek: 1, Start: "13:00", End: "15:00"},
		{DayOfWeek: 1, Start: "08:00", End: "09:00"},
	}
	first := ResolveSlots(recurring, monday)
	for i := 0; i < 10; i++ {
		if got := ResolveSlots(recurring, monday); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got, first)
		}
	}
	if recurring[0].Start != "13:00" {
		t.Fatalf("input must not be reordered")
	}
}

func TestResolveSlots_SkipsMalformed(t *testing.T) {
	recurring := []model.RecurringSlot{
		{DayOfWeek: 1, Start: "10:00", End: "09:00"},
		{DayOfWeek: 1, Start: "9:00", End: "10:00"},
		{DayOfWeek: 1, Start: "12:00", End: "12:30"},
	}
	if got := ResolveSlots(recurring, monday); !reflect.DeepEqual(got, []string{"12:00"}) {
		t.Fatalf("unexpected slots %v", got)
	}
}

func TestParseClock(t *testing.T) {
	cases := map[string]int{"00:00": 0, "09:30": 570, "23:59": 1439}
	for in, want := range cases {
		got, err := ParseClock(in)
		if err != nil || got != want {
			t.Fatalf("ParseClock(%q) = %d, %v", in, got, err)
		}
	}
	for _, bad := range []string{"24:00", "9:30", "09:60", "0930", "ab:cd", ""} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestValidate(t *testing.T) {
	ok := []model.RecurringSlot{
		{DayOfWeek: 0, Start: "09:00", End: "12:00"},
		{DayOfWeek: 0, Start: "11:00", End: "13:00"},
	}
	if err := Validate(ok); err != nil {
		t.Fatalf("expected overlapping slots to be accepted, got %v", err)
	}

	bad := []model.RecurringSlot{
		{DayOfWeek: 7, Start: "09:00", End: "10:00"},
		{DayOfWeek: 1, Start: "10:00", End: "10:00"},
		{DayOfWeek: 1, Start: "10:00", End: "25:00"},
		{DayOfWeek: 1, Start: "10:00", End: "11:00"},
	}
	err := Validate(bad)
	if !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
	var se *SlotError
	if !errors.As(err, &se) || len(se.Problems) != 3 {
		t.Fatalf("expected 3 problems, got %+v", se)
	}
	if _, ok := se.Problems[3]; ok {
		t.Fatalf("valid slot reported as a problem")
	}
}
