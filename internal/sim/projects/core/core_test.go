package core

import "testing"

func TestProgress(t *testing.T) {
	cases := []struct{ done, need, want int }{
		{0, 4, 0},
		{1, 4, 25},
		{1, 3, 33},
		{2, 3, 67},
		{4, 4, 100},
		{9, 4, 100},
		{0, 0, 100},
	}
	for _, c := range cases {
		if got := Progress(c.done, c.need); got != c.want {
			t.Fatalf("Progress(%d,%d)=%d want %d", c.done, c.need, got, c.want)
		}
	}
}

func TestDeadlineDay(t *testing.T) {
	if got := DeadlineDay(2, 7, false); got != 21 {
		t.Fatalf("expected 21, got %d", got)
	}
	if got := DeadlineDay(2, 7, true); got != 28 {
		t.Fatalf("expected 28 with extension, got %d", got)
	}
}

func TestCostumeVerdict(t *testing.T) {
	cases := map[int]Verdict{
		100: VerdictApproved,
		81:  VerdictApproved,
		80:  VerdictAcceptable,
		50:  VerdictAcceptable,
		49:  VerdictRejected,
		0:   VerdictRejected,
	}
	for match, want := range cases {
		if got := CostumeVerdict(match, 81, 50); got != want {
			t.Fatalf("match %d: got %s want %s", match, got, want)
		}
	}
	if VerdictRejected.Unlocks() || !VerdictAcceptable.Unlocks() {
		t.Fatalf("unexpected unlock rules")
	}
}

func TestDecideDay(t *testing.T) {
	if got := DecideDay(DayInput{Active: false}); got != DecisionNoop {
		t.Fatalf("expected noop, got %s", got)
	}
	if got := DecideDay(DayInput{Active: true, TrainingsCompleted: 4, TrainingNeeded: 4}); got != DecisionSucceed {
		t.Fatalf("expected succeed, got %s", got)
	}
	blocked := DayInput{Active: true, TrainingsCompleted: 4, TrainingNeeded: 4, CostumeRequired: true, DaysActive: 10, DeadlineDay: 21}
	if got := DecideDay(blocked); got != DecisionContinue {
		t.Fatalf("expected costume to block success, got %s", got)
	}
	blocked.DaysActive = 22
	if got := DecideDay(blocked); got != DecisionFailDeadline {
		t.Fatalf("expected deadline failure, got %s", got)
	}
	blocked.GraceRunning = true
	if got := DecideDay(blocked); got != DecisionExtend {
		t.Fatalf("expected extension during grace, got %s", got)
	}
	blocked.GraceRunning = false
	blocked.CostumeApproved = true
	if got := DecideDay(blocked); got != DecisionSucceed {
		t.Fatalf("expected success to win, got %s", got)
	}
}

func TestScheduledTrainings(t *testing.T) {
	if got := ScheduledTrainings(2, 1, 0, 10); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := ScheduledTrainings(2, 1, 9, 10); got != 1 {
		t.Fatalf("expected capped to remaining 1, got %d", got)
	}
	if got := ScheduledTrainings(0, 0, 0, 10); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
