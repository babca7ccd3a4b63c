package core

import "math"

// Progress is round(100*completed/needed), clamped to [0,100].
func Progress(completed, needed int) int {
	if needed <= 0 {
		return 100
	}
	if completed <= 0 {
		return 0
	}
	if completed >= needed {
		return 100
	}
	return int(math.Round(100 * float64(completed) / float64(needed)))
}

func IsWeekBoundary(daysActive int) bool {
	return daysActive > 0 && daysActive%7 == 0
}

// DeadlineDay is the last daysActive value at which the project may still finish.
func DeadlineDay(durationWeeks, slackDays int, extended bool) int {
	d := durationWeeks*7 + slackDays
	if extended {
		d += 7
	}
	return d
}

func WithinExtraCap(extraSum, cap int) bool {
	return extraSum >= 0 && extraSum <= cap
}

type Verdict string

const (
	VerdictNone       Verdict = ""
	VerdictApproved   Verdict = "approved"
	VerdictAcceptable Verdict = "acceptable"
	VerdictRejected   Verdict = "rejected"
)

// CostumeVerdict applies the approval thresholds to a match percentage.
func CostumeVerdict(match, approvePercent, acceptablePercent int) Verdict {
	switch {
	case match >= approvePercent:
		return VerdictApproved
	case match >= acceptablePercent:
		return VerdictAcceptable
	default:
		return VerdictRejected
	}
}

func (v Verdict) Unlocks() bool {
	return v == VerdictApproved || v == VerdictAcceptable
}

type DayDecision string

const (
	DecisionNoop         DayDecision = "NOOP"
	DecisionContinue     DayDecision = "CONTINUE"
	DecisionSucceed      DayDecision = "SUCCEED"
	DecisionFailDeadline DayDecision = "FAIL_DEADLINE"
	DecisionExtend       DayDecision = "EXTEND_DEADLINE"
)

type DayInput struct {
	Active             bool
	TrainingsCompleted int
	TrainingNeeded     int
	CostumeRequired    bool
	CostumeApproved    bool
	DaysActive         int
	DeadlineDay        int
	// GraceRunning is set while a rejected costume's grace timer runs and the
	// one deadline extension is still unused.
	GraceRunning bool
}

// DecideDay settles a project at the end of one simulated day.
// Success wins over the deadline when both happen on the same day. A deadline
// reached during a costume grace period spends the extension instead of failing.
func DecideDay(in DayInput) DayDecision {
	if !in.Active {
		return DecisionNoop
	}
	if in.TrainingsCompleted >= in.TrainingNeeded && (!in.CostumeRequired || in.CostumeApproved) {
		return DecisionSucceed
	}
	if in.DaysActive > in.DeadlineDay {
		if in.GraceRunning {
			return DecisionExtend
		}
		return DecisionFailDeadline
	}
	return DecisionContinue
}

// ScheduledTrainings is how many trainings a weekly boundary tries to pay for.
func ScheduledTrainings(base, extra, completed, needed int) int {
	n := base + extra
	if rest := needed - completed; n > rest {
		n = rest
	}
	if n < 0 {
		return 0
	}
	return n
}
