package clock

const (
	DaysPerWeek   = 7
	DaysPerMonth  = 30
	MonthsPerYear = 12
	DaysPerYear   = DaysPerMonth * MonthsPerYear
)

// Clock is the stylized game calendar: every month has 30 days, every year 12 months.
type Clock struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Step describes what an Advance call crossed.
type Step struct {
	From         int
	To           int
	WeeksCrossed int
	YearsCrossed int
}

func FromAbsolute(abs int) Clock {
	if abs < 0 {
		abs = 0
	}
	return Clock{
		Year:  abs / DaysPerYear,
		Month: (abs % DaysPerYear) / DaysPerMonth,
		Day:   abs % DaysPerMonth,
	}
}

func (c Clock) AbsoluteDay() int {
	return c.Year*DaysPerYear + c.Month*DaysPerMonth + c.Day
}

func (c Clock) Weekday() int {
	return c.AbsoluteDay() % DaysPerWeek
}

// Normalize folds out-of-range fields (e.g. from a hand-edited save) back into the calendar.
func (c Clock) Normalize() Clock {
	abs := c.Year*DaysPerYear + c.Month*DaysPerMonth + c.Day
	return FromAbsolute(abs)
}

// Advance moves the clock forward. Non-positive input is a no-op.
// Week and year crossings are derived from the absolute day so they survive save/load.
func (c *Clock) Advance(days int) Step {
	from := c.AbsoluteDay()
	if days <= 0 {
		return Step{From: from, To: from}
	}
	to := from + days
	*c = FromAbsolute(to)
	return Step{
		From:         from,
		To:           to,
		WeeksCrossed: WeeksBetween(from, to),
		YearsCrossed: to/DaysPerYear - from/DaysPerYear,
	}
}

// WeeksBetween counts multiples of 7 in (from, to].
func WeeksBetween(from, to int) int {
	if to <= from {
		return 0
	}
	return to/DaysPerWeek - from/DaysPerWeek
}
