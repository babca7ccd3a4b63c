package projects

import (
	"fmt"

	"coverdance.app/internal/sim/projects/outcome"
)

// Style is the skill track a project trains.
type Style int

const (
	StyleFemale Style = iota
	StyleMale
	StyleBoth
)

func (s Style) String() string {
	switch s {
	case StyleFemale:
		return "F_skill"
	case StyleMale:
		return "M_skill"
	case StyleBoth:
		return "Both"
	default:
		return fmt.Sprintf("Style(%d)", int(s))
	}
}

func ParseStyle(s string) (Style, bool) {
	switch s {
	case "F_skill":
		return StyleFemale, true
	case "M_skill":
		return StyleMale, true
	case "Both":
		return StyleBoth, true
	}
	return 0, false
}

func (s Style) MarshalText() ([]byte, error) {
	if s < StyleFemale || s > StyleBoth {
		return nil, fmt.Errorf("bad style %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Style) UnmarshalText(b []byte) error {
	v, ok := ParseStyle(string(b))
	if !ok {
		return fmt.Errorf("bad style %q", string(b))
	}
	*s = v
	return nil
}

type Duration int

const (
	DurationFast Duration = iota
	DurationLong
)

func (d Duration) String() string {
	if d == DurationLong {
		return "long"
	}
	return "fast"
}

func (d Duration) MarshalText() ([]byte, error) {
	if d != DurationFast && d != DurationLong {
		return nil, fmt.Errorf("bad duration %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	switch string(b) {
	case "fast":
		*d = DurationFast
	case "long":
		*d = DurationLong
	default:
		return fmt.Errorf("bad duration %q", string(b))
	}
	return nil
}

type Status string

const (
	StatusAvailable Status = "available"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Template is the static part of a project, fixed once an offer is generated.
type Template struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	RequiredSkill    Style    `json:"requiredSkill"`
	MinSkillRequired int      `json:"minSkillRequired"`
	MinReputation    int      `json:"minReputation"`
	DurationWeeks    int      `json:"durationWeeks"`
	Duration         Duration `json:"duration"`
	TrainingsPerWeek int      `json:"trainingsPerWeek"`
	TrainingNeeded   int      `json:"trainingNeeded"`
	TrainingCost     int      `json:"trainingCost"`
	CostumeCost      int      `json:"costumeCost"`
	LeaderID         string   `json:"leaderId,omitempty"`
}

type Project struct {
	Template
	Status Status `json:"status"`

	Progress           int  `json:"progress"`
	TrainingsCompleted int  `json:"trainingsCompleted"`
	BaseTraining       int  `json:"baseTraining"`
	ExtraTraining      int  `json:"extraTraining"`
	DaysActive         int  `json:"daysActive"`
	NeedsFunding       bool `json:"needsFunding"`
	FundingBacklog     int  `json:"fundingBacklog,omitempty"`
	AcceptedDay        int  `json:"acceptedDay"`

	// CostumeSavedMoney mirrors the committed part of the escrow account.
	CostumeSavedMoney    int    `json:"costumeSavedMoney"`
	CostumeRequested     bool   `json:"costumeRequested"`
	CostumeMatchPercent  int    `json:"costumeMatchPercent"`
	CostumeApproved      bool   `json:"costumeApproved"`
	CostumeLocked        bool   `json:"costumeLocked"`
	CostumePaid          bool   `json:"costumePaid"`
	CostumeOpinion       string `json:"costumeOpinion,omitempty"`
	CostumeGraceUntilDay int    `json:"costumeGraceUntilDay,omitempty"`
	DeadlineExtended     bool   `json:"deadlineExtended"`

	Success             bool              `json:"success"`
	FailedDueToDeadline bool              `json:"failedDueToDeadline"`
	CancelledByEvent    bool              `json:"cancelledByEvent"`
	CompletedDay        int               `json:"completedDay,omitempty"`
	Likes               int               `json:"likes"`
	Dislikes            int               `json:"dislikes"`
	Comments            []outcome.Comment `json:"comments,omitempty"`
	PopularityChange    int               `json:"popularityChange,omitempty"`
	ReputationChange    int               `json:"reputationChange,omitempty"`
}

// NewAvailable wraps a template as an offer on the board.
func NewAvailable(t Template) *Project {
	return &Project{Template: t, Status: StatusAvailable}
}

func (p *Project) Active() bool { return p != nil && p.Status == StatusActive }

// NeedsCostume reports whether success is still blocked on costume approval.
func (p *Project) NeedsCostume() bool {
	return p.CostumeCost > 0 && !p.CostumeApproved
}

func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Comments = append([]outcome.Comment(nil), p.Comments...)
	return &cp
}
