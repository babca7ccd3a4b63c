package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	SaveVersion string `yaml:"save_version"`

	StartingMoney       int `yaml:"starting_money"`
	StartingSkill       int `yaml:"starting_skill"`
	OfferBoardSize      int `yaml:"offer_board_size"`
	OfferBoardMinRefill int `yaml:"offer_board_min_refill"`
	RestDays            int `yaml:"rest_days"`

	Projects      Projects      `yaml:"projects"`
	Training      Training      `yaml:"training"`
	Costume       Costume       `yaml:"costume"`
	Relationships Relationships `yaml:"relationships"`
	Social        Social        `yaml:"social"`
	Teams         Teams         `yaml:"teams"`
}

type Projects struct {
	MaxBaseTraining         int     `yaml:"max_base_training"`
	MaxExtraTraining        int     `yaml:"max_extra_training"`
	ExtraTrainingCaps       []int   `yaml:"extra_training_caps"`
	DeadlineSlackDays       int     `yaml:"deadline_slack_days"`
	CostumeRequestProgress  int     `yaml:"costume_request_progress"`
	ReputationRefusalChance float64 `yaml:"reputation_refusal_chance"`
	DeadlineReputationLoss  int     `yaml:"deadline_reputation_loss"`
	SuccessPopularityMin    int     `yaml:"success_popularity_min"`
	SuccessPopularityMax    int     `yaml:"success_popularity_max"`
	SuccessReputationMin    int     `yaml:"success_reputation_min"`
	SuccessReputationMax    int     `yaml:"success_reputation_max"`
	TiredPerTraining        int     `yaml:"tired_per_training"`
}

// Training covers the player's own choreographer sessions, which never count toward projects.
type Training struct {
	StyleCost      int `yaml:"style_cost"`
	StyleGain      int `yaml:"style_gain"`
	WeeklyStyleCap int `yaml:"weekly_style_cap"`
}

type Costume struct {
	ApprovePercent    int `yaml:"approve_percent"`
	AcceptablePercent int `yaml:"acceptable_percent"`
	GraceDays         int `yaml:"grace_days"`
}

type Relationships struct {
	JointProject   int `yaml:"joint_project"`
	CollabProject  int `yaml:"collab_project"`
	TeamConflict   int `yaml:"team_conflict"`
	TeamFestival   int `yaml:"team_festival"`
	Greeting       int `yaml:"greeting"`
	SharedTraining int `yaml:"shared_training"`
}

type Social struct {
	BirthdayWindowDays int   `yaml:"birthday_window_days"`
	BirthdayReminders  []int `yaml:"birthday_reminders"`
	NewYearMonth       int   `yaml:"new_year_month"`
	NewYearWindowDays  int   `yaml:"new_year_window_days"`
}

type Teams struct {
	SkillRiskGap int `yaml:"skill_risk_gap"`
}

func Defaults() Tuning {
	return Tuning{
		SaveVersion:         "1",
		StartingMoney:       5000,
		StartingSkill:       300,
		OfferBoardSize:      20,
		OfferBoardMinRefill: 3,
		RestDays:            30,
		Projects: Projects{
			MaxBaseTraining:         3,
			MaxExtraTraining:        7,
			ExtraTrainingCaps:       []int{7, 7, 5, 3, 1},
			DeadlineSlackDays:       7,
			CostumeRequestProgress:  50,
			ReputationRefusalChance: 0.3,
			DeadlineReputationLoss:  5,
			SuccessPopularityMin:    20,
			SuccessPopularityMax:    80,
			SuccessReputationMin:    10,
			SuccessReputationMax:    40,
			TiredPerTraining:        2,
		},
		Training: Training{
			StyleCost:      300,
			StyleGain:      2,
			WeeklyStyleCap: 3,
		},
		Costume: Costume{
			ApprovePercent:    81,
			AcceptablePercent: 50,
			GraceDays:         7,
		},
		Relationships: Relationships{
			JointProject:   5,
			CollabProject:  10,
			TeamConflict:   -5,
			TeamFestival:   7,
			Greeting:       3,
			SharedTraining: 2,
		},
		Social: Social{
			BirthdayWindowDays: 3,
			BirthdayReminders:  []int{30, 7},
			NewYearMonth:       7,
			NewYearWindowDays:  7,
		},
		Teams: Teams{
			SkillRiskGap: 18,
		},
	}
}

// Normalize fills zero values from Defaults so partial tuning files stay usable.
func (t *Tuning) Normalize() {
	d := Defaults()
	if t.SaveVersion == "" {
		t.SaveVersion = d.SaveVersion
	}
	if t.StartingMoney <= 0 {
		t.StartingMoney = d.StartingMoney
	}
	if t.StartingSkill <= 0 {
		t.StartingSkill = d.StartingSkill
	}
	if t.OfferBoardSize <= 0 {
		t.OfferBoardSize = d.OfferBoardSize
	}
	if t.OfferBoardMinRefill <= 0 {
		t.OfferBoardMinRefill = d.OfferBoardMinRefill
	}
	if t.RestDays <= 0 {
		t.RestDays = d.RestDays
	}

	p := &t.Projects
	if p.MaxBaseTraining <= 0 {
		p.MaxBaseTraining = d.Projects.MaxBaseTraining
	}
	if p.MaxExtraTraining <= 0 {
		p.MaxExtraTraining = d.Projects.MaxExtraTraining
	}
	if len(p.ExtraTrainingCaps) == 0 {
		p.ExtraTrainingCaps = append([]int(nil), d.Projects.ExtraTrainingCaps...)
	}
	if p.DeadlineSlackDays < 0 {
		p.DeadlineSlackDays = 0
	}
	if p.CostumeRequestProgress <= 0 {
		p.CostumeRequestProgress = d.Projects.CostumeRequestProgress
	}
	if p.ReputationRefusalChance < 0 {
		p.ReputationRefusalChance = 0
	}
	if p.ReputationRefusalChance > 1 {
		p.ReputationRefusalChance = 1
	}
	if p.SuccessPopularityMax < p.SuccessPopularityMin {
		p.SuccessPopularityMax = p.SuccessPopularityMin
	}
	if p.SuccessReputationMax < p.SuccessReputationMin {
		p.SuccessReputationMax = p.SuccessReputationMin
	}

	tr := &t.Training
	if tr.StyleCost < 0 {
		tr.StyleCost = 0
	}
	if tr.StyleGain <= 0 {
		tr.StyleGain = d.Training.StyleGain
	}
	if tr.WeeklyStyleCap <= 0 {
		tr.WeeklyStyleCap = d.Training.WeeklyStyleCap
	}

	c := &t.Costume
	if c.ApprovePercent <= 0 {
		c.ApprovePercent = d.Costume.ApprovePercent
	}
	if c.AcceptablePercent <= 0 {
		c.AcceptablePercent = d.Costume.AcceptablePercent
	}
	if c.GraceDays <= 0 {
		c.GraceDays = d.Costume.GraceDays
	}

	s := &t.Social
	if s.BirthdayWindowDays <= 0 {
		s.BirthdayWindowDays = d.Social.BirthdayWindowDays
	}
	if s.NewYearWindowDays <= 0 {
		s.NewYearWindowDays = d.Social.NewYearWindowDays
	}
	if t.Teams.SkillRiskGap <= 0 {
		t.Teams.SkillRiskGap = d.Teams.SkillRiskGap
	}
}

// ExtraTrainingCap returns the total extra trainings allowed across n active projects.
// ExtraTrainingCaps[i] is the cap for i active projects; counts past the table get 0.
func (p Projects) ExtraTrainingCap(activeCount int) int {
	if activeCount < 0 || activeCount >= len(p.ExtraTrainingCaps) {
		return 0
	}
	return p.ExtraTrainingCaps[activeCount]
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	return t, nil
}
