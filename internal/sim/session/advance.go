package session

import (
	"github.com/sirupsen/logrus"

	"coverdance.app/internal/protocol"
	"coverdance.app/internal/sim/projects"
)

type AdvanceReport struct {
	Days             int
	WeeksCrossed     int
	YearsCrossed     int
	TrainingsPaid    int
	MoneySpent       int
	NeedsFunding     []string
	CostumeRequested []string
	DeadlineExtended []string
	Completed        []string
	Failed           []string
	Reminders        []Reminder
	CollabAnswers    []CollabAnswer
	OffersAdded      int
}

// AdvanceDays moves the clock one day at a time. Each day every active
// project ticks in project-id order, finished projects are archived, and the
// social calendar (collab answers, birthday reminders) is processed.
func (s *Session) AdvanceDays(days int) AdvanceReport {
	var rep AdvanceReport
	if days <= 0 {
		return rep
	}
	for d := 0; d < days; d++ {
		s.advanceOne(&rep)
	}
	if len(rep.Completed)+len(rep.Failed) > 0 {
		rep.OffersAdded = s.refill()
	}
	return rep
}

func (s *Session) advanceOne(rep *AdvanceReport) {
	step := s.clock.Advance(1)
	today := step.To
	rep.Days++
	if step.WeeksCrossed > 0 {
		rep.WeeksCrossed += step.WeeksCrossed
		s.player.FTrainingsThisWeek = 0
		s.player.MTrainingsThisWeek = 0
	}
	if step.YearsCrossed > 0 {
		rep.YearsCrossed += step.YearsCrossed
		clear(s.player.NewYearGreetingsSent)
		clear(s.player.BirthdayGreetingsSent)
	}

	for _, p := range s.activeSorted() {
		tr := s.engine.Tick(p, 1, s.player, today)
		rep.TrainingsPaid += tr.TrainingsPaid
		rep.MoneySpent += tr.MoneySpent
		if tr.TrainingsPaid > 0 {
			s.player.addTired(tr.TrainingsPaid * s.tun.Projects.TiredPerTraining)
		}
		if tr.NeedsFunding {
			rep.NeedsFunding = append(rep.NeedsFunding, p.ID)
			s.log.WithFields(logrus.Fields{"project_id": p.ID, "backlog": p.FundingBacklog}).Info("project needs funding")
			s.emit(protocol.EventNeedsFunding, protocol.Event{"project_id": p.ID, "backlog": p.FundingBacklog})
		}
		if tr.CostumeRequested {
			rep.CostumeRequested = append(rep.CostumeRequested, p.ID)
			s.emit(protocol.EventCostumeRequested, protocol.Event{"project_id": p.ID, "progress": p.Progress})
		}
		if tr.DeadlineExtended {
			rep.DeadlineExtended = append(rep.DeadlineExtended, p.ID)
			s.emit(protocol.EventDeadlineExtended, protocol.Event{"project_id": p.ID})
		}
		switch {
		case tr.Succeeded:
			rep.Completed = append(rep.Completed, p.ID)
			s.finish(p)
		case tr.Failed:
			rep.Failed = append(rep.Failed, p.ID)
			s.finish(p)
		}
	}

	rep.CollabAnswers = append(rep.CollabAnswers, s.answerCollabs(today)...)
	rep.Reminders = append(rep.Reminders, s.birthdayReminders(today)...)
}

// finish applies a terminal project's standing changes and archives it.
func (s *Session) finish(p *projects.Project) {
	s.player.applyStanding(p.PopularityChange, p.ReputationChange)
	fields := logrus.Fields{"project_id": p.ID, "popularity": p.PopularityChange, "reputation": p.ReputationChange}
	if p.Success {
		if leader := s.liveNPC(p.LeaderID); leader != nil {
			s.addPoints(leader, s.tun.Relationships.JointProject, "project_completed")
		}
		s.log.WithFields(fields).Info("project completed")
		s.emit(protocol.EventProjectCompleted, protocol.Event{
			"project_id": p.ID,
			"likes":      p.Likes,
			"dislikes":   p.Dislikes,
			"popularity": p.PopularityChange,
			"reputation": p.ReputationChange,
		})
	} else {
		s.log.WithFields(fields).Info("project failed")
		s.emit(protocol.EventProjectFailed, protocol.Event{
			"project_id":   p.ID,
			"deadline":     p.FailedDueToDeadline,
			"refundable":   s.escrow.Held(p.ID),
			"reputation":   p.ReputationChange,
			"days_active":  p.DaysActive,
			"trainings":    p.TrainingsCompleted,
			"training_cap": p.TrainingNeeded,
		})
	}
	s.archiveProject(p)
}

// Rest skips the configured number of days and clears tiredness.
func (s *Session) Rest() AdvanceReport {
	rep := s.AdvanceDays(s.tun.RestDays)
	s.player.Tired = 0
	return rep
}

// RecordStyleTraining is a paid choreographer session in one style. It raises
// the player's skill and never counts toward project progress.
func (s *Session) RecordStyleTraining(style projects.Style) bool {
	var counter *int
	var skill *float64
	switch style {
	case projects.StyleFemale:
		counter, skill = &s.player.FTrainingsThisWeek, &s.player.FSkill
	case projects.StyleMale:
		counter, skill = &s.player.MTrainingsThisWeek, &s.player.MSkill
	default:
		return s.reject("style_training", style.String(), protocol.ErrBadRequest, "train one style at a time")
	}
	if *counter >= s.tun.Training.WeeklyStyleCap {
		return s.reject("style_training", style.String(), protocol.ErrBlocked, "weekly sessions used up")
	}
	if !s.player.Debit(s.tun.Training.StyleCost) {
		return s.reject("style_training", style.String(), protocol.ErrNoResource, "insufficient money")
	}
	*counter++
	*skill += float64(s.tun.Training.StyleGain)
	s.player.addTired(s.tun.Projects.TiredPerTraining)

	if t := s.teams[s.player.TeamID]; t != nil {
		for _, id := range t.MemberIDs {
			if n := s.liveNPC(id); n != nil {
				s.addPoints(n, s.tun.Relationships.SharedTraining, "shared_training")
			}
		}
	}
	s.emit(protocol.EventStyleTraining, protocol.Event{"style": style.String(), "count": *counter})
	return true
}

// RefreshOffers replaces the board. Offers with money set aside stay.
func (s *Session) RefreshOffers() int {
	kept := s.available[:0]
	for _, p := range s.available {
		if s.escrow.Held(p.ID) > 0 {
			kept = append(kept, p)
		}
	}
	s.available = kept
	return s.fillBoard(s.tun.OfferBoardSize - len(s.available))
}

// refill tops the board up after projects finish.
func (s *Session) refill() int {
	room := s.tun.OfferBoardSize - len(s.available)
	return s.fillBoard(min(room, s.tun.OfferBoardMinRefill))
}

func (s *Session) fillBoard(n int) int {
	if n <= 0 {
		return 0
	}
	added := 0
	if t := s.teams[s.player.TeamID]; t != nil {
		if sum, ok := s.TeamSummary(t.ID); ok && sum.Members > 0 {
			if tpl, ok := s.offers.ForTeam(sum, s.player.FSkill, s.player.MSkill); ok {
				tpl.LeaderID = t.LeaderID
				s.post(tpl)
				added++
			}
		}
	}
	for _, tpl := range s.offers.Generate(n-added, s.player.FSkill, s.player.MSkill) {
		s.post(tpl)
		added++
	}
	if added > 0 {
		s.emit(protocol.EventOffersRefreshed, protocol.Event{"added": added, "board": len(s.available)})
	}
	return added
}

// post puts tpl on the board under an id no other project uses.
func (s *Session) post(tpl projects.Template) {
	for s.find(tpl.ID) != nil || s.escrow.Held(tpl.ID) > 0 {
		tpl.ID = s.offers.NewID()
	}
	s.available = append(s.available, projects.NewAvailable(tpl))
}
