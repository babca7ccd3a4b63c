package session

import (
	"sort"

	"github.com/sirupsen/logrus"

	"coverdance.app/internal/protocol"
	"coverdance.app/internal/sim/clock"
	"coverdance.app/internal/sim/relations"
)

// collabAnswerDelay bounds how many days an NPC takes to answer a collab proposal.
const collabAnswerDelay = 7

type TeamEventKind string

const (
	TeamFestival TeamEventKind = "festival"
	TeamConflict TeamEventKind = "conflict"
)

// AddRelationshipPoints adjusts an NPC's points, clamped into [0,1000].
// Unknown or retired NPCs are left alone.
func (s *Session) AddRelationshipPoints(npcID string, delta int) bool {
	n := s.liveNPC(npcID)
	if n == nil {
		return s.reject("relationship", npcID, protocol.ErrInvalidTarget, "unknown npc")
	}
	s.addPoints(n, delta, "manual")
	return true
}

func (s *Session) addPoints(n *NPC, delta int, reason string) {
	before := n.RelationshipPoints
	after := n.addPoints(delta)
	if before == after {
		return
	}
	if relations.TierOf(before) != relations.TierOf(after) {
		s.log.WithFields(logrus.Fields{"npc_id": n.ID, "tier": relations.TierOf(after)}).Info("relationship tier changed")
	}
	s.emit(protocol.EventRelationship, protocol.Event{
		"npc_id": n.ID,
		"delta":  after - before,
		"points": after,
		"tier":   string(relations.TierOf(after)),
		"reason": reason,
	})
}

// reachable resolves an NPC that can currently receive a social action.
func (s *Session) reachable(op, npcID string) *NPC {
	n := s.liveNPC(npcID)
	if n == nil {
		s.reject(op, npcID, protocol.ErrInvalidTarget, "unknown npc")
		return nil
	}
	if !relations.CanReceiveSocialAction(n.Gate()) {
		s.reject(op, npcID, protocol.ErrBlocked, "chat is closed")
		return nil
	}
	return n
}

// ProposeCollab sends a collab request; the NPC answers within a week.
func (s *Session) ProposeCollab(npcID string) bool {
	n := s.reachable("collab", npcID)
	if n == nil {
		return false
	}
	if s.player.PendingCollabs[npcID] {
		return s.reject("collab", npcID, protocol.ErrConflict, "proposal already pending")
	}
	today := s.Day()
	s.collabs = append(s.collabs, collabProposal{
		npcID:      npcID,
		createdDay: today,
		respondDay: today + 1 + s.rng.Intn(collabAnswerDelay),
	})
	s.player.PendingCollabs[npcID] = true
	s.emit(protocol.EventCollabProposed, protocol.Event{"npc_id": npcID})
	return true
}

// CollabAnswer is an NPC's reply to a collab proposal.
type CollabAnswer struct {
	NPCID    string
	Accepted bool
}

// collabAcceptChance is lower when the NPC takes the last days of the answer
// window.
func collabAcceptChance(waited int) float64 {
	if waited <= 5 {
		return 0.7
	}
	return 0.5
}

func (s *Session) answerCollabs(today int) []CollabAnswer {
	var answers []CollabAnswer
	kept := s.collabs[:0]
	for _, c := range s.collabs {
		if c.respondDay > today {
			kept = append(kept, c)
			continue
		}
		delete(s.player.PendingCollabs, c.npcID)
		n := s.liveNPC(c.npcID)
		accepted := n != nil && s.rng.Float64() < collabAcceptChance(today-c.createdDay)
		if accepted {
			s.addPoints(n, s.tun.Relationships.CollabProject, "collab")
		}
		answers = append(answers, CollabAnswer{NPCID: c.npcID, Accepted: accepted})
		s.emit(protocol.EventCollabAnswered, protocol.Event{"npc_id": c.npcID, "accepted": accepted})
	}
	s.collabs = kept
	return answers
}

// SendChatMessage delivers a direct message if the NPC's chat is open.
func (s *Session) SendChatMessage(npcID, text string) bool {
	if s.reachable("chat", npcID) == nil {
		return false
	}
	s.emit(protocol.EventChatMessage, protocol.Event{"npc_id": npcID, "text": text})
	return true
}

// GiveGift hands over a catalog gift; matching the NPC's personality earns the larger bonus.
func (s *Session) GiveGift(npcID, giftID string) bool {
	g, ok := s.cats.Gifts.ByID[giftID]
	if !ok {
		return s.reject("gift", giftID, protocol.ErrInvalidTarget, "unknown gift")
	}
	n := s.reachable("gift", npcID)
	if n == nil {
		return false
	}
	bonus := relations.GiftBonus(g, n.BehaviorModel)
	s.addPoints(n, bonus, "gift")
	s.emit(protocol.EventGiftGiven, protocol.Event{"npc_id": npcID, "gift_id": giftID, "matched": g.Suits(n.BehaviorModel)})
	return true
}

// greetingBonus is the gift bonus when giftID names a catalog gift, else the plain greeting bonus.
func (s *Session) greetingBonus(n *NPC, giftID string) int {
	if g, ok := s.cats.Gifts.ByID[giftID]; ok && giftID != "" {
		return relations.GiftBonus(g, n.BehaviorModel)
	}
	return s.tun.Relationships.Greeting
}

// SendBirthdayGreeting works on the birthday and the following window days, once a year.
func (s *Session) SendBirthdayGreeting(npcID, giftID string) bool {
	n := s.reachable("birthday", npcID)
	if n == nil {
		return false
	}
	if s.player.BirthdayGreetingsSent[npcID] {
		return s.reject("birthday", npcID, protocol.ErrConflict, "already greeted")
	}
	if !n.inBirthdayWindow(s.Day(), s.tun.Social.BirthdayWindowDays) {
		return s.reject("birthday", npcID, protocol.ErrBlocked, "not the birthday")
	}
	s.player.BirthdayGreetingsSent[npcID] = true
	s.addPoints(n, s.greetingBonus(n, giftID), "birthday")
	s.emit(protocol.EventGreetingSent, protocol.Event{"npc_id": npcID, "kind": "birthday", "gift_id": giftID})
	return true
}

// InNewYearWindow reports whether New Year greetings are open today.
func (s *Session) InNewYearWindow() bool {
	return s.clock.Month == s.tun.Social.NewYearMonth && s.clock.Day < s.tun.Social.NewYearWindowDays
}

func (s *Session) SendNewYearGreeting(npcID, giftID string) bool {
	n := s.reachable("new_year", npcID)
	if n == nil {
		return false
	}
	if s.player.NewYearGreetingsSent[npcID] {
		return s.reject("new_year", npcID, protocol.ErrConflict, "already greeted")
	}
	if !s.InNewYearWindow() {
		return s.reject("new_year", npcID, protocol.ErrBlocked, "outside the new year window")
	}
	s.player.NewYearGreetingsSent[npcID] = true
	s.addPoints(n, s.greetingBonus(n, giftID), "new_year")
	s.emit(protocol.EventGreetingSent, protocol.Event{"npc_id": npcID, "kind": "new_year", "gift_id": giftID})
	return true
}

// RetireNPC takes an NPC out of play. Past records keep the id.
func (s *Session) RetireNPC(npcID string) bool {
	n := s.liveNPC(npcID)
	if n == nil {
		return s.reject("retire", npcID, protocol.ErrInvalidTarget, "unknown npc")
	}
	n.Active = false
	delete(s.player.PendingCollabs, npcID)
	s.log.WithField("npc_id", npcID).Info("npc retired")
	s.emit(protocol.EventNPCRetired, protocol.Event{"npc_id": npcID})
	return true
}

// SetEnemyBadge marks or clears an NPC's hostility toward the player.
func (s *Session) SetEnemyBadge(npcID string, enemy bool) bool {
	n := s.liveNPC(npcID)
	if n == nil {
		return s.reject("enemy", npcID, protocol.ErrInvalidTarget, "unknown npc")
	}
	n.EnemyBadge = enemy
	return true
}

// JoinTeam moves the player into a team; an empty id leaves the current one.
func (s *Session) JoinTeam(teamID string) bool {
	if teamID != "" && s.teams[teamID] == nil {
		return s.reject("join_team", teamID, protocol.ErrInvalidTarget, "unknown team")
	}
	s.player.TeamID = teamID
	fields := protocol.Event{"team_id": teamID}
	if teamID != "" {
		fields["skill_risk"] = s.TeamSkillMismatch(teamID)
	}
	s.emit(protocol.EventTeamJoined, fields)
	return true
}

// ApplyTeamEvent applies a festival or conflict bonus to every active member of a team.
func (s *Session) ApplyTeamEvent(teamID string, kind TeamEventKind) bool {
	t := s.teams[teamID]
	if t == nil {
		return s.reject("team_event", teamID, protocol.ErrInvalidTarget, "unknown team")
	}
	var delta int
	switch kind {
	case TeamFestival:
		delta = s.tun.Relationships.TeamFestival
	case TeamConflict:
		delta = s.tun.Relationships.TeamConflict
	default:
		return s.reject("team_event", teamID, protocol.ErrBadRequest, "unknown event kind")
	}
	for _, id := range t.MemberIDs {
		if n := s.liveNPC(id); n != nil {
			s.addPoints(n, delta, string(kind))
		}
	}
	s.emit(protocol.EventTeamEvent, protocol.Event{"team_id": teamID, "kind": string(kind)})
	return true
}

// Reminder announces an upcoming NPC birthday.
type Reminder struct {
	NPCID     string
	DaysAhead int
	Birthday  clock.Clock
}

// birthdayReminders fires each configured lead time once per birthday.
func (s *Session) birthdayReminders(today int) []Reminder {
	var out []Reminder
	for _, id := range s.npcIDs() {
		n := s.npcs[id]
		if !n.Active {
			continue
		}
		bday, ok := n.nextBirthday(today)
		if !ok {
			continue
		}
		year := bday / clock.DaysPerYear
		for _, lead := range s.tun.Social.BirthdayReminders {
			if bday-today != lead {
				continue
			}
			if sent, ok := n.reminders[lead]; ok && sent == year {
				continue
			}
			n.reminders[lead] = year
			out = append(out, Reminder{NPCID: id, DaysAhead: lead, Birthday: clock.FromAbsolute(bday)})
			s.emit(protocol.EventBirthdayReminder, protocol.Event{"npc_id": id, "days_ahead": lead, "birthday": bday})
		}
	}
	return out
}

func (s *Session) npcIDs() []string {
	ids := make([]string, 0, len(s.npcs))
	for id := range s.npcs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
