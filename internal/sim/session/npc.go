package session

import (
	"coverdance.app/internal/sim/catalogs"
	"coverdance.app/internal/sim/clock"
	"coverdance.app/internal/sim/rating"
	"coverdance.app/internal/sim/relations"
)

// NPC is a catalog character plus the state the player can change.
type NPC struct {
	catalogs.NPCDef

	RelationshipPoints int
	EnemyBadge         bool
	Active             bool

	// reminders maps a lead time in days to the game year of the birthday it announced.
	reminders map[int]int
}

func newNPC(def catalogs.NPCDef) *NPC {
	return &NPC{NPCDef: def, Active: true, reminders: map[int]int{}}
}

func (n *NPC) Gate() relations.Gate {
	return relations.Gate{Points: n.RelationshipPoints, HasPrivateChat: n.HasPrivateChat, EnemyBadge: n.EnemyBadge}
}

func (n *NPC) Stats() rating.Stats {
	return rating.Stats{FSkill: n.FSkill, MSkill: n.MSkill, Popularity: n.Popularity, Reputation: n.Reputation}
}

func (n *NPC) addPoints(delta int) int {
	n.RelationshipPoints = relations.AddPoints(n.RelationshipPoints, delta)
	return n.RelationshipPoints
}

// Birthday maps the real "MM.DD" birth date onto the game calendar: the game
// year starts in June, and days are zero-based with the 31st folded onto day 29.
func Birthday(birthDate string) (month, day int, ok bool) {
	mm, dd, ok := catalogs.ParseBirthDate(birthDate)
	if !ok {
		return 0, 0, false
	}
	month = (mm - 6 + clock.MonthsPerYear) % clock.MonthsPerYear
	day = min(dd-1, clock.DaysPerMonth-1)
	return month, day, true
}

// nextBirthday is the first absolute day >= today that falls on the NPC's birthday.
func (n *NPC) nextBirthday(today int) (int, bool) {
	m, d, ok := Birthday(n.BirthDate)
	if !ok {
		return 0, false
	}
	year := today / clock.DaysPerYear
	abs := clock.Clock{Year: year, Month: m, Day: d}.AbsoluteDay()
	if abs < today {
		abs += clock.DaysPerYear
	}
	return abs, true
}

// inBirthdayWindow reports whether today is the birthday or one of the window-1 days after it.
func (n *NPC) inBirthdayWindow(today, window int) bool {
	m, d, ok := Birthday(n.BirthDate)
	if !ok {
		return false
	}
	for _, year := range []int{today / clock.DaysPerYear, today/clock.DaysPerYear - 1} {
		start := clock.Clock{Year: year, Month: m, Day: d}.AbsoluteDay()
		if today >= start && today < start+window {
			return true
		}
	}
	return false
}

type Team struct {
	ID        string
	Name      string
	LeaderID  string
	MemberIDs []string
}

func newTeam(def catalogs.TeamDef) *Team {
	return &Team{
		ID:        def.ID,
		Name:      def.Name,
		LeaderID:  def.LeaderID,
		MemberIDs: append([]string(nil), def.MemberIDs...),
	}
}
