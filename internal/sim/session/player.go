package session

import "coverdance.app/internal/sim/rating"

const (
	MaxTired      = 100
	MaxPopularity = 1000
	MaxReputation = 1000
)

// Player is the single money pool every training, reservation and purchase draws from.
type Player struct {
	Name       string
	Money      int
	FSkill     float64
	MSkill     float64
	Tired      int
	Reputation int
	Popularity int
	TeamID     string

	FTrainingsThisWeek int
	MTrainingsThisWeek int

	PendingCollabs        map[string]bool
	NewYearGreetingsSent  map[string]bool
	BirthdayGreetingsSent map[string]bool
	Inventory             []string
}

func newPlayer(name string, money int, skill float64) *Player {
	return &Player{
		Name:                  name,
		Money:                 money,
		FSkill:                skill,
		MSkill:                skill,
		PendingCollabs:        map[string]bool{},
		NewYearGreetingsSent:  map[string]bool{},
		BirthdayGreetingsSent: map[string]bool{},
	}
}

func (p *Player) Balance() int { return p.Money }

// Debit checks and deducts in one step.
func (p *Player) Debit(amount int) bool {
	if amount < 0 || p.Money < amount {
		return false
	}
	p.Money -= amount
	return true
}

func (p *Player) Credit(amount int) {
	if amount > 0 {
		p.Money += amount
	}
}

func (p *Player) Standing() (popularity, reputation int) {
	return p.Popularity, p.Reputation
}

func (p *Player) Stats() rating.Stats {
	return rating.Stats{FSkill: p.FSkill, MSkill: p.MSkill, Popularity: p.Popularity, Reputation: p.Reputation}
}

func (p *Player) applyStanding(popularity, reputation int) {
	p.Popularity = clampInt(p.Popularity+popularity, 0, MaxPopularity)
	p.Reputation = clampInt(p.Reputation+reputation, -MaxReputation, MaxReputation)
}

func (p *Player) addTired(n int) {
	p.Tired = clampInt(p.Tired+n, 0, MaxTired)
}

func (p *Player) owns(itemID string) bool {
	for _, id := range p.Inventory {
		if id == itemID {
			return true
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
