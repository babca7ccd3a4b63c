package offers

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"coverdance.app/internal/sim/projects"
	"coverdance.app/internal/sim/rating"
)

// Seed is one entry of the project name library.
type Seed struct {
	Name  string         `json:"name"`
	Style projects.Style `json:"style"`
	PropF int            `json:"prop_f,omitempty"`
}

type Generator struct {
	Seeds []Seed
	Rand  *rand.Rand
}

func New(seeds []Seed, r *rand.Rand) *Generator {
	if r == nil {
		r = rand.New(rand.NewSource(1))
	}
	return &Generator{Seeds: seeds, Rand: r}
}

// NewID draws a project id from the generator's source so seeded runs repeat.
func (g *Generator) NewID() string {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], g.Rand.Uint64())
	binary.BigEndian.PutUint64(b[8:], g.Rand.Uint64())
	id, err := uuid.NewRandomFromReader(bytes.NewReader(b[:]))
	if err != nil {
		return "project_" + uuid.NewString()
	}
	return "project_" + id.String()
}

// Generate builds count offers: 40% female, 40% male, the rest mixed, sampled
// without replacement while each pool lasts.
func (g *Generator) Generate(count int, fSkill, mSkill float64) []projects.Template {
	if count <= 0 || len(g.Seeds) == 0 {
		return nil
	}
	female := count * 4 / 10
	male := count * 4 / 10
	mixed := count - female - male

	var out []projects.Template
	for _, part := range []struct {
		style projects.Style
		n     int
	}{
		{projects.StyleFemale, female},
		{projects.StyleMale, male},
		{projects.StyleBoth, mixed},
	} {
		for _, s := range g.sample(g.pool(part.style), part.n) {
			out = append(out, g.FromSeed(s, fSkill, mSkill))
		}
	}
	return out
}

func (g *Generator) pool(style projects.Style) []Seed {
	var out []Seed
	for _, s := range g.Seeds {
		if s.Style == style {
			out = append(out, s)
		}
	}
	return out
}

func (g *Generator) sample(pool []Seed, n int) []Seed {
	if len(pool) == 0 || n <= 0 {
		return nil
	}
	shuffled := append([]Seed(nil), pool...)
	g.Rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	out := make([]Seed, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, shuffled[i%len(shuffled)])
	}
	return out
}

// FromSeed rolls the numeric terms of one offer relative to the player's skill.
func (g *Generator) FromSeed(s Seed, fSkill, mSkill float64) projects.Template {
	r := g.Rand
	fast := r.Float64() < 0.5
	weeks := 9 + r.Intn(12)
	duration := projects.DurationLong
	if fast {
		weeks = 2 + r.Intn(7)
		duration = projects.DurationFast
	}
	perWeek := 3
	if r.Float64() < 0.6 {
		perWeek = 2
	}

	return projects.Template{
		ID:               g.NewID(),
		Name:             s.Name,
		RequiredSkill:    s.Style,
		MinSkillRequired: g.minSkill(s, fSkill, mSkill),
		DurationWeeks:    weeks,
		Duration:         duration,
		TrainingsPerWeek: perWeek,
		TrainingNeeded:   max(1, weeks-1) * perWeek,
		TrainingCost:     150 + r.Intn(251),
		CostumeCost:      CostumeCost(weeks),
	}
}

func CostumeCost(weeks int) int {
	if weeks <= 8 {
		return 3000
	}
	return 5000
}

// RequiredBase places a requirement around avg: half near it, a fifth a tier
// below, the rest a tier above.
func RequiredBase(r *rand.Rand, avg int) int {
	level := rating.LevelOf(float64(avg))
	roll := r.Float64()
	switch {
	case roll < 0.5:
		pct := r.Float64() * 7 / 100
		sign := 1
		if r.Float64() < 0.5 {
			sign = -1
		}
		return max(0, avg+sign*round(float64(avg)*pct))
	case roll < 0.7:
		switch level {
		case rating.LevelNovice:
			return max(0, round(float64(avg)-r.Float64()*50))
		case rating.LevelTop:
			return round(300 + r.Float64()*400)
		default:
			return round(r.Float64() * 300)
		}
	default:
		switch level {
		case rating.LevelTop:
			return min(1000, round(float64(avg)+r.Float64()*50))
		case rating.LevelNovice:
			return round(300 + r.Float64()*400)
		default:
			return round(700 + r.Float64()*300)
		}
	}
}

func (g *Generator) minSkill(s Seed, fSkill, mSkill float64) int {
	avg := round((fSkill + mSkill) / 2)
	base := RequiredBase(g.Rand, avg)
	switch s.Style {
	case projects.StyleBoth:
		propF := s.PropF
		if propF <= 0 || propF >= 100 {
			propF = 30 + g.Rand.Intn(41)
		}
		f := round(float64(base) * float64(propF) / 100)
		m := round(float64(base) * float64(100-propF) / 100)
		return max(f, m)
	case projects.StyleFemale:
		return round(fSkill * float64(base) / float64(max(1, avg)))
	default:
		return round(mSkill * float64(base) / float64(max(1, avg)))
	}
}

// ForTeam tailors an offer to a team: the requirement follows the team's
// dominant skill instead of the player's.
func (g *Generator) ForTeam(team rating.TeamSummary, fSkill, mSkill float64) (projects.Template, bool) {
	var pool []Seed
	for _, s := range g.Seeds {
		if team.DominantStyle == projects.StyleBoth || s.Style == team.DominantStyle || s.Style == projects.StyleBoth {
			pool = append(pool, s)
		}
	}
	if len(pool) == 0 {
		return projects.Template{}, false
	}
	t := g.FromSeed(pool[g.Rand.Intn(len(pool))], fSkill, mSkill)
	avg := round(team.AvgDominant)
	if t.RequiredSkill == projects.StyleBoth {
		t.MinSkillRequired = max(0, round(float64(avg)*0.6))
	} else {
		t.MinSkillRequired = max(0, avg)
	}
	return t, true
}

func round(f float64) int { return int(math.Round(f)) }
