package rating

import (
	"math"
	"sort"

	"coverdance.app/internal/sim/projects"
)

// Stats is the snapshot a rating is computed from. Players, NPCs and teams share it.
type Stats struct {
	FSkill     float64
	MSkill     float64
	Popularity int
	Reputation int
}

func (s Stats) AvgSkill() float64 { return (s.FSkill + s.MSkill) / 2 }

// Dominant is the stronger of the two skills and the style it belongs to.
func (s Stats) Dominant() (float64, projects.Style) {
	switch {
	case s.FSkill > s.MSkill:
		return s.FSkill, projects.StyleFemale
	case s.MSkill > s.FSkill:
		return s.MSkill, projects.StyleMale
	default:
		return s.FSkill, projects.StyleBoth
	}
}

// Score is 0.6*skill + 0.3*popularity + 0.1*reputation, each normalised to 0..1.
func Score(s Stats) float64 {
	skill := s.AvgSkill() / 1000
	pop := float64(s.Popularity) / 1000
	rep := float64(s.Reputation+1000) / 2000
	return 0.6*skill + 0.3*pop + 0.1*rep
}

type Entry struct {
	ID    string
	Name  string
	Stats Stats
	Score float64
}

// Rank scores entries and sorts them best first. Equal scores order by ascending ID.
func Rank(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	for i := range out {
		out[i].Score = Score(out[i].Stats)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func Top(entries []Entry, n int) []Entry {
	ranked := Rank(entries)
	if n < 0 {
		n = 0
	}
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Position is the 1-based place id would take in the ranking, or 0 when absent.
func Position(entries []Entry, id string) int {
	for i, e := range Rank(entries) {
		if e.ID == id {
			return i + 1
		}
	}
	return 0
}

type Level string

const (
	LevelNovice Level = "novice"
	LevelMiddle Level = "middle"
	LevelTop    Level = "top"
)

func LevelOf(skill float64) Level {
	switch {
	case skill <= 300:
		return LevelNovice
	case skill <= 700:
		return LevelMiddle
	default:
		return LevelTop
	}
}

type TeamSummary struct {
	Members       int
	AvgSkill      float64
	AvgDominant   float64
	Popularity    float64
	Rating        float64
	Level         Level
	DominantStyle projects.Style
	Stats         Stats
}

// TeamStats aggregates member stats. Rating is 0.7*avg skill + 0.3*avg popularity.
func TeamStats(members []Stats) TeamSummary {
	var ts TeamSummary
	if len(members) == 0 {
		ts.Level = LevelNovice
		ts.DominantStyle = projects.StyleBoth
		return ts
	}
	var f, m, dom, pop, rep float64
	styles := map[projects.Style]int{}
	for _, s := range members {
		f += s.FSkill
		m += s.MSkill
		pop += float64(s.Popularity)
		rep += float64(s.Reputation)
		d, st := s.Dominant()
		dom += d
		styles[st]++
	}
	n := float64(len(members))
	ts.Members = len(members)
	ts.AvgSkill = (f + m) / 2 / n
	ts.AvgDominant = math.Round(dom / n)
	ts.Popularity = pop / n
	ts.Rating = ts.AvgSkill*0.7 + ts.Popularity*0.3
	ts.Level = LevelOf(ts.AvgSkill)
	ts.Stats = Stats{FSkill: f / n, MSkill: m / n, Popularity: int(math.Round(ts.Popularity)), Reputation: int(math.Round(rep / n))}
	switch {
	case styles[projects.StyleFemale] > styles[projects.StyleMale]:
		ts.DominantStyle = projects.StyleFemale
	case styles[projects.StyleMale] > styles[projects.StyleFemale]:
		ts.DominantStyle = projects.StyleMale
	default:
		ts.DominantStyle = projects.StyleBoth
	}
	return ts
}

// SkillRisk warns when a team's dominant skill is more than gap above the player's average.
func SkillRisk(team TeamSummary, player Stats, gap int) bool {
	return team.AvgDominant-math.Round(player.AvgSkill()) > float64(gap)
}
