package outcome

import (
	"math"
	"math/rand"
)

type Comment struct {
	Text       string `json:"text"`
	Likes      int    `json:"likes"`
	Positive   bool   `json:"positive"`
	FromLeader bool   `json:"fromLeader,omitempty"`
}

var (
	PositivePhrases = []string{
		"Turned out really beautiful",
		"Loved every second of it",
		"Great cover!",
		"You all did amazing",
		"Such a pleasant performance",
	}
	NegativePhrases = []string{
		"Completely off the beat.",
		"Technically sloppy.",
		"No energy at all",
		"Really weak work",
		"Messy and uneven",
	}
)

const minComments = 3

type Input struct {
	Popularity     int
	Reputation     int
	MatchPercent   int
	LeaderOpinion  string
	PopularityGain [2]int
	ReputationGain [2]int
}

type Result struct {
	Likes            int
	Dislikes         int
	Comments         []Comment
	PopularityChange int
	ReputationChange int
}

// Band classifies a costume match for audience reactions.
type Band int

const (
	BandPoor Band = iota
	BandModerate
	BandExcellent
)

func BandOf(match int) Band {
	switch {
	case match >= 81:
		return BandExcellent
	case match >= 51:
		return BandModerate
	default:
		return BandPoor
	}
}

func CommentCount(popularity int) int {
	n := max(popularity, 30) / 10
	return max(minComments, n)
}

func PositiveChance(reputation int, match int) float64 {
	c := math.Max(0.05, math.Min(0.95, 0.5+float64(reputation)/200))
	switch BandOf(match) {
	case BandExcellent:
		c *= 1.1
	case BandModerate:
		c *= 0.9
	}
	return c
}

// Generate rolls the audience reaction to a successful release.
func Generate(r *rand.Rand, in Input) Result {
	band := BandOf(in.MatchPercent)
	chance := PositiveChance(in.Reputation, in.MatchPercent)

	var comments []Comment
	seen := map[string]bool{}
	if in.LeaderOpinion != "" {
		good := in.MatchPercent >= 51
		likes := 2
		if good {
			likes = 5
		}
		comments = append(comments, Comment{Text: in.LeaderOpinion, Likes: likes, Positive: good, FromLeader: true})
		seen[in.LeaderOpinion] = true
	}
	for i := len(comments); i < CommentCount(in.Popularity); i++ {
		positive := r.Float64() < chance
		var c Comment
		if positive {
			c = Comment{Text: PositivePhrases[r.Intn(len(PositivePhrases))], Likes: 1 + r.Intn(11), Positive: true}
			if band == BandExcellent {
				c.Likes = scale(c.Likes)
			}
		} else {
			c = Comment{Text: NegativePhrases[r.Intn(len(NegativePhrases))], Likes: r.Intn(4)}
			if band == BandModerate {
				c.Likes = scale(c.Likes)
			}
		}
		if seen[c.Text] {
			continue
		}
		seen[c.Text] = true
		comments = append(comments, c)
	}
	for len(comments) < minComments {
		phrases := NegativePhrases
		if len(comments) == 0 || r.Float64() < 0.5 {
			phrases = PositivePhrases
		}
		text := phrases[r.Intn(len(phrases))]
		if seen[text] {
			continue
		}
		seen[text] = true
		c := Comment{Text: text, Likes: r.Intn(9), Positive: len(comments) == 0 || r.Float64() < 0.6}
		if len(comments) == 0 {
			c.Likes = 5
		}
		comments = append(comments, c)
	}

	likes := 10 + r.Intn(91)
	dislikes := r.Intn(21)
	switch band {
	case BandExcellent:
		likes = scale(likes)
	case BandModerate:
		dislikes = scale(dislikes)
	}
	return Result{
		Likes:            likes,
		Dislikes:         dislikes,
		Comments:         comments,
		PopularityChange: between(r, in.PopularityGain),
		ReputationChange: between(r, in.ReputationGain),
	}
}

func scale(n int) int {
	return int(math.Round(float64(n) * 1.1))
}

func between(r *rand.Rand, span [2]int) int {
	lo, hi := span[0], span[1]
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}
