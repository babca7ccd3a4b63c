package costume

import (
	"fmt"
	"math"
	"math/rand"

	"coverdance.app/internal/sim/projects"
)

type Category string

const (
	CategoryTop       Category = "top"
	CategoryBottom    Category = "bottom"
	CategoryShoes     Category = "shoes"
	CategoryAccessory Category = "accessory"
	CategoryOther     Category = "other"
)

// Suitability tags as they appear in clothes.json.
const (
	SuitAll        = "all"
	SuitBoth       = "both"
	SuitFemale     = "female"
	SuitMale       = "male"
	SuitFemaleBoth = "female+both"
	SuitMaleBoth   = "male+both"
)

const (
	MaxPoints      = 17
	MaxAccessories = 5
)

type ClothesItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Suitability string   `json:"suitability"`
	Points      int      `json:"points"`
	Price       int      `json:"price"`
}

// Suits reports whether a garment with the given tag fits a project style.
func Suits(tag string, style projects.Style) bool {
	switch tag {
	case SuitAll, SuitBoth:
		return true
	case SuitFemaleBoth:
		return style == projects.StyleFemale || style == projects.StyleBoth
	case SuitMaleBoth:
		return style == projects.StyleMale || style == projects.StyleBoth
	case SuitFemale:
		return style == projects.StyleFemale
	case SuitMale:
		return style == projects.StyleMale
	}
	return false
}

// Scorer turns a selection of garment ids into a match percentage for a style.
type Scorer func(style projects.Style, itemIDs []string) int

// CatalogScorer scores against the clothes catalog. The first suitable top,
// bottom and shoes count their points; up to five suitable accessories add one
// point each. Points are capped at MaxPoints.
func CatalogScorer(clothes []ClothesItem) Scorer {
	byID := make(map[string]ClothesItem, len(clothes))
	for _, c := range clothes {
		byID[c.ID] = c
	}
	return func(style projects.Style, itemIDs []string) int {
		picked := map[string]bool{}
		mains := map[Category]bool{}
		points, accessories := 0, 0
		for _, id := range itemIDs {
			it, ok := byID[id]
			if !ok || picked[id] {
				continue
			}
			picked[id] = true
			switch it.Category {
			case CategoryTop, CategoryBottom, CategoryShoes:
				if mains[it.Category] {
					continue
				}
				mains[it.Category] = true
				if Suits(it.Suitability, style) {
					points += max(0, it.Points)
				}
			case CategoryAccessory:
				if accessories >= MaxAccessories || !Suits(it.Suitability, style) {
					continue
				}
				if it.Points > 0 {
					points++
				}
				accessories++
			}
		}
		return Percent(points)
	}
}

func Percent(points int) int {
	points = min(max(points, 0), MaxPoints)
	return int(math.Round(float64(points) / MaxPoints * 100))
}

// Price totals the catalog price of the selected items.
func Price(clothes []ClothesItem, itemIDs []string) int {
	total := 0
	for _, id := range itemIDs {
		for _, c := range clothes {
			if c.ID == id {
				total += c.Price
				break
			}
		}
	}
	return total
}

var (
	badOpinions = []string{
		"This is not what I had in mind. The costume misses the concept.",
		"Honestly it looks odd. Let's start over.",
		"This doesn't fit at all. A full change is needed.",
	}
	goodOpinions = []string{
		"Exactly what the project needs!",
		"Excellent choice, it fits perfectly.",
		"Just perfect. You got the idea.",
	}
	midOpinions = []string{
		"Not bad, but it could be better. Feel free to rethink it.",
		"It works, though it could be better. Your call.",
		"Acceptable, but I can see a better option.",
	}
)

// Opinion is the leader's reaction to a scored selection. previous is the last
// acceptable match, or 0.
func Opinion(r *rand.Rand, match, previous, approve, acceptable int) string {
	switch {
	case match < acceptable:
		return badOpinions[r.Intn(len(badOpinions))]
	case match >= approve:
		return goodOpinions[r.Intn(len(goodOpinions))]
	case previous > 0 && match < previous:
		return fmt.Sprintf("Hmm, the previous choice was better (%d%%). Let's go back to it.", previous)
	default:
		return midOpinions[r.Intn(len(midOpinions))]
	}
}
