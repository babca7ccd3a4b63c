package offers

import (
	"math/rand"
	"strings"
	"testing"

	"coverdance.app/internal/sim/projects"
	"coverdance.app/internal/sim/rating"
)

func testSeeds() []Seed {
	return []Seed{
		{Name: "F1", Style: projects.StyleFemale},
		{Name: "F2", Style: projects.StyleFemale},
		{Name: "F3", Style: projects.StyleFemale},
		{Name: "M1", Style: projects.StyleMale},
		{Name: "M2", Style: projects.StyleMale},
		{Name: "B1", Style: projects.StyleBoth, PropF: 60},
	}
}

func TestGenerateDistribution(t *testing.T) {
	g := New(testSeeds(), rand.New(rand.NewSource(11)))
	out := g.Generate(10, 300, 300)
	if len(out) != 10 {
		t.Fatalf("expected 10 offers, got %d", len(out))
	}
	counts := map[projects.Style]int{}
	ids := map[string]bool{}
	for _, tpl := range out {
		counts[tpl.RequiredSkill]++
		if !strings.HasPrefix(tpl.ID, "project_") || ids[tpl.ID] {
			t.Fatalf("bad or duplicate id %q", tpl.ID)
		}
		ids[tpl.ID] = true
	}
	if counts[projects.StyleFemale] != 4 || counts[projects.StyleMale] != 4 || counts[projects.StyleBoth] != 2 {
		t.Fatalf("unexpected style split %v", counts)
	}
	// Three female seeds for four slots: every seed appears before any repeats.
	names := map[string]int{}
	for _, tpl := range out[:4] {
		names[tpl.Name]++
	}
	if len(names) != 3 {
		t.Fatalf("expected all female seeds used, got %v", names)
	}
}

func TestFromSeedTerms(t *testing.T) {
	g := New(testSeeds(), rand.New(rand.NewSource(5)))
	for i := 0; i < 300; i++ {
		tpl := g.FromSeed(Seed{Name: "X", Style: projects.StyleMale}, 400, 500)
		fast := tpl.Duration == projects.DurationFast
		if fast && (tpl.DurationWeeks < 2 || tpl.DurationWeeks > 8) {
			t.Fatalf("fast weeks out of range: %d", tpl.DurationWeeks)
		}
		if !fast && (tpl.DurationWeeks < 9 || tpl.DurationWeeks > 20) {
			t.Fatalf("long weeks out of range: %d", tpl.DurationWeeks)
		}
		if tpl.TrainingsPerWeek != 2 && tpl.TrainingsPerWeek != 3 {
			t.Fatalf("bad trainings per week %d", tpl.TrainingsPerWeek)
		}
		if want := max(1, tpl.DurationWeeks-1) * tpl.TrainingsPerWeek; tpl.TrainingNeeded != want {
			t.Fatalf("training needed %d want %d", tpl.TrainingNeeded, want)
		}
		if tpl.TrainingCost < 150 || tpl.TrainingCost > 400 {
			t.Fatalf("training cost out of range: %d", tpl.TrainingCost)
		}
		if tpl.CostumeCost != CostumeCost(tpl.DurationWeeks) {
			t.Fatalf("costume cost %d for %d weeks", tpl.CostumeCost, tpl.DurationWeeks)
		}
		if tpl.MinSkillRequired < 0 {
			t.Fatalf("negative skill requirement")
		}
	}
}

func TestCostumeCost(t *testing.T) {
	if CostumeCost(8) != 3000 || CostumeCost(9) != 5000 {
		t.Fatalf("unexpected costume cost split")
	}
}

func TestRequiredBaseBands(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	for i := 0; i < 500; i++ {
		if v := RequiredBase(r, 850); v < 300 || v > 1000 {
			t.Fatalf("top player requirement out of range: %d", v)
		}
		if v := RequiredBase(r, 100); v < 0 || v > 700 {
			t.Fatalf("novice requirement out of range: %d", v)
		}
	}
}

func TestSeededIDsRepeat(t *testing.T) {
	a := New(testSeeds(), rand.New(rand.NewSource(77))).Generate(5, 300, 300)
	b := New(testSeeds(), rand.New(rand.NewSource(77))).Generate(5, 300, 300)
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name {
			t.Fatalf("seeded generators diverged at %d", i)
		}
	}
}

func TestForTeam(t *testing.T) {
	g := New(testSeeds(), rand.New(rand.NewSource(2)))
	tpl, ok := g.ForTeam(rating.TeamSummary{AvgDominant: 500, DominantStyle: projects.StyleMale}, 300, 300)
	if !ok {
		t.Fatalf("expected a team offer")
	}
	if tpl.RequiredSkill == projects.StyleFemale {
		t.Fatalf("male team must not get a female offer")
	}
	if tpl.RequiredSkill == projects.StyleMale && tpl.MinSkillRequired != 500 {
		t.Fatalf("expected requirement 500, got %d", tpl.MinSkillRequired)
	}
	if tpl.RequiredSkill == projects.StyleBoth && tpl.MinSkillRequired != 300 {
		t.Fatalf("expected requirement 300, got %d", tpl.MinSkillRequired)
	}
}
