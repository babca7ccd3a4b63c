package relations

type Gift struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	SuitableCharacters []string `json:"suitable_characters"`
	BaseBonus          int      `json:"base_bonus"`
	MatchedBonus       int      `json:"matched_bonus"`
}

func (g Gift) Suits(behaviorModel string) bool {
	for _, c := range g.SuitableCharacters {
		if c == behaviorModel {
			return true
		}
	}
	return false
}

func GiftBonus(g Gift, behaviorModel string) int {
	if g.Suits(behaviorModel) {
		return g.MatchedBonus
	}
	return g.BaseBonus
}
