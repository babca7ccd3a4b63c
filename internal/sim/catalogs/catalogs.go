package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"coverdance.app/internal/sim/costume"
	"coverdance.app/internal/sim/offers"
	"coverdance.app/internal/sim/projects"
	"coverdance.app/internal/sim/relations"
)

type Catalogs struct {
	Projects ProjectCatalog
	Gifts    GiftCatalog
	Clothes  ClothesCatalog
	NPCs     NPCCatalog
	Teams    TeamCatalog
}

type ProjectCatalog struct {
	Seeds  []offers.Seed
	Digest string
}

type GiftCatalog struct {
	List   []relations.Gift
	ByID   map[string]relations.Gift
	Digest string
}

type ClothesCatalog struct {
	Items  []costume.ClothesItem
	ByID   map[string]costume.ClothesItem
	Digest string
}

type NPCDef struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Gender         string         `json:"gender"`
	FaceID         string         `json:"face_id,omitempty"`
	FSkill         float64        `json:"f_skill"`
	MSkill         float64        `json:"m_skill"`
	Popularity     int            `json:"popularity"`
	Reputation     int            `json:"reputation"`
	FavoriteStyle  projects.Style `json:"favorite_style"`
	BehaviorModel  string         `json:"behavior_model"`
	BirthDate      string         `json:"birth_date,omitempty"`
	HasPrivateChat bool           `json:"has_private_chat,omitempty"`
	TeamID         string         `json:"team_id,omitempty"`
}

type NPCCatalog struct {
	List   []NPCDef
	ByID   map[string]NPCDef
	Digest string
}

type TeamDef struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	LeaderID  string   `json:"leader_id"`
	MemberIDs []string `json:"member_ids"`
}

type TeamCatalog struct {
	List   []TeamDef
	ByID   map[string]TeamDef
	Digest string
}

// BehaviorModels lists the personality tags gifts and dialogue key on.
var BehaviorModels = []string{"Burner", "Dreamer", "Perfectionist", "Sunshine", "Machine", "Wildcard", "Fox", "SilentPro"}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadProjects(filepath.Join(configDir, "projects.json"), &c.Projects); err != nil {
		return nil, err
	}
	if err := loadGifts(filepath.Join(configDir, "gifts.json"), &c.Gifts); err != nil {
		return nil, err
	}
	if err := loadClothes(filepath.Join(configDir, "clothes.json"), &c.Clothes); err != nil {
		return nil, err
	}
	if err := loadNPCs(filepath.Join(configDir, "npcs.json"), &c.NPCs); err != nil {
		return nil, err
	}
	if err := loadTeams(filepath.Join(configDir, "teams.json"), &c.Teams, c.NPCs); err != nil {
		return nil, err
	}
	return &c, nil
}

// Digest combines every catalog digest; saves record it to detect catalog drift.
func (c *Catalogs) Digest() string {
	return sha256Hex([]byte(strings.Join([]string{
		c.Projects.Digest, c.Gifts.Digest, c.Clothes.Digest, c.NPCs.Digest, c.Teams.Digest,
	}, "|")))
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func readJSON(path string, v any) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return sha256Hex(raw), nil
}

func loadProjects(path string, out *ProjectCatalog) error {
	var seeds []offers.Seed
	digest, err := readJSON(path, &seeds)
	if err != nil {
		return err
	}
	for _, s := range seeds {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("projects.json: empty name")
		}
		if s.PropF < 0 || s.PropF > 100 {
			return fmt.Errorf("projects.json: %s: bad prop_f %d", s.Name, s.PropF)
		}
	}
	sort.SliceStable(seeds, func(i, j int) bool { return seeds[i].Name < seeds[j].Name })
	out.Seeds = seeds
	out.Digest = digest
	return nil
}

func loadGifts(path string, out *GiftCatalog) error {
	var list []relations.Gift
	digest, err := readJSON(path, &list)
	if err != nil {
		return err
	}
	out.ByID = map[string]relations.Gift{}
	for _, g := range list {
		if g.ID == "" {
			return fmt.Errorf("gifts.json: empty id")
		}
		if _, dup := out.ByID[g.ID]; dup {
			return fmt.Errorf("gifts.json: duplicate id %s", g.ID)
		}
		for _, c := range g.SuitableCharacters {
			if !knownBehavior(c) {
				return fmt.Errorf("gifts.json: %s: unknown behavior model %q", g.ID, c)
			}
		}
		out.ByID[g.ID] = g
	}
	out.List = list
	out.Digest = digest
	return nil
}

func loadClothes(path string, out *ClothesCatalog) error {
	var items []costume.ClothesItem
	digest, err := readJSON(path, &items)
	if err != nil {
		return err
	}
	out.ByID = map[string]costume.ClothesItem{}
	for _, it := range items {
		if it.ID == "" {
			return fmt.Errorf("clothes.json: empty id")
		}
		switch it.Category {
		case costume.CategoryTop, costume.CategoryBottom, costume.CategoryShoes, costume.CategoryAccessory, costume.CategoryOther:
		default:
			return fmt.Errorf("clothes.json: %s: bad category %q", it.ID, it.Category)
		}
		switch it.Suitability {
		case costume.SuitAll, costume.SuitBoth, costume.SuitFemale, costume.SuitMale, costume.SuitFemaleBoth, costume.SuitMaleBoth:
		default:
			return fmt.Errorf("clothes.json: %s: bad suitability %q", it.ID, it.Suitability)
		}
		out.ByID[it.ID] = it
	}
	out.Items = items
	out.Digest = digest
	return nil
}

func loadNPCs(path string, out *NPCCatalog) error {
	var list []NPCDef
	digest, err := readJSON(path, &list)
	if err != nil {
		return err
	}
	out.ByID = map[string]NPCDef{}
	for _, n := range list {
		if n.ID == "" {
			return fmt.Errorf("npcs.json: empty id")
		}
		if _, dup := out.ByID[n.ID]; dup {
			return fmt.Errorf("npcs.json: duplicate id %s", n.ID)
		}
		if n.BirthDate != "" {
			if _, _, ok := ParseBirthDate(n.BirthDate); !ok {
				return fmt.Errorf("npcs.json: %s: bad birth_date %q", n.ID, n.BirthDate)
			}
		}
		out.ByID[n.ID] = n
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	out.List = list
	out.Digest = digest
	return nil
}

func loadTeams(path string, out *TeamCatalog, npcs NPCCatalog) error {
	var list []TeamDef
	digest, err := readJSON(path, &list)
	if err != nil {
		return err
	}
	out.ByID = map[string]TeamDef{}
	for _, t := range list {
		if t.ID == "" {
			return fmt.Errorf("teams.json: empty id")
		}
		seen := map[string]bool{}
		for _, m := range t.MemberIDs {
			if _, ok := npcs.ByID[m]; !ok {
				return fmt.Errorf("teams.json: %s: unknown member %s", t.ID, m)
			}
			if seen[m] {
				return fmt.Errorf("teams.json: %s: duplicate member %s", t.ID, m)
			}
			seen[m] = true
		}
		if t.LeaderID != "" && !seen[t.LeaderID] {
			return fmt.Errorf("teams.json: %s: leader %s is not a member", t.ID, t.LeaderID)
		}
		out.ByID[t.ID] = t
	}
	out.List = list
	out.Digest = digest
	return nil
}

func knownBehavior(s string) bool {
	for _, b := range BehaviorModels {
		if b == s {
			return true
		}
	}
	return false
}

// ParseBirthDate reads a real-calendar "MM.DD" birth date.
func ParseBirthDate(s string) (month, day int, ok bool) {
	if _, err := fmt.Sscanf(s, "%02d.%02d", &month, &day); err != nil {
		return 0, 0, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, false
	}
	return month, day, true
}
