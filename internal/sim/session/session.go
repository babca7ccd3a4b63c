// Package session owns one player's game: clock, money, projects, NPCs and
// the escrow ledger. A Session is driven by a single goroutine; nothing in it
// is safe for concurrent use.
package session

import (
	"errors"
	"io"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"coverdance.app/internal/protocol"
	"coverdance.app/internal/sim/catalogs"
	"coverdance.app/internal/sim/clock"
	"coverdance.app/internal/sim/costume"
	"coverdance.app/internal/sim/escrow"
	"coverdance.app/internal/sim/offers"
	"coverdance.app/internal/sim/projects"
	"coverdance.app/internal/sim/rating"
	"coverdance.app/internal/sim/relations"
	"coverdance.app/internal/sim/tuning"
)

// PlayerID is the leaderboard id of the player.
const PlayerID = "player"

// Journal receives one event per state change worth keeping.
type Journal interface {
	WriteEvent(ev protocol.Event) error
}

// Archive receives projects once they reach a terminal state.
type Archive interface {
	RecordProject(day int, p *projects.Project)
}

type Options struct {
	Tuning     tuning.Tuning
	Catalogs   *catalogs.Catalogs
	Seed       int64
	PlayerName string

	// Scorer overrides the clothes-catalog costume scorer.
	Scorer  costume.Scorer
	Logger  logrus.FieldLogger
	Journal Journal
	Archive Archive
}

type collabProposal struct {
	npcID      string
	createdDay int
	respondDay int
}

type Session struct {
	tun     tuning.Tuning
	cats    *catalogs.Catalogs
	seed    int64
	stream  *stream
	rng     *rand.Rand
	log     logrus.FieldLogger
	journal Journal
	archive Archive
	scorer  costume.Scorer

	clock  clock.Clock
	player *Player
	npcs   map[string]*NPC
	teams  map[string]*Team

	available []*projects.Project
	active    map[string]*projects.Project
	completed []*projects.Project
	collabs   []collabProposal

	escrow *escrow.Ledger
	engine *projects.Engine
	offers *offers.Generator
}

// New starts a fresh game from the catalogs and fills the offer board.
func New(opts Options) (*Session, error) {
	s, err := build(opts, newStream(opts.Seed, 0), escrow.NewLedger())
	if err != nil {
		return nil, err
	}
	s.player = newPlayer(opts.PlayerName, s.tun.StartingMoney, float64(s.tun.StartingSkill))
	for _, def := range s.cats.NPCs.List {
		s.npcs[def.ID] = newNPC(def)
	}
	for _, def := range s.cats.Teams.List {
		s.teams[def.ID] = newTeam(def)
	}
	s.RefreshOffers()
	return s, nil
}

func build(opts Options, st *stream, ledger *escrow.Ledger) (*Session, error) {
	if opts.Catalogs == nil {
		return nil, errors.New("session: catalogs are required")
	}
	t := opts.Tuning
	t.Normalize()

	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = costume.CatalogScorer(opts.Catalogs.Clothes.Items)
	}
	r := rand.New(st)
	return &Session{
		tun:     t,
		cats:    opts.Catalogs,
		seed:    opts.Seed,
		stream:  st,
		rng:     r,
		log:     logger.WithField("component", "session"),
		journal: opts.Journal,
		archive: opts.Archive,
		scorer:  scorer,
		npcs:    map[string]*NPC{},
		teams:   map[string]*Team{},
		active:  map[string]*projects.Project{},
		escrow:  ledger,
		engine:  projects.NewEngine(t, ledger, r),
		offers:  offers.New(opts.Catalogs.Projects.Seeds, r),
	}, nil
}

func (s *Session) Now() clock.Clock { return s.clock }

func (s *Session) Day() int { return s.clock.AbsoluteDay() }

func (s *Session) Tuning() tuning.Tuning { return s.tun }

// Player returns a copy of the player's state.
func (s *Session) Player() Player {
	p := *s.player
	p.Inventory = append([]string(nil), s.player.Inventory...)
	p.PendingCollabs = copyFlags(s.player.PendingCollabs)
	p.NewYearGreetingsSent = copyFlags(s.player.NewYearGreetingsSent)
	p.BirthdayGreetingsSent = copyFlags(s.player.BirthdayGreetingsSent)
	return p
}

func (s *Session) AvailableProjects() []*projects.Project {
	return cloneAll(s.available)
}

// ActiveProjects lists active projects in project-id order.
func (s *Session) ActiveProjects() []*projects.Project {
	return cloneAll(s.activeSorted())
}

func (s *Session) CompletedProjects() []*projects.Project {
	return cloneAll(s.completed)
}

// Project finds a project on the board, in progress or archived.
func (s *Session) Project(id string) (*projects.Project, bool) {
	if p := s.find(id); p != nil {
		return p.Clone(), true
	}
	return nil, false
}

// ReservedForProject is the money currently held for the project's costume.
func (s *Session) ReservedForProject(id string) int {
	return s.escrow.Held(id)
}

func (s *Session) Reservation(id string) (escrow.Account, bool) {
	return s.escrow.Get(id)
}

// EscrowTotal is all money held across projects.
func (s *Session) EscrowTotal() int { return s.escrow.Total() }

func (s *Session) NPC(id string) (NPC, bool) {
	n := s.npcs[id]
	if n == nil {
		return NPC{}, false
	}
	cp := *n
	cp.reminders = nil
	return cp, true
}

// NPCs lists every NPC, retired ones included, by id.
func (s *Session) NPCs() []NPC {
	ids := s.npcIDs()
	out := make([]NPC, 0, len(ids))
	for _, id := range ids {
		n, _ := s.NPC(id)
		out = append(out, n)
	}
	return out
}

type RelationshipView struct {
	NPCID      string
	Points     int
	Tier       relations.Tier
	Progress   relations.Progress
	CanReceive bool
	EnemyBadge bool
}

func (s *Session) Relationship(npcID string) (RelationshipView, bool) {
	n := s.liveNPC(npcID)
	if n == nil {
		return RelationshipView{}, false
	}
	return RelationshipView{
		NPCID:      n.ID,
		Points:     n.RelationshipPoints,
		Tier:       relations.TierOf(n.RelationshipPoints),
		Progress:   relations.ProgressOf(n.RelationshipPoints),
		CanReceive: relations.CanReceiveSocialAction(n.Gate()),
		EnemyBadge: n.EnemyBadge,
	}, true
}

func (s *Session) PlayerRating() float64 {
	return rating.Score(s.player.Stats())
}

// Leaderboard ranks the player and active NPCs; n <= 0 returns everyone.
func (s *Session) Leaderboard(n int) []rating.Entry {
	entries := []rating.Entry{{ID: PlayerID, Name: s.player.Name, Stats: s.player.Stats()}}
	for _, npc := range s.npcs {
		if npc.Active {
			entries = append(entries, rating.Entry{ID: npc.ID, Name: npc.Name, Stats: npc.Stats()})
		}
	}
	if n <= 0 {
		return rating.Rank(entries)
	}
	return rating.Top(entries, n)
}

func (s *Session) TeamSummary(teamID string) (rating.TeamSummary, bool) {
	t := s.teams[teamID]
	if t == nil {
		return rating.TeamSummary{}, false
	}
	var members []rating.Stats
	for _, id := range t.MemberIDs {
		if n := s.npcs[id]; n != nil && n.Active {
			members = append(members, n.Stats())
		}
	}
	return rating.TeamStats(members), true
}

// TeamLeaderboard ranks teams by the shared score of their averaged stats.
func (s *Session) TeamLeaderboard() []rating.Entry {
	var entries []rating.Entry
	for id, t := range s.teams {
		sum, _ := s.TeamSummary(id)
		if sum.Members == 0 {
			continue
		}
		entries = append(entries, rating.Entry{ID: id, Name: t.Name, Stats: sum.Stats})
	}
	return rating.Rank(entries)
}

// TeamSkillMismatch warns that the team's dominant skill is well above the player's.
func (s *Session) TeamSkillMismatch(teamID string) bool {
	sum, ok := s.TeamSummary(teamID)
	if !ok || sum.Members == 0 {
		return false
	}
	return rating.SkillRisk(sum, s.player.Stats(), s.tun.Teams.SkillRiskGap)
}

func (s *Session) Teams() []Team {
	ids := make([]string, 0, len(s.teams))
	for id := range s.teams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Team, 0, len(ids))
	for _, id := range ids {
		t := *s.teams[id]
		t.MemberIDs = append([]string(nil), t.MemberIDs...)
		out = append(out, t)
	}
	return out
}

func (s *Session) liveNPC(id string) *NPC {
	n := s.npcs[id]
	if n == nil || !n.Active {
		return nil
	}
	return n
}

func (s *Session) find(id string) *projects.Project {
	if p := s.active[id]; p != nil {
		return p
	}
	if _, p := s.offer(id); p != nil {
		return p
	}
	return s.closed(id)
}

// closed is a finished, failed or abandoned project.
func (s *Session) closed(id string) *projects.Project {
	for _, p := range s.completed {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) offer(id string) (int, *projects.Project) {
	for i, p := range s.available {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

func (s *Session) removeOffer(i int) {
	s.available = append(s.available[:i], s.available[i+1:]...)
}

func (s *Session) activeSorted() []*projects.Project {
	out := make([]*projects.Project, 0, len(s.active))
	for _, p := range s.active {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// activeExtra sums extra trainings over active projects other than skip.
func (s *Session) activeExtra(skip string) int {
	sum := 0
	for id, p := range s.active {
		if id != skip {
			sum += p.ExtraTraining
		}
	}
	return sum
}

func (s *Session) emit(typ string, fields protocol.Event) {
	if s.journal == nil {
		return
	}
	ev := protocol.Event{"type": typ, "day": s.Day()}
	for k, v := range fields {
		ev[k] = v
	}
	if err := s.journal.WriteEvent(ev); err != nil {
		s.log.WithError(err).WithField("event", typ).Warn("journal write failed")
	}
}

// reject logs and journals a refused command; it always returns false.
func (s *Session) reject(op, target, code, msg string) bool {
	s.log.WithFields(logrus.Fields{"op": op, "code": code, "target": target}).Debug(msg)
	s.emit(protocol.EventCommandRejected, protocol.Event{"op": op, "code": code, "target": target, "msg": msg})
	return false
}

func cloneAll(ps []*projects.Project) []*projects.Project {
	out := make([]*projects.Project, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Clone())
	}
	return out
}

func copyFlags(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		if v {
			out[k] = v
		}
	}
	return out
}
