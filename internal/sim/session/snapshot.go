package session

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"coverdance.app/internal/persistence/save"
	"coverdance.app/internal/protocol"
	"coverdance.app/internal/sim/escrow"
	"coverdance.app/internal/sim/projects"
	"coverdance.app/internal/sim/relations"
)

// Export captures the session as a save document. Call it from the goroutine driving the session.
func (s *Session) Export(saveName, notes string, savedAt time.Time) save.Document {
	p := s.player
	ps := save.PlayerState{
		Name:                  p.Name,
		Money:                 p.Money,
		FSkill:                p.FSkill,
		MSkill:                p.MSkill,
		Tired:                 p.Tired,
		Reputation:            p.Reputation,
		Popularity:            p.Popularity,
		TeamID:                p.TeamID,
		FTrainingsThisWeek:    p.FTrainingsThisWeek,
		MTrainingsThisWeek:    p.MTrainingsThisWeek,
		PendingCollabs:        copyFlags(p.PendingCollabs),
		NewYearGreetingsSent:  copyFlags(p.NewYearGreetingsSent),
		BirthdayGreetingsSent: copyFlags(p.BirthdayGreetingsSent),
		Inventory:             append([]string(nil), p.Inventory...),
		AvailableProjects:     cloneAll(s.available),
		ActiveProjects:        cloneAll(s.activeSorted()),
		CompletedProjects:     cloneAll(s.completed),
		Reservations:          s.escrow.Entries(),
	}
	for _, c := range s.collabs {
		ps.CollabProposals = append(ps.CollabProposals, save.CollabProposal{NPCID: c.npcID, CreatedDay: c.createdDay, RespondDay: c.respondDay})
	}
	for _, id := range s.npcIDs() {
		n := s.npcs[id]
		st := save.NPCState{
			ID:                 n.ID,
			RelationshipPoints: n.RelationshipPoints,
			EnemyBadge:         n.EnemyBadge,
			HasPrivateChat:     n.HasPrivateChat,
			TeamID:             n.TeamID,
			Active:             n.Active,
			FSkill:             n.FSkill,
			MSkill:             n.MSkill,
			Popularity:         n.Popularity,
			Reputation:         n.Reputation,
		}
		if len(n.reminders) > 0 {
			st.Reminders = map[string]int{}
			for lead, year := range n.reminders {
				st.Reminders[strconv.Itoa(lead)] = year
			}
		}
		ps.NPCs = append(ps.NPCs, st)
	}
	return save.Document{
		Version:        protocol.SaveVersion,
		SaveID:         uuid.NewString(),
		SaveName:       saveName,
		SavedAt:        savedAt.UTC(),
		Notes:          notes,
		Seed:           s.seed,
		RandDraws:      s.stream.draws,
		CatalogsDigest: s.cats.Digest(),
		GameTime:       s.clock,
		Player:         ps,
	}
}

// Import rebuilds a session from a save document and the current catalogs.
// NPC ids missing from the catalogs are dropped; catalog NPCs missing from the
// document start fresh. The random source continues from the document seed
// past the draws already made.
func Import(doc save.Document, opts Options) (*Session, error) {
	if doc.Version > protocol.SaveVersion {
		return nil, fmt.Errorf("%s: document version %d", protocol.ErrSaveVersion, doc.Version)
	}
	now := doc.GameTime.Normalize()
	opts.Seed = doc.Seed
	s, err := build(opts, newStream(doc.Seed, doc.RandDraws), escrow.Restore(doc.Player.Reservations))
	if err != nil {
		return nil, err
	}
	if d := opts.Catalogs.Digest(); doc.CatalogsDigest != "" && doc.CatalogsDigest != d {
		s.log.WithField("saved", doc.CatalogsDigest).WithField("current", d).Warn("catalogs changed since save")
	}
	s.clock = now

	ps := doc.Player
	s.player = newPlayer(ps.Name, ps.Money, 0)
	s.player.FSkill = ps.FSkill
	s.player.MSkill = ps.MSkill
	s.player.Tired = clampInt(ps.Tired, 0, MaxTired)
	s.player.Reputation = clampInt(ps.Reputation, -MaxReputation, MaxReputation)
	s.player.Popularity = clampInt(ps.Popularity, 0, MaxPopularity)
	s.player.TeamID = ps.TeamID
	s.player.FTrainingsThisWeek = ps.FTrainingsThisWeek
	s.player.MTrainingsThisWeek = ps.MTrainingsThisWeek
	s.player.Inventory = append([]string(nil), ps.Inventory...)
	for k, v := range ps.PendingCollabs {
		s.player.PendingCollabs[k] = v
	}
	for k, v := range ps.NewYearGreetingsSent {
		s.player.NewYearGreetingsSent[k] = v
	}
	for k, v := range ps.BirthdayGreetingsSent {
		s.player.BirthdayGreetingsSent[k] = v
	}
	for _, c := range ps.CollabProposals {
		s.collabs = append(s.collabs, collabProposal{npcID: c.NPCID, createdDay: c.CreatedDay, respondDay: c.RespondDay})
	}

	for _, def := range s.cats.NPCs.List {
		s.npcs[def.ID] = newNPC(def)
	}
	for _, st := range ps.NPCs {
		n := s.npcs[st.ID]
		if n == nil {
			s.log.WithField("npc_id", st.ID).Warn("saved npc not in catalog")
			continue
		}
		n.RelationshipPoints = relations.Clamp(st.RelationshipPoints)
		n.EnemyBadge = st.EnemyBadge
		n.HasPrivateChat = st.HasPrivateChat
		n.TeamID = st.TeamID
		n.Active = st.Active
		n.FSkill, n.MSkill = st.FSkill, st.MSkill
		n.Popularity, n.Reputation = st.Popularity, st.Reputation
		for k, year := range st.Reminders {
			if lead, err := strconv.Atoi(k); err == nil {
				n.reminders[lead] = year
			}
		}
	}
	for _, def := range s.cats.Teams.List {
		s.teams[def.ID] = newTeam(def)
	}

	for _, p := range ps.ActiveProjects {
		if p == nil || p.ID == "" {
			continue
		}
		cp := p.Clone()
		cp.Status = projects.StatusActive
		s.active[cp.ID] = cp
	}
	for _, p := range ps.CompletedProjects {
		if p != nil && p.ID != "" {
			s.completed = append(s.completed, p.Clone())
		}
	}
	sort.SliceStable(s.completed, func(i, j int) bool { return s.completed[i].CompletedDay < s.completed[j].CompletedDay })
	// An offer sharing an id with a project already taken cannot be accepted.
	for _, p := range ps.AvailableProjects {
		if p == nil || p.ID == "" {
			continue
		}
		if s.find(p.ID) != nil {
			s.log.WithField("project_id", p.ID).Warn("dropping offer with duplicate id")
			continue
		}
		s.available = append(s.available, p.Clone())
	}
	return s, nil
}
