package session

import (
	"github.com/sirupsen/logrus"

	"coverdance.app/internal/protocol"
	"coverdance.app/internal/sim/costume"
	"coverdance.app/internal/sim/projects"
	"coverdance.app/internal/sim/projects/core"
	"coverdance.app/internal/sim/projects/validation"
)

// AcceptProject takes an offer off the board. costumeSavedMoney is extra
// pre-funding on top of anything already reserved for the offer; it is
// clamped to what the player can afford.
func (s *Session) AcceptProject(id string, baseTraining, costumeSavedMoney int) bool {
	i, offer := s.offer(id)
	if offer == nil {
		return s.reject("accept", id, protocol.ErrInvalidTarget, "no such offer")
	}
	if s.active[id] != nil || s.closed(id) != nil {
		return s.reject("accept", id, protocol.ErrConflict, "project id already taken")
	}

	if offer.MinReputation > s.player.Reputation {
		gate := validation.ReputationGateInput{
			Reputation:    s.player.Reputation,
			MinReputation: offer.MinReputation,
			Roll:          s.rng.Float64(),
			RefusalChance: s.tun.Projects.ReputationRefusalChance,
		}
		if ok, code, msg := validation.ValidateReputation(gate); !ok {
			refund := s.escrow.ReleaseAll(s.player, id)
			s.escrow.Forget(id)
			s.removeOffer(i)
			s.emit(protocol.EventProjectRejected, protocol.Event{"project_id": id, "code": code, "refund": refund})
			return s.reject("accept", id, code, msg)
		}
	}

	p, rej := s.engine.Accept(offer, projects.AcceptOptions{
		BaseTraining:      baseTraining,
		CostumeSavedMoney: costumeSavedMoney,
	}, s.player, s.activeExtra(""), len(s.active), s.Day())
	if rej != nil {
		return s.reject("accept", id, rej.Code, rej.Msg)
	}
	s.removeOffer(i)
	s.active[p.ID] = p

	s.log.WithFields(logrus.Fields{"project_id": p.ID, "name": p.Name, "saved": p.CostumeSavedMoney}).Info("project accepted")
	s.emit(protocol.EventProjectAccepted, protocol.Event{
		"project_id":    p.ID,
		"name":          p.Name,
		"base_training": p.BaseTraining,
		"costume_saved": p.CostumeSavedMoney,
	})
	return true
}

// AbandonProject cancels an active project and refunds its costume fund in full.
func (s *Session) AbandonProject(id string) (refund int, ok bool) {
	p := s.active[id]
	if p == nil {
		return 0, s.reject("abandon", id, protocol.ErrInvalidTarget, "no active project")
	}
	refund, ok = s.engine.Abandon(p, s.player, s.Day())
	if !ok {
		return 0, s.reject("abandon", id, protocol.ErrConflict, "project not active")
	}
	s.archiveProject(p)
	s.log.WithFields(logrus.Fields{"project_id": id, "refund": refund}).Info("project abandoned")
	s.emit(protocol.EventProjectAbandoned, protocol.Event{"project_id": id, "refund": refund})
	return refund, true
}

// UpdateActiveProject changes weekly training levels; out-of-range or over-cap patches are no-ops.
func (s *Session) UpdateActiveProject(id string, patch projects.Patch) bool {
	p := s.active[id]
	if p == nil {
		return s.reject("update", id, protocol.ErrInvalidTarget, "no active project")
	}
	if rej := s.engine.Update(p, patch, s.activeExtra(id), len(s.active)); rej != nil {
		return s.reject("update", id, rej.Code, rej.Msg)
	}
	return true
}

// ReserveCostumeForProject sets money aside for a project or an offer.
func (s *Session) ReserveCostumeForProject(id string, amount int) bool {
	p := s.liveProject(id)
	if p == nil {
		return s.reject("reserve", id, protocol.ErrInvalidTarget, "no such project")
	}
	if rej := s.engine.Reserve(p, amount, s.player); rej != nil {
		return s.reject("reserve", id, rej.Code, rej.Msg)
	}
	s.emit(protocol.EventCostumeReserved, protocol.Event{"project_id": id, "amount": amount, "held": s.escrow.Held(id)})
	return true
}

// CommitReservedCostume turns provisional reservations into saved money. No money moves.
func (s *Session) CommitReservedCostume(id string, amount int) int {
	p := s.liveProject(id)
	if p == nil {
		s.reject("commit", id, protocol.ErrInvalidTarget, "no such project")
		return 0
	}
	n := s.engine.Commit(p, amount)
	if n > 0 {
		s.emit(protocol.EventCostumeCommitted, protocol.Event{"project_id": id, "amount": n})
	}
	return n
}

// ReleaseReservedCostume refunds up to amount and reports what was actually returned.
// Deadline-failed projects stay refundable.
func (s *Session) ReleaseReservedCostume(id string, amount int) int {
	p := s.find(id)
	if p == nil {
		s.reject("release", id, protocol.ErrInvalidTarget, "no such project")
		return 0
	}
	n := s.engine.Release(p, amount, s.player)
	if n > 0 {
		s.emit(protocol.EventCostumeReleased, protocol.Event{"project_id": id, "amount": n, "requested": amount})
	}
	return n
}

type CostumeResult struct {
	Match   int
	Verdict core.Verdict
	Opinion string
}

// SubmitCostumeSelection scores the chosen garments and lets the project's
// leader judge them. The first approved selection pays for the costume.
func (s *Session) SubmitCostumeSelection(id string, itemIDs []string) (CostumeResult, bool) {
	p := s.active[id]
	if p == nil {
		return CostumeResult{}, s.reject("costume", id, protocol.ErrInvalidTarget, "no active project")
	}
	match := s.scorer(p.RequiredSkill, itemIDs)
	previous := 0
	if p.CostumeApproved {
		previous = p.CostumeMatchPercent
	}
	opinion := costume.Opinion(s.rng, match, previous, s.tun.Costume.ApprovePercent, s.tun.Costume.AcceptablePercent)

	v, rej := s.engine.SubmitCostume(p, match, opinion, s.player, s.Day())
	if rej != nil {
		return CostumeResult{Match: match}, s.reject("costume", id, rej.Code, rej.Msg)
	}
	s.emit(protocol.EventCostumeVerdict, protocol.Event{
		"project_id": id,
		"match":      match,
		"verdict":    string(v),
		"locked":     p.CostumeLocked,
	})
	s.settled(p)
	return CostumeResult{Match: match, Verdict: v, Opinion: opinion}, true
}

// settled archives a project a command just completed and tops up the board.
func (s *Session) settled(p *projects.Project) {
	if p.Active() {
		return
	}
	s.finish(p)
	s.refill()
}

// FundProjectTraining pays one training out of a project's backlog.
func (s *Session) FundProjectTraining(id string) bool {
	p := s.active[id]
	if p == nil {
		return s.reject("fund", id, protocol.ErrInvalidTarget, "no active project")
	}
	if rej := s.engine.Fund(p, s.player, s.Day()); rej != nil {
		return s.reject("fund", id, rej.Code, rej.Msg)
	}
	s.player.addTired(s.tun.Projects.TiredPerTraining)
	s.emit(protocol.EventTrainingFunded, protocol.Event{
		"project_id":    id,
		"cost":          p.TrainingCost,
		"completed":     p.TrainingsCompleted,
		"needs_funding": p.NeedsFunding,
	})
	s.settled(p)
	return true
}

// BuyClothes adds a catalog garment to the player's inventory.
func (s *Session) BuyClothes(itemID string) bool {
	it, ok := s.cats.Clothes.ByID[itemID]
	if !ok {
		return s.reject("buy", itemID, protocol.ErrInvalidTarget, "unknown item")
	}
	if s.player.owns(itemID) {
		return s.reject("buy", itemID, protocol.ErrConflict, "already owned")
	}
	if !s.player.Debit(it.Price) {
		return s.reject("buy", itemID, protocol.ErrNoResource, "insufficient money")
	}
	s.player.Inventory = append(s.player.Inventory, itemID)
	s.emit(protocol.EventItemBought, protocol.Event{"item_id": itemID, "price": it.Price})
	return true
}

// liveProject is an active project or an offer still on the board.
func (s *Session) liveProject(id string) *projects.Project {
	if p := s.active[id]; p != nil {
		return p
	}
	_, p := s.offer(id)
	return p
}

func (s *Session) archiveProject(p *projects.Project) {
	delete(s.active, p.ID)
	s.completed = append(s.completed, p)
	if s.archive != nil {
		s.archive.RecordProject(s.Day(), p.Clone())
	}
}
