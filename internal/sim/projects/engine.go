package projects

import (
	"math/rand"

	"coverdance.app/internal/protocol"
	"coverdance.app/internal/sim/escrow"
	"coverdance.app/internal/sim/projects/core"
	"coverdance.app/internal/sim/projects/outcome"
	"coverdance.app/internal/sim/projects/validation"
	"coverdance.app/internal/sim/tuning"
)

// Wallet is the player-side view the engine needs: money plus standing for outcome rolls.
type Wallet interface {
	escrow.Purse
	Standing() (popularity, reputation int)
}

type Engine struct {
	Rules   tuning.Projects
	Costume tuning.Costume
	Escrow  *escrow.Ledger
	Rand    *rand.Rand
}

func NewEngine(t tuning.Tuning, ledger *escrow.Ledger, r *rand.Rand) *Engine {
	if ledger == nil {
		ledger = escrow.NewLedger()
	}
	if r == nil {
		r = rand.New(rand.NewSource(1))
	}
	return &Engine{Rules: t.Projects, Costume: t.Costume, Escrow: ledger, Rand: r}
}

type AcceptOptions struct {
	BaseTraining      int
	CostumeSavedMoney int
}

// Rejection carries the validation code of a refused command.
type Rejection struct {
	Code string
	Msg  string
}

func (r *Rejection) Error() string { return r.Code + ": " + r.Msg }

// Accept turns an offer into an active project. activeExtraSum and activeCount
// describe the projects already active.
func (e *Engine) Accept(offer *Project, opts AcceptOptions, w escrow.Purse, activeExtraSum, activeCount int, now int) (*Project, *Rejection) {
	in := validation.AcceptValidationInput{
		HasOffer:       offer != nil,
		BaseTraining:   opts.BaseTraining,
		MaxBase:        e.Rules.MaxBaseTraining,
		ActiveExtraSum: activeExtraSum,
		CapAfterAccept: e.Rules.ExtraTrainingCap(activeCount + 1),
		PreFunding:     opts.CostumeSavedMoney,
	}
	if offer != nil {
		in.Available = offer.Status == StatusAvailable
		in.TrainingNeeded = offer.TrainingNeeded
	}
	if ok, code, msg := validation.ValidateAccept(in); !ok {
		return nil, &Rejection{Code: code, Msg: msg}
	}

	p := &Project{
		Template:     offer.Template,
		Status:       StatusActive,
		BaseTraining: opts.BaseTraining,
		AcceptedDay:  now,
	}
	if p.CostumeCost > 0 {
		e.Escrow.SetCap(p.ID, p.CostumeCost)
		if a, ok := e.Escrow.Get(p.ID); ok {
			e.Escrow.Commit(p.ID, a.Reserved)
		}
		amount := min(opts.CostumeSavedMoney, w.Balance(), p.CostumeCost-e.Escrow.Held(p.ID))
		if amount > 0 && e.Escrow.Reserve(w, p.ID, p.CostumeCost, amount) {
			e.Escrow.Commit(p.ID, amount)
		}
	}
	e.syncSaved(p)
	return p, nil
}

type TickReport struct {
	TrainingsPaid    int
	MoneySpent       int
	NeedsFunding     bool
	CostumeRequested bool
	DeadlineExtended bool
	Succeeded        bool
	Failed           bool
}

func (r *TickReport) merge(o TickReport) {
	r.TrainingsPaid += o.TrainingsPaid
	r.MoneySpent += o.MoneySpent
	r.NeedsFunding = r.NeedsFunding || o.NeedsFunding
	r.CostumeRequested = r.CostumeRequested || o.CostumeRequested
	r.DeadlineExtended = r.DeadlineExtended || o.DeadlineExtended
	r.Succeeded = r.Succeeded || o.Succeeded
	r.Failed = r.Failed || o.Failed
}

// Tick advances an active project by days. now is the absolute day after the last step.
func (e *Engine) Tick(p *Project, days int, w Wallet, now int) TickReport {
	var rep TickReport
	for i := 0; i < days; i++ {
		if !p.Active() {
			break
		}
		rep.merge(e.step(p, w, now-days+i+1))
	}
	return rep
}

func (e *Engine) step(p *Project, w Wallet, today int) TickReport {
	var rep TickReport
	p.DaysActive++

	if p.CostumeGraceUntilDay > 0 && today >= p.CostumeGraceUntilDay {
		p.CostumeGraceUntilDay = 0
		if !p.CostumeApproved && !p.DeadlineExtended {
			p.DeadlineExtended = true
			rep.DeadlineExtended = true
		}
	}

	if core.IsWeekBoundary(p.DaysActive) && !p.NeedsFunding {
		scheduled := core.ScheduledTrainings(p.BaseTraining, p.ExtraTraining, p.TrainingsCompleted, p.TrainingNeeded)
		for i := 0; i < scheduled; i++ {
			if !w.Debit(p.TrainingCost) {
				p.NeedsFunding = true
				p.FundingBacklog = scheduled - i
				rep.NeedsFunding = true
				break
			}
			p.TrainingsCompleted++
			rep.TrainingsPaid++
			rep.MoneySpent += p.TrainingCost
		}
		rep.CostumeRequested = e.afterTraining(p)
	}

	switch e.decide(p, today) {
	case core.DecisionSucceed:
		e.succeed(p, w, today)
		rep.Succeeded = true
	case core.DecisionExtend:
		p.DeadlineExtended = true
		rep.DeadlineExtended = true
	case core.DecisionFailDeadline:
		p.Status = StatusFailed
		p.FailedDueToDeadline = true
		p.NeedsFunding = false
		p.FundingBacklog = 0
		p.CostumeGraceUntilDay = 0
		p.CompletedDay = today
		p.ReputationChange = -e.Rules.DeadlineReputationLoss
		rep.Failed = true
	}
	return rep
}

func (e *Engine) decide(p *Project, today int) core.DayDecision {
	return core.DecideDay(core.DayInput{
		Active:             p.Active(),
		TrainingsCompleted: p.TrainingsCompleted,
		TrainingNeeded:     p.TrainingNeeded,
		CostumeRequired:    p.CostumeCost > 0,
		CostumeApproved:    p.CostumeApproved,
		DaysActive:         p.DaysActive,
		DeadlineDay:        core.DeadlineDay(p.DurationWeeks, e.Rules.DeadlineSlackDays, p.DeadlineExtended),
		GraceRunning:       p.CostumeGraceUntilDay > today && !p.CostumeApproved && !p.DeadlineExtended,
	})
}

// settle completes p as soon as a command meets its last requirement, without
// waiting for the next daily tick.
func (e *Engine) settle(p *Project, w Wallet, today int) {
	if e.decide(p, today) == core.DecisionSucceed {
		e.succeed(p, w, today)
	}
}

// afterTraining recomputes progress and raises the costume request once.
func (e *Engine) afterTraining(p *Project) bool {
	p.Progress = core.Progress(p.TrainingsCompleted, p.TrainingNeeded)
	if p.CostumeCost > 0 && !p.CostumeRequested && p.Progress >= e.Rules.CostumeRequestProgress {
		p.CostumeRequested = true
		return true
	}
	return false
}

func (e *Engine) succeed(p *Project, w Wallet, today int) {
	pop, rep := w.Standing()
	res := outcome.Generate(e.Rand, outcome.Input{
		Popularity:     pop,
		Reputation:     rep,
		MatchPercent:   p.CostumeMatchPercent,
		LeaderOpinion:  p.CostumeOpinion,
		PopularityGain: [2]int{e.Rules.SuccessPopularityMin, e.Rules.SuccessPopularityMax},
		ReputationGain: [2]int{e.Rules.SuccessReputationMin, e.Rules.SuccessReputationMax},
	})
	p.Status = StatusCompleted
	p.Success = true
	p.Progress = 100
	p.NeedsFunding = false
	p.FundingBacklog = 0
	p.CompletedDay = today
	p.Likes = res.Likes
	p.Dislikes = res.Dislikes
	p.Comments = res.Comments
	p.PopularityChange = res.PopularityChange
	p.ReputationChange = res.ReputationChange
	// Anything still held for a costume-free project goes back to the player.
	e.Escrow.ReleaseAll(w, p.ID)
	e.syncSaved(p)
}

// Fund pays one training of the backlog immediately. Paying the last
// training completes the project on the spot.
func (e *Engine) Fund(p *Project, w Wallet, now int) *Rejection {
	in := validation.FundValidationInput{HasProject: p != nil}
	if p != nil {
		in.Active = p.Active()
		in.NeedsFunding = p.NeedsFunding
		in.Balance = w.Balance()
		in.TrainingCost = p.TrainingCost
	}
	if ok, code, msg := validation.ValidateFund(in); !ok {
		return &Rejection{Code: code, Msg: msg}
	}
	if !w.Debit(p.TrainingCost) {
		return &Rejection{Code: protocol.ErrNoResource, Msg: "insufficient money"}
	}
	if p.TrainingsCompleted < p.TrainingNeeded {
		p.TrainingsCompleted++
	}
	p.FundingBacklog--
	if p.FundingBacklog <= 0 || p.TrainingsCompleted >= p.TrainingNeeded {
		p.FundingBacklog = 0
		p.NeedsFunding = false
	}
	e.afterTraining(p)
	e.settle(p, w, now)
	return nil
}

// Abandon cancels a live project and refunds its whole costume fund.
func (e *Engine) Abandon(p *Project, w escrow.Purse, now int) (int, bool) {
	if p == nil || !p.Active() {
		return 0, false
	}
	refund := e.Escrow.ReleaseAll(w, p.ID)
	e.Escrow.Forget(p.ID)
	p.Status = StatusCancelled
	p.CancelledByEvent = false
	p.NeedsFunding = false
	p.FundingBacklog = 0
	p.CostumeGraceUntilDay = 0
	p.CompletedDay = now
	p.CostumeSavedMoney = 0
	return refund, true
}

type Patch struct {
	BaseTraining  *int
	ExtraTraining *int
}

// Update changes weekly training levels. othersExtra is the extra sum of the other active projects.
func (e *Engine) Update(p *Project, patch Patch, othersExtra, activeCount int) *Rejection {
	in := validation.UpdateValidationInput{
		HasProject:  p != nil,
		MaxBase:     e.Rules.MaxBaseTraining,
		MaxExtra:    e.Rules.MaxExtraTraining,
		OthersExtra: othersExtra,
		Cap:         e.Rules.ExtraTrainingCap(activeCount),
	}
	if p != nil {
		in.Active = p.Active()
		in.BaseTraining = p.BaseTraining
		in.Extra = p.ExtraTraining
		if patch.BaseTraining != nil {
			in.BaseTraining = *patch.BaseTraining
		}
		if patch.ExtraTraining != nil {
			in.Extra = *patch.ExtraTraining
		}
	}
	if ok, code, msg := validation.ValidateUpdate(in); !ok {
		return &Rejection{Code: code, Msg: msg}
	}
	p.BaseTraining = in.BaseTraining
	p.ExtraTraining = in.Extra
	return nil
}

// SubmitCostume applies a scored costume selection. The first qualifying
// selection pays the costume price through the escrow account, and completes
// the project when its trainings are already done.
func (e *Engine) SubmitCostume(p *Project, match int, opinion string, w Wallet, now int) (core.Verdict, *Rejection) {
	in := validation.CostumeValidationInput{HasProject: p != nil, Match: match}
	if p != nil {
		in.Active = p.Active()
		in.Requested = p.CostumeRequested
		in.Locked = p.CostumeLocked
	}
	if ok, code, msg := validation.ValidateCostumeSubmit(in); !ok {
		return core.VerdictNone, &Rejection{Code: code, Msg: msg}
	}
	v := core.CostumeVerdict(match, e.Costume.ApprovePercent, e.Costume.AcceptablePercent)
	if !v.Unlocks() {
		if !p.CostumeApproved {
			p.CostumeMatchPercent = match
			p.CostumeOpinion = opinion
			if p.CostumeGraceUntilDay == 0 && !p.DeadlineExtended {
				p.CostumeGraceUntilDay = now + e.Costume.GraceDays
			}
		}
		return v, nil
	}
	if p.CostumeApproved && match <= p.CostumeMatchPercent {
		return v, nil
	}
	if !p.CostumePaid {
		if !e.Escrow.Spend(w, p.ID, p.CostumeCost) {
			return core.VerdictNone, &Rejection{Code: protocol.ErrNoResource, Msg: "cannot afford costume"}
		}
		p.CostumePaid = true
	}
	p.CostumeApproved = true
	p.CostumeLocked = v == core.VerdictApproved
	p.CostumeMatchPercent = match
	p.CostumeOpinion = opinion
	p.CostumeGraceUntilDay = 0
	e.syncSaved(p)
	e.settle(p, w, now)
	return v, nil
}

// Reserve puts money aside for a project's costume. Works on offers too.
func (e *Engine) Reserve(p *Project, amount int, w escrow.Purse) *Rejection {
	in := validation.ReserveValidationInput{HasProject: p != nil, Amount: amount}
	if p != nil {
		in.Terminal = p.Status.Terminal() || p.CostumePaid
		in.Balance = w.Balance()
		in.Held = e.Escrow.Held(p.ID)
		in.Cap = p.CostumeCost
	}
	if ok, code, msg := validation.ValidateReserve(in); !ok {
		return &Rejection{Code: code, Msg: msg}
	}
	if !e.Escrow.Reserve(w, p.ID, p.CostumeCost, amount) {
		return &Rejection{Code: protocol.ErrNoResource, Msg: "reserve failed"}
	}
	return nil
}

func (e *Engine) Commit(p *Project, amount int) int {
	if p == nil || p.Status.Terminal() {
		return 0
	}
	n := e.Escrow.Commit(p.ID, amount)
	e.syncSaved(p)
	return n
}

// Release refunds up to amount. Failed projects keep their fund refundable.
func (e *Engine) Release(p *Project, amount int, w escrow.Purse) int {
	if p == nil || p.Status == StatusCancelled || p.Status == StatusCompleted {
		return 0
	}
	n := e.Escrow.Release(w, p.ID, amount)
	e.syncSaved(p)
	return n
}

func (e *Engine) syncSaved(p *Project) {
	a, _ := e.Escrow.Get(p.ID)
	p.CostumeSavedMoney = a.Saved
}
