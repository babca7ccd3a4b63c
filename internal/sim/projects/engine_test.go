package projects

import (
	"math/rand"
	"testing"

	"coverdance.app/internal/protocol"
	"coverdance.app/internal/sim/escrow"
	"coverdance.app/internal/sim/projects/core"
	"coverdance.app/internal/sim/tuning"
)

type testWallet struct {
	money      int
	popularity int
	reputation int
}

func (w *testWallet) Balance() int { return w.money }
func (w *testWallet) Debit(n int) bool {
	if n < 0 || w.money < n {
		return false
	}
	w.money -= n
	return true
}
func (w *testWallet) Credit(n int)         { w.money += n }
func (w *testWallet) Standing() (int, int) { return w.popularity, w.reputation }

func newTestEngine() *Engine {
	return NewEngine(tuning.Defaults(), escrow.NewLedger(), rand.New(rand.NewSource(3)))
}

func offer(id string, needed, cost, costume, weeks int) *Project {
	return NewAvailable(Template{
		ID:               id,
		Name:             "Cover " + id,
		RequiredSkill:    StyleFemale,
		DurationWeeks:    weeks,
		TrainingsPerWeek: 2,
		TrainingNeeded:   needed,
		TrainingCost:     cost,
		CostumeCost:      costume,
	})
}

func accept(t *testing.T, e *Engine, o *Project, base int, w *testWallet) *Project {
	t.Helper()
	p, rej := e.Accept(o, AcceptOptions{BaseTraining: base}, w, 0, 0, 0)
	if rej != nil {
		t.Fatalf("accept: %v", rej)
	}
	return p
}

// tickDays drives the engine one day at a time starting after day from.
func tickDays(e *Engine, p *Project, w Wallet, from, days int) TickReport {
	var rep TickReport
	for d := 1; d <= days; d++ {
		rep.merge(e.Tick(p, 1, w, from+d))
	}
	return rep
}

func TestHappyPath(t *testing.T) {
	e := newTestEngine()
	w := &testWallet{money: 1000}
	p := accept(t, e, offer("p1", 4, 100, 0, 2), 2, w)

	rep := tickDays(e, p, w, 0, 14)
	if p.TrainingsCompleted != 4 || p.Progress != 100 {
		t.Fatalf("expected 4 trainings at 100%%, got %d at %d%%", p.TrainingsCompleted, p.Progress)
	}
	if w.money != 600 {
		t.Fatalf("expected money 600, got %d", w.money)
	}
	if !rep.Succeeded || p.Status != StatusCompleted || !p.Success {
		t.Fatalf("expected success, got status=%s", p.Status)
	}
	if len(p.Comments) < 3 || p.Likes < 10 {
		t.Fatalf("expected outcome to be rolled, got likes=%d comments=%d", p.Likes, len(p.Comments))
	}
}

func TestFundingGap(t *testing.T) {
	e := newTestEngine()
	w := &testWallet{money: 150}
	p := accept(t, e, offer("p1", 4, 100, 0, 4), 2, w)

	tickDays(e, p, w, 0, 7)
	if !p.NeedsFunding || p.TrainingsCompleted != 1 || w.money != 50 || p.FundingBacklog != 1 {
		t.Fatalf("expected stall at 1 with money 50, got needs=%v done=%d money=%d backlog=%d",
			p.NeedsFunding, p.TrainingsCompleted, w.money, p.FundingBacklog)
	}
	tickDays(e, p, w, 7, 7)
	if p.TrainingsCompleted != 1 {
		t.Fatalf("expected accrual frozen, got %d", p.TrainingsCompleted)
	}
	if rej := e.Fund(p, w, 14); rej == nil || rej.Code != protocol.ErrNoResource {
		t.Fatalf("expected fund to fail without money, got %v", rej)
	}
	w.money += 100
	if rej := e.Fund(p, w, 14); rej != nil {
		t.Fatalf("fund: %v", rej)
	}
	if p.NeedsFunding || p.TrainingsCompleted != 2 || p.Progress != 50 {
		t.Fatalf("expected backlog cleared at 2 trainings, got needs=%v done=%d progress=%d", p.NeedsFunding, p.TrainingsCompleted, p.Progress)
	}
	if rej := e.Fund(p, w, 14); rej == nil || rej.Code != protocol.ErrConflict {
		t.Fatalf("expected conflict when not paused, got %v", rej)
	}
}

func TestDeadlineTermination(t *testing.T) {
	e := newTestEngine()
	w := &testWallet{money: 1000}
	p := accept(t, e, offer("p1", 4, 100, 0, 2), 0, w)

	tickDays(e, p, w, 0, 21)
	if p.Status != StatusActive {
		t.Fatalf("expected active on day 21, got %s", p.Status)
	}
	rep := tickDays(e, p, w, 21, 1)
	if !rep.Failed || p.Status != StatusFailed || !p.FailedDueToDeadline {
		t.Fatalf("expected deadline failure on day 22, got %s", p.Status)
	}
	if p.ReputationChange != -5 {
		t.Fatalf("expected reputation penalty, got %d", p.ReputationChange)
	}
	rep = tickDays(e, p, w, 22, 5)
	if rep.Failed || p.DaysActive != 22 {
		t.Fatalf("terminal tick must be a no-op, days=%d", p.DaysActive)
	}
}

func TestProgressMonotonic(t *testing.T) {
	e := newTestEngine()
	w := &testWallet{money: 1300}
	p := accept(t, e, offer("p1", 9, 100, 0, 10), 3, w)
	last := 0
	for day := 1; day <= 40 && p.Active(); day++ {
		e.Tick(p, 1, w, day)
		if p.TrainingsCompleted < last {
			t.Fatalf("day %d: trainings went down %d -> %d", day, last, p.TrainingsCompleted)
		}
		if want := core.Progress(p.TrainingsCompleted, p.TrainingNeeded); p.Progress != want && p.Active() {
			t.Fatalf("day %d: progress %d want %d", day, p.Progress, want)
		}
		if p.TrainingsCompleted > p.TrainingNeeded {
			t.Fatalf("day %d: overshoot %d", day, p.TrainingsCompleted)
		}
		last = p.TrainingsCompleted
	}
}

func TestExtraTrainingCap(t *testing.T) {
	e := newTestEngine()
	w := &testWallet{money: 1000}
	// One active project already using 6 extra; the cap for two is 5.
	if _, rej := e.Accept(offer("p2", 4, 100, 0, 2), AcceptOptions{BaseTraining: 1}, w, 6, 1, 0); rej == nil || rej.Code != protocol.ErrConflict {
		t.Fatalf("expected cap conflict, got %v", rej)
	}
	p := accept(t, e, offer("p1", 4, 100, 0, 2), 1, w)
	three, four := 3, 4
	if rej := e.Update(p, Patch{ExtraTraining: &three}, 2, 2); rej != nil {
		t.Fatalf("2+3 within cap 5: %v", rej)
	}
	if rej := e.Update(p, Patch{ExtraTraining: &four}, 2, 2); rej == nil {
		t.Fatalf("2+4 must exceed cap 5")
	}
	if p.ExtraTraining != 3 {
		t.Fatalf("rejected update must be a no-op, got %d", p.ExtraTraining)
	}
	bad := 4
	if rej := e.Update(p, Patch{BaseTraining: &bad}, 0, 1); rej == nil || rej.Code != protocol.ErrBadRequest {
		t.Fatalf("expected base range error, got %v", rej)
	}
}

func TestAbandonRefund(t *testing.T) {
	e := newTestEngine()
	w := &testWallet{money: 3000}
	o := offer("p1", 4, 100, 2000, 4)
	p, rej := e.Accept(o, AcceptOptions{BaseTraining: 1, CostumeSavedMoney: 500}, w, 0, 0, 0)
	if rej != nil {
		t.Fatalf("accept: %v", rej)
	}
	if w.money != 2500 || p.CostumeSavedMoney != 500 {
		t.Fatalf("expected 500 committed, money=%d saved=%d", w.money, p.CostumeSavedMoney)
	}
	refund, ok := e.Abandon(p, w, 3)
	if !ok || refund != 500 || w.money != 3000 {
		t.Fatalf("expected full refund, ok=%v refund=%d money=%d", ok, refund, w.money)
	}
	if p.Status != StatusCancelled || p.CancelledByEvent {
		t.Fatalf("expected cancelled by player, got %s", p.Status)
	}
	if _, ok := e.Abandon(p, w, 4); ok {
		t.Fatalf("abandon on terminal project must be a no-op")
	}
}

func TestPreAcceptReservationIsCommitted(t *testing.T) {
	e := newTestEngine()
	w := &testWallet{money: 5000}
	o := offer("p1", 4, 100, 3000, 4)
	if rej := e.Reserve(o, 1000, w); rej != nil {
		t.Fatalf("reserve on offer: %v", rej)
	}
	p, rej := e.Accept(o, AcceptOptions{BaseTraining: 1, CostumeSavedMoney: 2500}, w, 0, 0, 0)
	if rej != nil {
		t.Fatalf("accept: %v", rej)
	}
	if p.CostumeSavedMoney != 3000 || w.money != 2000 {
		t.Fatalf("expected fund clamped to cost, saved=%d money=%d", p.CostumeSavedMoney, w.money)
	}
}

func TestCostumeApprovalFlow(t *testing.T) {
	e := newTestEngine()
	w := &testWallet{money: 10000}
	p, _ := e.Accept(offer("p1", 4, 100, 3000, 4), AcceptOptions{BaseTraining: 2, CostumeSavedMoney: 1000}, w, 0, 0, 0)
	if _, rej := e.SubmitCostume(p, 90, "", w, 0); rej == nil || rej.Code != protocol.ErrBlocked {
		t.Fatalf("expected blocked before request, got %v", rej)
	}

	rep := tickDays(e, p, w, 0, 7)
	if !rep.CostumeRequested || !p.CostumeRequested {
		t.Fatalf("expected costume request at 50%%")
	}
	before := w.money
	v, rej := e.SubmitCostume(p, 60, "", w, 7)
	if rej != nil || v != core.VerdictAcceptable || !p.CostumeApproved || p.CostumeLocked {
		t.Fatalf("expected provisional approval, v=%s rej=%v", v, rej)
	}
	if w.money != before-2000 || !p.CostumePaid || p.CostumeSavedMoney != 0 {
		t.Fatalf("expected saved 1000 plus 2000 from purse, money=%d", w.money)
	}
	e.SubmitCostume(p, 55, "", w, 8)
	if p.CostumeMatchPercent != 60 {
		t.Fatalf("worse match must keep 60, got %d", p.CostumeMatchPercent)
	}
	v, _ = e.SubmitCostume(p, 88, "Perfect fit", w, 8)
	if v != core.VerdictApproved || !p.CostumeLocked || w.money != before-2000 {
		t.Fatalf("expected lock without second payment, v=%s money=%d", v, w.money)
	}
	if _, rej := e.SubmitCostume(p, 100, "", w, 9); rej == nil || rej.Code != protocol.ErrConflict {
		t.Fatalf("locked costume must reject resubmission, got %v", rej)
	}
	tickDays(e, p, w, 7, 7)
	if p.Status != StatusCompleted || p.Comments[0].Text != "Perfect fit" {
		t.Fatalf("expected success with leader opinion, got %s", p.Status)
	}
}

func TestCostumeUnaffordable(t *testing.T) {
	e := newTestEngine()
	w := &testWallet{money: 1000}
	p, _ := e.Accept(offer("p1", 2, 100, 3000, 4), AcceptOptions{BaseTraining: 1}, w, 0, 0, 0)
	tickDays(e, p, w, 0, 7)
	if _, rej := e.SubmitCostume(p, 95, "", w, 7); rej == nil || rej.Code != protocol.ErrNoResource {
		t.Fatalf("expected no resource, got %v", rej)
	}
	if p.CostumeApproved || w.money != 900 {
		t.Fatalf("failed purchase must not change state, money=%d", w.money)
	}
}

func TestCostumeGraceExtendsOnce(t *testing.T) {
	e := newTestEngine()
	w := &testWallet{money: 1000}
	p := accept(t, e, offer("p1", 2, 100, 3000, 1), 1, w)

	tickDays(e, p, w, 0, 7)
	if !p.CostumeRequested {
		t.Fatalf("expected costume request")
	}
	if v, _ := e.SubmitCostume(p, 30, "", w, 7); v != core.VerdictRejected || p.CostumeGraceUntilDay != 14 {
		t.Fatalf("expected rejection with grace until 14, v=%s grace=%d", v, p.CostumeGraceUntilDay)
	}
	rep := tickDays(e, p, w, 7, 7)
	if !rep.DeadlineExtended || !p.DeadlineExtended {
		t.Fatalf("expected deadline extension on grace expiry")
	}
	e.SubmitCostume(p, 20, "", w, 15)
	if p.CostumeGraceUntilDay != 0 {
		t.Fatalf("grace must not restart after the extension")
	}
	tickDays(e, p, w, 14, 7)
	if p.Status != StatusActive {
		t.Fatalf("extended project must still be active on day 21, got %s", p.Status)
	}
	tickDays(e, p, w, 21, 1)
	if p.Status != StatusFailed {
		t.Fatalf("expected failure on day 22, got %s", p.Status)
	}
}

func TestCostumeGraceHoldsDeadline(t *testing.T) {
	e := newTestEngine()
	w := &testWallet{money: 10000}
	p := accept(t, e, offer("p1", 4, 100, 3000, 2), 1, w)

	tickDays(e, p, w, 0, 18)
	if !p.CostumeRequested {
		t.Fatalf("expected costume request, progress=%d", p.Progress)
	}
	if v, _ := e.SubmitCostume(p, 30, "", w, 18); v != core.VerdictRejected || p.CostumeGraceUntilDay != 25 {
		t.Fatalf("expected rejection with grace until 25, v=%s grace=%d", v, p.CostumeGraceUntilDay)
	}
	rep := tickDays(e, p, w, 18, 4)
	if p.Status != StatusActive || !p.DeadlineExtended || !rep.DeadlineExtended {
		t.Fatalf("deadline inside the grace period must extend, status=%s extended=%v days=%d",
			p.Status, p.DeadlineExtended, p.DaysActive)
	}
	if v, rej := e.SubmitCostume(p, 90, "", w, 22); rej != nil || v != core.VerdictApproved {
		t.Fatalf("approve: v=%s rej=%v", v, rej)
	}
	tickDays(e, p, w, 22, 6)
	if p.Status != StatusCompleted || p.DaysActive != 28 {
		t.Fatalf("expected success on extended deadline day 28, status=%s days=%d", p.Status, p.DaysActive)
	}
}

func TestCommandsSettleSuccessImmediately(t *testing.T) {
	e := newTestEngine()
	w := &testWallet{money: 150}
	p := accept(t, e, offer("p1", 2, 100, 0, 4), 2, w)
	tickDays(e, p, w, 0, 7)
	if !p.NeedsFunding || p.TrainingsCompleted != 1 {
		t.Fatalf("expected funding gap, done=%d", p.TrainingsCompleted)
	}
	w.money += 100
	if rej := e.Fund(p, w, 8); rej != nil {
		t.Fatalf("fund: %v", rej)
	}
	if p.Status != StatusCompleted || !p.Success || p.CompletedDay != 8 {
		t.Fatalf("funding the last training must complete the project, status=%s day=%d", p.Status, p.CompletedDay)
	}

	w = &testWallet{money: 10000}
	p = accept(t, e, offer("p2", 2, 100, 3000, 4), 2, w)
	tickDays(e, p, w, 0, 7)
	if p.TrainingsCompleted != 2 || !p.CostumeRequested || p.Status != StatusActive {
		t.Fatalf("expected trainings done and waiting on costume, done=%d status=%s", p.TrainingsCompleted, p.Status)
	}
	if _, rej := e.SubmitCostume(p, 60, "", w, 9); rej != nil {
		t.Fatalf("costume: %v", rej)
	}
	if p.Status != StatusCompleted || p.CompletedDay != 9 {
		t.Fatalf("approval after training must complete the project, status=%s day=%d", p.Status, p.CompletedDay)
	}
}

func TestFailedProjectKeepsFundRefundable(t *testing.T) {
	e := newTestEngine()
	w := &testWallet{money: 2000}
	p, _ := e.Accept(offer("p1", 4, 100, 3000, 1), AcceptOptions{BaseTraining: 0, CostumeSavedMoney: 800}, w, 0, 0, 0)
	tickDays(e, p, w, 0, 15)
	if p.Status != StatusFailed {
		t.Fatalf("expected failure, got %s", p.Status)
	}
	if w.money != 1200 {
		t.Fatalf("deadline failure must not refund automatically, money=%d", w.money)
	}
	if got := e.Release(p, 10000, w); got != 800 || w.money != 2000 {
		t.Fatalf("expected 800 refundable after failure, got %d money=%d", got, w.money)
	}
}

func TestStyleText(t *testing.T) {
	b, err := StyleBoth.MarshalText()
	if err != nil || string(b) != "Both" {
		t.Fatalf("marshal: %s %v", b, err)
	}
	var s Style
	if err := s.UnmarshalText([]byte("M_skill")); err != nil || s != StyleMale {
		t.Fatalf("unmarshal: %v %v", s, err)
	}
	if err := s.UnmarshalText([]byte("X")); err == nil {
		t.Fatalf("expected error for unknown style")
	}
}
