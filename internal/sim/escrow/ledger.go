package escrow

import "sort"

// Purse is the player's spendable balance. Debit must check and deduct in one step.
type Purse interface {
	Balance() int
	Debit(amount int) bool
	Credit(amount int)
}

// Account is the costume fund held for one project.
// Reserved is provisional, Saved is committed; both are still refundable. Spent is gone.
type Account struct {
	Cap      int `json:"cap"`
	Reserved int `json:"reserved"`
	Saved    int `json:"saved"`
	Spent    int `json:"spent"`
}

func (a Account) Held() int { return a.Reserved + a.Saved }

type Ledger struct {
	accounts map[string]*Account
}

func NewLedger() *Ledger {
	return &Ledger{accounts: map[string]*Account{}}
}

func (l *Ledger) account(projectID string, cap int) *Account {
	a := l.accounts[projectID]
	if a == nil {
		a = &Account{Cap: cap}
		l.accounts[projectID] = a
	}
	return a
}

// Reserve moves amount from the purse into the project's provisional reservation.
// It fails without side effects when the purse is short or the fund would exceed cap.
func (l *Ledger) Reserve(p Purse, projectID string, cap, amount int) bool {
	if p == nil || projectID == "" || amount < 0 {
		return false
	}
	a := l.accounts[projectID]
	held := 0
	if a != nil {
		cap = a.Cap
		held = a.Held()
	}
	if held+amount > cap {
		return false
	}
	if amount == 0 {
		return true
	}
	if !p.Debit(amount) {
		return false
	}
	l.account(projectID, cap).Reserved += amount
	return true
}

// Commit converts up to amount of the reservation into saved money. No money moves.
func (l *Ledger) Commit(projectID string, amount int) int {
	a := l.accounts[projectID]
	if a == nil || amount <= 0 {
		return 0
	}
	n := min(amount, a.Reserved)
	a.Reserved -= n
	a.Saved += n
	return n
}

// Release refunds up to amount, draining the reservation before saved money.
func (l *Ledger) Release(p Purse, projectID string, amount int) int {
	a := l.accounts[projectID]
	if p == nil || a == nil || amount <= 0 {
		return 0
	}
	fromReserved := min(amount, a.Reserved)
	fromSaved := min(amount-fromReserved, a.Saved)
	a.Reserved -= fromReserved
	a.Saved -= fromSaved
	n := fromReserved + fromSaved
	if n > 0 {
		p.Credit(n)
	}
	l.gc(projectID)
	return n
}

func (l *Ledger) ReleaseAll(p Purse, projectID string) int {
	a := l.accounts[projectID]
	if a == nil {
		return 0
	}
	return l.Release(p, projectID, a.Held())
}

// Spend pays price for the costume, consuming held money first and debiting the rest.
// All or nothing: a short purse leaves the account and balance untouched.
func (l *Ledger) Spend(p Purse, projectID string, price int) bool {
	if p == nil || price < 0 {
		return false
	}
	a := l.account(projectID, price)
	fromHeld := min(price, a.Held())
	shortfall := price - fromHeld
	if shortfall > 0 && !p.Debit(shortfall) {
		l.gc(projectID)
		return false
	}
	fromSaved := min(fromHeld, a.Saved)
	a.Saved -= fromSaved
	a.Reserved -= fromHeld - fromSaved
	a.Spent += price
	if leftover := a.Held(); leftover > 0 {
		a.Reserved, a.Saved = 0, 0
		p.Credit(leftover)
	}
	return true
}

// SetCap adjusts the cap, e.g. when a pre-acceptance reservation meets the accepted project.
func (l *Ledger) SetCap(projectID string, cap int) {
	if a := l.accounts[projectID]; a != nil {
		a.Cap = cap
	}
}

func (l *Ledger) Get(projectID string) (Account, bool) {
	a := l.accounts[projectID]
	if a == nil {
		return Account{}, false
	}
	return *a, true
}

func (l *Ledger) Held(projectID string) int {
	a := l.accounts[projectID]
	if a == nil {
		return 0
	}
	return a.Held()
}

// Total is the money currently removed from the purse and still refundable.
func (l *Ledger) Total() int {
	n := 0
	for _, a := range l.accounts {
		n += a.Held()
	}
	return n
}

func (l *Ledger) Forget(projectID string) {
	delete(l.accounts, projectID)
}

func (l *Ledger) gc(projectID string) {
	if a := l.accounts[projectID]; a != nil && a.Held() == 0 && a.Spent == 0 {
		delete(l.accounts, projectID)
	}
}

// Entries lists accounts sorted by project id, for persistence.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(l.accounts))
	for id, a := range l.accounts {
		out = append(out, Entry{ProjectID: id, Account: *a})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out
}

type Entry struct {
	ProjectID string `json:"projectId"`
	Account
}

func Restore(entries []Entry) *Ledger {
	l := NewLedger()
	for _, e := range entries {
		if e.ProjectID == "" {
			continue
		}
		a := e.Account
		l.accounts[e.ProjectID] = &a
	}
	return l
}
