// Package credit tracks per-session export budgets.
package credit

import (
	"sync"

	"github.com/rotisserie/eris"
)

// DefaultBalance is the budget a new session starts with.
const DefaultBalance = 10000

var (
	// ErrInsufficientCredits means the export is larger than the balance.
	ErrInsufficientCredits = eris.New("credit: insufficient credits")
	// ErrAlreadyExported means the session already paid for this run.
	ErrAlreadyExported = eris.New("credit: run already exported")
)

type account struct {
	balance  int
	exported map[string]bool
}

// Ledger holds balances keyed by session ID. It is safe for concurrent use.
type Ledger struct {
	initial int

	mu       sync.Mutex
	accounts map[string]*account
}

// NewLedger creates a ledger whose sessions start with initial credits.
// A non-positive initial uses DefaultBalance.
func NewLedger(initial int) *Ledger {
	if initial <= 0 {
		initial = DefaultBalance
	}
	return &Ledger{initial: initial, accounts: make(map[string]*account)}
}

// Balance returns the session's remaining credits. An unknown session
// reports the initial budget and is not stored.
func (l *Ledger) Balance(session string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.accounts[session]; ok {
		return a.balance
	}
	return l.initial
}

// Charge deducts n credits for exporting runID and returns the new
// balance. A run is charged at most once per session; a failed charge
// leaves the balance unchanged. The session's account is created by its
// first successful charge.
func (l *Ledger) Charge(session, runID string, n int) (int, error) {
	if session == "" {
		return 0, eris.New("credit: session id is required")
	}
	if n < 0 {
		return 0, eris.Errorf("credit: negative charge %d", n)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.accounts[session]
	if !ok {
		a = &account{balance: l.initial, exported: make(map[string]bool)}
	}
	if a.exported[runID] {
		return a.balance, ErrAlreadyExported
	}
	if n > a.balance {
		return a.balance, eris.Wrapf(ErrInsufficientCredits, "credit: export of %d records exceeds balance %d", n, a.balance)
	}
	a.balance -= n
	a.exported[runID] = true
	l.accounts[session] = a
	return a.balance, nil
}
