package client

import (
	"math"
	"sync"
	"time"

	"github.com/yndnr/micropay-go/internal/core/domain"
)

// PendingState is the lifecycle of an optimistic credit.
type PendingState int

const (
	// PendingReported means the credit is applied locally and the report
	// has not been answered yet.
	PendingReported PendingState = iota
	// PendingSettled means the server accepted the report.
	PendingSettled
	// PendingFailed means the server rejected the report or could not be
	// reached. The local credit stays until the next snapshot.
	PendingFailed
)

func (s PendingState) String() string {
	switch s {
	case PendingSettled:
		return "settled"
	case PendingFailed:
		return "failed"
	default:
		return "reported"
	}
}

// PendingCredit marks one optimistic credit.
type PendingCredit struct {
	ID         string       `json:"id" yaml:"id"`
	Sender     string       `json:"sender" yaml:"sender"`
	Amount     int64        `json:"amount" yaml:"amount"`
	ReceivedAt time.Time    `json:"received_at" yaml:"received_at"`
	State      PendingState `json:"-" yaml:"-"`
	Status     string       `json:"status" yaml:"status"`
	Error      string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// Ledger is the wallet's local state: who is logged in, the cached
// balance and public key, and pending credit markers. Cached figures are
// advisory; the server balance is authoritative.
type Ledger struct {
	mu        sync.Mutex
	username  string
	balance   int64
	publicKey string
	pending   []*PendingCredit
}

// NewLedger creates a logged-out ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Login records the logged-in user and applies the login snapshot.
func (l *Ledger) Login(username string, snap *domain.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.username = username
	l.pending = nil
	l.applyLocked(snap)
}

// Logout clears the login. Pending markers are kept for inspection.
func (l *Ledger) Logout() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.username = ""
}

// Apply replaces the cached balance and public key with a snapshot's.
func (l *Ledger) Apply(snap *domain.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applyLocked(snap)
}

func (l *Ledger) applyLocked(snap *domain.Snapshot) {
	l.balance = snap.Balance
	l.publicKey = snap.PublicKey
}

// Username returns the logged-in user, or "" when logged out.
func (l *Ledger) Username() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.username
}

// LoggedIn reports whether a user is logged in.
func (l *Ledger) LoggedIn() bool {
	return l.Username() != ""
}

// Balance returns the cached balance.
func (l *Ledger) Balance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// PublicKey returns the last public key received from the server.
func (l *Ledger) PublicKey() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.publicKey
}

// Credit applies an incoming transfer to the cached balance and records
// a pending marker for it. A credit the cached balance cannot hold is
// refused with ErrInvalidAmount.
func (l *Ledger) Credit(r domain.TransferReceipt) (PendingCredit, error) {
	id, err := domain.GeneratePendingID()
	if err != nil {
		return PendingCredit{}, err
	}
	p := &PendingCredit{
		ID:         id,
		Sender:     r.Sender,
		Amount:     r.Amount,
		ReceivedAt: time.Now(),
		State:      PendingReported,
		Status:     PendingReported.String(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if r.Amount > math.MaxInt64-l.balance {
		return PendingCredit{}, domain.ErrInvalidAmount.WithDetails("credit overflows cached balance")
	}
	l.balance += r.Amount
	l.pending = append(l.pending, p)
	return *p, nil
}

// Settle marks a pending credit accepted by the server.
func (l *Ledger) Settle(id string) {
	l.resolve(id, PendingSettled, nil)
}

// Fail marks a pending credit rejected. The credit is not rolled back.
func (l *Ledger) Fail(id string, cause error) {
	l.resolve(id, PendingFailed, cause)
}

func (l *Ledger) resolve(id string, state PendingState, cause error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.pending {
		if p.ID != id {
			continue
		}
		p.State = state
		p.Status = state.String()
		if cause != nil {
			p.Error = cause.Error()
		}
		return
	}
}

// Pending returns copies of every marker in arrival order.
func (l *Ledger) Pending() []PendingCredit {
	return l.filter(func(*PendingCredit) bool { return true })
}

// Failed returns copies of the markers whose report was rejected.
func (l *Ledger) Failed() []PendingCredit {
	return l.filter(func(p *PendingCredit) bool { return p.State == PendingFailed })
}

func (l *Ledger) filter(keep func(*PendingCredit) bool) []PendingCredit {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]PendingCredit, 0, len(l.pending))
	for _, p := range l.pending {
		if keep(p) {
			out = append(out, *p)
		}
	}
	return out
}
