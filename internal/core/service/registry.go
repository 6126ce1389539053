package service

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/yndnr/micropay-go/internal/core/domain"
)

// DefaultPublicKey is the opaque key published in snapshots when none is
// configured.
const DefaultPublicKey = "SERVER_PUBLIC_KEY_PLACEHOLDER"

// TransactionJournal records settled transfers. Implemented by
// storage.Journal.
type TransactionJournal interface {
	Append(ctx context.Context, tx *domain.Transaction) error
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// PublicKey is published verbatim in every snapshot.
	PublicKey string

	// InitialBalance is credited by Register when no deposit is given.
	InitialBalance int64
}

// DefaultRegistryConfig returns the default registry configuration.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		PublicKey:      DefaultPublicKey,
		InitialBalance: domain.DefaultInitialBalance,
	}
}

// RegistryOption configures optional Registry dependencies.
type RegistryOption func(*Registry)

// WithJournal records every settled transfer in j.
func WithJournal(j TransactionJournal) RegistryOption {
	return func(r *Registry) { r.journal = j }
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// Registry is the server's account table.
//
// A single mutex guards the whole map: every lookup, insert, balance or
// presence change and snapshot build holds it for its full duration, so
// registry operations are totally ordered.
type Registry struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	// total is the sum of all balances. Register keeps it within int64,
	// which bounds every single balance too.
	total int64

	cfg     RegistryConfig
	journal TransactionJournal
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig, opts ...RegistryOption) *Registry {
	r := &Registry{
		accounts: make(map[string]*domain.Account),
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// InitialBalance returns the deposit applied when registration omits one.
func (r *Registry) InitialBalance() int64 {
	return r.cfg.InitialBalance
}

// Register creates an offline account holding deposit.
//
// Returns ErrDuplicateUser if the name is taken (the existing account is
// left untouched) and ErrInvalidArgument for an unusable name, a
// negative deposit or a deposit that would overflow the registry total.
func (r *Registry) Register(ctx context.Context, username string, deposit int64) error {
	if err := domain.ValidateUsername(username); err != nil {
		return err
	}
	if deposit < 0 {
		return domain.ErrInvalidArgument.WithDetails("deposit must not be negative")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[username]; ok {
		return domain.ErrDuplicateUser.WithDetails(username)
	}
	if deposit > math.MaxInt64-r.total {
		return domain.ErrInvalidArgument.WithDetails("deposit exceeds registry capacity")
	}
	r.accounts[username] = &domain.Account{
		Username: username,
		Balance:  deposit,
	}
	r.total += deposit
	return nil
}

// Login marks username online at host:port, owned by sessionID, and
// returns a fresh snapshot. It never creates an account.
func (r *Registry) Login(ctx context.Context, username, host string, port int, sessionID string) (*domain.Snapshot, error) {
	if err := domain.ValidatePort(port); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[username]
	if !ok {
		return nil, domain.ErrUnknownUser.WithDetails(username)
	}
	if acct.Online && acct.SessionID != sessionID {
		r.logger.Info("login replaces existing presence",
			"username", username,
			"old_session", acct.SessionID,
			"new_session", sessionID)
	}
	acct.Online = true
	acct.Host = host
	acct.Port = port
	acct.SessionID = sessionID

	return r.snapshotLocked(acct), nil
}

// Snapshot returns the balance of username, the public key and every
// online account ordered by username.
func (r *Registry) Snapshot(ctx context.Context, username string) (*domain.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[username]
	if !ok {
		return nil, domain.ErrUnknownUser.WithDetails(username)
	}
	return r.snapshotLocked(acct), nil
}

func (r *Registry) snapshotLocked(acct *domain.Account) *domain.Snapshot {
	online := make([]domain.DirectoryEntry, 0, len(r.accounts))
	for _, a := range r.accounts {
		if a.Online {
			online = append(online, a.Entry())
		}
	}
	domain.SortEntries(online)
	return &domain.Snapshot{
		Balance:   acct.Balance,
		PublicKey: r.cfg.PublicKey,
		Online:    online,
	}
}

// Transfer moves amount from sender to receiver atomically.
//
// Returns ErrUnknownUser if either party is missing, ErrInvalidAmount for
// a non-positive amount or a credit the receiver's balance cannot hold,
// and ErrInsufficientFunds when the sender cannot cover it. Balances are
// untouched on every error.
func (r *Registry) Transfer(ctx context.Context, sender, receiver string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	r.mu.Lock()
	from, okFrom := r.accounts[sender]
	to, okTo := r.accounts[receiver]
	switch {
	case !okFrom || !okTo:
		r.mu.Unlock()
		return domain.ErrUnknownUser.WithDetails(sender + " -> " + receiver)
	case from.Balance < amount:
		r.mu.Unlock()
		return domain.ErrInsufficientFunds.WithDetails(sender)
	case sender != receiver && to.Balance > math.MaxInt64-amount:
		r.mu.Unlock()
		return domain.ErrInvalidAmount.WithDetails("credit overflows " + receiver)
	}
	from.Balance -= amount
	to.Balance += amount
	r.mu.Unlock()

	r.record(ctx, sender, receiver, amount)
	return nil
}

func (r *Registry) record(ctx context.Context, sender, receiver string, amount int64) {
	if r.journal == nil {
		return
	}
	tx, err := domain.NewTransaction(sender, receiver, amount)
	if err == nil {
		err = r.journal.Append(ctx, tx)
	}
	if err != nil {
		r.logger.Error("journal append failed",
			"sender", sender,
			"receiver", receiver,
			"amount", amount,
			"error", err)
	}
}

// Logout marks username offline if sessionID still owns its presence.
// It reports whether the account was taken offline.
func (r *Registry) Logout(ctx context.Context, username, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[username]
	if !ok || !acct.Online || acct.SessionID != sessionID {
		return false
	}
	acct.Online = false
	acct.Host = ""
	acct.Port = 0
	acct.SessionID = ""
	return true
}

// Account returns a copy of the account record.
func (r *Registry) Account(ctx context.Context, username string) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[username]
	if !ok {
		return domain.Account{}, domain.ErrUnknownUser.WithDetails(username)
	}
	return *acct, nil
}

// Count returns the number of registered accounts.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

// OnlineCount returns the number of accounts currently online.
func (r *Registry) OnlineCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, a := range r.accounts {
		if a.Online {
			n++
		}
	}
	return n
}

// TotalBalance returns the sum of all balances. Settled transfers never
// change it.
func (r *Registry) TotalBalance() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sum int64
	for _, a := range r.accounts {
		sum += a.Balance
	}
	return sum
}
