package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/micropay-go/internal/core/domain"
)

// Config configures a Wallet.
type Config struct {
	// ServerAddr is the directory server address.
	ServerAddr string
	// ListenAddr is where the peer listener binds. Port 0 picks a free port.
	ListenAddr string
	// AdvertisePort is the port sent at login. Zero advertises the bound
	// listener port.
	AdvertisePort int
	// RefreshDelay is how long TransferAndRefresh waits for the payee to
	// report before fetching a new snapshot.
	RefreshDelay time.Duration
}

// DefaultConfig returns the default wallet configuration.
func DefaultConfig() Config {
	return Config{
		ServerAddr:   "127.0.0.1:8888",
		ListenAddr:   "0.0.0.0:0",
		RefreshDelay: 500 * time.Millisecond,
	}
}

// EventKind classifies wallet notifications.
type EventKind int

const (
	// EventCreditSettled: an incoming transfer was reported and accepted.
	EventCreditSettled EventKind = iota
	// EventCreditFailed: an incoming transfer was credited locally but the
	// server rejected the report or could not be reached.
	EventCreditFailed
	// EventReceiptDropped: a receipt arrived that this wallet cannot
	// accept (not logged in, wrong receiver, invalid amount).
	EventReceiptDropped
)

// Event describes an incoming transfer.
type Event struct {
	Kind    EventKind
	Receipt domain.TransferReceipt
	Credit  PendingCredit
	Balance int64
	Err     error
}

// Dialer opens a new server session.
type Dialer func(ctx context.Context) (*Session, error)

// Option configures a Wallet.
type Option func(*Wallet)

// WithLogger sets the wallet logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Wallet) { w.logger = logger }
}

// WithNotifier registers a callback for incoming transfer events. It runs
// on the listener worker after the report exchange has finished.
func WithNotifier(fn func(Event)) Option {
	return func(w *Wallet) { w.notify = fn }
}

// WithDialer overrides how server sessions are opened.
func WithDialer(d Dialer) Option {
	return func(w *Wallet) { w.dial = d }
}

// Wallet ties a server session, the peer listener, the peer directory
// and the local ledger together.
//
// The server closes the connection after a failed login and after Exit.
// A Session never reconnects, so while logged out the wallet opens a
// fresh session for the next Register or Login.
type Wallet struct {
	cfg    Config
	logger *slog.Logger
	notify func(Event)
	dial   Dialer

	sessMu  sync.Mutex
	session *Session
	closed  bool

	ledger    *Ledger
	dir       *Directory
	listener  *Listener
	initiator *Initiator
}

// New creates a wallet. Call Open before use.
func New(cfg Config, opts ...Option) *Wallet {
	w := &Wallet{
		cfg:    cfg,
		logger: slog.Default(),
		notify: func(Event) {},
		ledger: NewLedger(),
		dir:    NewDirectory(),
	}
	w.dial = func(ctx context.Context) (*Session, error) {
		return Dial(ctx, w.cfg.ServerAddr)
	}
	for _, opt := range opts {
		opt(w)
	}
	w.initiator = NewInitiator(w.dir)
	return w
}

// Open binds the peer listener and connects to the server. The listener
// is bound first so its port is known before any login.
func (w *Wallet) Open(ctx context.Context) error {
	ln, err := Listen(w.cfg.ListenAddr, w.handleReceipt, w.logger)
	if err != nil {
		return err
	}

	s, err := w.dial(ctx)
	if err != nil {
		_ = ln.Close()
		return err
	}

	w.listener = ln
	w.sessMu.Lock()
	w.session = s
	w.sessMu.Unlock()

	ln.Start()
	w.logger.Info("wallet ready", "server", w.cfg.ServerAddr, "listen_port", ln.Port())
	return nil
}

// Close closes the server session, then stops the listener and waits for
// its workers. The session goes first so a receipt worker blocked on a
// report to a stalled server is released.
func (w *Wallet) Close() error {
	var errs []error
	w.sessMu.Lock()
	w.closed = true
	if w.session != nil {
		errs = append(errs, w.session.Close())
	}
	w.sessMu.Unlock()
	if w.listener != nil {
		errs = append(errs, w.listener.Close())
	}
	return errors.Join(errs...)
}

// Register creates an account. A negative deposit lets the server apply
// its initial balance. Registering while logged in is refused locally.
func (w *Wallet) Register(ctx context.Context, username string, deposit int64) error {
	if w.ledger.LoggedIn() {
		return domain.ErrAlreadyLoggedIn
	}
	s, err := w.loggedOutSession(ctx)
	if err != nil {
		return err
	}
	return s.Register(ctx, username, deposit)
}

// Login logs username in and caches the returned snapshot.
func (w *Wallet) Login(ctx context.Context, username string) (*domain.Snapshot, error) {
	if w.ledger.LoggedIn() {
		return nil, domain.ErrAlreadyLoggedIn
	}
	s, err := w.loggedOutSession(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := s.Login(ctx, username, w.AdvertisedPort())
	if err != nil {
		return nil, err
	}
	w.ledger.Login(username, snap)
	w.dir.Replace(snap.Online)
	w.logger.Info("logged in", "user", username, "balance", snap.Balance, "online", len(snap.Online))
	return snap, nil
}

// List refreshes the balance and peer directory from the server.
func (w *Wallet) List(ctx context.Context) (*domain.Snapshot, error) {
	if !w.ledger.LoggedIn() {
		return nil, domain.ErrNotAuthenticated
	}
	snap, err := w.currentSession().List(ctx)
	if err != nil {
		w.checkLost(err)
		return nil, err
	}
	w.ledger.Apply(snap)
	w.dir.Replace(snap.Online)
	return snap, nil
}

// Transfer sends amount to a peer. Every local check runs before any
// connection is made, and no balance moves here: the payee reports the
// transfer and the next snapshot shows the result.
func (w *Wallet) Transfer(ctx context.Context, to string, amount int64) error {
	username := w.ledger.Username()
	switch {
	case username == "":
		return domain.ErrNotAuthenticated
	case amount <= 0:
		return domain.ErrInvalidAmount
	case to == username:
		return domain.ErrInvalidArgument.WithDetails("cannot transfer to yourself")
	case amount > w.ledger.Balance():
		return domain.ErrInsufficientFunds
	}

	receipt := domain.TransferReceipt{Sender: username, Amount: amount, Receiver: to}
	if err := w.initiator.Send(ctx, receipt); err != nil {
		return err
	}
	w.logger.Info("transfer sent", "to", to, "amount", amount)
	return nil
}

// TransferAndRefresh sends a transfer, waits RefreshDelay for the payee
// to report it, then fetches a new snapshot.
func (w *Wallet) TransferAndRefresh(ctx context.Context, to string, amount int64) (*domain.Snapshot, error) {
	if err := w.Transfer(ctx, to, amount); err != nil {
		return nil, err
	}
	if w.cfg.RefreshDelay > 0 {
		t := time.NewTimer(w.cfg.RefreshDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, &RefreshError{Err: ctx.Err()}
		}
	}
	snap, err := w.List(ctx)
	if err != nil {
		return nil, &RefreshError{Err: err}
	}
	return snap, nil
}

// RefreshError reports a transfer that was delivered to the payee but
// whose follow-up List failed.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string { return "refresh after transfer: " + e.Err.Error() }

func (e *RefreshError) Unwrap() error { return e.Err }

// Logout sends Exit and clears the local login.
func (w *Wallet) Logout(ctx context.Context) error {
	if !w.ledger.LoggedIn() {
		return domain.ErrNotAuthenticated
	}
	err := w.currentSession().Logout(ctx)
	w.ledger.Logout()
	w.dir.Replace(nil)
	return err
}

// Username returns the logged-in user, or "".
func (w *Wallet) Username() string { return w.ledger.Username() }

// Balance returns the cached balance.
func (w *Wallet) Balance() int64 { return w.ledger.Balance() }

// PublicKey returns the last server public key seen.
func (w *Wallet) PublicKey() string { return w.ledger.PublicKey() }

// Peers returns the cached online directory.
func (w *Wallet) Peers() []domain.DirectoryEntry { return w.dir.Entries() }

// Pending returns every pending credit marker.
func (w *Wallet) Pending() []PendingCredit { return w.ledger.Pending() }

// FailedCredits returns the credits whose report the server rejected.
func (w *Wallet) FailedCredits() []PendingCredit { return w.ledger.Failed() }

// ListenPort returns the bound peer listener port, or 0 before Open.
func (w *Wallet) ListenPort() int {
	if w.listener == nil {
		return 0
	}
	return w.listener.Port()
}

// AdvertisedPort returns the port sent at login.
func (w *Wallet) AdvertisedPort() int {
	if w.cfg.AdvertisePort > 0 {
		return w.cfg.AdvertisePort
	}
	return w.ListenPort()
}

func (w *Wallet) currentSession() *Session {
	w.sessMu.Lock()
	defer w.sessMu.Unlock()
	return w.session
}

// loggedOutSession returns a usable session, dialing a new one when the
// server closed the previous connection.
func (w *Wallet) loggedOutSession(ctx context.Context) (*Session, error) {
	w.sessMu.Lock()
	defer w.sessMu.Unlock()

	if w.closed {
		return nil, domain.ErrConnectionLost.WithDetails("wallet closed")
	}
	if w.session != nil && !w.session.Broken() {
		return w.session, nil
	}
	s, err := w.dial(ctx)
	if err != nil {
		return nil, err
	}
	if w.session != nil {
		_ = w.session.Close()
	}
	w.session = s
	return s, nil
}

// checkLost clears the login once the session is gone; the server has
// already marked the account offline.
func (w *Wallet) checkLost(err error) {
	if errors.Is(err, domain.ErrConnectionLost) || w.currentSession().Broken() {
		w.logger.Warn("server connection lost", "error", err)
		w.ledger.Logout()
		w.dir.Replace(nil)
	}
}

// handleReceipt credits an incoming transfer and reports it, holding the
// session exchange lock for the whole step. Receipts are dropped unless
// they name the logged-in user as receiver and carry a creditable amount.
func (w *Wallet) handleReceipt(ctx context.Context, r domain.TransferReceipt) {
	var ev Event
	s := w.currentSession()
	if s == nil {
		return
	}

	_ = s.Atomic(ctx, func(tx *Tx) error {
		ev.Receipt = r

		username := w.ledger.Username()
		switch {
		case username == "":
			ev.Kind, ev.Err = EventReceiptDropped, domain.ErrNotAuthenticated
			return nil
		case r.Receiver != username:
			ev.Kind, ev.Err = EventReceiptDropped, domain.ErrInvalidArgument.WithDetails("receipt addressed to "+r.Receiver)
			return nil
		}
		if err := r.Validate(); err != nil {
			ev.Kind, ev.Err = EventReceiptDropped, err
			return nil
		}

		credit, err := w.ledger.Credit(r)
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidAmount) {
				err = domain.ErrInternal.WithCause(err)
			}
			ev.Kind, ev.Err = EventReceiptDropped, err
			return nil
		}

		err = tx.ReportTransaction(domain.TransactionReport(r))
		if err != nil {
			w.ledger.Fail(credit.ID, err)
			credit.State, credit.Status, credit.Error = PendingFailed, PendingFailed.String(), err.Error()
			ev.Kind, ev.Err = EventCreditFailed, err
		} else {
			w.ledger.Settle(credit.ID)
			credit.State, credit.Status = PendingSettled, PendingSettled.String()
			ev.Kind = EventCreditSettled
		}
		ev.Credit = credit
		return nil
	})

	ev.Balance = w.ledger.Balance()
	switch ev.Kind {
	case EventCreditSettled:
		w.logger.Info("transfer received", "from", r.Sender, "amount", r.Amount, "balance", ev.Balance)
	case EventCreditFailed:
		w.logger.Warn("transfer report rejected", "from", r.Sender, "amount", r.Amount, "error", ev.Err)
		w.checkLost(ev.Err)
	case EventReceiptDropped:
		w.logger.Warn("transfer receipt dropped", "from", r.Sender, "receiver", r.Receiver, "error", ev.Err)
	}
	w.notify(ev)
}
