package directoryserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yndnr/micropay-go/internal/core/domain"
	"github.com/yndnr/micropay-go/internal/protocol/wire"
)

// AccountRegistry is the account table a Handler drives. Implemented by
// *service.Registry.
type AccountRegistry interface {
	InitialBalance() int64
	Register(ctx context.Context, username string, deposit int64) error
	Login(ctx context.Context, username, host string, port int, sessionID string) (*domain.Snapshot, error)
	Snapshot(ctx context.Context, username string) (*domain.Snapshot, error)
	Transfer(ctx context.Context, sender, receiver string, amount int64) error
	Logout(ctx context.Context, username, sessionID string) bool
}

// Metrics receives server events. Implemented by *metric.Registry.
type Metrics interface {
	IncConnections()
	DecConnections()
	IncRateLimited()
	RecordRequest(command, result string, d time.Duration)
	RecordRegistration(result string)
	RecordLogin(result string)
	RecordTransfer(amount int64)
	RecordTransferRejected(reason string)
}

type nopMetrics struct{}

func (nopMetrics) IncConnections() {}
func (nopMetrics) DecConnections() {}
func (nopMetrics) IncRateLimited() {}
func (nopMetrics) RecordRequest(string, string, time.Duration) {}
func (nopMetrics) RecordRegistration(string) {}
func (nopMetrics) RecordLogin(string) {}
func (nopMetrics) RecordTransfer(int64) {}
func (nopMetrics) RecordTransferRejected(string) {}

// Request results used as metric labels.
const (
	resultOK                = "ok"
	resultFail              = "fail"
	resultAuthFail          = "auth_fail"
	resultAuthRequired      = "auth_required"
	resultProtocolViolation = "protocol_violation"
)

// Handler executes request lines against the account registry.
type Handler struct {
	registry AccountRegistry
	metrics  Metrics
	logger   *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(registry AccountRegistry, metrics Metrics, logger *slog.Logger) *Handler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle executes one request line and buffers its reply on conn.
// It returns true when the connection must be closed.
func (h *Handler) Handle(ctx context.Context, conn *Conn, line string) bool {
	start := time.Now()

	req, err := wire.ParseRequest(line)
	var result string
	var closeConn bool
	switch {
	case err != nil && req.Kind == wire.KindTransaction:
		h.metrics.RecordTransferRejected("invalid_format")
		_ = wire.WriteLine(conn.bw, wire.TransactionFailed(wire.ReasonInvalidFormat))
		result = resultFail
	case err != nil:
		h.logger.Warn("protocol violation",
			"remote", conn.RemoteAddr(),
			"kind", req.Kind.String(),
			"error", err)
		result, closeConn = resultProtocolViolation, true
	default:
		result, closeConn = h.dispatch(ctx, conn, req)
	}

	h.metrics.RecordRequest(req.Kind.String(), result, time.Since(start))
	return closeConn
}

func (h *Handler) dispatch(ctx context.Context, conn *Conn, req wire.Request) (string, bool) {
	switch req.Kind {
	case wire.KindRegister:
		return h.handleRegister(ctx, conn, req), false
	case wire.KindList:
		return h.handleList(ctx, conn), false
	case wire.KindTransaction:
		return h.handleTransaction(ctx, conn, req), false
	case wire.KindExit:
		return h.handleExit(ctx, conn)
	case wire.KindLogin:
		return h.handleLogin(ctx, conn, req)
	default:
		return resultProtocolViolation, true
	}
}

func (h *Handler) handleRegister(ctx context.Context, conn *Conn, req wire.Request) string {
	deposit := h.registry.InitialBalance()
	if req.HasAmount {
		deposit = req.Amount
	}

	if err := h.registry.Register(ctx, req.Username, deposit); err != nil {
		label := "invalid"
		if errors.Is(err, domain.ErrDuplicateUser) {
			label = "duplicate"
		}
		h.metrics.RecordRegistration(label)
		h.logger.Info("registration rejected", "username", req.Username, "error", err)
		_ = wire.WriteLine(conn.bw, wire.ReplyFail)
		return resultFail
	}

	h.metrics.RecordRegistration(resultOK)
	h.logger.Info("user registered", "username", req.Username, "deposit", deposit)
	_ = wire.WriteLine(conn.bw, wire.ReplyOK)
	return resultOK
}

func (h *Handler) handleList(ctx context.Context, conn *Conn) string {
	st := conn.GetState()
	if !st.Bound() {
		_ = wire.WriteLine(conn.bw, wire.ReplyAuthRequired)
		return resultAuthRequired
	}

	snap, err := h.registry.Snapshot(ctx, st.Username)
	if err != nil {
		h.logger.Error("snapshot failed", "username", st.Username, "error", err)
		_ = wire.WriteLine(conn.bw, wire.ReplyFail)
		return resultFail
	}
	_ = wire.WriteSnapshot(conn.bw, snap)
	return resultOK
}

func (h *Handler) handleTransaction(ctx context.Context, conn *Conn, req wire.Request) string {
	st := conn.GetState()
	if !st.Bound() {
		h.metrics.RecordTransferRejected("not_authenticated")
		_ = wire.WriteLine(conn.bw, wire.TransactionFailed(wire.ReasonNotAuthenticated))
		return resultAuthRequired
	}

	err := h.registry.Transfer(ctx, req.Sender, req.Receiver, req.Amount)
	if err != nil {
		reason, label := wire.ReasonInvalidFormat, "invalid_format"
		switch {
		case errors.Is(err, domain.ErrUnknownUser):
			reason, label = wire.ReasonInvalidUsers, "invalid_users"
		case errors.Is(err, domain.ErrInsufficientFunds):
			reason, label = wire.ReasonInsufficient, "insufficient"
		case errors.Is(err, domain.ErrInvalidAmount):
			reason, label = wire.ReasonInvalidAmount, "invalid_amount"
		}
		h.metrics.RecordTransferRejected(label)
		h.logger.Info("transaction rejected",
			"reporter", st.Username,
			"sender", req.Sender,
			"receiver", req.Receiver,
			"amount", req.Amount,
			"reason", reason)
		_ = wire.WriteLine(conn.bw, wire.TransactionFailed(reason))
		return resultFail
	}

	h.metrics.RecordTransfer(req.Amount)
	h.logger.Info("transaction settled",
		"reporter", st.Username,
		"sender", req.Sender,
		"receiver", req.Receiver,
		"amount", req.Amount)
	_ = wire.WriteLine(conn.bw, wire.ReplyTransactionOK)
	return resultOK
}

func (h *Handler) handleExit(ctx context.Context, conn *Conn) (string, bool) {
	st := conn.GetState()
	if !st.Bound() {
		_ = wire.WriteLine(conn.bw, wire.ReplyAuthRequired)
		return resultAuthRequired, false
	}

	h.release(ctx, conn)
	_ = wire.WriteLine(conn.bw, wire.ReplyBye)
	return resultOK, true
}

func (h *Handler) handleLogin(ctx context.Context, conn *Conn, req wire.Request) (string, bool) {
	if err := domain.ValidatePort(req.Port); err != nil {
		h.logger.Warn("protocol violation", "remote", conn.RemoteAddr(), "error", err)
		h.metrics.RecordLogin(resultProtocolViolation)
		return resultProtocolViolation, true
	}

	// Logging in again on a bound session releases the previous binding.
	if conn.GetState().Bound() {
		h.release(ctx, conn)
	}

	st := conn.GetState()
	snap, err := h.registry.Login(ctx, req.Username, conn.Host(), req.Port, st.SessionID)
	if err != nil {
		h.metrics.RecordLogin(resultAuthFail)
		h.logger.Info("login rejected", "username", req.Username, "remote", conn.RemoteAddr(), "error", err)
		_ = wire.WriteLine(conn.bw, wire.ReplyAuthFail)
		return resultAuthFail, true
	}

	st.Username = req.Username
	conn.SetState(st)

	h.metrics.RecordLogin(resultOK)
	h.logger.Info("user logged in",
		"username", req.Username,
		"host", conn.Host(),
		"port", req.Port,
		"session_id", st.SessionID)
	_ = wire.WriteSnapshot(conn.bw, snap)
	return resultOK, false
}

// Teardown releases the connection's binding. The server calls it on
// every exit from the read loop.
func (h *Handler) Teardown(ctx context.Context, conn *Conn) {
	if conn.GetState().Bound() {
		h.release(ctx, conn)
	}
}

func (h *Handler) release(ctx context.Context, conn *Conn) {
	st := conn.GetState()
	if h.registry.Logout(ctx, st.Username, st.SessionID) {
		h.logger.Info("user logged out", "username", st.Username, "session_id", st.SessionID)
	}
	st.Username = ""
	conn.SetState(st)
}
