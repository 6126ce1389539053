package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	"github.com/yndnr/micropay-go/internal/core/domain"
	"github.com/yndnr/micropay-go/internal/protocol/wire"
)

// Session is the wallet's connection to the directory server.
//
// One exchange (write a request, read its complete reply) runs at a time.
// Any I/O or framing failure breaks the session: that call and every
// later one return ErrConnectionLost. Sessions never reconnect.
//
// mu serializes exchanges; stateMu guards broken only, so Close and
// Broken never wait behind an exchange stuck on a silent server.
type Session struct {
	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer

	mu sync.Mutex

	stateMu sync.Mutex
	broken  error
}

// Dial connects to the directory server at addr.
func Dial(ctx context.Context, addr string) (*Session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, domain.ErrConnectionLost.WithDetails("dial " + addr).WithCause(err)
	}
	return NewSession(conn), nil
}

// NewSession wraps an established connection.
func NewSession(conn net.Conn) *Session {
	return &Session{
		conn: conn,
		br:   bufio.NewReaderSize(conn, wire.MaxLineLen),
		bw:   bufio.NewWriter(conn),
	}
}

// Register creates an account. A negative deposit lets the server apply
// its initial balance. A refusal returns ErrRegistrationRejected; the
// reply does not say whether the name was taken.
func (s *Session) Register(ctx context.Context, username string, deposit int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.register(ctx, username, deposit)
}

// Login binds this connection to username and advertises port as the
// peer listener. An unknown user returns ErrUnknownUser; the server
// closes the connection in that case, so the session is broken after.
func (s *Session) Login(ctx context.Context, username string, port int) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login(ctx, username, port)
}

// List fetches a fresh snapshot.
func (s *Session) List(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx)
}

// ReportTransaction asks the server to settle a transfer this wallet
// received.
func (s *Session) ReportTransaction(ctx context.Context, report domain.TransactionReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report(ctx, report)
}

// Logout sends Exit. The server closes the connection after Bye, so the
// session cannot be used again.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logout(ctx)
}

// Close closes the connection. An exchange blocked on the socket fails
// with ErrConnectionLost.
func (s *Session) Close() error {
	s.setBroken(domain.ErrConnectionLost.WithDetails("session closed"))
	err := s.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// Broken reports whether the session can no longer be used.
func (s *Session) Broken() bool {
	return s.brokenErr() != nil
}

// setBroken records the first reason the session became unusable.
func (s *Session) setBroken(err error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.broken == nil {
		s.broken = err
	}
}

func (s *Session) brokenErr() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.broken
}

// Tx performs exchanges on a session whose lock is already held by
// Session.Atomic. It must not be used after the callback returns.
type Tx struct {
	s   *Session
	ctx context.Context
}

// ReportTransaction is Session.ReportTransaction without taking the lock.
func (t *Tx) ReportTransaction(report domain.TransactionReport) error {
	return t.s.report(t.ctx, report)
}

// Atomic runs fn while holding the exchange lock, so no other request
// can interleave with what fn does.
func (s *Session) Atomic(ctx context.Context, fn func(*Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&Tx{s: s, ctx: ctx})
}

func (s *Session) register(ctx context.Context, username string, deposit int64) error {
	if err := domain.ValidateUsername(username); err != nil {
		return err
	}
	reply, err := s.roundTrip(ctx, wire.EncodeRegister(username, deposit))
	if err != nil {
		return err
	}
	switch reply {
	case wire.ReplyOK:
		return nil
	case wire.ReplyFail:
		return domain.ErrRegistrationRejected.WithDetails(username)
	default:
		return s.fail(domain.ErrProtocolViolation.WithDetails("unexpected register reply: " + reply))
	}
}

func (s *Session) login(ctx context.Context, username string, port int) (*domain.Snapshot, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := domain.ValidatePort(port); err != nil {
		return nil, err
	}
	first, err := s.roundTrip(ctx, wire.EncodeLogin(username, port))
	if err != nil {
		return nil, err
	}
	if first == wire.ReplyAuthFail {
		s.setBroken(domain.ErrConnectionLost.WithDetails("closed by server after failed login"))
		return nil, domain.ErrUnknownUser
	}
	return s.snapshotAfter(first)
}

func (s *Session) list(ctx context.Context) (*domain.Snapshot, error) {
	first, err := s.roundTrip(ctx, wire.CmdList)
	if err != nil {
		return nil, err
	}
	if first == wire.ReplyAuthRequired {
		return nil, domain.ErrNotAuthenticated
	}
	return s.snapshotAfter(first)
}

func (s *Session) report(ctx context.Context, report domain.TransactionReport) error {
	reply, err := s.roundTrip(ctx, wire.EncodeReport(report))
	if err != nil {
		return err
	}
	err = wire.ParseTransactionReply(reply)
	if err != nil && !isTransactionReason(reply) {
		return s.fail(err)
	}
	return err
}

func (s *Session) logout(ctx context.Context) error {
	reply, err := s.roundTrip(ctx, wire.CmdExit)
	if err != nil {
		return err
	}
	switch reply {
	case wire.ReplyBye:
		s.setBroken(domain.ErrConnectionLost.WithDetails("logged out"))
		_ = s.conn.Close()
		return nil
	case wire.ReplyAuthRequired:
		return domain.ErrNotAuthenticated
	default:
		return s.fail(domain.ErrProtocolViolation.WithDetails("unexpected exit reply: " + reply))
	}
}

// roundTrip writes one request line and reads the first reply line.
func (s *Session) roundTrip(ctx context.Context, line string) (string, error) {
	if err := s.brokenErr(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	deadline, _ := ctx.Deadline()
	if err := s.conn.SetDeadline(deadline); err != nil {
		return "", s.fail(err)
	}

	if err := wire.WriteLine(s.bw, line); err != nil {
		if wire.IsProtocolError(err) {
			return "", domain.ErrInvalidArgument.WithCause(err)
		}
		return "", s.fail(err)
	}
	if err := s.bw.Flush(); err != nil {
		return "", s.fail(err)
	}
	return s.readLine()
}

func (s *Session) snapshotAfter(first string) (*domain.Snapshot, error) {
	if wire.FirstLineIsStatus(first) {
		return nil, s.fail(domain.ErrProtocolViolation.WithDetails("unexpected reply: " + first))
	}
	snap, err := wire.ReadSnapshotAfter(first, s.br)
	if err != nil {
		return nil, s.fail(err)
	}
	return snap, nil
}

func (s *Session) readLine() (string, error) {
	line, err := wire.ReadLine(s.br)
	if err != nil {
		return "", s.fail(err)
	}
	return line, nil
}

// fail breaks the session. Protocol errors keep their own identity for
// the current call; later calls see ErrConnectionLost.
func (s *Session) fail(err error) error {
	lost := domain.ErrConnectionLost.WithCause(err)
	s.setBroken(lost)
	_ = s.conn.Close()

	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	if wire.IsProtocolError(err) {
		return domain.ErrProtocolViolation.WithCause(err)
	}
	return lost
}

func isTransactionReason(reply string) bool {
	return reply == wire.ReplyTransactionOK || strings.HasPrefix(reply, wire.ReplyTransactionFailed)
}
