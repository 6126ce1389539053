package client

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/yndnr/micropay-go/internal/core/domain"
	"github.com/yndnr/micropay-go/internal/protocol/wire"
)

// ReceiptHandler is called once for every well-formed receipt a peer
// sends.
type ReceiptHandler func(ctx context.Context, r domain.TransferReceipt)

// Listener accepts peer connections, each carrying exactly one transfer
// receipt. Nothing is written back to the sending peer.
type Listener struct {
	ln      net.Listener
	handler ReceiptHandler
	logger  *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
	wg      sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// Listen binds addr. Accepting starts with Start so the port is known
// (and can be advertised at login) before any receipt arrives.
func Listen(addr string, handler ReceiptHandler, logger *slog.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		ln:      ln,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		conns:   make(map[net.Conn]struct{}),
	}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Port returns the bound TCP port.
func (l *Listener) Port() int {
	if a, ok := l.ln.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	_, port, _ := net.SplitHostPort(l.ln.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// Start begins accepting in the background.
func (l *Listener) Start() {
	if !l.running.CompareAndSwap(false, true) {
		return
	}
	l.logger.Debug("peer listener started", "address", l.ln.Addr().String())

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.acceptLoop()
	}()
}

// Close stops accepting, closes in-flight peer connections and waits
// for every worker to return.
func (l *Listener) Close() error {
	l.running.Store(false)
	l.cancel()

	err := l.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}

	l.connMu.Lock()
	for c := range l.conns {
		_ = c.Close()
	}
	l.connMu.Unlock()

	l.wg.Wait()
	return err
}

func (l *Listener) acceptLoop() {
	for {
		c, err := l.ln.Accept()
		if err != nil {
			if l.running.Load() && !errors.Is(err, net.ErrClosed) {
				l.logger.Error("peer accept error", "error", err)
			}
			return
		}
		if !l.track(c) {
			_ = c.Close()
			return
		}

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer l.untrack(c)
			l.serve(c)
		}()
	}
}

func (l *Listener) track(c net.Conn) bool {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if !l.running.Load() {
		return false
	}
	l.conns[c] = struct{}{}
	return true
}

func (l *Listener) untrack(c net.Conn) {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	delete(l.conns, c)
}

func (l *Listener) serve(c net.Conn) {
	defer c.Close()

	line, err := wire.ReadLine(bufio.NewReaderSize(c, wire.MaxLineLen))
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			l.logger.Warn("peer read failed", "remote", c.RemoteAddr().String(), "error", err)
		}
		return
	}

	receipt, err := wire.DecodeReceipt(line)
	if err != nil {
		l.logger.Warn("malformed transfer receipt", "remote", c.RemoteAddr().String(), "error", err)
		return
	}
	l.handler(l.ctx, receipt)
}
