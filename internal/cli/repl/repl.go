package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/micropay-go/internal/cli/output"
	"github.com/yndnr/micropay-go/internal/client"
	"github.com/yndnr/micropay-go/internal/core/domain"
)

// Wallet is the part of client.Wallet the shell drives.
type Wallet interface {
	Register(ctx context.Context, username string, deposit int64) error
	Login(ctx context.Context, username string) (*domain.Snapshot, error)
	List(ctx context.Context) (*domain.Snapshot, error)
	TransferAndRefresh(ctx context.Context, to string, amount int64) (*domain.Snapshot, error)
	Logout(ctx context.Context) error
	Username() string
	Balance() int64
	Peers() []domain.DirectoryEntry
	Pending() []client.PendingCredit
	FailedCredits() []client.PendingCredit
}

// errExit ends the loop.
var errExit = errors.New("exit")

// REPL is the interactive shell.
type REPL struct {
	wallet    Wallet
	input     io.Reader
	formatter output.Formatter
	timeout   time.Duration
	completer *Completer
	history   *History

	outMu  sync.Mutex
	output io.Writer
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.output = out
	}
}

// WithFormatter sets the result formatter.
func WithFormatter(f output.Formatter) Option {
	return func(r *REPL) { r.formatter = f }
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) { r.history = h }
}

// WithTimeout bounds every server exchange. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(r *REPL) { r.timeout = d }
}

// New creates a shell over wallet.
func New(wallet Wallet, opts ...Option) *REPL {
	r := &REPL{
		wallet:    wallet,
		input:     os.Stdin,
		output:    os.Stdout,
		formatter: output.NewFormatter(output.FormatTable),
		completer: NewCompleter(),
		history:   NewHistory("", DefaultHistorySize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads commands until exit, end of input or ctx is done. A logged
// in wallet is logged out on the way out.
func (r *REPL) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		reader := bufio.NewReader(r.input)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-stop:
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	r.printf("Type 'help' for commands.\n")
	for {
		r.prompt()

		var line string
		select {
		case <-ctx.Done():
			r.printf("\n")
			return r.leave()
		case err := <-readErr:
			r.printf("\n")
			if err != io.EOF {
				_ = r.leave()
				return err
			}
			return r.leave()
		case line = <-lines:
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		err := r.execute(ctx, line)
		if errors.Is(err, errExit) {
			return r.leave()
		}
		if err != nil {
			r.printf("Error: %v\n", err)
		}
	}
}

// Notify prints an incoming transfer event. It is safe to call from the
// wallet's listener goroutines.
func (r *REPL) Notify(ev client.Event) {
	var msg string
	switch ev.Kind {
	case client.EventCreditSettled:
		msg = fmt.Sprintf("Received %d from %s (balance %d)", ev.Receipt.Amount, ev.Receipt.Sender, ev.Balance)
	case client.EventCreditFailed:
		msg = fmt.Sprintf("Received %d from %s, server did not confirm: %v (balance %d)",
			ev.Receipt.Amount, ev.Receipt.Sender, ev.Err, ev.Balance)
	case client.EventReceiptDropped:
		msg = fmt.Sprintf("Ignored transfer from %s: %v", ev.Receipt.Sender, ev.Err)
	default:
		return
	}

	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.output, "\n%s\n%s", msg, r.promptText())
}

func (r *REPL) execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	switch cmd {
	case "register":
		return r.register(ctx, args)
	case "login":
		if len(args) != 1 {
			return usage("login <user>")
		}
		snap, err := r.wallet.Login(ctx, args[0])
		if err != nil {
			return err
		}
		r.printf("Logged in as %s.\n", args[0])
		return r.show(output.SnapshotView{Username: args[0], Snapshot: snap})
	case "list":
		snap, err := r.wallet.List(ctx)
		if err != nil {
			return err
		}
		return r.show(output.SnapshotView{Username: r.wallet.Username(), Snapshot: snap})
	case "transfer":
		return r.transfer(ctx, args)
	case "pending":
		switch {
		case len(args) == 0:
			return r.show(output.PendingView(r.wallet.Pending()))
		case len(args) == 1 && strings.EqualFold(args[0], "failed"):
			return r.show(output.PendingView(r.wallet.FailedCredits()))
		default:
			return usage("pending [failed]")
		}
	case "peers":
		return r.show(output.PeersView(r.wallet.Peers()))
	case "balance":
		if r.wallet.Username() == "" {
			return domain.ErrNotAuthenticated
		}
		r.printf("%s: %d (cached, 'list' refreshes)\n", r.wallet.Username(), r.wallet.Balance())
		return nil
	case "logout":
		if err := r.wallet.Logout(ctx); err != nil {
			return err
		}
		r.printf("Logged out.\n")
		return nil
	case "history":
		for i, entry := range r.history.Entries() {
			r.printf("%4d  %s\n", i+1, entry)
		}
		return nil
	case "help", "?":
		r.help()
		return nil
	case "exit", "quit":
		return errExit
	default:
		if s := r.completer.Suggest(cmd); s != "" {
			return fmt.Errorf("unknown command %q, did you mean %q?", cmd, s)
		}
		return fmt.Errorf("unknown command %q, type 'help'", cmd)
	}
}

func (r *REPL) register(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("register <user> [amount]")
	}

	deposit := int64(-1)
	if len(args) == 2 {
		v, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || v < 0 {
			return domain.ErrInvalidAmount.WithDetails(args[1])
		}
		deposit = v
	}

	if err := r.wallet.Register(ctx, args[0], deposit); err != nil {
		return err
	}
	r.printf("Registered %s. Use 'login %s' to go online.\n", args[0], args[0])
	return nil
}

func (r *REPL) transfer(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("transfer <user> <amount>")
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return domain.ErrInvalidAmount.WithDetails(args[1])
	}

	snap, err := r.wallet.TransferAndRefresh(ctx, args[0], amount)
	var refreshErr *client.RefreshError
	if err != nil && !errors.As(err, &refreshErr) {
		return err
	}
	r.printf("Sent %d to %s.\n", amount, args[0])
	if err != nil {
		return err
	}
	return r.show(output.SnapshotView{Username: r.wallet.Username(), Snapshot: snap})
}

func (r *REPL) show(data any) error {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	return r.formatter.Format(r.output, data)
}

// leave logs out a logged in wallet and saves the history.
func (r *REPL) leave() error {
	var errs []error
	if r.wallet.Username() != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, r.wallet.Logout(ctx))
		cancel()
	}
	errs = append(errs, r.history.Save())
	r.printf("Bye.\n")
	return errors.Join(errs...)
}

func (r *REPL) help() {
	r.printf(`Commands:
  register <user> [amount]   create an account (server default deposit if omitted)
  login <user>               go online and fetch balance and peers
  list                       refresh balance and online users
  transfer <user> <amount>   pay an online user
  pending [failed]           incoming transfers and their report status
  peers                      cached online users
  balance                    cached balance
  logout                     go offline
  history                    previous commands
  exit | quit                log out and leave
`)
}

func (r *REPL) prompt() {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprint(r.output, r.promptText())
}

func (r *REPL) promptText() string {
	if u := r.wallet.Username(); u != "" {
		return "micropay(" + u + ")> "
	}
	return "micropay> "
}

func (r *REPL) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.output, format, args...)
}

func usage(s string) error {
	return domain.ErrInvalidArgument.WithDetails("usage: " + s)
}
