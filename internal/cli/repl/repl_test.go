package repl

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/micropay-go/internal/cli/output"
	"github.com/yndnr/micropay-go/internal/client"
	"github.com/yndnr/micropay-go/internal/core/domain"
)

// fakeWallet records calls and serves canned results.
type fakeWallet struct {
	mu       sync.Mutex
	calls    []string
	user     string
	balance  int64
	peers    []domain.DirectoryEntry
	pending  []client.PendingCredit
	failed   []client.PendingCredit
	loginErr error
	xferErr  error
	logouts  int
}

func (f *fakeWallet) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeWallet) snapshot() *domain.Snapshot {
	return &domain.Snapshot{Balance: f.balance, PublicKey: "KEY", Online: f.peers}
}

func (f *fakeWallet) Register(_ context.Context, username string, deposit int64) error {
	f.record("register " + username + " " + itoa(deposit))
	return nil
}

func (f *fakeWallet) Login(_ context.Context, username string) (*domain.Snapshot, error) {
	f.record("login " + username)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.user = username
	return f.snapshot(), nil
}

func (f *fakeWallet) List(context.Context) (*domain.Snapshot, error) {
	f.record("list")
	if f.user == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return f.snapshot(), nil
}

func (f *fakeWallet) TransferAndRefresh(_ context.Context, to string, amount int64) (*domain.Snapshot, error) {
	f.record("transfer " + to + " " + itoa(amount))
	if f.xferErr != nil {
		return nil, f.xferErr
	}
	f.balance -= amount
	return f.snapshot(), nil
}

func (f *fakeWallet) Logout(context.Context) error {
	f.record("logout")
	f.logouts++
	f.user = ""
	return nil
}

func (f *fakeWallet) Username() string                { return f.user }
func (f *fakeWallet) Balance() int64                  { return f.balance }
func (f *fakeWallet) Peers() []domain.DirectoryEntry  { return f.peers }
func (f *fakeWallet) Pending() []client.PendingCredit { return f.pending }

func (f *fakeWallet) FailedCredits() []client.PendingCredit { return f.failed }

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func run(t *testing.T, w *fakeWallet, input string, opts ...Option) string {
	t.Helper()
	out := &bytes.Buffer{}
	opts = append([]Option{WithIO(strings.NewReader(input), out)}, opts...)
	r := New(w, opts...)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return out.String()
}

func TestREPL_ExitAndEOF(t *testing.T) {
	for _, input := range []string{"exit\n", "quit\n", "", "\n\n"} {
		w := &fakeWallet{}
		out := run(t, w, input)
		if !strings.Contains(out, "Bye.") {
			t.Errorf("input %q: output missing Bye: %q", input, out)
		}
		if w.logouts != 0 {
			t.Errorf("input %q: logged out a wallet that was not logged in", input)
		}
	}
}

func TestREPL_ExitLogsOut(t *testing.T) {
	w := &fakeWallet{balance: 10000}
	run(t, w, "login alice\nexit\nlist\n")

	want := []string{"login alice", "logout"}
	if strings.Join(w.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", w.calls, want)
	}
}

func TestREPL_Session(t *testing.T) {
	w := &fakeWallet{
		balance: 10000,
		peers: []domain.DirectoryEntry{
			{Username: "alice", Host: "127.0.0.1", Port: 9001},
			{Username: "bob", Host: "127.0.0.1", Port: 9002},
		},
	}
	out := run(t, w, "register alice 500\nregister carol\nlogin alice\ntransfer bob 300\nbalance\npeers\n")

	wantCalls := []string{"register alice 500", "register carol -1", "login alice", "transfer bob 300", "logout"}
	if strings.Join(w.calls, ",") != strings.Join(wantCalls, ",") {
		t.Errorf("calls = %v, want %v", w.calls, wantCalls)
	}
	for _, want := range []string{
		"Registered alice.",
		"Logged in as alice.",
		"USER", "bob", "9002",
		"Sent 300 to bob.",
		"balance 9700",
		"alice: 9700",
		"127.0.0.1:9001",
		"micropay(alice)> ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestREPL_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown with suggestion", "tranfer bob 1\n", `did you mean "transfer"`},
		{"unknown without suggestion", "xyzzyplugh\n", "type 'help'"},
		{"login usage", "login\n", "usage: login <user>"},
		{"transfer usage", "transfer bob\n", "usage: transfer <user> <amount>"},
		{"transfer bad amount", "transfer bob ten\n", "ten"},
		{"register bad amount", "register alice -5\n", "-5"},
		{"list logged out", "list\n", domain.ErrNotAuthenticated.Message},
		{"balance logged out", "balance\n", domain.ErrNotAuthenticated.Message},
		{"pending usage", "pending all\n", "usage: pending [failed]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(t, &fakeWallet{}, tt.input)
			if !strings.Contains(out, "Error: ") || !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want error containing %q", out, tt.want)
			}
		})
	}
}

func TestREPL_TransferRefreshFailure(t *testing.T) {
	w := &fakeWallet{xferErr: &client.RefreshError{Err: domain.ErrConnectionLost}}
	out := run(t, w, "login alice\ntransfer bob 5\n")
	if !strings.Contains(out, "Sent 5 to bob.") || !strings.Contains(out, "refresh after transfer") {
		t.Errorf("output = %q", out)
	}

	w = &fakeWallet{xferErr: domain.ErrPeerNotFound}
	out = run(t, w, "login alice\ntransfer bob 5\n")
	if strings.Contains(out, "Sent") || !strings.Contains(out, domain.ErrPeerNotFound.Message) {
		t.Errorf("output = %q", out)
	}
}

func TestREPL_PendingFailed(t *testing.T) {
	settled := client.PendingCredit{ID: "mppd-1", Sender: "alice", Amount: 5, Status: "settled"}
	rejected := client.PendingCredit{ID: "mppd-2", Sender: "mallory", Amount: 900, Status: "failed", Error: "insufficient funds"}
	w := &fakeWallet{
		pending: []client.PendingCredit{settled, rejected},
		failed:  []client.PendingCredit{rejected},
	}

	out := run(t, w, "pending failed\n")
	if !strings.Contains(out, "mallory") || !strings.Contains(out, "insufficient funds") {
		t.Errorf("failed listing missing rejected credit:\n%s", out)
	}
	if strings.Contains(out, "mppd-1") {
		t.Errorf("failed listing shows a settled credit:\n%s", out)
	}

	out = run(t, w, "pending\n")
	if !strings.Contains(out, "mppd-1") || !strings.Contains(out, "mppd-2") {
		t.Errorf("pending listing incomplete:\n%s", out)
	}
}

func TestREPL_JSONOutput(t *testing.T) {
	w := &fakeWallet{balance: 42}
	out := run(t, w, "login alice\n", WithFormatter(output.NewFormatter(output.FormatJSON)))
	if !strings.Contains(out, `"balance": 42`) {
		t.Errorf("json output = %q", out)
	}
}

func TestREPL_History(t *testing.T) {
	h := NewHistory("", 10)
	out := run(t, &fakeWallet{}, "  help  \nhelp\npending\nhistory\n", WithHistory(h))

	want := []string{"help", "pending", "history"}
	if got := h.Entries(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("history = %v, want %v", got, want)
	}
	if !strings.Contains(out, "   2  pending") {
		t.Errorf("history listing missing:\n%s", out)
	}
	if !strings.Contains(out, "No incoming transfers.") {
		t.Errorf("pending output missing:\n%s", out)
	}
}

func TestREPL_ContextCancel(t *testing.T) {
	w := &fakeWallet{}
	r := New(w, WithIO(blockingReader{}, &bytes.Buffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}

func TestREPL_Notify(t *testing.T) {
	receipt := domain.TransferReceipt{Sender: "bob", Amount: 250, Receiver: "alice"}
	tests := []struct {
		ev   client.Event
		want string
	}{
		{client.Event{Kind: client.EventCreditSettled, Receipt: receipt, Balance: 10250}, "Received 250 from bob (balance 10250)"},
		{client.Event{Kind: client.EventCreditFailed, Receipt: receipt, Balance: 10250, Err: errors.New("boom")}, "server did not confirm: boom"},
		{client.Event{Kind: client.EventReceiptDropped, Receipt: receipt, Err: errors.New("not for us")}, "Ignored transfer from bob: not for us"},
	}
	for _, tt := range tests {
		out := &bytes.Buffer{}
		r := New(&fakeWallet{user: "alice"}, WithIO(strings.NewReader(""), out))
		r.Notify(tt.ev)
		if !strings.Contains(out.String(), tt.want) {
			t.Errorf("Notify() output = %q, want %q", out.String(), tt.want)
		}
		if !strings.HasSuffix(out.String(), "micropay(alice)> ") {
			t.Errorf("Notify() should reprint the prompt, got %q", out.String())
		}
	}
}

func TestREPL_LoginFailure(t *testing.T) {
	w := &fakeWallet{loginErr: domain.ErrUnknownUser}
	out := run(t, w, "login ghost\n")
	if !strings.Contains(out, "Error: "+domain.ErrUnknownUser.Error()) {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "micropay(ghost)") || w.logouts != 0 {
		t.Errorf("failed login should leave the shell logged out")
	}
}
