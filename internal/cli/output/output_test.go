package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/micropay-go/internal/client"
	"github.com/yndnr/micropay-go/internal/core/domain"
)

func sampleSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Balance:   9500,
		PublicKey: "PK",
		Online: []domain.DirectoryEntry{
			{Username: "alice", Host: "127.0.0.1", Port: 9001},
			{Username: "bob", Host: "10.0.0.2", Port: 9002},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"", FormatTable, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("json format should give JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML).(*YAMLFormatter); !ok {
		t.Error("yaml format should give YAMLFormatter")
	}
	if _, ok := NewFormatter("other").(*TableFormatter); !ok {
		t.Error("unknown format should default to TableFormatter")
	}
}

func TestTableFormatter_Snapshot(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatTable).Format(&buf, SnapshotView{Username: "alice", Snapshot: sampleSnapshot()}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Account alice", "balance 9500", "server key PK", "USER", "bob", "10.0.0.2", "9002"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTableFormatter_EmptyViews(t *testing.T) {
	tests := []struct {
		name string
		data Tabular
		want string
	}{
		{"peers", PeersView(nil), "No users online."},
		{"pending", PendingView(nil), "No incoming transfers."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := (&TableFormatter{}).Format(&buf, tt.data); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if strings.TrimSpace(buf.String()) != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestTableFormatter_Pending(t *testing.T) {
	view := PendingView{{
		ID:         "mppd-1",
		Sender:     "alice",
		Amount:     500,
		ReceivedAt: time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC),
		Status:     "failed",
		Error:      "insufficient funds",
	}}

	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, view); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"mppd-1", "alice", "500", "failed", "12:30:00", "insufficient funds"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTable_RenderAlignsAndDashesEmpty(t *testing.T) {
	tbl := &Table{Headers: []string{"A", "LONGER"}}
	tbl.AddRow("x", "")
	tbl.AddRow("yyyy", "z")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if lines[1] != "x     -" {
		t.Errorf("row 1 = %q, want %q", lines[1], "x     -")
	}
}

func TestTableFormatter_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{NoHeaders: true}
	if err := f.Format(&buf, PeersView(sampleSnapshot().Online)); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if strings.Contains(buf.String(), "USER") {
		t.Error("headers should be omitted")
	}
}

func TestTableFormatter_FallbackJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, map[string]int{"n": 1}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"n": 1`) {
		t.Errorf("fallback output = %q", buf.String())
	}
}

func TestJSONFormatter_UnwrapsViews(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, SnapshotView{Username: "alice", Snapshot: sampleSnapshot()}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"balance": 9500`, `"public_key": "PK"`, `"username": "bob"`} {
		if !strings.Contains(out, want) {
			t.Errorf("json missing %q:\n%s", want, out)
		}
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	view := PendingView{client.PendingCredit{ID: "mppd-1", Sender: "alice", Amount: 5, Status: "settled"}}
	if err := (&YAMLFormatter{}).Format(&buf, view); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"- id: mppd-1", "  sender: alice", "  amount: 5", "  status: settled"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml missing %q:\n%s", want, out)
		}
	}
}
