package output

import (
	"strconv"
	"time"

	"github.com/yndnr/micropay-go/internal/client"
	"github.com/yndnr/micropay-go/internal/core/domain"
)

// SnapshotView renders a snapshot as balance, key and online peers.
type SnapshotView struct {
	Username string
	Snapshot *domain.Snapshot
}

// Table implements Tabular.
func (v SnapshotView) Table() *Table {
	t := &Table{
		Title: "Account " + v.Username + "  balance " + strconv.FormatInt(v.Snapshot.Balance, 10) +
			"  server key " + v.Snapshot.PublicKey,
		Headers: []string{"USER", "HOST", "PORT"},
		Empty:   "No users online.",
	}
	for _, e := range v.Snapshot.Online {
		t.AddRow(e.Username, e.Host, strconv.Itoa(e.Port))
	}
	return t
}

// PeersView renders the cached online directory.
type PeersView []domain.DirectoryEntry

// Table implements Tabular.
func (v PeersView) Table() *Table {
	t := &Table{Headers: []string{"USER", "ADDRESS"}, Empty: "No users online."}
	for _, e := range v {
		t.AddRow(e.Username, e.Addr())
	}
	return t
}

// PendingView renders pending credit markers.
type PendingView []client.PendingCredit

// Table implements Tabular.
func (v PendingView) Table() *Table {
	t := &Table{Headers: []string{"ID", "FROM", "AMOUNT", "STATUS", "RECEIVED", "ERROR"}, Empty: "No incoming transfers."}
	for _, p := range v {
		t.AddRow(p.ID, p.Sender, strconv.FormatInt(p.Amount, 10), p.Status,
			p.ReceivedAt.Format(time.TimeOnly), p.Error)
	}
	return t
}

// unwrap returns the record behind a view for JSON and YAML output.
func unwrap(data any) any {
	switch v := data.(type) {
	case SnapshotView:
		return v.Snapshot
	case PeersView:
		return []domain.DirectoryEntry(v)
	case PendingView:
		return []client.PendingCredit(v)
	default:
		return data
	}
}
