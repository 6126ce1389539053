package client

import (
	"sync"

	"github.com/yndnr/micropay-go/internal/core/domain"
)

// Directory is the wallet's cached view of online peers. It is replaced
// wholesale by every snapshot; readers never see a half-applied update.
type Directory struct {
	mu      sync.RWMutex
	entries map[string]domain.DirectoryEntry
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{entries: make(map[string]domain.DirectoryEntry)}
}

// Replace swaps in a new set of entries.
func (d *Directory) Replace(entries []domain.DirectoryEntry) {
	next := make(map[string]domain.DirectoryEntry, len(entries))
	for _, e := range entries {
		next[e.Username] = e
	}

	d.mu.Lock()
	d.entries = next
	d.mu.Unlock()
}

// Lookup returns the entry for username.
func (d *Directory) Lookup(username string) (domain.DirectoryEntry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[username]
	return e, ok
}

// Entries returns the entries sorted by username.
func (d *Directory) Entries() []domain.DirectoryEntry {
	d.mu.RLock()
	out := make([]domain.DirectoryEntry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e)
	}
	d.mu.RUnlock()

	domain.SortEntries(out)
	return out
}

// Len returns the number of online peers.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}
