package domain

import "sort"

// Snapshot is what the server returns on login and List: the caller's
// balance, the server public key, and every online account.
type Snapshot struct {
	Balance   int64            `json:"balance" yaml:"balance"`
	PublicKey string           `json:"public_key" yaml:"public_key"`
	Online    []DirectoryEntry `json:"online" yaml:"online"`
}

// SortEntries orders entries by username so snapshots are deterministic.
func SortEntries(entries []DirectoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Username < entries[j].Username
	})
}

// Lookup returns the entry for username, if present.
func (s *Snapshot) Lookup(username string) (DirectoryEntry, bool) {
	for _, e := range s.Online {
		if e.Username == username {
			return e, true
		}
	}
	return DirectoryEntry{}, false
}
