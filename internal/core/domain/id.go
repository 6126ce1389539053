package domain

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID prefixes. Each ID is prefix + lowercase ULID (26 chars).
const (
	SessionIDPrefix     = "mpss-"
	TransactionIDPrefix = "mptx-"
	PendingIDPrefix     = "mppd-"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newID(prefix string) (string, error) {
	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return prefix + strings.ToLower(id.String()), nil
}

// GenerateSessionID returns an ID for one accepted server connection.
func GenerateSessionID() (string, error) {
	return newID(SessionIDPrefix)
}

// GenerateTransactionID returns a journal key for a settled transfer.
func GenerateTransactionID() (string, error) {
	return newID(TransactionIDPrefix)
}

// GeneratePendingID returns an ID for a client-side pending credit.
func GeneratePendingID() (string, error) {
	return newID(PendingIDPrefix)
}

// HasIDPrefix reports whether id has the prefix and a 26 character ULID body.
func HasIDPrefix(id, prefix string) bool {
	if !strings.HasPrefix(id, prefix) || len(id) != len(prefix)+ulid.EncodedSize {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(id[len(prefix):]))
	return err == nil
}
