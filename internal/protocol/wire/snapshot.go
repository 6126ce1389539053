package wire

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/yndnr/micropay-go/internal/core/domain"
)

// MaxSnapshotEntries bounds the entry count a reader will accept.
const MaxSnapshotEntries = 1 << 16

// WriteSnapshot writes a snapshot reply. The caller flushes.
func WriteSnapshot(w *bufio.Writer, s *domain.Snapshot) error {
	if err := WriteLine(w, strconv.FormatInt(s.Balance, 10)); err != nil {
		return err
	}
	if err := WriteLine(w, s.PublicKey); err != nil {
		return err
	}
	if err := WriteLine(w, strconv.Itoa(len(s.Online))); err != nil {
		return err
	}
	for _, e := range s.Online {
		if err := WriteLine(w, EncodeEntry(e)); err != nil {
			return err
		}
	}
	return nil
}

// EncodeSnapshot renders a snapshot as it appears on the wire.
func EncodeSnapshot(s *domain.Snapshot) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(s.Balance, 10) + CRLF)
	b.WriteString(s.PublicKey + CRLF)
	b.WriteString(strconv.Itoa(len(s.Online)) + CRLF)
	for _, e := range s.Online {
		b.WriteString(EncodeEntry(e) + CRLF)
	}
	return b.String()
}

// EncodeEntry renders one directory entry line.
func EncodeEntry(e domain.DirectoryEntry) string {
	return e.Username + sep + e.Host + sep + strconv.Itoa(e.Port)
}

// ReadSnapshot reads exactly one snapshot from r. It never returns a
// partial snapshot: any malformed field fails the whole read.
func ReadSnapshot(r *bufio.Reader) (*domain.Snapshot, error) {
	return readSnapshot(r.Peek, func() (string, error) { return ReadLine(r) }, false)
}

// DecodeSnapshot parses a complete snapshot payload. Unlike ReadSnapshot
// it also rejects trailing data after the last entry.
func DecodeSnapshot(payload string) (*domain.Snapshot, error) {
	r := bufio.NewReaderSize(strings.NewReader(payload), MaxLineLen)
	s, err := readSnapshot(r.Peek, func() (string, error) { return ReadLine(r) }, true)
	if err != nil {
		return nil, shortSnapshot(err)
	}
	return s, nil
}

// FirstLineIsStatus reports whether a reply line is a status reply rather
// than the first line of a snapshot.
func FirstLineIsStatus(line string) bool {
	_, err := strconv.ParseInt(line, 10, 64)
	return err != nil
}

func readSnapshot(peek func(int) ([]byte, error), next func() (string, error), strict bool) (*domain.Snapshot, error) {
	line, err := next()
	if err != nil {
		return nil, err
	}
	return readSnapshotAfter(line, peek, next, strict)
}

// ReadSnapshotAfter finishes reading a snapshot whose balance line has
// already been consumed.
func ReadSnapshotAfter(first string, r *bufio.Reader) (*domain.Snapshot, error) {
	return readSnapshotAfter(first, r.Peek, func() (string, error) { return ReadLine(r) }, false)
}

func readSnapshotAfter(first string, peek func(int) ([]byte, error), next func() (string, error), strict bool) (*domain.Snapshot, error) {
	balance, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid snapshot balance %q", ErrProtocol, first)
	}

	pubkey, err := next()
	if err != nil {
		return nil, shortSnapshot(err)
	}

	countLine, err := next()
	if err != nil {
		return nil, shortSnapshot(err)
	}
	n, err := strconv.Atoi(countLine)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid snapshot count %q", ErrProtocol, countLine)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative snapshot count %d", ErrProtocol, n)
	}
	if n > MaxSnapshotEntries {
		return nil, fmt.Errorf("%w: snapshot count %d exceeds limit %d", ErrLimitExceeded, n, MaxSnapshotEntries)
	}

	s := &domain.Snapshot{
		Balance:   balance,
		PublicKey: pubkey,
		Online:    make([]domain.DirectoryEntry, 0, n),
	}
	for i := 0; i < n; i++ {
		line, err := next()
		if err != nil {
			return nil, shortSnapshot(err)
		}
		e, err := DecodeEntry(line)
		if err != nil {
			return nil, err
		}
		s.Online = append(s.Online, e)
	}

	if strict {
		if b, _ := peek(1); len(b) > 0 {
			return nil, fmt.Errorf("%w: trailing data after snapshot", ErrProtocol)
		}
	}
	return s, nil
}

// DecodeEntry parses one "<user>#<host>#<port>" line.
func DecodeEntry(line string) (domain.DirectoryEntry, error) {
	parts := strings.Split(line, sep)
	if len(parts) != 3 {
		return domain.DirectoryEntry{}, fmt.Errorf("%w: entry expects 3 fields, got %d", ErrProtocol, len(parts))
	}
	port, err := strconv.Atoi(parts[2])
	if err != nil {
		return domain.DirectoryEntry{}, fmt.Errorf("%w: invalid entry port %q", ErrProtocol, parts[2])
	}
	return domain.DirectoryEntry{Username: parts[0], Host: parts[1], Port: port}, nil
}

func shortSnapshot(err error) error {
	if IsProtocolError(err) {
		return err
	}
	return fmt.Errorf("%w: short snapshot: %v", ErrProtocol, err)
}
