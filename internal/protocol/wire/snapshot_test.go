package wire

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/yndnr/micropay-go/internal/core/domain"
)

func sampleSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Balance:   10000,
		PublicKey: "SERVER_PUBLIC_KEY_PLACEHOLDER",
		Online: []domain.DirectoryEntry{
			{Username: "alice", Host: "127.0.0.1", Port: 9001},
			{Username: "bob", Host: "127.0.0.1", Port: 9002},
		},
	}
}

func TestEncodeSnapshot(t *testing.T) {
	want := "10000\r\nSERVER_PUBLIC_KEY_PLACEHOLDER\r\n2\r\n" +
		"alice#127.0.0.1#9001\r\n" +
		"bob#127.0.0.1#9002\r\n"
	if got := EncodeSnapshot(sampleSnapshot()); got != want {
		t.Errorf("EncodeSnapshot() = %q, want %q", got, want)
	}
}

func TestWriteReadSnapshot(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := WriteSnapshot(w, sampleSnapshot()); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	w.Flush()

	if buf.String() != EncodeSnapshot(sampleSnapshot()) {
		t.Errorf("WriteSnapshot and EncodeSnapshot disagree: %q", buf.String())
	}

	got, err := ReadSnapshot(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	want := sampleSnapshot()
	if got.Balance != want.Balance || got.PublicKey != want.PublicKey || len(got.Online) != 2 {
		t.Fatalf("ReadSnapshot() = %+v", got)
	}
	for i := range want.Online {
		if got.Online[i] != want.Online[i] {
			t.Errorf("Online[%d] = %+v, want %+v", i, got.Online[i], want.Online[i])
		}
	}
}

func TestReadSnapshot_LeavesFollowingLines(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("5\r\nkey\r\n0\r\nBye\r\n"))
	s, err := ReadSnapshot(r)
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if s.Balance != 5 || len(s.Online) != 0 {
		t.Errorf("unexpected snapshot %+v", s)
	}
	line, err := ReadLine(r)
	if err != nil || line != "Bye" {
		t.Errorf("next line = %q, %v", line, err)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		check   func(t *testing.T, s *domain.Snapshot)
	}{
		{
			name:    "empty directory",
			payload: "10000\r\nKEY\r\n0\r\n",
			check: func(t *testing.T, s *domain.Snapshot) {
				if s.Balance != 10000 || s.PublicKey != "KEY" || len(s.Online) != 0 {
					t.Errorf("unexpected %+v", s)
				}
			},
		},
		{
			name:    "empty public key is valid",
			payload: "1\r\n\r\n1\r\nalice#h#1\r\n",
			check: func(t *testing.T, s *domain.Snapshot) {
				if s.PublicKey != "" || len(s.Online) != 1 {
					t.Errorf("unexpected %+v", s)
				}
			},
		},
		{
			name:    "negative balance is carried",
			payload: "-3\r\nKEY\r\n0\r\n",
			check: func(t *testing.T, s *domain.Snapshot) {
				if s.Balance != -3 {
					t.Errorf("Balance = %d", s.Balance)
				}
			},
		},
		{name: "count larger than entries", payload: "1\r\nKEY\r\n2\r\nalice#h#1\r\n", wantErr: true},
		{name: "count smaller than entries", payload: "1\r\nKEY\r\n1\r\nalice#h#1\r\nbob#h#2\r\n", wantErr: true},
		{name: "negative count", payload: "1\r\nKEY\r\n-1\r\n", wantErr: true},
		{name: "non-integer count", payload: "1\r\nKEY\r\nmany\r\n", wantErr: true},
		{name: "non-integer balance", payload: "rich\r\nKEY\r\n0\r\n", wantErr: true},
		{name: "non-integer port", payload: "1\r\nKEY\r\n1\r\nalice#h#p\r\n", wantErr: true},
		{name: "entry with two fields", payload: "1\r\nKEY\r\n1\r\nalice#h\r\n", wantErr: true},
		{name: "entry with four fields", payload: "1\r\nKEY\r\n1\r\nalice#h#1#x\r\n", wantErr: true},
		{name: "missing count", payload: "1\r\nKEY\r\n", wantErr: true},
		{name: "empty payload", payload: "", wantErr: true},
		{name: "LF only", payload: "1\nKEY\n0\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := DecodeSnapshot(tt.payload)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DecodeSnapshot() = %+v, want error", s)
				}
				if s != nil {
					t.Error("DecodeSnapshot() should not return a partial snapshot")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeSnapshot() error = %v", err)
			}
			tt.check(t, s)
		})
	}
}

func TestDecodeSnapshot_ErrorsAreProtocolErrors(t *testing.T) {
	for _, payload := range []string{
		"1\r\nKEY\r\n2\r\nalice#h#1\r\n",
		"1\r\nKEY\r\n-1\r\n",
		"x\r\n",
	} {
		if _, err := DecodeSnapshot(payload); !IsProtocolError(err) {
			t.Errorf("DecodeSnapshot(%q) error = %v, want protocol error", payload, err)
		}
	}
}

func TestReadSnapshotAfter(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("KEY\r\n1\r\nbob#10.0.0.2#9002\r\n"))
	s, err := ReadSnapshotAfter("42", r)
	if err != nil {
		t.Fatalf("ReadSnapshotAfter() error = %v", err)
	}
	if s.Balance != 42 || s.Online[0].Username != "bob" {
		t.Errorf("unexpected %+v", s)
	}
}

func TestFirstLineIsStatus(t *testing.T) {
	if !FirstLineIsStatus(ReplyAuthFail) {
		t.Error("AUTH_FAIL is a status line")
	}
	if FirstLineIsStatus("10000") {
		t.Error("a balance is not a status line")
	}
}

func TestDecodeEntry(t *testing.T) {
	e, err := DecodeEntry("carol#192.168.1.9#7000")
	if err != nil {
		t.Fatalf("DecodeEntry() error = %v", err)
	}
	if e.Username != "carol" || e.Host != "192.168.1.9" || e.Port != 7000 {
		t.Errorf("DecodeEntry() = %+v", e)
	}
	if EncodeEntry(e) != "carol#192.168.1.9#7000" {
		t.Errorf("EncodeEntry() = %q", EncodeEntry(e))
	}
	if _, err := DecodeEntry("carol"); !errors.Is(err, ErrProtocol) {
		t.Errorf("DecodeEntry(carol) error = %v", err)
	}
}
