package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "alice", false},
		{"with digits", "bob42", false},
		{"max length", strings.Repeat("a", MaxUsernameLength), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxUsernameLength+1), true},
		{"contains separator", "al#ice", true},
		{"contains CR", "al\rice", true},
		{"contains LF", "al\nice", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateUsername(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error should be ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestValidatePort(t *testing.T) {
	for _, p := range []int{1, 8888, 65535} {
		if err := ValidatePort(p); err != nil {
			t.Errorf("ValidatePort(%d) = %v", p, err)
		}
	}
	for _, p := range []int{-1, 0, 65536} {
		if err := ValidatePort(p); err == nil {
			t.Errorf("ValidatePort(%d) should fail", p)
		}
	}
}

func TestAccount_Entry(t *testing.T) {
	a := &Account{Username: "alice", Balance: 10, Online: true, Host: "10.0.0.5", Port: 9001}
	e := a.Entry()
	if e.Username != "alice" || e.Host != "10.0.0.5" || e.Port != 9001 {
		t.Errorf("Entry() = %+v", e)
	}
	if got := e.Addr(); got != "10.0.0.5:9001" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestDirectoryEntry_AddrIPv6(t *testing.T) {
	e := DirectoryEntry{Username: "bob", Host: "::1", Port: 9002}
	if got := e.Addr(); got != "[::1]:9002" {
		t.Errorf("Addr() = %q, want %q", got, "[::1]:9002")
	}
}

func TestSnapshot_SortAndLookup(t *testing.T) {
	s := &Snapshot{
		Balance: 100,
		Online: []DirectoryEntry{
			{Username: "carol", Host: "h", Port: 3},
			{Username: "alice", Host: "h", Port: 1},
			{Username: "bob", Host: "h", Port: 2},
		},
	}
	SortEntries(s.Online)

	want := []string{"alice", "bob", "carol"}
	for i, e := range s.Online {
		if e.Username != want[i] {
			t.Errorf("Online[%d] = %q, want %q", i, e.Username, want[i])
		}
	}

	if e, ok := s.Lookup("bob"); !ok || e.Port != 2 {
		t.Errorf("Lookup(bob) = %+v, %v", e, ok)
	}
	if _, ok := s.Lookup("dave"); ok {
		t.Error("Lookup(dave) should miss")
	}
}
