package domain

import (
	"net"
	"strconv"
	"strings"
)

// Account constraints.
const (
	// MaxUsernameLength bounds usernames so a full directory line stays well
	// under the wire line limit.
	MaxUsernameLength = 64

	// DefaultInitialBalance is credited when registration omits a deposit.
	DefaultInitialBalance int64 = 10000

	// FieldSeparator separates fields in every wire message.
	FieldSeparator = "#"
)

// Account is the server-side record of a registered user.
//
// Balance is authoritative on the server. Online, Host, Port and
// SessionID describe the current presence binding and are meaningless
// while Online is false.
type Account struct {
	Username  string `json:"username"`
	Balance   int64  `json:"balance"`
	Online    bool   `json:"online"`
	Host      string `json:"host,omitempty"`
	Port      int    `json:"port,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Entry returns the directory entry advertised for this account.
func (a *Account) Entry() DirectoryEntry {
	return DirectoryEntry{Username: a.Username, Host: a.Host, Port: a.Port}
}

// ValidateUsername checks that a username can travel inside a '#'-delimited
// line without ambiguity.
func ValidateUsername(username string) error {
	if username == "" {
		return ErrInvalidArgument.WithDetails("username is required")
	}
	if len(username) > MaxUsernameLength {
		return ErrInvalidArgument.WithDetails("username exceeds 64 characters")
	}
	if strings.ContainsAny(username, "#\r\n") {
		return ErrInvalidArgument.WithDetails("username contains a reserved character")
	}
	return nil
}

// ValidatePort checks that port is a usable TCP port.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return ErrInvalidArgument.WithDetails("port out of range: " + strconv.Itoa(port))
	}
	return nil
}

// DirectoryEntry is one online peer as published by the server.
type DirectoryEntry struct {
	Username string `json:"username" yaml:"username"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
}

// Addr returns the dialable host:port of the peer.
func (e DirectoryEntry) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}
