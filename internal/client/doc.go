// Package client implements the micropay wallet.
//
// A wallet plays two roles at once. It is a protocol client holding one
// persistent Session with the directory server, and it is a protocol
// server: its Listener accepts transfer receipts from other peers, while
// its Initiator dials those peers to send receipts of its own.
//
// Incoming transfers are credited optimistically and reported to the
// server. Every credit is tracked as a PendingCredit until the server
// answers; the next snapshot replaces the cached balance with the
// authoritative one.
package client
