// Package command defines the micropay-client command line.
//
// Without a command the client opens the interactive shell. The one-shot
// commands (register, balance, transfer, peers) each open a wallet, log
// in when needed, do one thing and log out again.
package command
