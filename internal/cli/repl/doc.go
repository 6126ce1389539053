// Package repl provides the interactive shell of micropay-client.
//
// One shell drives one wallet: register, login, list, transfer and
// logout run against the directory server, while incoming transfers are
// printed as they arrive.
package repl
