// Package directoryserver provides the micropay directory server.
//
// The server speaks the line protocol from internal/protocol/wire over
// plain TCP. Each accepted connection gets its own goroutine and a Conn
// carrying the connection's session binding; every handler shares one
// account registry.
//
// Supported requests:
//   - REGISTER#<user>[#<deposit>]
//   - <user>#<port> (login)
//   - List
//   - TRANSACTION#<sender>#<receiver>#<amount>
//   - Exit
//
// Whenever a connection ends, for any reason, the user bound to it is
// marked offline unless a newer session has already taken over.
package directoryserver
