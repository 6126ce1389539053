// Package wire implements the micropay line protocol.
//
// Every message is one CRLF-terminated line whose fields are separated
// by '#'. The same codec serves three conversations:
//
//   - client to directory server: REGISTER, login, List, TRANSACTION, Exit
//   - directory server to client: status replies and snapshots
//   - peer to peer: a single transfer receipt "<sender>#<amount>#<receiver>"
//
// A snapshot is the only multi-line reply: balance, public key, entry
// count, then exactly that many "<user>#<host>#<port>" lines.
package wire
