// Package domain defines the core domain models for micropay.
//
// Domain models are plain value objects without IO dependencies.
// This package contains:
//
//   - Account: server-side account record (balance, presence, address)
//   - DirectoryEntry / Snapshot: the online-peer view published by the server
//   - TransferReceipt / TransactionReport: peer-to-peer and reconciliation payloads
//   - Errors: the coded error taxonomy shared by server and client
package domain
