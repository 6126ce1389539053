// Package storage provides the transaction journal for micropay.
//
// The journal is an append-only audit trail of settled transfers. The
// user registry lives in memory and is never rebuilt from the journal;
// operators read it back through Scan for reconciliation and support.
//
// Engines:
//
//   - BadgerJournal: Badger v3, on disk or in Badger's in-memory mode
//   - NopJournal: used when journaling is disabled
package storage
