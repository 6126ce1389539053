// Package service provides domain services for micropay.
//
// Domain services contain pure business logic and orchestrate operations
// on domain models. They define interfaces for storage dependencies,
// allowing for dependency injection and testability.
//
// This package contains:
//
//   - Registry: the authoritative account table of the directory server
//     (registration, login presence, snapshots, transfer settlement)
//
// The Registry is owned by the server and handed to every connection
// handler; it is never a package global.
package service
