// Package shutdown coordinates graceful process termination.
//
// Hooks are registered as components start and run in reverse order
// once SIGINT/SIGTERM arrives, the parent context ends, or Trigger is
// called, all under a single timeout.
package shutdown
