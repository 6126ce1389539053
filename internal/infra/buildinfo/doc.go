// Package buildinfo exposes version information for the micropay
// binaries, injected at build time via ldflags.
package buildinfo
