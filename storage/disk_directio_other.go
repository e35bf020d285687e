//go:build !linux

package storage

// applyDirectIO is a no-op on platforms without a direct-I/O open flag
// (e.g. Windows, macOS); portability of the core never depends on it.
func applyDirectIO(flags *int, want bool) {}
