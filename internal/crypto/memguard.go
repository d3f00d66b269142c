//go:build linux || darwin

package crypto

import "golang.org/x/sys/unix"

// Pin the master key's pages so they never hit swap.
func lockMemory(b []byte) error   { return unix.Mlock(b) }
func unlockMemory(b []byte) error { return unix.Munlock(b) }
