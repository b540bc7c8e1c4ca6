//go:build deadlock

// Package syncutil provides the locks used by the reader and the PN532
// device, here backed by github.com/sasha-s/go-deadlock.
package syncutil

import deadlock "github.com/sasha-s/go-deadlock"

// Mutex guards exclusive sections and reports lock-order inversions and
// long waits.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is the deadlock-detecting counterpart of sync.RWMutex.
type RWMutex struct {
	deadlock.RWMutex
}
