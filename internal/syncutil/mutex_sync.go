//go:build !deadlock

// Package syncutil provides the locks used by the reader and the PN532
// device. Plain sync types are used by default; build with -tags=deadlock
// to swap in github.com/sasha-s/go-deadlock when chasing a hung bus.
package syncutil

import "sync"

// Mutex guards exclusive sections such as a PN532 command exchange.
//
//nolint:gocritic // embedding exposes Lock/Unlock directly
type Mutex struct {
	sync.Mutex
}

// RWMutex guards state that is read far more often than written, such as
// the debug logger.
//
//nolint:gocritic // embedding exposes the full RWMutex API
type RWMutex struct {
	sync.RWMutex
}
