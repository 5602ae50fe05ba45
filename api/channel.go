// File: api/channel.go
// Package api defines the kernel notification channel contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// NotifyChannel abstracts one open kernel notification descriptor that
// emits discrete, self-describing binary records. The service loop is the
// only component that reads it; watch add/remove operations are issued
// from the same loop, never concurrently with Read.
type NotifyChannel interface {
	// AddWatch registers path for the event kinds in mask and returns
	// the kernel-assigned watch descriptor. The descriptor is unique
	// while the watch is live and may be reused after removal.
	AddWatch(path string, mask Mask) (int32, error)

	// RemoveWatch deregisters a live watch descriptor.
	RemoveWatch(wd int32) error

	// Read performs one non-blocking read of raw record bytes into buf.
	// A would-block condition is not an error: Read returns (0, nil)
	// and the caller suspends until the descriptor becomes readable.
	// Any non-nil error is fatal to the channel.
	Read(buf []byte) (int, error)

	// Fd exposes the underlying descriptor for readiness registration.
	Fd() uintptr

	// Close releases the descriptor and every watch on it.
	Close() error
}

// ChannelOpener creates notification channels on demand. The service
// opens additional channels when watches on the same inode collide.
type ChannelOpener func() (NotifyChannel, error)
