// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness reactor for descriptor multiplexing. Turns
// kernel readability into callback invocations that wake cooperative
// pollers.

package reactor

// FDEventType is a bitset of readiness conditions.
type FDEventType uint32

const (
	EventRead FDEventType = 1 << iota
	EventWrite
	EventError
)

// FDCallback is invoked when a registered descriptor becomes ready.
type FDCallback func(fd uintptr, events FDEventType)

// Reactor watches registered descriptors for readiness.
type Reactor interface {
	// Register adds a descriptor with the interest set and callback.
	Register(fd uintptr, events FDEventType, cb FDCallback) error

	// Unregister removes a descriptor from the watch list.
	Unregister(fd uintptr) error

	// Poll blocks until events arrive and dispatches callbacks.
	// timeoutMs < 0 means block indefinitely.
	Poll(timeoutMs int) error

	// Close releases the reactor's resources.
	Close() error
}
