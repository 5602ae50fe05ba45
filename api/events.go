// File: api/events.go
// Package api defines core event types for hioload-inotify.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// RawEvent is one decoded kernel notification record. It is produced by
// the record decoder, consumed by the dispatcher and never retained.
type RawEvent struct {
	WD     int32  // kernel-assigned watch descriptor
	Mask   Mask   // raw event bits
	Cookie uint32 // correlates MOVED_FROM/MOVED_TO pairs of one rename
	Name   string // child path relative to the watched dir, may be empty
}

// EventKind is the semantic classification of an event mask.
type EventKind int

const (
	KindOther EventKind = iota
	KindCreate
	KindDelete
	KindModify
	KindMoveFrom
	KindMoveTo
	KindAttrib
	KindIgnored  // the kernel dropped the watch; stream ends after this
	KindOverflow // kernel queue overflowed, some events were lost upstream
)

var kindNames = map[EventKind]string{
	KindOther:    "Other",
	KindCreate:   "Create",
	KindDelete:   "Delete",
	KindModify:   "Modify",
	KindMoveFrom: "MoveFrom",
	KindMoveTo:   "MoveTo",
	KindAttrib:   "Attrib",
	KindIgnored:  "Ignored",
	KindOverflow: "Overflow",
}

func (k EventKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Other"
}

// Event is the application-visible notification delivered on a watcher
// stream. Path is resolved against the registered path; Mask carries the
// raw bits for consumers that need more than Kind.
type Event struct {
	Path   string
	Kind   EventKind
	Mask   Mask
	Cookie uint32
}

// StreamEventType distinguishes lifecycle items from kernel notifications
// on a watcher stream.
type StreamEventType int

const (
	// Started is the first stream item after a successful registration.
	Started StreamEventType = iota

	// Restarted is produced when a watch was migrated to another
	// notification channel because its inode collided with a newer
	// watch. Events may have been lost during the migration window.
	Restarted

	// Notified carries one kernel event in the Event field.
	Notified
)

func (t StreamEventType) String() string {
	switch t {
	case Started:
		return "Started"
	case Restarted:
		return "Restarted"
	case Notified:
		return "Notified"
	}
	return "Unknown"
}

// WatcherEvent is one item of a watcher stream.
type WatcherEvent struct {
	Type  StreamEventType
	Event Event // valid only when Type == Notified
}

// DeliveryOutcome reports what the dispatcher did with one raw event.
type DeliveryOutcome int

const (
	// Delivered: the event was enqueued on the target watch queue.
	Delivered DeliveryOutcome = iota

	// DroppedNoWatch: no live watch maps to the record's descriptor.
	// This is a normal race with watch removal, never an error.
	DroppedNoWatch

	// QueueFull: the target queue is saturated; the record stays
	// pending and the read cycle stalls until the consumer drains.
	QueueFull
)

func (o DeliveryOutcome) String() string {
	switch o {
	case Delivered:
		return "Delivered"
	case DroppedNoWatch:
		return "DroppedNoWatch"
	case QueueFull:
		return "QueueFull"
	}
	return "Unknown"
}
