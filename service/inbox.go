// File: service/inbox.go
// Package service - command inbox for the service loop.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Registration and removal requests arrive as messages and are drained
// once per poll cycle. The queue is unbounded so that a handle dropped
// under load can always enqueue its removal without blocking.

package service

import (
	"sync"

	"github.com/eapache/queue"
)

// inbox is a goroutine-safe unbounded FIFO of service commands.
type inbox struct {
	mu sync.Mutex
	q  *queue.Queue
}

func newInbox() *inbox {
	return &inbox{q: queue.New()}
}

// push appends a command. Producers are handles and the facade.
func (in *inbox) push(cmd any) {
	in.mu.Lock()
	in.q.Add(cmd)
	in.mu.Unlock()
}

// pop removes the oldest command; ok false when empty. Consumer is the
// service loop only.
func (in *inbox) pop() (any, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.q.Length() == 0 {
		return nil, false
	}
	return in.q.Remove(), true
}

// size reports the number of queued commands.
func (in *inbox) size() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.q.Length()
}
