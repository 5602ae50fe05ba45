// File: core/concurrency/executor.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks across a fixed pool of worker goroutines.
// Used by the facade to run callback-style event consumers off the
// service loop's thread.

package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-inotify/api"
)

// Ensure compile-time interface compliance.
var _ api.Executor = (*Executor)(nil)

// Executor manages a pool of worker goroutines.
type Executor struct {
	tasks   chan func()
	closeCh chan struct{}
	closed  atomic.Bool
	workers int
	wg      sync.WaitGroup
}

// NewExecutor creates a new Executor with the given number of workers.
func NewExecutor(numWorkers int) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	e := &Executor{
		tasks:   make(chan func(), numWorkers*4),
		closeCh: make(chan struct{}),
		workers: numWorkers,
	}
	for i := 0; i < numWorkers; i++ {
		e.wg.Add(1)
		go e.run()
	}
	return e
}

// Submit enqueues a task. Returns api.ErrExecutorClosed if closed.
func (e *Executor) Submit(task func()) error {
	if e.closed.Load() {
		return api.ErrExecutorClosed
	}
	select {
	case e.tasks <- task:
		return nil
	case <-e.closeCh:
		return api.ErrExecutorClosed
	}
}

// NumWorkers returns active worker count.
func (e *Executor) NumWorkers() int {
	return e.workers
}

// Close shuts down the executor, waiting for in-flight tasks to finish.
func (e *Executor) Close() {
	if e.closed.CompareAndSwap(false, true) {
		close(e.closeCh)
		e.wg.Wait()
	}
}

func (e *Executor) run() {
	defer e.wg.Done()
	for {
		select {
		case task := <-e.tasks:
			safeExecute(task)
		case <-e.closeCh:
			// drain remaining queued tasks before exit
			for {
				select {
				case task := <-e.tasks:
					safeExecute(task)
				default:
					return
				}
			}
		}
	}
}

func safeExecute(task func()) {
	defer func() { _ = recover() }()
	task()
}
