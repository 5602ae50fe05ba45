// Package concurrency tests the cooperative loop driver.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// countingPoller reports work for the first n resumptions, then idles.
type countingPoller struct {
	work  atomic.Int64
	polls atomic.Int64
	err   error
}

func (p *countingPoller) Poll(max int) (int, error) {
	p.polls.Add(1)
	if p.err != nil {
		return 0, p.err
	}
	if p.work.Load() > 0 {
		p.work.Add(-1)
		return 1, nil
	}
	return 0, nil
}

// TestEventLoop_DrainsWork checks that queued work is polled through.
func TestEventLoop_DrainsWork(t *testing.T) {
	p := &countingPoller{}
	p.work.Store(5)
	el := NewEventLoop(p, 16)

	go el.Run()
	defer el.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for p.work.Load() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Loop did not drain work, %d left", p.work.Load())
		}
		time.Sleep(time.Millisecond)
	}
}

// TestEventLoop_WakeResumes checks that Wake resumes a parked loop.
func TestEventLoop_WakeResumes(t *testing.T) {
	p := &countingPoller{}
	el := NewEventLoop(p, 16)
	go el.Run()
	defer el.Stop()

	// Let the loop park.
	time.Sleep(10 * time.Millisecond)
	before := p.polls.Load()

	p.work.Store(1)
	el.Wake()

	deadline := time.Now().Add(2 * time.Second)
	for p.work.Load() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Wake did not resume loop (polls before=%d now=%d)", before, p.polls.Load())
		}
		time.Sleep(time.Millisecond)
	}
}

// TestEventLoop_TerminalError checks that a poller error ends Run and is
// reported by Err.
func TestEventLoop_TerminalError(t *testing.T) {
	wantErr := errors.New("channel desynchronized")
	p := &countingPoller{err: wantErr}
	el := NewEventLoop(p, 16)

	if err := el.Run(); !errors.Is(err, wantErr) {
		t.Fatalf("Expected terminal error %v, got %v", wantErr, err)
	}
	if !errors.Is(el.Err(), wantErr) {
		t.Errorf("Expected Err() to report terminal error")
	}
}

// TestEventLoop_StopIdempotent checks Stop may be called repeatedly.
func TestEventLoop_StopIdempotent(t *testing.T) {
	p := &countingPoller{}
	el := NewEventLoop(p, 16)
	go el.Run()
	time.Sleep(time.Millisecond)
	el.Stop()
	el.Stop()
}
