// Package concurrency tests the SPSC ring.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"runtime"
	"testing"
)

// TestSPSCRing_EnqueueDequeue tests basic FIFO behavior.
func TestSPSCRing_EnqueueDequeue(t *testing.T) {
	r := NewSPSCRing[int](8)

	if !r.Enqueue(42) {
		t.Errorf("Expected Enqueue to return true")
	}
	if r.Len() != 1 {
		t.Errorf("Expected length 1, got %d", r.Len())
	}

	item, ok := r.Dequeue()
	if !ok {
		t.Errorf("Expected Dequeue to return true")
	}
	if item != 42 {
		t.Errorf("Expected item to be 42, got %d", item)
	}
	if r.Len() != 0 {
		t.Errorf("Expected length 0 after Dequeue, got %d", r.Len())
	}
}

// TestSPSCRing_Full tests behavior when the ring is full.
func TestSPSCRing_Full(t *testing.T) {
	r := NewSPSCRing[int](2)

	if !r.Enqueue(1) || !r.Enqueue(2) {
		t.Fatalf("Expected first two Enqueues to succeed")
	}
	if r.Enqueue(3) {
		t.Errorf("Expected third Enqueue to fail when ring is full")
	}
	if r.Len() != 2 {
		t.Errorf("Expected length 2, got %d", r.Len())
	}
}

// TestSPSCRing_Empty tests dequeue from an empty ring.
func TestSPSCRing_Empty(t *testing.T) {
	r := NewSPSCRing[int](4)

	if _, ok := r.Dequeue(); ok {
		t.Errorf("Expected Dequeue to return false when ring is empty")
	}
}

// TestSPSCRing_CapacityRounding tests power-of-two rounding.
func TestSPSCRing_CapacityRounding(t *testing.T) {
	r := NewSPSCRing[int](5)
	if r.Cap() != 8 {
		t.Errorf("Expected capacity 8 for requested 5, got %d", r.Cap())
	}
}

// TestSPSCRing_Ordering checks FIFO order is preserved across wraps.
func TestSPSCRing_Ordering(t *testing.T) {
	r := NewSPSCRing[int](4)
	next := 0
	for round := 0; round < 10; round++ {
		for i := 0; i < 3; i++ {
			if !r.Enqueue(round*3 + i) {
				t.Fatalf("Enqueue failed at round %d", round)
			}
		}
		for i := 0; i < 3; i++ {
			got, ok := r.Dequeue()
			if !ok || got != next {
				t.Fatalf("Expected %d, got %d ok=%v", next, got, ok)
			}
			next++
		}
	}
}

// TestSPSCRing_SingleProducerSingleConsumer stresses the ring with one
// producer and one consumer goroutine.
func TestSPSCRing_SingleProducerSingleConsumer(t *testing.T) {
	r := NewSPSCRing[int](64)
	const items = 100000

	done := make(chan int64)
	go func() {
		var sum int64
		received := 0
		for received < items {
			v, ok := r.Dequeue()
			if !ok {
				runtime.Gosched()
				continue
			}
			sum += int64(v)
			received++
		}
		done <- sum
	}()

	var want int64
	for i := 0; i < items; i++ {
		for !r.Enqueue(i) {
			runtime.Gosched()
		}
		want += int64(i)
	}

	if got := <-done; got != want {
		t.Errorf("Expected sum %d, got %d", want, got)
	}
}
