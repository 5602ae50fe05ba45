// File: api/handler.go
// Package api defines EventHandler interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// EventHandler consumes watcher stream items in callback style.
type EventHandler interface {
	Handle(ev WatcherEvent) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ev WatcherEvent) error

// Handle implements EventHandler.
func (f EventHandlerFunc) Handle(ev WatcherEvent) error {
	return f(ev)
}
