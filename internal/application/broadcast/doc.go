// Package broadcast republishes design notifications on an event bus.
//
// A Broadcaster is a design observer that remembers the runtime it is
// attached to. Every PostRead* callback becomes a ports.Event on the
// configured topic, which the websocket stream and remote consumers read.
// Detach unregisters it from its runtime.
package broadcast
