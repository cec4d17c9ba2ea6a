// Package events decouples request intake from background processing.
//
// The HTTP layer and the poster service emit TaskRequestEvents; the task
// package registers a handler that turns them into queued tasks. The
// in-memory emitter dispatches synchronously, so a successful EmitEvent means
// every handler has accepted the event.
package events
