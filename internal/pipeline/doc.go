// Package pipeline runs classification passes over a screenshot folder.
//
// Run scans the folder, reports skips and the candidate count, then hands the
// candidates to Dispatch and returns without waiting. Dispatch starts one
// goroutine per candidate; each unit announces processing, waits out the
// debounce window, acquires a slot from a shared weighted semaphore, reads
// the file, calls the classifier under a per-call deadline, releases the
// slot, and emits exactly one proposed or failed event. Units never share
// mutable state: everything they need is copied from the immutable RunConfig
// captured when the run starts.
//
// Stopping a run does not cancel dispatched units. Only cancellation of the
// context passed to Dispatch (process shutdown) ends them early, and a
// cancelled unit still reports failed.
package pipeline
