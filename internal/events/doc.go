// Package events carries pipeline lifecycle notifications to clients.
//
// Producers (the scanner pass and every classification unit) call Sink.Emit
// with typed events. Hub is the process-wide sink: it stamps a monotonically
// increasing sequence, keeps a bounded ring buffer that IPC clients long-poll
// with Fetch, and forwards each event to extra sinks such as the JSONL
// Archive. A single unit emits sequentially, so per-file ordering holds
// even though units interleave freely.
package events
