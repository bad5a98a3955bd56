// Package daemon coordinates the long-running shotsort process.
//
// It wires configuration, the classification dispatcher, the event hub and
// its sinks (outstanding proposals, the JSONL archive, ntfy notifications),
// the subcategory refiner, and the move journal into a single lifecycle with
// flock-based locking to prevent multiple instances.
//
// The exported methods are the boundary surface the IPC server exposes:
// starting and stopping runs, listing candidates and folders, applying,
// approving, rejecting, and refining proposals, reading events, and undoing
// journaled moves. The run state (current run configuration and optional
// live watcher) is the only mutable state shared across runs.
package daemon
