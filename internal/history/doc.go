// Package history journals applied moves in SQLite so they can be listed
// and undone.
//
// The journal is append-only apart from the undone_at stamp. It records what
// the daemon did; it is not a job queue and nothing is replayed on start.
package history
