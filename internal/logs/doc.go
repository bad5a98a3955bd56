// Package logs reads the daemon's log files for `shotsort logs`.
//
// Tail returns the last N lines of a file along with the byte offset to
// resume from; a follow read blocks until new lines arrive or the wait
// elapses. Follow mode listens for fsnotify write events and falls back to
// polling when a watch cannot be established.
package logs
