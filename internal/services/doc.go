// Package services defines shared utilities consumed by the classification
// pipeline and its external integrations.
//
// It holds the structured error markers plus the Wrap helper, and FailureKind,
// which turns a per-file error into the short kind reported on file-failed
// events (read, transport, timeout, contract).
package services
