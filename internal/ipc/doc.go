// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs for every
// boundary operation (runs, candidate and folder listing, proposals, moves,
// refinement, events, history). Events are delivered by long-polling: the
// client passes the last sequence it saw and the server blocks up to the
// requested wait for anything newer.
//
// Reuse these types when adding new RPC endpoints to keep the protocol stable
// and compatible with existing command implementations.
package ipc
