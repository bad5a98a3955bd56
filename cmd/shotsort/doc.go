// Command shotsort is the CLI front end for the screenshot organizer.
//
// Most commands talk to the background daemon over its Unix socket: start a
// run on a folder, follow the event stream, review and approve proposals,
// and undo moves. The daemon itself runs via `shotsort daemon run`, and
// `shotsort scan` classifies a folder in-process without a daemon.
package main
