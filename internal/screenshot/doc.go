// Package screenshot identifies screenshot files in a folder.
//
// IsCandidate is the single name rule shared by batch scans, folder listings,
// and the live watcher. Scan partitions a directory into classification
// candidates and oversized skips; List and ListFolders back the read-only
// browsing operations exposed to clients.
package screenshot
