package ipc

import (
	"time"

	"shotsort/internal/events"
	"shotsort/internal/history"
	"shotsort/internal/organizer"
	"shotsort/internal/proposals"
	"shotsort/internal/screenshot"
)

// ServiceName is the RPC receiver name registered by the server.
const ServiceName = "Shotsort"

// StartRunRequest scans a folder and dispatches classification.
type StartRunRequest struct {
	Dir        string `json:"dir"`
	Credential string `json:"credential,omitempty"`
}

// StartRunResponse acknowledges a started run.
type StartRunResponse struct {
	Message string `json:"message"`
	RunID   string `json:"run_id"`
}

// StopRunRequest stops the live watcher of the current run.
type StopRunRequest struct{}

// StopRunResponse acknowledges the stop.
type StopRunResponse struct {
	Message string `json:"message"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse indicates whether shutdown was initiated.
type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon and run status information.
type StatusResponse struct {
	Running       bool      `json:"running"`
	PID           int       `json:"pid"`
	StartedAt     time.Time `json:"started_at"`
	LockPath      string    `json:"lock_path"`
	HistoryDBPath string    `json:"history_db_path"`
	EventLogPath  string    `json:"event_log_path,omitempty"`
	RunID         string    `json:"run_id,omitempty"`
	RunDir        string    `json:"run_dir,omitempty"`
	RunStartedAt  time.Time `json:"run_started_at,omitempty"`
	Watching      bool      `json:"watching"`
	Credential    string    `json:"credential,omitempty"`
	ActiveUnits   int       `json:"active_units"`
	InFlight      int       `json:"in_flight"`
	Concurrency   int       `json:"concurrency"`
	Proposals     int       `json:"proposals"`
	LastSequence  uint64    `json:"last_sequence"`
	Notifications bool      `json:"notifications"`
}

// ListCandidatesRequest lists screenshots in a folder.
type ListCandidatesRequest struct {
	Dir string `json:"dir"`
}

// ListCandidatesResponse contains the screenshots, sorted by name.
type ListCandidatesResponse struct {
	Files []screenshot.FileInfo `json:"files"`
}

// ListFoldersRequest lists subfolders of a folder.
type ListFoldersRequest struct {
	Dir string `json:"dir"`
}

// ListFoldersResponse contains the visible subfolders.
type ListFoldersResponse struct {
	Folders []screenshot.Folder `json:"folders"`
}

// ApplyRequest moves one file.
type ApplyRequest struct {
	Original    string `json:"original"`
	Destination string `json:"destination"`
}

// MoveResponse reports a journaled move.
type MoveResponse struct {
	Move history.Entry `json:"move"`
}

// ApproveRequest applies an outstanding proposal.
type ApproveRequest struct {
	ID      string `json:"id"`
	BaseDir string `json:"base_dir,omitempty"`
}

// RejectRequest drops an outstanding proposal.
type RejectRequest struct {
	ID string `json:"id"`
}

// RejectResponse returns the dropped proposal.
type RejectResponse struct {
	Proposal proposals.Entry `json:"proposal"`
}

// RefineRequest asks for a subcategory of one file.
type RefineRequest struct {
	Path       string `json:"path"`
	Parent     string `json:"parent"`
	Credential string `json:"credential,omitempty"`
}

// RefineResponse carries the refined subcategory.
type RefineResponse struct {
	ID          string `json:"id"`
	Subcategory string `json:"subcategory"`
}

// ProposalsRequest lists outstanding proposals.
type ProposalsRequest struct {
	Merge bool `json:"merge"`
}

// ProposalsResponse contains outstanding proposals ordered by id.
type ProposalsResponse struct {
	Proposals []proposals.Entry `json:"proposals"`
}

// ConflictsRequest checks proposal destinations for collisions.
type ConflictsRequest struct {
	BaseDir string `json:"base_dir,omitempty"`
}

// ConflictsResponse lists colliding destinations.
type ConflictsResponse struct {
	Conflicts []organizer.Conflict `json:"conflicts"`
}

// EventsRequest fetches events newer than Since.
type EventsRequest struct {
	Since      uint64 `json:"since"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
}

// EventsResponse contains events and the cursor for the next request.
type EventsResponse struct {
	Events []events.Event `json:"events"`
	Next   uint64         `json:"next"`
}

// HistoryRequest lists journaled moves.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse contains moves, newest first.
type HistoryResponse struct {
	Moves []history.Entry `json:"moves"`
}

// UndoRequest reverts the newest active move.
type UndoRequest struct{}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the notification test result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
