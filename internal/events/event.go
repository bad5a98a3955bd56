package events

import "time"

// Type names an outbound lifecycle event.
type Type string

const (
	TypeScanSummary    Type = "scan-summary"
	TypeFileProcessing Type = "file-processing"
	TypeFileSkipped    Type = "file-skipped"
	TypeFileProposed   Type = "file-proposed"
	TypeFileFailed     Type = "file-failed"
	TypeRunComplete    Type = "run-complete"
)

// Event is one lifecycle notification. Exactly one payload field is set,
// matching Type.
type Event struct {
	Seq   uint64    `json:"seq"`
	Time  time.Time `json:"ts"`
	RunID string    `json:"run_id,omitempty"`
	Type  Type      `json:"type"`

	Summary  *ScanSummary `json:"summary,omitempty"`
	File     *FileRef     `json:"file,omitempty"`
	Skip     *SkipRecord  `json:"skip,omitempty"`
	Proposal *Proposal    `json:"proposal,omitempty"`
	Complete *RunComplete `json:"complete,omitempty"`
}

// ScanSummary reports how many candidates a scan dispatched.
type ScanSummary struct {
	Count      int `json:"count"`
	Unreadable int `json:"unreadable,omitempty"`
}

// FileRef names the file a processing or failed event refers to.
type FileRef struct {
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// SkipRecord describes a screenshot that was not dispatched.
type SkipRecord struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Reason string `json:"reason"`
}

// Proposal is a suggested rename and category awaiting approval.
// ID is the original file name and is scoped to its run.
type Proposal struct {
	ID               string `json:"id"`
	OriginalPath     string `json:"original_path"`
	OriginalName     string `json:"original_name"`
	ProposedName     string `json:"proposed_name"`
	ProposedCategory string `json:"proposed_category"`
	Reasoning        string `json:"reasoning"`
}

// RunComplete is emitted once every dispatched unit of a run has finished.
type RunComplete struct {
	Proposed int `json:"proposed"`
	Failed   int `json:"failed"`
}

// Payload returns whichever payload the event carries.
func (e Event) Payload() any {
	switch e.Type {
	case TypeScanSummary:
		return e.Summary
	case TypeFileProcessing, TypeFileFailed:
		return e.File
	case TypeFileSkipped:
		return e.Skip
	case TypeFileProposed:
		return e.Proposal
	case TypeRunComplete:
		return e.Complete
	default:
		return nil
	}
}

// FileName returns the file an event concerns, or "" for run-level events.
func (e Event) FileName() string {
	switch {
	case e.File != nil:
		return e.File.Name
	case e.Skip != nil:
		return e.Skip.Name
	case e.Proposal != nil:
		return e.Proposal.OriginalName
	default:
		return ""
	}
}

func NewScanSummary(runID string, count, unreadable int) Event {
	return Event{RunID: runID, Type: TypeScanSummary, Summary: &ScanSummary{Count: count, Unreadable: unreadable}}
}

func NewFileProcessing(runID, name string) Event {
	return Event{RunID: runID, Type: TypeFileProcessing, File: &FileRef{Name: name}}
}

func NewFileSkipped(runID string, skip SkipRecord) Event {
	return Event{RunID: runID, Type: TypeFileSkipped, Skip: &skip}
}

func NewFileProposed(runID string, proposal Proposal) Event {
	return Event{RunID: runID, Type: TypeFileProposed, Proposal: &proposal}
}

// NewFileFailed builds a failure event; kind and cause are diagnostic only.
func NewFileFailed(runID, name, kind string, cause error) Event {
	ref := &FileRef{Name: name, Kind: kind}
	if cause != nil {
		ref.Error = cause.Error()
	}
	return Event{RunID: runID, Type: TypeFileFailed, File: ref}
}

func NewRunComplete(runID string, proposed, failed int) Event {
	return Event{RunID: runID, Type: TypeRunComplete, Complete: &RunComplete{Proposed: proposed, Failed: failed}}
}
