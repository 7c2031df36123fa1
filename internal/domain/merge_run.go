package domain

import (
	"time"

	"github.com/google/uuid"
)

// MergeKind distinguishes the two batch transforms.
type MergeKind string

const (
	MergeKindFresh       MergeKind = "FRESH"
	MergeKindIncremental MergeKind = "INCREMENTAL"
)

// MergeRunStatus captures how a run ended.
type MergeRunStatus string

const (
	MergeRunStatusCompleted MergeRunStatus = "COMPLETED"
	MergeRunStatusFailed    MergeRunStatus = "FAILED"
)

// MergeSummary counts what a single run did.
type MergeSummary struct {
	Profiles       int `json:"profiles"`
	Events         int `json:"events"`
	MatchedEvents  int `json:"matched_events"`
	SkippedEvents  int `json:"skipped_events"`
	AddedEvents    int `json:"added_events"`
	UpdatedEvents  int `json:"updated_events"`
	AttachedEvents int `json:"attached_events"`
}

// MergeRun is the persisted record of one merge or update invocation.
type MergeRun struct {
	ID           uuid.UUID      `json:"id"`
	Kind         MergeKind      `json:"kind"`
	Status       MergeRunStatus `json:"status"`
	SourceFile   string         `json:"source_file"`
	OutputFile   string         `json:"output_file"`
	Summary      MergeSummary   `json:"summary"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  time.Time      `json:"completed_at"`
}

// NewMergeRun starts a run record with a fresh id.
func NewMergeRun(kind MergeKind, sourceFile, outputFile string) MergeRun {
	return MergeRun{
		ID:         uuid.New(),
		Kind:       kind,
		SourceFile: sourceFile,
		OutputFile: outputFile,
		StartedAt:  time.Now().UTC(),
	}
}

// Complete returns the run marked as completed with the given summary.
func (r MergeRun) Complete(summary MergeSummary) MergeRun {
	r.Status = MergeRunStatusCompleted
	r.Summary = summary
	r.CompletedAt = time.Now().UTC()
	return r
}

// Fail returns the run marked as failed.
func (r MergeRun) Fail(summary MergeSummary, err error) MergeRun {
	r.Status = MergeRunStatusFailed
	r.Summary = summary
	if err != nil {
		msg := err.Error()
		r.ErrorMessage = &msg
	}
	r.CompletedAt = time.Now().UTC()
	return r
}
