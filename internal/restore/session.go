package restore

import (
	"errors"
	"fmt"

	"colorold/internal/domain"
)

// State is the orchestrator's position in the upload flow.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// Session is one user interaction, from file selection to result.
type Session struct {
	State        State            `json:"state"`
	OriginalRef  string           `json:"originalRef,omitempty"`
	ResultRef    string           `json:"resultRef,omitempty"`
	JobID        string           `json:"jobId,omitempty"`
	Status       domain.JobStatus `json:"status,omitempty"`
	Progress     int              `json:"progress"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
	// Err is the typed cause behind ErrorMessage.
	Err error `json:"-"`
}

// Active reports whether the session is between upload and a terminal state.
func (s Session) Active() bool {
	return s.State == StateUploading || s.State == StateProcessing
}

var (
	ErrBusy     = errors.New("restore: a photo is already being processed")
	ErrAborted  = errors.New("restore: session was reset")
	ErrNoResult = errors.New("restore: no result to download")
	ErrNoPhoto  = errors.New("restore: nothing to retry")
)

// JobError reports a job that reached failed or canceled.
type JobError struct {
	JobID  string
	Status domain.JobStatus
	Reason string
}

func (e *JobError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("job %s %s", e.JobID, e.Status)
	}
	return fmt.Sprintf("job %s %s: %s", e.JobID, e.Status, e.Reason)
}

func (e *JobError) Is(target error) bool { return target == domain.ErrUpstream }
