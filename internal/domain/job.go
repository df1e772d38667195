package domain

// JobStatus enumerates the provider-defined job lifecycle states.
type JobStatus string

const (
	JobStatusStarting   JobStatus = "starting"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCanceled   JobStatus = "canceled"
)

// Terminal reports whether no further status change can be observed.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// Job is one restoration request as reported by the inference provider.
// Output is set only on success, Error only on failure or cancellation.
type Job struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
	Output string    `json:"output,omitempty"`
	Error  string    `json:"error,omitempty"`
	Logs   string    `json:"logs,omitempty"`
}

// Identity is what the identity boundary hands to this service: a stable key
// and whether the caller is signed in.
type Identity struct {
	Key           string
	Authenticated bool
}
