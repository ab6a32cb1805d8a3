package model

// JobStatus is the state of a long-running video generation job.
type JobStatus string

const (
	JobStatusSubmitted JobStatus = "submitted"
	JobStatusPolling   JobStatus = "polling"
	JobStatusDone      JobStatus = "done"
	JobStatusFailed    JobStatus = "failed"
	JobStatusTimeout   JobStatus = "timeout"
)

// Terminal reports whether no further transition can happen.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed || s == JobStatusTimeout
}

// GenerationJob is transient state for one video generation. It lives only as
// long as the poller and is superseded by the resulting Asset.
type GenerationJob struct {
	Prompt          string
	Image           []byte
	ImageMIMEType   string
	DurationSeconds int
	AspectRatio     string
	GenerateAudio   bool

	Status   JobStatus
	Attempts int // status checks performed so far
}
