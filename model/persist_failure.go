package model

import "time"

// PersistStage names the step of a background persistence task that failed.
type PersistStage string

const (
	PersistStageQueue  PersistStage = "queue"  // task never ran, its lane was full
	PersistStageUpload PersistStage = "upload" // bytes could not be stored anywhere
	PersistStageLedger PersistStage = "ledger" // bytes stored, record write failed
)

// PersistFailure is a dead-letter entry for a background persistence task.
// PayloadFile is set when the bytes were spooled because no store holds them.
type PersistFailure struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Stage       PersistStage `json:"stage"`
	Key         string       `json:"key"`
	ContentType string       `json:"contentType"`
	URL         string       `json:"url,omitempty"`
	Asset       Asset        `json:"asset"`
	Error       string       `json:"error"`
	FailedAt    time.Time    `json:"failedAt"`
	PayloadFile string       `json:"payloadFile,omitempty"`
}
