package generation_service

import "errors"

var (
	// ErrGenerationEmpty means the model answered without the artifact asked for.
	ErrGenerationEmpty = errors.New("no content generated")
	// ErrTimeout means a long-running job did not finish within its bounds.
	ErrTimeout = errors.New("generation timed out")
	// ErrInvalidInput rejects requests before any model call is made.
	ErrInvalidInput = errors.New("invalid generation input")
)
