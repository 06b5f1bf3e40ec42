package workflow

import "errors"

// Sentinel errors surfaced by the manager. The HTTP layer maps them to
// status codes.
var (
	// ErrNotFound means the referenced run, project or document is unknown.
	ErrNotFound = errors.New("not found")

	// ErrBusy means a run is already active for the project/document pair.
	ErrBusy = errors.New("a run is already active for this project and document")

	// ErrNoExtractedText means the RFP document has no usable text, so the
	// run is rejected before the analyzer executes.
	ErrNoExtractedText = errors.New("rfp document has no extracted text")

	// ErrFinished means the run already reached a terminal status and can no
	// longer be cancelled or approved.
	ErrFinished = errors.New("run already finished")
)
