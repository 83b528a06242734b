package constants

// Status is the outcome of one recognition attempt, as logged and returned by
// batch ingestion and the background queue.
type Status string

// Stable values (store these exact strings in DB).
const (
	StatusQueued     Status = "QUEUED"
	StatusRunning    Status = "RUNNING"
	StatusRecognized Status = "RECOGNIZED"
	StatusDuplicate  Status = "DUPLICATE"
	StatusFailed     Status = "FAILED"
)
