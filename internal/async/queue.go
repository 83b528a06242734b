// Package async recognizes receipt files in the background.
package async

import (
	"context"
	"errors"
	"time"
)

// ErrQueueClosed is returned by Enqueue once Shutdown has started.
var ErrQueueClosed = errors.New("recognition queue closed")

// Job is one receipt file waiting for recognition. RequestID ties the
// worker's log lines to whatever submitted the file; Source names it
// ("inbox", "api").
type Job struct {
	Path        string
	Source      string
	RequestID   string
	SubmittedAt time.Time
}

// Queue accepts jobs until Shutdown, which drains what was already accepted.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
