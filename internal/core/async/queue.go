package async

import (
	"context"
	"time"
)

// Job asks the queue to process one CT-e file from disk.
type Job struct {
	Path        string
	SubmittedAt time.Time
	RequestID   string
}

// Queue accepts jobs until it is shut down.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

var _ Queue = (*ProcessorQueue)(nil)
