package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one inbox file waiting for recovery.
type Job struct {
	ID          uuid.UUID
	Path        string
	Force       bool // process even if the same content was seen before
	SubmittedAt time.Time
	TraceID     string
}

// NewJob stamps a job for path.
func NewJob(path string) Job {
	return Job{ID: uuid.New(), Path: path, SubmittedAt: time.Now().UTC()}
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Handler processes one job. Errors are logged by the queue, not retried.
type Handler interface {
	Handle(ctx context.Context, job Job) error
}

type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) Handle(ctx context.Context, job Job) error { return f(ctx, job) }
