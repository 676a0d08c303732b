package retry

import (
	"context"

	"github.com/google/uuid"
)

// TestIdentity names a test method together with its declaring type
type TestIdentity struct {
	Type   string
	Method string
}

func (id TestIdentity) String() string {
	return id.Type + "." + id.Method
}

// WorkerID identifies one concurrently executing worker. Retry counters are
// partitioned by it.
type WorkerID string

// DefaultWorker is used when a context carries no worker
const DefaultWorker WorkerID = "main"

// NewWorkerID returns a fresh random worker identity
func NewWorkerID() WorkerID {
	return WorkerID(uuid.NewString())
}

type workerKey struct{}

// WithWorker returns a context bound to worker id
func WithWorker(ctx context.Context, id WorkerID) context.Context {
	return context.WithValue(ctx, workerKey{}, id)
}

// WorkerFromContext returns the worker bound to ctx, or DefaultWorker
func WorkerFromContext(ctx context.Context) WorkerID {
	if ctx == nil {
		return DefaultWorker
	}
	if id, ok := ctx.Value(workerKey{}).(WorkerID); ok && id != "" {
		return id
	}
	return DefaultWorker
}
