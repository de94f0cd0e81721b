package github

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// maxQueueSize bounds the offline queue; the oldest entry is
	// evicted on overflow.
	maxQueueSize = 100
	// maxRetries is the per-operation retry budget; an operation that
	// fails this many times is dropped.
	maxRetries = 3
)

// OperationKind identifies the remote write an operation performs.
type OperationKind string

const (
	OpUpdateStatus     OperationKind = "update_status"
	OpUpdateAssignment OperationKind = "update_assignment"
	OpUpdateBranch     OperationKind = "update_branch"
)

// Operation is a queued remote write. It carries everything needed to
// execute later, after connectivity returns.
type Operation struct {
	ID         uuid.UUID     `json:"id"`
	Kind       OperationKind `json:"kind"`
	TaskID     uuid.UUID     `json:"task_id"`
	AssignedTo *string       `json:"assigned_to,omitempty"`
	Branch     string        `json:"branch,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	RetryCount int           `json:"retry_count"`
}

// Queue is a process-local FIFO of pending remote writes. Enqueueing
// never fails: on overflow the oldest entry is evicted so the caller's
// write is always accepted.
type Queue struct {
	mu     sync.Mutex
	ops    []Operation
	logger *slog.Logger
}

// NewQueue creates an empty queue.
func NewQueue(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{logger: logger}
}

// Enqueue appends an operation, evicting the oldest on overflow.
func (q *Queue) Enqueue(op Operation) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.ops) >= maxQueueSize {
		old := q.ops[0]
		q.ops = q.ops[1:]
		q.logger.Warn("dropping old sync operation on queue overflow", "operation_id", old.ID, "kind", old.Kind)
	}
	q.ops = append(q.ops, op)
}

// Drain atomically removes and returns all queued operations in order.
func (q *Queue) Drain() []Operation {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops := q.ops
	q.ops = nil
	return ops
}

// Requeue appends failed operations back, preserving their order.
func (q *Queue) Requeue(ops []Operation) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = append(q.ops, ops...)
}

// Len returns the number of queued operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}
