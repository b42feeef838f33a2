package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableQueue() *Queue {
	// port 0 fails the dial immediately, no listener required
	return NewQueue(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), nil)
}

func TestRetryReturnsBeforeBackoffElapses(t *testing.T) {
	q := unreachableQueue()
	job := &Job{ID: "job-1", Type: JobTypeEmail, Payload: json.RawMessage(`{}`)}

	start := time.Now()
	err := q.Retry(context.Background(), job)
	require.NoError(t, err)

	// the backoff is served in the background, not by blocking the caller
	assert.Less(t, time.Since(start), RetryBackoff)
	assert.Equal(t, 1, job.Attempt)
}

func TestRetryDeadLettersAfterMaxAttempts(t *testing.T) {
	q := unreachableQueue()
	job := &Job{ID: "job-2", Type: JobTypeEmail, Payload: json.RawMessage(`{}`), Attempt: MaxRetries - 1}

	// the DLQ push is synchronous, so the unreachable backend surfaces here
	err := q.Retry(context.Background(), job)
	assert.Error(t, err)
	assert.Equal(t, MaxRetries, job.Attempt)
}
