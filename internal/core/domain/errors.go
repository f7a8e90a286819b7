package domain

import "errors"

// ErrQueueUnavailable wraps enqueue failures caused by an unreachable
// backing store. Fatal to that enqueue attempt, surfaced to the producer.
var ErrQueueUnavailable = errors.New("job queue unavailable")

// ErrNoMedia is returned by the executor when a fetch finished without
// producing any media files.
var ErrNoMedia = errors.New("no media produced")
