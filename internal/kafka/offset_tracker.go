package kafka

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

const (
	// flushInterval and flushThreshold bound how long consumption
	// progress may sit unflushed.
	flushInterval  = 10 * time.Second
	flushThreshold = 500
)

// Committer is the subset of the reader used to commit offsets.
type Committer interface {
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// OffsetTracker buffers consumption progress and flushes it to the
// broker every 10 seconds or 500 messages, whichever comes first. The
// request loop flushes unconditionally when it exits, so at-least-once
// holds even when the last window never filled.
type OffsetTracker struct {
	committer Committer

	// latest tracks the newest message per partition; committing it
	// advances the group past everything below it.
	latest map[int]kafkago.Message
	count  int
	last   time.Time

	now func() time.Time
}

// NewOffsetTracker wraps a consumer handle.
func NewOffsetTracker(committer Committer) *OffsetTracker {
	return &OffsetTracker{
		committer: committer,
		latest:    make(map[int]kafkago.Message),
		last:      time.Now(),
		now:       time.Now,
	}
}

// TryStore records the message and flushes only when the window is due.
// A nil return with no flush is not an error; broker failures surface to
// the caller, which is expected to log and continue.
func (t *OffsetTracker) TryStore(ctx context.Context, msg kafkago.Message) error {
	t.record(msg)

	if t.now().Sub(t.last) < flushInterval && t.count < flushThreshold {
		return nil
	}
	return t.Flush(ctx)
}

// Store records the message and flushes immediately.
func (t *OffsetTracker) Store(ctx context.Context, msg kafkago.Message) error {
	t.record(msg)
	return t.Flush(ctx)
}

// Flush commits all buffered progress. On success the window restarts.
func (t *OffsetTracker) Flush(ctx context.Context) error {
	if len(t.latest) == 0 {
		t.last = t.now()
		return nil
	}

	msgs := make([]kafkago.Message, 0, len(t.latest))
	for _, msg := range t.latest {
		msgs = append(msgs, msg)
	}

	if err := t.committer.CommitMessages(ctx, msgs...); err != nil {
		return err
	}

	t.latest = make(map[int]kafkago.Message)
	t.count = 0
	t.last = t.now()
	return nil
}

func (t *OffsetTracker) record(msg kafkago.Message) {
	if cur, ok := t.latest[msg.Partition]; !ok || msg.Offset > cur.Offset {
		t.latest[msg.Partition] = msg
	}
	t.count++
}
