package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCommitter records commit calls and optionally fails them.
type fakeCommitter struct {
	commits [][]kafkago.Message
	err     error
}

func (f *fakeCommitter) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.commits = append(f.commits, msgs)
	return nil
}

func msg(partition int, offset int64) kafkago.Message {
	return kafkago.Message{Partition: partition, Offset: offset}
}

func TestTryStoreBuffersWithoutFlushing(t *testing.T) {
	committer := &fakeCommitter{}
	tracker := NewOffsetTracker(committer)

	for i := int64(0); i < 100; i++ {
		require.NoError(t, tracker.TryStore(context.Background(), msg(0, i)))
	}

	assert.Empty(t, committer.commits)
}

func TestTryStoreFlushesAtThreshold(t *testing.T) {
	committer := &fakeCommitter{}
	tracker := NewOffsetTracker(committer)

	for i := int64(0); i < flushThreshold; i++ {
		require.NoError(t, tracker.TryStore(context.Background(), msg(0, i)))
	}

	require.Len(t, committer.commits, 1)
	require.Len(t, committer.commits[0], 1)
	// Only the newest message per partition is committed.
	assert.Equal(t, int64(flushThreshold-1), committer.commits[0][0].Offset)

	// The window restarted: the next message buffers again.
	require.NoError(t, tracker.TryStore(context.Background(), msg(0, 600)))
	assert.Len(t, committer.commits, 1)
}

func TestTryStoreFlushesAfterInterval(t *testing.T) {
	committer := &fakeCommitter{}
	tracker := NewOffsetTracker(committer)

	now := time.Now()
	tracker.now = func() time.Time { return now }
	tracker.last = now

	require.NoError(t, tracker.TryStore(context.Background(), msg(0, 1)))
	assert.Empty(t, committer.commits)

	tracker.now = func() time.Time { return now.Add(flushInterval + time.Second) }
	require.NoError(t, tracker.TryStore(context.Background(), msg(0, 2)))
	require.Len(t, committer.commits, 1)
	assert.Equal(t, int64(2), committer.commits[0][0].Offset)
}

func TestStoreFlushesImmediately(t *testing.T) {
	committer := &fakeCommitter{}
	tracker := NewOffsetTracker(committer)

	require.NoError(t, tracker.Store(context.Background(), msg(2, 7)))

	require.Len(t, committer.commits, 1)
	assert.Equal(t, 2, committer.commits[0][0].Partition)
	assert.Equal(t, int64(7), committer.commits[0][0].Offset)
}

func TestFlushTracksLatestPerPartition(t *testing.T) {
	committer := &fakeCommitter{}
	tracker := NewOffsetTracker(committer)

	require.NoError(t, tracker.TryStore(context.Background(), msg(0, 5)))
	require.NoError(t, tracker.TryStore(context.Background(), msg(0, 4)))
	require.NoError(t, tracker.TryStore(context.Background(), msg(1, 9)))

	require.NoError(t, tracker.Flush(context.Background()))

	require.Len(t, committer.commits, 1)
	byPartition := map[int]int64{}
	for _, m := range committer.commits[0] {
		byPartition[m.Partition] = m.Offset
	}
	assert.Equal(t, map[int]int64{0: 5, 1: 9}, byPartition)
}

func TestFlushWithNothingBufferedIsNoop(t *testing.T) {
	committer := &fakeCommitter{}
	tracker := NewOffsetTracker(committer)

	require.NoError(t, tracker.Flush(context.Background()))
	assert.Empty(t, committer.commits)
}

func TestBrokerErrorsSurfaceAndKeepProgress(t *testing.T) {
	committer := &fakeCommitter{err: errors.New("broker unavailable")}
	tracker := NewOffsetTracker(committer)

	err := tracker.Store(context.Background(), msg(0, 3))
	require.Error(t, err)

	// Progress is retained so the next flush can retry.
	committer.err = nil
	require.NoError(t, tracker.Flush(context.Background()))
	require.Len(t, committer.commits, 1)
	assert.Equal(t, int64(3), committer.commits[0][0].Offset)
}
