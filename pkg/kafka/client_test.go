package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cogsearch-go/internal/config"
	"cogsearch-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, context.Canceled
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type processorFunc func(ctx context.Context, task tasks.IngestTask) error

func (f processorFunc) Process(ctx context.Context, task tasks.IngestTask) error { return f(ctx, task) }

type memoryCounter struct {
	counts  map[string]int64
	deleted []string
	err     error
}

func (m *memoryCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	m.counts[key]++
	return redis.NewIntResult(m.counts[key], nil)
}

func (m *memoryCounter) Expire(context.Context, string, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (m *memoryCounter) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.deleted = append(m.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func message(t *testing.T, offset int64, task tasks.IngestTask) kafka.Message {
	t.Helper()
	v, err := json.Marshal(task)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: v}
}

var sampleTask = tasks.IngestTask{TaskID: "t1", IndexName: "docs", IndexKind: "cogsearch", FileName: "a.txt", Text: "hello"}

func TestConsumer_SuccessCommitsAndClearsCounter(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{message(t, 7, sampleTask)}}
	counter := &memoryCounter{counts: map[string]int64{}}
	var got []tasks.IngestTask
	c := &Consumer{r: r, attempts: counter, processor: processorFunc(func(_ context.Context, tk tasks.IngestTask) error {
		got = append(got, tk)
		return nil
	})}

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []tasks.IngestTask{sampleTask}, got)
	assert.Equal(t, []int64{7}, r.committed)
	assert.Equal(t, []string{"kafka:attempts:t1"}, counter.deleted)
	assert.True(t, r.closed)
}

func TestConsumer_MalformedMessageIsCommitted(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{{Offset: 1, Value: []byte("{not json")}}}
	c := &Consumer{r: r, processor: processorFunc(func(context.Context, tasks.IngestTask) error {
		t.Fatal("processor must not be called")
		return nil
	})}

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []int64{1}, r.committed)
}

func TestConsumer_FailureCommitsAfterMaxAttempts(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{message(t, 1, sampleTask), message(t, 1, sampleTask), message(t, 1, sampleTask)}}
	counter := &memoryCounter{counts: map[string]int64{}}
	c := &Consumer{r: r, attempts: counter, processor: processorFunc(func(context.Context, tasks.IngestTask) error {
		return errors.New("es down")
	})}

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, int64(3), counter.counts["kafka:attempts:t1"])
	assert.Equal(t, []int64{1}, r.committed)
}

func TestConsumer_RedisErrorLeavesOffset(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{message(t, 1, sampleTask)}}
	counter := &memoryCounter{counts: map[string]int64{}, err: errors.New("redis down")}
	c := &Consumer{r: r, attempts: counter, processor: processorFunc(func(context.Context, tasks.IngestTask) error {
		return errors.New("boom")
	})}

	require.NoError(t, c.Run(context.Background()))
	assert.Empty(t, r.committed)
}

func TestProducer_Produce(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{w: w}

	require.NoError(t, p.Produce(context.Background(), sampleTask))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "t1", string(w.msgs[0].Key))

	var decoded tasks.IngestTask
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, sampleTask, decoded)

	err := p.Produce(context.Background(), tasks.IngestTask{TaskID: "bad", IndexName: "docs", FileName: "a"})
	assert.Error(t, err)
	assert.Len(t, w.msgs, 1)
}

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, brokers(config.KafkaConfig{Brokers: "k1:9092, k2:9092,"}))
}
