package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type countingHandler struct {
	topic string
	fails int
	calls int
}

func (h *countingHandler) Topic() string { return h.topic }

func (h *countingHandler) Handle(_ context.Context, _ []byte) error {
	h.calls++
	if h.calls <= h.fails {
		return errors.New("boom")
	}
	return nil
}

func newTestConsumer(t *testing.T, h MessageHandler, dlq messageWriter, retries int) (*Consumer, *fakeReader) {
	t.Helper()
	c, err := NewConsumer(nil,
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(retries, time.Millisecond, 2*time.Millisecond))
	require.NoError(t, err)
	c.dlq = dlq
	c.cfg.DLQTopic = "dlq"
	c.RegisterHandler(h)
	r := &fakeReader{}
	c.readers[h.Topic()] = r
	return c, r
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	h := &countingHandler{topic: "in", fails: 2}
	c, r := newTestConsumer(t, h, nil, 3)

	c.process(context.Background(), kafka.Message{Topic: "in", Value: []byte("x")})

	assert.Equal(t, 3, h.calls)
	assert.Len(t, r.committed, 1)
}

func TestConsumerSendsToDLQAfterRetries(t *testing.T) {
	h := &countingHandler{topic: "in", fails: 100}
	dlq := &fakeWriter{}
	c, r := newTestConsumer(t, h, dlq, 2)

	var errs int
	c.WithConsumerHook(HookFuncs{Err: func(context.Context, string, kafka.Message, error) { errs++ }})
	c.process(context.Background(), kafka.Message{Topic: "in", Value: []byte("payload")})

	assert.Equal(t, 3, h.calls)
	assert.Equal(t, 2, errs)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "dlq", dlq.msgs[0].Topic)
	assert.Equal(t, []byte("payload"), dlq.msgs[0].Value)
	assert.Len(t, r.committed, 1, "offset is committed once the message is parked in the DLQ")
}

func TestConsumerLeavesUncommittedWhenDLQFails(t *testing.T) {
	h := &countingHandler{topic: "in", fails: 100}
	c, r := newTestConsumer(t, h, &fakeWriter{err: errors.New("down")}, 0)

	c.process(context.Background(), kafka.Message{Topic: "in"})

	assert.Equal(t, 1, h.calls)
	assert.Empty(t, r.committed)
}

type rejectingHandler struct {
	calls int
}

func (h *rejectingHandler) Topic() string { return "in" }

func (h *rejectingHandler) Handle(_ context.Context, _ []byte) error {
	h.calls++
	return Permanent(errors.New("bad payload"))
}

func TestConsumerSkipsRetriesForPermanentErrors(t *testing.T) {
	h := &rejectingHandler{}
	dlq := &fakeWriter{}
	c, r := newTestConsumer(t, h, dlq, 5)

	var errs int
	c.WithConsumerHook(HookFuncs{Err: func(context.Context, string, kafka.Message, error) { errs++ }})
	c.process(context.Background(), kafka.Message{Topic: "in", Value: []byte("{")})

	assert.Equal(t, 1, h.calls)
	assert.Zero(t, errs)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, []byte("{"), dlq.msgs[0].Value)
	assert.Len(t, r.committed, 1)
}

func TestPermanent(t *testing.T) {
	base := errors.New("bad")
	err := fmt.Errorf("handle: %w", Permanent(base))
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
	assert.NoError(t, Permanent(nil))
}

func TestConsumerStartStop(t *testing.T) {
	h := &countingHandler{topic: "in"}
	c, err := NewConsumer(nil, WithConsumerBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	c.RegisterHandler(h)
	c.newReader = func(string) messageReader { return &fakeReader{} }

	require.NoError(t, c.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}

func TestHookChainOrderAndPanicSafety(t *testing.T) {
	var order []string
	mk := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, _ kafka.Message) (context.Context, error) {
				order = append(order, "before-"+name)
				return ctx, nil
			},
			After: func(context.Context, string, kafka.Message, error) {
				order = append(order, "after-"+name)
			},
		}
	}
	chain := NewHookChain(mk("a"), nil, mk("b"))
	ctx, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{})
	require.NoError(t, err)
	chain.AfterHandle(ctx, "t", kafka.Message{}, nil)
	assert.Equal(t, []string{"before-a", "before-b", "after-b", "after-a"}, order)

	panicky := HookFuncs{Before: func(context.Context, string, kafka.Message) (context.Context, error) {
		panic("bad hook")
	}}
	_, err = NewHookChain(panicky).BeforeHandle(context.Background(), "t", kafka.Message{})
	var he *HookError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "ERR_PANIC", he.Code)
}

func TestProducerPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "snappy")

	require.NoError(t, p.Publish(context.Background(), "reports", []byte("k"), map[string]int{"n": 2}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "reports", w.msgs[0].Topic)

	var got map[string]int
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, 2, got["n"])

	w.err = errors.New("broker down")
	assert.Error(t, p.Publish(context.Background(), "reports", nil, "x"))
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, time.Second, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
}
