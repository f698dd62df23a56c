package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"ShapeFinder/pkg/logger"
)

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	WorkerCount int
	BufferSize  int // fetched messages waiting for a worker
	RetryMax    int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string // empty disables dead-lettering
	MinBytes    int
	MaxBytes    int
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) { c.Brokers = brokers }
}

func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) { c.GroupID = groupID }
}

func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if count > 0 {
			c.WorkerCount = count
		}
	}
}

// WithConsumerRetry sets how often a failing message is retried and the
// backoff range between attempts.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax, c.BackoffMin, c.BackoffMax = max, backoffMin, backoffMax
	}
}

func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQTopic = topic }
}

func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// PermanentError marks a handler error that no retry can fix. The consumer
// sends such messages to the DLQ on the first failure.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err or anything it wraps is a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer fetches from one reader per registered topic and fans messages
// out to a worker pool. Failed messages are retried with backoff, then sent
// to the DLQ topic when one is configured. Offsets are committed after
// success or after a DLQ write.
type Consumer struct {
	cfg      *ConsumerConfig
	log      *logger.Logger
	readers  map[string]messageReader
	handlers map[string]MessageHandler
	hook     ConsumerHook
	dlq      messageWriter
	msgChan  chan kafka.Message

	newReader func(topic string) messageReader

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(log *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "shapefinder",
		WorkerCount: 1,
		BufferSize:  16,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if log == nil {
		log = logger.Nop()
	}

	c := &Consumer{
		cfg:      cfg,
		log:      log,
		readers:  make(map[string]messageReader),
		handlers: make(map[string]MessageHandler),
		hook:     NoopHook{},
		msgChan:  make(chan kafka.Message, cfg.BufferSize),
	}
	c.newReader = func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    topic,
			GroupID:  cfg.GroupID,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
		})
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		}
	}
	initConsumerMetrics()
	return c, nil
}

// RegisterHandler registers a message handler for its topic.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("kafka consumer: handler already registered", logger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// WithConsumerHook sets a hook implementation for lifecycle events.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// Start launches readers and workers. They run until Stop.
func (c *Consumer) Start(ctx context.Context) error {
	if len(c.handlers) == 0 {
		return errors.New("no handlers registered")
	}
	ctx, c.cancel = context.WithCancel(ctx)

	var fetchers sync.WaitGroup
	for topic := range c.handlers {
		reader := c.newReader(topic)
		c.readers[topic] = reader
		fetchers.Add(1)
		go func() {
			defer fetchers.Done()
			c.fetch(ctx, topic, reader)
		}()
	}
	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}
	// Workers drain msgChan until every fetcher has stopped.
	go func() {
		fetchers.Wait()
		close(c.msgChan)
	}()

	c.log.Info("kafka consumer: started",
		logger.Int("workers", c.cfg.WorkerCount),
		logger.String("group", c.cfg.GroupID))
	return nil
}

// Stop cancels fetching and waits for in-flight messages up to ctx.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		case <-done:
		}

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.log.Error("kafka consumer: close reader", logger.String("topic", topic), logger.Error(err))
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.log.Error("kafka consumer: close dlq writer", logger.Error(err))
			}
		}
		c.log.Info("kafka consumer: stopped")
	})
	return stopErr
}

func (c *Consumer) fetch(ctx context.Context, topic string, reader messageReader) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("kafka consumer: fetch", logger.String("topic", topic), logger.Error(err))
			if !sleepCtx(ctx, c.cfg.BackoffMin) {
				return
			}
			continue
		}
		select {
		case c.msgChan <- msg:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgChan)))
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) worker(ctx context.Context) {
	defer c.wg.Done()
	for msg := range c.msgChan {
		c.process(ctx, msg)
	}
}

// process handles one message end to end: hooks, retries, DLQ and commit.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	handler, ok := c.handlers[msg.Topic]
	if !ok {
		return
	}
	start := time.Now()
	ctx = WithStartTime(WithTraceID(ctx, ExtractTraceID(msg)), start)

	var err error
	for attempt := 1; ; attempt++ {
		err = c.handleOnce(ctx, handler, msg)
		if err == nil || attempt > c.cfg.RetryMax || IsPermanent(err) {
			break
		}
		c.hook.OnError(ctx, msg.Topic, msg, err)
		if !sleepCtx(ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)) {
			return
		}
	}

	result := "ok"
	if err != nil {
		result = "failed"
		c.log.Error("kafka consumer: handler failed",
			logger.String("topic", msg.Topic),
			logger.Int64("offset", msg.Offset),
			logger.Error(err))
		if c.dlq != nil {
			if dlqErr := c.dlq.WriteMessages(ctx, kafka.Message{
				Topic: c.cfg.DLQTopic,
				Key:   msg.Key,
				Value: msg.Value,
				Headers: append(msg.Headers,
					kafka.Header{Key: "source_topic", Value: []byte(msg.Topic)},
					kafka.Header{Key: "error", Value: []byte(err.Error())}),
			}); dlqErr != nil {
				c.log.Error("kafka consumer: dlq write", logger.String("topic", c.cfg.DLQTopic), logger.Error(dlqErr))
			} else {
				result = "dlq"
			}
		}
	}
	consumerHandled.WithLabelValues(msg.Topic, result).Inc()
	consumerHandleLatency.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())

	// A message that reached neither the handler nor the DLQ stays uncommitted
	// so it is redelivered.
	if result == "failed" {
		return
	}
	if reader := c.readers[msg.Topic]; reader != nil {
		c.commit(ctx, reader, msg)
	}
}

func (c *Consumer) handleOnce(ctx context.Context, handler MessageHandler, msg kafka.Message) (err error) {
	hctx, err := c.hook.BeforeHandle(ctx, msg.Topic, msg)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = &HookError{Code: "ERR_PANIC", Err: fmt.Errorf("handler panic: %v", r)}
		}
		c.hook.AfterHandle(hctx, msg.Topic, msg, err)
	}()
	return handler.Handle(hctx, msg.Value)
}

func (c *Consumer) commit(ctx context.Context, reader messageReader, msg kafka.Message) {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		err = reader.CommitMessages(cctx, msg)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Error("kafka consumer: commit", logger.String("topic", msg.Topic), logger.Error(err))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := max
	if attempt < 31 {
		exp = min * time.Duration(1<<uint(attempt-1))
	}
	if exp > max || exp <= 0 {
		exp = max
	}
	// jitter up to 50%
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}

var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandled       *prometheus.CounterVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerOnce          sync.Once
)

func initConsumerMetrics() {
	consumerOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "shapefinder_kafka_consumer_queue_depth", Help: "Messages waiting for a worker"},
			[]string{"topic"},
		)
		consumerHandled = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "shapefinder_kafka_consumer_messages_total", Help: "Messages handled by outcome"},
			[]string{"topic", "result"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "shapefinder_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
