package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ShapeFinder/pkg/logger"
)

// RedisQueue is a list-backed work queue. Failed messages wait in a sorted
// set until their retry time and go to a dead-letter list after RetryLimit.
type RedisQueue struct {
	logger    *logger.Logger
	config    QueueConfig
	client    *redis.Client
	jobs      map[string]Job
	wg        sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	keyPrefix string
	now       func() time.Time
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets custom key prefix.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		r.keyPrefix = prefix
	}
}

// NewRedisQueue creates a queue on client. Start launches the workers.
func NewRedisQueue(lgr *logger.Logger, cfg QueueConfig, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	if cfg.PollWait <= 0 {
		cfg.PollWait = time.Second
	}
	if lgr == nil {
		lgr = logger.Nop()
	}
	rq := &RedisQueue{
		logger:    lgr,
		config:    cfg,
		client:    client,
		jobs:      make(map[string]Job),
		keyPrefix: "shapefinder:queue",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

// RegisterJob registers the handler for job.Type(). Register before Start.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.Type()]; exists {
		r.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.logger.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// Start pings Redis and launches the workers and the retry mover.
func (r *RedisQueue) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("queue already running")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.running = true
	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}
	r.wg.Add(1)
	go r.retryProcessor(ctx)

	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("addr", r.client.Options().Addr))
	return nil
}

// Stop cancels the workers and waits for them up to ctx.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for queue workers: %w", ctx.Err())
	case <-done:
		r.logger.Info("redis queue stopped gracefully")
		return nil
	}
}

// Enqueue pushes a message and returns its id. Payloads are JSON encoded.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	r.mu.RLock()
	_, known := r.jobs[msgType]
	r.mu.RUnlock()
	if !known {
		return "", fmt.Errorf("no job registered for type: %s", msgType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	msg := Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: r.now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.queueKey(), data).Err(); err != nil {
		return "", fmt.Errorf("lpush: %w", err)
	}
	return msg.ID, nil
}

// DeadLetters returns up to n messages that exhausted their retries, newest first.
func (r *RedisQueue) DeadLetters(ctx context.Context, n int64) ([]Message, error) {
	raw, err := r.client.LRange(ctx, r.deadLetterKey(), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(raw))
	for _, s := range raw {
		var m Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *RedisQueue) worker(ctx context.Context, id int) {
	defer r.wg.Done()
	for ctx.Err() == nil {
		result, err := r.client.BRPop(ctx, r.config.PollWait, r.queueKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			r.logger.Error("brpop error", logger.Int("worker_id", id), logger.Error(err))
			sleepCtx(ctx, time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
			r.logger.Error("unmarshal message", logger.Error(err))
			continue
		}
		r.process(ctx, msg)
	}
}

func (r *RedisQueue) process(ctx context.Context, msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.logger.Error("no job found", logger.String("type", msg.Type), logger.String("id", msg.ID))
		r.moveToDeadLetterQueue(ctx, msg)
		return
	}

	start := r.now()
	err := job.Handle(ctx, msg.Payload)
	if err == nil {
		r.logger.Debug("job done",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Duration("elapsed_ms", r.now().Sub(start)))
		return
	}
	if errors.Is(err, context.Canceled) {
		// Shutdown interrupted the job; put it back for the next run.
		r.scheduleRetry(context.WithoutCancel(ctx), msg, r.now())
		return
	}

	r.logger.Error("job failed",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Bool("permanent", IsPermanent(err)),
		logger.Error(err))
	if msg.Attempts < r.config.RetryLimit && !IsPermanent(err) {
		msg.Attempts++
		r.scheduleRetry(ctx, msg, r.now().Add(r.config.RetryDelay))
		return
	}
	r.moveToDeadLetterQueue(ctx, msg)
}

func (r *RedisQueue) scheduleRetry(ctx context.Context, msg Message, at time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal retry", logger.Error(err))
		return
	}
	if err := r.client.ZAdd(ctx, r.retryKey(), redis.Z{Score: float64(at.Unix()), Member: data}).Err(); err != nil {
		r.logger.Error("zadd retry", logger.Error(err))
	}
}

func (r *RedisQueue) moveToDeadLetterQueue(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal dlq", logger.Error(err))
		return
	}
	if err := r.client.LPush(context.WithoutCancel(ctx), r.deadLetterKey(), data).Err(); err != nil {
		r.logger.Error("lpush dlq", logger.Error(err))
	}
}

func (r *RedisQueue) retryProcessor(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.config.PollWait)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.moveDueRetries(ctx)
		}
	}
}

// moveDueRetries pushes retries whose time has come back onto the main list.
func (r *RedisQueue) moveDueRetries(ctx context.Context) {
	due, err := r.client.ZRangeByScore(ctx, r.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(r.now().Unix(), 10),
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("fetch retry messages", logger.Error(err))
		}
		return
	}
	for _, member := range due {
		pipe := r.client.TxPipeline()
		pipe.ZRem(ctx, r.retryKey(), member)
		pipe.LPush(ctx, r.queueKey(), member)
		if _, err := pipe.Exec(ctx); err != nil {
			if ctx.Err() == nil {
				r.logger.Error("move retry to queue", logger.Error(err))
			}
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (r *RedisQueue) queueKey() string {
	return r.keyPrefix + ":messages"
}

func (r *RedisQueue) retryKey() string {
	return r.keyPrefix + ":retry"
}

func (r *RedisQueue) deadLetterKey() string {
	return r.keyPrefix + ":dlq"
}
