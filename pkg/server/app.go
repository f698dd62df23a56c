package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ShapeFinder/internal/service/ratelimit"
	"ShapeFinder/pkg/config"
	xhttp "ShapeFinder/pkg/http"
	pkgkafka "ShapeFinder/pkg/kafka"
	applogger "ShapeFinder/pkg/logger"
	"ShapeFinder/pkg/queue"
)

const limiterIdle = 10 * time.Minute

// Closer releases one resource at shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	jobs       *queue.RedisQueue
	limiter    *ratelimit.Limiter
	closers    []Closer
}

// New creates a new App. consumer, jobs and limiter are optional. Closers
// run in order after every component has stopped.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	jobs *queue.RedisQueue,
	limiter *ratelimit.Limiter,
	closers ...Closer,
) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		consumer:   consumer,
		jobs:       jobs,
		limiter:    limiter,
		closers:    closers,
	}
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

// Serve starts every component and blocks until ctx is done, then shuts down.
func (a *App) Serve(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.consumer != nil {
		if err := a.consumer.Start(runCtx); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			a.shutdown()
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.TopicRequests))
	}

	if a.jobs != nil {
		if err := a.jobs.Start(runCtx); err != nil {
			a.log.Error("job queue start error", applogger.Error(err))
			a.shutdown()
			return err
		}
	}

	if a.limiter != nil {
		go a.pruneLimiter(runCtx)
	}

	a.log.Info("shapefinder started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("backend", a.cfg.Storage.Backend),
		applogger.Int("port", a.cfg.Server.Port))

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	a.shutdown()
	return nil
}

// shutdown stops intake first (HTTP, consumer, queue), then releases
// resources. Errors are logged and do not stop the sequence.
func (a *App) shutdown() {
	a.log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.jobs != nil {
		if err := a.jobs.Stop(ctx); err != nil {
			a.log.Warn("job queue stop error", applogger.Error(err))
		}
	}
	for _, c := range a.closers {
		if c.Close == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.Name), applogger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
}

func (a *App) pruneLimiter(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Prune(limiterIdle); n > 0 {
				a.log.Debug("rate limiter pruned", applogger.Int("clients", n))
			}
		}
	}
}
