package server

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"ChainPulse/internal/usecase"
	"ChainPulse/pkg/cache"
	"ChainPulse/pkg/config"
	xhttp "ChainPulse/pkg/http"
	pkgkafka "ChainPulse/pkg/kafka"
	"ChainPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *xhttp.Server
	scheduler  *usecase.Scheduler
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	producer   *pkgkafka.Producer
	redis      *cache.RedisCache
}

// New creates a new App instance. consumer, producer and redis are nil
// when the matching integration is disabled.
func New(
	cfg *config.Config,
	l *logger.Logger,
	httpServer *xhttp.Server,
	scheduler *usecase.Scheduler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	producer *pkgkafka.Producer,
	redis *cache.RedisCache,
) *App {
	return &App{
		cfg:        cfg,
		log:        l,
		httpServer: httpServer,
		scheduler:  scheduler,
		consumer:   consumer,
		kh:         kh,
		producer:   producer,
		redis:      redis,
	}
}

// Run starts every component and blocks until ctx is done or the process
// receives SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.start(ctx); err != nil {
		_ = a.shutdown()
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) start(ctx context.Context) error {
	if a.producer != nil {
		a.log.AddCollector(&logger.CollectionConfig{
			TimeInterval: 30 * time.Second,
			Topic:        a.cfg.Kafka.LogTopic,
			Publisher:    a.producer,
		})
	}

	if a.scheduler != nil && len(a.scheduler.Jobs()) > 0 {
		if err := a.scheduler.Start(ctx); err != nil {
			return err
		}
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka consumer started", logger.String("topic", a.kh.Topic()))
	}

	return a.httpServer.Start()
}

// shutdown stops intake first and closes the outbound clients last.
func (a *App) shutdown() error {
	a.log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", logger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.log.Warn("scheduler stop error", logger.Error(err))
			errs = append(errs, err)
		}
	}

	a.log.RemoveCollector()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", logger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close error", logger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
