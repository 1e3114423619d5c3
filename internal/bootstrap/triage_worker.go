package bootstrap

import (
	"context"
	"os"
	"sync"

	"assistant_server/adapter/in/worker"
	"assistant_server/config"
	"assistant_server/internal/stream"

	"github.com/rs/zerolog"
)

// Worker is the background triage process: a Redis stream consumer feeding a
// worker pool.
type Worker struct {
	pool     *worker.Pool
	consumer *stream.Consumer
	deps     *Dependencies
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	zlog     zerolog.Logger
}

func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "worker").Logger()

	handler := worker.NewHandler(deps.BodyStore, NewServiceFactory(deps), zlog)

	poolConfig := worker.DefaultPoolConfig()
	if cfg.WorkerMax > 0 {
		poolConfig.MaxWorkers = cfg.WorkerMax
	}
	if cfg.WorkerQueueSize > 0 {
		poolConfig.QueueSize = cfg.WorkerQueueSize
	}
	if cfg.WorkerBatchSize > 0 {
		poolConfig.BatchSize = cfg.WorkerBatchSize
	}

	pool := worker.NewPool(handler, poolConfig, zlog)

	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		pool:     pool,
		consumer: stream.NewConsumer(deps.Stream, pool, cfg.WorkerID),
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
		zlog:     zlog,
	}, cleanup, nil
}

func (w *Worker) Start() {
	w.pool.Start()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.zlog.Info().Msg("starting stream consumer")
		w.consumer.Start(w.ctx)
		<-w.ctx.Done()
	}()

	<-w.ctx.Done()
}

func (w *Worker) Stop() {
	w.cancel()
	w.pool.Stop()
	w.wg.Wait()
}

func (w *Worker) GetMetrics() worker.PoolMetrics {
	return w.pool.GetMetrics()
}
