package stream

import (
	"context"
	"fmt"

	"assistant_server/adapter/in/worker"
	"assistant_server/pkg/logger"

	"github.com/goccy/go-json"
)

// Consumer bridges the Redis stream into the worker pool. Entries are acked
// once handed to the pool; from there the pool's retry and dead-letter
// handling own the job.
type Consumer struct {
	stream *RedisStream
	pool   *worker.Pool
	name   string
}

func NewConsumer(stream *RedisStream, pool *worker.Pool, name string) *Consumer {
	return &Consumer{
		stream: stream,
		pool:   pool,
		name:   name,
	}
}

func (c *Consumer) Start(ctx context.Context) {
	if err := c.stream.CreateGroup(ctx, StreamTriage); err != nil {
		logger.WithError(err).Error("failed to create consumer group for %s", StreamTriage)
	}

	go c.consume(ctx, StreamTriage)
}

func (c *Consumer) consume(ctx context.Context, stream string) {
	c.stream.Consume(ctx, stream, c.name, func(id string, data []byte) error {
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			logger.WithError(err).WithField("entry_id", id).Warn("unparseable stream entry, acking")
			return nil
		}

		msg := &worker.Message{
			ID:        job.ID,
			Type:      job.Type,
			Payload:   job.Payload,
			CreatedAt: job.CreatedAt,
		}

		if !c.pool.Submit(msg) {
			return fmt.Errorf("pool not accepting jobs")
		}
		return nil
	})
}
