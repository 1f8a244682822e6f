package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/utils"
)

const (
	CounterDocumentProcessed = "document_processed"
	CounterDocumentFailed    = "document_failed"
)

// Sink is a monotonic counter store. The pipeline only increments; reads
// belong to whatever dashboards sit on top.
type Sink interface {
	Incr(ctx context.Context, name string) error
}

type redisSink struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedisSink builds the counter store from env. Counters live under the
// "metrics:" key prefix.
func NewRedisSink(log *logger.Logger) (Sink, error) {
	if log == nil {
		return nil, fmt.Errorf("metrics: logger required")
	}

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("metrics: missing env var REDIS_ADDR")
	}
	password := utils.GetEnv("REDIS_PASSWORD", "", log)
	db := utils.GetEnvAsInt("REDIS_DB", 2, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("metrics: redis ping: %w", err)
	}

	return &redisSink{
		log: log.With("service", "RedisMetricsSink"),
		rdb: rdb,
	}, nil
}

func (s *redisSink) Incr(ctx context.Context, name string) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("metrics: sink not initialized")
	}
	return s.rdb.Incr(ctx, "metrics:"+name).Err()
}

// NopSink keeps the pipeline wirable when no Redis is configured.
type NopSink struct{}

func (NopSink) Incr(ctx context.Context, name string) error { return nil }
