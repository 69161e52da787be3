package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/types"
	"github.com/yungbote/studypilot-backend/internal/utils"
)

// SolverCache is a lookaside cache for solved problems, keyed by normalized
// problem text. It is optional infrastructure: every method is nil-safe and
// cache failures only ever cost a cache miss.
type SolverCache interface {
	Get(ctx context.Context, key string) (*types.ToolResult, bool)
	Set(ctx context.Context, key string, result *types.ToolResult)
	Close() error
}

type solverCache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewSolverCache(log *logger.Logger) (SolverCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ttl := time.Duration(utils.GetEnvAsInt("SOLVER_CACHE_TTL_SECONDS", 86400, log)) * time.Second

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &solverCache{
		log:    log.With("service", "SolverCache"),
		rdb:    rdb,
		prefix: "solver:",
		ttl:    ttl,
	}, nil
}

func (c *solverCache) Get(ctx context.Context, key string) (*types.ToolResult, bool) {
	if c == nil || c.rdb == nil || key == "" {
		return nil, false
	}

	raw, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("Solver cache read failed", "error", err)
		}
		return nil, false
	}

	var result types.ToolResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.log.Warn("Solver cache payload corrupt, dropping", "key", key, "error", err)
		_ = c.rdb.Del(ctx, c.prefix+key).Err()
		return nil, false
	}
	return &result, true
}

func (c *solverCache) Set(ctx context.Context, key string, result *types.ToolResult) {
	if c == nil || c.rdb == nil || key == "" || result == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		c.log.Warn("Solver cache marshal failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("Solver cache write failed", "error", err)
	}
}

func (c *solverCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
