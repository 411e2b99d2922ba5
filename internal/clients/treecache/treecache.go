package treecache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/types"
	"github.com/pathwise/pathwise-backend/internal/utils"
)

// Cache fronts FetchModuleTree with a redis TTL cache. Module trees are
// read-only from this subsystem's perspective, so a short TTL is the only
// invalidation needed.
type Cache interface {
	Get(ctx context.Context, moduleID uuid.UUID) (*types.Module, bool)
	Set(ctx context.Context, m *types.Module)
}

type redisCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// New connects to redis when REDIS_ADDR is set; otherwise it returns a
// pass-through cache so the engine runs without redis locally.
func New(log *logger.Logger) (Cache, error) {
	cacheLog := log.With("client", "TreeCache")

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		cacheLog.Info("REDIS_ADDR not set, module tree caching disabled")
		return noopCache{}, nil
	}
	ttl := utils.GetEnvAsDuration("TREE_CACHE_TTL", 5*time.Minute, log)

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

	return &redisCache{log: cacheLog, rdb: rdb, ttl: ttl}, nil
}

func treeKey(moduleID uuid.UUID) string { return "module_tree:" + moduleID.String() }

func (c *redisCache) Get(ctx context.Context, moduleID uuid.UUID) (*types.Module, bool) {
	raw, err := c.rdb.Get(ctx, treeKey(moduleID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("tree cache read failed", "module_id", moduleID, "error", err)
		}
		return nil, false
	}
	var m types.Module
	if err := json.Unmarshal(raw, &m); err != nil {
		c.log.Warn("tree cache entry corrupt, dropping", "module_id", moduleID, "error", err)
		_ = c.rdb.Del(ctx, treeKey(moduleID)).Err()
		return nil, false
	}
	return &m, true
}

func (c *redisCache) Set(ctx context.Context, m *types.Module) {
	if m == nil {
		return
	}
	raw, err := json.Marshal(m)
	if err != nil {
		c.log.Warn("tree cache encode failed", "module_id", m.ID, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, treeKey(m.ID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("tree cache write failed", "module_id", m.ID, "error", err)
	}
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context, moduleID uuid.UUID) (*types.Module, bool) { return nil, false }
func (noopCache) Set(ctx context.Context, m *types.Module)                          {}
