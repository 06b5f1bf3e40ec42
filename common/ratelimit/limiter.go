// Package ratelimit provides fixed-window request limiting backed by a Redis
// Lua script, so every replica counts against the same windows.
package ratelimit

import (
	"context"
	_ "embed"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/redis"
)

//go:embed rate_limit.lua
var rateLimitScript string

const keyPrefix = "novaintel:ratelimit:"

// Result contains one limit decision.
type Result struct {
	Allowed           bool  // whether the request fits the window
	CurrentCount      int64 // count in the window, this request included
	Limit             int64 // the limit that was checked
	RetryAfterSeconds int64 // seconds until the window resets, 0 if allowed
}

// Limiter counts requests atomically in Redis.
type Limiter struct {
	redis  *redis.Client
	script *goredis.Script
	log    *logger.Logger
}

// New creates a limiter with the embedded Lua script.
func New(rdb *redis.Client, log *logger.Logger) *Limiter {
	return &Limiter{
		redis:  rdb,
		script: goredis.NewScript(rateLimitScript),
		log:    log,
	}
}

// CheckGlobal counts the request against the service-wide window.
func (l *Limiter) CheckGlobal(ctx context.Context, limit int64, windowSec int) (*Result, error) {
	return l.check(ctx, keyPrefix+"global", limit, windowSec)
}

// CheckProject counts the request against one project's window.
func (l *Limiter) CheckProject(ctx context.Context, projectID string, limit int64, windowSec int) (*Result, error) {
	return l.check(ctx, keyPrefix+"project:"+projectID, limit, windowSec)
}

// CheckClient counts the request against one client address's window, for
// routes that carry no project ID.
func (l *Limiter) CheckClient(ctx context.Context, addr string, limit int64, windowSec int) (*Result, error) {
	return l.check(ctx, keyPrefix+"client:"+addr, limit, windowSec)
}

func (l *Limiter) check(ctx context.Context, key string, limit int64, windowSec int) (*Result, error) {
	raw, err := l.script.Run(ctx, l.redis.GetUnderlying(), []string{key}, limit, windowSec).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	// The script returns {allowed, current_count, limit, retry_after}.
	vals, ok := raw.([]interface{})
	if !ok || len(vals) != 4 {
		return nil, fmt.Errorf("unexpected rate limit script result: %v", raw)
	}

	res := &Result{
		Allowed:           vals[0].(int64) == 1,
		CurrentCount:      vals[1].(int64),
		Limit:             vals[2].(int64),
		RetryAfterSeconds: vals[3].(int64),
	}
	if !res.Allowed {
		l.log.Warn("rate limit exceeded",
			"key", key, "current", res.CurrentCount, "limit", res.Limit,
			"retry_after", res.RetryAfterSeconds)
	}
	return res, nil
}

// CurrentCount returns a window's count without incrementing it.
func (l *Limiter) CurrentCount(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.GetUnderlying().Get(ctx, keyPrefix+key).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	return count, err
}

// Reset clears a window.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.redis.GetUnderlying().Del(ctx, keyPrefix+key).Err()
}
