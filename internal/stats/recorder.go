// Package stats tracks per-tool operational counters in redis: how often
// a tool runs, how often the clarify round triggers, how often the repair
// path fires, and a smoothed latency. The counters are observability
// glue, not engine state; a nil Recorder disables recording entirely.
package stats

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dileep-u-k/toolforge/internal/version"
)

// alpha is the EWMA smoothing factor for the latency field.
const alpha = 0.1

// Recorder writes per-tool counters to redis.
type Recorder struct {
	rdb *redis.Client
}

// NewRecorder wires the recorder to a redis client.
func NewRecorder(rdb *redis.Client) *Recorder {
	return &Recorder{rdb: rdb}
}

// RecordExecution updates a tool's counters after a successful execution.
// clarified marks a clarify short-circuit, repaired marks a run of the
// repair path. Errors are logged, never surfaced: losing a counter update
// must not affect the request that triggered it.
func (r *Recorder) RecordExecution(ctx context.Context, slug string, latency time.Duration, clarified, repaired bool) {
	if r == nil {
		return
	}
	key := version.StatsKey(slug)

	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, key, "total_runs", 1)
	if clarified {
		pipe.HIncrBy(ctx, key, "clarify_rounds", 1)
	}
	if repaired {
		pipe.HIncrBy(ctx, key, "repairs", 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Error updating stats counters for %s: %v", slug, err)
		return
	}

	r.updateLatency(ctx, key, slug, latency)
}

// RecordFailure bumps the failure counter for a tool, tagged by error
// kind (e.g. "format", "upstream").
func (r *Recorder) RecordFailure(ctx context.Context, slug, kind string) {
	if r == nil {
		return
	}
	key := version.StatsKey(slug)
	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, key, "failures", 1)
	pipe.HIncrBy(ctx, key, "failures_"+kind, 1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Error updating failure counters for %s: %v", slug, err)
	}
}

// updateLatency folds one observation into the EWMA latency field under a
// WATCH transaction so concurrent updates do not clobber each other.
func (r *Recorder) updateLatency(ctx context.Context, key, slug string, latency time.Duration) {
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		currentStr, err := tx.HGet(ctx, key, "avg_latency_ms").Result()
		if err != nil && err != redis.Nil {
			return err
		}
		current, _ := strconv.ParseInt(currentStr, 10, 64)
		observed := float64(latency.Milliseconds())
		updated := int64(alpha*observed + (1.0-alpha)*float64(current))
		if current == 0 {
			updated = int64(observed)
		}
		_, err = tx.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "avg_latency_ms", updated)
			return nil
		})
		return err
	}, key)
	if err != nil {
		log.Printf("Error updating latency for %s: %v", slug, err)
	}
}

// RecordProviderHealth stores the outcome of a generator health probe.
func (r *Recorder) RecordProviderHealth(ctx context.Context, provider string, healthy bool) {
	if r == nil {
		return
	}
	status := "offline"
	if healthy {
		status = "online"
	}
	key := fmt.Sprintf("provider-health:%s:%s", version.ComponentVersions.Stats, provider)
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, key, "status", status)
	pipe.HSet(ctx, key, "last_check", time.Now().UTC().Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Error recording provider health for %s: %v", provider, err)
	}
}

// Snapshot returns a tool's raw counter fields for the stats endpoint.
func (r *Recorder) Snapshot(ctx context.Context, slug string) (map[string]string, error) {
	if r == nil {
		return map[string]string{}, nil
	}
	fields, err := r.rdb.HGetAll(ctx, version.StatsKey(slug)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stats for %s: %w", slug, err)
	}
	return fields, nil
}
