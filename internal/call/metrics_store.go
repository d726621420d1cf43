package call

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const liveTTL = 24 * time.Hour

func MetricsRedisKey(callID string) string {
	return "call:" + callID + ":metrics"
}

func StatusRedisKey(callID string) string {
	return "call:" + callID + ":status"
}

// MetricsStore mirrors live call counters into redis so dashboards can poll
// without touching the pipeline. Everything here is best-effort: callers log
// failures and move on.
type MetricsStore struct {
	redis *redis.Client
}

func NewMetricsStore(redisClient *redis.Client) *MetricsStore {
	return &MetricsStore{redis: redisClient}
}

func (s *MetricsStore) MarkLive(ctx context.Context, callID string) error {
	return s.redis.Set(ctx, StatusRedisKey(callID), string(StatusActive), liveTTL).Err()
}

func (s *MetricsStore) MarkEnded(ctx context.Context, callID string) error {
	return s.redis.Set(ctx, StatusRedisKey(callID), string(StatusEnded), liveTTL).Err()
}

func (s *MetricsStore) LiveStatus(ctx context.Context, callID string) (string, error) {
	status, err := s.redis.Get(ctx, StatusRedisKey(callID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return status, err
}

func (s *MetricsStore) RecordTranscript(ctx context.Context, callID string, empty bool) error {
	key := MetricsRedisKey(callID)

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, "transcript_chunks", 1)
	if empty {
		pipe.HIncrBy(ctx, key, "empty_chunks", 1)
	}
	pipe.Expire(ctx, key, liveTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// WriteSummary overwrites the gauge fields of the call hash, typically once
// at stop with the final counters.
func (s *MetricsStore) WriteSummary(ctx context.Context, callID string, fields map[string]int64) error {
	if len(fields) == 0 {
		return nil
	}
	key := MetricsRedisKey(callID)

	values := make([]any, 0, len(fields)*2)
	for f, v := range fields {
		values = append(values, f, v)
	}

	pipe := s.redis.Pipeline()
	pipe.HSet(ctx, key, values...)
	pipe.Expire(ctx, key, liveTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Snapshot reads the call hash back as integers, skipping fields that do not
// parse.
func (s *MetricsStore) Snapshot(ctx context.Context, callID string) (map[string]int64, error) {
	data, err := s.redis.HGetAll(ctx, MetricsRedisKey(callID)).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(data))
	for field, raw := range data {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		out[field] = v
	}
	return out, nil
}

func (s *MetricsStore) Clear(ctx context.Context, callID string) error {
	return s.redis.Del(ctx, MetricsRedisKey(callID), StatusRedisKey(callID)).Err()
}
