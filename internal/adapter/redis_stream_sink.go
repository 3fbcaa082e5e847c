package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"slide-capture/internal/cache"
	"slide-capture/internal/domain"
	"slide-capture/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStreamSink hands responses to the aggregator through one Redis stream
// per slide. It is a transport, not storage: streams are trimmed to MaxLen.
type RedisStreamSink struct {
	client *redis.Client
	maxLen int64
}

// NewRedisStreamSink expects a connected client. maxLen <= 0 disables trimming.
func NewRedisStreamSink(client *redis.Client, maxLen int64) *RedisStreamSink {
	return &RedisStreamSink{client: client, maxLen: maxLen}
}

// StreamKey is the stream a slide's responses are appended to.
func StreamKey(slideID string) string {
	return cache.GenerateCacheKey("capture", "responses", slideID)
}

func (s *RedisStreamSink) Emit(ctx context.Context, response *domain.InteractionResponse) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response %s: %w", response.ID, err)
	}

	args := &redis.XAddArgs{
		Stream: StreamKey(response.SlideID),
		Values: []interface{}{
			"id", response.ID,
			"interaction_id", response.InteractionID,
			"payload", string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	entryID, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		logger.Get().Error("RedisStreamSink: failed to append response",
			zap.String("stream", args.Stream),
			zap.String("response_id", response.ID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to append response %s to %s: %w", response.ID, args.Stream, err)
	}
	logger.Get().Debug("RedisStreamSink: response appended",
		zap.String("stream", args.Stream),
		zap.String("entry_id", entryID),
	)
	return nil
}

// Ping checks the health of the Redis server.
func (s *RedisStreamSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ domain.ResponseSink = (*RedisStreamSink)(nil)
