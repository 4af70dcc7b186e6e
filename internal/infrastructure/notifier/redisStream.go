package notifier

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"trip_sentinel/internal/domain/entity"
)

const defaultStreamMaxLen = 10000

// RedisStream пишет события в Redis Stream для внешних потребителей
// (дашборды, интеграции). Обрезка по MAXLEN приблизительная, этого хватает.
type RedisStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStream(client *redis.Client, stream string) *RedisStream {
	return &RedisStream{
		client: client,
		stream: stream,
		maxLen: defaultStreamMaxLen,
	}
}

func (s *RedisStream) SendEvent(ctx context.Context, event entity.DealEvent) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"dealId":      event.DealID,
			"status":      event.Status.String(),
			"detail":      event.Detail,
			"destination": event.Deal.Destination,
			"price":       event.Deal.Price,
			"marketPrice": event.Deal.MarketPrice,
			"timestamp":   event.Timestamp.UnixMilli(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis.XAdd: %w", err)
	}

	return nil
}
