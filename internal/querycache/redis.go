// redis.go — рассылка инвалидаций между экземплярами через Redis Pub/Sub.
// Включается переменной MD_REDIS_URL; без неё кэш работает локально.
package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// invalidationMessage — сообщение в канале инвалидаций.
type invalidationMessage struct {
	Origin string `json:"origin"`
	Invalidation
}

// RedisBroadcaster — Broadcaster поверх Redis Pub/Sub.
type RedisBroadcaster struct {
	client   *redis.Client
	channel  string
	instance string
	logger   *slog.Logger
}

// NewRedisBroadcaster создаёт рассыльщик по URL вида redis://host:6379/0.
func NewRedisBroadcaster(redisURL, channel string, logger *slog.Logger) (*RedisBroadcaster, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("разбор MD_REDIS_URL: %w", err)
	}
	return newRedisBroadcaster(redis.NewClient(opts), channel, logger), nil
}

func newRedisBroadcaster(client *redis.Client, channel string, logger *slog.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{
		client:   client,
		channel:  channel,
		instance: uuid.NewString(),
		logger:   logger.With(slog.String("component", "cache_broadcaster")),
	}
}

// Ping проверяет доступность Redis.
func (b *RedisBroadcaster) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Publish публикует инвалидацию в канал.
func (b *RedisBroadcaster) Publish(ctx context.Context, inv Invalidation) error {
	payload, err := json.Marshal(invalidationMessage{Origin: b.instance, Invalidation: inv})
	if err != nil {
		return fmt.Errorf("сериализация инвалидации: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("публикация в %s: %w", b.channel, err)
	}
	return nil
}

// Run подписывается на канал и применяет чужие инвалидации к cache.
// Блокирует до отмены ctx.
func (b *RedisBroadcaster) Run(ctx context.Context, cache *Cache) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	b.logger.Info("Подписка на инвалидации кэша",
		slog.String("channel", b.channel),
		slog.String("instance", b.instance),
	)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handle(cache, msg.Payload)
		}
	}
}

// handle разбирает сообщение и применяет его, пропуская собственные.
func (b *RedisBroadcaster) handle(cache *Cache, payload string) {
	var m invalidationMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		b.logger.Warn("Некорректное сообщение инвалидации", slog.String("error", err.Error()))
		return
	}
	if m.Origin == b.instance || m.Kind == "" {
		return
	}
	cache.ApplyRemote(m.Invalidation)
}

// Close закрывает соединение с Redis.
func (b *RedisBroadcaster) Close() error {
	return b.client.Close()
}
