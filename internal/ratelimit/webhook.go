package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/picklepickle/picklepay/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyWebhookIngress = "webhook:ingress:%s:%s"

// Limiter admits or rejects one request for a key.
type Limiter interface {
	Allow(ctx context.Context, provider, clientIP string) (*Result, error)
}

// WebhookLimiter caps callback traffic per provider and source address.
type WebhookLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewWebhookLimiter returns nil when Redis or a positive rate is not configured.
// A nil limiter admits everything.
func NewWebhookLimiter(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *WebhookLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" || cfg.WebhookRateLimit <= 0 || cfg.WebhookRateBurst <= 0 {
		log.Info("webhook rate limit disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("webhook rate limit enabled",
		zap.Float64("rate", cfg.WebhookRateLimit),
		zap.Int("burst", cfg.WebhookRateBurst),
	)
	return &WebhookLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.WebhookRateLimit,
		burst:  cfg.WebhookRateBurst,
	}
}

func (l *WebhookLimiter) Allow(ctx context.Context, provider, clientIP string) (*Result, error) {
	if l == nil {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyWebhookIngress, strings.ToLower(strings.TrimSpace(provider)), strings.TrimSpace(clientIP))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
