package paymentlock

import (
	"context"
	"strings"

	"github.com/picklepickle/picklepay/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.lock",
	fx.Provide(New),
)

// New picks the Redis locker when REDIS_ADDR is set so that api and
// scheduler processes share locks. Otherwise locks are process local.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Locker {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Info("payment lock: in-process")
		return NewLocalLocker()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("payment lock: redis", zap.String("addr", addr))
	return NewRedisLocker(client, cfg.LockTTL)
}
