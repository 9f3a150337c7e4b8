package sellerlock

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/trovio/settled/internal/config"
	"go.uber.org/fx"
)

func provideClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

var Module = fx.Module("sellerlock",
	fx.Provide(
		provideClient,
		NewLocker,
	),
)
