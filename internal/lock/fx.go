package lock

import (
	"errors"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/constructtrack/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lock",
	fx.Provide(Provide),
)

type Params struct {
	fx.In

	Cfg    config.Config
	Log    *zap.Logger
	Client *redis.Client `optional:"true"`
}

func Provide(p Params) (Locker, error) {
	switch p.Cfg.LockBackend {
	case config.BackendRedis:
		if p.Client == nil {
			return nil, errors.New("LOCK_BACKEND=redis requires REDIS_ADDR")
		}
		p.Log.Info("using redis locks", zap.Duration("ttl", p.Cfg.LockTTL))
		return NewRedis(p.Client, p.Cfg.LockTTL), nil
	default:
		return NewLocal(), nil
	}
}
