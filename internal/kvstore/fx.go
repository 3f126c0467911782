package kvstore

import (
	"errors"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/constructtrack/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("kvstore",
	fx.Provide(Provide),
)

type Params struct {
	fx.In

	Cfg    config.Config
	DB     *gorm.DB
	Client *redis.Client `optional:"true"`
}

func Provide(p Params) (Store, error) {
	switch p.Cfg.BlobBackend {
	case config.BackendRedis:
		if p.Client == nil {
			return nil, errors.New("BLOB_BACKEND=redis requires REDIS_ADDR")
		}
		return NewRedis(p.Client, p.Cfg.AppName+":blob:"), nil
	default:
		return NewGorm(p.DB), nil
	}
}
