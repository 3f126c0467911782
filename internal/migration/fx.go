package migration

import (
	"github.com/smallbiznis/constructtrack/internal/config"
	"github.com/smallbiznis/constructtrack/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Apply(conn, log.Named("migration")); err != nil {
			return err
		}
		if !cfg.Bootstrap.SeedDefaults {
			return nil
		}
		return seed.EnsureDefaults(conn, log, seed.Options{CompanyName: cfg.Bootstrap.CompanyName})
	}),
)

// Apply migrates conn with the strategy of its dialect: embedded SQL on
// Postgres, AutoMigrate elsewhere.
func Apply(conn *gorm.DB, log *zap.Logger) error {
	dialect := conn.Dialector.Name()
	if dialect != "postgres" {
		if err := AutoMigrate(conn); err != nil {
			return err
		}
		log.Info("schema migrated", zap.String("dialect", dialect), zap.String("strategy", "automigrate"))
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	version, err := RunMigrations(sqlDB)
	if err != nil {
		return err
	}
	log.Info("schema migrated", zap.String("dialect", dialect), zap.Uint("version", version))
	return nil
}
