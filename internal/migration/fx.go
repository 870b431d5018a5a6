package migration

import (
	"github.com/rupeeback/verify/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(func(cfg config.Config, db *gorm.DB, log *zap.Logger) error {
		// The embedded migrations use postgres syntax; other dialects
		// (sqlite in tests, mysql deployments with external tooling)
		// manage their schema elsewhere.
		if cfg.DBType != "postgres" {
			log.Info("skipping embedded migrations", zap.String("db_type", cfg.DBType))
			return nil
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		log.Info("database migrations applied")
		return nil
	}),
)
