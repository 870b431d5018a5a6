package imagestore

import (
	"github.com/rupeeback/verify/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("imagestore",
	fx.Provide(func(cfg config.Config, log *zap.Logger) (Store, error) {
		return NewLocalStore(cfg.ImageDir, "/images", log)
	}),
)
