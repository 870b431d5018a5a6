package merchant

import (
	"github.com/rupeeback/verify/internal/cache"
	"github.com/rupeeback/verify/internal/merchant/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("merchant",
	fx.Provide(repository.Provide),
	fx.Provide(cache.NewMerchantCache),
)
