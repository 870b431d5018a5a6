package bill

import (
	"github.com/rupeeback/verify/internal/bill/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("bill",
	fx.Provide(repository.Provide),
)
