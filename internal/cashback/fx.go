package cashback

import (
	"github.com/rupeeback/verify/internal/cashback/repository"
	"github.com/rupeeback/verify/internal/cashback/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cashback",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
