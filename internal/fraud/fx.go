package fraud

import (
	"github.com/rupeeback/verify/internal/fraud/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fraud.service",
	fx.Provide(service.New),
)
