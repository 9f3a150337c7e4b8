package earnings

import (
	"github.com/trovio/settled/internal/earnings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("earnings.service",
	fx.Provide(service.New),
)
