package payout

import (
	"github.com/trovio/settled/internal/payout/repository"
	"github.com/trovio/settled/internal/payout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payout.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
