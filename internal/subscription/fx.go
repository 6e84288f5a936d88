package subscription

import (
	"github.com/UniqBrio/UniqBrio-sub017/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(service.NewService),
)
