package sequence

import (
	"github.com/UniqBrio/UniqBrio-sub017/internal/sequence/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence.service",
	fx.Provide(service.NewService),
)
