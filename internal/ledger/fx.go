package ledger

import (
	"github.com/UniqBrio/UniqBrio-sub017/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(service.NewService),
)
