package audit

import (
	"github.com/UniqBrio/UniqBrio-sub017/internal/audit/repository"
	"github.com/UniqBrio/UniqBrio-sub017/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
