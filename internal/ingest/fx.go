package ingest

import (
	"github.com/UniqBrio/UniqBrio-sub017/internal/ingest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ingest.service",
	fx.Provide(service.NewService),
)
