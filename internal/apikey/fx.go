package apikey

import (
	"github.com/UniqBrio/UniqBrio-sub017/internal/apikey/repository"
	"github.com/UniqBrio/UniqBrio-sub017/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
