package license

import (
	"github.com/smartkeys/keyserver/internal/license/repository"
	"github.com/smartkeys/keyserver/internal/license/service"
	"go.uber.org/fx"
)

var Module = fx.Module("license.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
