package release

import (
	"github.com/smartkeys/keyserver/internal/release/repository"
	"github.com/smartkeys/keyserver/internal/release/service"
	"go.uber.org/fx"
)

var Module = fx.Module("release.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
