package auth

import (
	"github.com/framecraft/studio/internal/auth/repository"
	"github.com/framecraft/studio/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
