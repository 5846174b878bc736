package activity

import (
	"github.com/framecraft/studio/internal/activity/domain"
	"github.com/framecraft/studio/internal/activity/repository"
	"github.com/framecraft/studio/internal/activity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("activity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s domain.Service) domain.Recorder { return s }),
)
