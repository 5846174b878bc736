package securityevent

import (
	"github.com/framecraft/studio/internal/securityevent/anomaly"
	"github.com/framecraft/studio/internal/securityevent/domain"
	"github.com/framecraft/studio/internal/securityevent/repository"
	"github.com/framecraft/studio/internal/securityevent/service"
	"go.uber.org/fx"
)

var Module = fx.Module("securityevent.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s domain.Service) domain.Recorder { return s }),
	fx.Provide(anomaly.NewDetector),
)
