package alert

import (
	"github.com/freightauditlabs/freightaudit/internal/alert/repository"
	"github.com/freightauditlabs/freightaudit/internal/alert/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alert.service",
	fx.Provide(repository.NewAlertRepository),
	fx.Provide(service.NewService),
)
