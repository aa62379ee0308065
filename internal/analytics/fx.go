package analytics

import (
	"github.com/freightauditlabs/freightaudit/internal/analytics/domain"
	"github.com/freightauditlabs/freightaudit/internal/analytics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics.service",
	fx.Provide(service.NewService),
	fx.Provide(func(svc domain.Service) domain.Invalidator { return svc }),
)
