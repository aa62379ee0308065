package dispute

import (
	"github.com/freightauditlabs/freightaudit/internal/dispute/repository"
	"github.com/freightauditlabs/freightaudit/internal/dispute/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dispute.service",
	fx.Provide(repository.NewDisputeRepository),
	fx.Provide(service.NewService),
)
