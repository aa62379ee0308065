package batch

import (
	"github.com/freightauditlabs/freightaudit/internal/batch/repository"
	"github.com/freightauditlabs/freightaudit/internal/batch/service"
	"go.uber.org/fx"
)

var Module = fx.Module("batch.service",
	fx.Provide(repository.NewBatchRepository),
	fx.Provide(service.NewService),
)
