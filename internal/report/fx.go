package report

import (
	"github.com/freightauditlabs/freightaudit/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report.export",
	fx.Provide(service.NewExportService),
)
