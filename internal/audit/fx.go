package audit

import (
	"github.com/freightauditlabs/freightaudit/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.evaluator",
	fx.Provide(service.NewEvaluator),
)
