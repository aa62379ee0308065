package domain

import (
	"context"

	"github.com/freightauditlabs/freightaudit/internal/ratecard"
)

// Evaluator runs every applicable check against every line item. Output order
// is deterministic: line-item order, then check registry order.
type Evaluator interface {
	Evaluate(ctx context.Context, items []LineItem, index *ratecard.Index) []Discrepancy
}
