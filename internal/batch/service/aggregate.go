package service

import (
	"math"

	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	"github.com/freightauditlabs/freightaudit/internal/batch/domain"
)

// BuildSummary folds line items and discrepancies into the batch summary.
// TotalOvercharge always equals the sum over CheckTypeOvercharge.
func BuildSummary(items []auditdomain.LineItem, skipped int, discrepancies []auditdomain.Discrepancy) *domain.Summary {
	summary := &domain.Summary{
		TotalInvoices:       len(items),
		SkippedRows:         skipped,
		TotalDiscrepancies:  len(discrepancies),
		SeverityCounts:      map[string]int{},
		CheckTypeCounts:     map[string]int{},
		CheckTypeOvercharge: map[string]float64{},
	}

	for _, item := range items {
		summary.TotalBilled += item.TotalBilled
	}

	for _, d := range discrepancies {
		summary.SeverityCounts[string(d.Severity)]++
		summary.CheckTypeCounts[string(d.CheckType)]++
		summary.CheckTypeOvercharge[string(d.CheckType)] += d.OverchargeAmount
		summary.TotalOvercharge += d.OverchargeAmount
	}

	summary.TotalBilled = round2(summary.TotalBilled)
	summary.TotalOvercharge = round2(summary.TotalOvercharge)
	for check, amount := range summary.CheckTypeOvercharge {
		summary.CheckTypeOvercharge[check] = round2(amount)
	}
	if summary.TotalBilled > 0 {
		summary.OverchargeRate = round2(summary.TotalOvercharge / summary.TotalBilled * 100)
	}
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
