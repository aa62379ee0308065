// Package domain defines the cross-batch analytics report and its service
// contract.
package domain

import "context"

// CheckTypeTotal is one check's contribution across all completed batches,
// reported largest overcharge first.
type CheckTypeTotal struct {
	CheckType       string  `json:"check_type"`
	Count           int     `json:"count"`
	TotalOvercharge float64 `json:"total_overcharge"`
}

// ProviderScorecard aggregates completed batches per carrier. Key is the
// slugified provider name.
type ProviderScorecard struct {
	Key             string  `json:"key"`
	Provider        string  `json:"provider"`
	Batches         int     `json:"batches"`
	Invoices        int     `json:"invoices"`
	Discrepancies   int     `json:"discrepancies"`
	TotalBilled     float64 `json:"total_billed"`
	TotalOvercharge float64 `json:"total_overcharge"`
	OverchargeRate  float64 `json:"overcharge_rate"`
}

// MonthlyTrend buckets completed batches by creation month (YYYY-MM).
type MonthlyTrend struct {
	Month           string  `json:"month"`
	Batches         int     `json:"batches"`
	Invoices        int     `json:"invoices"`
	TotalBilled     float64 `json:"total_billed"`
	TotalOvercharge float64 `json:"total_overcharge"`
}

type Report struct {
	TotalBatches       int     `json:"total_batches"`
	TotalInvoices      int     `json:"total_invoices"`
	TotalDiscrepancies int     `json:"total_discrepancies"`
	TotalBilled        float64 `json:"total_billed"`
	TotalOvercharge    float64 `json:"total_overcharge"`
	// AvgOverchargeRate is the unweighted mean of per-batch overcharge
	// rates, zero when no batches completed.
	AvgOverchargeRate float64 `json:"avg_overcharge_rate"`

	CheckTypeTotals    []CheckTypeTotal    `json:"check_type_totals"`
	ProviderScorecards []ProviderScorecard `json:"provider_scorecards"`
	MonthlyTrends      []MonthlyTrend      `json:"monthly_trends"`
}

// Invalidator drops any cached report so the next read recomputes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Service interface {
	Invalidator
	Report(ctx context.Context) (Report, error)
}
