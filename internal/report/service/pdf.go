package service

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	batchdomain "github.com/freightauditlabs/freightaudit/internal/batch/domain"
)

// formatPDF renders a dispute summary letter: batch header, roll-up figures,
// then one line per discrepancy.
func (s *ExportService) formatPDF(batch *batchdomain.Batch, discrepancies []auditdomain.Discrepancy) ([]byte, error) {
	m := maroto.New(config.NewBuilder().Build())

	m.AddRow(12, text.NewCol(12, "Freight Audit Dispute Summary", props.Text{
		Size:  14,
		Style: fontstyle.Bold,
		Align: align.Center,
	}))
	m.AddRow(8, text.NewCol(12, fmt.Sprintf("Carrier: %s    Batch: %s", batch.Provider, batch.ID), props.Text{
		Size:  10,
		Align: align.Center,
	}))

	if summary := batch.Summary.Data(); summary != nil {
		m.AddRow(8, text.NewCol(12, fmt.Sprintf(
			"Invoices audited: %d    Discrepancies: %d    Total billed: %.2f    Recoverable: %.2f (%.2f%%)",
			summary.TotalInvoices,
			summary.TotalDiscrepancies,
			summary.TotalBilled,
			summary.TotalOvercharge,
			summary.OverchargeRate,
		), props.Text{Size: 9}))
	}

	m.AddRow(8, text.NewCol(12, "", props.Text{}))
	m.AddRow(7,
		text.NewCol(2, "AWB", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(3, "Check", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, "Severity", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, "Overcharge", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(3, "Dispute", props.Text{Size: 9, Style: fontstyle.Bold}),
	)

	for _, d := range discrepancies {
		m.AddRow(6,
			text.NewCol(2, d.AWBNumber, props.Text{Size: 8}),
			text.NewCol(3, string(d.CheckType), props.Text{Size: 8}),
			text.NewCol(2, string(d.Severity), props.Text{Size: 8}),
			text.NewCol(2, formatAmount(d.OverchargeAmount), props.Text{Size: 8, Align: align.Right}),
			text.NewCol(3, string(d.DisputeStatus), props.Text{Size: 8}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
