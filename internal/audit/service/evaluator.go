package service

import (
	"context"
	"runtime"
	"sync"

	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	"github.com/freightauditlabs/freightaudit/internal/ratecard"
	"go.uber.org/zap"
)

type Evaluator struct {
	log *zap.Logger
}

func NewEvaluator(log *zap.Logger) auditdomain.Evaluator {
	return &Evaluator{log: log.Named("audit.evaluator")}
}

// Evaluate runs the full check registry against every line item. Items are
// evaluated in parallel; each worker reads only the immutable index and its
// own item, so no locking is needed beyond the work queue. Results come back
// in line-item order, then registry order, so identical inputs always produce
// identical output.
func (e *Evaluator) Evaluate(ctx context.Context, items []auditdomain.LineItem, index *ratecard.Index) []auditdomain.Discrepancy {
	if len(items) == 0 {
		return nil
	}

	firstRowByAWB := make(map[string]int, len(items))
	for row, item := range items {
		if _, seen := firstRowByAWB[item.AWBNumber]; !seen {
			firstRowByAWB[item.AWBNumber] = row
		}
	}

	perItem := make([][]auditdomain.Discrepancy, len(items))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(items) {
		workers = len(items)
	}

	rows := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for row := range rows {
				perItem[row] = e.evaluateItem(row, &items[row], index, firstRowByAWB)
			}
		}()
	}
	for row := range items {
		rows <- row
	}
	close(rows)
	wg.Wait()

	var out []auditdomain.Discrepancy
	for _, ds := range perItem {
		out = append(out, ds...)
	}
	return out
}

func (e *Evaluator) evaluateItem(row int, item *auditdomain.LineItem, index *ratecard.Index, firstRowByAWB map[string]int) []auditdomain.Discrepancy {
	rule, _ := index.RuleFor(item.Zone)

	firstRow, ok := firstRowByAWB[item.AWBNumber]
	if !ok {
		firstRow = -1
	}

	cc := CheckContext{
		Item:     item,
		Rule:     rule,
		Index:    index,
		Row:      row,
		FirstRow: firstRow,
	}

	var found []auditdomain.Discrepancy
	for _, check := range checkRegistry {
		if d := e.runCheck(check, cc); d != nil {
			found = append(found, *d)
		}
	}
	return found
}

// runCheck isolates one check: a panic inside it is logged and absorbed so the
// remaining checks for the item still run.
func (e *Evaluator) runCheck(check registeredCheck, cc CheckContext) (d *auditdomain.Discrepancy) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("check evaluation failed",
				zap.String("check_type", string(check.Type)),
				zap.String("awb_number", cc.Item.AWBNumber),
				zap.Any("panic", r),
			)
			d = nil
		}
	}()

	d = check.Run(cc)
	if d == nil {
		return nil
	}

	d.CheckType = check.Type
	d.AWBNumber = cc.Item.AWBNumber
	d.LineItemID = cc.Item.ID
	if d.ConfidenceScore == 0 {
		d.ConfidenceScore = confidenceByCheck[check.Type]
	}
	d.DisputeStatus = auditdomain.DisputePending
	return d
}
