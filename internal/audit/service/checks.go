package service

import (
	"fmt"
	"math"
	"strconv"

	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	"github.com/freightauditlabs/freightaudit/internal/ratecard"
)

// tolerance is the rounding slack for every money comparison. A billed value
// is an overcharge only once it exceeds the expected value by at least one
// cent; exact equality never fires.
const (
	tolerance  = 0.01
	floatGuard = 1e-9
)

// exceeds reports whether billed overshoots expected by at least the
// tolerance. 30.01 vs 30.00 fires, 30.00 vs 30.00 does not.
func exceeds(billed, expected float64) bool {
	return billed-expected+floatGuard >= tolerance
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ptr(v float64) *float64 { return &v }

// CheckContext is the shared input of one check run: a single line item, the
// rate rule for its billed zone (nil when the contract has none), the frozen
// contract index, and the batch-wide duplicate bookkeeping.
type CheckContext struct {
	Item  *auditdomain.LineItem
	Rule  *ratecard.RateRule
	Index *ratecard.Index

	// Row is this item's zero-based position in the batch; FirstRow is the
	// position where this AWB was first seen. Row > FirstRow marks a duplicate.
	Row      int
	FirstRow int
}

// CheckFunc is a pure rule: same inputs, same output, no clock, no I/O.
type CheckFunc func(CheckContext) *auditdomain.Discrepancy

type registeredCheck struct {
	Type auditdomain.CheckType
	Run  CheckFunc
}

// checkRegistry fixes the evaluation order of the ten checks.
var checkRegistry = []registeredCheck{
	{auditdomain.CheckDuplicateAWB, checkDuplicateAWB},
	{auditdomain.CheckWeightOvercharge, checkWeightOvercharge},
	{auditdomain.CheckZoneMismatch, checkZoneMismatch},
	{auditdomain.CheckRateDeviation, checkRateDeviation},
	{auditdomain.CheckCODFeeMismatch, checkCODFeeMismatch},
	{auditdomain.CheckRTOOvercharge, checkRTOOvercharge},
	{auditdomain.CheckFuelSurchargeMismatch, checkFuelSurchargeMismatch},
	{auditdomain.CheckNonContractedSurcharge, checkNonContractedSurcharge},
	{auditdomain.CheckGSTMiscalculation, checkGSTMiscalculation},
	{auditdomain.CheckArithmeticTotalMismatch, checkArithmeticTotalMismatch},
}

// confidenceByCheck declares the static confidence per check type. Arithmetic
// checks are exact; rate checks inherit extraction noise from the contract;
// zone derivation is an estimate.
var confidenceByCheck = map[auditdomain.CheckType]float64{
	auditdomain.CheckDuplicateAWB:            1.0,
	auditdomain.CheckWeightOvercharge:        0.9,
	auditdomain.CheckZoneMismatch:            0.75,
	auditdomain.CheckRateDeviation:           0.85,
	auditdomain.CheckCODFeeMismatch:          0.88,
	auditdomain.CheckRTOOvercharge:           0.87,
	auditdomain.CheckFuelSurchargeMismatch:   0.9,
	auditdomain.CheckNonContractedSurcharge:  0.7,
	auditdomain.CheckGSTMiscalculation:       0.93,
	auditdomain.CheckArithmeticTotalMismatch: 1.0,
}

// unknownZoneConfidence replaces the zone_mismatch confidence when the billed
// zone has no contracted rule and only the derived zone is available.
const unknownZoneConfidence = 0.6

// checkDuplicateAWB flags every occurrence of an AWB after the first. The
// first occurrence is presumed legitimate; each repeat is recoverable in full.
func checkDuplicateAWB(cc CheckContext) *auditdomain.Discrepancy {
	if cc.FirstRow < 0 || cc.Row <= cc.FirstRow {
		return nil
	}
	return &auditdomain.Discrepancy{
		Description: fmt.Sprintf("AWB %s billed more than once (first seen at row %d)",
			cc.Item.AWBNumber, cc.FirstRow+1),
		BilledValue:      cc.Item.TotalBilled,
		OverchargeAmount: round2(cc.Item.TotalBilled),
		Severity:         auditdomain.SeverityCritical,
	}
}

// checkWeightOvercharge fires when the billed weight exceeds the recorded
// actual weight. The overcharge is the padded kilograms priced at the row's
// effective per-kg rate.
func checkWeightOvercharge(cc CheckContext) *auditdomain.Discrepancy {
	if cc.Rule == nil || cc.Item.ActualWeight == nil {
		return nil
	}
	billed, actual := cc.Item.WeightBilled, *cc.Item.ActualWeight
	if actual <= 0 || !exceeds(billed, actual) {
		return nil
	}

	effectiveRate := cc.Rule.BaseRate
	if billed > 0 && cc.Item.BaseFreight > 0 {
		effectiveRate = cc.Item.BaseFreight / billed
	}
	padding := billed - actual
	overcharge := round2(padding * effectiveRate)
	if overcharge <= 0 {
		return nil
	}

	severity := auditdomain.SeverityMedium
	if padding/actual > 0.20 {
		severity = auditdomain.SeverityHigh
	}

	return &auditdomain.Discrepancy{
		Description: fmt.Sprintf("billed weight %.2f kg exceeds actual %.2f kg by %.2f kg",
			billed, actual, padding),
		BilledValue:      billed,
		ExpectedValue:    ptr(actual),
		OverchargeAmount: overcharge,
		Severity:         severity,
	}
}

// checkZoneMismatch compares the billed zone against the zone derived from
// the origin/destination pincode pair. This is the only rate-aware check that
// still runs when the billed zone has no contracted rule, at reduced
// confidence.
func checkZoneMismatch(cc CheckContext) *auditdomain.Discrepancy {
	billedZone := ratecard.NormalizeZone(cc.Item.Zone)
	derived := deriveZone(cc.Item.OriginPincode, cc.Item.DestinationPincode)
	if billedZone == "" || derived == "" || derived == billedZone {
		return nil
	}

	d := &auditdomain.Discrepancy{
		Description: fmt.Sprintf("billed zone %s but pincodes %s->%s derive zone %s",
			billedZone, cc.Item.OriginPincode, cc.Item.DestinationPincode, derived),
		BilledValue: cc.Item.BaseFreight,
		Severity:    auditdomain.SeverityMedium,
	}
	if cc.Rule == nil {
		d.ConfidenceScore = unknownZoneConfidence
	}

	if rule, ok := cc.Index.RuleFor(derived); ok {
		d.ExpectedValue = ptr(rule.BaseRate)
		if delta := cc.Item.BaseFreight - rule.BaseRate; delta > 0 {
			d.OverchargeAmount = round2(delta)
		}
	}
	return d
}

// checkRateDeviation compares billed base freight against the contracted zone
// rate with zero tolerance beyond rounding slack.
func checkRateDeviation(cc CheckContext) *auditdomain.Discrepancy {
	if cc.Rule == nil {
		return nil
	}
	billed, expected := cc.Item.BaseFreight, cc.Rule.BaseRate
	if !exceeds(billed, expected) {
		return nil
	}
	delta := billed - expected

	severity := auditdomain.SeverityMedium
	if expected > 0 && delta > 0.20*expected {
		severity = auditdomain.SeverityHigh
	}

	return &auditdomain.Discrepancy{
		Description: fmt.Sprintf("base freight %.2f exceeds contracted rate %.2f for zone %s",
			billed, expected, cc.Rule.ZoneID),
		BilledValue:      billed,
		ExpectedValue:    ptr(expected),
		OverchargeAmount: round2(delta),
		Severity:         severity,
	}
}

func checkCODFeeMismatch(cc CheckContext) *auditdomain.Discrepancy {
	if cc.Rule == nil || cc.Item.CODFee <= 0 {
		return nil
	}
	expected := round2(cc.Item.BaseFreight * cc.Rule.CODPercentage / 100)
	if !exceeds(cc.Item.CODFee, expected) {
		return nil
	}
	return &auditdomain.Discrepancy{
		Description: fmt.Sprintf("COD fee %.2f exceeds contracted %.1f%% of base freight = %.2f",
			cc.Item.CODFee, cc.Rule.CODPercentage, expected),
		BilledValue:      cc.Item.CODFee,
		ExpectedValue:    ptr(expected),
		OverchargeAmount: round2(cc.Item.CODFee - expected),
		Severity:         auditdomain.SeverityMedium,
	}
}

func checkRTOOvercharge(cc CheckContext) *auditdomain.Discrepancy {
	if cc.Rule == nil || cc.Item.RTOFee <= 0 {
		return nil
	}
	expected := round2(cc.Item.BaseFreight * cc.Rule.RTOPercentage / 100)
	if !exceeds(cc.Item.RTOFee, expected) {
		return nil
	}
	return &auditdomain.Discrepancy{
		Description: fmt.Sprintf("RTO fee %.2f exceeds contracted %.1f%% of base freight = %.2f",
			cc.Item.RTOFee, cc.Rule.RTOPercentage, expected),
		BilledValue:      cc.Item.RTOFee,
		ExpectedValue:    ptr(expected),
		OverchargeAmount: round2(cc.Item.RTOFee - expected),
		Severity:         auditdomain.SeverityHigh,
	}
}

func checkFuelSurchargeMismatch(cc CheckContext) *auditdomain.Discrepancy {
	if cc.Rule == nil || cc.Item.FuelSurcharge <= 0 {
		return nil
	}
	expected := round2(cc.Item.BaseFreight * cc.Rule.FuelSurchargePercentage / 100)
	if !exceeds(cc.Item.FuelSurcharge, expected) {
		return nil
	}
	return &auditdomain.Discrepancy{
		Description: fmt.Sprintf("fuel surcharge %.2f exceeds contracted %.1f%% of base freight = %.2f",
			cc.Item.FuelSurcharge, cc.Rule.FuelSurchargePercentage, expected),
		BilledValue:      cc.Item.FuelSurcharge,
		ExpectedValue:    ptr(expected),
		OverchargeAmount: round2(cc.Item.FuelSurcharge - expected),
		Severity:         auditdomain.SeverityMedium,
	}
}

// checkNonContractedSurcharge aggregates every surcharge entry whose label is
// not in the contract's permitted set into one discrepancy; the full amount of
// each offending entry is recoverable.
func checkNonContractedSurcharge(cc CheckContext) *auditdomain.Discrepancy {
	var total float64
	var labels []string
	for _, s := range cc.Item.OtherSurcharges {
		if s.Amount <= 0 || cc.Index.SurchargePermitted(s.Label) {
			continue
		}
		total += s.Amount
		labels = append(labels, s.Label)
	}
	if total < tolerance {
		return nil
	}
	return &auditdomain.Discrepancy{
		Description: fmt.Sprintf("surcharges not in contract: %s (%.2f billed)",
			joinLabels(labels), total),
		BilledValue:      round2(total),
		ExpectedValue:    ptr(0),
		OverchargeAmount: round2(total),
		Severity:         auditdomain.SeverityHigh,
	}
}

// checkGSTMiscalculation recomputes GST over the contract-approved taxable
// base (the sum of billed components) and flags an inflated billed GST.
func checkGSTMiscalculation(cc CheckContext) *auditdomain.Discrepancy {
	if cc.Rule == nil {
		return nil
	}
	subtotal := componentSubtotal(cc.Item)
	if subtotal <= 0 {
		return nil
	}
	billedGST := cc.Item.TotalBilled - subtotal
	if billedGST <= 0 {
		return nil
	}
	expectedGST := round2(subtotal * cc.Rule.GSTPercentage / 100)
	if !exceeds(billedGST, expectedGST) {
		return nil
	}
	return &auditdomain.Discrepancy{
		Description: fmt.Sprintf("GST billed %.2f vs expected %.2f at %.1f%% of taxable base %.2f",
			billedGST, expectedGST, cc.Rule.GSTPercentage, subtotal),
		BilledValue:      round2(billedGST),
		ExpectedValue:    ptr(expectedGST),
		OverchargeAmount: round2(billedGST - expectedGST),
		Severity:         auditdomain.SeverityMedium,
	}
}

// checkArithmeticTotalMismatch verifies the row total against its own
// components grossed up by the row's GST rate. Fires on deviation in either
// direction beyond the rounding tolerance.
func checkArithmeticTotalMismatch(cc CheckContext) *auditdomain.Discrepancy {
	subtotal := componentSubtotal(cc.Item)
	computed := subtotal * (1 + cc.Item.GSTRate/100)
	delta := cc.Item.TotalBilled - computed
	if math.Abs(delta) <= tolerance+floatGuard {
		return nil
	}
	return &auditdomain.Discrepancy{
		Description: fmt.Sprintf("row total %.2f does not match computed %.2f from components",
			cc.Item.TotalBilled, computed),
		BilledValue:      cc.Item.TotalBilled,
		ExpectedValue:    ptr(round2(computed)),
		OverchargeAmount: round2(math.Abs(delta)),
		Severity:         auditdomain.SeverityLow,
	}
}

func componentSubtotal(item *auditdomain.LineItem) float64 {
	subtotal := item.BaseFreight + item.CODFee + item.RTOFee + item.FuelSurcharge
	for _, s := range item.OtherSurcharges {
		subtotal += s.Amount
	}
	return subtotal
}

// deriveZone estimates the shipping zone from the numeric distance between
// the first three digits of the two pincodes.
func deriveZone(origin, dest string) string {
	if len(origin) < 3 || len(dest) < 3 {
		return ""
	}
	o, err := strconv.Atoi(origin[:3])
	if err != nil {
		return ""
	}
	d, err := strconv.Atoi(dest[:3])
	if err != nil {
		return ""
	}

	diff := o - d
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return "LOCAL"
	case diff <= 30:
		return "ZONE_A"
	case diff <= 100:
		return "ZONE_B"
	case diff <= 300:
		return "ZONE_C"
	default:
		return "ZONE_D"
	}
}

func joinLabels(labels []string) string {
	out := ""
	for i, l := range labels {
		if i > 0 {
			out += ", "
		}
		out += l
	}
	return out
}
