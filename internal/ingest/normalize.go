package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	"gorm.io/datatypes"
)

var ErrInvalidLineItem = errors.New("invalid_line_item")

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006", time.RFC3339}

// NormalizeResult carries the typed rows plus the count of rows that were
// dropped as malformed. Dropped rows are not fatal; an empty result is the
// caller's problem to treat as batch-fatal.
type NormalizeResult struct {
	Items   []auditdomain.LineItem
	Skipped int
}

// Normalize converts raw rows into canonical line items. A row missing an AWB
// or carrying an unparseable or negative amount is skipped and counted.
func Normalize(rows []RawRow) NormalizeResult {
	result := NormalizeResult{Items: make([]auditdomain.LineItem, 0, len(rows))}
	for _, row := range rows {
		item, err := normalizeRow(row)
		if err != nil {
			result.Skipped++
			continue
		}
		result.Items = append(result.Items, item)
	}
	return result
}

func normalizeRow(row RawRow) (auditdomain.LineItem, error) {
	awb := strings.TrimSpace(row["awb_number"])
	if awb == "" {
		return auditdomain.LineItem{}, fmt.Errorf("%w: missing awb_number", ErrInvalidLineItem)
	}

	item := auditdomain.LineItem{
		AWBNumber:          awb,
		OriginPincode:      row["origin_pincode"],
		DestinationPincode: row["destination_pincode"],
		Zone:               row["zone"],
	}

	if raw := row["date"]; raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return auditdomain.LineItem{}, err
		}
		item.Date = parsed
	}

	amounts := []struct {
		dst  *float64
		name string
	}{
		{&item.WeightBilled, "weight_billed"},
		{&item.BaseFreight, "base_freight"},
		{&item.CODFee, "cod_fee"},
		{&item.RTOFee, "rto_fee"},
		{&item.FuelSurcharge, "fuel_surcharge"},
		{&item.GSTRate, "gst_rate"},
		{&item.TotalBilled, "total_billed"},
	}
	for _, a := range amounts {
		raw := row[a.name]
		if raw == "" {
			continue
		}
		v, err := parseAmount(raw)
		if err != nil {
			return auditdomain.LineItem{}, fmt.Errorf("%w: %s: %s", ErrInvalidLineItem, a.name, err)
		}
		if v < 0 {
			return auditdomain.LineItem{}, fmt.Errorf("%w: %s is negative", ErrInvalidLineItem, a.name)
		}
		*a.dst = v
	}

	if raw := row["actual_weight"]; raw != "" {
		v, err := parseAmount(raw)
		if err != nil || v < 0 {
			return auditdomain.LineItem{}, fmt.Errorf("%w: actual_weight", ErrInvalidLineItem)
		}
		item.ActualWeight = &v
	}

	surcharges, err := parseSurcharges(row["other_surcharges"])
	if err != nil {
		return auditdomain.LineItem{}, err
	}
	item.OtherSurcharges = surcharges

	return item, nil
}

// parseSurcharges accepts either a bare amount ("25.50", labelled "other") or
// labelled pairs ("Handling:10|ODA:25").
func parseSurcharges(raw string) (datatypes.JSONSlice[auditdomain.Surcharge], error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if !strings.Contains(raw, ":") {
		amount, err := parseAmount(raw)
		if err != nil || amount < 0 {
			return nil, fmt.Errorf("%w: other_surcharges", ErrInvalidLineItem)
		}
		if amount == 0 {
			return nil, nil
		}
		return datatypes.JSONSlice[auditdomain.Surcharge]{{Label: "other", Amount: amount}}, nil
	}

	var out datatypes.JSONSlice[auditdomain.Surcharge]
	for _, pair := range strings.FieldsFunc(raw, func(r rune) bool { return r == '|' || r == ';' }) {
		label, value, found := strings.Cut(pair, ":")
		if !found {
			return nil, fmt.Errorf("%w: other_surcharges entry %q", ErrInvalidLineItem, pair)
		}
		amount, err := parseAmount(value)
		if err != nil || amount < 0 {
			return nil, fmt.Errorf("%w: other_surcharges entry %q", ErrInvalidLineItem, pair)
		}
		out = append(out, auditdomain.Surcharge{Label: strings.TrimSpace(label), Amount: amount})
	}
	return out, nil
}

func parseAmount(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "₹")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q", raw)
	}
	return v, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidLineItem, raw)
}
