// Package ingest turns raw carrier CSV files into the canonical records the
// audit engine consumes. It is a boundary collaborator: everything past
// Normalize is typed and validated.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/freightauditlabs/freightaudit/internal/ratecard"
)

// RawRow is one invoice CSV row keyed by canonical column name.
type RawRow map[string]string

// columnAliases folds the column spellings seen across carriers onto one
// canonical name.
var columnAliases = map[string]string{
	"awb":                 "awb_number",
	"awb_no":              "awb_number",
	"awb_number":          "awb_number",
	"waybill":             "awb_number",
	"date":                "date",
	"shipment_date":       "date",
	"invoice_date":        "date",
	"origin":              "origin_pincode",
	"origin_pincode":      "origin_pincode",
	"origin_pin":          "origin_pincode",
	"destination":         "destination_pincode",
	"destination_pincode": "destination_pincode",
	"dest_pincode":        "destination_pincode",
	"dest_pin":            "destination_pincode",
	"weight":              "weight_billed",
	"weight_billed":       "weight_billed",
	"billed_weight":       "weight_billed",
	"chargeable_weight":   "weight_billed",
	"actual_weight":       "actual_weight",
	"dead_weight":         "actual_weight",
	"zone":                "zone",
	"billing_zone":        "zone",
	"base_freight":        "base_freight",
	"freight":             "base_freight",
	"freight_charge":      "base_freight",
	"cod":                 "cod_fee",
	"cod_fee":             "cod_fee",
	"cod_charges":         "cod_fee",
	"rto":                 "rto_fee",
	"rto_fee":             "rto_fee",
	"rto_charges":         "rto_fee",
	"fuel":                "fuel_surcharge",
	"fuel_surcharge":      "fuel_surcharge",
	"fsc":                 "fuel_surcharge",
	"other_surcharges":    "other_surcharges",
	"other_charges":       "other_surcharges",
	"surcharges":          "other_surcharges",
	"gst":                 "gst_rate",
	"gst_rate":            "gst_rate",
	"gst_pct":             "gst_rate",
	"total":               "total_billed",
	"total_billed":        "total_billed",
	"total_amount":        "total_billed",
	"invoice_amount":      "total_billed",
}

// ParseInvoice reads an invoice CSV into raw rows. Unknown columns are
// dropped; rows shorter than the header are skipped here and counted later by
// normalization only if they carried an AWB.
func ParseInvoice(r io.Reader) ([]RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read invoice csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := make([]string, len(records[0]))
	for i, col := range records[0] {
		header[i] = columnAliases[normalizeColumn(col)]
	}

	rows := make([]RawRow, 0, len(records)-1)
	for _, record := range records[1:] {
		row := RawRow{}
		for i, value := range record {
			if i >= len(header) || header[i] == "" {
				continue
			}
			row[header[i]] = strings.TrimSpace(value)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// ParseInvoiceFile is ParseInvoice over a file path.
func ParseInvoiceFile(path string) ([]RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseInvoice(f)
}

// ParseContract reads a rate card CSV. One row per zone; a
// permitted_surcharges column (pipe-separated) may appear on any row and is
// unioned across the file.
func ParseContract(r io.Reader, provider string) (ratecard.Contract, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return ratecard.Contract{}, fmt.Errorf("read contract csv: %w", err)
	}
	if len(records) < 2 {
		return ratecard.Contract{}, fmt.Errorf("%w: contract has no rate rows", ratecard.ErrInvalidContract)
	}

	index := map[string]int{}
	for i, col := range records[0] {
		index[normalizeColumn(col)] = i
	}

	field := func(record []string, names ...string) string {
		for _, name := range names {
			if i, ok := index[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
		}
		return ""
	}

	contract := ratecard.Contract{Provider: provider}
	permitted := map[string]struct{}{}

	for line, record := range records[1:] {
		zone := field(record, "zone_id", "zone")
		if zone == "" {
			continue
		}

		rule := ratecard.RateRule{ZoneID: zone}
		numeric := []struct {
			dst   *float64
			names []string
		}{
			{&rule.BaseRate, []string{"base_rate", "rate"}},
			{&rule.CODPercentage, []string{"cod_percentage", "cod_pct"}},
			{&rule.RTOPercentage, []string{"rto_percentage", "rto_pct"}},
			{&rule.FuelSurchargePercentage, []string{"fuel_surcharge_percentage", "fuel_pct"}},
			{&rule.GSTPercentage, []string{"gst_percentage", "gst_pct"}},
		}
		for _, n := range numeric {
			raw := field(record, n.names...)
			if raw == "" {
				continue
			}
			v, err := parseAmount(raw)
			if err != nil {
				return ratecard.Contract{}, fmt.Errorf("%w: row %d: %s", ratecard.ErrInvalidContract, line+2, err)
			}
			*n.dst = v
		}
		contract.Rules = append(contract.Rules, rule)

		for _, label := range strings.Split(field(record, "permitted_surcharges"), "|") {
			label = strings.TrimSpace(label)
			if label != "" {
				permitted[label] = struct{}{}
			}
		}
	}

	for label := range permitted {
		contract.PermittedSurcharges = append(contract.PermittedSurcharges, label)
	}
	return contract, nil
}

// ParseContractFile is ParseContract over a file path, detecting the provider
// from the file head when none is given.
func ParseContractFile(path string, provider string) (ratecard.Contract, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ratecard.Contract{}, err
	}
	if provider == "" {
		provider = DetectProvider(string(raw))
	}
	return ParseContract(strings.NewReader(string(raw)), provider)
}

func normalizeColumn(col string) string {
	col = strings.ToLower(strings.TrimSpace(col))
	col = strings.ReplaceAll(col, " ", "_")
	return strings.ReplaceAll(col, "-", "_")
}
