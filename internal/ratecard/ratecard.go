// Package ratecard holds the contracted rate rules for one audit batch and
// the zone-keyed lookup built from them.
package ratecard

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var ErrInvalidContract = errors.New("invalid_contract")

// RateRule is one zone's contracted pricing. Immutable once indexed.
type RateRule struct {
	ZoneID                  string
	BaseRate                float64
	CODPercentage           float64
	RTOPercentage           float64
	FuelSurchargePercentage float64
	GSTPercentage           float64
}

// Contract is the parsed rate card: per-zone rules plus the surcharge labels
// the carrier is allowed to bill.
type Contract struct {
	Provider            string
	Rules               []RateRule
	PermittedSurcharges []string
}

// Index is the read-only lookup the evaluator works against.
type Index struct {
	provider  string
	rules     map[string]RateRule
	permitted map[string]struct{}
}

// BuildIndex validates the contract and freezes it into an Index. A duplicated
// zone or a negative/non-finite rate field rejects the whole contract.
func BuildIndex(c Contract) (*Index, error) {
	if len(c.Rules) == 0 {
		return nil, fmt.Errorf("%w: no rate rules", ErrInvalidContract)
	}

	rules := make(map[string]RateRule, len(c.Rules))
	for _, r := range c.Rules {
		zone := NormalizeZone(r.ZoneID)
		if zone == "" {
			return nil, fmt.Errorf("%w: empty zone id", ErrInvalidContract)
		}
		if _, ok := rules[zone]; ok {
			return nil, fmt.Errorf("%w: duplicate zone %s", ErrInvalidContract, zone)
		}
		if err := validateRule(r); err != nil {
			return nil, fmt.Errorf("%w: zone %s: %s", ErrInvalidContract, zone, err)
		}
		r.ZoneID = zone
		rules[zone] = r
	}

	permitted := make(map[string]struct{}, len(c.PermittedSurcharges))
	for _, label := range c.PermittedSurcharges {
		permitted[normalizeLabel(label)] = struct{}{}
	}

	return &Index{provider: c.Provider, rules: rules, permitted: permitted}, nil
}

func validateRule(r RateRule) error {
	fields := map[string]float64{
		"base_rate":                 r.BaseRate,
		"cod_percentage":            r.CODPercentage,
		"rto_percentage":            r.RTOPercentage,
		"fuel_surcharge_percentage": r.FuelSurchargePercentage,
		"gst_percentage":            r.GSTPercentage,
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := fields[name]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not a number", name)
		}
		if v < 0 {
			return fmt.Errorf("%s is negative", name)
		}
	}
	return nil
}

// RuleFor returns the rule for a zone, if the contract has one.
func (ix *Index) RuleFor(zone string) (*RateRule, bool) {
	r, ok := ix.rules[NormalizeZone(zone)]
	if !ok {
		return nil, false
	}
	return &r, true
}

// SurchargePermitted reports whether a surcharge label is contracted.
func (ix *Index) SurchargePermitted(label string) bool {
	_, ok := ix.permitted[normalizeLabel(label)]
	return ok
}

func (ix *Index) Provider() string { return ix.provider }

// Zones lists the indexed zone ids in stable order.
func (ix *Index) Zones() []string {
	zones := make([]string, 0, len(ix.rules))
	for z := range ix.rules {
		zones = append(zones, z)
	}
	sort.Strings(zones)
	return zones
}

// NormalizeZone folds carrier zone spellings onto one key: trimmed,
// uppercased, spaces collapsed to underscores ("zone b" == "ZONE_B").
func NormalizeZone(zone string) string {
	zone = strings.ToUpper(strings.TrimSpace(zone))
	return strings.ReplaceAll(zone, " ", "_")
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
