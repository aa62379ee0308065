package ratecard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleContract() Contract {
	return Contract{
		Provider: "BlueDart",
		Rules: []RateRule{
			{ZoneID: "ZONE_A", BaseRate: 50, CODPercentage: 1.5, RTOPercentage: 50, FuelSurchargePercentage: 10, GSTPercentage: 18},
			{ZoneID: "ZONE_B", BaseRate: 80, CODPercentage: 1.5, RTOPercentage: 50, FuelSurchargePercentage: 12, GSTPercentage: 18},
		},
		PermittedSurcharges: []string{"Handling", "ODA"},
	}
}

func TestBuildIndex_LookupAndNormalization(t *testing.T) {
	ix, err := BuildIndex(sampleContract())
	require.NoError(t, err)

	rule, ok := ix.RuleFor("zone b")
	require.True(t, ok)
	assert.Equal(t, 80.0, rule.BaseRate)
	assert.Equal(t, 12.0, rule.FuelSurchargePercentage)

	_, ok = ix.RuleFor("ZONE_X")
	assert.False(t, ok)

	assert.Equal(t, []string{"ZONE_A", "ZONE_B"}, ix.Zones())
}

func TestBuildIndex_DuplicateZone(t *testing.T) {
	c := sampleContract()
	c.Rules = append(c.Rules, RateRule{ZoneID: "zone_b", BaseRate: 90})

	_, err := BuildIndex(c)
	require.ErrorIs(t, err, ErrInvalidContract)
	assert.Contains(t, err.Error(), "duplicate zone ZONE_B")
}

func TestBuildIndex_RejectsBadRates(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RateRule)
	}{
		{"negative_base_rate", func(r *RateRule) { r.BaseRate = -1 }},
		{"negative_cod", func(r *RateRule) { r.CODPercentage = -0.5 }},
		{"nan_fuel", func(r *RateRule) { r.FuelSurchargePercentage = math.NaN() }},
		{"inf_gst", func(r *RateRule) { r.GSTPercentage = math.Inf(1) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := sampleContract()
			tc.mutate(&c.Rules[0])
			_, err := BuildIndex(c)
			assert.ErrorIs(t, err, ErrInvalidContract)
		})
	}
}

func TestBuildIndex_EmptyContract(t *testing.T) {
	_, err := BuildIndex(Contract{Provider: "X"})
	assert.ErrorIs(t, err, ErrInvalidContract)
}

func TestSurchargePermitted(t *testing.T) {
	ix, err := BuildIndex(sampleContract())
	require.NoError(t, err)

	assert.True(t, ix.SurchargePermitted("handling"))
	assert.True(t, ix.SurchargePermitted(" ODA "))
	assert.False(t, ix.SurchargePermitted("address correction"))
}
