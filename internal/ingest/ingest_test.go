package ingest

import (
	"strings"
	"testing"

	"github.com/freightauditlabs/freightaudit/internal/ratecard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInvoiceCSV = `AWB Number,Date,Origin Pincode,Destination Pincode,Weight,Zone,Base Freight,COD Fee,RTO Fee,Fuel Surcharge,Other Surcharges,GST Rate,Total Billed
ABC001,2025-04-02,110001,160001,1.5,ZONE_B,120.00,0,0,14.40,Handling:10,18,170.39
ABC002,2025-04-02,110001,400001,2,ZONE_C,"1,250.00",25,0,150,0,18,1681.50
,2025-04-03,110001,110092,1,LOCAL,40,0,0,4.8,0,18,52.86
ABC003,bad-date,110001,110092,1,LOCAL,40,0,0,4.8,0,18,52.86
`

func TestParseAndNormalizeInvoice(t *testing.T) {
	rows, err := ParseInvoice(strings.NewReader(sampleInvoiceCSV))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	result := Normalize(rows)
	assert.Equal(t, 2, result.Skipped) // missing awb + bad date
	require.Len(t, result.Items, 2)

	first := result.Items[0]
	assert.Equal(t, "ABC001", first.AWBNumber)
	assert.Equal(t, "110001", first.OriginPincode)
	assert.Equal(t, 1.5, first.WeightBilled)
	assert.Equal(t, 120.0, first.BaseFreight)
	assert.Equal(t, 14.4, first.FuelSurcharge)
	require.Len(t, first.OtherSurcharges, 1)
	assert.Equal(t, "Handling", first.OtherSurcharges[0].Label)
	assert.Equal(t, 10.0, first.OtherSurcharges[0].Amount)
	assert.Equal(t, 170.39, first.TotalBilled)

	// comma-grouped amount
	assert.Equal(t, 1250.0, result.Items[1].BaseFreight)
	assert.Empty(t, result.Items[1].OtherSurcharges)
}

func TestNormalizeRejectsNegativeAmounts(t *testing.T) {
	rows := []RawRow{{"awb_number": "X1", "base_freight": "-10"}}
	result := Normalize(rows)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, result.Items)
}

func TestParseSurchargePairs(t *testing.T) {
	got, err := parseSurcharges("Handling:10|ODA : 25.5")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ODA", got[1].Label)
	assert.Equal(t, 25.5, got[1].Amount)

	_, err = parseSurcharges("Handling:abc")
	assert.ErrorIs(t, err, ErrInvalidLineItem)
}

const sampleContractCSV = `Zone,Base Rate,COD Percentage,RTO Percentage,Fuel Surcharge Percentage,GST Percentage,Permitted Surcharges
ZONE_A,50,1.5,50,10,18,Handling|ODA
ZONE_B,80,1.5,50,12,18,
ZONE_C,120,1.5,50,12,18,
`

func TestParseContract(t *testing.T) {
	contract, err := ParseContract(strings.NewReader(sampleContractCSV), "BlueDart")
	require.NoError(t, err)
	assert.Equal(t, "BlueDart", contract.Provider)
	require.Len(t, contract.Rules, 3)

	ix, err := ratecard.BuildIndex(contract)
	require.NoError(t, err)

	rule, ok := ix.RuleFor("ZONE_B")
	require.True(t, ok)
	assert.Equal(t, 80.0, rule.BaseRate)
	assert.Equal(t, 12.0, rule.FuelSurchargePercentage)
	assert.True(t, ix.SurchargePermitted("handling"))
}

func TestParseContractBadRate(t *testing.T) {
	csv := "zone,base_rate\nZONE_A,not-a-number\n"
	_, err := ParseContract(strings.NewReader(csv), "")
	assert.ErrorIs(t, err, ratecard.ErrInvalidContract)
}

func TestDetectProvider(t *testing.T) {
	assert.Equal(t, "BlueDart", DetectProvider("Invoice for Blue Dart Express Ltd"))
	assert.Equal(t, "Delhivery", DetectProvider("DELHIVERY pvt ltd statement"))
	assert.Equal(t, "Unknown", DetectProvider("some unremarkable csv header"))
}
