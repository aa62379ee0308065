// Package domain contains the line item and discrepancy models shared by the
// evaluator, the batch orchestrator and the dispute tracker.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type CheckType string

const (
	CheckDuplicateAWB            CheckType = "duplicate_awb"
	CheckWeightOvercharge        CheckType = "weight_overcharge"
	CheckZoneMismatch            CheckType = "zone_mismatch"
	CheckRateDeviation           CheckType = "rate_deviation"
	CheckCODFeeMismatch          CheckType = "cod_fee_mismatch"
	CheckRTOOvercharge           CheckType = "rto_overcharge"
	CheckFuelSurchargeMismatch   CheckType = "fuel_surcharge_mismatch"
	CheckNonContractedSurcharge  CheckType = "non_contracted_surcharge"
	CheckGSTMiscalculation       CheckType = "gst_miscalculation"
	CheckArithmeticTotalMismatch CheckType = "arithmetic_total_mismatch"
)

// CheckTypes lists every check in evaluation order.
var CheckTypes = []CheckType{
	CheckDuplicateAWB,
	CheckWeightOvercharge,
	CheckZoneMismatch,
	CheckRateDeviation,
	CheckCODFeeMismatch,
	CheckRTOOvercharge,
	CheckFuelSurchargeMismatch,
	CheckNonContractedSurcharge,
	CheckGSTMiscalculation,
	CheckArithmeticTotalMismatch,
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

type DisputeStatus string

const (
	DisputePending      DisputeStatus = "pending"
	DisputeRaised       DisputeStatus = "raised"
	DisputeAcknowledged DisputeStatus = "acknowledged"
	DisputeResolved     DisputeStatus = "resolved"
	DisputeRejected     DisputeStatus = "rejected"
)

// Surcharge is one labelled extra charge on an invoice row.
type Surcharge struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// LineItem is one canonical invoice row. Read-only after normalization.
type LineItem struct {
	ID                 snowflake.ID                    `gorm:"primaryKey" json:"id"`
	BatchID            snowflake.ID                    `gorm:"not null;index" json:"batch_id"`
	AWBNumber          string                          `gorm:"type:text;not null;index" json:"awb_number"`
	Date               time.Time                       `json:"date"`
	OriginPincode      string                          `gorm:"type:text" json:"origin_pincode"`
	DestinationPincode string                          `gorm:"type:text" json:"destination_pincode"`
	WeightBilled       float64                         `json:"weight_billed"`
	ActualWeight       *float64                        `json:"actual_weight,omitempty"`
	Zone               string                          `gorm:"type:text" json:"zone"`
	BaseFreight        float64                         `json:"base_freight"`
	CODFee             float64                         `json:"cod_fee"`
	RTOFee             float64                         `json:"rto_fee"`
	FuelSurcharge      float64                         `json:"fuel_surcharge"`
	OtherSurcharges    datatypes.JSONSlice[Surcharge]  `json:"other_surcharges"`
	GSTRate            float64                         `json:"gst_rate"`
	TotalBilled        float64                         `json:"total_billed"`
}

func (LineItem) TableName() string { return "line_items" }

// Discrepancy is one detected violation for one line item under one check.
// Immutable after creation except for the dispute fields.
type Discrepancy struct {
	ID               snowflake.ID  `gorm:"primaryKey" json:"id"`
	BatchID          snowflake.ID  `gorm:"not null;index" json:"batch_id"`
	LineItemID       snowflake.ID  `gorm:"index" json:"line_item_id"`
	AWBNumber        string        `gorm:"type:text;not null" json:"awb_number"`
	CheckType        CheckType     `gorm:"type:text;not null;index" json:"check_type"`
	Description      string        `gorm:"type:text" json:"description"`
	BilledValue      float64       `json:"billed_value"`
	ExpectedValue    *float64      `json:"expected_value,omitempty"`
	OverchargeAmount float64       `json:"overcharge_amount"`
	Severity         Severity      `gorm:"type:text;not null" json:"severity"`
	ConfidenceScore  float64       `json:"confidence_score"`
	DisputeStatus    DisputeStatus `gorm:"type:text;not null;default:pending;index" json:"dispute_status"`
	DisputeNotes     *string       `gorm:"type:text" json:"dispute_notes,omitempty"`
	DisputeUpdatedAt *time.Time    `json:"dispute_updated_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

func (Discrepancy) TableName() string { return "discrepancies" }
