package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Stage is a state of the tax calculation pipeline.
type Stage string

const (
	StageStart               Stage = "start"
	StageAddressRetrieved    Stage = "address_retrieved"
	StageTotalsRetrieved     Stage = "totals_retrieved"
	StageJurisdictionChecked Stage = "jurisdiction_checked"
	StageEngineInvoked       Stage = "engine_invoked"
	StageSkipped             Stage = "skipped"
	StageCompleted           Stage = "completed"
	StageFailed              Stage = "failed"
)

// Activity names the work a stage hands off to, as operators read it in alerts.
func (s Stage) Activity() string {
	switch s {
	case StageStart:
		return "shipping address retrieval"
	case StageAddressRetrieved:
		return "DB connection and order totals retrieval"
	case StageTotalsRetrieved:
		return "jurisdiction check"
	case StageJurisdictionChecked:
		return "tax engine request"
	default:
		return "tax calculation"
	}
}

// ErrorKind classifies why a calculation failed.
type ErrorKind string

const (
	KindDataUnavailable      ErrorKind = "data_unavailable"
	KindFieldMissing         ErrorKind = "field_missing"
	KindConfigurationInvalid ErrorKind = "configuration_invalid"
	KindEngineCallFailed     ErrorKind = "engine_call_failed"
	KindInternal             ErrorKind = "internal"
)

// CalculationError carries the order and pipeline position of a failure.
type CalculationError struct {
	OrderID string
	Stage   Stage
	Kind    ErrorKind
	Err     error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("order %s: %s failed (%s): %v", e.OrderID, e.Stage.Activity(), e.Kind, e.Err)
}

func (e *CalculationError) Unwrap() error {
	return e.Err
}

// NotificationStatus records what happened to the operator alert of a failed calculation.
type NotificationStatus string

const (
	NotificationNotRequired NotificationStatus = "not_required"
	NotificationSent        NotificationStatus = "sent"
	NotificationFailed      NotificationStatus = "failed"
)

// Outcome summarizes a calculation for logs, metrics and the calculation log.
type Outcome string

const (
	OutcomeTaxed  Outcome = "taxed"
	OutcomeExempt Outcome = "exempt"
	OutcomeFailed Outcome = "failed"
)

// Calculation is the result of one pipeline run: either a computed amount or a failure.
type Calculation struct {
	OrderID      string
	Stage        Stage
	Taxable      bool
	TaxableBase  decimal.Decimal
	Amount       decimal.Decimal
	Err          *CalculationError
	Notification NotificationStatus
}

// Succeeded builds a completed calculation.
func Succeeded(order OrderContext, taxable bool, amount decimal.Decimal) Calculation {
	return Calculation{
		OrderID:      order.OrderID,
		Stage:        StageCompleted,
		Taxable:      taxable,
		TaxableBase:  order.TaxableBase(),
		Amount:       amount,
		Notification: NotificationNotRequired,
	}
}

// Failed builds a calculation that ended in the failed state.
func Failed(err *CalculationError, taxableBase decimal.Decimal) Calculation {
	return Calculation{
		OrderID:      err.OrderID,
		Stage:        StageFailed,
		TaxableBase:  taxableBase,
		Amount:       decimal.Zero,
		Err:          err,
		Notification: NotificationNotRequired,
	}
}

// Failed reports whether the pipeline ended in the failed state.
func (c Calculation) Failed() bool {
	return c.Err != nil
}

// TaxAmount is the value handed back to checkout. Failures always yield zero.
func (c Calculation) TaxAmount() decimal.Decimal {
	if c.Failed() || c.Amount.IsNegative() {
		return decimal.Zero
	}
	return c.Amount
}

// Outcome classifies the calculation.
func (c Calculation) Outcome() Outcome {
	switch {
	case c.Failed():
		return OutcomeFailed
	case c.Taxable:
		return OutcomeTaxed
	default:
		return OutcomeExempt
	}
}

// FailedStage returns the stage a failure departed from, or empty on success.
func (c Calculation) FailedStage() Stage {
	if c.Err == nil {
		return ""
	}
	return c.Err.Stage
}
