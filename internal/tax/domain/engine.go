package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Environment selects which AvaTax deployment receives requests.
type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentSandbox    Environment = "sandbox"
)

// ParseEnvironment only accepts the two known environments. Any other value is a
// misconfiguration and is never silently defaulted.
func ParseEnvironment(value string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(value))) {
	case EnvironmentProduction:
		return EnvironmentProduction, nil
	case EnvironmentSandbox:
		return EnvironmentSandbox, nil
	default:
		return "", fmt.Errorf("unrecognized tax engine environment %q", value)
	}
}

// Credentials authenticate against the tax engine.
type Credentials struct {
	Username string
	Password string
}

// DocumentType is the kind of transaction recorded by the tax engine.
type DocumentType string

// DocumentTypeSalesOrder produces a quote that is never committed.
const DocumentTypeSalesOrder DocumentType = "SalesOrder"

// TaxRequest is everything sent to the tax engine for one order.
type TaxRequest struct {
	CompanyCode  string
	CustomerCode string
	DocumentType DocumentType
	Address      Address
	Amount       decimal.Decimal
}

// NewTaxRequest builds the sales order request for an order context.
func NewTaxRequest(companyCode, customerCode string, order OrderContext) TaxRequest {
	return TaxRequest{
		CompanyCode:  companyCode,
		CustomerCode: customerCode,
		DocumentType: DocumentTypeSalesOrder,
		Address:      order.Address,
		Amount:       order.TaxableBase(),
	}
}
