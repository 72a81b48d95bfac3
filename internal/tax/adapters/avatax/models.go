package avatax

import (
	"encoding/json"
	"time"

	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/shopspring/decimal"
)

type createTransactionModel struct {
	Type         string          `json:"type"`
	CompanyCode  string          `json:"companyCode"`
	Date         string          `json:"date"`
	CustomerCode string          `json:"customerCode"`
	Commit       bool            `json:"commit"`
	Addresses    addressesModel  `json:"addresses"`
	Lines        []lineItemModel `json:"lines"`
}

type addressesModel struct {
	SingleLocation addressLocationInfo `json:"singleLocation"`
}

type addressLocationInfo struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

type lineItemModel struct {
	Number   string      `json:"number"`
	Quantity json.Number `json:"quantity"`
	Amount   json.Number `json:"amount"`
}

type transactionModel struct {
	Code     string           `json:"code"`
	TotalTax *decimal.Decimal `json:"totalTax"`
}

type errorResult struct {
	Error *errorInfo `json:"error"`
}

type errorInfo struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []errorDetail `json:"details"`
}

type errorDetail struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

func newCreateTransactionModel(req domain.TaxRequest, now time.Time) createTransactionModel {
	return createTransactionModel{
		Type:         string(req.DocumentType),
		CompanyCode:  req.CompanyCode,
		Date:         now.Format("2006-01-02"),
		CustomerCode: req.CustomerCode,
		Addresses: addressesModel{
			SingleLocation: addressLocationInfo{
				Line1:      req.Address.Line1,
				Line2:      req.Address.Line2,
				City:       req.Address.City,
				Region:     req.Address.Region,
				Country:    req.Address.Country,
				PostalCode: req.Address.PostalCode,
			},
		},
		Lines: []lineItemModel{
			{
				Number:   "1",
				Quantity: json.Number("1"),
				Amount:   json.Number(req.Amount.StringFixed(2)),
			},
		},
	}
}
