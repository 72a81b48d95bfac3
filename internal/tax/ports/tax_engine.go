package ports

import (
	"context"
	"errors"

	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/shopspring/decimal"
)

// TaxEngine computes the tax owed for a request. A nil amount means the engine
// returned no total.
type TaxEngine interface {
	ComputeTax(ctx context.Context, req domain.TaxRequest) (*decimal.Decimal, error)
}

// TaxEngineFactory configures an engine client for one calculation.
type TaxEngineFactory interface {
	Configure(env string, creds domain.Credentials) (TaxEngine, error)
}

// TaxEngineFactoryFunc adapts a function to TaxEngineFactory.
type TaxEngineFactoryFunc func(env string, creds domain.Credentials) (TaxEngine, error)

func (f TaxEngineFactoryFunc) Configure(env string, creds domain.Credentials) (TaxEngine, error) {
	return f(env, creds)
}

var (
	// ErrConfigurationInvalid is returned when the engine settings cannot produce a client.
	ErrConfigurationInvalid = errors.New("tax engine configuration invalid")
	// ErrEngineCallFailed is returned when the engine rejects or fails a request.
	ErrEngineCallFailed = errors.New("tax engine call failed")
)
