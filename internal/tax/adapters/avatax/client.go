// Package avatax is a client for the Avalara AvaTax REST v2 API, limited to the
// transaction creation call used to quote sales tax for an order.
package avatax

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/dejobratic/salestax/internal/tax/ports"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	ProductionBaseURL = "https://rest.avatax.com"
	SandboxBaseURL    = "https://sandbox-rest.avatax.com"

	createTransactionPath = "/api/v2/transactions/create"
	defaultTimeout        = 10 * time.Second
	maxErrorBodyBytes     = 64 << 10

	appName    = "salestax"
	appVersion = "1.0"
)

// Client sends transactions to one AvaTax environment.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	environment domain.Environment
	creds       domain.Credentials
	machineName string
	now         func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the environment's API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithClock sets the clock used for the transaction date.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// Configure builds a client for the named environment. The environment must be
// Production or Sandbox in any case.
func Configure(environment string, creds domain.Credentials, opts ...Option) (*Client, error) {
	env, err := domain.ParseEnvironment(environment)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrConfigurationInvalid, err)
	}

	baseURL := SandboxBaseURL
	if env == domain.EnvironmentProduction {
		baseURL = ProductionBaseURL
	}

	machineName, _ := os.Hostname()

	c := &Client{
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:     baseURL,
		environment: env,
		creds:       creds,
		machineName: machineName,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Environment returns the environment the client talks to.
func (c *Client) Environment() domain.Environment {
	return c.environment
}

// APIError is an error response returned by AvaTax.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("avatax responded with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("avatax responded with status %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// ComputeTax creates an uncommitted sales order transaction and returns its total tax.
// A response without a totalTax value yields a nil amount.
func (c *Client) ComputeTax(ctx context.Context, req domain.TaxRequest) (*decimal.Decimal, error) {
	payload, err := json.Marshal(newCreateTransactionModel(req, c.now()))
	if err != nil {
		return nil, fmt.Errorf("%w: encode transaction: %w", ports.ErrEngineCallFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createTransactionPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ports.ErrEngineCallFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Avalara-Client", fmt.Sprintf("%s; %s; REST; v2; %s", appName, appVersion, c.machineName))
	if c.creds.Username != "" || c.creds.Password != "" {
		httpReq.SetBasicAuth(c.creds.Username, c.creds.Password)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %w", ports.ErrEngineCallFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %w", ports.ErrEngineCallFailed, decodeAPIError(resp))
	}

	var transaction transactionModel
	if err := json.NewDecoder(resp.Body).Decode(&transaction); err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %w", ports.ErrEngineCallFailed, err)
	}

	return transaction.TotalTax, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var result errorResult
	if err := json.Unmarshal(body, &result); err != nil || result.Error == nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}

	apiErr.Code = result.Error.Code
	apiErr.Message = result.Error.Message
	if len(result.Error.Details) > 0 && result.Error.Details[0].Description != "" {
		apiErr.Message = apiErr.Message + ": " + result.Error.Details[0].Description
	}
	return apiErr
}

// Factory configures a fresh client per calculation.
type Factory struct {
	opts []Option
}

// NewFactory returns a Factory that applies opts to every client it configures.
func NewFactory(opts ...Option) *Factory {
	return &Factory{opts: opts}
}

// Configure implements ports.TaxEngineFactory.
func (f *Factory) Configure(environment string, creds domain.Credentials) (ports.TaxEngine, error) {
	client, err := Configure(environment, creds, f.opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// IsAPIError reports whether err carries an AvaTax error response.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
