package avatax

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/dejobratic/salestax/internal/tax/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() domain.TaxRequest {
	return domain.TaxRequest{
		CompanyCode:  "DEFAULT",
		CustomerCode: "CUST-1",
		DocumentType: domain.DocumentTypeSalesOrder,
		Address: domain.Address{
			Line1:      "100 Peachtree St",
			City:       "Atlanta",
			Region:     "GA",
			PostalCode: "30303",
			Country:    "US",
		},
		Amount: decimal.RequireFromString("18.00"),
	}
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func TestConfigure(t *testing.T) {
	t.Run("accepts known environments in any case", func(t *testing.T) {
		tests := []struct {
			input   string
			want    domain.Environment
			baseURL string
		}{
			{"Production", domain.EnvironmentProduction, ProductionBaseURL},
			{"PRODUCTION", domain.EnvironmentProduction, ProductionBaseURL},
			{"sandbox", domain.EnvironmentSandbox, SandboxBaseURL},
			{" Sandbox ", domain.EnvironmentSandbox, SandboxBaseURL},
		}

		for _, tt := range tests {
			client, err := Configure(tt.input, domain.Credentials{})
			require.NoError(t, err, tt.input)
			assert.Equal(t, tt.want, client.Environment())
			assert.Equal(t, tt.baseURL, client.baseURL)
		}
	})

	t.Run("rejects unknown environments", func(t *testing.T) {
		for _, input := range []string{"", "staging", "prod"} {
			client, err := Configure(input, domain.Credentials{})
			assert.Nil(t, client)
			assert.ErrorIs(t, err, ports.ErrConfigurationInvalid, input)
		}
	})

	t.Run("base url override trims trailing slash", func(t *testing.T) {
		client, err := Configure("sandbox", domain.Credentials{}, WithBaseURL("http://localhost:8089/"))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8089", client.baseURL)
	})
}

func TestComputeTax(t *testing.T) {
	t.Run("posts a sales order and returns total tax", func(t *testing.T) {
		var captured createTransactionModel
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v2/transactions/create", r.URL.Path)
			assert.Contains(t, r.Header.Get("X-Avalara-Client"), "salestax; 1.0; REST; v2")

			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "acct", user)
			assert.Equal(t, "secret", pass)

			assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"code":"abc-123","totalTax":1.08}`))
		}))
		defer server.Close()

		client, err := Configure("Sandbox",
			domain.Credentials{Username: "acct", Password: "secret"},
			WithBaseURL(server.URL),
			WithHTTPClient(server.Client()),
			WithClock(fixedClock),
		)
		require.NoError(t, err)

		total, err := client.ComputeTax(context.Background(), sampleRequest())
		require.NoError(t, err)
		require.NotNil(t, total)
		assert.True(t, total.Equal(decimal.RequireFromString("1.08")))

		assert.Equal(t, "SalesOrder", captured.Type)
		assert.Equal(t, "DEFAULT", captured.CompanyCode)
		assert.Equal(t, "CUST-1", captured.CustomerCode)
		assert.Equal(t, "2026-03-14", captured.Date)
		assert.False(t, captured.Commit)
		assert.Equal(t, "GA", captured.Addresses.SingleLocation.Region)
		assert.Equal(t, "30303", captured.Addresses.SingleLocation.PostalCode)
		require.Len(t, captured.Lines, 1)
		assert.Equal(t, "1", captured.Lines[0].Number)
		assert.Equal(t, json.Number("18.00"), captured.Lines[0].Amount)
	})

	t.Run("missing total tax yields nil", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"code":"abc-123","totalTax":null}`))
		}))
		defer server.Close()

		client, err := Configure("sandbox", domain.Credentials{}, WithBaseURL(server.URL))
		require.NoError(t, err)

		total, err := client.ComputeTax(context.Background(), sampleRequest())
		require.NoError(t, err)
		assert.Nil(t, total)
	})

	t.Run("error response wraps engine failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"InvalidAddress","message":"The address is not deliverable.","details":[{"code":"InvalidAddress","description":"Postal code not found"}]}}`))
		}))
		defer server.Close()

		client, err := Configure("sandbox", domain.Credentials{}, WithBaseURL(server.URL))
		require.NoError(t, err)

		total, err := client.ComputeTax(context.Background(), sampleRequest())
		assert.Nil(t, total)
		require.ErrorIs(t, err, ports.ErrEngineCallFailed)

		apiErr, ok := IsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "InvalidAddress", apiErr.Code)
		assert.Equal(t, "The address is not deliverable.: Postal code not found", apiErr.Message)
	})

	t.Run("non json error body is kept as message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream unavailable\n"))
		}))
		defer server.Close()

		client, err := Configure("sandbox", domain.Credentials{}, WithBaseURL(server.URL))
		require.NoError(t, err)

		_, err = client.ComputeTax(context.Background(), sampleRequest())
		apiErr, ok := IsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, "upstream unavailable", apiErr.Message)
	})

	t.Run("unreachable engine wraps engine failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := server.URL
		server.Close()

		client, err := Configure("sandbox", domain.Credentials{}, WithBaseURL(url), WithTimeout(time.Second))
		require.NoError(t, err)

		_, err = client.ComputeTax(context.Background(), sampleRequest())
		assert.ErrorIs(t, err, ports.ErrEngineCallFailed)
	})

	t.Run("malformed body wraps engine failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"totalTax":`))
		}))
		defer server.Close()

		client, err := Configure("sandbox", domain.Credentials{}, WithBaseURL(server.URL))
		require.NoError(t, err)

		_, err = client.ComputeTax(context.Background(), sampleRequest())
		assert.ErrorIs(t, err, ports.ErrEngineCallFailed)
	})
}

func TestFactory(t *testing.T) {
	factory := NewFactory(WithBaseURL("http://localhost:1"))

	engine, err := factory.Configure("production", domain.Credentials{Username: "u"})
	require.NoError(t, err)
	client, ok := engine.(*Client)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:1", client.baseURL)

	_, err = factory.Configure("qa", domain.Credentials{})
	assert.ErrorIs(t, err, ports.ErrConfigurationInvalid)
}
