package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			ReferenceID string     `json:"reference_id"`
			Amount      wireAmount `json:"amount"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ord-1", body.ReferenceID)
		assert.Equal(t, "109.00", body.Amount.Value)
		assert.Equal(t, "USD", body.Amount.CurrencyCode)

		_ = json.NewEncoder(w).Encode(transaction{ID: "tx-77", Status: "CREATED"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", time.Second)
	ref, err := c.CreateTransaction(context.Background(), "ord-1", Amount{Cents: 10900, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "tx-77", ref)
}

func TestCaptureTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions/tx-77/capture", r.URL.Path)
		_ = json.NewEncoder(w).Encode(transaction{
			ID:     "tx-77",
			Status: "COMPLETED",
			Amount: wireAmount{Value: "109.00", CurrencyCode: "USD"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", time.Second)
	amt, err := c.CaptureTransaction(context.Background(), "tx-77")
	require.NoError(t, err)
	assert.Equal(t, int64(10900), amt.Cents)
	assert.Equal(t, "USD", amt.Currency)
}

func TestProviderErrorsWrapUpstreamFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"internal"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", time.Second)

	_, err := c.CreateTransaction(context.Background(), "ord-1", Amount{Cents: 100, Currency: "USD"})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), "status 502")

	_, err = c.CaptureTransaction(context.Background(), "tx-1")
	assert.ErrorAs(t, err, &pe)
}

func TestProviderErrorOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 20*time.Millisecond)
	_, err := c.CaptureTransaction(context.Background(), "tx-1")
	var pe *ProviderError
	assert.ErrorAs(t, err, &pe)
}

func TestVerifySignature(t *testing.T) {
	secret := []byte("whsec_test")
	body := []byte(`{"id":"evt-1"}`)

	assert.True(t, VerifySignature(secret, body, Sign(secret, body)))
	assert.False(t, VerifySignature(secret, body, Sign([]byte("other"), body)))
	assert.False(t, VerifySignature(secret, []byte("tampered"), Sign(secret, body)))
	assert.False(t, VerifySignature(secret, body, "not-hex"))
	assert.False(t, VerifySignature(secret, body, ""))
}
