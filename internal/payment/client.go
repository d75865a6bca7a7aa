package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProviderError wraps any upstream failure (transport, timeout, non-2xx).
// The order stays pending and the call is safe to retry.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string { return "payment provider: " + e.Op + ": " + e.Err.Error() }
func (e *ProviderError) Unwrap() error { return e.Err }

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type wireAmount struct {
	Value        string `json:"value"`
	CurrencyCode string `json:"currency_code"`
}

type transaction struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	Amount    wireAmount `json:"amount"`
	Reference string     `json:"reference_id"`
}

// CreateTransaction opens a provider transaction referencing the local
// order and returns the provider's opaque id.
func (c *Client) CreateTransaction(ctx context.Context, orderID string, amt Amount) (string, error) {
	body := map[string]any{
		"reference_id": orderID,
		"amount":       wireAmount{Value: FormatCents(amt.Cents), CurrencyCode: amt.Currency},
	}
	var tx transaction
	if err := c.post(ctx, "/v1/transactions", body, &tx); err != nil {
		return "", &ProviderError{Op: "create transaction", Err: err}
	}
	if tx.ID == "" {
		return "", &ProviderError{Op: "create transaction", Err: fmt.Errorf("response missing id")}
	}
	return tx.ID, nil
}

// CaptureTransaction finalizes the authorized payment and returns the
// amount the provider actually captured.
func (c *Client) CaptureTransaction(ctx context.Context, ref string) (Amount, error) {
	var tx transaction
	if err := c.post(ctx, "/v1/transactions/"+ref+"/capture", struct{}{}, &tx); err != nil {
		return Amount{}, &ProviderError{Op: "capture transaction", Err: err}
	}
	amt, err := ParseDecimal(tx.Amount.Value, tx.Amount.CurrencyCode)
	if err != nil {
		return Amount{}, &ProviderError{Op: "capture transaction", Err: err}
	}
	return amt, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}
