// Package payment wraps the Paystack verification API. Verification is a
// hard pre-condition of checkout: the gateway must confirm the charge before
// any stock is touched.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Verification is the tagged outcome of a gateway lookup. Exactly one of the
// two shapes is populated: a verified charge carries amount/currency/id, a
// failed one carries only the reason. Transport failures, non-2xx responses
// and unparseable bodies all collapse into the failed shape; the caller
// never needs to care why the gateway could not confirm the charge.
type Verification struct {
	Verified bool
	Reason   string

	// Set only when Verified.
	AmountSubunits int64  // gateway's lowest denomination (kobo/cents)
	Currency       string
	ProviderID     int64
	Channel        string
	Raw            json.RawMessage
}

func failed(reason string) Verification {
	return Verification{Reason: reason}
}

type Verifier interface {
	Verify(ctx context.Context, reference string) Verification
}

type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: 20 * time.Second},
	}
}

// verifyEnvelope is the documented response shape. Anything that does not
// decode into it is treated as a failed verification, not an error to retry.
type verifyEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID       int64  `json:"id"`
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Channel  string `json:"channel"`
	} `json:"data"`
}

func (c *Client) Verify(ctx context.Context, reference string) Verification {
	url := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return failed(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return failed(fmt.Sprintf("gateway unreachable: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return failed(fmt.Sprintf("read gateway response: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failed(fmt.Sprintf("gateway returned %d", resp.StatusCode))
	}

	var env verifyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return failed("gateway returned non-JSON response")
	}
	if !env.Status {
		return failed("gateway rejected lookup: " + env.Message)
	}
	if env.Data.Status != "success" {
		return failed("transaction status is " + env.Data.Status)
	}

	return Verification{
		Verified:       true,
		AmountSubunits: env.Data.Amount,
		Currency:       env.Data.Currency,
		ProviderID:     env.Data.ID,
		Channel:        env.Data.Channel,
		Raw:            json.RawMessage(body),
	}
}
