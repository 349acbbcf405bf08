// Package shipping wraps the Shipbubble rate/label API. Provider responses
// are not stable across accounts and API revisions: courier and amount
// fields show up under several names, so everything is normalized into one
// Rate shape at the boundary instead of leaking optional fields upward.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

var ErrNoRates = errors.New("no couriers returned for this route")

type Address struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type Parcel struct {
	Description string  `json:"description"`
	WeightKG    float64 `json:"weight"`
	Quantity    int64   `json:"quantity"`
	ValueNGN    int64   `json:"value"`
}

type RateRequest struct {
	Sender   Address
	Receiver Address
	Parcels  []Parcel
}

// Rate is one courier option, already normalized.
type Rate struct {
	CourierID   string `json:"courierId"`
	CourierName string `json:"courierName"`
	ServiceCode string `json:"serviceCode"`
	FeeSubunits int64  `json:"feeSubunits"`
	Currency    string `json:"currency"`
	DeliveryETA string `json:"deliveryEta"`
}

// Quote groups the rates behind the provider's short-lived request token.
// The token is what a later label purchase spends.
type Quote struct {
	RequestToken string `json:"requestToken"`
	Rates        []Rate `json:"rates"`
}

type Label struct {
	ProviderRef  string
	CourierID    string
	CourierName  string
	FeeSubunits  int64
	Currency     string
	TrackingURL  string
	RequestToken string
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// AddressValidation is the provider's registered form of a raw address. The
// address code is what rate requests reference on the provider side.
type AddressValidation struct {
	AddressCode int64  `json:"addressCode"`
	Formatted   string `json:"formatted"`
}

type validateEnvelope struct {
	Status string `json:"status"`
	Data   struct {
		AddressCode int64  `json:"address_code"`
		Address     string `json:"address"`
	} `json:"data"`
	Message string `json:"message"`
}

// ValidateAddress registers an address with the provider and returns its
// address code.
func (c *Client) ValidateAddress(ctx context.Context, a Address) (*AddressValidation, error) {
	var env validateEnvelope
	if err := c.post(ctx, "/shipping/address/validate", a, &env); err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("address rejected: %s", env.Message)
	}
	return &AddressValidation{
		AddressCode: env.Data.AddressCode,
		Formatted:   env.Data.Address,
	}, nil
}

// rawRate mirrors the union of field names observed in provider payloads.
// firstString/firstInt pick whichever variant is populated.
type rawRate struct {
	CourierID   json.Number `json:"courier_id"`
	ServiceCode string      `json:"service_code"`

	CourierName string `json:"courier_name"`
	Courier     string `json:"courier"`
	Name        string `json:"name"`

	Total      json.Number `json:"total"`
	Amount     json.Number `json:"amount"`
	RateAmount json.Number `json:"rate_amount"`

	Currency string `json:"currency"`

	DeliveryETA  string `json:"delivery_eta"`
	EstDelivery  string `json:"estimated_delivery"`
	DeliveryTime string `json:"delivery_time"`
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// toSubunits converts a major-unit amount to kobo/cents. Rounding matters:
// plain truncation turns 10.555 into 1055 instead of 1056.
func toSubunits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func firstNumber(vals ...json.Number) (float64, bool) {
	for _, v := range vals {
		if v == "" {
			continue
		}
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

func (r rawRate) normalize() (Rate, bool) {
	name := firstString(r.CourierName, r.Courier, r.Name)
	amount, ok := firstNumber(r.Total, r.Amount, r.RateAmount)
	if name == "" || !ok {
		return Rate{}, false
	}
	currency := r.Currency
	if currency == "" {
		currency = "NGN"
	}
	return Rate{
		CourierID:   r.CourierID.String(),
		CourierName: name,
		ServiceCode: r.ServiceCode,
		FeeSubunits: toSubunits(amount),
		Currency:    currency,
		DeliveryETA: firstString(r.DeliveryETA, r.EstDelivery, r.DeliveryTime),
	}, true
}

type ratesEnvelope struct {
	Status string `json:"status"`
	Data   struct {
		RequestToken string    `json:"request_token"`
		Couriers     []rawRate `json:"couriers"`
		Rates        []rawRate `json:"rates"`
	} `json:"data"`
	Message string `json:"message"`
}

// FetchRates asks the provider for courier quotes between two addresses.
func (c *Client) FetchRates(ctx context.Context, req RateRequest) (*Quote, error) {
	payload := map[string]interface{}{
		"sender":   req.Sender,
		"reciever": req.Receiver, // provider API spells it this way
		"parcels":  req.Parcels,
	}
	var env ratesEnvelope
	if err := c.post(ctx, "/shipping/fetch_rates", payload, &env); err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("rate fetch rejected: %s", env.Message)
	}

	raw := env.Data.Couriers
	if len(raw) == 0 {
		raw = env.Data.Rates
	}
	quote := &Quote{RequestToken: env.Data.RequestToken}
	for _, rr := range raw {
		if rate, ok := rr.normalize(); ok {
			quote.Rates = append(quote.Rates, rate)
		}
	}
	if len(quote.Rates) == 0 {
		return nil, ErrNoRates
	}
	return quote, nil
}

type labelEnvelope struct {
	Status string `json:"status"`
	Data   struct {
		OrderID     string `json:"order_id"`
		TrackingURL string `json:"tracking_url"`
		Courier     struct {
			ID    json.Number `json:"id"`
			Name  string      `json:"name"`
			Total json.Number `json:"total"`
		} `json:"courier"`
		Currency string `json:"currency"`
	} `json:"data"`
	Message string `json:"message"`
}

// RequestLabel spends a request token on one of its quoted couriers. Tokens
// are single-use; the durable idempotency guard lives in the service layer.
func (c *Client) RequestLabel(ctx context.Context, requestToken, serviceCode, courierID string) (*Label, error) {
	payload := map[string]interface{}{
		"request_token": requestToken,
		"service_code":  serviceCode,
		"courier_id":    courierID,
	}
	var env labelEnvelope
	if err := c.post(ctx, "/shipping/labels", payload, &env); err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("label request rejected: %s", env.Message)
	}

	fee, _ := firstNumber(env.Data.Courier.Total)
	currency := env.Data.Currency
	if currency == "" {
		currency = "NGN"
	}
	return &Label{
		ProviderRef:  env.Data.OrderID,
		CourierID:    env.Data.Courier.ID.String(),
		CourierName:  env.Data.Courier.Name,
		FeeSubunits:  toSubunits(fee),
		Currency:     currency,
		TrackingURL:  env.Data.TrackingURL,
		RequestToken: requestToken,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("shipping provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shipping provider returned %d: %s", resp.StatusCode, raw)
	}
	return json.Unmarshal(raw, out)
}
