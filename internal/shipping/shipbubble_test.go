package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeRate(t *testing.T) {
	tests := []struct {
		name    string
		raw     rawRate
		want    Rate
		wantOK  bool
	}{
		{
			name: "current field names",
			raw:  rawRate{CourierID: "21", CourierName: "Kwik", Total: "1500.50", Currency: "NGN", DeliveryETA: "Same day"},
			want: Rate{CourierID: "21", CourierName: "Kwik", FeeSubunits: 150050, Currency: "NGN", DeliveryETA: "Same day"},
			wantOK: true,
		},
		{
			name: "legacy courier and amount names",
			raw:  rawRate{Courier: "GIG Logistics", Amount: "2000", EstDelivery: "2 days"},
			want: Rate{CourierName: "GIG Logistics", FeeSubunits: 200000, Currency: "NGN", DeliveryETA: "2 days"},
			wantOK: true,
		},
		{
			name: "rate_amount with bare name",
			raw:  rawRate{Name: "DHL", RateAmount: "12500", Currency: "NGN", DeliveryTime: "next day"},
			want: Rate{CourierName: "DHL", FeeSubunits: 1250000, Currency: "NGN", DeliveryETA: "next day"},
			wantOK: true,
		},
		{
			name:   "sub-kobo fraction rounds up",
			raw:    rawRate{CourierName: "Kwik", Total: "10.555"},
			want:   Rate{CourierName: "Kwik", FeeSubunits: 1056, Currency: "NGN"},
			wantOK: true,
		},
		{
			name:   "no courier name",
			raw:    rawRate{Total: "1000"},
			wantOK: false,
		},
		{
			name:   "no amount",
			raw:    rawRate{CourierName: "Kwik"},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.raw.normalize()
			if ok != tt.wantOK {
				t.Fatalf("ok=%v want=%v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("got=%+v want=%+v", got, tt.want)
			}
		})
	}
}

func TestFetchRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shipping/fetch_rates" {
			t.Errorf("path=%q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": {
				"request_token": "tok-abc",
				"couriers": [
					{"courier_id": 21, "courier_name": "Kwik", "total": 1500, "currency": "NGN", "delivery_eta": "Same day"},
					{"courier": "GIG Logistics", "amount": 2000},
					{"total": 900}
				]
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sb_test")
	quote, err := c.FetchRates(context.Background(), RateRequest{})
	if err != nil {
		t.Fatalf("FetchRates: %v", err)
	}
	if quote.RequestToken != "tok-abc" {
		t.Fatalf("token=%q", quote.RequestToken)
	}
	// The nameless third entry is dropped, not surfaced half-empty.
	if len(quote.Rates) != 2 {
		t.Fatalf("rates=%d want=2", len(quote.Rates))
	}
	if quote.Rates[0].CourierID != "21" || quote.Rates[0].FeeSubunits != 150000 {
		t.Fatalf("rate[0]=%+v", quote.Rates[0])
	}
}

func TestFetchRatesRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"invalid address code"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sb_test")
	if _, err := c.FetchRates(context.Background(), RateRequest{}); err == nil {
		t.Fatal("expected error for rejected fetch")
	}
}

func TestRequestLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": {
				"order_id": "SB-9921",
				"tracking_url": "https://track.example/SB-9921",
				"courier": {"id": 21, "name": "Kwik", "total": 1500},
				"currency": "NGN"
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sb_test")
	label, err := c.RequestLabel(context.Background(), "tok-abc", "pickup", "21")
	if err != nil {
		t.Fatalf("RequestLabel: %v", err)
	}
	if label.ProviderRef != "SB-9921" || label.FeeSubunits != 150000 || label.CourierName != "Kwik" {
		t.Fatalf("label=%+v", label)
	}
}
