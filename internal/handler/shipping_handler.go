package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/service"
	"github.com/zarachi/zarachi-backend/internal/shipping"
)

type ShippingHandler struct {
	svc service.ShippingService
}

func NewShippingHandler(svc service.ShippingService) *ShippingHandler {
	return &ShippingHandler{svc: svc}
}

type ShippingAddressRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type ShippingParcelRequest struct {
	Description string  `json:"description"`
	WeightKG    float64 `json:"weightKg"`
	Quantity    int64   `json:"quantity"`
	ValueNGN    int64   `json:"valueNgn"`
}

type RatesRequest struct {
	Sender   ShippingAddressRequest  `json:"sender"`
	Receiver ShippingAddressRequest  `json:"receiver"`
	Parcels  []ShippingParcelRequest `json:"parcels"`
}

type CreateLabelRequest struct {
	RequestToken string `json:"requestToken"`
	ServiceCode  string `json:"serviceCode"`
	CourierID    string `json:"courierId"`
}

type ShippingLabelResponse struct {
	ID          uint64 `json:"id"`
	OrderID     uint64 `json:"orderId"`
	CourierID   string `json:"courierId"`
	CourierName string `json:"courierName"`
	ProviderRef string `json:"providerRef"`
	FeeSubunits int64  `json:"feeSubunits"`
	Currency    string `json:"currency"`
	TrackingURL string `json:"trackingUrl"`
	Replayed    bool   `json:"replayed"`
	CreatedAt   string `json:"createdAt"`
}

func toAddress(a ShippingAddressRequest) shipping.Address {
	return shipping.Address{Name: a.Name, Email: a.Email, Phone: a.Phone, Address: a.Address}
}

func (h *ShippingHandler) ValidateAddress(c echo.Context) error {
	var req ShippingAddressRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if req.Address == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "address is required"))
	}
	validated, err := h.svc.ValidateAddress(c.Request().Context(), toAddress(req))
	if err != nil {
		return c.JSON(http.StatusBadGateway, NewErrorResponse("provider_error", err.Error()))
	}
	return c.JSON(http.StatusOK, validated)
}

func (h *ShippingHandler) Rates(c echo.Context) error {
	var req RatesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if len(req.Parcels) == 0 {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "at least one parcel is required"))
	}
	rateReq := shipping.RateRequest{
		Sender:   toAddress(req.Sender),
		Receiver: toAddress(req.Receiver),
	}
	for _, p := range req.Parcels {
		rateReq.Parcels = append(rateReq.Parcels, shipping.Parcel{
			Description: p.Description,
			WeightKG:    p.WeightKG,
			Quantity:    p.Quantity,
			ValueNGN:    p.ValueNGN,
		})
	}
	quote, err := h.svc.Rates(c.Request().Context(), rateReq)
	if err != nil {
		if errors.Is(err, shipping.ErrNoRates) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("no_rates", "no couriers available for this route"))
		}
		return c.JSON(http.StatusBadGateway, NewErrorResponse("provider_error", err.Error()))
	}
	return c.JSON(http.StatusOK, quote)
}

// CachedQuote lets the storefront re-read a quote it already fetched without
// another provider round trip, as long as the request token is alive.
func (h *ShippingHandler) CachedQuote(c echo.Context) error {
	quote, err := h.svc.CachedQuote(c.Request().Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "quote expired or unknown"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to read quote"))
	}
	return c.JSON(http.StatusOK, quote)
}

func (h *ShippingHandler) CreateLabel(c echo.Context) error {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid order id"))
	}
	var req CreateLabelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if req.RequestToken == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "requestToken is required"))
	}
	label, replayed, err := h.svc.CreateLabel(c.Request().Context(), orderID, req.RequestToken, req.ServiceCode, req.CourierID)
	if err != nil {
		return c.JSON(http.StatusBadGateway, NewErrorResponse("provider_error", err.Error()))
	}
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	return c.JSON(status, toShippingLabelResponse(label, replayed))
}

func toShippingLabelResponse(l *model.ShippingLabel, replayed bool) ShippingLabelResponse {
	return ShippingLabelResponse{
		ID:          l.ID,
		OrderID:     l.OrderID,
		CourierID:   l.CourierID,
		CourierName: l.CourierName,
		ProviderRef: l.ProviderRef,
		FeeSubunits: l.FeeSubunits,
		Currency:    l.Currency,
		TrackingURL: l.TrackingURL,
		Replayed:    replayed,
		CreatedAt:   l.CreatedAt.Format(time.RFC3339),
	}
}
