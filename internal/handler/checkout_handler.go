package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/service"
)

type CheckoutHandler struct {
	svc service.CheckoutService
}

func NewCheckoutHandler(svc service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

type CheckoutItemRequest struct {
	ProductID          uint64 `json:"productId"`
	Color              string `json:"color"`
	Size               string `json:"size"`
	Quantity           int64  `json:"quantity"`
	SizeModification   bool   `json:"sizeModification"`
	CustomMeasurements string `json:"customMeasurements"`
}

type CheckoutGuestRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type CheckoutRequest struct {
	Items            []CheckoutItemRequest `json:"items"`
	Currency         string                `json:"currency"`
	Guest            *CheckoutGuestRequest `json:"guest"`
	DeliveryFee      int64                 `json:"deliveryFee"`
	DeliveryOption   string                `json:"deliveryOption"`
	DeliveryAddress  string                `json:"deliveryAddress"`
	PaymentReference string                `json:"paymentReference"`
	PaymentMethod    string                `json:"paymentMethod"`
}

type CheckoutResponse struct {
	Order          OrderResponse `json:"order"`
	AlreadyExisted bool          `json:"alreadyExisted"`
	// AccessToken is only returned for guest orders, on creation.
	AccessToken string `json:"accessToken,omitempty"`
}

// Place handles both guest and signed-in checkouts; the signed-in route sets
// uid on the context via the auth middleware.
func (h *CheckoutHandler) Place(c echo.Context) error {
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}

	in := service.PlaceOrderInput{
		Currency:         req.Currency,
		DeliveryFee:      req.DeliveryFee,
		DeliveryOption:   req.DeliveryOption,
		DeliveryAddress:  req.DeliveryAddress,
		PaymentReference: req.PaymentReference,
		PaymentMethod:    req.PaymentMethod,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.CheckoutLine{
			ProductID:          it.ProductID,
			Color:              it.Color,
			Size:               it.Size,
			Quantity:           it.Quantity,
			SizeModification:   it.SizeModification,
			CustomMeasurements: it.CustomMeasurements,
		})
	}
	if uid, ok := c.Get("uid").(string); ok && uid != "" {
		in.CustomerUID = uid
	} else if req.Guest != nil {
		in.Guest = &service.GuestInfo{
			Name:  req.Guest.Name,
			Email: req.Guest.Email,
			Phone: req.Guest.Phone,
		}
	}

	res, err := h.svc.PlaceOrder(c.Request().Context(), in)
	if err != nil {
		return checkoutError(c, err)
	}

	resp := CheckoutResponse{
		Order:          toOrderResponse(res.Order),
		AlreadyExisted: res.AlreadyExisted,
	}
	if !res.AlreadyExisted && res.Order.CustomerUID == nil {
		resp.AccessToken = res.Order.AccessToken
	}
	status := http.StatusCreated
	if res.AlreadyExisted {
		status = http.StatusOK
	}
	return c.JSON(status, resp)
}

func checkoutError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrPaymentFailed):
		return c.JSON(http.StatusPaymentRequired, NewErrorResponse("payment_failed", err.Error()))
	case errors.Is(err, service.ErrAmountMismatch):
		return c.JSON(http.StatusConflict, NewErrorResponse("amount_mismatch", err.Error()))
	case errors.Is(err, service.ErrCurrencyMismatch):
		return c.JSON(http.StatusConflict, NewErrorResponse("currency_mismatch", err.Error()))
	case errors.Is(err, service.ErrInsufficientStock):
		return c.JSON(http.StatusConflict, NewErrorResponse("insufficient_stock", err.Error()))
	case errors.Is(err, service.ErrUnsupportedCurrency),
		errors.Is(err, service.ErrVariantNotFound),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	default:
		// Anything unrecognized is an infrastructure failure, never the
		// client's fault.
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "checkout failed"))
	}
}

type OrderItemResponse struct {
	ProductID          uint64  `json:"productId"`
	VariantID          uint64  `json:"variantId"`
	Name               string  `json:"name"`
	ImageURL           *string `json:"imageUrl,omitempty"`
	Color              string  `json:"color"`
	Size               string  `json:"size"`
	Quantity           int64   `json:"quantity"`
	UnitPrice          int64   `json:"unitPrice"`
	LineTotal          int64   `json:"lineTotal"`
	SizeModified       bool    `json:"sizeModified"`
	SizeModFee         int64   `json:"sizeModFee,omitempty"`
	CustomMeasurements string  `json:"customMeasurements,omitempty"`
}

type OrderResponse struct {
	ID               uint64              `json:"id"`
	OrderNo          string              `json:"orderNo"`
	Status           string              `json:"status"`
	Channel          string              `json:"channel"`
	Currency         string              `json:"currency"`
	ItemsSubtotal    int64               `json:"itemsSubtotal"`
	DeliveryFee      int64               `json:"deliveryFee"`
	TotalAmount      int64               `json:"totalAmount"`
	PaymentReference string              `json:"paymentReference"`
	PaymentVerified  bool                `json:"paymentVerified"`
	DeliveryOption   string              `json:"deliveryOption,omitempty"`
	DeliveryAddress  string              `json:"deliveryAddress,omitempty"`
	GuestName        string              `json:"guestName,omitempty"`
	GuestEmail       string              `json:"guestEmail,omitempty"`
	RefundedAmount   int64               `json:"refundedAmount,omitempty"`
	RefundReason     string              `json:"refundReason,omitempty"`
	Items            []OrderItemResponse `json:"items"`
	CreatedAt        string              `json:"createdAt"`
}

func toOrderResponse(o *model.Order) OrderResponse {
	resp := OrderResponse{
		ID:               o.ID,
		OrderNo:          o.OrderNo,
		Status:           string(o.Status),
		Channel:          string(o.Channel),
		Currency:         o.Currency,
		ItemsSubtotal:    o.ItemsSubtotal,
		DeliveryFee:      o.DeliveryFee,
		TotalAmount:      o.TotalAmount,
		PaymentReference: o.PaymentReference,
		PaymentVerified:  o.PaymentVerified,
		DeliveryOption:   o.DeliveryOption,
		DeliveryAddress:  o.DeliveryAddress,
		GuestName:        o.GuestName,
		GuestEmail:       o.GuestEmail,
		RefundedAmount:   o.RefundedAmount,
		RefundReason:     o.RefundReason,
		Items:            make([]OrderItemResponse, 0, len(o.Items)),
		CreatedAt:        o.CreatedAt.Format(time.RFC3339),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID:          it.ProductID,
			VariantID:          it.VariantID,
			Name:               it.Name,
			ImageURL:           it.ImageURL,
			Color:              it.Color,
			Size:               it.Size,
			Quantity:           it.Quantity,
			UnitPrice:          it.UnitPrice,
			LineTotal:          it.LineTotal,
			SizeModified:       it.SizeModified,
			SizeModFee:         it.SizeModFee,
			CustomMeasurements: it.CustomMeasurements,
		})
	}
	return resp
}
