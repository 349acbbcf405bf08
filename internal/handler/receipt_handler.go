package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zarachi/zarachi-backend/internal/service"
)

type ReceiptHandler struct {
	svc service.ReceiptService
}

func NewReceiptHandler(svc service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{svc: svc}
}

type ReceiptStatusResponse struct {
	OrderID        uint64 `json:"orderId"`
	RecipientEmail string `json:"recipientEmail"`
	Sent           bool   `json:"sent"`
	Attempts       int    `json:"attempts"`
	LastError      string `json:"lastError,omitempty"`
	NextRetryAt    string `json:"nextRetryAt,omitempty"`
	SentAt         string `json:"sentAt,omitempty"`
}

type DispatchDueResponse struct {
	Sent int `json:"sent"`
}

// DispatchDue re-attempts overdue receipts. Driven by an external cron.
func (h *ReceiptHandler) DispatchDue(c echo.Context) error {
	sent, err := h.svc.DispatchDue(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "retry sweep failed"))
	}
	return c.JSON(http.StatusOK, DispatchDueResponse{Sent: sent})
}

func (h *ReceiptHandler) Status(c echo.Context) error {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	status, err := h.svc.StatusForOrder(c.Request().Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "no receipt record for order"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch receipt status"))
	}
	resp := ReceiptStatusResponse{
		OrderID:        status.OrderID,
		RecipientEmail: status.RecipientEmail,
		Sent:           status.Sent,
		Attempts:       status.Attempts,
		LastError:      status.LastError,
	}
	if status.NextRetryAt != nil {
		resp.NextRetryAt = status.NextRetryAt.Format(time.RFC3339)
	}
	if status.SentAt != nil {
		resp.SentAt = status.SentAt.Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}
