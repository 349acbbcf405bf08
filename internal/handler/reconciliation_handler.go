package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/payment"
	"github.com/zarachi/zarachi-backend/internal/service"
)

type ReconciliationHandler struct {
	svc service.ReconciliationService
}

func NewReconciliationHandler(svc service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{svc: svc}
}

type OrphanPaymentResponse struct {
	ID             uint64 `json:"id"`
	Reference      string `json:"reference"`
	AmountSubunits int64  `json:"amountSubunits"`
	Currency       string `json:"currency"`
	Reason         string `json:"reason"`
	Reconciled     bool   `json:"reconciled"`
	ReconciledAt   string `json:"reconciledAt,omitempty"`
	ResolutionNote string `json:"resolutionNote,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

type OrphanPaymentListResponse struct {
	Payments []OrphanPaymentResponse `json:"payments"`
	Total    int64                   `json:"total"`
}

type LiveVerificationResponse struct {
	Recorded OrphanPaymentResponse `json:"recorded"`
	Live     struct {
		Verified       bool   `json:"verified"`
		Reason         string `json:"reason,omitempty"`
		AmountSubunits int64  `json:"amountSubunits"`
		Currency       string `json:"currency"`
	} `json:"live"`
}

type ResolveRequest struct {
	Note string `json:"note"`
}

func (h *ReconciliationHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	payments, total, err := h.svc.ListUnresolved(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch orphan payments"))
	}
	resp := OrphanPaymentListResponse{
		Payments: make([]OrphanPaymentResponse, 0, len(payments)),
		Total:    total,
	}
	for i := range payments {
		resp.Payments = append(resp.Payments, toOrphanResponse(&payments[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// Verify re-queries the gateway so staff can compare the live charge state
// against what checkout recorded.
func (h *ReconciliationHandler) Verify(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	orphan, live, err := h.svc.VerifyLive(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "orphan payment not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "verification failed"))
	}
	return c.JSON(http.StatusOK, toLiveVerificationResponse(orphan, live))
}

func (h *ReconciliationHandler) Resolve(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if req.Note == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "a resolution note is required"))
	}
	orphan, err := h.svc.Resolve(c.Request().Context(), id, req.Note)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "orphan payment not found or already resolved"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to resolve"))
	}
	return c.JSON(http.StatusOK, toOrphanResponse(orphan))
}

func toOrphanResponse(op *model.OrphanPayment) OrphanPaymentResponse {
	resp := OrphanPaymentResponse{
		ID:             op.ID,
		Reference:      op.Reference,
		AmountSubunits: op.AmountSubunits,
		Currency:       op.Currency,
		Reason:         op.Reason,
		Reconciled:     op.Reconciled,
		ResolutionNote: op.ResolutionNote,
		CreatedAt:      op.CreatedAt.Format(time.RFC3339),
	}
	if op.ReconciledAt != nil {
		resp.ReconciledAt = op.ReconciledAt.Format(time.RFC3339)
	}
	return resp
}

func toLiveVerificationResponse(op *model.OrphanPayment, live payment.Verification) LiveVerificationResponse {
	var resp LiveVerificationResponse
	resp.Recorded = toOrphanResponse(op)
	resp.Live.Verified = live.Verified
	resp.Live.Reason = live.Reason
	resp.Live.AmountSubunits = live.AmountSubunits
	resp.Live.Currency = live.Currency
	return resp
}
