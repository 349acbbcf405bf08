package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/service"
)

type CustomerHandler struct {
	svc service.CustomerService
}

func NewCustomerHandler(svc service.CustomerService) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

type CustomerResponse struct {
	UID            string `json:"uid"`
	Email          string `json:"email"`
	Name           string `json:"name,omitempty"`
	Phone          string `json:"phone,omitempty"`
	DefaultAddress string `json:"defaultAddress,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

type SaveProfileRequest struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	DefaultAddress string `json:"defaultAddress"`
}

func (h *CustomerHandler) Me(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	cust, err := h.svc.Get(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "no profile saved yet"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch profile"))
	}
	return c.JSON(http.StatusOK, toCustomerResponse(cust))
}

func (h *CustomerHandler) SaveMe(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	var req SaveProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	cust, err := h.svc.Save(c.Request().Context(), uid, service.CustomerProfileInput{
		Email:          req.Email,
		Name:           req.Name,
		Phone:          req.Phone,
		DefaultAddress: req.DefaultAddress,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to save profile"))
	}
	return c.JSON(http.StatusOK, toCustomerResponse(cust))
}

func toCustomerResponse(cust *model.Customer) CustomerResponse {
	return CustomerResponse{
		UID:            cust.UID,
		Email:          cust.Email,
		Name:           cust.Name,
		Phone:          cust.Phone,
		DefaultAddress: cust.DefaultAddress,
		CreatedAt:      cust.CreatedAt.Format(time.RFC3339),
	}
}
