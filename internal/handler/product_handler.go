package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/service"
)

const maxImageBytes = 8 << 20

type ProductHandler struct {
	svc service.CatalogService
}

func NewProductHandler(svc service.CatalogService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

type VariantResponse struct {
	ID       uint64  `json:"id"`
	Color    string  `json:"color"`
	Size     string  `json:"size"`
	Stock    int64   `json:"stock"`
	WeightKG float64 `json:"weightKg,omitempty"`
}

type ProductResponse struct {
	ID           uint64            `json:"id"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Description  string            `json:"description,omitempty"`
	Category     string            `json:"category,omitempty"`
	ImageURL     *string           `json:"imageUrl,omitempty"`
	PriceNGN     int64             `json:"priceNgn"`
	PriceUSD     int64             `json:"priceUsd"`
	AllowSizeMod bool              `json:"allowSizeMod"`
	Active       bool              `json:"active"`
	Variants     []VariantResponse `json:"variants"`
	CreatedAt    string            `json:"createdAt"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int64             `json:"total"`
}

type ProductRequest struct {
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	PriceNGN     int64   `json:"priceNgn"`
	PriceUSD     int64   `json:"priceUsd"`
	AllowSizeMod bool    `json:"allowSizeMod"`
	WeightKG     float64 `json:"weightKg"`
	Active       bool    `json:"active"`
}

type VariantRequest struct {
	Color    string  `json:"color"`
	Size     string  `json:"size"`
	Stock    int64   `json:"stock"`
	WeightKG float64 `json:"weightKg"`
}

type RestockRequest struct {
	Quantity int64 `json:"quantity"`
}

func (r ProductRequest) toInput() service.ProductInput {
	return service.ProductInput{
		Name:         r.Name,
		Slug:         r.Slug,
		Description:  r.Description,
		Category:     r.Category,
		PriceNGN:     r.PriceNGN,
		PriceUSD:     r.PriceUSD,
		AllowSizeMod: r.AllowSizeMod,
		WeightKG:     r.WeightKG,
		Active:       r.Active,
	}
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	p, err := h.svc.Create(c.Request().Context(), req.toInput())
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to create product"))
	}
	return c.JSON(http.StatusCreated, toProductResponse(p))
}

func (h *ProductHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	p, err := h.svc.Update(c.Request().Context(), id, req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "product not found"))
		case errors.Is(err, service.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to update product"))
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}

func (h *ProductHandler) GetBySlug(c echo.Context) error {
	p, err := h.svc.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "product not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch product"))
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}

func (h *ProductHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	activeOnly := c.QueryParam("all") == ""
	products, total, err := h.svc.List(c.Request().Context(), c.QueryParam("category"), activeOnly, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch products"))
	}
	resp := ProductListResponse{
		Products: make([]ProductResponse, 0, len(products)),
		Total:    total,
	}
	for i := range products {
		resp.Products = append(resp.Products, toProductResponse(&products[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) AddVariant(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	var req VariantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	v, err := h.svc.AddVariant(c.Request().Context(), id, service.VariantInput{
		Color:    req.Color,
		Size:     req.Size,
		Stock:    req.Stock,
		WeightKG: req.WeightKG,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "product not found"))
		case errors.Is(err, service.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to add variant"))
	}
	return c.JSON(http.StatusCreated, toVariantResponse(v))
}

func (h *ProductHandler) Restock(c echo.Context) error {
	variantID, err := strconv.ParseUint(c.Param("variantId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid variant id"))
	}
	var req RestockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if err := h.svc.Restock(c.Request().Context(), variantID, req.Quantity); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "variant not found"))
		case errors.Is(err, service.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to restock"))
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadImage takes the raw image bytes as the request body; Content-Type
// decides the stored extension.
func (h *ProductHandler) UploadImage(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImageBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "failed to read image"))
	}
	p, err := h.svc.AttachImage(c.Request().Context(), id, data, c.Request().Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "product not found"))
		case errors.Is(err, service.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to upload image"))
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}

func toVariantResponse(v *model.Variant) VariantResponse {
	return VariantResponse{
		ID:       v.ID,
		Color:    v.Color,
		Size:     v.Size,
		Stock:    v.Stock,
		WeightKG: v.WeightKG,
	}
}

func toProductResponse(p *model.Product) ProductResponse {
	resp := ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Description:  p.Description,
		Category:     p.Category,
		ImageURL:     p.ImageURL,
		PriceNGN:     p.PriceNGN,
		PriceUSD:     p.PriceUSD,
		AllowSizeMod: p.AllowSizeMod,
		Active:       p.Active,
		Variants:     make([]VariantResponse, 0, len(p.Variants)),
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
	for i := range p.Variants {
		resp.Variants = append(resp.Variants, toVariantResponse(&p.Variants[i]))
	}
	return resp
}
