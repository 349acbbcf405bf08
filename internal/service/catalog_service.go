package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/repository"
	"gorm.io/gorm"
)

// ImageUploader stores a product image and returns its public URL.
type ImageUploader interface {
	UploadProductImage(ctx context.Context, data []byte, contentType string) (string, error)
}

type ProductInput struct {
	Name         string
	Slug         string
	Description  string
	Category     string
	PriceNGN     int64
	PriceUSD     int64
	AllowSizeMod bool
	WeightKG     float64
	Active       bool
}

type VariantInput struct {
	Color    string
	Size     string
	Stock    int64
	WeightKG float64
}

type CatalogService interface {
	Create(ctx context.Context, in ProductInput) (*model.Product, error)
	Update(ctx context.Context, id uint64, in ProductInput) (*model.Product, error)
	Get(ctx context.Context, id uint64) (*model.Product, error)
	GetBySlug(ctx context.Context, slug string) (*model.Product, error)
	List(ctx context.Context, category string, activeOnly bool, limit, offset int) ([]model.Product, int64, error)
	AddVariant(ctx context.Context, productID uint64, in VariantInput) (*model.Variant, error)
	Restock(ctx context.Context, variantID uint64, qty int64) error
	AttachImage(ctx context.Context, productID uint64, data []byte, contentType string) (*model.Product, error)
}

type catalogService struct {
	repo     repository.ProductRepository
	uploader ImageUploader
}

func NewCatalogService(repo repository.ProductRepository, uploader ImageUploader) CatalogService {
	return &catalogService{repo: repo, uploader: uploader}
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func validateProductInput(in *ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(strings.ToLower(in.Slug))
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" || len(in.Name) > 160 {
		return fmt.Errorf("%w: invalid name", ErrInvalidInput)
	}
	if !slugPattern.MatchString(in.Slug) {
		return fmt.Errorf("%w: slug must be lowercase letters, digits and dashes", ErrInvalidInput)
	}
	if in.PriceNGN <= 0 || in.PriceUSD <= 0 {
		return fmt.Errorf("%w: prices must be positive in both currencies", ErrInvalidInput)
	}
	return nil
}

func (s *catalogService) Create(ctx context.Context, in ProductInput) (*model.Product, error) {
	if err := validateProductInput(&in); err != nil {
		return nil, err
	}
	p := &model.Product{
		Name:         in.Name,
		Slug:         in.Slug,
		Description:  in.Description,
		Category:     in.Category,
		PriceNGN:     in.PriceNGN,
		PriceUSD:     in.PriceUSD,
		AllowSizeMod: in.AllowSizeMod,
		WeightKG:     in.WeightKG,
		Active:       in.Active,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: slug already in use", ErrInvalidInput)
		}
		return nil, err
	}
	return p, nil
}

func (s *catalogService) Update(ctx context.Context, id uint64, in ProductInput) (*model.Product, error) {
	if err := validateProductInput(&in); err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Name = in.Name
	p.Slug = in.Slug
	p.Description = in.Description
	p.Category = in.Category
	p.PriceNGN = in.PriceNGN
	p.PriceUSD = in.PriceUSD
	p.AllowSizeMod = in.AllowSizeMod
	p.WeightKG = in.WeightKG
	p.Active = in.Active
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *catalogService) Get(ctx context.Context, id uint64) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *catalogService) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	p, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *catalogService) List(ctx context.Context, category string, activeOnly bool, limit, offset int) ([]model.Product, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, category, activeOnly, limit, offset)
}

func (s *catalogService) AddVariant(ctx context.Context, productID uint64, in VariantInput) (*model.Variant, error) {
	in.Color = strings.TrimSpace(in.Color)
	in.Size = strings.TrimSpace(in.Size)
	if in.Color == "" || in.Size == "" {
		return nil, fmt.Errorf("%w: color and size are required", ErrInvalidInput)
	}
	if in.Stock < 0 {
		return nil, fmt.Errorf("%w: stock cannot be negative", ErrInvalidInput)
	}
	if _, err := s.Get(ctx, productID); err != nil {
		return nil, err
	}
	v := &model.Variant{
		ProductID: productID,
		Color:     in.Color,
		Size:      in.Size,
		Stock:     in.Stock,
		WeightKG:  in.WeightKG,
	}
	if err := s.repo.CreateVariant(ctx, v); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: variant already exists for this color and size", ErrInvalidInput)
		}
		return nil, err
	}
	return v, nil
}

func (s *catalogService) Restock(ctx context.Context, variantID uint64, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: restock quantity must be positive", ErrInvalidInput)
	}
	if err := s.repo.AddStock(ctx, variantID, qty); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *catalogService) AttachImage(ctx context.Context, productID uint64, data []byte, contentType string) (*model.Product, error) {
	if s.uploader == nil {
		return nil, errors.New("image storage is not configured")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}
	p, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	url, err := s.uploader.UploadProductImage(ctx, data, contentType)
	if err != nil {
		return nil, err
	}
	p.ImageURL = &url
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
