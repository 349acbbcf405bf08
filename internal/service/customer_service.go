package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/repository"
)

type CustomerProfileInput struct {
	Email          string
	Name           string
	Phone          string
	DefaultAddress string
}

type CustomerService interface {
	Get(ctx context.Context, uid string) (*model.Customer, error)
	Save(ctx context.Context, uid string, in CustomerProfileInput) (*model.Customer, error)
	List(ctx context.Context, limit, offset int) ([]model.Customer, int64, error)
}

type customerService struct {
	repo repository.CustomerRepository
}

func NewCustomerService(repo repository.CustomerRepository) CustomerService {
	return &customerService{repo: repo}
}

func (s *customerService) Get(ctx context.Context, uid string) (*model.Customer, error) {
	c, err := s.repo.FindByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *customerService) Save(ctx context.Context, uid string, in CustomerProfileInput) (*model.Customer, error) {
	if uid == "" {
		return nil, errors.New("uid is required")
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	c := &model.Customer{
		UID:            uid,
		Email:          in.Email,
		Name:           strings.TrimSpace(in.Name),
		Phone:          strings.TrimSpace(in.Phone),
		DefaultAddress: strings.TrimSpace(in.DefaultAddress),
	}
	if err := s.repo.Upsert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *customerService) List(ctx context.Context, limit, offset int) ([]model.Customer, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.List(ctx, limit, offset)
}
