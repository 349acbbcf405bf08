package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/repository"
	"gorm.io/gorm"
)

// OrderService covers everything that happens to an order after the checkout
// transaction created it. Status transitions here are deliberately
// out-of-band updates, not part of the placement transaction.
type OrderService interface {
	Get(ctx context.Context, id uint64) (*model.Order, error)
	GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error)
	// GetForGuest looks an order up by number plus the access token issued
	// at checkout, so guests can track without an account.
	GetForGuest(ctx context.Context, orderNo, accessToken string) (*model.Order, error)
	List(ctx context.Context, status string, limit, offset int) ([]model.Order, int64, error)
	ListByCustomer(ctx context.Context, uid string, limit, offset int) ([]model.Order, int64, error)
	UpdateStatus(ctx context.Context, id uint64, status string) (*model.Order, error)
	Refund(ctx context.Context, id uint64, amount int64, reason string) (*model.Order, error)
}

type orderService struct {
	repo repository.OrderRepository
}

func NewOrderService(repo repository.OrderRepository) OrderService {
	return &orderService{repo: repo}
}

func (s *orderService) Get(ctx context.Context, id uint64) (*model.Order, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (s *orderService) GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	o, err := s.repo.FindByOrderNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (s *orderService) GetForGuest(ctx context.Context, orderNo, accessToken string) (*model.Order, error) {
	o, err := s.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if accessToken == "" || o.AccessToken != accessToken {
		return nil, ErrForbidden
	}
	return o, nil
}

func parseStatus(status string) (model.OrderStatus, error) {
	switch model.OrderStatus(status) {
	case model.OrderStatusProcessing, model.OrderStatusShipped,
		model.OrderStatusDelivered, model.OrderStatusCancelled:
		return model.OrderStatus(status), nil
	}
	return "", fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, status)
}

func (s *orderService) List(ctx context.Context, status string, limit, offset int) ([]model.Order, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var st model.OrderStatus
	if status != "" {
		parsed, err := parseStatus(status)
		if err != nil {
			return nil, 0, err
		}
		st = parsed
	}
	return s.repo.List(ctx, st, limit, offset)
}

func (s *orderService) ListByCustomer(ctx context.Context, uid string, limit, offset int) ([]model.Order, int64, error) {
	if uid == "" {
		return nil, 0, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByCustomer(ctx, uid, limit, offset)
}

func (s *orderService) UpdateStatus(ctx context.Context, id uint64, status string) (*model.Order, error) {
	st, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, st); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *orderService) Refund(ctx context.Context, id uint64, amount int64, reason string) (*model.Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: refund amount must be positive", ErrInvalidInput)
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if amount > o.TotalAmount {
		return nil, fmt.Errorf("%w: refund exceeds order total", ErrInvalidInput)
	}
	if err := s.repo.MarkRefunded(ctx, id, amount, reason); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}
