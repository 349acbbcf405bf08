package repository

import (
	"context"
	"errors"

	"github.com/zarachi/zarachi-backend/internal/model"
	"gorm.io/gorm"
)

type ShippingLabelRepository interface {
	Create(ctx context.Context, l *model.ShippingLabel) error
	// FindByRequestToken returns (nil, nil) when the token was never spent.
	FindByRequestToken(ctx context.Context, token string) (*model.ShippingLabel, error)
	ListByOrder(ctx context.Context, orderID uint64) ([]model.ShippingLabel, error)
}

type shippingLabelRepository struct {
	db *gorm.DB
}

func NewShippingLabelRepository(db *gorm.DB) ShippingLabelRepository {
	return &shippingLabelRepository{db: db}
}

func (r *shippingLabelRepository) Create(ctx context.Context, l *model.ShippingLabel) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *shippingLabelRepository) FindByRequestToken(ctx context.Context, token string) (*model.ShippingLabel, error) {
	var l model.ShippingLabel
	if err := r.db.WithContext(ctx).
		Where("request_token = ?", token).
		First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *shippingLabelRepository) ListByOrder(ctx context.Context, orderID uint64) ([]model.ShippingLabel, error) {
	var list []model.ShippingLabel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id desc").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
