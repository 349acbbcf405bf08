package repository

import (
	"context"
	"errors"

	"github.com/zarachi/zarachi-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository interface {
	Upsert(ctx context.Context, c *model.Customer) error
	FindByUID(ctx context.Context, uid string) (*model.Customer, error)
	List(ctx context.Context, limit, offset int) ([]model.Customer, int64, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Upsert(ctx context.Context, c *model.Customer) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "name", "phone", "default_address"}),
		}).
		Create(c).Error
}

// FindByUID returns (nil, nil) when the customer has never saved a profile.
func (r *customerRepository) FindByUID(ctx context.Context, uid string) (*model.Customer, error) {
	var c model.Customer
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *customerRepository) List(ctx context.Context, limit, offset int) ([]model.Customer, int64, error) {
	var (
		list  []model.Customer
		total int64
	)
	if err := r.db.WithContext(ctx).Model(&model.Customer{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
