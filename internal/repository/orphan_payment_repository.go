package repository

import (
	"context"
	"time"

	"github.com/zarachi/zarachi-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrphanPaymentRepository interface {
	// Record is idempotent per reference: recording the same orphaned charge
	// twice leaves exactly one row.
	Record(ctx context.Context, op *model.OrphanPayment) error
	FindByID(ctx context.Context, id uint64) (*model.OrphanPayment, error)
	ListUnresolved(ctx context.Context, limit, offset int) ([]model.OrphanPayment, int64, error)
	Resolve(ctx context.Context, id uint64, note string) error
}

type orphanPaymentRepository struct {
	db *gorm.DB
}

func NewOrphanPaymentRepository(db *gorm.DB) OrphanPaymentRepository {
	return &orphanPaymentRepository{db: db}
}

func (r *orphanPaymentRepository) Record(ctx context.Context, op *model.OrphanPayment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reference"}},
			DoNothing: true,
		}).
		Create(op).Error
}

func (r *orphanPaymentRepository) FindByID(ctx context.Context, id uint64) (*model.OrphanPayment, error) {
	var op model.OrphanPayment
	if err := r.db.WithContext(ctx).First(&op, id).Error; err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *orphanPaymentRepository) ListUnresolved(ctx context.Context, limit, offset int) ([]model.OrphanPayment, int64, error) {
	var (
		list  []model.OrphanPayment
		total int64
	)
	q := r.db.WithContext(ctx).Model(&model.OrphanPayment{}).Where("reconciled = ?", false)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *orphanPaymentRepository) Resolve(ctx context.Context, id uint64, note string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.OrphanPayment{}).
		Where("id = ? AND reconciled = ?", id, false).
		Updates(map[string]interface{}{
			"reconciled":      true,
			"reconciled_at":   now,
			"resolution_note": note,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
