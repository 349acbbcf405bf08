package repository

import (
	"context"
	"time"

	"github.com/zarachi/zarachi-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReceiptRepository interface {
	Upsert(ctx context.Context, status *model.ReceiptEmailStatus) error
	FindByOrder(ctx context.Context, orderID uint64) (*model.ReceiptEmailStatus, error)
	// ListDue returns unsent rows whose retry window has passed, plus rows
	// that never got a first attempt (a crash between the checkout commit
	// and the async dispatch leaves attempts at 0 with no retry time).
	ListDue(ctx context.Context, now time.Time, limit int) ([]model.ReceiptEmailStatus, error)
}

type receiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) Upsert(ctx context.Context, status *model.ReceiptEmailStatus) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"recipient_email", "sent", "attempts", "last_error", "next_retry_at", "sent_at",
			}),
		}).
		Create(status).Error
}

func (r *receiptRepository) FindByOrder(ctx context.Context, orderID uint64) (*model.ReceiptEmailStatus, error) {
	var s model.ReceiptEmailStatus
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *receiptRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]model.ReceiptEmailStatus, error) {
	var list []model.ReceiptEmailStatus
	if err := r.db.WithContext(ctx).
		Where("sent = ? AND (next_retry_at <= ? OR (attempts = 0 AND next_retry_at IS NULL))", false, now).
		Order("next_retry_at asc").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
