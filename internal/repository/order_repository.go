package repository

import (
	"context"
	"errors"
	"time"

	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/orderid"
	"gorm.io/gorm"
)

// ErrInsufficientStock means a conditional stock decrement matched no row:
// either the variant vanished or it had fewer units than requested. Both
// abort the whole checkout transaction.
var ErrInsufficientStock = errors.New("insufficient stock")

// txTimeout bounds the checkout transaction. A transaction that cannot
// finish inside this window rolls back; the client may safely retry because
// of the payment-reference idempotency guarantee.
const txTimeout = 15 * time.Second

// StockDecrement is one variant decrement applied inside the checkout
// transaction.
type StockDecrement struct {
	VariantID uint64
	Quantity  int64
}

type OrderRepository interface {
	// CreateWithItems runs the whole order-placement transaction: stock
	// decrements, serial allocation, order + item inserts and the receipt
	// outbox row. All-or-nothing.
	CreateWithItems(ctx context.Context, order *model.Order, recipientEmail string, decrements []StockDecrement) error
	FindByPaymentReference(ctx context.Context, reference string) (*model.Order, error)
	FindByID(ctx context.Context, id uint64) (*model.Order, error)
	FindByOrderNo(ctx context.Context, orderNo string) (*model.Order, error)
	ListByCustomer(ctx context.Context, uid string, limit, offset int) ([]model.Order, int64, error)
	List(ctx context.Context, status model.OrderStatus, limit, offset int) ([]model.Order, int64, error)
	UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus) error
	MarkRefunded(ctx context.Context, id uint64, amount int64, reason string) error
}

type orderRepository struct {
	db     *gorm.DB
	prefix string
}

func NewOrderRepository(db *gorm.DB, prefix string) OrderRepository {
	return &orderRepository{db: db, prefix: prefix}
}

func (r *orderRepository) CreateWithItems(ctx context.Context, order *model.Order, recipientEmail string, decrements []StockDecrement) error {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional decrement: the WHERE clause is the stock check, so
		// check and decrement are one statement and cannot race. Concurrent
		// checkouts competing for the last units serialize on the row lock;
		// the loser matches nothing and the transaction rolls back.
		for _, d := range decrements {
			res := tx.Model(&model.Variant{}).
				Where("id = ? AND stock >= ?", d.VariantID, d.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", d.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInsufficientStock
			}
		}

		// Each insert yields a fresh serial; the auto-increment is the
		// allocator, so there is no read-modify-write on a counter.
		serial := &model.OrderSerial{}
		if err := tx.Create(serial).Error; err != nil {
			return err
		}
		no := orderid.Format(r.prefix, serial.ID)
		if err := orderid.Validate(no); err != nil {
			// Allocator bug. Never persist a malformed order number.
			return err
		}
		order.OrderNo = no

		if err := tx.Create(order).Error; err != nil {
			return err
		}

		outbox := &model.ReceiptEmailStatus{
			OrderID:        order.ID,
			RecipientEmail: recipientEmail,
		}
		return tx.Create(outbox).Error
	})
}

// FindByPaymentReference returns (nil, nil) when no order carries the
// reference yet.
func (r *orderRepository) FindByPaymentReference(ctx context.Context, reference string) (*model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("payment_reference = ?", reference).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint64) (*model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_no = ?", orderNo).
		First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, uid string, limit, offset int) ([]model.Order, int64, error) {
	var (
		orders []model.Order
		total  int64
	)
	q := r.db.WithContext(ctx).Model(&model.Order{}).Where("customer_uid = ?", uid)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Preload("Items").
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) List(ctx context.Context, status model.OrderStatus, limit, offset int) ([]model.Order, int64, error) {
	var (
		orders []model.Order
		total  int64
	)
	q := r.db.WithContext(ctx).Model(&model.Order{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Preload("Items").
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepository) MarkRefunded(ctx context.Context, id uint64, amount int64, reason string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          model.OrderStatusCancelled,
			"refunded_amount": amount,
			"refund_reason":   reason,
			"refunded_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
