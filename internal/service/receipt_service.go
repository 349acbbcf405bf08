package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zarachi/zarachi-backend/internal/mail"
	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	receiptBaseDelay = 2 * time.Minute
	receiptMaxDelay  = time.Hour
	dispatchTimeout  = 30 * time.Second
)

type ReceiptService interface {
	ReceiptDispatcher
	// Dispatch sends the receipt for one order and records the outcome.
	Dispatch(ctx context.Context, order *model.Order, recipient string) error
	// DispatchDue re-attempts every unsent receipt whose retry window has
	// passed. Meant to be driven by an external cron, not an in-process
	// scheduler.
	DispatchDue(ctx context.Context) (sent int, err error)
	StatusForOrder(ctx context.Context, orderID uint64) (*model.ReceiptEmailStatus, error)
}

type receiptService struct {
	receipts  repository.ReceiptRepository
	orders    repository.OrderRepository
	customers repository.CustomerRepository
	sender    mail.Sender
	storeName string
	logger    *zap.Logger
	now       func() time.Time
}

func NewReceiptService(
	receipts repository.ReceiptRepository,
	orders repository.OrderRepository,
	customers repository.CustomerRepository,
	sender mail.Sender,
	storeName string,
	logger *zap.Logger,
) ReceiptService {
	return &receiptService{
		receipts:  receipts,
		orders:    orders,
		customers: customers,
		sender:    sender,
		storeName: storeName,
		logger:    logger,
		now:       time.Now,
	}
}

// DispatchAsync fires the first delivery attempt without blocking the
// checkout response. Failures are recorded for retry, never propagated.
func (s *receiptService) DispatchAsync(order *model.Order, recipient string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := s.Dispatch(ctx, order, recipient); err != nil {
			s.logger.Warn("receipt dispatch failed, scheduled for retry",
				zap.String("order_no", order.OrderNo), zap.Error(err))
		}
	}()
}

func (s *receiptService) Dispatch(ctx context.Context, order *model.Order, recipient string) error {
	status, err := s.receipts.FindByOrder(ctx, order.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		// Outbox row missing (pre-outbox orders); start a fresh one.
		status = &model.ReceiptEmailStatus{OrderID: order.ID, RecipientEmail: recipient}
	}
	if status.Sent {
		return nil
	}
	if recipient == "" {
		recipient = status.RecipientEmail
	}

	sendErr := s.send(ctx, order, recipient)
	status.Attempts++
	status.RecipientEmail = recipient
	if sendErr != nil {
		next := s.now().Add(backoffDelay(status.Attempts))
		status.LastError = sendErr.Error()
		status.NextRetryAt = &next
	} else {
		now := s.now()
		status.Sent = true
		status.SentAt = &now
		status.LastError = ""
		status.NextRetryAt = nil
	}
	if uerr := s.receipts.Upsert(ctx, status); uerr != nil {
		s.logger.Error("failed to persist receipt status",
			zap.Uint64("order_id", order.ID), zap.Error(uerr))
	}
	return sendErr
}

func (s *receiptService) send(ctx context.Context, order *model.Order, recipient string) error {
	name := s.greetingName(ctx, order)
	data := mail.ReceiptData{
		StoreName:    s.storeName,
		OrderNo:      order.OrderNo,
		CustomerName: name,
		Currency:     order.Currency,
		Subtotal:     order.ItemsSubtotal,
		DeliveryFee:  order.DeliveryFee,
		Total:        order.TotalAmount,
	}
	for _, it := range order.Items {
		data.Lines = append(data.Lines, mail.ReceiptLine{
			Name:      it.Name,
			Color:     it.Color,
			Size:      it.Size,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		})
	}
	html, err := mail.RenderReceipt(data)
	if err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return s.sender.Send(ctx, mail.Message{
		To:             recipient,
		Subject:        fmt.Sprintf("Your %s receipt for order %s", s.storeName, order.OrderNo),
		HTMLBody:       html,
		AttachmentName: fmt.Sprintf("receipt-%s.html", order.OrderNo),
		Attachment:     []byte(html),
	})
}

// greetingName resolves who the receipt greets: guest orders carry the name
// inline, signed-in orders need a profile lookup. A failed lookup falls back
// to a generic greeting rather than blocking the send.
func (s *receiptService) greetingName(ctx context.Context, order *model.Order) string {
	if order.GuestName != "" {
		return order.GuestName
	}
	if order.CustomerUID != nil {
		cust, err := s.customers.FindByUID(ctx, *order.CustomerUID)
		if err != nil {
			s.logger.Warn("receipt: customer lookup failed",
				zap.String("uid", *order.CustomerUID), zap.Error(err))
		} else if cust != nil && cust.Name != "" {
			return cust.Name
		}
	}
	return "there"
}

func (s *receiptService) DispatchDue(ctx context.Context) (int, error) {
	due, err := s.receipts.ListDue(ctx, s.now(), 50)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, status := range due {
		order, err := s.orders.FindByID(ctx, status.OrderID)
		if err != nil {
			s.logger.Error("receipt retry: order lookup failed",
				zap.Uint64("order_id", status.OrderID), zap.Error(err))
			continue
		}
		if err := s.Dispatch(ctx, order, status.RecipientEmail); err == nil {
			sent++
		}
	}
	return sent, nil
}

func (s *receiptService) StatusForOrder(ctx context.Context, orderID uint64) (*model.ReceiptEmailStatus, error) {
	status, err := s.receipts.FindByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return status, nil
}

// backoffDelay doubles per attempt from the base, capped at the max:
// 2m, 4m, 8m, ... up to 1h.
func backoffDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := receiptBaseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= receiptMaxDelay {
			return receiptMaxDelay
		}
	}
	if delay > receiptMaxDelay {
		return receiptMaxDelay
	}
	return delay
}
