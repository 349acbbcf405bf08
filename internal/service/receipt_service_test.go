package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zarachi/zarachi-backend/internal/mail"
	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeReceiptRepo struct {
	byOrder map[uint64]*model.ReceiptEmailStatus
}

func (f *fakeReceiptRepo) Upsert(ctx context.Context, status *model.ReceiptEmailStatus) error {
	cp := *status
	f.byOrder[status.OrderID] = &cp
	return nil
}

func (f *fakeReceiptRepo) FindByOrder(ctx context.Context, orderID uint64) (*model.ReceiptEmailStatus, error) {
	s, ok := f.byOrder[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeReceiptRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]model.ReceiptEmailStatus, error) {
	var due []model.ReceiptEmailStatus
	for _, s := range f.byOrder {
		if s.Sent {
			continue
		}
		neverAttempted := s.Attempts == 0 && s.NextRetryAt == nil
		retryDue := s.NextRetryAt != nil && !s.NextRetryAt.After(now)
		if neverAttempted || retryDue {
			due = append(due, *s)
		}
	}
	return due, nil
}

type fakeSender struct {
	err  error
	sent []mail.Message
}

func (f *fakeSender) Send(ctx context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// stubOrderRepo only serves FindByID, which is all the retry loop needs.
type stubOrderRepo struct {
	byID map[uint64]*model.Order
}

func (s *stubOrderRepo) CreateWithItems(ctx context.Context, o *model.Order, r string, d []repository.StockDecrement) error {
	return nil
}
func (s *stubOrderRepo) FindByPaymentReference(ctx context.Context, ref string) (*model.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) FindByID(ctx context.Context, id uint64) (*model.Order, error) {
	o, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return o, nil
}
func (s *stubOrderRepo) FindByOrderNo(ctx context.Context, no string) (*model.Order, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubOrderRepo) ListByCustomer(ctx context.Context, uid string, l, o int) ([]model.Order, int64, error) {
	return nil, 0, nil
}
func (s *stubOrderRepo) List(ctx context.Context, st model.OrderStatus, l, o int) ([]model.Order, int64, error) {
	return nil, 0, nil
}
func (s *stubOrderRepo) UpdateStatus(ctx context.Context, id uint64, st model.OrderStatus) error {
	return nil
}
func (s *stubOrderRepo) MarkRefunded(ctx context.Context, id uint64, a int64, reason string) error {
	return nil
}

func testOrder(id uint64) *model.Order {
	return &model.Order{
		ID:            id,
		OrderNo:       "ZRC-007",
		Currency:      "NGN",
		ItemsSubtotal: 2000,
		DeliveryFee:   500,
		TotalAmount:   2500,
		GuestName:     "Ada Obi",
		Items: []model.OrderItem{
			{Name: "Ankara Shift Dress", Color: "Red", Size: "M", Quantity: 2, LineTotal: 2000},
		},
	}
}

func newReceiptFixture(sender *fakeSender) (*receiptService, *fakeReceiptRepo, *stubOrderRepo) {
	receipts := &fakeReceiptRepo{byOrder: map[uint64]*model.ReceiptEmailStatus{}}
	orders := &stubOrderRepo{byID: map[uint64]*model.Order{}}
	customers := &fakeCustomerRepo{byUID: map[string]*model.Customer{}}
	svc := NewReceiptService(receipts, orders, customers, sender, "Zarachi", zap.NewNop()).(*receiptService)
	return svc, receipts, orders
}

func TestDispatchSuccess(t *testing.T) {
	sender := &fakeSender{}
	svc, receipts, _ := newReceiptFixture(sender)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	order := testOrder(1)
	receipts.byOrder[1] = &model.ReceiptEmailStatus{OrderID: 1, RecipientEmail: "ada@example.com"}

	if err := svc.Dispatch(context.Background(), order, "ada@example.com"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	status := receipts.byOrder[1]
	if !status.Sent || status.Attempts != 1 {
		t.Fatalf("status=%+v", status)
	}
	if status.SentAt == nil || !status.SentAt.Equal(base) {
		t.Fatalf("sent_at=%v", status.SentAt)
	}
	if status.NextRetryAt != nil || status.LastError != "" {
		t.Fatalf("failure fields not cleared: %+v", status)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent=%d messages", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "ada@example.com" {
		t.Fatalf("to=%q", msg.To)
	}
	if !strings.Contains(msg.Subject, "ZRC-007") {
		t.Fatalf("subject=%q", msg.Subject)
	}
	if !strings.Contains(msg.HTMLBody, "Ankara Shift Dress") {
		t.Fatal("receipt body missing line item")
	}
	if msg.AttachmentName != "receipt-ZRC-007.html" || len(msg.Attachment) == 0 {
		t.Fatalf("attachment=%q len=%d", msg.AttachmentName, len(msg.Attachment))
	}
}

func TestDispatchFailureSchedulesRetry(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp dial: connection refused")}
	svc, receipts, _ := newReceiptFixture(sender)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	order := testOrder(1)
	receipts.byOrder[1] = &model.ReceiptEmailStatus{OrderID: 1, RecipientEmail: "ada@example.com"}

	if err := svc.Dispatch(context.Background(), order, "ada@example.com"); err == nil {
		t.Fatal("expected send failure to propagate")
	}
	status := receipts.byOrder[1]
	if status.Sent || status.Attempts != 1 {
		t.Fatalf("status=%+v", status)
	}
	if status.LastError == "" {
		t.Fatal("last error not recorded")
	}
	want := base.Add(2 * time.Minute)
	if status.NextRetryAt == nil || !status.NextRetryAt.Equal(want) {
		t.Fatalf("next_retry_at=%v want=%v", status.NextRetryAt, want)
	}

	// Second failure doubles the delay.
	if err := svc.Dispatch(context.Background(), order, "ada@example.com"); err == nil {
		t.Fatal("expected second failure")
	}
	status = receipts.byOrder[1]
	want = base.Add(4 * time.Minute)
	if status.Attempts != 2 || status.NextRetryAt == nil || !status.NextRetryAt.Equal(want) {
		t.Fatalf("status=%+v want retry at %v", status, want)
	}
}

func TestDispatchSkipsAlreadySent(t *testing.T) {
	sender := &fakeSender{}
	svc, receipts, _ := newReceiptFixture(sender)

	sentAt := time.Now()
	receipts.byOrder[1] = &model.ReceiptEmailStatus{
		OrderID: 1, RecipientEmail: "ada@example.com",
		Sent: true, Attempts: 1, SentAt: &sentAt,
	}
	if err := svc.Dispatch(context.Background(), testOrder(1), "ada@example.com"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("resent an already delivered receipt")
	}
	if receipts.byOrder[1].Attempts != 1 {
		t.Fatalf("attempts bumped on skip: %d", receipts.byOrder[1].Attempts)
	}
}

func TestDispatchWithoutOutboxRow(t *testing.T) {
	sender := &fakeSender{}
	svc, receipts, _ := newReceiptFixture(sender)

	if err := svc.Dispatch(context.Background(), testOrder(9), "ada@example.com"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	status, ok := receipts.byOrder[9]
	if !ok || !status.Sent || status.Attempts != 1 {
		t.Fatalf("status=%+v ok=%v", status, ok)
	}
}

func TestDispatchDue(t *testing.T) {
	sender := &fakeSender{}
	svc, receipts, orders := newReceiptFixture(sender)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	past := base.Add(-time.Minute)
	future := base.Add(time.Hour)
	orders.byID[1] = testOrder(1)
	orders.byID[2] = testOrder(2)
	orders.byID[3] = testOrder(3)
	receipts.byOrder[1] = &model.ReceiptEmailStatus{OrderID: 1, RecipientEmail: "a@example.com", Attempts: 1, NextRetryAt: &past}
	receipts.byOrder[2] = &model.ReceiptEmailStatus{OrderID: 2, RecipientEmail: "b@example.com", Attempts: 2, NextRetryAt: &future}
	receipts.byOrder[3] = &model.ReceiptEmailStatus{OrderID: 3, RecipientEmail: "c@example.com", Attempts: 1, Sent: true}

	sent, err := svc.DispatchDue(context.Background())
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent=%d want=1", sent)
	}
	if !receipts.byOrder[1].Sent {
		t.Fatal("due receipt not sent")
	}
	if receipts.byOrder[2].Sent {
		t.Fatal("future receipt sent early")
	}
}

// A crash between the checkout commit and the async send leaves the outbox
// row with zero attempts and no retry time; the sweep must still pick it up.
func TestDispatchDuePicksUpNeverAttempted(t *testing.T) {
	sender := &fakeSender{}
	svc, receipts, orders := newReceiptFixture(sender)

	orders.byID[1] = testOrder(1)
	receipts.byOrder[1] = &model.ReceiptEmailStatus{OrderID: 1, RecipientEmail: "ada@example.com"}

	sent, err := svc.DispatchDue(context.Background())
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent=%d want=1", sent)
	}
	if !receipts.byOrder[1].Sent || receipts.byOrder[1].Attempts != 1 {
		t.Fatalf("status=%+v", receipts.byOrder[1])
	}
}

func TestDispatchGreetsSignedInCustomer(t *testing.T) {
	sender := &fakeSender{}
	receipts := &fakeReceiptRepo{byOrder: map[uint64]*model.ReceiptEmailStatus{}}
	orders := &stubOrderRepo{byID: map[uint64]*model.Order{}}
	customers := &fakeCustomerRepo{byUID: map[string]*model.Customer{
		"uid-1": {UID: "uid-1", Email: "ngozi@example.com", Name: "Ngozi Eze"},
	}}
	svc := NewReceiptService(receipts, orders, customers, sender, "Zarachi", zap.NewNop())

	uid := "uid-1"
	order := testOrder(1)
	order.GuestName = ""
	order.CustomerUID = &uid

	if err := svc.Dispatch(context.Background(), order, "ngozi@example.com"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent=%d messages", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0].HTMLBody, "Ngozi Eze") {
		t.Fatal("receipt does not greet the customer by name")
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 2 * time.Minute},
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
		{3, 8 * time.Minute},
		{5, 32 * time.Minute},
		{6, time.Hour},
		{20, time.Hour},
	}
	for _, tt := range tests {
		if got := backoffDelay(tt.attempts); got != tt.want {
			t.Errorf("backoffDelay(%d)=%v want=%v", tt.attempts, got, tt.want)
		}
	}
}
