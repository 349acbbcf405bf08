package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/orderid"
	"github.com/zarachi/zarachi-backend/internal/payment"
	"github.com/zarachi/zarachi-backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- fakes ---

type fakeProductRepo struct {
	products map[uint64]*model.Product
	variants map[uint64]*model.Variant // by variant ID
}

func (f *fakeProductRepo) Create(ctx context.Context, p *model.Product) error  { return nil }
func (f *fakeProductRepo) Update(ctx context.Context, p *model.Product) error  { return nil }
func (f *fakeProductRepo) CreateVariant(ctx context.Context, v *model.Variant) error { return nil }
func (f *fakeProductRepo) AddStock(ctx context.Context, variantID uint64, qty int64) error {
	return nil
}
func (f *fakeProductRepo) List(ctx context.Context, category string, activeOnly bool, limit, offset int) ([]model.Product, int64, error) {
	return nil, 0, nil
}

func (f *fakeProductRepo) FindByID(ctx context.Context, id uint64) (*model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeProductRepo) FindVariant(ctx context.Context, productID uint64, color, size string) (*model.Variant, error) {
	for _, v := range f.variants {
		if v.ProductID == productID && v.Color == color && v.Size == size {
			return v, nil
		}
	}
	return nil, nil
}

type fakeOrderRepo struct {
	variants   map[uint64]*model.Variant
	byRef      map[string]*model.Order
	nextSerial uint64
}

func (f *fakeOrderRepo) CreateWithItems(ctx context.Context, order *model.Order, recipient string, decrements []repository.StockDecrement) error {
	if _, dup := f.byRef[order.PaymentReference]; dup {
		return gorm.ErrDuplicatedKey
	}
	for _, d := range decrements {
		v, ok := f.variants[d.VariantID]
		if !ok || v.Stock < d.Quantity {
			return repository.ErrInsufficientStock
		}
	}
	for _, d := range decrements {
		f.variants[d.VariantID].Stock -= d.Quantity
	}
	f.nextSerial++
	order.OrderNo = orderid.Format("ZRC", f.nextSerial)
	if err := orderid.Validate(order.OrderNo); err != nil {
		return err
	}
	order.ID = f.nextSerial
	f.byRef[order.PaymentReference] = order
	return nil
}

func (f *fakeOrderRepo) FindByPaymentReference(ctx context.Context, ref string) (*model.Order, error) {
	return f.byRef[ref], nil
}
func (f *fakeOrderRepo) FindByID(ctx context.Context, id uint64) (*model.Order, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeOrderRepo) FindByOrderNo(ctx context.Context, no string) (*model.Order, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeOrderRepo) ListByCustomer(ctx context.Context, uid string, limit, offset int) ([]model.Order, int64, error) {
	return nil, 0, nil
}
func (f *fakeOrderRepo) List(ctx context.Context, status model.OrderStatus, limit, offset int) ([]model.Order, int64, error) {
	return nil, 0, nil
}
func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus) error {
	return nil
}
func (f *fakeOrderRepo) MarkRefunded(ctx context.Context, id uint64, amount int64, reason string) error {
	return nil
}

type fakeOrphanRepo struct {
	byRef map[string]*model.OrphanPayment
}

func (f *fakeOrphanRepo) Record(ctx context.Context, op *model.OrphanPayment) error {
	if _, ok := f.byRef[op.Reference]; ok {
		return nil // one row per reference
	}
	f.byRef[op.Reference] = op
	return nil
}
func (f *fakeOrphanRepo) FindByID(ctx context.Context, id uint64) (*model.OrphanPayment, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeOrphanRepo) ListUnresolved(ctx context.Context, limit, offset int) ([]model.OrphanPayment, int64, error) {
	return nil, 0, nil
}
func (f *fakeOrphanRepo) Resolve(ctx context.Context, id uint64, note string) error { return nil }

type fakeCustomerRepo struct {
	byUID map[string]*model.Customer
}

func (f *fakeCustomerRepo) Upsert(ctx context.Context, c *model.Customer) error { return nil }
func (f *fakeCustomerRepo) FindByUID(ctx context.Context, uid string) (*model.Customer, error) {
	return f.byUID[uid], nil
}
func (f *fakeCustomerRepo) List(ctx context.Context, limit, offset int) ([]model.Customer, int64, error) {
	return nil, 0, nil
}

type fakeVerifier struct {
	result payment.Verification
}

func (f *fakeVerifier) Verify(ctx context.Context, reference string) payment.Verification {
	return f.result
}

type fakeDispatcher struct {
	calls []string
}

func (f *fakeDispatcher) DispatchAsync(order *model.Order, recipient string) {
	f.calls = append(f.calls, fmt.Sprintf("%s->%s", order.OrderNo, recipient))
}

// --- fixture ---

type checkoutFixture struct {
	products   *fakeProductRepo
	orders     *fakeOrderRepo
	orphans    *fakeOrphanRepo
	customers  *fakeCustomerRepo
	verifier   *fakeVerifier
	dispatcher *fakeDispatcher
	svc        CheckoutService
}

func newCheckoutFixture() *checkoutFixture {
	variants := map[uint64]*model.Variant{
		10: {ID: 10, ProductID: 1, Color: "Red", Size: "M", Stock: 5},
		11: {ID: 11, ProductID: 2, Color: "Black", Size: "L", Stock: 1},
	}
	f := &checkoutFixture{
		products: &fakeProductRepo{
			products: map[uint64]*model.Product{
				1: {ID: 1, Name: "Ankara Shift Dress", Category: "dresses", PriceNGN: 1000, PriceUSD: 2, Active: true},
				2: {ID: 2, Name: "Aso Oke Jacket", Category: "jackets", PriceNGN: 4000, PriceUSD: 8, Active: true, AllowSizeMod: true},
			},
			variants: variants,
		},
		orders:     &fakeOrderRepo{variants: variants, byRef: map[string]*model.Order{}},
		orphans:    &fakeOrphanRepo{byRef: map[string]*model.OrphanPayment{}},
		customers:  &fakeCustomerRepo{byUID: map[string]*model.Customer{}},
		verifier:   &fakeVerifier{},
		dispatcher: &fakeDispatcher{},
	}
	f.svc = NewCheckoutService(f.products, f.orders, f.orphans, f.customers,
		f.verifier, f.dispatcher, "NGN", zap.NewNop())
	return f
}

func verified(amount int64, currency string) payment.Verification {
	return payment.Verification{Verified: true, AmountSubunits: amount, Currency: currency, ProviderID: 42}
}

func guestInput(ref string, items ...CheckoutLine) PlaceOrderInput {
	return PlaceOrderInput{
		Items:            items,
		Currency:         "NGN",
		Guest:            &GuestInfo{Name: "Ada Obi", Email: "ada@example.com", Phone: "+2348000000000"},
		DeliveryFee:      500,
		DeliveryOption:   "door",
		DeliveryAddress:  "12 Marina Rd, Lagos",
		PaymentReference: ref,
		PaymentMethod:    "card",
	}
}

var orderNoPattern = regexp.MustCompile(`^ZRC-\d{3,}$`)

// --- tests ---

func TestPlaceOrderHappyPath(t *testing.T) {
	f := newCheckoutFixture()
	// 2 × 1000 NGN items + 500 delivery = 2500 NGN = 250000 kobo captured.
	f.verifier.result = verified(250000, "NGN")

	res, err := f.svc.PlaceOrder(context.Background(), guestInput("ref-123",
		CheckoutLine{ProductID: 1, Color: "Red", Size: "M", Quantity: 2}))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if res.AlreadyExisted {
		t.Fatal("fresh order reported as existing")
	}
	o := res.Order
	if o.ItemsSubtotal != 2000 || o.DeliveryFee != 500 || o.TotalAmount != 2500 {
		t.Fatalf("totals: subtotal=%d delivery=%d total=%d", o.ItemsSubtotal, o.DeliveryFee, o.TotalAmount)
	}
	if o.HomeTotalAmount != 2500 {
		t.Fatalf("home total=%d", o.HomeTotalAmount)
	}
	if !orderNoPattern.MatchString(o.OrderNo) {
		t.Fatalf("order no %q does not match pattern", o.OrderNo)
	}
	if got := f.products.variants[10].Stock; got != 3 {
		t.Fatalf("stock=%d want=3", got)
	}
	if len(o.Items) != 1 || o.Items[0].LineTotal != 2000 {
		t.Fatalf("items=%+v", o.Items)
	}
	if !o.PaymentVerified || o.PaymentProviderID != 42 {
		t.Fatalf("payment fields: verified=%v provider=%d", o.PaymentVerified, o.PaymentProviderID)
	}
	if res.RecipientEmail != "ada@example.com" {
		t.Fatalf("recipient=%q", res.RecipientEmail)
	}
	if len(f.dispatcher.calls) != 1 {
		t.Fatalf("dispatch calls=%d", len(f.dispatcher.calls))
	}
	if o.AccessToken == "" {
		t.Fatal("guest order has no access token")
	}
}

func TestPlaceOrderIdempotentOnReference(t *testing.T) {
	f := newCheckoutFixture()
	f.verifier.result = verified(250000, "NGN")
	in := guestInput("ref-dup", CheckoutLine{ProductID: 1, Color: "Red", Size: "M", Quantity: 2})

	first, err := f.svc.PlaceOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("first PlaceOrder: %v", err)
	}
	second, err := f.svc.PlaceOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("second PlaceOrder: %v", err)
	}
	if !second.AlreadyExisted {
		t.Fatal("second submit should resolve to the existing order")
	}
	if second.Order.OrderNo != first.Order.OrderNo {
		t.Fatalf("order no changed: %q vs %q", first.Order.OrderNo, second.Order.OrderNo)
	}
	// Stock only decremented once.
	if got := f.products.variants[10].Stock; got != 3 {
		t.Fatalf("stock=%d want=3", got)
	}
}

// The pre-check misses, the insert collides with a concurrent submit of the
// same reference, and the winner's order is returned.
func TestPlaceOrderDuplicateKeyRace(t *testing.T) {
	f := newCheckoutFixture()
	f.verifier.result = verified(250000, "NGN")

	winner := &model.Order{OrderNo: "ZRC-001", PaymentReference: "ref-race"}
	repo := &racingOrderRepo{winner: winner}
	svc := NewCheckoutService(f.products, repo, f.orphans, f.customers,
		f.verifier, f.dispatcher, "NGN", zap.NewNop())

	res, err := svc.PlaceOrder(context.Background(), guestInput("ref-race",
		CheckoutLine{ProductID: 1, Color: "Red", Size: "M", Quantity: 2}))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !res.AlreadyExisted || res.Order.OrderNo != "ZRC-001" {
		t.Fatalf("res=%+v order=%+v", res, res.Order)
	}
}

// racingOrderRepo misses the pre-check, collides on insert, then serves the
// winner on the post-collision lookup.
type racingOrderRepo struct {
	winner  *model.Order
	lookups int
}

func (r *racingOrderRepo) CreateWithItems(ctx context.Context, order *model.Order, recipient string, d []repository.StockDecrement) error {
	return gorm.ErrDuplicatedKey
}
func (r *racingOrderRepo) FindByPaymentReference(ctx context.Context, ref string) (*model.Order, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, nil
	}
	return r.winner, nil
}
func (r *racingOrderRepo) FindByID(ctx context.Context, id uint64) (*model.Order, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *racingOrderRepo) FindByOrderNo(ctx context.Context, no string) (*model.Order, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *racingOrderRepo) ListByCustomer(ctx context.Context, uid string, l, o int) ([]model.Order, int64, error) {
	return nil, 0, nil
}
func (r *racingOrderRepo) List(ctx context.Context, s model.OrderStatus, l, o int) ([]model.Order, int64, error) {
	return nil, 0, nil
}
func (r *racingOrderRepo) UpdateStatus(ctx context.Context, id uint64, s model.OrderStatus) error {
	return nil
}
func (r *racingOrderRepo) MarkRefunded(ctx context.Context, id uint64, a int64, reason string) error {
	return nil
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	f := newCheckoutFixture()
	// 3 × 4000 + 500 = 12500 NGN
	f.verifier.result = verified(1250000, "NGN")

	_, err := f.svc.PlaceOrder(context.Background(), guestInput("ref-stock",
		CheckoutLine{ProductID: 2, Color: "Black", Size: "L", Quantity: 3}))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err=%v want ErrInsufficientStock", err)
	}
	if got := f.products.variants[11].Stock; got != 1 {
		t.Fatalf("stock mutated on failed checkout: %d", got)
	}
	if len(f.orders.byRef) != 0 {
		t.Fatal("order persisted despite stock failure")
	}
	if len(f.dispatcher.calls) != 0 {
		t.Fatal("receipt dispatched for failed checkout")
	}
}

func TestPlaceOrderAmountMismatch(t *testing.T) {
	f := newCheckoutFixture()
	// Cart costs 2500 NGN (250000 kobo) but gateway captured 200000.
	f.verifier.result = payment.Verification{
		Verified: true, AmountSubunits: 200000, Currency: "NGN",
		Raw: []byte(`{"data":{"amount":200000}}`),
	}
	in := guestInput("ref-short", CheckoutLine{ProductID: 1, Color: "Red", Size: "M", Quantity: 2})

	_, err := f.svc.PlaceOrder(context.Background(), in)
	if !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("err=%v want ErrAmountMismatch", err)
	}
	op, ok := f.orphans.byRef["ref-short"]
	if !ok {
		t.Fatal("no orphan payment recorded")
	}
	if op.Reconciled {
		t.Fatal("orphan must start unreconciled")
	}
	if op.AmountSubunits != 200000 || op.Currency != "NGN" {
		t.Fatalf("orphan=%+v", op)
	}
	if got := f.products.variants[10].Stock; got != 5 {
		t.Fatalf("stock mutated on mismatch: %d", got)
	}

	// A retry of the same broken submit still leaves exactly one orphan row.
	_, _ = f.svc.PlaceOrder(context.Background(), in)
	if len(f.orphans.byRef) != 1 {
		t.Fatalf("orphan rows=%d want=1", len(f.orphans.byRef))
	}
}

func TestPlaceOrderPaymentFailures(t *testing.T) {
	tests := []struct {
		name    string
		result  payment.Verification
		wantErr error
	}{
		{"gateway declined", payment.Verification{Reason: "transaction status is failed"}, ErrPaymentFailed},
		{"gateway unreachable", payment.Verification{Reason: "gateway unreachable: dial tcp"}, ErrPaymentFailed},
		{"currency mismatch", verified(250000, "USD"), ErrCurrencyMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture()
			f.verifier.result = tt.result
			_, err := f.svc.PlaceOrder(context.Background(), guestInput("ref-x",
				CheckoutLine{ProductID: 1, Color: "Red", Size: "M", Quantity: 2}))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v want=%v", err, tt.wantErr)
			}
			if got := f.products.variants[10].Stock; got != 5 {
				t.Fatalf("stock touched before verification passed: %d", got)
			}
		})
	}
}

func TestPlaceOrderSizeModSurcharge(t *testing.T) {
	f := newCheckoutFixture()
	// Jacket 4000 NGN ×1 +5% = 4200, + delivery 500 = 4700 NGN.
	f.verifier.result = verified(470000, "NGN")

	res, err := f.svc.PlaceOrder(context.Background(), guestInput("ref-mod",
		CheckoutLine{ProductID: 2, Color: "Black", Size: "L", Quantity: 1,
			SizeModification: true, CustomMeasurements: `{"chest":40,"waist":34}`}))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	item := res.Order.Items[0]
	if !item.SizeModified || item.SizeModFee != 200 || item.LineTotal != 4200 {
		t.Fatalf("item=%+v", item)
	}
}

func TestPlaceOrderSizeModIgnoredWhenNotAllowed(t *testing.T) {
	f := newCheckoutFixture()
	// Dress does not allow tailoring; the flag is ignored, no surcharge.
	f.verifier.result = verified(250000, "NGN")

	res, err := f.svc.PlaceOrder(context.Background(), guestInput("ref-nomod",
		CheckoutLine{ProductID: 1, Color: "Red", Size: "M", Quantity: 2, SizeModification: true}))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	item := res.Order.Items[0]
	if item.SizeModified || item.SizeModFee != 0 || item.LineTotal != 2000 {
		t.Fatalf("item=%+v", item)
	}
}

func TestPlaceOrderUnknownVariant(t *testing.T) {
	f := newCheckoutFixture()
	f.verifier.result = verified(250000, "NGN")

	_, err := f.svc.PlaceOrder(context.Background(), guestInput("ref-v",
		CheckoutLine{ProductID: 1, Color: "Green", Size: "XS", Quantity: 1}))
	if !errors.Is(err, ErrVariantNotFound) {
		t.Fatalf("err=%v want ErrVariantNotFound", err)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newCheckoutFixture()
	f.verifier.result = verified(250000, "NGN")
	base := func() PlaceOrderInput {
		return guestInput("ref-val", CheckoutLine{ProductID: 1, Color: "Red", Size: "M", Quantity: 2})
	}

	tests := []struct {
		name    string
		mutate  func(*PlaceOrderInput)
		wantErr error
	}{
		{"no items", func(in *PlaceOrderInput) { in.Items = nil }, ErrInvalidInput},
		{"zero quantity", func(in *PlaceOrderInput) { in.Items[0].Quantity = 0 }, ErrInvalidInput},
		{"unsupported currency", func(in *PlaceOrderInput) { in.Currency = "GBP" }, ErrUnsupportedCurrency},
		{"missing reference", func(in *PlaceOrderInput) { in.PaymentReference = " " }, ErrInvalidInput},
		{"negative delivery fee", func(in *PlaceOrderInput) { in.DeliveryFee = -1 }, ErrInvalidInput},
		{"no guest or customer", func(in *PlaceOrderInput) { in.Guest = nil }, ErrInvalidInput},
		{"guest without email", func(in *PlaceOrderInput) { in.Guest.Email = "" }, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mutate(&in)
			_, err := f.svc.PlaceOrder(context.Background(), in)
			if err == nil {
				t.Fatal("expected validation error")
			}
			// The sentinel is what keeps client mistakes out of the 5xx
			// bucket at the handler.
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v want wrapped %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlaceOrderCustomerRecipient(t *testing.T) {
	f := newCheckoutFixture()
	f.verifier.result = verified(250000, "NGN")
	f.customers.byUID["uid-1"] = &model.Customer{UID: "uid-1", Email: "chi@example.com"}

	in := guestInput("ref-cust", CheckoutLine{ProductID: 1, Color: "Red", Size: "M", Quantity: 2})
	in.Guest = nil
	in.CustomerUID = "uid-1"

	res, err := f.svc.PlaceOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if res.RecipientEmail != "chi@example.com" {
		t.Fatalf("recipient=%q", res.RecipientEmail)
	}
	if res.Order.CustomerUID == nil || *res.Order.CustomerUID != "uid-1" {
		t.Fatalf("customer uid not set: %+v", res.Order.CustomerUID)
	}
	if res.Order.AccessToken != "" {
		t.Fatal("customer orders do not need a guest access token")
	}
}
