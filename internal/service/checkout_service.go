package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/payment"
	"github.com/zarachi/zarachi-backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CheckoutLine struct {
	ProductID          uint64
	Color              string
	Size               string
	Quantity           int64
	SizeModification   bool
	CustomMeasurements string
}

type GuestInfo struct {
	Name  string
	Email string
	Phone string
}

type PlaceOrderInput struct {
	Items            []CheckoutLine
	Currency         string
	CustomerUID      string
	Guest            *GuestInfo
	DeliveryFee      int64
	DeliveryOption   string
	DeliveryAddress  string
	PaymentReference string
	PaymentMethod    string
	Channel          model.OrderChannel
}

type PlaceOrderResult struct {
	Order          *model.Order
	RecipientEmail string
	// AlreadyExisted is set when the payment reference had already produced
	// an order; the caller gets that order as if it were just created.
	AlreadyExisted bool
}

// ReceiptDispatcher is the post-commit side channel. Implementations must
// never fail the checkout.
type ReceiptDispatcher interface {
	DispatchAsync(order *model.Order, recipient string)
}

type CheckoutService interface {
	PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error)
}

type checkoutService struct {
	products     repository.ProductRepository
	orders       repository.OrderRepository
	orphans      repository.OrphanPaymentRepository
	customers    repository.CustomerRepository
	verifier     payment.Verifier
	receipts     ReceiptDispatcher
	homeCurrency string
	logger       *zap.Logger
}

func NewCheckoutService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	orphans repository.OrphanPaymentRepository,
	customers repository.CustomerRepository,
	verifier payment.Verifier,
	receipts ReceiptDispatcher,
	homeCurrency string,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		products:     products,
		orders:       orders,
		orphans:      orphans,
		customers:    customers,
		verifier:     verifier,
		receipts:     receipts,
		homeCurrency: homeCurrency,
		logger:       logger,
	}
}

func (s *checkoutService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error) {
	recipient, err := s.validate(ctx, &in)
	if err != nil {
		return nil, err
	}

	// Idempotency pre-check: a retried request with a reference that already
	// produced an order gets that order back, no new verification, no new
	// stock mutation.
	if existing, err := s.orders.FindByPaymentReference(ctx, in.PaymentReference); err != nil {
		return nil, err
	} else if existing != nil {
		return &PlaceOrderResult{Order: existing, RecipientEmail: recipient, AlreadyExisted: true}, nil
	}

	v := s.verifier.Verify(ctx, in.PaymentReference)
	if !v.Verified {
		return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, v.Reason)
	}
	if !strings.EqualFold(v.Currency, in.Currency) {
		return nil, fmt.Errorf("%w: gateway says %s, order says %s", ErrCurrencyMismatch, v.Currency, in.Currency)
	}

	order, decrements, err := s.buildOrder(ctx, &in)
	if err != nil {
		return nil, err
	}
	order.PaymentProviderID = v.ProviderID
	order.PaymentVerified = true

	// The money the gateway captured must equal what this cart costs. On
	// mismatch the charge is real but the order is not: park it for manual
	// reconciliation instead of guessing.
	expected := toSubunits(order.TotalAmount)
	if v.AmountSubunits != expected {
		orphan := &model.OrphanPayment{
			Reference:      in.PaymentReference,
			AmountSubunits: v.AmountSubunits,
			Currency:       v.Currency,
			Reason:         fmt.Sprintf("expected %d subunits, gateway captured %d", expected, v.AmountSubunits),
			RawPayload:     string(v.Raw),
		}
		if rerr := s.orphans.Record(ctx, orphan); rerr != nil {
			s.logger.Error("failed to record orphan payment",
				zap.String("reference", in.PaymentReference), zap.Error(rerr))
		}
		return nil, fmt.Errorf("%w: expected %d, captured %d", ErrAmountMismatch, expected, v.AmountSubunits)
	}

	if err := s.orders.CreateWithItems(ctx, order, recipient, decrements); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientStock):
			return nil, ErrInsufficientStock
		case errors.Is(err, gorm.ErrDuplicatedKey):
			// Lost a race against a concurrent submit of the same reference.
			// The winner's order is the order.
			existing, ferr := s.orders.FindByPaymentReference(ctx, in.PaymentReference)
			if ferr != nil || existing == nil {
				return nil, err
			}
			return &PlaceOrderResult{Order: existing, RecipientEmail: recipient, AlreadyExisted: true}, nil
		default:
			return nil, err
		}
	}

	s.receipts.DispatchAsync(order, recipient)

	return &PlaceOrderResult{Order: order, RecipientEmail: recipient}, nil
}

func (s *checkoutService) validate(ctx context.Context, in *PlaceOrderInput) (recipient string, err error) {
	if len(in.Items) == 0 {
		return "", fmt.Errorf("%w: order has no items", ErrInvalidInput)
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return "", fmt.Errorf("%w: item quantity must be positive", ErrInvalidInput)
		}
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if !supportedCurrencies[in.Currency] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCurrency, in.Currency)
	}
	if strings.TrimSpace(in.PaymentReference) == "" {
		return "", fmt.Errorf("%w: payment reference is required", ErrInvalidInput)
	}
	if in.DeliveryFee < 0 {
		return "", fmt.Errorf("%w: delivery fee cannot be negative", ErrInvalidInput)
	}
	if in.Channel == "" {
		in.Channel = model.OrderChannelOnline
	}

	switch {
	case in.CustomerUID != "":
		cust, err := s.customers.FindByUID(ctx, in.CustomerUID)
		if err != nil {
			return "", err
		}
		if cust == nil || cust.Email == "" {
			return "", fmt.Errorf("%w: customer has no email on file", ErrInvalidInput)
		}
		return cust.Email, nil
	case in.Guest != nil:
		if strings.TrimSpace(in.Guest.Email) == "" || strings.TrimSpace(in.Guest.Name) == "" {
			return "", fmt.Errorf("%w: guest name and email are required", ErrInvalidInput)
		}
		return in.Guest.Email, nil
	default:
		return "", fmt.Errorf("%w: either a signed-in customer or guest info is required", ErrInvalidInput)
	}
}

// buildOrder prices every line and assembles the order draft plus the stock
// decrements the transaction will apply. Totals are mirrored into the home
// currency using the home unit price of each product, independent of the
// currency the customer pays in.
func (s *checkoutService) buildOrder(ctx context.Context, in *PlaceOrderInput) (*model.Order, []repository.StockDecrement, error) {
	var (
		items        []model.OrderItem
		decrements   []repository.StockDecrement
		subtotal     int64
		homeSubtotal int64
	)

	for _, line := range in.Items {
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, fmt.Errorf("%w: product %d", ErrNotFound, line.ProductID)
			}
			return nil, nil, err
		}
		if !product.Active {
			return nil, nil, fmt.Errorf("%w: product %q is no longer available", ErrInvalidInput, product.Name)
		}

		variant, err := s.products.FindVariant(ctx, product.ID, line.Color, line.Size)
		if err != nil {
			return nil, nil, err
		}
		if variant == nil {
			return nil, nil, fmt.Errorf("%w: %s %s/%s", ErrVariantNotFound, product.Name, line.Color, line.Size)
		}

		unit, ok := unitPrice(product, in.Currency)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, in.Currency)
		}
		homeUnit, ok := unitPrice(product, s.homeCurrency)
		if !ok {
			return nil, nil, fmt.Errorf("no %s price for product %d", s.homeCurrency, product.ID)
		}

		sizeMod := line.SizeModification && product.AllowSizeMod
		lineTotal, fee := priceLine(unit, line.Quantity, sizeMod)
		homeLineTotal, _ := priceLine(homeUnit, line.Quantity, sizeMod)

		subtotal += lineTotal
		homeSubtotal += homeLineTotal

		items = append(items, model.OrderItem{
			ProductID:          product.ID,
			VariantID:          variant.ID,
			Name:               product.Name,
			ImageURL:           product.ImageURL,
			Category:           product.Category,
			Color:              line.Color,
			Size:               line.Size,
			Quantity:           line.Quantity,
			UnitPrice:          unit,
			LineTotal:          lineTotal,
			HomeLineTotal:      homeLineTotal,
			SizeModified:       sizeMod,
			SizeModFee:         fee,
			CustomMeasurements: line.CustomMeasurements,
		})
		decrements = append(decrements, repository.StockDecrement{
			VariantID: variant.ID,
			Quantity:  line.Quantity,
		})
	}

	order := &model.Order{
		Status:           model.OrderStatusProcessing,
		Channel:          in.Channel,
		Currency:         in.Currency,
		ItemsSubtotal:    subtotal,
		DeliveryFee:      in.DeliveryFee,
		TotalAmount:      subtotal + in.DeliveryFee,
		HomeTotalAmount:  homeSubtotal + in.DeliveryFee,
		PaymentMethod:    in.PaymentMethod,
		PaymentReference: in.PaymentReference,
		DeliveryOption:   in.DeliveryOption,
		DeliveryAddress:  in.DeliveryAddress,
		Items:            items,
	}
	if in.CustomerUID != "" {
		uid := in.CustomerUID
		order.CustomerUID = &uid
	} else {
		order.GuestName = in.Guest.Name
		order.GuestEmail = in.Guest.Email
		order.GuestPhone = in.Guest.Phone
		order.AccessToken = uuid.NewString()
	}
	return order, decrements, nil
}
