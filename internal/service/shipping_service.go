package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/repository"
	"github.com/zarachi/zarachi-backend/internal/shipping"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// quoteTTL matches the provider's request-token lifetime; a cached quote
// past this window would carry a dead token anyway.
const quoteTTL = 30 * time.Minute

// RateProvider is the slice of the Shipbubble client the service needs;
// tests swap in a fake.
type RateProvider interface {
	ValidateAddress(ctx context.Context, a shipping.Address) (*shipping.AddressValidation, error)
	FetchRates(ctx context.Context, req shipping.RateRequest) (*shipping.Quote, error)
	RequestLabel(ctx context.Context, requestToken, serviceCode, courierID string) (*shipping.Label, error)
}

type ShippingService interface {
	ValidateAddress(ctx context.Context, a shipping.Address) (*shipping.AddressValidation, error)
	Rates(ctx context.Context, req shipping.RateRequest) (*shipping.Quote, error)
	// CachedQuote returns a previously fetched quote by its request token,
	// if it is still alive.
	CachedQuote(ctx context.Context, requestToken string) (*shipping.Quote, error)
	// CreateLabel spends a request token on a courier. Tokens are single
	// use at the provider; replays return the already-purchased label.
	CreateLabel(ctx context.Context, orderID uint64, requestToken, serviceCode, courierID string) (*model.ShippingLabel, bool, error)
}

type shippingService struct {
	provider RateProvider
	labels   repository.ShippingLabelRepository
	rdb      *redis.Client
	logger   *zap.Logger
}

func NewShippingService(
	provider RateProvider,
	labels repository.ShippingLabelRepository,
	rdb *redis.Client,
	logger *zap.Logger,
) ShippingService {
	return &shippingService{provider: provider, labels: labels, rdb: rdb, logger: logger}
}

func quoteKey(token string) string {
	return "shipping:quote:" + token
}

func (s *shippingService) ValidateAddress(ctx context.Context, a shipping.Address) (*shipping.AddressValidation, error) {
	return s.provider.ValidateAddress(ctx, a)
}

func (s *shippingService) Rates(ctx context.Context, req shipping.RateRequest) (*shipping.Quote, error) {
	quote, err := s.provider.FetchRates(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.rdb != nil && quote.RequestToken != "" {
		// Cache is best-effort; a miss just means another provider call.
		if raw, merr := json.Marshal(quote); merr == nil {
			if cerr := s.rdb.Set(ctx, quoteKey(quote.RequestToken), raw, quoteTTL).Err(); cerr != nil {
				s.logger.Warn("failed to cache shipping quote", zap.Error(cerr))
			}
		}
	}
	return quote, nil
}

func (s *shippingService) CachedQuote(ctx context.Context, requestToken string) (*shipping.Quote, error) {
	if s.rdb == nil {
		return nil, ErrNotFound
	}
	raw, err := s.rdb.Get(ctx, quoteKey(requestToken)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var quote shipping.Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, fmt.Errorf("corrupt cached quote: %w", err)
	}
	return &quote, nil
}

func (s *shippingService) CreateLabel(ctx context.Context, orderID uint64, requestToken, serviceCode, courierID string) (*model.ShippingLabel, bool, error) {
	if requestToken == "" {
		return nil, false, errors.New("request token is required")
	}

	if existing, err := s.labels.FindByRequestToken(ctx, requestToken); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, true, nil
	}

	label, err := s.provider.RequestLabel(ctx, requestToken, serviceCode, courierID)
	if err != nil {
		return nil, false, err
	}

	rec := &model.ShippingLabel{
		OrderID:      orderID,
		RequestToken: requestToken,
		CourierID:    label.CourierID,
		CourierName:  label.CourierName,
		ProviderRef:  label.ProviderRef,
		FeeSubunits:  label.FeeSubunits,
		Currency:     label.Currency,
		TrackingURL:  label.TrackingURL,
	}
	if err := s.labels.Create(ctx, rec); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Concurrent purchase with the same token; the stored row wins.
			existing, ferr := s.labels.FindByRequestToken(ctx, requestToken)
			if ferr == nil && existing != nil {
				return existing, true, nil
			}
		}
		return nil, false, err
	}
	return rec, false, nil
}
