package service

import (
	"context"
	"errors"

	"github.com/zarachi/zarachi-backend/internal/model"
	"github.com/zarachi/zarachi-backend/internal/payment"
	"github.com/zarachi/zarachi-backend/internal/repository"
	"gorm.io/gorm"
)

// ReconciliationService is the staff-facing safety net for charges that were
// captured but never matched to an order. It never remediates automatically;
// resolution is always an explicit human decision.
type ReconciliationService interface {
	ListUnresolved(ctx context.Context, limit, offset int) ([]model.OrphanPayment, int64, error)
	// VerifyLive re-queries the gateway for the charge's current state so an
	// admin can compare it against what was recorded at checkout time.
	VerifyLive(ctx context.Context, id uint64) (*model.OrphanPayment, payment.Verification, error)
	Resolve(ctx context.Context, id uint64, note string) (*model.OrphanPayment, error)
}

type reconciliationService struct {
	orphans  repository.OrphanPaymentRepository
	verifier payment.Verifier
}

func NewReconciliationService(orphans repository.OrphanPaymentRepository, verifier payment.Verifier) ReconciliationService {
	return &reconciliationService{orphans: orphans, verifier: verifier}
}

func (s *reconciliationService) ListUnresolved(ctx context.Context, limit, offset int) ([]model.OrphanPayment, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.orphans.ListUnresolved(ctx, limit, offset)
}

func (s *reconciliationService) VerifyLive(ctx context.Context, id uint64) (*model.OrphanPayment, payment.Verification, error) {
	orphan, err := s.orphans.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.Verification{}, ErrNotFound
		}
		return nil, payment.Verification{}, err
	}
	return orphan, s.verifier.Verify(ctx, orphan.Reference), nil
}

func (s *reconciliationService) Resolve(ctx context.Context, id uint64, note string) (*model.OrphanPayment, error) {
	if err := s.orphans.Resolve(ctx, id, note); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.orphans.FindByID(ctx, id)
}
