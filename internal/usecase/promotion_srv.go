package usecase

import (
	"context"
	"errors"
	"fmt"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/pkg/clock"
	"event-ticketing/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PromotionService keeps discount usage counters and referral sales.
type PromotionService interface {
	ConsumeDiscount(ctx context.Context, eventID uuid.UUID, code string) (*entity.DiscountCode, error)
	RestoreDiscount(ctx context.Context, id uuid.UUID) error
	AttributeReferral(ctx context.Context, eventID uuid.UUID, code string) (*entity.ReferralCode, error)
	RecordReferralSale(ctx context.Context, id uuid.UUID, tickets int, amount decimal.Decimal) error
}

type promotionService struct {
	discounts repository.DiscountRepository
	referrals repository.ReferralRepository
	clock     clock.Clock
	policy    retryPolicy
	log       *zap.Logger
}

func NewPromotionService(repo *repository.Repository, cfg utils.InventoryConfig, clk clock.Clock, log *zap.Logger) PromotionService {
	return &promotionService{
		discounts: repo.Discount,
		referrals: repo.Referral,
		clock:     clk,
		policy:    newRetryPolicy(cfg),
		log:       log.With(zap.String("service", "promotion")),
	}
}

func (s *promotionService) ConsumeDiscount(ctx context.Context, eventID uuid.UUID, code string) (*entity.DiscountCode, error) {
	for attempt := 1; ; attempt++ {
		discount, err := s.discounts.FindByCode(ctx, eventID, code)
		if err != nil {
			return nil, fmt.Errorf("find discount code: %w", err)
		}
		if discount == nil || !discount.UsableAt(s.clock.Now()) {
			return nil, ErrDiscountUnavailable
		}

		err = s.discounts.CompareAndSetUsed(ctx, discount.ID, discount.Version, discount.UsedCount+1)
		if err == nil {
			discount.UsedCount++
			discount.Version++
			return discount, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("consume discount %s: %w", code, err)
		}
		if attempt >= s.policy.attempts {
			return nil, ErrConflict
		}
		if err := s.policy.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (s *promotionService) RestoreDiscount(ctx context.Context, id uuid.UUID) error {
	for attempt := 1; ; attempt++ {
		discount, err := s.discounts.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find discount code %s: %w", id, err)
		}
		if discount == nil {
			return notFound("discount code")
		}
		if discount.UsedCount == 0 {
			return nil
		}

		err = s.discounts.CompareAndSetUsed(ctx, id, discount.Version, discount.UsedCount-1)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return fmt.Errorf("restore discount %s: %w", id, err)
		}
		if err := s.policy.wait(ctx, attempt); err != nil {
			return err
		}
	}
}

func (s *promotionService) AttributeReferral(ctx context.Context, eventID uuid.UUID, code string) (*entity.ReferralCode, error) {
	referral, err := s.referrals.FindByCode(ctx, eventID, code)
	if err != nil {
		return nil, fmt.Errorf("find referral code: %w", err)
	}
	if referral == nil || !referral.IsActive {
		return nil, nil
	}
	return referral, nil
}

func (s *promotionService) RecordReferralSale(ctx context.Context, id uuid.UUID, tickets int, amount decimal.Decimal) error {
	for attempt := 1; ; attempt++ {
		referral, err := s.referrals.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find referral code %s: %w", id, err)
		}
		if referral == nil {
			return notFound("referral code")
		}

		commission := referral.CommissionEarned.Add(referral.CommissionOn(amount))
		err = s.referrals.CompareAndSetSales(ctx, id, referral.Version, referral.TicketsSold+tickets, commission)
		if err == nil {
			s.log.Info("Referral sale recorded",
				zap.String("referral_id", id.String()),
				zap.String("staff_id", referral.StaffID),
				zap.Int("tickets", tickets),
				zap.String("commission", commission.StringFixed(2)),
			)
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return fmt.Errorf("record referral sale %s: %w", id, err)
		}
		if err := s.policy.wait(ctx, attempt); err != nil {
			return err
		}
	}
}
