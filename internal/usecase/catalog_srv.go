package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/dto/response"
	"event-ticketing/pkg/clock"
	"event-ticketing/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService holds the organizer operations that define what is on sale.
type CatalogService interface {
	CreateEvent(ctx context.Context, identity entity.Identity, req *request.CreateEventRequest) (*response.EventResponse, error)

	CreateTier(ctx context.Context, identity entity.Identity, eventID uuid.UUID, req *request.CreateTierRequest) (*response.TierResponse, error)
	UpdateTier(ctx context.Context, identity entity.Identity, tierID uuid.UUID, req *request.UpdateTierRequest) (*response.TierResponse, error)
	// DeleteTier removes an unsold tier. A tier that has sold is disabled
	// instead and returned.
	DeleteTier(ctx context.Context, identity entity.Identity, tierID uuid.UUID) (*response.TierResponse, error)
	ListTiers(ctx context.Context, eventID uuid.UUID) ([]response.TierResponse, error)

	CreateChart(ctx context.Context, identity entity.Identity, eventID uuid.UUID, req *request.CreateChartRequest) (*response.ChartResponse, error)
	CreateDiscountCode(ctx context.Context, identity entity.Identity, eventID uuid.UUID, req *request.CreateDiscountCodeRequest) (*response.DiscountCodeResponse, error)
	CreateReferralCode(ctx context.Context, identity entity.Identity, eventID uuid.UUID, req *request.CreateReferralCodeRequest) (*response.ReferralCodeResponse, error)
	CreateRoomBlock(ctx context.Context, identity entity.Identity, eventID uuid.UUID, req *request.CreateRoomBlockRequest) (*response.RoomBlockResponse, error)
}

type catalogService struct {
	repo   *repository.Repository
	clock  clock.Clock
	policy retryPolicy
	log    *zap.Logger
}

func NewCatalogService(repo *repository.Repository, cfg utils.InventoryConfig, clk clock.Clock, log *zap.Logger) CatalogService {
	return &catalogService{
		repo:   repo,
		clock:  clk,
		policy: newRetryPolicy(cfg),
		log:    log.With(zap.String("service", "catalog")),
	}
}

func validate(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return validationError("%s", utils.FormatValidationErrors(errs))
	}
	return nil
}

func (s *catalogService) CreateEvent(ctx context.Context, identity entity.Identity, req *request.CreateEventRequest) (*response.EventResponse, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	event := &entity.Event{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrganizerID: identity.Subject,
		Name:        req.Name,
		StartsAt:    req.StartsAt,
	}

	if err := s.repo.Event.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.log.Info("Event created", zap.String("event_id", event.ID.String()), zap.String("organizer_id", identity.Subject))

	resp := response.EventToResponse(event)
	return &resp, nil
}

func pricingTiers(reqs []request.PricingTierRequest) ([]entity.PricingTier, error) {
	tiers := make([]entity.PricingTier, 0, len(reqs))
	for _, p := range reqs {
		price, err := parseMoney("pricing tier price", p.Price)
		if err != nil {
			return nil, err
		}
		if p.ValidFrom != nil && p.ValidUntil != nil && !p.ValidFrom.Before(*p.ValidUntil) {
			return nil, validationError("pricing tier %q ends before it starts", p.Name)
		}
		tiers = append(tiers, entity.PricingTier{
			Name:       p.Name,
			Price:      price,
			ValidFrom:  p.ValidFrom,
			ValidUntil: p.ValidUntil,
		})
	}
	return tiers, nil
}

func (s *catalogService) CreateTier(ctx context.Context, identity entity.Identity, eventID uuid.UUID, req *request.CreateTierRequest) (*response.TierResponse, error) {
	if _, err := authorizeOrganizer(ctx, s.repo.Event, identity, eventID); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	price, err := parseMoney("price", req.Price)
	if err != nil {
		return nil, err
	}
	if req.SaleStart != nil && req.SaleEnd != nil && !req.SaleStart.Before(*req.SaleEnd) {
		return nil, validationError("sale window ends before it starts")
	}
	overrides, err := pricingTiers(req.PricingTiers)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	tier := &entity.TicketTier{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		EventID:      eventID,
		Name:         req.Name,
		Price:        price,
		Quantity:     req.Quantity,
		SaleStart:    req.SaleStart,
		SaleEnd:      req.SaleEnd,
		SeatsPerUnit: req.SeatsPerUnit,
		PricingTiers: overrides,
		IsActive:     true,
	}

	if err := s.repo.Tier.Create(ctx, tier); err != nil {
		return nil, fmt.Errorf("create tier: %w", err)
	}

	s.log.Info("Tier created",
		zap.String("tier_id", tier.ID.String()),
		zap.String("event_id", eventID.String()),
		zap.Int("quantity", tier.Quantity),
	)

	resp := response.TierToResponse(tier, now)
	return &resp, nil
}

func (s *catalogService) organizerTier(ctx context.Context, identity entity.Identity, tierID uuid.UUID) (*entity.TicketTier, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	tier, err := s.repo.Tier.FindByID(ctx, tierID)
	if err != nil {
		return nil, fmt.Errorf("find tier: %w", err)
	}
	if tier == nil {
		return nil, notFound("tier")
	}
	if _, err := authorizeOrganizer(ctx, s.repo.Event, identity, tier.EventID); err != nil {
		return nil, err
	}
	return tier, nil
}

func (s *catalogService) UpdateTier(ctx context.Context, identity entity.Identity, tierID uuid.UUID, req *request.UpdateTierRequest) (*response.TierResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		tier, err := s.organizerTier(ctx, identity, tierID)
		if err != nil {
			return nil, err
		}
		expected := tier.Version

		if req.Name != nil {
			tier.Name = *req.Name
		}
		if req.Price != nil {
			if tier.Price, err = parseMoney("price", *req.Price); err != nil {
				return nil, err
			}
		}
		if req.Quantity != nil {
			if *req.Quantity < tier.Sold {
				return nil, validationError("quantity cannot drop below the %d already sold", tier.Sold)
			}
			tier.Quantity = *req.Quantity
		}
		if req.SaleStart != nil {
			tier.SaleStart = req.SaleStart
		}
		if req.SaleEnd != nil {
			tier.SaleEnd = req.SaleEnd
		}
		if tier.SaleStart != nil && tier.SaleEnd != nil && !tier.SaleStart.Before(*tier.SaleEnd) {
			return nil, validationError("sale window ends before it starts")
		}
		if req.PricingTiers != nil {
			if tier.PricingTiers, err = pricingTiers(req.PricingTiers); err != nil {
				return nil, err
			}
		}
		if req.IsActive != nil {
			tier.IsActive = *req.IsActive
		}

		err = s.repo.Tier.Update(ctx, tier, expected)
		if err == nil {
			resp := response.TierToResponse(tier, s.clock.Now())
			return &resp, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("update tier: %w", err)
		}
		if attempt >= s.policy.attempts {
			return nil, ErrConflict
		}
		if err := s.policy.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (s *catalogService) DeleteTier(ctx context.Context, identity entity.Identity, tierID uuid.UUID) (*response.TierResponse, error) {
	tier, err := s.organizerTier(ctx, identity, tierID)
	if err != nil {
		return nil, err
	}

	// Tiers with sales or with orders, tickets or bundles pointing at them
	// are only disabled
	if tier.Sold == 0 {
		err := s.repo.Tier.Delete(ctx, tierID)
		if err == nil {
			s.log.Info("Tier deleted", zap.String("tier_id", tierID.String()))
			return nil, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("delete tier: %w", err)
		}
	}

	inactive := false
	return s.UpdateTier(ctx, identity, tierID, &request.UpdateTierRequest{IsActive: &inactive})
}

func (s *catalogService) ListTiers(ctx context.Context, eventID uuid.UUID) ([]response.TierResponse, error) {
	tiers, err := s.repo.Tier.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}

	now := s.clock.Now()
	result := make([]response.TierResponse, 0, len(tiers))
	for _, t := range tiers {
		result = append(result, response.TierToResponse(t, now))
	}
	return result, nil
}

func (s *catalogService) CreateChart(ctx context.Context, identity entity.Identity, eventID uuid.UUID, req *request.CreateChartRequest) (*response.ChartResponse, error) {
	if _, err := authorizeOrganizer(ctx, s.repo.Event, identity, eventID); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	chart := &entity.SeatingChart{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		EventID:    eventID,
		Name:       req.Name,
		TotalSeats: req.TotalSeats,
	}
	if err := s.repo.Chart.Create(ctx, chart); err != nil {
		return nil, fmt.Errorf("create seating chart: %w", err)
	}

	return &response.ChartResponse{
		ID:         chart.ID.String(),
		EventID:    eventID.String(),
		Name:       chart.Name,
		TotalSeats: chart.TotalSeats,
	}, nil
}

func (s *catalogService) CreateDiscountCode(ctx context.Context, identity entity.Identity, eventID uuid.UUID, req *request.CreateDiscountCodeRequest) (*response.DiscountCodeResponse, error) {
	if _, err := authorizeOrganizer(ctx, s.repo.Event, identity, eventID); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	value, err := parseMoney("value", req.Value)
	if err != nil {
		return nil, err
	}
	kind := entity.DiscountKind(req.Kind)
	if kind == entity.DiscountPercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, validationError("percentage discount cannot exceed 100")
	}

	now := s.clock.Now()
	code := &entity.DiscountCode{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		EventID:    eventID,
		Code:       strings.ToUpper(req.Code),
		Kind:       kind,
		Value:      value,
		MaxUses:    req.MaxUses,
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
		IsActive:   true,
	}

	if err := s.repo.Discount.Create(ctx, code); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validationError("discount code %s already exists", code.Code)
		}
		return nil, fmt.Errorf("create discount code: %w", err)
	}

	resp := response.DiscountCodeToResponse(code)
	return &resp, nil
}

func (s *catalogService) CreateReferralCode(ctx context.Context, identity entity.Identity, eventID uuid.UUID, req *request.CreateReferralCodeRequest) (*response.ReferralCodeResponse, error) {
	if _, err := authorizeOrganizer(ctx, s.repo.Event, identity, eventID); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	percent, err := parseMoney("commission_percent", req.CommissionPercent)
	if err != nil {
		return nil, err
	}
	if percent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, validationError("commission cannot exceed 100 percent")
	}

	now := s.clock.Now()
	code := &entity.ReferralCode{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		EventID:           eventID,
		StaffID:           req.StaffID,
		Code:              strings.ToUpper(req.Code),
		CommissionPercent: percent,
		CommissionEarned:  decimal.Zero,
		IsActive:          true,
	}

	if err := s.repo.Referral.Create(ctx, code); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validationError("referral code %s already exists", code.Code)
		}
		return nil, fmt.Errorf("create referral code: %w", err)
	}

	resp := response.ReferralCodeToResponse(code)
	return &resp, nil
}

func (s *catalogService) CreateRoomBlock(ctx context.Context, identity entity.Identity, eventID uuid.UUID, req *request.CreateRoomBlockRequest) (*response.RoomBlockResponse, error) {
	if _, err := authorizeOrganizer(ctx, s.repo.Event, identity, eventID); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	block := &entity.RoomBlock{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		EventID:  eventID,
		Name:     req.Name,
		Quantity: req.Quantity,
	}
	if err := s.repo.Room.CreateBlock(ctx, block); err != nil {
		return nil, fmt.Errorf("create room block: %w", err)
	}

	resp := response.RoomBlockToResponse(block)
	return &resp, nil
}
