package usecase

import (
	"context"
	"errors"
	"fmt"

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

// BundleService manages bundles and their sold counter. The counter counts
// bundles, not tickets; tier inventory is reserved through the ledger.
type BundleService interface {
	CreateBundle(ctx context.Context, identity entity.Identity, eventID uuid.UUID, req *request.CreateBundleRequest) (*response.BundleResponse, error)
	UpdateBundle(ctx context.Context, identity entity.Identity, bundleID uuid.UUID, req *request.UpdateBundleRequest) (*response.BundleResponse, error)
	// DeleteBundle removes a bundle that never sold, otherwise disables it
	// and returns the disabled bundle.
	DeleteBundle(ctx context.Context, identity entity.Identity, bundleID uuid.UUID) (*response.BundleResponse, error)
	GetBundle(ctx context.Context, bundleID uuid.UUID) (*response.BundleResponse, error)

	Reserve(ctx context.Context, bundleID uuid.UUID, quantity int) error
	Release(ctx context.Context, bundleID uuid.UUID, quantity int) error
}

type bundleService struct {
	bundles repository.BundleRepository
	tiers   repository.TierRepository
	events  repository.EventRepository
	clock   clock.Clock
	policy  retryPolicy
	log     *zap.Logger
}

func NewBundleService(repo *repository.Repository, cfg utils.InventoryConfig, clk clock.Clock, log *zap.Logger) BundleService {
	return &bundleService{
		bundles: repo.Bundle,
		tiers:   repo.Tier,
		events:  repo.Event,
		clock:   clk,
		policy:  newRetryPolicy(cfg),
		log:     log.With(zap.String("service", "bundle")),
	}
}

func (s *bundleService) CreateBundle(ctx context.Context, identity entity.Identity, eventID uuid.UUID, req *request.CreateBundleRequest) (*response.BundleResponse, error) {
	if _, err := authorizeOrganizer(ctx, s.events, identity, eventID); err != nil {
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

	now := s.clock.Now()
	items := make([]entity.BundleItem, 0, len(req.Items))
	seen := make(map[uuid.UUID]struct{}, len(req.Items))
	regular := decimal.Zero

	for _, item := range req.Items {
		tierID, err := parseID("tier_id", item.TierID)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[tierID]; dup {
			return nil, validationError("tier %s listed twice", tierID)
		}
		seen[tierID] = struct{}{}

		tier, err := s.tiers.FindByID(ctx, tierID)
		if err != nil {
			return nil, fmt.Errorf("find tier: %w", err)
		}
		if tier == nil {
			return nil, validationError("tier %s does not exist", tierID)
		}
		// Items may come from any event the same organizer runs
		if tier.EventID != eventID && !isOrganizer(ctx, s.events, identity.Subject, tier.EventID) {
			return nil, validationError("tier %s belongs to an event you do not organize", tierID)
		}

		regular = regular.Add(tier.PriceAt(now).Mul(decimal.NewFromInt(int64(item.Quantity))))
		items = append(items, entity.BundleItem{TierID: tierID, Quantity: item.Quantity})
	}

	bundle := &entity.TicketBundle{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		EventID:       eventID,
		Name:          req.Name,
		Price:         price,
		Items:         items,
		TotalQuantity: req.TotalQuantity,
		RegularPrice:  regular.Round(2),
		Savings:       decimal.Max(regular.Sub(price), decimal.Zero).Round(2),
		SaleStart:     req.SaleStart,
		SaleEnd:       req.SaleEnd,
		IsActive:      true,
	}

	if err := s.bundles.Create(ctx, bundle); err != nil {
		return nil, fmt.Errorf("create bundle: %w", err)
	}

	s.log.Info("Bundle created",
		zap.String("bundle_id", bundle.ID.String()),
		zap.String("event_id", eventID.String()),
		zap.Int("total_quantity", bundle.TotalQuantity),
	)

	resp := response.BundleToResponse(bundle)
	return &resp, nil
}

func (s *bundleService) organizerBundle(ctx context.Context, identity entity.Identity, bundleID uuid.UUID) (*entity.TicketBundle, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	bundle, err := s.find(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if _, err := authorizeOrganizer(ctx, s.events, identity, bundle.EventID); err != nil {
		return nil, err
	}
	return bundle, nil
}

func (s *bundleService) find(ctx context.Context, bundleID uuid.UUID) (*entity.TicketBundle, error) {
	bundle, err := s.bundles.FindByID(ctx, bundleID)
	if err != nil {
		return nil, fmt.Errorf("find bundle %s: %w", bundleID, err)
	}
	if bundle == nil {
		return nil, notFound("bundle")
	}
	return bundle, nil
}

func (s *bundleService) UpdateBundle(ctx context.Context, identity entity.Identity, bundleID uuid.UUID, req *request.UpdateBundleRequest) (*response.BundleResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		bundle, err := s.organizerBundle(ctx, identity, bundleID)
		if err != nil {
			return nil, err
		}
		expected := bundle.Version

		if req.Name != nil {
			bundle.Name = *req.Name
		}
		if req.Price != nil {
			if bundle.Price, err = parseMoney("price", *req.Price); err != nil {
				return nil, err
			}
			bundle.Savings = decimal.Max(bundle.RegularPrice.Sub(bundle.Price), decimal.Zero).Round(2)
		}
		if req.TotalQuantity != nil {
			if *req.TotalQuantity < bundle.Sold {
				return nil, validationError("total quantity cannot drop below the %d already sold", bundle.Sold)
			}
			bundle.TotalQuantity = *req.TotalQuantity
		}
		if req.SaleStart != nil {
			bundle.SaleStart = req.SaleStart
		}
		if req.SaleEnd != nil {
			bundle.SaleEnd = req.SaleEnd
		}
		if bundle.SaleStart != nil && bundle.SaleEnd != nil && !bundle.SaleStart.Before(*bundle.SaleEnd) {
			return nil, validationError("sale window ends before it starts")
		}
		if req.IsActive != nil {
			bundle.IsActive = *req.IsActive
		}

		err = s.bundles.Update(ctx, bundle, expected)
		if err == nil {
			resp := response.BundleToResponse(bundle)
			return &resp, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("update bundle: %w", err)
		}
		if attempt >= s.policy.attempts {
			return nil, ErrConflict
		}
		if err := s.policy.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (s *bundleService) DeleteBundle(ctx context.Context, identity entity.Identity, bundleID uuid.UUID) (*response.BundleResponse, error) {
	bundle, err := s.organizerBundle(ctx, identity, bundleID)
	if err != nil {
		return nil, err
	}

	if bundle.Sold == 0 {
		err := s.bundles.Delete(ctx, bundleID)
		if err == nil {
			s.log.Info("Bundle deleted", zap.String("bundle_id", bundleID.String()))
			return nil, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("delete bundle: %w", err)
		}
	}

	inactive := false
	return s.UpdateBundle(ctx, identity, bundleID, &request.UpdateBundleRequest{IsActive: &inactive})
}

func (s *bundleService) GetBundle(ctx context.Context, bundleID uuid.UUID) (*response.BundleResponse, error) {
	bundle, err := s.find(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	resp := response.BundleToResponse(bundle)
	return &resp, nil
}

func (s *bundleService) Reserve(ctx context.Context, bundleID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return validationError("bundle quantity must be at least 1")
	}

	for attempt := 1; ; attempt++ {
		bundle, err := s.find(ctx, bundleID)
		if err != nil {
			return err
		}
		if bundle.Sold+quantity > bundle.TotalQuantity {
			return ErrBundleSoldOut
		}

		err = s.bundles.CompareAndSetSold(ctx, bundleID, bundle.Version, bundle.Sold+quantity)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return fmt.Errorf("reserve bundle %s: %w", bundleID, err)
		}
		if attempt >= s.policy.attempts {
			return ErrConflict
		}
		if err := s.policy.wait(ctx, attempt); err != nil {
			return err
		}
	}
}

func (s *bundleService) Release(ctx context.Context, bundleID uuid.UUID, quantity int) error {
	for attempt := 1; ; attempt++ {
		bundle, err := s.find(ctx, bundleID)
		if err != nil {
			return err
		}

		err = s.bundles.CompareAndSetSold(ctx, bundleID, bundle.Version, max(bundle.Sold-quantity, 0))
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return fmt.Errorf("release bundle %s: %w", bundleID, err)
		}
		if err := s.policy.wait(ctx, attempt); err != nil {
			return err
		}
	}
}
