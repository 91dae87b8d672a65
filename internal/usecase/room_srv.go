package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/dto/response"
	"event-ticketing/pkg/clock"
	"event-ticketing/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoomService sells blocks of rooms with the same hold-then-confirm flow as
// seats. A block's held counter moves only by compare-and-set.
type RoomService interface {
	HoldRooms(ctx context.Context, identity entity.Identity, blockID uuid.UUID, req *request.HoldRoomsRequest) (*response.RoomHoldResponse, error)
	ConfirmRooms(ctx context.Context, identity entity.Identity, holdID uuid.UUID) (*response.RoomHoldResponse, error)
	ReleaseRooms(ctx context.Context, identity entity.Identity, holdID uuid.UUID) (*response.RoomHoldResponse, error)
	GetBlock(ctx context.Context, blockID uuid.UUID) (*response.RoomBlockResponse, error)

	// Release frees a PENDING hold without an ownership check and reports
	// whether this call released it.
	Release(ctx context.Context, hold *entity.RoomHold) (bool, error)
}

type roomService struct {
	rooms   repository.RoomRepository
	events  repository.EventRepository
	clock   clock.Clock
	holdTTL time.Duration
	policy  retryPolicy
	log     *zap.Logger
}

func NewRoomService(repo *repository.Repository, cfg utils.InventoryConfig, clk clock.Clock, log *zap.Logger) RoomService {
	return &roomService{
		rooms:   repo.Room,
		events:  repo.Event,
		clock:   clk,
		holdTTL: cfg.RoomHoldTTL,
		policy:  newRetryPolicy(cfg),
		log:     log.With(zap.String("service", "room")),
	}
}

func (s *roomService) HoldRooms(ctx context.Context, identity entity.Identity, blockID uuid.UUID, req *request.HoldRoomsRequest) (*response.RoomHoldResponse, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	var orderID *uuid.UUID
	if req.OrderID != "" {
		id, err := uuid.Parse(req.OrderID)
		if err != nil {
			return nil, validationError("invalid order id")
		}
		orderID = &id
	}

	if err := s.adjustHeld(ctx, blockID, req.Quantity); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	hold := &entity.RoomHold{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		BlockID:   blockID,
		OrderID:   orderID,
		HolderID:  identity.Subject,
		Quantity:  req.Quantity,
		Status:    entity.RoomHoldPending,
		ExpiresAt: now.Add(s.holdTTL),
	}

	if err := s.rooms.CreateHold(ctx, hold); err != nil {
		if undo := s.adjustHeld(ctx, blockID, -req.Quantity); undo != nil {
			s.log.Error("Failed to return rooms after hold error", zap.Error(undo))
		}
		return nil, fmt.Errorf("create room hold: %w", err)
	}

	s.log.Info("Rooms held",
		zap.String("hold_id", hold.ID.String()),
		zap.String("block_id", blockID.String()),
		zap.Int("quantity", hold.Quantity),
	)

	resp := response.RoomHoldToResponse(hold)
	return &resp, nil
}

func (s *roomService) ConfirmRooms(ctx context.Context, identity entity.Identity, holdID uuid.UUID) (*response.RoomHoldResponse, error) {
	hold, err := s.authorizedHold(ctx, identity, holdID)
	if err != nil {
		return nil, err
	}

	// A lapsed hold is released here rather than waiting for the sweeper
	if hold.Status == entity.RoomHoldPending && !s.clock.Now().Before(hold.ExpiresAt) {
		if _, err := s.Release(ctx, hold); err != nil {
			s.log.Error("Failed to release expired room hold", zap.Error(err), zap.String("hold_id", hold.ID.String()))
		}
		return nil, fmt.Errorf("%w: room hold expired", ErrOrderExpired)
	}

	ok, err := s.rooms.TransitionHold(ctx, hold.ID, entity.RoomHoldPending, entity.RoomHoldConfirmed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: room hold is %s", ErrInvalidTransition, hold.Status)
	}

	hold.Status = entity.RoomHoldConfirmed
	resp := response.RoomHoldToResponse(hold)
	return &resp, nil
}

func (s *roomService) ReleaseRooms(ctx context.Context, identity entity.Identity, holdID uuid.UUID) (*response.RoomHoldResponse, error) {
	hold, err := s.authorizedHold(ctx, identity, holdID)
	if err != nil {
		return nil, err
	}
	if hold.Status == entity.RoomHoldConfirmed {
		return nil, fmt.Errorf("%w: room hold already confirmed", ErrInvalidTransition)
	}

	if _, err := s.Release(ctx, hold); err != nil {
		return nil, err
	}

	hold.Status = entity.RoomHoldReleased
	resp := response.RoomHoldToResponse(hold)
	return &resp, nil
}

func (s *roomService) GetBlock(ctx context.Context, blockID uuid.UUID) (*response.RoomBlockResponse, error) {
	block, err := s.rooms.FindBlockByID(ctx, blockID)
	if err != nil {
		return nil, fmt.Errorf("find room block: %w", err)
	}
	if block == nil {
		return nil, notFound("room block")
	}
	resp := response.RoomBlockToResponse(block)
	return &resp, nil
}

func (s *roomService) Release(ctx context.Context, hold *entity.RoomHold) (bool, error) {
	ok, err := s.rooms.TransitionHold(ctx, hold.ID, entity.RoomHoldPending, entity.RoomHoldReleased)
	if err != nil || !ok {
		return false, err
	}
	if err := s.adjustHeld(ctx, hold.BlockID, -hold.Quantity); err != nil {
		return true, fmt.Errorf("return rooms to block %s: %w", hold.BlockID, err)
	}
	return true, nil
}

func (s *roomService) authorizedHold(ctx context.Context, identity entity.Identity, holdID uuid.UUID) (*entity.RoomHold, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	hold, err := s.rooms.FindHoldByID(ctx, holdID)
	if err != nil {
		return nil, fmt.Errorf("find room hold: %w", err)
	}
	if hold == nil {
		return nil, notFound("room hold")
	}
	if hold.HolderID == identity.Subject {
		return hold, nil
	}

	block, err := s.rooms.FindBlockByID(ctx, hold.BlockID)
	if err != nil || block == nil || !isOrganizer(ctx, s.events, identity.Subject, block.EventID) {
		return nil, ErrForbidden
	}
	return hold, nil
}

// adjustHeld moves the block's held counter by delta. Positive deltas fail
// with ErrSoldOut when the block is full; negative ones floor at zero.
func (s *roomService) adjustHeld(ctx context.Context, blockID uuid.UUID, delta int) error {
	for attempt := 1; ; attempt++ {
		block, err := s.rooms.FindBlockByID(ctx, blockID)
		if err != nil {
			return fmt.Errorf("find room block: %w", err)
		}
		if block == nil {
			return notFound("room block")
		}

		held := max(block.Held+delta, 0)
		if held > block.Quantity {
			return ErrSoldOut
		}

		err = s.rooms.CompareAndSetHeld(ctx, blockID, block.Version, held)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return fmt.Errorf("write room block counter: %w", err)
		}
		if delta > 0 && attempt >= s.policy.attempts {
			return ErrConflict
		}
		if err := s.policy.wait(ctx, attempt); err != nil {
			return err
		}
	}
}
