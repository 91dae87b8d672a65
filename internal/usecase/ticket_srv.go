package usecase

import (
	"context"
	"errors"
	"fmt"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/dto/response"
	"event-ticketing/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActivateTicket turns one cash ticket into a VALID ticket. The activation
// that brings activated_tickets up to ticket_count completes the order in the
// same versioned write, so exactly one caller sees the completion.
func (s *orderService) ActivateTicket(ctx context.Context, identity entity.Identity, req *request.ActivateTicketRequest) (*response.ActivationResponse, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if identity.Email == "" {
		return nil, ErrForbidden
	}

	ticket, err := s.matchActivation(ctx, identity, req.Code)
	if errors.Is(err, errActivationMismatch) {
		return nil, validationError("invalid activation code")
	}
	if err != nil {
		return nil, err
	}

	order, err := s.loadOrder(ctx, *ticket.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusPendingPayment {
		return nil, ErrOrderExpired
	}
	if order.HoldExpiresAt != nil && !s.clock.Now().Before(*order.HoldExpiresAt) {
		return nil, ErrOrderExpired
	}

	// Inventory is taken at activation, not at cash checkout
	if ticket.LedgerUnits > 0 {
		if _, err := s.ledger.Reserve(ctx, ticket.TierID, ticket.LedgerUnits); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	code := utils.GenerateTicketCode()
	ticket.Status = entity.TicketStatusValid
	ticket.Code = &code
	ticket.ActivatedAt = &now

	if err := s.repo.Ticket.CompareAndSetStatus(ctx, ticket, entity.TicketStatusPendingActivation); err != nil {
		s.giveBackUnits(ctx, ticket)
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("activate ticket: %w", err)
		}
		current, findErr := s.repo.Ticket.FindByID(ctx, ticket.ID)
		if findErr == nil && current != nil && current.Status == entity.TicketStatusCancelled {
			return nil, ErrOrderExpired
		}
		return nil, fmt.Errorf("%w: ticket already activated", ErrInvalidTransition)
	}

	// Each concurrent activation of this order can cost one conflict
	attempts := max(s.policy.attempts, order.TicketCount+1)
	updated, err := s.transition(ctx, order.ID, attempts, func(o *entity.Order) error {
		if o.Status != entity.OrderStatusPendingPayment {
			return ErrOrderExpired
		}
		o.ActivatedTickets++
		if o.ActivatedTickets >= o.TicketCount {
			o.Status = entity.OrderStatusCompleted
			o.CompletedAt = &now
		}
		return nil
	})
	if err != nil {
		s.undoActivation(ctx, ticket)
		return nil, err
	}

	s.log.Info("Ticket activated",
		zap.String("ticket_id", ticket.ID.String()),
		zap.String("order_id", updated.ID.String()),
		zap.Int("activated_tickets", updated.ActivatedTickets),
		zap.Int("ticket_count", updated.TicketCount),
	)

	if updated.Status == entity.OrderStatusCompleted {
		tickets, err := s.repo.Ticket.FindByOrderID(ctx, updated.ID)
		if err != nil {
			s.log.Error("Failed to load tickets of completed order", zap.Error(err))
		}
		s.confirmSeats(ctx, updated, tickets)
		s.settle(ctx, updated, tickets)
	}

	return &response.ActivationResponse{
		Ticket:           response.TicketToResponse(ticket),
		OrderID:          updated.ID.String(),
		OrderStatus:      updated.Status,
		ActivatedTickets: updated.ActivatedTickets,
		TicketCount:      updated.TicketCount,
	}, nil
}

// undoActivation cancels a ticket whose order moved on while it was being
// activated. Units are released only when this call did the cancel; if the
// sweeper got there first it released them itself.
func (s *orderService) undoActivation(ctx context.Context, ticket *entity.Ticket) {
	now := s.clock.Now()
	ticket.Status = entity.TicketStatusCancelled
	ticket.CancelledAt = &now

	err := s.repo.Ticket.CompareAndSetStatus(ctx, ticket, entity.TicketStatusValid)
	if err != nil {
		if !errors.Is(err, repository.ErrVersionConflict) {
			s.log.Error("Failed to undo activation", zap.Error(err), zap.String("ticket_id", ticket.ID.String()))
		}
		return
	}
	if _, err := s.seats.ReleaseByTicket(ctx, ticket); err != nil {
		s.log.Error("Failed to release seat of undone activation", zap.Error(err))
	}
	s.giveBackUnits(ctx, ticket)
}

func (s *orderService) giveBackUnits(ctx context.Context, ticket *entity.Ticket) {
	if ticket.LedgerUnits == 0 {
		return
	}
	if _, err := s.ledger.TryRelease(ctx, ticket.TierID, ticket.LedgerUnits); err != nil {
		s.log.Error("Failed to release ticket units",
			zap.Error(err),
			zap.String("ticket_id", ticket.ID.String()),
			zap.String("tier_id", ticket.TierID.String()),
		)
	}
}

func (s *orderService) CancelTicket(ctx context.Context, identity entity.Identity, ticketID uuid.UUID) (*response.TicketResponse, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	ticket, err := s.findTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	owner := false
	if ticket.OrderID != nil {
		order, err := s.loadOrder(ctx, *ticket.OrderID)
		if err != nil {
			return nil, err
		}
		owner = order.IsOwnedBy(identity.Subject)
	}
	if !owner && !isOrganizer(ctx, s.repo.Event, identity.Subject, ticket.EventID) {
		return nil, ErrForbidden
	}

	if err := ticketStateError(ticket.Status, entity.TicketStatusValid); err != nil {
		return nil, err
	}

	unit, err := s.unitTickets(ctx, ticket)
	if err != nil {
		return nil, err
	}
	for _, t := range unit {
		if t.Status == entity.TicketStatusScanned {
			return nil, ErrTicketScanned
		}
	}

	// Table seats share one ledger unit held by the lead ticket, which is
	// cancelled last so the unit is only freed once every seat is gone.
	var requested *entity.Ticket
	cancelledSeats := 0
	for _, t := range unit {
		if t.Status != entity.TicketStatusValid {
			continue
		}
		cancelled, err := s.cancelTicket(ctx, t)
		if err != nil {
			return nil, err
		}
		if cancelled {
			cancelledSeats++
			if t.ID == ticketID {
				requested = t
			}
			continue
		}

		current, err := s.findTicket(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == entity.TicketStatusScanned {
			return nil, ErrTicketScanned
		}
		if t.ID == ticketID {
			if err := ticketStateError(current.Status, entity.TicketStatusValid); err != nil {
				return nil, err
			}
			return nil, ErrConflict
		}
	}
	if requested == nil {
		current, err := s.findTicket(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if err := ticketStateError(current.Status, entity.TicketStatusValid); err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}

	s.log.Info("Ticket cancelled",
		zap.String("ticket_id", requested.ID.String()),
		zap.String("by", identity.Subject),
		zap.Int("seats", cancelledSeats),
	)

	resp := response.TicketToResponse(requested)
	return &resp, nil
}

// unitTickets returns the tickets materialized from the same order item as
// ticket, with the ones carrying ledger units at the end.
func (s *orderService) unitTickets(ctx context.Context, ticket *entity.Ticket) ([]*entity.Ticket, error) {
	if ticket.OrderID == nil || ticket.OrderItemID == nil {
		return []*entity.Ticket{ticket}, nil
	}

	all, err := s.repo.Ticket.FindByOrderID(ctx, *ticket.OrderID)
	if err != nil {
		return nil, fmt.Errorf("find tickets of order: %w", err)
	}

	var seats, leads []*entity.Ticket
	for _, t := range all {
		if t.OrderItemID == nil || *t.OrderItemID != *ticket.OrderItemID {
			continue
		}
		if t.LedgerUnits > 0 {
			leads = append(leads, t)
		} else {
			seats = append(seats, t)
		}
	}
	if len(seats)+len(leads) == 0 {
		return []*entity.Ticket{ticket}, nil
	}
	return append(seats, leads...), nil
}

func (s *orderService) ScanTicket(ctx context.Context, identity entity.Identity, req *request.ScanTicketRequest) (*response.TicketResponse, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	ticket, err := s.repo.Ticket.FindByCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("find ticket by code: %w", err)
	}
	if ticket == nil {
		return nil, notFound("ticket")
	}
	if !isOrganizer(ctx, s.repo.Event, identity.Subject, ticket.EventID) {
		return nil, ErrForbidden
	}
	if err := ticketStateError(ticket.Status, entity.TicketStatusValid); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ticket.Status = entity.TicketStatusScanned
	ticket.ScannedAt = &now

	err = s.repo.Ticket.CompareAndSetStatus(ctx, ticket, entity.TicketStatusValid)
	if errors.Is(err, repository.ErrVersionConflict) {
		current, findErr := s.findTicket(ctx, ticket.ID)
		if findErr != nil {
			return nil, findErr
		}
		if err := ticketStateError(current.Status, entity.TicketStatusValid); err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("scan ticket: %w", err)
	}

	resp := response.TicketToResponse(ticket)
	return &resp, nil
}

func (s *orderService) GetTicketByCode(ctx context.Context, code string) (*response.TicketResponse, error) {
	ticket, err := s.repo.Ticket.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find ticket by code: %w", err)
	}
	if ticket == nil {
		return nil, notFound("ticket")
	}
	resp := response.TicketToResponse(ticket)
	return &resp, nil
}

func (s *orderService) findTicket(ctx context.Context, ticketID uuid.UUID) (*entity.Ticket, error) {
	ticket, err := s.repo.Ticket.FindByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("find ticket %s: %w", ticketID, err)
	}
	if ticket == nil {
		return nil, notFound("ticket")
	}
	return ticket, nil
}

// ticketStateError maps a ticket status that is not want to the error callers see.
func ticketStateError(status, want entity.TicketStatus) error {
	switch {
	case status == want:
		return nil
	case status == entity.TicketStatusScanned:
		return ErrTicketScanned
	default:
		return fmt.Errorf("%w: ticket is %s", ErrInvalidTransition, status)
	}
}
