package repository

import (
	"context"
	"errors"
	"fmt"

	"event-ticketing/internal/data/entity"
	"event-ticketing/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type TicketRepository interface {
	// CreateBatch inserts tickets, skipping ids that already exist.
	CreateBatch(ctx context.Context, tickets []*entity.Ticket) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Ticket, error)
	FindByCode(ctx context.Context, code string) (*entity.Ticket, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*entity.Ticket, error)
	FindPendingActivationByBuyerEmail(ctx context.Context, email string) ([]*entity.Ticket, error)

	// CompareAndSetStatus writes ticket's status fields while the stored
	// status still equals from.
	CompareAndSetStatus(ctx context.Context, ticket *entity.Ticket, from entity.TicketStatus) error

	// FindLiveByCancelledOrders returns unscanned, uncancelled tickets whose
	// order is already CANCELLED.
	FindLiveByCancelledOrders(ctx context.Context, limit int) ([]*entity.Ticket, error)
}

type ticketRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewTicketRepository(db database.PgxIface, log *zap.Logger) TicketRepository {
	return &ticketRepository{
		db:  db,
		log: log.With(zap.String("repository", "ticket")),
	}
}

const ticketColumns = `t.id, t.order_id, t.order_item_id, t.tier_id, t.event_id, t.code,
	t.activation_code_hash, t.status, t.attendee_name, t.attendee_email, t.bundle_group,
	t.seat_reservation_id, t.ledger_units, t.activated_at, t.scanned_at, t.cancelled_at,
	t.created_at, t.updated_at`

func scanTicket(row rowScanner) (*entity.Ticket, error) {
	var t entity.Ticket
	err := row.Scan(
		&t.ID,
		&t.OrderID,
		&t.OrderItemID,
		&t.TierID,
		&t.EventID,
		&t.Code,
		&t.ActivationCodeHash,
		&t.Status,
		&t.AttendeeName,
		&t.AttendeeEmail,
		&t.BundleGroup,
		&t.SeatReservationID,
		&t.LedgerUnits,
		&t.ActivatedAt,
		&t.ScannedAt,
		&t.CancelledAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ticketRepository) CreateBatch(ctx context.Context, tickets []*entity.Ticket) error {
	query := `
		INSERT INTO tickets (id, order_id, order_item_id, tier_id, event_id, code,
			activation_code_hash, status, attendee_name, attendee_email, bundle_group,
			seat_reservation_id, ledger_units, activated_at, scanned_at, cancelled_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(query,
			t.ID,
			t.OrderID,
			t.OrderItemID,
			t.TierID,
			t.EventID,
			t.Code,
			t.ActivationCodeHash,
			t.Status,
			t.AttendeeName,
			t.AttendeeEmail,
			t.BundleGroup,
			t.SeatReservationID,
			t.LedgerUnits,
			t.ActivatedAt,
			t.ScannedAt,
			t.CancelledAt,
			t.CreatedAt,
			t.UpdatedAt,
		)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin ticket tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		r.log.Error("Failed to create tickets", zap.Error(err), zap.Int("count", len(tickets)))
		return fmt.Errorf("create tickets: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tickets: %w", err)
	}

	return nil
}

func (r *ticketRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id = $1`

	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find ticket", zap.Error(err), zap.String("ticket_id", id.String()))
		return nil, fmt.Errorf("find ticket %s: %w", id, err)
	}

	return ticket, nil
}

func (r *ticketRepository) FindByCode(ctx context.Context, code string) (*entity.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.code = $1`

	ticket, err := scanTicket(r.db.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find ticket by code", zap.Error(err))
		return nil, fmt.Errorf("find ticket by code: %w", err)
	}

	return ticket, nil
}

func (r *ticketRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*entity.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.order_id = $1 ORDER BY t.created_at, t.id`

	return r.list(ctx, "find tickets by order", query, orderID)
}

func (r *ticketRepository) FindPendingActivationByBuyerEmail(ctx context.Context, email string) ([]*entity.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets t
		JOIN orders o ON o.id = t.order_id
		WHERE lower(o.buyer_email) = lower($1) AND t.status = $2
		ORDER BY t.created_at
	`

	return r.list(ctx, "find pending activation tickets", query, email, entity.TicketStatusPendingActivation)
}

func (r *ticketRepository) FindLiveByCancelledOrders(ctx context.Context, limit int) ([]*entity.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets t
		JOIN orders o ON o.id = t.order_id
		WHERE o.status = $1 AND t.status IN ($2, $3)
		LIMIT $4
	`

	return r.list(ctx, "find live tickets of cancelled orders", query,
		entity.OrderStatusCancelled,
		entity.TicketStatusPendingActivation,
		entity.TicketStatusValid,
		limit,
	)
}

func (r *ticketRepository) list(ctx context.Context, op, query string, args ...any) ([]*entity.Ticket, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var tickets []*entity.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	return tickets, rows.Err()
}

func (r *ticketRepository) CompareAndSetStatus(ctx context.Context, ticket *entity.Ticket, from entity.TicketStatus) error {
	query := `
		UPDATE tickets
		SET status = $3, code = $4, activated_at = $5, scanned_at = $6, cancelled_at = $7,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		ticket.ID,
		from,
		ticket.Status,
		ticket.Code,
		ticket.ActivatedAt,
		ticket.ScannedAt,
		ticket.CancelledAt,
	).Scan(&ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	if err != nil {
		r.log.Error("Failed to set ticket status",
			zap.Error(err),
			zap.String("ticket_id", ticket.ID.String()),
			zap.String("from", string(from)),
			zap.String("to", string(ticket.Status)),
		)
		return fmt.Errorf("set ticket %s status: %w", ticket.ID, err)
	}

	return nil
}
