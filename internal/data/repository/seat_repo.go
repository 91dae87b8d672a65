package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type SeatingChartRepository interface {
	Create(ctx context.Context, chart *entity.SeatingChart) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SeatingChart, error)
	CompareAndSetReserved(ctx context.Context, id uuid.UUID, expectedVersion int64, reserved int) error
}

type SeatReservationRepository interface {
	// Insert writes a RESERVED record. It returns ErrDuplicate when the
	// coordinate already has a RESERVED record on the chart.
	Insert(ctx context.Context, reservation *entity.SeatReservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SeatReservation, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*entity.SeatReservation, error)
	FindByTicketID(ctx context.Context, ticketID uuid.UUID) ([]*entity.SeatReservation, error)
	FindReservedByChart(ctx context.Context, chartID uuid.UUID) ([]*entity.SeatReservation, error)

	// MarkReleased flips a RESERVED record to RELEASED and reports whether
	// this call did it.
	MarkReleased(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// ReleaseExpiredHold is MarkReleased guarded by the hold deadline: a
	// record that was extended or confirmed since it was read stays RESERVED.
	ReleaseExpiredHold(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)

	// Confirm attaches a ticket to a RESERVED record and clears its expiry.
	Confirm(ctx context.Context, id uuid.UUID, ticketID *uuid.UUID) error
	ExtendByOrder(ctx context.Context, orderID uuid.UUID, expiresAt time.Time) error
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*entity.SeatReservation, error)
	CountReserved(ctx context.Context, chartID uuid.UUID) (int, error)
}

type seatingChartRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSeatingChartRepository(db database.PgxIface, log *zap.Logger) SeatingChartRepository {
	return &seatingChartRepository{
		db:  db,
		log: log.With(zap.String("repository", "seating_chart")),
	}
}

func (r *seatingChartRepository) Create(ctx context.Context, chart *entity.SeatingChart) error {
	query := `
		INSERT INTO seating_charts (id, event_id, name, total_seats, reserved_seats, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		chart.ID,
		chart.EventID,
		chart.Name,
		chart.TotalSeats,
		chart.ReservedSeats,
		chart.Version,
		chart.CreatedAt,
		chart.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create seating chart", zap.Error(err), zap.String("event_id", chart.EventID.String()))
		return fmt.Errorf("create seating chart: %w", err)
	}

	return nil
}

func (r *seatingChartRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SeatingChart, error) {
	query := `
		SELECT id, event_id, name, total_seats, reserved_seats, version, created_at, updated_at
		FROM seating_charts
		WHERE id = $1
	`

	var chart entity.SeatingChart
	err := r.db.QueryRow(ctx, query, id).Scan(
		&chart.ID,
		&chart.EventID,
		&chart.Name,
		&chart.TotalSeats,
		&chart.ReservedSeats,
		&chart.Version,
		&chart.CreatedAt,
		&chart.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find seating chart", zap.Error(err), zap.String("chart_id", id.String()))
		return nil, fmt.Errorf("find seating chart %s: %w", id, err)
	}

	return &chart, nil
}

func (r *seatingChartRepository) CompareAndSetReserved(ctx context.Context, id uuid.UUID, expectedVersion int64, reserved int) error {
	query := `
		UPDATE seating_charts
		SET reserved_seats = GREATEST($3, 0), version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.Exec(ctx, query, id, expectedVersion, reserved)
	if err != nil {
		r.log.Error("Failed to write chart counter", zap.Error(err), zap.String("chart_id", id.String()))
		return fmt.Errorf("set reserved on chart %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	return nil
}

type seatReservationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSeatReservationRepository(db database.PgxIface, log *zap.Logger) SeatReservationRepository {
	return &seatReservationRepository{
		db:  db,
		log: log.With(zap.String("repository", "seat_reservation")),
	}
}

const seatColumns = `id, chart_id, event_id, section, row_label, table_label, seat_label, order_id,
	ticket_id, status, reserved_at, released_at, expires_at, created_at`

func scanSeat(row rowScanner) (*entity.SeatReservation, error) {
	var s entity.SeatReservation
	err := row.Scan(
		&s.ID,
		&s.ChartID,
		&s.EventID,
		&s.Coordinate.Section,
		&s.Coordinate.Row,
		&s.Coordinate.Table,
		&s.Coordinate.Seat,
		&s.OrderID,
		&s.TicketID,
		&s.Status,
		&s.ReservedAt,
		&s.ReleasedAt,
		&s.ExpiresAt,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *seatReservationRepository) Insert(ctx context.Context, s *entity.SeatReservation) error {
	query := `
		INSERT INTO seat_reservations (` + seatColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.ChartID,
		s.EventID,
		s.Coordinate.Section,
		s.Coordinate.Row,
		s.Coordinate.Table,
		s.Coordinate.Seat,
		s.OrderID,
		s.TicketID,
		s.Status,
		s.ReservedAt,
		s.ReleasedAt,
		s.ExpiresAt,
		s.CreatedAt,
	)
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		r.log.Error("Failed to insert seat reservation",
			zap.Error(err),
			zap.String("chart_id", s.ChartID.String()),
			zap.String("seat", s.Coordinate.String()),
		)
		return fmt.Errorf("insert seat reservation: %w", err)
	}

	return nil
}

func (r *seatReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SeatReservation, error) {
	query := `SELECT ` + seatColumns + ` FROM seat_reservations WHERE id = $1`

	seat, err := scanSeat(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find seat reservation", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("find seat reservation %s: %w", id, err)
	}

	return seat, nil
}

func (r *seatReservationRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*entity.SeatReservation, error) {
	query := `SELECT ` + seatColumns + ` FROM seat_reservations WHERE order_id = $1 ORDER BY reserved_at, id`
	return r.list(ctx, "find seats by order", query, orderID)
}

func (r *seatReservationRepository) FindByTicketID(ctx context.Context, ticketID uuid.UUID) ([]*entity.SeatReservation, error) {
	query := `SELECT ` + seatColumns + ` FROM seat_reservations WHERE ticket_id = $1`
	return r.list(ctx, "find seats by ticket", query, ticketID)
}

func (r *seatReservationRepository) FindReservedByChart(ctx context.Context, chartID uuid.UUID) ([]*entity.SeatReservation, error) {
	query := `
		SELECT ` + seatColumns + `
		FROM seat_reservations
		WHERE chart_id = $1 AND status = $2
		ORDER BY section, row_label, table_label, seat_label
	`
	return r.list(ctx, "find reserved seats", query, chartID, entity.SeatStatusReserved)
}

func (r *seatReservationRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*entity.SeatReservation, error) {
	query := `
		SELECT ` + seatColumns + `
		FROM seat_reservations
		WHERE status = $1 AND expires_at IS NOT NULL AND expires_at <= $2
		ORDER BY expires_at
		LIMIT $3
	`
	return r.list(ctx, "find expired seat holds", query, entity.SeatStatusReserved, now, limit)
}

func (r *seatReservationRepository) list(ctx context.Context, op, query string, args ...any) ([]*entity.SeatReservation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var seats []*entity.SeatReservation
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan seat reservation: %w", err)
		}
		seats = append(seats, seat)
	}

	return seats, rows.Err()
}

func (r *seatReservationRepository) MarkReleased(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE seat_reservations
		SET status = $3, released_at = $4
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(ctx, query, id, entity.SeatStatusReserved, entity.SeatStatusReleased, at)
	if err != nil {
		r.log.Error("Failed to release seat", zap.Error(err), zap.String("id", id.String()))
		return false, fmt.Errorf("release seat %s: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *seatReservationRepository) ReleaseExpiredHold(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE seat_reservations
		SET status = $3, released_at = $4
		WHERE id = $1 AND status = $2 AND expires_at IS NOT NULL AND expires_at <= $4
	`

	result, err := r.db.Exec(ctx, query, id, entity.SeatStatusReserved, entity.SeatStatusReleased, now)
	if err != nil {
		r.log.Error("Failed to release expired seat hold", zap.Error(err), zap.String("id", id.String()))
		return false, fmt.Errorf("release expired seat hold %s: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *seatReservationRepository) Confirm(ctx context.Context, id uuid.UUID, ticketID *uuid.UUID) error {
	query := `
		UPDATE seat_reservations
		SET ticket_id = COALESCE($3, ticket_id), expires_at = NULL
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(ctx, query, id, entity.SeatStatusReserved, ticketID)
	if err != nil {
		r.log.Error("Failed to confirm seat", zap.Error(err), zap.String("id", id.String()))
		return fmt.Errorf("confirm seat %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *seatReservationRepository) ExtendByOrder(ctx context.Context, orderID uuid.UUID, expiresAt time.Time) error {
	query := `
		UPDATE seat_reservations
		SET expires_at = $3
		WHERE order_id = $1 AND status = $2 AND expires_at IS NOT NULL
	`

	if _, err := r.db.Exec(ctx, query, orderID, entity.SeatStatusReserved, expiresAt); err != nil {
		r.log.Error("Failed to extend seat holds", zap.Error(err), zap.String("order_id", orderID.String()))
		return fmt.Errorf("extend seat holds for order %s: %w", orderID, err)
	}

	return nil
}

func (r *seatReservationRepository) CountReserved(ctx context.Context, chartID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM seat_reservations WHERE chart_id = $1 AND status = $2`,
		chartID, entity.SeatStatusReserved,
	).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count reserved seats", zap.Error(err), zap.String("chart_id", chartID.String()))
		return 0, fmt.Errorf("count reserved seats on %s: %w", chartID, err)
	}

	return count, nil
}
