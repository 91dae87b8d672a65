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

type RoomRepository interface {
	CreateBlock(ctx context.Context, block *entity.RoomBlock) error
	FindBlockByID(ctx context.Context, id uuid.UUID) (*entity.RoomBlock, error)
	CompareAndSetHeld(ctx context.Context, id uuid.UUID, expectedVersion int64, held int) error

	CreateHold(ctx context.Context, hold *entity.RoomHold) error
	FindHoldByID(ctx context.Context, id uuid.UUID) (*entity.RoomHold, error)
	// TransitionHold moves a hold from one status to another and reports
	// whether this call made the change.
	TransitionHold(ctx context.Context, id uuid.UUID, from, to entity.RoomHoldStatus) (bool, error)
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*entity.RoomHold, error)
}

type roomRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewRoomRepository(db database.PgxIface, log *zap.Logger) RoomRepository {
	return &roomRepository{
		db:  db,
		log: log.With(zap.String("repository", "room")),
	}
}

func (r *roomRepository) CreateBlock(ctx context.Context, block *entity.RoomBlock) error {
	query := `
		INSERT INTO room_blocks (id, event_id, name, quantity, held, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		block.ID,
		block.EventID,
		block.Name,
		block.Quantity,
		block.Held,
		block.Version,
		block.CreatedAt,
		block.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create room block", zap.Error(err), zap.String("event_id", block.EventID.String()))
		return fmt.Errorf("create room block: %w", err)
	}

	return nil
}

func (r *roomRepository) FindBlockByID(ctx context.Context, id uuid.UUID) (*entity.RoomBlock, error) {
	query := `
		SELECT id, event_id, name, quantity, held, version, created_at, updated_at
		FROM room_blocks
		WHERE id = $1
	`

	var block entity.RoomBlock
	err := r.db.QueryRow(ctx, query, id).Scan(
		&block.ID,
		&block.EventID,
		&block.Name,
		&block.Quantity,
		&block.Held,
		&block.Version,
		&block.CreatedAt,
		&block.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find room block", zap.Error(err), zap.String("block_id", id.String()))
		return nil, fmt.Errorf("find room block %s: %w", id, err)
	}

	return &block, nil
}

func (r *roomRepository) CompareAndSetHeld(ctx context.Context, id uuid.UUID, expectedVersion int64, held int) error {
	query := `
		UPDATE room_blocks
		SET held = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND $3 BETWEEN 0 AND quantity
	`

	result, err := r.db.Exec(ctx, query, id, expectedVersion, held)
	if err != nil {
		r.log.Error("Failed to write room block counter", zap.Error(err), zap.String("block_id", id.String()))
		return fmt.Errorf("set held on room block %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	return nil
}

const roomHoldColumns = `id, block_id, order_id, holder_id, quantity, status, expires_at, created_at`

func scanRoomHold(row rowScanner) (*entity.RoomHold, error) {
	var h entity.RoomHold
	err := row.Scan(
		&h.ID,
		&h.BlockID,
		&h.OrderID,
		&h.HolderID,
		&h.Quantity,
		&h.Status,
		&h.ExpiresAt,
		&h.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *roomRepository) CreateHold(ctx context.Context, hold *entity.RoomHold) error {
	query := `
		INSERT INTO room_holds (` + roomHoldColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		hold.ID,
		hold.BlockID,
		hold.OrderID,
		hold.HolderID,
		hold.Quantity,
		hold.Status,
		hold.ExpiresAt,
		hold.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create room hold", zap.Error(err), zap.String("block_id", hold.BlockID.String()))
		return fmt.Errorf("create room hold: %w", err)
	}

	return nil
}

func (r *roomRepository) FindHoldByID(ctx context.Context, id uuid.UUID) (*entity.RoomHold, error) {
	query := `SELECT ` + roomHoldColumns + ` FROM room_holds WHERE id = $1`

	hold, err := scanRoomHold(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find room hold", zap.Error(err), zap.String("hold_id", id.String()))
		return nil, fmt.Errorf("find room hold %s: %w", id, err)
	}

	return hold, nil
}

func (r *roomRepository) TransitionHold(ctx context.Context, id uuid.UUID, from, to entity.RoomHoldStatus) (bool, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE room_holds SET status = $3 WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		r.log.Error("Failed to transition room hold",
			zap.Error(err),
			zap.String("hold_id", id.String()),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("transition room hold %s: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *roomRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*entity.RoomHold, error) {
	query := `
		SELECT ` + roomHoldColumns + `
		FROM room_holds
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, entity.RoomHoldPending, now, limit)
	if err != nil {
		r.log.Error("Failed to find expired room holds", zap.Error(err))
		return nil, fmt.Errorf("find expired room holds: %w", err)
	}
	defer rows.Close()

	var holds []*entity.RoomHold
	for rows.Next() {
		hold, err := scanRoomHold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room hold: %w", err)
		}
		holds = append(holds, hold)
	}

	return holds, rows.Err()
}
