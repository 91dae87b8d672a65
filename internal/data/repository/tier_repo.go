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

type TierRepository interface {
	Create(ctx context.Context, tier *entity.TicketTier) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.TicketTier, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) ([]*entity.TicketTier, error)

	// CompareAndSetSold writes sold and bumps version only while the stored
	// version equals expectedVersion. firstSaleAt is applied only if unset.
	CompareAndSetSold(ctx context.Context, id uuid.UUID, expectedVersion int64, sold int, firstSaleAt *time.Time) error

	// Update writes the editable fields of tier guarded by expectedVersion.
	// The new quantity may never drop below sold.
	Update(ctx context.Context, tier *entity.TicketTier, expectedVersion int64) error

	// Delete removes a tier that has never sold and that no order item,
	// ticket or bundle refers to. Anything else returns ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error
}

type tierRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewTierRepository(db database.PgxIface, log *zap.Logger) TierRepository {
	return &tierRepository{
		db:  db,
		log: log.With(zap.String("repository", "tier")),
	}
}

const tierColumns = `id, event_id, name, price, quantity, sold, version, sale_start, sale_end,
	seats_per_unit, pricing_tiers, first_sale_at, is_active, created_at, updated_at`

func scanTier(row rowScanner) (*entity.TicketTier, error) {
	var t entity.TicketTier
	err := row.Scan(
		&t.ID,
		&t.EventID,
		&t.Name,
		&t.Price,
		&t.Quantity,
		&t.Sold,
		&t.Version,
		&t.SaleStart,
		&t.SaleEnd,
		&t.SeatsPerUnit,
		&t.PricingTiers,
		&t.FirstSaleAt,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tierRepository) Create(ctx context.Context, tier *entity.TicketTier) error {
	query := `
		INSERT INTO ticket_tiers (` + tierColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(ctx, query,
		tier.ID,
		tier.EventID,
		tier.Name,
		tier.Price,
		tier.Quantity,
		tier.Sold,
		tier.Version,
		tier.SaleStart,
		tier.SaleEnd,
		tier.SeatsPerUnit,
		tier.PricingTiers,
		tier.FirstSaleAt,
		tier.IsActive,
		tier.CreatedAt,
		tier.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create tier",
			zap.Error(err),
			zap.String("event_id", tier.EventID.String()),
		)
		return fmt.Errorf("create tier: %w", err)
	}

	return nil
}

func (r *tierRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.TicketTier, error) {
	query := `SELECT ` + tierColumns + ` FROM ticket_tiers WHERE id = $1`

	tier, err := scanTier(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find tier", zap.Error(err), zap.String("tier_id", id.String()))
		return nil, fmt.Errorf("find tier %s: %w", id, err)
	}

	return tier, nil
}

func (r *tierRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) ([]*entity.TicketTier, error) {
	query := `SELECT ` + tierColumns + ` FROM ticket_tiers WHERE event_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		r.log.Error("Failed to list tiers", zap.Error(err), zap.String("event_id", eventID.String()))
		return nil, fmt.Errorf("list tiers for event %s: %w", eventID, err)
	}
	defer rows.Close()

	var tiers []*entity.TicketTier
	for rows.Next() {
		tier, err := scanTier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tier: %w", err)
		}
		tiers = append(tiers, tier)
	}

	return tiers, rows.Err()
}

func (r *tierRepository) CompareAndSetSold(ctx context.Context, id uuid.UUID, expectedVersion int64, sold int, firstSaleAt *time.Time) error {
	query := `
		UPDATE ticket_tiers
		SET sold = $3,
		    version = version + 1,
		    first_sale_at = COALESCE(first_sale_at, $4),
		    updated_at = NOW()
		WHERE id = $1 AND version = $2 AND $3 BETWEEN 0 AND quantity
	`

	result, err := r.db.Exec(ctx, query, id, expectedVersion, sold, firstSaleAt)
	if err != nil {
		r.log.Error("Failed to write tier sold count",
			zap.Error(err),
			zap.String("tier_id", id.String()),
			zap.Int64("expected_version", expectedVersion),
		)
		return fmt.Errorf("set sold on tier %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	return nil
}

func (r *tierRepository) Update(ctx context.Context, tier *entity.TicketTier, expectedVersion int64) error {
	query := `
		UPDATE ticket_tiers
		SET name = $3, price = $4, quantity = $5, sale_start = $6, sale_end = $7,
		    seats_per_unit = $8, pricing_tiers = $9, is_active = $10,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND $5 >= sold
		RETURNING version, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		tier.ID,
		expectedVersion,
		tier.Name,
		tier.Price,
		tier.Quantity,
		tier.SaleStart,
		tier.SaleEnd,
		tier.SeatsPerUnit,
		tier.PricingTiers,
		tier.IsActive,
	).Scan(&tier.Version, &tier.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	if err != nil {
		r.log.Error("Failed to update tier", zap.Error(err), zap.String("tier_id", tier.ID.String()))
		return fmt.Errorf("update tier %s: %w", tier.ID, err)
	}

	return nil
}

func (r *tierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM ticket_tiers t
		WHERE t.id = $1 AND t.sold = 0
			AND NOT EXISTS (SELECT 1 FROM order_items i WHERE i.tier_id = t.id)
			AND NOT EXISTS (SELECT 1 FROM tickets k WHERE k.tier_id = t.id)
			AND NOT EXISTS (
				SELECT 1 FROM ticket_bundles b, jsonb_array_elements(b.items) AS item
				WHERE item->>'tier_id' = t.id::text
			)
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete tier", zap.Error(err), zap.String("tier_id", id.String()))
		return fmt.Errorf("delete tier %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
