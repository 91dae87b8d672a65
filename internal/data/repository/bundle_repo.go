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

type BundleRepository interface {
	Create(ctx context.Context, bundle *entity.TicketBundle) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.TicketBundle, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) ([]*entity.TicketBundle, error)
	CompareAndSetSold(ctx context.Context, id uuid.UUID, expectedVersion int64, sold int) error
	Update(ctx context.Context, bundle *entity.TicketBundle, expectedVersion int64) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type bundleRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBundleRepository(db database.PgxIface, log *zap.Logger) BundleRepository {
	return &bundleRepository{
		db:  db,
		log: log.With(zap.String("repository", "bundle")),
	}
}

const bundleColumns = `id, event_id, name, price, items, total_quantity, sold, version,
	regular_price, savings, sale_start, sale_end, is_active, created_at, updated_at`

func scanBundle(row rowScanner) (*entity.TicketBundle, error) {
	var b entity.TicketBundle
	err := row.Scan(
		&b.ID,
		&b.EventID,
		&b.Name,
		&b.Price,
		&b.Items,
		&b.TotalQuantity,
		&b.Sold,
		&b.Version,
		&b.RegularPrice,
		&b.Savings,
		&b.SaleStart,
		&b.SaleEnd,
		&b.IsActive,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bundleRepository) Create(ctx context.Context, bundle *entity.TicketBundle) error {
	query := `
		INSERT INTO ticket_bundles (` + bundleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(ctx, query,
		bundle.ID,
		bundle.EventID,
		bundle.Name,
		bundle.Price,
		bundle.Items,
		bundle.TotalQuantity,
		bundle.Sold,
		bundle.Version,
		bundle.RegularPrice,
		bundle.Savings,
		bundle.SaleStart,
		bundle.SaleEnd,
		bundle.IsActive,
		bundle.CreatedAt,
		bundle.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create bundle", zap.Error(err), zap.String("event_id", bundle.EventID.String()))
		return fmt.Errorf("create bundle: %w", err)
	}

	return nil
}

func (r *bundleRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.TicketBundle, error) {
	query := `SELECT ` + bundleColumns + ` FROM ticket_bundles WHERE id = $1`

	bundle, err := scanBundle(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find bundle", zap.Error(err), zap.String("bundle_id", id.String()))
		return nil, fmt.Errorf("find bundle %s: %w", id, err)
	}

	return bundle, nil
}

func (r *bundleRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) ([]*entity.TicketBundle, error) {
	query := `SELECT ` + bundleColumns + ` FROM ticket_bundles WHERE event_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		r.log.Error("Failed to list bundles", zap.Error(err), zap.String("event_id", eventID.String()))
		return nil, fmt.Errorf("list bundles for event %s: %w", eventID, err)
	}
	defer rows.Close()

	var bundles []*entity.TicketBundle
	for rows.Next() {
		bundle, err := scanBundle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bundle: %w", err)
		}
		bundles = append(bundles, bundle)
	}

	return bundles, rows.Err()
}

func (r *bundleRepository) CompareAndSetSold(ctx context.Context, id uuid.UUID, expectedVersion int64, sold int) error {
	query := `
		UPDATE ticket_bundles
		SET sold = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND $3 BETWEEN 0 AND total_quantity
	`

	result, err := r.db.Exec(ctx, query, id, expectedVersion, sold)
	if err != nil {
		r.log.Error("Failed to write bundle sold count",
			zap.Error(err),
			zap.String("bundle_id", id.String()),
		)
		return fmt.Errorf("set sold on bundle %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	return nil
}

func (r *bundleRepository) Update(ctx context.Context, bundle *entity.TicketBundle, expectedVersion int64) error {
	query := `
		UPDATE ticket_bundles
		SET name = $3, price = $4, total_quantity = $5, regular_price = $6, savings = $7,
		    sale_start = $8, sale_end = $9, is_active = $10,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND $5 >= sold
		RETURNING version, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		bundle.ID,
		expectedVersion,
		bundle.Name,
		bundle.Price,
		bundle.TotalQuantity,
		bundle.RegularPrice,
		bundle.Savings,
		bundle.SaleStart,
		bundle.SaleEnd,
		bundle.IsActive,
	).Scan(&bundle.Version, &bundle.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	if err != nil {
		r.log.Error("Failed to update bundle", zap.Error(err), zap.String("bundle_id", bundle.ID.String()))
		return fmt.Errorf("update bundle %s: %w", bundle.ID, err)
	}

	return nil
}

func (r *bundleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM ticket_bundles WHERE id = $1 AND sold = 0`, id)
	if err != nil {
		r.log.Error("Failed to delete bundle", zap.Error(err), zap.String("bundle_id", id.String()))
		return fmt.Errorf("delete bundle %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
