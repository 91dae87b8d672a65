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

type OrderRepository interface {
	// Create writes the order and its items in one transaction.
	Create(ctx context.Context, order *entity.Order, items []*entity.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	FindByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]*entity.Order, error)
	CountByBuyer(ctx context.Context, buyerID string) (int64, error)
	FindItems(ctx context.Context, orderID uuid.UUID) ([]*entity.OrderItem, error)

	// CompareAndSwap persists the mutable state of order if the stored
	// version still equals expectedVersion. On success order.Version holds
	// the new version.
	CompareAndSwap(ctx context.Context, order *entity.Order, expectedVersion int64) error

	FindExpiredCashOrders(ctx context.Context, now time.Time, limit int) ([]*entity.Order, error)
}

type orderRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOrderRepository(db database.PgxIface, log *zap.Logger) OrderRepository {
	return &orderRepository{
		db:  db,
		log: log.With(zap.String("repository", "order")),
	}
}

const orderColumns = `id, order_number, buyer_id, buyer_email, event_id, subtotal, discount_amount,
	platform_fee, processing_fee, total, status, payment_method, payment_reference, bundle_id,
	bundle_quantity, discount_code_id, referral_code_id, chart_id, seats, ticket_count,
	activated_tickets, hold_expires_at, completed_at, cancelled_at, version, created_at, updated_at`

func scanOrder(row rowScanner) (*entity.Order, error) {
	var o entity.Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.BuyerID,
		&o.BuyerEmail,
		&o.EventID,
		&o.Subtotal,
		&o.DiscountAmount,
		&o.PlatformFee,
		&o.ProcessingFee,
		&o.Total,
		&o.Status,
		&o.PaymentMethod,
		&o.PaymentReference,
		&o.BundleID,
		&o.BundleQuantity,
		&o.DiscountCodeID,
		&o.ReferralCodeID,
		&o.ChartID,
		&o.Seats,
		&o.TicketCount,
		&o.ActivatedTickets,
		&o.HoldExpiresAt,
		&o.CompletedAt,
		&o.CancelledAt,
		&o.Version,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order, items []*entity.OrderItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`
	_, err = tx.Exec(ctx, query,
		order.ID,
		order.OrderNumber,
		order.BuyerID,
		order.BuyerEmail,
		order.EventID,
		order.Subtotal,
		order.DiscountAmount,
		order.PlatformFee,
		order.ProcessingFee,
		order.Total,
		order.Status,
		order.PaymentMethod,
		order.PaymentReference,
		order.BundleID,
		order.BundleQuantity,
		order.DiscountCodeID,
		order.ReferralCodeID,
		order.ChartID,
		order.Seats,
		order.TicketCount,
		order.ActivatedTickets,
		order.HoldExpiresAt,
		order.CompletedAt,
		order.CancelledAt,
		order.Version,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create order",
			zap.Error(err),
			zap.String("order_number", order.OrderNumber),
			zap.String("buyer_id", order.BuyerID),
		)
		return fmt.Errorf("create order %s: %w", order.OrderNumber, err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, tier_id, unit_price, bundle_group, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, item := range items {
		_, err := tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.TierID,
			item.UnitPrice,
			item.BundleGroup,
			item.Position,
			item.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to create order item",
				zap.Error(err),
				zap.String("order_id", order.ID.String()),
				zap.String("tier_id", item.TierID.String()),
			)
			return fmt.Errorf("create order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order %s: %w", order.OrderNumber, err)
	}

	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find order", zap.Error(err), zap.String("order_id", id.String()))
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}

	return order, nil
}

func (r *orderRepository) FindByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]*entity.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE buyer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, buyerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list orders", zap.Error(err), zap.String("buyer_id", buyerID))
		return nil, fmt.Errorf("list orders for %s: %w", buyerID, err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func (r *orderRepository) CountByBuyer(ctx context.Context, buyerID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE buyer_id = $1`, buyerID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count orders", zap.Error(err), zap.String("buyer_id", buyerID))
		return 0, fmt.Errorf("count orders for %s: %w", buyerID, err)
	}

	return count, nil
}

func (r *orderRepository) FindItems(ctx context.Context, orderID uuid.UUID) ([]*entity.OrderItem, error) {
	query := `
		SELECT id, order_id, tier_id, unit_price, bundle_group, position, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		r.log.Error("Failed to list order items", zap.Error(err), zap.String("order_id", orderID.String()))
		return nil, fmt.Errorf("list items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var items []*entity.OrderItem
	for rows.Next() {
		var item entity.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.TierID,
			&item.UnitPrice,
			&item.BundleGroup,
			&item.Position,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

func (r *orderRepository) CompareAndSwap(ctx context.Context, order *entity.Order, expectedVersion int64) error {
	query := `
		UPDATE orders
		SET status = $3,
		    payment_method = $4,
		    payment_reference = $5,
		    activated_tickets = $6,
		    hold_expires_at = $7,
		    completed_at = $8,
		    cancelled_at = $9,
		    processing_fee = $10,
		    total = $11,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		order.ID,
		expectedVersion,
		order.Status,
		order.PaymentMethod,
		order.PaymentReference,
		order.ActivatedTickets,
		order.HoldExpiresAt,
		order.CompletedAt,
		order.CancelledAt,
		order.ProcessingFee,
		order.Total,
	).Scan(&order.Version, &order.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	if err != nil {
		r.log.Error("Failed to swap order",
			zap.Error(err),
			zap.String("order_id", order.ID.String()),
			zap.String("status", string(order.Status)),
		)
		return fmt.Errorf("swap order %s: %w", order.ID, err)
	}

	return nil
}

func (r *orderRepository) FindExpiredCashOrders(ctx context.Context, now time.Time, limit int) ([]*entity.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1 AND hold_expires_at < $2
		ORDER BY hold_expires_at
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, entity.OrderStatusPendingPayment, now, limit)
	if err != nil {
		r.log.Error("Failed to find expired cash orders", zap.Error(err))
		return nil, fmt.Errorf("find expired cash orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]*entity.Order, error) {
	var orders []*entity.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
