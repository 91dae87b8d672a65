package repository

import (
	"context"
	"errors"
	"fmt"

	"event-ticketing/internal/data/entity"
	"event-ticketing/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DiscountRepository interface {
	Create(ctx context.Context, code *entity.DiscountCode) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.DiscountCode, error)
	FindByCode(ctx context.Context, eventID uuid.UUID, code string) (*entity.DiscountCode, error)
	CompareAndSetUsed(ctx context.Context, id uuid.UUID, expectedVersion int64, used int) error
}

type ReferralRepository interface {
	Create(ctx context.Context, code *entity.ReferralCode) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ReferralCode, error)
	FindByCode(ctx context.Context, eventID uuid.UUID, code string) (*entity.ReferralCode, error)
	CompareAndSetSales(ctx context.Context, id uuid.UUID, expectedVersion int64, ticketsSold int, commission decimal.Decimal) error
}

type discountRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewDiscountRepository(db database.PgxIface, log *zap.Logger) DiscountRepository {
	return &discountRepository{
		db:  db,
		log: log.With(zap.String("repository", "discount")),
	}
}

const discountColumns = `id, event_id, code, kind, value, max_uses, used_count, valid_from,
	valid_until, is_active, version, created_at, updated_at`

func scanDiscount(row rowScanner) (*entity.DiscountCode, error) {
	var d entity.DiscountCode
	err := row.Scan(
		&d.ID,
		&d.EventID,
		&d.Code,
		&d.Kind,
		&d.Value,
		&d.MaxUses,
		&d.UsedCount,
		&d.ValidFrom,
		&d.ValidUntil,
		&d.IsActive,
		&d.Version,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *discountRepository) Create(ctx context.Context, d *entity.DiscountCode) error {
	query := `
		INSERT INTO discount_codes (` + discountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query,
		d.ID,
		d.EventID,
		d.Code,
		d.Kind,
		d.Value,
		d.MaxUses,
		d.UsedCount,
		d.ValidFrom,
		d.ValidUntil,
		d.IsActive,
		d.Version,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		r.log.Error("Failed to create discount code", zap.Error(err), zap.String("code", d.Code))
		return fmt.Errorf("create discount code %s: %w", d.Code, err)
	}

	return nil
}

func (r *discountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.DiscountCode, error) {
	query := `SELECT ` + discountColumns + ` FROM discount_codes WHERE id = $1`

	d, err := scanDiscount(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find discount code", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("find discount code %s: %w", id, err)
	}

	return d, nil
}

func (r *discountRepository) FindByCode(ctx context.Context, eventID uuid.UUID, code string) (*entity.DiscountCode, error) {
	query := `SELECT ` + discountColumns + ` FROM discount_codes WHERE event_id = $1 AND upper(code) = upper($2)`

	d, err := scanDiscount(r.db.QueryRow(ctx, query, eventID, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find discount code by code", zap.Error(err), zap.String("code", code))
		return nil, fmt.Errorf("find discount code %s: %w", code, err)
	}

	return d, nil
}

func (r *discountRepository) CompareAndSetUsed(ctx context.Context, id uuid.UUID, expectedVersion int64, used int) error {
	query := `
		UPDATE discount_codes
		SET used_count = GREATEST($3, 0), version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND (max_uses IS NULL OR $3 <= max_uses)
	`

	result, err := r.db.Exec(ctx, query, id, expectedVersion, used)
	if err != nil {
		r.log.Error("Failed to write discount usage", zap.Error(err), zap.String("id", id.String()))
		return fmt.Errorf("set discount usage %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	return nil
}

type referralRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReferralRepository(db database.PgxIface, log *zap.Logger) ReferralRepository {
	return &referralRepository{
		db:  db,
		log: log.With(zap.String("repository", "referral")),
	}
}

const referralColumns = `id, event_id, staff_id, code, commission_percent, tickets_sold,
	commission_earned, is_active, version, created_at, updated_at`

func scanReferral(row rowScanner) (*entity.ReferralCode, error) {
	var c entity.ReferralCode
	err := row.Scan(
		&c.ID,
		&c.EventID,
		&c.StaffID,
		&c.Code,
		&c.CommissionPercent,
		&c.TicketsSold,
		&c.CommissionEarned,
		&c.IsActive,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *referralRepository) Create(ctx context.Context, c *entity.ReferralCode) error {
	query := `
		INSERT INTO referral_codes (` + referralColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.EventID,
		c.StaffID,
		c.Code,
		c.CommissionPercent,
		c.TicketsSold,
		c.CommissionEarned,
		c.IsActive,
		c.Version,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		r.log.Error("Failed to create referral code", zap.Error(err), zap.String("code", c.Code))
		return fmt.Errorf("create referral code %s: %w", c.Code, err)
	}

	return nil
}

func (r *referralRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ReferralCode, error) {
	query := `SELECT ` + referralColumns + ` FROM referral_codes WHERE id = $1`

	c, err := scanReferral(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find referral code", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("find referral code %s: %w", id, err)
	}

	return c, nil
}

func (r *referralRepository) FindByCode(ctx context.Context, eventID uuid.UUID, code string) (*entity.ReferralCode, error) {
	query := `SELECT ` + referralColumns + ` FROM referral_codes WHERE event_id = $1 AND upper(code) = upper($2)`

	c, err := scanReferral(r.db.QueryRow(ctx, query, eventID, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find referral code by code", zap.Error(err), zap.String("code", code))
		return nil, fmt.Errorf("find referral code %s: %w", code, err)
	}

	return c, nil
}

func (r *referralRepository) CompareAndSetSales(ctx context.Context, id uuid.UUID, expectedVersion int64, ticketsSold int, commission decimal.Decimal) error {
	query := `
		UPDATE referral_codes
		SET tickets_sold = $3, commission_earned = $4, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.Exec(ctx, query, id, expectedVersion, ticketsSold, commission)
	if err != nil {
		r.log.Error("Failed to write referral sales", zap.Error(err), zap.String("id", id.String()))
		return fmt.Errorf("set referral sales %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	return nil
}
