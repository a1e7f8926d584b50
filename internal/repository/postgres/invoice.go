package postgres

import (
	"context"
	"database/sql"
	"errors"

	"invoicer/internal/domain"
	apperrors "invoicer/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type InvoiceRepository struct {
	db *sqlx.DB
}

func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, account_id, original_amount, original_currency,
			exchange_rate, converted_amount, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.AccountID, inv.OriginalAmount, inv.OriginalCurrency,
		inv.ExchangeRate, inv.ConvertedAmount, inv.Status,
		inv.CreatedAt, inv.UpdatedAt,
	)
	return apperrors.Wrap(err, "failed to create invoice")
}

func (r *InvoiceRepository) Update(ctx context.Context, inv *domain.Invoice) error {
	query := `
		UPDATE invoices
		SET original_amount = $2, original_currency = $3, exchange_rate = $4,
		    converted_amount = $5, status = $6, updated_at = $7
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.OriginalAmount, inv.OriginalCurrency,
		inv.ExchangeRate, inv.ConvertedAmount, inv.Status, inv.UpdatedAt,
	)
	return apperrors.Wrap(err, "failed to update invoice")
}

func (r *InvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	query := `SELECT * FROM invoices WHERE id = $1`

	err := r.db.GetContext(ctx, &inv, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to find invoice")
	}

	return &inv, nil
}

func (r *InvoiceRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	query := `
		SELECT * FROM invoices
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	err := r.db.SelectContext(ctx, &invoices, query, accountID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list invoices")
	}

	return invoices, nil
}

func (r *InvoiceRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM invoices WHERE account_id = $1`

	err := r.db.GetContext(ctx, &count, query, accountID)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count invoices")
	}

	return count, nil
}

func (r *InvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete invoice")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.ErrInvoiceNotFound
	}
	return nil
}

// SumConvertedByAccount sums the stored converted amounts for an account.
// These carry the exchange rate in effect when each invoice was written, so
// the result is the historic-rate revenue total with no conversion calls.
func (r *InvoiceRepository) SumConvertedByAccount(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `
		SELECT COALESCE(SUM(converted_amount), 0) FROM invoices
		WHERE account_id = $1
	`

	err := r.db.GetContext(ctx, &total, query, accountID)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(err, "failed to sum converted amounts")
	}

	return total, nil
}

// GroupByCurrency returns one row per distinct original currency in the
// account's invoice set, with summed original amounts and invoice counts.
func (r *InvoiceRepository) GroupByCurrency(ctx context.Context, accountID uuid.UUID) ([]domain.CurrencyGroup, error) {
	var groups []domain.CurrencyGroup
	query := `
		SELECT original_currency, SUM(original_amount) AS total, COUNT(*) AS count
		FROM invoices
		WHERE account_id = $1
		GROUP BY original_currency
		ORDER BY original_currency
	`

	err := r.db.SelectContext(ctx, &groups, query, accountID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to group invoices by currency")
	}

	return groups, nil
}
