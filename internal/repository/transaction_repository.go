package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jwlee-kr/danjilink/api/internal/database"
	"github.com/jwlee-kr/danjilink/api/internal/models"
)

// TransactionRepository defines data access for sale and lease transactions.
// Every method takes the transaction kind and routes to the matching table;
// the two tables are structurally parallel for the columns accessed here.
type TransactionRepository interface {
	// GetByID fetches a single transaction as the engine's kind-neutral view.
	// Returns nil, nil if the transaction does not exist (not an error).
	GetByID(ctx context.Context, kind models.TransactionKind, id int64) (*models.TransactionRecord, error)

	// ListUnmatched returns unmatched transactions for display, bounded by
	// limit. Previously failed rows sort after fresh ones but stay included.
	ListUnmatched(ctx context.Context, kind models.TransactionKind, limit int) ([]models.TransactionRecord, error)

	// ListUnmatchedAfter returns unmatched transactions with id > afterID in
	// id order, bounded by limit. This is the keyset cursor the automatic
	// decision loop pages with, so rows rejected in one batch are not
	// rescored by the next.
	ListUnmatchedAfter(ctx context.Context, kind models.TransactionKind, afterID int64, limit int) ([]models.TransactionRecord, error)

	// BulkApplyMatch links every currently-unmatched transaction sharing the
	// sibling key (apt_name, region_code, legal_dong) to the given complex
	// and returns the number of rows updated. The complex_id IS NULL guard
	// makes re-runs and racing invocations idempotent: rows matched by a
	// concurrent run are skipped, never overwritten.
	BulkApplyMatch(ctx context.Context, kind models.TransactionKind, complexID int64, aptName, regionCode, legalDong string) (int64, error)

	// Unlink clears complex_id on a single transaction. It does not cascade
	// to siblings. Returns the number of rows updated (0 or 1).
	Unlink(ctx context.Context, kind models.TransactionKind, id int64) (int64, error)

	// SetMatchFailed sets or clears the match_failed flag on a single
	// transaction. Returns the number of rows updated (0 or 1).
	SetMatchFailed(ctx context.Context, kind models.TransactionKind, id int64, failed bool) (int64, error)
}

// transactionRepository is the concrete implementation of TransactionRepository.
type transactionRepository struct {
	db *database.Database
}

// NewTransactionRepository creates a new instance of TransactionRepository.
func NewTransactionRepository(db *database.Database) TransactionRepository {
	return &transactionRepository{
		db: db,
	}
}

// tableFor maps a transaction kind to its table name. The table name is
// interpolated into SQL, so it must come from this whitelist and never from
// user input directly.
func tableFor(kind models.TransactionKind) (string, error) {
	switch kind {
	case models.KindSale:
		return "sale_transactions", nil
	case models.KindLease:
		return "lease_transactions", nil
	default:
		return "", fmt.Errorf("unknown transaction kind %q", kind)
	}
}

const transactionColumns = `
	id,
	apt_name,
	region_code,
	legal_dong,
	jibun,
	complex_id,
	match_failed
`

func (r *transactionRepository) GetByID(ctx context.Context, kind models.TransactionKind, id int64) (*models.TransactionRecord, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, transactionColumns, table)

	tx, err := scanTransaction(r.db.Pool.QueryRow(ctx, query, id), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query %s transaction %d: %w", kind, id, err)
	}
	return tx, nil
}

func (r *transactionRepository) ListUnmatched(ctx context.Context, kind models.TransactionKind, limit int) ([]models.TransactionRecord, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	// match_failed ASC puts not-yet-failed rows first; failed rows remain
	// listed and actionable, just deprioritized.
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE complex_id IS NULL
		ORDER BY match_failed ASC, id ASC
		LIMIT $1
	`, transactionColumns, table)

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unmatched %s transactions: %w", kind, err)
	}
	defer rows.Close()

	return collectTransactions(rows, kind)
}

func (r *transactionRepository) ListUnmatchedAfter(ctx context.Context, kind models.TransactionKind, afterID int64, limit int) ([]models.TransactionRecord, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE complex_id IS NULL AND id > $1
		ORDER BY id ASC
		LIMIT $2
	`, transactionColumns, table)

	rows, err := r.db.Pool.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to page unmatched %s transactions after %d: %w", kind, afterID, err)
	}
	defer rows.Close()

	return collectTransactions(rows, kind)
}

func (r *transactionRepository) BulkApplyMatch(ctx context.Context, kind models.TransactionKind, complexID int64, aptName, regionCode, legalDong string) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET complex_id = $1, updated_at = now()
		WHERE complex_id IS NULL
		  AND apt_name = $2
		  AND region_code = $3
		  AND legal_dong = $4
	`, table)

	tag, err := r.db.Pool.Exec(ctx, query, complexID, aptName, regionCode, legalDong)
	if err != nil {
		return 0, fmt.Errorf("failed to apply complex %d to %s transactions (%s, %s, %s): %w",
			complexID, kind, aptName, regionCode, legalDong, err)
	}
	return tag.RowsAffected(), nil
}

func (r *transactionRepository) Unlink(ctx context.Context, kind models.TransactionKind, id int64) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET complex_id = NULL, updated_at = now()
		WHERE id = $1
	`, table)

	tag, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("failed to unlink %s transaction %d: %w", kind, id, err)
	}
	return tag.RowsAffected(), nil
}

func (r *transactionRepository) SetMatchFailed(ctx context.Context, kind models.TransactionKind, id int64, failed bool) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET match_failed = $1, updated_at = now()
		WHERE id = $2
	`, table)

	tag, err := r.db.Pool.Exec(ctx, query, failed, id)
	if err != nil {
		return 0, fmt.Errorf("failed to set match_failed=%t on %s transaction %d: %w", failed, kind, id, err)
	}
	return tag.RowsAffected(), nil
}

// scanTransaction scans one transaction row in transactionColumns order.
func scanTransaction(row pgx.Row, kind models.TransactionKind) (*models.TransactionRecord, error) {
	var tx models.TransactionRecord
	err := row.Scan(
		&tx.ID,
		&tx.AptName,
		&tx.RegionCode,
		&tx.LegalDong,
		&tx.Jibun,
		&tx.ComplexID,
		&tx.MatchFailed,
	)
	if err != nil {
		return nil, err
	}
	tx.Kind = kind
	return &tx, nil
}

func collectTransactions(rows pgx.Rows, kind models.TransactionKind) ([]models.TransactionRecord, error) {
	results := []models.TransactionRecord{}
	for rows.Next() {
		tx, err := scanTransaction(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		results = append(results, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return results, nil
}
