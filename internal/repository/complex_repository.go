package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jwlee-kr/danjilink/api/internal/database"
	"github.com/jwlee-kr/danjilink/api/internal/models"
)

// ComplexRepository defines read access to the canonical complex table.
// The matching engine never writes complex rows; ingestion owns them.
type ComplexRepository interface {
	// GetByID fetches a single complex.
	// Returns nil, nil if the complex does not exist (not an error).
	GetByID(ctx context.Context, id int64) (*models.Complex, error)

	// FindByLegalDong returns complexes whose legal_dong contains, or is
	// contained by, the given neighborhood name, bounded by limit.
	// Returns an empty slice if none match (not an error).
	FindByLegalDong(ctx context.Context, legalDong string, limit int) ([]models.Complex, error)

	// FindByRegionPrefix returns complexes whose region_code starts with the
	// given prefix (usually the 5-character sigungu code), bounded by limit.
	FindByRegionPrefix(ctx context.Context, prefix string, limit int) ([]models.Complex, error)

	// ListAll returns complexes without any geographic filter, bounded by
	// limit. Used as the recall fallback when filtered retrieval comes up empty.
	ListAll(ctx context.Context, limit int) ([]models.Complex, error)
}

// complexRepository is the concrete implementation of ComplexRepository.
type complexRepository struct {
	db *database.Database
}

// NewComplexRepository creates a new instance of ComplexRepository.
func NewComplexRepository(db *database.Database) ComplexRepository {
	return &complexRepository{
		db: db,
	}
}

const complexColumns = `
	id,
	complex_code,
	name,
	address,
	road_address,
	region_code,
	legal_dong,
	jibun,
	ho_cnt,
	created_at,
	updated_at
`

func (r *complexRepository) GetByID(ctx context.Context, id int64) (*models.Complex, error) {
	query := fmt.Sprintf(`SELECT %s FROM complexes WHERE id = $1`, complexColumns)

	c, err := scanComplex(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query complex %d: %w", id, err)
	}
	return c, nil
}

func (r *complexRepository) FindByLegalDong(ctx context.Context, legalDong string, limit int) ([]models.Complex, error) {
	// Containment in either direction: the feed reports "역삼동" where the
	// canonical row may carry "역삼1동", and vice versa.
	query := fmt.Sprintf(`
		SELECT %s
		FROM complexes
		WHERE legal_dong LIKE '%%' || $1 || '%%'
		   OR $1 LIKE '%%' || legal_dong || '%%'
		ORDER BY id
		LIMIT $2
	`, complexColumns)

	rows, err := r.db.Pool.Query(ctx, query, legalDong, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query complexes by legal_dong %q: %w", legalDong, err)
	}
	defer rows.Close()

	return collectComplexes(rows)
}

func (r *complexRepository) FindByRegionPrefix(ctx context.Context, prefix string, limit int) ([]models.Complex, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM complexes
		WHERE region_code LIKE $1 || '%%'
		ORDER BY id
		LIMIT $2
	`, complexColumns)

	rows, err := r.db.Pool.Query(ctx, query, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query complexes by region prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	return collectComplexes(rows)
}

func (r *complexRepository) ListAll(ctx context.Context, limit int) ([]models.Complex, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM complexes
		ORDER BY id
		LIMIT $1
	`, complexColumns)

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list complexes: %w", err)
	}
	defer rows.Close()

	return collectComplexes(rows)
}

// scanComplex scans one complex row in complexColumns order.
func scanComplex(row pgx.Row) (*models.Complex, error) {
	var c models.Complex
	err := row.Scan(
		&c.ID,
		&c.ComplexCode,
		&c.Name,
		&c.Address,
		&c.RoadAddress,
		&c.RegionCode,
		&c.LegalDong,
		&c.Jibun,
		&c.HoCnt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectComplexes(rows pgx.Rows) ([]models.Complex, error) {
	results := []models.Complex{}
	for rows.Next() {
		c, err := scanComplex(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan complex row: %w", err)
		}
		results = append(results, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating complex rows: %w", err)
	}
	return results, nil
}
