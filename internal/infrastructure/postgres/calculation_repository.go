package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
	"github.com/jhoicas/oraculo-icms/internal/domain/repository"
)

var _ repository.CalculationRunRepository = (*CalculationRepo)(nil)

// CalculationRepo corridas de cálculo en calculation_runs. Los resultados por línea,
// con su memória, se guardan como JSONB.
type CalculationRepo struct {
	q Querier
}

// NewCalculationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCalculationRepository(q Querier) *CalculationRepo {
	return &CalculationRepo{q: q}
}

// Create persiste la corrida; asigna ID y CreatedAt si vienen vacíos.
func (r *CalculationRepo) Create(ctx context.Context, run *icmsst.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	results, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	var document []byte
	if run.Document != nil {
		if document, err = json.Marshal(run.Document); err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO calculation_runs (id, company_id, user_id, origin_uf, destination_uf, use_multiplier,
			rules_version, access_key, document, results, item_count, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		run.ID, run.CompanyID, nullIfEmpty(run.UserID), run.OriginUF, run.DestinationUF, run.UseMultiplier,
		nullIfEmpty(run.RulesVersion), nullIfEmpty(accessKey(run.Document)), document, results,
		len(run.Results), run.Total, run.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("calculation run %s already exists: %w", run.ID, err)
		}
		return fmt.Errorf("insert calculation run: %w", err)
	}
	return nil
}

// GetByID devuelve la corrida completa o nil si no existe.
func (r *CalculationRepo) GetByID(ctx context.Context, id string) (*icmsst.Run, error) {
	var (
		run      icmsst.Run
		userID   *string
		version  *string
		document []byte
		results  []byte
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, company_id, user_id, origin_uf, destination_uf, use_multiplier, rules_version,
			document, results, item_count, total, created_at
		FROM calculation_runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.CompanyID, &userID, &run.OriginUF, &run.DestinationUF, &run.UseMultiplier, &version,
		&document, &results, &run.ItemCount, &run.Total, &run.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get calculation run: %w", err)
	}
	if userID != nil {
		run.UserID = *userID
	}
	if version != nil {
		run.RulesVersion = *version
	}
	if len(document) > 0 {
		run.Document = &entity.NFeHeader{}
		if err := json.Unmarshal(document, run.Document); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
	}
	if err := json.Unmarshal(results, &run.Results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	return &run, nil
}

// ListByCompany corridas de la empresa sin resultados, más recientes primero.
func (r *CalculationRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]icmsst.Run, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM calculation_runs WHERE company_id = $1`, companyID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count calculation runs: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, origin_uf, destination_uf, use_multiplier, COALESCE(rules_version, ''),
			COALESCE(access_key, ''), item_count, total, created_at
		FROM calculation_runs
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, companyID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list calculation runs: %w", err)
	}
	defer rows.Close()

	var out []icmsst.Run
	for rows.Next() {
		var (
			run icmsst.Run
			key string
		)
		if err := rows.Scan(&run.ID, &run.OriginUF, &run.DestinationUF, &run.UseMultiplier, &run.RulesVersion,
			&key, &run.ItemCount, &run.Total, &run.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan calculation run: %w", err)
		}
		run.CompanyID = companyID
		if key != "" {
			run.Document = &entity.NFeHeader{AccessKey: key}
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list calculation runs: %w", err)
	}
	return out, total, nil
}

func accessKey(h *entity.NFeHeader) string {
	if h == nil {
		return ""
	}
	return h.AccessKey
}
