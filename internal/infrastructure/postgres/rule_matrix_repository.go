package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/domain/repository"
)

var _ repository.RuleMatrixRepository = (*RuleMatrixRepo)(nil)

// RuleMatrixRepo matrices de reglas en st_rule_tables / st_rule_rows.
// Las tasas se guardan en porcentaje (18 = 18%).
type RuleMatrixRepo struct {
	tx *TxRunner
}

// NewRuleMatrixRepository construye el adaptador.
func NewRuleMatrixRepository(tx *TxRunner) *RuleMatrixRepo {
	return &RuleMatrixRepo{tx: tx}
}

// LoadMatrices implementa la fuente de reglas del motor.
func (r *RuleMatrixRepo) LoadMatrices(ctx context.Context) (entity.Matrices, error) {
	return r.Load(ctx)
}

// Load lee todas las matrices en un único snapshot REPEATABLE READ.
func (r *RuleMatrixRepo) Load(ctx context.Context) (entity.Matrices, error) {
	var m entity.Matrices
	err := r.tx.RunSnapshot(ctx, func(q Querier) error {
		var err error
		m, err = loadMatrices(ctx, q)
		return err
	})
	if err != nil {
		return entity.Matrices{}, err
	}
	m.LoadedAt = time.Now()
	return m, nil
}

func loadMatrices(ctx context.Context, q Querier) (entity.Matrices, error) {
	var m entity.Matrices
	var newest time.Time

	rows, err := q.Query(ctx, `SELECT name, updated_at FROM st_rule_tables ORDER BY position, name`)
	if err != nil {
		return m, fmt.Errorf("list rule tables: %w", err)
	}
	index := map[string]int{}
	for rows.Next() {
		var name string
		var updated time.Time
		if err := rows.Scan(&name, &updated); err != nil {
			rows.Close()
			return m, fmt.Errorf("scan rule table: %w", err)
		}
		index[name] = len(m.Tables)
		m.Tables = append(m.Tables, entity.RuleTable{Name: name})
		if updated.After(newest) {
			newest = updated
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return m, fmt.Errorf("list rule tables: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT table_name, ncm, COALESCE(cest, ''), COALESCE(uf, ''), applies_st,
		       mva_percent, internal_rate_percent, multiplier_percent, credit_percent,
		       COALESCE(credit_type, ''), active, COALESCE(cfop_from, ''), COALESCE(cfop_to, ''),
		       cst_include, cst_exclude, COALESCE(segment, '')
		FROM st_rule_rows
		ORDER BY table_name, position, id`)
	if err != nil {
		return m, fmt.Errorf("list rule rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			tableName  string
			row        entity.RuleRow
			applies    *bool
			mva        decimal.NullDecimal
			internal   decimal.NullDecimal
			multiplier decimal.NullDecimal
			credit     decimal.NullDecimal
			creditType string
			active     bool
		)
		if err := rows.Scan(&tableName, &row.Code, &row.CEST, &row.UF, &applies,
			&mva, &internal, &multiplier, &credit,
			&creditType, &active, &row.CFOPFrom, &row.CFOPTo,
			&row.CSTInclude, &row.CSTExclude, &row.Segment,
		); err != nil {
			return m, fmt.Errorf("scan rule row: %w", err)
		}
		i, ok := index[tableName]
		if !ok {
			continue
		}
		row.Applies = applicabilityFromDB(applies)
		row.MVA = percentFromDB(mva)
		row.InternalRate = percentFromDB(internal)
		row.Multiplier = percentFromDB(multiplier)
		row.CreditRate = percentFromDB(credit)
		row.CreditType = entity.CreditType(creditType)
		row.Inactive = !active
		m.Tables[i].Rows = append(m.Tables[i].Rows, row)
	}
	if err := rows.Err(); err != nil {
		return m, fmt.Errorf("list rule rows: %w", err)
	}

	if !newest.IsZero() {
		m.Version = "db-" + newest.UTC().Format("20060102T150405Z")
	}
	return m, nil
}

// ReplaceTable sustituye todas las filas de la matriz en una transacción.
// Una matriz nueva queda al final del orden de búsqueda.
func (r *RuleMatrixRepo) ReplaceTable(ctx context.Context, table entity.RuleTable) error {
	return r.tx.Run(ctx, func(q Querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO st_rule_tables (name, position, updated_at)
			VALUES ($1, (SELECT COALESCE(MAX(position) + 1, 0) FROM st_rule_tables), now())
			ON CONFLICT (name) DO UPDATE SET updated_at = now()`, table.Name)
		if err != nil {
			return fmt.Errorf("upsert rule table %s: %w", table.Name, err)
		}
		if _, err := q.Exec(ctx, `DELETE FROM st_rule_rows WHERE table_name = $1`, table.Name); err != nil {
			return fmt.Errorf("delete rule rows %s: %w", table.Name, err)
		}
		if len(table.Rows) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, row := range table.Rows {
			batch.Queue(`
				INSERT INTO st_rule_rows (table_name, position, ncm, cest, uf, applies_st,
					mva_percent, internal_rate_percent, multiplier_percent, credit_percent,
					credit_type, active, cfop_from, cfop_to, cst_include, cst_exclude, segment)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
				table.Name, i, row.Code, nullIfEmpty(row.CEST), nullIfEmpty(row.UF), applicabilityToDB(row.Applies),
				percentToDB(row.MVA), percentToDB(row.InternalRate), percentToDB(row.Multiplier), percentToDB(row.CreditRate),
				nullIfEmpty(string(row.CreditType)), !row.Inactive, nullIfEmpty(row.CFOPFrom), nullIfEmpty(row.CFOPTo),
				row.CSTInclude, row.CSTExclude, nullIfEmpty(row.Segment),
			)
		}
		br := q.SendBatch(ctx, batch)
		for range table.Rows {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("insert rule rows %s: %w", table.Name, err)
			}
		}
		return br.Close()
	})
}

func applicabilityFromDB(v *bool) entity.Applicability {
	switch {
	case v == nil:
		return entity.ApplicabilityUnknown
	case *v:
		return entity.ApplicabilityYes
	default:
		return entity.ApplicabilityNo
	}
}

func applicabilityToDB(a entity.Applicability) *bool {
	var v bool
	switch a {
	case entity.ApplicabilityYes:
		v = true
	case entity.ApplicabilityNo:
		v = false
	default:
		return nil
	}
	return &v
}

func percentFromDB(v decimal.NullDecimal) *entity.Rate {
	if !v.Valid {
		return nil
	}
	r := entity.Percent(v.Decimal)
	return &r
}

func percentToDB(r *entity.Rate) decimal.NullDecimal {
	if r == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: r.Fraction().Shift(2), Valid: true}
}
