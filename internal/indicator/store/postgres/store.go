package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"aquicultura/internal/indicator"
	"aquicultura/pkg/platform/sentinel"
	txcontext "aquicultura/pkg/platform/tx"
)

// Store persists indicators in PostgreSQL.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const indicatorColumns = `id, projeto_id, nome, unidade, meta, valor_actual, periodo_referencia,
	fonte_dados, created_at, updated_at`

func (s *Store) Create(ctx context.Context, ind *indicator.Indicador) error {
	query := `
		INSERT INTO indicadores (projeto_id, nome, unidade, meta, valor_actual, periodo_referencia, fonte_dados)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := s.execer(ctx).QueryRowContext(ctx, query,
		ind.ProjetoID,
		ind.Nome,
		ind.Unidade,
		ind.Meta,
		ind.ValorActual,
		string(ind.PeriodoReferencia),
		ind.FonteDados,
	).Scan(&ind.ID, &ind.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert indicator: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*indicator.Indicador, error) {
	query := `SELECT ` + indicatorColumns + ` FROM indicadores WHERE id = $1`
	ind, err := scanIndicator(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find indicator: %w", err)
	}
	return ind, nil
}

func whereClause(f indicator.Filter) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ProjetoID != nil {
		conds = append(conds, "projeto_id = "+arg(*f.ProjetoID))
	}
	if f.Periodo != "" {
		conds = append(conds, "periodo_referencia = "+arg(string(f.Periodo)))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conds = append(conds, fmt.Sprintf("(nome ILIKE %s OR fonte_dados ILIKE %s)", p, p))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) List(ctx context.Context, f indicator.Filter, skip, limit int) ([]indicator.Indicador, error) {
	where, args := whereClause(f)
	query := `SELECT ` + indicatorColumns + ` FROM indicadores` + where +
		fmt.Sprintf(` ORDER BY id OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, skip, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query indicators: %w", err)
	}
	defer rows.Close()

	var indicators []indicator.Indicador
	for rows.Next() {
		ind, err := scanIndicator(rows)
		if err != nil {
			return nil, fmt.Errorf("scan indicator: %w", err)
		}
		indicators = append(indicators, *ind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate indicators: %w", err)
	}
	return indicators, nil
}

func (s *Store) Count(ctx context.Context, f indicator.Filter) (int64, error) {
	where, args := whereClause(f)
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM indicadores`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count indicators: %w", err)
	}
	return count, nil
}

func (s *Store) Update(ctx context.Context, ind *indicator.Indicador) error {
	query := `
		UPDATE indicadores
		SET projeto_id = $1, nome = $2, unidade = $3, meta = $4, valor_actual = $5,
			periodo_referencia = $6, fonte_dados = $7, updated_at = NOW()
		WHERE id = $8`

	res, err := s.execer(ctx).ExecContext(ctx, query,
		ind.ProjetoID,
		ind.Nome,
		ind.Unidade,
		ind.Meta,
		ind.ValorActual,
		string(ind.PeriodoReferencia),
		ind.FonteDados,
		ind.ID,
	)
	if err != nil {
		return fmt.Errorf("update indicator: %w", err)
	}
	return requireRow(res)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM indicadores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete indicator: %w", err)
	}
	return requireRow(res)
}

func (s *Store) Stats(ctx context.Context) (*indicator.Stats, error) {
	stats := &indicator.Stats{PorTrimestre: make(map[indicator.Trimestre]int64)}

	var totalMeta, totalActual float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(meta), 0), COALESCE(SUM(valor_actual), 0) FROM indicadores`).
		Scan(&stats.TotalIndicadores, &totalMeta, &totalActual)
	if err != nil {
		return nil, fmt.Errorf("aggregate indicators: %w", err)
	}
	if totalMeta > 0 {
		stats.ExecucaoMediaPercentual = totalActual / totalMeta * 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT periodo_referencia, COUNT(*) FROM indicadores GROUP BY periodo_referencia`)
	if err != nil {
		return nil, fmt.Errorf("aggregate by trimestre: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var periodo string
		var count int64
		if err := rows.Scan(&periodo, &count); err != nil {
			return nil, fmt.Errorf("scan trimestre aggregate: %w", err)
		}
		stats.PorTrimestre[indicator.Trimestre(periodo)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trimestre aggregate: %w", err)
	}
	return stats, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type indicatorRow interface {
	Scan(dest ...any) error
}

func scanIndicator(row indicatorRow) (*indicator.Indicador, error) {
	var ind indicator.Indicador
	var periodo string
	var updatedAt sql.NullTime

	err := row.Scan(&ind.ID, &ind.ProjetoID, &ind.Nome, &ind.Unidade, &ind.Meta, &ind.ValorActual,
		&periodo, &ind.FonteDados, &ind.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	ind.PeriodoReferencia = indicator.Trimestre(periodo)
	if updatedAt.Valid {
		ind.UpdatedAt = &updatedAt.Time
	}
	return &ind, nil
}
