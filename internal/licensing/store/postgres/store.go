package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"aquicultura/internal/licensing"
	"aquicultura/pkg/platform/sentinel"
	txcontext "aquicultura/pkg/platform/tx"
)

// Store persists licence requests in PostgreSQL.
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

const licenceColumns = `id, projeto_id, status, entidade_responsavel, data_submissao,
	data_decisao, observacoes, created_at, updated_at`

func (s *Store) Create(ctx context.Context, lic *licensing.Licenciamento) error {
	query := `
		INSERT INTO licenciamentos (projeto_id, status, entidade_responsavel, data_submissao, data_decisao, observacoes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := s.execer(ctx).QueryRowContext(ctx, query,
		lic.ProjetoID,
		string(lic.Status),
		string(lic.EntidadeResponsavel),
		lic.DataSubmissao,
		lic.DataDecisao,
		lic.Observacoes,
	).Scan(&lic.ID, &lic.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert licence: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*licensing.Licenciamento, error) {
	query := `SELECT ` + licenceColumns + ` FROM licenciamentos WHERE id = $1`
	lic, err := scanLicence(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find licence: %w", err)
	}
	return lic, nil
}

func whereClause(f licensing.Filter) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ProjetoID != nil {
		conds = append(conds, "projeto_id = "+arg(*f.ProjetoID))
	}
	if f.Status != "" {
		conds = append(conds, "status = "+arg(string(f.Status)))
	}
	if f.Entidade != "" {
		conds = append(conds, "entidade_responsavel = "+arg(string(f.Entidade)))
	}
	if f.Search != "" {
		conds = append(conds, "observacoes ILIKE "+arg("%"+f.Search+"%"))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) List(ctx context.Context, f licensing.Filter, skip, limit int) ([]licensing.Licenciamento, error) {
	where, args := whereClause(f)
	query := `SELECT ` + licenceColumns + ` FROM licenciamentos` + where +
		fmt.Sprintf(` ORDER BY id OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, skip, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query licences: %w", err)
	}
	defer rows.Close()

	var licences []licensing.Licenciamento
	for rows.Next() {
		lic, err := scanLicence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan licence: %w", err)
		}
		licences = append(licences, *lic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate licences: %w", err)
	}
	return licences, nil
}

func (s *Store) Count(ctx context.Context, f licensing.Filter) (int64, error) {
	where, args := whereClause(f)
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM licenciamentos`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count licences: %w", err)
	}
	return count, nil
}

func (s *Store) Update(ctx context.Context, lic *licensing.Licenciamento) error {
	query := `
		UPDATE licenciamentos
		SET projeto_id = $1, status = $2, entidade_responsavel = $3, data_submissao = $4,
			data_decisao = $5, observacoes = $6, updated_at = NOW()
		WHERE id = $7`

	res, err := s.execer(ctx).ExecContext(ctx, query,
		lic.ProjetoID,
		string(lic.Status),
		string(lic.EntidadeResponsavel),
		lic.DataSubmissao,
		lic.DataDecisao,
		lic.Observacoes,
		lic.ID,
	)
	if err != nil {
		return fmt.Errorf("update licence: %w", err)
	}
	return requireRow(res)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM licenciamentos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete licence: %w", err)
	}
	return requireRow(res)
}

func (s *Store) Stats(ctx context.Context) (*licensing.Stats, error) {
	stats := &licensing.Stats{
		PorStatus:   make(map[licensing.StatusLicenciamento]int64),
		PorEntidade: make(map[licensing.EntidadeResponsavel]int64),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(AVG(FLOOR(EXTRACT(EPOCH FROM (data_decisao - data_submissao)) / 86400)) FILTER (WHERE data_decisao IS NOT NULL), 0)
		FROM licenciamentos`).
		Scan(&stats.TotalLicenciamentos, &stats.TempoMedioProcessamentoDias)
	if err != nil {
		return nil, fmt.Errorf("aggregate licences: %w", err)
	}

	if err := s.groupStatus(ctx, stats); err != nil {
		return nil, err
	}
	if err := s.groupEntidade(ctx, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) groupStatus(ctx context.Context, stats *licensing.Stats) error {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM licenciamentos GROUP BY status`)
	if err != nil {
		return fmt.Errorf("aggregate by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return fmt.Errorf("scan status aggregate: %w", err)
		}
		stats.PorStatus[licensing.StatusLicenciamento(status)] = count
	}
	return rows.Err()
}

func (s *Store) groupEntidade(ctx context.Context, stats *licensing.Stats) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entidade_responsavel, COUNT(*) FROM licenciamentos GROUP BY entidade_responsavel`)
	if err != nil {
		return fmt.Errorf("aggregate by entidade: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var entidade string
		var count int64
		if err := rows.Scan(&entidade, &count); err != nil {
			return fmt.Errorf("scan entidade aggregate: %w", err)
		}
		stats.PorEntidade[licensing.EntidadeResponsavel(entidade)] = count
	}
	return rows.Err()
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

type licenceRow interface {
	Scan(dest ...any) error
}

func scanLicence(row licenceRow) (*licensing.Licenciamento, error) {
	var lic licensing.Licenciamento
	var status, entidade string
	var decisao, updatedAt sql.NullTime
	var observacoes sql.NullString

	err := row.Scan(&lic.ID, &lic.ProjetoID, &status, &entidade, &lic.DataSubmissao,
		&decisao, &observacoes, &lic.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	lic.Status = licensing.StatusLicenciamento(status)
	lic.EntidadeResponsavel = licensing.EntidadeResponsavel(entidade)
	if decisao.Valid {
		lic.DataDecisao = &decisao.Time
	}
	if observacoes.Valid {
		lic.Observacoes = &observacoes.String
	}
	if updatedAt.Valid {
		lic.UpdatedAt = &updatedAt.Time
	}
	return &lic, nil
}
