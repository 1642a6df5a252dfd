package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"aquicultura/internal/project"
	"aquicultura/pkg/platform/sentinel"
	txcontext "aquicultura/pkg/platform/tx"
)

// Store persists projects in PostgreSQL. Writes honor a transaction placed in
// context so mutations commit atomically with their audit entries.
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

const projectColumns = `id, nome, provincia_id, tipo, fonte_financiamento, estado, responsavel,
	orcamento_previsto_kz, orcamento_executado_kz, data_inicio_prevista, data_fim_prevista,
	descricao, created_at, updated_at`

func (s *Store) Create(ctx context.Context, p *project.Projeto) error {
	query := `
		INSERT INTO projetos (nome, provincia_id, tipo, fonte_financiamento, estado, responsavel,
			orcamento_previsto_kz, orcamento_executado_kz, data_inicio_prevista, data_fim_prevista, descricao)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err := s.execer(ctx).QueryRowContext(ctx, query,
		p.Nome,
		p.ProvinciaID,
		string(p.Tipo),
		string(p.FonteFinanciamento),
		string(p.Estado),
		p.Responsavel,
		p.OrcamentoPrevistoKz,
		p.OrcamentoExecutadoKz,
		p.DataInicioPrevista,
		p.DataFimPrevista,
		p.Descricao,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*project.Projeto, error) {
	query := `SELECT ` + projectColumns + ` FROM projetos WHERE id = $1`
	p, err := scanProject(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return p, nil
}

// whereClause builds the filter predicate shared by List and Count.
func whereClause(f project.Filter) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ProvinciaID != nil {
		conds = append(conds, "provincia_id = "+arg(*f.ProvinciaID))
	}
	if f.Tipo != "" {
		conds = append(conds, "tipo = "+arg(string(f.Tipo)))
	}
	if f.Fonte != "" {
		conds = append(conds, "fonte_financiamento = "+arg(string(f.Fonte)))
	}
	if f.Estado != "" {
		conds = append(conds, "estado = "+arg(string(f.Estado)))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conds = append(conds, fmt.Sprintf("(nome ILIKE %s OR responsavel ILIKE %s OR descricao ILIKE %s)", p, p, p))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) List(ctx context.Context, f project.Filter, skip, limit int) ([]project.Projeto, error) {
	where, args := whereClause(f)
	query := `SELECT ` + projectColumns + ` FROM projetos` + where +
		fmt.Sprintf(` ORDER BY id OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, skip, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []project.Projeto
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

func (s *Store) Count(ctx context.Context, f project.Filter) (int64, error) {
	where, args := whereClause(f)
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projetos`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return count, nil
}

func (s *Store) Update(ctx context.Context, p *project.Projeto) error {
	query := `
		UPDATE projetos
		SET nome = $1, provincia_id = $2, tipo = $3, fonte_financiamento = $4, estado = $5,
			responsavel = $6, orcamento_previsto_kz = $7, orcamento_executado_kz = $8,
			data_inicio_prevista = $9, data_fim_prevista = $10, descricao = $11, updated_at = NOW()
		WHERE id = $12`

	res, err := s.execer(ctx).ExecContext(ctx, query,
		p.Nome,
		p.ProvinciaID,
		string(p.Tipo),
		string(p.FonteFinanciamento),
		string(p.Estado),
		p.Responsavel,
		p.OrcamentoPrevistoKz,
		p.OrcamentoExecutadoKz,
		p.DataInicioPrevista,
		p.DataFimPrevista,
		p.Descricao,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return requireRow(res)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM projetos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return requireRow(res)
}

func (s *Store) Stats(ctx context.Context) (*project.Stats, error) {
	stats := &project.Stats{
		PorEstado: make(map[project.Estado]int64),
		PorTipo:   make(map[project.Tipo]int64),
		PorFonte:  make(map[project.Fonte]int64),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(orcamento_previsto_kz), 0), COALESCE(SUM(orcamento_executado_kz), 0)
		FROM projetos`).
		Scan(&stats.TotalProjetos, &stats.OrcamentoPrevistoKz, &stats.OrcamentoExecutadoKz)
	if err != nil {
		return nil, fmt.Errorf("aggregate projects: %w", err)
	}

	if err := s.groupCount(ctx, "estado", func(key string, count int64) {
		stats.PorEstado[project.Estado(key)] = count
	}); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, "tipo", func(key string, count int64) {
		stats.PorTipo[project.Tipo(key)] = count
	}); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, "fonte_financiamento", func(key string, count int64) {
		stats.PorFonte[project.Fonte(key)] = count
	}); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) groupCount(ctx context.Context, column string, collect func(key string, count int64)) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s, COUNT(*) FROM projetos GROUP BY %s`, column, column))
	if err != nil {
		return fmt.Errorf("aggregate by %s: %w", column, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan %s aggregate: %w", column, err)
		}
		collect(key, count)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s aggregate: %w", column, err)
	}
	return nil
}

func (s *Store) ProvinceRollup(ctx context.Context) (map[int64]project.ProvinceStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provincia_id, estado, COUNT(*),
			COALESCE(SUM(orcamento_previsto_kz), 0), COALESCE(SUM(orcamento_executado_kz), 0)
		FROM projetos
		GROUP BY provincia_id, estado`)
	if err != nil {
		return nil, fmt.Errorf("aggregate by province: %w", err)
	}
	defer rows.Close()

	rollup := make(map[int64]project.ProvinceStats)
	for rows.Next() {
		var provinciaID, count int64
		var estado string
		var previsto, executado float64
		if err := rows.Scan(&provinciaID, &estado, &count, &previsto, &executado); err != nil {
			return nil, fmt.Errorf("scan province aggregate: %w", err)
		}

		ps, ok := rollup[provinciaID]
		if !ok {
			ps = project.ProvinceStats{PorEstado: make(map[project.Estado]int64)}
		}
		ps.Total += count
		ps.PorEstado[project.Estado(estado)] += count
		ps.OrcamentoPrevistoKz += previsto
		ps.OrcamentoExecutadoKz += executado
		rollup[provinciaID] = ps
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate province aggregate: %w", err)
	}
	return rollup, nil
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

type projectRow interface {
	Scan(dest ...any) error
}

func scanProject(row projectRow) (*project.Projeto, error) {
	var p project.Projeto
	var tipo, fonte, estado string
	var descricao sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(&p.ID, &p.Nome, &p.ProvinciaID, &tipo, &fonte, &estado, &p.Responsavel,
		&p.OrcamentoPrevistoKz, &p.OrcamentoExecutadoKz, &p.DataInicioPrevista, &p.DataFimPrevista,
		&descricao, &p.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.Tipo = project.Tipo(tipo)
	p.FonteFinanciamento = project.Fonte(fonte)
	p.Estado = project.Estado(estado)
	if descricao.Valid {
		p.Descricao = &descricao.String
	}
	if updatedAt.Valid {
		p.UpdatedAt = &updatedAt.Time
	}
	return &p, nil
}
