package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"aquicultura/internal/planaxis"
	"aquicultura/pkg/platform/sentinel"
	txcontext "aquicultura/pkg/platform/tx"
)

// Store persists 5W2H axes in PostgreSQL. Milestones live in a JSONB column.
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

// "where" and "when" are reserved words, so every 5W column is quoted.
const eixoColumns = `id, projeto_id, "what", "why", "where", "when", "who", "how",
	how_much_kz, marcos, periodo, created_at, updated_at`

func (s *Store) Create(ctx context.Context, eixo *planaxis.Eixo) error {
	marcos, err := marshalMarcos(eixo.Marcos)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO eixos_5w2h (projeto_id, "what", "why", "where", "when", "who", "how", how_much_kz, marcos, periodo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err = s.execer(ctx).QueryRowContext(ctx, query,
		eixo.ProjetoID,
		eixo.What,
		eixo.Why,
		eixo.Where,
		eixo.When,
		eixo.Who,
		eixo.How,
		eixo.HowMuchKz,
		marcos,
		string(eixo.Periodo),
	).Scan(&eixo.ID, &eixo.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert axis: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*planaxis.Eixo, error) {
	query := `SELECT ` + eixoColumns + ` FROM eixos_5w2h WHERE id = $1`
	eixo, err := scanEixo(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find axis: %w", err)
	}
	return eixo, nil
}

func whereClause(f planaxis.Filter) (string, []any) {
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
		conds = append(conds, "periodo = "+arg(string(f.Periodo)))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conds = append(conds, fmt.Sprintf(
			`("what" ILIKE %[1]s OR "why" ILIKE %[1]s OR "where" ILIKE %[1]s OR "who" ILIKE %[1]s OR "how" ILIKE %[1]s)`, p))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) List(ctx context.Context, f planaxis.Filter, skip, limit int) ([]planaxis.Eixo, error) {
	where, args := whereClause(f)
	query := `SELECT ` + eixoColumns + ` FROM eixos_5w2h` + where +
		fmt.Sprintf(` ORDER BY id OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, skip, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query axes: %w", err)
	}
	defer rows.Close()

	var eixos []planaxis.Eixo
	for rows.Next() {
		eixo, err := scanEixo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan axis: %w", err)
		}
		eixos = append(eixos, *eixo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate axes: %w", err)
	}
	return eixos, nil
}

func (s *Store) Count(ctx context.Context, f planaxis.Filter) (int64, error) {
	where, args := whereClause(f)
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM eixos_5w2h`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count axes: %w", err)
	}
	return count, nil
}

func (s *Store) Update(ctx context.Context, eixo *planaxis.Eixo) error {
	marcos, err := marshalMarcos(eixo.Marcos)
	if err != nil {
		return err
	}

	query := `
		UPDATE eixos_5w2h
		SET projeto_id = $1, "what" = $2, "why" = $3, "where" = $4, "when" = $5, "who" = $6,
			"how" = $7, how_much_kz = $8, marcos = $9, periodo = $10, updated_at = NOW()
		WHERE id = $11`

	res, err := s.execer(ctx).ExecContext(ctx, query,
		eixo.ProjetoID,
		eixo.What,
		eixo.Why,
		eixo.Where,
		eixo.When,
		eixo.Who,
		eixo.How,
		eixo.HowMuchKz,
		marcos,
		string(eixo.Periodo),
		eixo.ID,
	)
	if err != nil {
		return fmt.Errorf("update axis: %w", err)
	}
	return requireRow(res)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM eixos_5w2h WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete axis: %w", err)
	}
	return requireRow(res)
}

func (s *Store) Stats(ctx context.Context) (*planaxis.Stats, error) {
	stats := &planaxis.Stats{
		PorPeriodo:          make(map[planaxis.Periodo]int64),
		OrcamentoPorPeriodo: make(map[planaxis.Periodo]float64),
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT projeto_id) FROM eixos_5w2h`).
		Scan(&stats.TotalEixos, &stats.ProjetosComEixos)
	if err != nil {
		return nil, fmt.Errorf("aggregate axes: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT periodo, COUNT(*), COALESCE(SUM(how_much_kz), 0) FROM eixos_5w2h GROUP BY periodo`)
	if err != nil {
		return nil, fmt.Errorf("aggregate by periodo: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var periodo string
		var count int64
		var total float64
		if err := rows.Scan(&periodo, &count, &total); err != nil {
			return nil, fmt.Errorf("scan periodo aggregate: %w", err)
		}
		stats.PorPeriodo[planaxis.Periodo(periodo)] = count
		stats.OrcamentoPorPeriodo[planaxis.Periodo(periodo)] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate periodo aggregate: %w", err)
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

func marshalMarcos(marcos []string) ([]byte, error) {
	if marcos == nil {
		marcos = []string{}
	}
	data, err := json.Marshal(marcos)
	if err != nil {
		return nil, fmt.Errorf("marshal marcos: %w", err)
	}
	return data, nil
}

type eixoRow interface {
	Scan(dest ...any) error
}

func scanEixo(row eixoRow) (*planaxis.Eixo, error) {
	var eixo planaxis.Eixo
	var periodo string
	var marcos []byte
	var updatedAt sql.NullTime

	err := row.Scan(&eixo.ID, &eixo.ProjetoID, &eixo.What, &eixo.Why, &eixo.Where, &eixo.When,
		&eixo.Who, &eixo.How, &eixo.HowMuchKz, &marcos, &periodo, &eixo.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	eixo.Periodo = planaxis.Periodo(periodo)
	if len(marcos) > 0 {
		if err := json.Unmarshal(marcos, &eixo.Marcos); err != nil {
			return nil, fmt.Errorf("unmarshal marcos: %w", err)
		}
	}
	if updatedAt.Valid {
		eixo.UpdatedAt = &updatedAt.Time
	}
	return &eixo, nil
}
