package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"aquicultura/internal/audit"
	"aquicultura/pkg/platform/sentinel"
	txcontext "aquicultura/pkg/platform/tx"
)

// Store persists audit entries in PostgreSQL. Writes honor a transaction
// placed in context so an entry commits atomically with the domain mutation
// that triggered it.
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

const entryColumns = `id, user_id, papel, acao, entidade, entidade_id, ip, "timestamp", detalhes`

// Append inserts one immutable entry. ID and timestamp are assigned by the
// database so concurrent writers cannot produce out-of-order inserts.
func (s *Store) Append(ctx context.Context, rec audit.Record) (*audit.Entry, error) {
	query := `
		INSERT INTO audit_logs (user_id, papel, acao, entidade, entidade_id, ip, detalhes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + entryColumns

	row := s.execer(ctx).QueryRowContext(ctx, query,
		rec.UserID,
		nullString(rec.Papel),
		string(rec.Acao),
		nullString(rec.Entidade),
		rec.EntidadeID,
		nullString(rec.IP),
		nullString(rec.Detalhes),
	)
	entry, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}
	return entry, nil
}

// whereClause builds the filter predicate shared by List, Count and the CSV
// export path. Keeping a single builder is what guarantees Count and List
// can never drift apart.
func whereClause(f audit.Filter) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.UserID != nil {
		conds = append(conds, "user_id = "+arg(*f.UserID))
	}
	if f.Acao != "" {
		conds = append(conds, "acao = "+arg(string(f.Acao)))
	}
	if f.Entidade != "" {
		conds = append(conds, "entidade = "+arg(f.Entidade))
	}
	if f.From != nil {
		conds = append(conds, `"timestamp" >= `+arg(*f.From))
	}
	if f.To != nil {
		conds = append(conds, `"timestamp" <= `+arg(*f.To))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conds = append(conds, fmt.Sprintf("(detalhes ILIKE %s OR entidade ILIKE %s OR acao ILIKE %s)", p, p, p))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) List(ctx context.Context, f audit.Filter, skip, limit int) ([]audit.Entry, error) {
	where, args := whereClause(f)
	query := `SELECT ` + entryColumns + ` FROM audit_logs` + where +
		fmt.Sprintf(` ORDER BY "timestamp" DESC, id DESC OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, skip, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func (s *Store) Count(ctx context.Context, f audit.Filter) (int64, error) {
	where, args := whereClause(f)
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*audit.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM audit_logs WHERE id = $1`
	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find audit entry: %w", err)
	}
	return entry, nil
}

func (s *Store) Stats(ctx context.Context) (*audit.Stats, error) {
	stats := &audit.Stats{
		PorAcao:     make(map[audit.Action]int64),
		PorEntidade: make(map[string]int64),
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&stats.TotalLogs); err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT acao, COUNT(*) FROM audit_logs GROUP BY acao`)
	if err != nil {
		return nil, fmt.Errorf("aggregate by action: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var acao string
		var count int64
		if err := rows.Scan(&acao, &count); err != nil {
			return nil, fmt.Errorf("scan action aggregate: %w", err)
		}
		stats.PorAcao[audit.Action(acao)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action aggregate: %w", err)
	}

	entityRows, err := s.db.QueryContext(ctx,
		`SELECT entidade, COUNT(*) FROM audit_logs WHERE entidade IS NOT NULL GROUP BY entidade`)
	if err != nil {
		return nil, fmt.Errorf("aggregate by entity: %w", err)
	}
	defer entityRows.Close()
	for entityRows.Next() {
		var entidade string
		var count int64
		if err := entityRows.Scan(&entidade, &count); err != nil {
			return nil, fmt.Errorf("scan entity aggregate: %w", err)
		}
		stats.PorEntidade[entidade] = count
	}
	if err := entityRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity aggregate: %w", err)
	}

	actorRows, err := s.db.QueryContext(ctx, `
		SELECT user_id, COUNT(*) AS total_acoes
		FROM audit_logs
		WHERE user_id IS NOT NULL
		GROUP BY user_id
		ORDER BY total_acoes DESC, user_id ASC
		LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("aggregate top actors: %w", err)
	}
	defer actorRows.Close()
	for actorRows.Next() {
		var activity audit.ActorActivity
		if err := actorRows.Scan(&activity.UserID, &activity.TotalAcoes); err != nil {
			return nil, fmt.Errorf("scan top actor: %w", err)
		}
		stats.UsuariosMaisAtivos = append(stats.UsuariosMaisAtivos, activity)
	}
	if err := actorRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top actors: %w", err)
	}

	return stats, nil
}

type entryRow interface {
	Scan(dest ...any) error
}

func scanEntry(row entryRow) (*audit.Entry, error) {
	var entry audit.Entry
	var papel, entidade, ip, detalhes sql.NullString
	var userID, entidadeID sql.NullInt64
	var acao string

	err := row.Scan(&entry.ID, &userID, &papel, &acao, &entidade, &entidadeID, &ip, &entry.Timestamp, &detalhes)
	if err != nil {
		return nil, err
	}

	entry.Acao = audit.Action(acao)
	if userID.Valid {
		entry.UserID = &userID.Int64
	}
	if papel.Valid {
		entry.Papel = &papel.String
	}
	if entidade.Valid {
		entry.Entidade = &entidade.String
	}
	if entidadeID.Valid {
		entry.EntidadeID = &entidadeID.Int64
	}
	if ip.Valid {
		entry.IP = &ip.String
	}
	if detalhes.Valid {
		entry.Detalhes = &detalhes.String
	}
	return &entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
