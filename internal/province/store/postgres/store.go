package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"aquicultura/internal/province"
	"aquicultura/pkg/platform/sentinel"
)

// Store reads provinces from PostgreSQL. The table is seed data; there is no
// write path.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) List(ctx context.Context) ([]province.Provincia, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nome, created_at, updated_at FROM provincias ORDER BY nome`)
	if err != nil {
		return nil, fmt.Errorf("query provinces: %w", err)
	}
	defer rows.Close()

	var provinces []province.Provincia
	for rows.Next() {
		p, err := scanProvince(rows)
		if err != nil {
			return nil, fmt.Errorf("scan province: %w", err)
		}
		provinces = append(provinces, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provinces: %w", err)
	}
	return provinces, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*province.Provincia, error) {
	p, err := scanProvince(s.db.QueryRowContext(ctx,
		`SELECT id, nome, created_at, updated_at FROM provincias WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find province: %w", err)
	}
	return p, nil
}

func (s *Store) NamesByID(ctx context.Context) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, nome FROM provincias`)
	if err != nil {
		return nil, fmt.Errorf("query province names: %w", err)
	}
	defer rows.Close()

	names := make(map[int64]string)
	for rows.Next() {
		var id int64
		var nome string
		if err := rows.Scan(&id, &nome); err != nil {
			return nil, fmt.Errorf("scan province name: %w", err)
		}
		names[id] = nome
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate province names: %w", err)
	}
	return names, nil
}

type provinceRow interface {
	Scan(dest ...any) error
}

func scanProvince(row provinceRow) (*province.Provincia, error) {
	var p province.Provincia
	var updatedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.Nome, &p.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		p.UpdatedAt = &updatedAt.Time
	}
	return &p, nil
}
