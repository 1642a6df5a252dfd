package project

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"aquicultura/internal/audit"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/sentinel"
	"aquicultura/pkg/platform/tx"
	"aquicultura/pkg/requestcontext"
)

const (
	exportMaxRows = 10000
	csvDateLayout = "2006-01-02"
)

// Auditor is the slice of the audit service the project service needs.
type Auditor interface {
	Record(ctx context.Context, rec audit.Record) (*audit.Entry, error)
}

// ProvinceDirectory resolves province names for the CSV export.
type ProvinceDirectory interface {
	NamesByID(ctx context.Context) (map[int64]string, error)
}

// Service owns the project portfolio rules. Every mutation and its audit
// entry share one unit of work.
type Service struct {
	store     Store
	auditor   Auditor
	runner    tx.Runner
	provinces ProvinceDirectory
}

func NewService(store Store, auditor Auditor, runner tx.Runner, provinces ProvinceDirectory) *Service {
	return &Service{store: store, auditor: auditor, runner: runner, provinces: provinces}
}

// CreateInput carries the fields for a new project.
type CreateInput struct {
	Nome                 string    `json:"nome"`
	ProvinciaID          int64     `json:"provincia_id"`
	Tipo                 Tipo      `json:"tipo"`
	FonteFinanciamento   Fonte     `json:"fonte_financiamento"`
	Estado               Estado    `json:"estado"`
	Responsavel          string    `json:"responsavel"`
	OrcamentoPrevistoKz  float64   `json:"orcamento_previsto_kz"`
	OrcamentoExecutadoKz float64   `json:"orcamento_executado_kz"`
	DataInicioPrevista   time.Time `json:"data_inicio_prevista"`
	DataFimPrevista      time.Time `json:"data_fim_prevista"`
	Descricao            *string   `json:"descricao"`
}

func (in CreateInput) validate() error {
	switch {
	case in.Nome == "":
		return domainerrors.New(domainerrors.CodeBadRequest, "nome is required")
	case in.ProvinciaID <= 0:
		return domainerrors.New(domainerrors.CodeBadRequest, "provincia_id is required")
	case !in.Tipo.Valid():
		return domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown tipo %q", in.Tipo))
	case !in.FonteFinanciamento.Valid():
		return domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown fonte_financiamento %q", in.FonteFinanciamento))
	case in.Responsavel == "":
		return domainerrors.New(domainerrors.CodeBadRequest, "responsavel is required")
	case in.OrcamentoPrevistoKz < 0 || in.OrcamentoExecutadoKz < 0:
		return domainerrors.New(domainerrors.CodeBadRequest, "orcamento must not be negative")
	case in.DataInicioPrevista.IsZero() || in.DataFimPrevista.IsZero():
		return domainerrors.New(domainerrors.CodeBadRequest, "data_inicio_prevista and data_fim_prevista are required")
	case in.DataFimPrevista.Before(in.DataInicioPrevista):
		return domainerrors.New(domainerrors.CodeBadRequest, "data_fim_prevista precedes data_inicio_prevista")
	}
	return nil
}

// UpdateInput carries optional fields; nil means unchanged.
type UpdateInput struct {
	Nome                 *string    `json:"nome"`
	ProvinciaID          *int64     `json:"provincia_id"`
	Tipo                 *Tipo      `json:"tipo"`
	FonteFinanciamento   *Fonte     `json:"fonte_financiamento"`
	Estado               *Estado    `json:"estado"`
	Responsavel          *string    `json:"responsavel"`
	OrcamentoPrevistoKz  *float64   `json:"orcamento_previsto_kz"`
	OrcamentoExecutadoKz *float64   `json:"orcamento_executado_kz"`
	DataInicioPrevista   *time.Time `json:"data_inicio_prevista"`
	DataFimPrevista      *time.Time `json:"data_fim_prevista"`
	Descricao            *string    `json:"descricao"`
}

func (s *Service) Create(ctx context.Context, actor *models.User, in CreateInput) (*Projeto, error) {
	if in.Estado == "" {
		in.Estado = EstadoPlaneado
	}
	if !in.Estado.Valid() {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown estado %q", in.Estado))
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &Projeto{
		Nome:                 in.Nome,
		ProvinciaID:          in.ProvinciaID,
		Tipo:                 in.Tipo,
		FonteFinanciamento:   in.FonteFinanciamento,
		Estado:               in.Estado,
		Responsavel:          in.Responsavel,
		OrcamentoPrevistoKz:  in.OrcamentoPrevistoKz,
		OrcamentoExecutadoKz: in.OrcamentoExecutadoKz,
		DataInicioPrevista:   in.DataInicioPrevista,
		DataFimPrevista:      in.DataFimPrevista,
		Descricao:            in.Descricao,
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, p); err != nil {
			return err
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     actorID(actor),
			Papel:      actorRole(actor),
			Acao:       audit.ActionCreate,
			Entidade:   "Projeto",
			EntidadeID: &p.ID,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   fmt.Sprintf("Created project %s", p.Nome),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Projeto, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "project not found")
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, f Filter, skip, limit int) ([]Projeto, error) {
	return s.store.List(ctx, f, skip, limit)
}

func (s *Service) Count(ctx context.Context, f Filter) (int64, error) {
	return s.store.Count(ctx, f)
}

// Update applies the provided fields and records a single audit entry listing
// every changed field. An estado transition upgrades the entry to
// STATUS_CHANGE so the trail keeps both states.
func (s *Service) Update(ctx context.Context, actor *models.User, id int64, in UpdateInput) (*Projeto, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var changes []audit.FieldChange
	estadoChanged := false

	if in.Nome != nil {
		changes = audit.Changed(changes, "nome", p.Nome, *in.Nome)
		p.Nome = *in.Nome
	}
	if in.ProvinciaID != nil {
		changes = audit.Changed(changes, "provincia_id", formatInt(p.ProvinciaID), formatInt(*in.ProvinciaID))
		p.ProvinciaID = *in.ProvinciaID
	}
	if in.Tipo != nil {
		if !in.Tipo.Valid() {
			return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown tipo %q", *in.Tipo))
		}
		changes = audit.Changed(changes, "tipo", string(p.Tipo), string(*in.Tipo))
		p.Tipo = *in.Tipo
	}
	if in.FonteFinanciamento != nil {
		if !in.FonteFinanciamento.Valid() {
			return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown fonte_financiamento %q", *in.FonteFinanciamento))
		}
		changes = audit.Changed(changes, "fonte_financiamento", string(p.FonteFinanciamento), string(*in.FonteFinanciamento))
		p.FonteFinanciamento = *in.FonteFinanciamento
	}
	if in.Estado != nil {
		if !in.Estado.Valid() {
			return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown estado %q", *in.Estado))
		}
		if p.Estado != *in.Estado {
			estadoChanged = true
			changes = audit.Changed(changes, "estado", string(p.Estado), string(*in.Estado))
			p.Estado = *in.Estado
		}
	}
	if in.Responsavel != nil {
		changes = audit.Changed(changes, "responsavel", p.Responsavel, *in.Responsavel)
		p.Responsavel = *in.Responsavel
	}
	if in.OrcamentoPrevistoKz != nil {
		changes = audit.Changed(changes, "orcamento_previsto_kz", formatKz(p.OrcamentoPrevistoKz), formatKz(*in.OrcamentoPrevistoKz))
		p.OrcamentoPrevistoKz = *in.OrcamentoPrevistoKz
	}
	if in.OrcamentoExecutadoKz != nil {
		changes = audit.Changed(changes, "orcamento_executado_kz", formatKz(p.OrcamentoExecutadoKz), formatKz(*in.OrcamentoExecutadoKz))
		p.OrcamentoExecutadoKz = *in.OrcamentoExecutadoKz
	}
	if in.DataInicioPrevista != nil {
		changes = audit.Changed(changes, "data_inicio_prevista", p.DataInicioPrevista.Format(csvDateLayout), in.DataInicioPrevista.Format(csvDateLayout))
		p.DataInicioPrevista = *in.DataInicioPrevista
	}
	if in.DataFimPrevista != nil {
		changes = audit.Changed(changes, "data_fim_prevista", p.DataFimPrevista.Format(csvDateLayout), in.DataFimPrevista.Format(csvDateLayout))
		p.DataFimPrevista = *in.DataFimPrevista
	}
	if in.Descricao != nil {
		changes = audit.Changed(changes, "descricao", deref(p.Descricao), *in.Descricao)
		p.Descricao = in.Descricao
	}

	action := audit.ActionUpdate
	if estadoChanged {
		action = audit.ActionStatusChange
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Update(ctx, p); err != nil {
			return err
		}
		detalhes := fmt.Sprintf("Updated project %s", p.Nome)
		if diff := audit.FormatChanges(changes); diff != "" {
			detalhes = fmt.Sprintf("Updated project %s (%s)", p.Nome, diff)
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     actorID(actor),
			Papel:      actorRole(actor),
			Acao:       action,
			Entidade:   "Projeto",
			EntidadeID: &id,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   detalhes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, actor *models.User, id int64) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Delete(ctx, id); err != nil {
			return err
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     actorID(actor),
			Papel:      actorRole(actor),
			Acao:       audit.ActionDelete,
			Entidade:   "Projeto",
			EntidadeID: &id,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   fmt.Sprintf("Deleted project %s", p.Nome),
		})
		return err
	})
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("project stats: %w", err)
	}
	for _, estado := range Estados() {
		if _, ok := stats.PorEstado[estado]; !ok {
			stats.PorEstado[estado] = 0
		}
	}
	for _, tipo := range Tipos() {
		if _, ok := stats.PorTipo[tipo]; !ok {
			stats.PorTipo[tipo] = 0
		}
	}
	for _, fonte := range Fontes() {
		if _, ok := stats.PorFonte[fonte]; !ok {
			stats.PorFonte[fonte] = 0
		}
	}
	return stats, nil
}

var csvHeader = []string{
	"ID", "Nome", "Província", "Tipo", "Fonte de Financiamento", "Estado", "Responsável",
	"Orçamento Previsto (Kz)", "Orçamento Executado (Kz)", "Data Início Prevista", "Data Fim Prevista", "Descrição",
}

// ExportCSV serializes projects matching the filter, capped at exportMaxRows,
// and records one EXPORT entry.
func (s *Service) ExportCSV(ctx context.Context, actor *models.User, f Filter) ([]byte, error) {
	projects, err := s.store.List(ctx, f, 0, exportMaxRows)
	if err != nil {
		return nil, fmt.Errorf("export projects: %w", err)
	}

	names := map[int64]string{}
	if s.provinces != nil {
		names, err = s.provinces.NamesByID(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve province names: %w", err)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range projects {
		row := []string{
			formatInt(p.ID),
			p.Nome,
			names[p.ProvinciaID],
			string(p.Tipo),
			string(p.FonteFinanciamento),
			string(p.Estado),
			p.Responsavel,
			formatKz(p.OrcamentoPrevistoKz),
			formatKz(p.OrcamentoExecutadoKz),
			p.DataInicioPrevista.Format(csvDateLayout),
			p.DataFimPrevista.Format(csvDateLayout),
			deref(p.Descricao),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	_, err = s.auditor.Record(ctx, audit.Record{
		UserID:   actorID(actor),
		Papel:    actorRole(actor),
		Acao:     audit.ActionExport,
		Entidade: "Projeto",
		IP:       requestcontext.ClientIP(ctx),
		Detalhes: fmt.Sprintf("Exported %d projects", len(projects)),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var importHeader = []string{
	"Nome", "Provincia ID", "Tipo", "Fonte de Financiamento", "Estado", "Responsável",
	"Orçamento Previsto (Kz)", "Orçamento Executado (Kz)", "Data Início Prevista", "Data Fim Prevista", "Descrição",
}

// ImportCSV creates one project per data row, all inside a single transaction
// with one IMPORT entry. Any invalid row aborts the whole import.
func (s *Service) ImportCSV(ctx context.Context, actor *models.User, data []byte) (int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(importHeader)

	header, err := r.Read()
	if err != nil {
		return 0, domainerrors.New(domainerrors.CodeBadRequest, "empty or malformed CSV")
	}
	for i, want := range importHeader {
		if header[i] != want {
			return 0, domainerrors.New(domainerrors.CodeBadRequest,
				fmt.Sprintf("unexpected CSV header %q, want %q", header[i], want))
		}
	}

	var inputs []CreateInput
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("row %d: %v", line, err))
		}
		in, err := parseImportRow(row)
		if err != nil {
			return 0, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("row %d: %v", line, err))
		}
		inputs = append(inputs, in)
	}
	if len(inputs) == 0 {
		return 0, domainerrors.New(domainerrors.CodeBadRequest, "CSV contains no data rows")
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		for _, in := range inputs {
			p := &Projeto{
				Nome:                 in.Nome,
				ProvinciaID:          in.ProvinciaID,
				Tipo:                 in.Tipo,
				FonteFinanciamento:   in.FonteFinanciamento,
				Estado:               in.Estado,
				Responsavel:          in.Responsavel,
				OrcamentoPrevistoKz:  in.OrcamentoPrevistoKz,
				OrcamentoExecutadoKz: in.OrcamentoExecutadoKz,
				DataInicioPrevista:   in.DataInicioPrevista,
				DataFimPrevista:      in.DataFimPrevista,
				Descricao:            in.Descricao,
			}
			if err := s.store.Create(ctx, p); err != nil {
				return err
			}
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:   actorID(actor),
			Papel:    actorRole(actor),
			Acao:     audit.ActionImport,
			Entidade: "Projeto",
			IP:       requestcontext.ClientIP(ctx),
			Detalhes: fmt.Sprintf("Imported %d projects", len(inputs)),
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return len(inputs), nil
}

func parseImportRow(row []string) (CreateInput, error) {
	var in CreateInput
	in.Nome = row[0]

	provinciaID, err := strconv.ParseInt(row[1], 10, 64)
	if err != nil {
		return in, fmt.Errorf("invalid provincia id %q", row[1])
	}
	in.ProvinciaID = provinciaID
	in.Tipo = Tipo(row[2])
	in.FonteFinanciamento = Fonte(row[3])
	in.Estado = Estado(row[4])
	if in.Estado == "" {
		in.Estado = EstadoPlaneado
	}
	if !in.Estado.Valid() {
		return in, fmt.Errorf("unknown estado %q", row[4])
	}
	in.Responsavel = row[5]

	if in.OrcamentoPrevistoKz, err = strconv.ParseFloat(row[6], 64); err != nil {
		return in, fmt.Errorf("invalid orcamento previsto %q", row[6])
	}
	if row[7] != "" {
		if in.OrcamentoExecutadoKz, err = strconv.ParseFloat(row[7], 64); err != nil {
			return in, fmt.Errorf("invalid orcamento executado %q", row[7])
		}
	}
	if in.DataInicioPrevista, err = time.Parse(csvDateLayout, row[8]); err != nil {
		return in, fmt.Errorf("invalid data inicio %q", row[8])
	}
	if in.DataFimPrevista, err = time.Parse(csvDateLayout, row[9]); err != nil {
		return in, fmt.Errorf("invalid data fim %q", row[9])
	}
	if row[10] != "" {
		descricao := row[10]
		in.Descricao = &descricao
	}
	return in, in.validate()
}

func actorID(actor *models.User) *int64 {
	if actor == nil {
		return nil
	}
	return &actor.ID
}

func actorRole(actor *models.User) string {
	if actor == nil {
		return ""
	}
	return string(actor.Role)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatKz(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
