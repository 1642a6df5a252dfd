package indicator

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"aquicultura/internal/audit"
	"aquicultura/internal/project"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/sentinel"
	"aquicultura/pkg/platform/tx"
	"aquicultura/pkg/requestcontext"
)

// Auditor is the slice of the audit service the indicator service needs.
type Auditor interface {
	Record(ctx context.Context, rec audit.Record) (*audit.Entry, error)
}

// ProjectDirectory confirms a parent project exists before an indicator is
// attached to it. The project store satisfies this.
type ProjectDirectory interface {
	FindByID(ctx context.Context, projetoID int64) (*project.Projeto, error)
}

// Service owns indicator rules. Every mutation and its audit entry share one
// unit of work.
type Service struct {
	store    Store
	auditor  Auditor
	runner   tx.Runner
	projects ProjectDirectory
}

func NewService(store Store, auditor Auditor, runner tx.Runner, projects ProjectDirectory) *Service {
	return &Service{store: store, auditor: auditor, runner: runner, projects: projects}
}

// CreateInput carries the fields for a new indicator.
type CreateInput struct {
	ProjetoID         int64     `json:"projeto_id"`
	Nome              string    `json:"nome"`
	Unidade           string    `json:"unidade"`
	Meta              float64   `json:"meta"`
	ValorActual       float64   `json:"valor_actual"`
	PeriodoReferencia Trimestre `json:"periodo_referencia"`
	FonteDados        string    `json:"fonte_dados"`
}

// UpdateInput carries optional fields; nil means unchanged.
type UpdateInput struct {
	Nome              *string    `json:"nome"`
	Unidade           *string    `json:"unidade"`
	Meta              *float64   `json:"meta"`
	ValorActual       *float64   `json:"valor_actual"`
	PeriodoReferencia *Trimestre `json:"periodo_referencia"`
	FonteDados        *string    `json:"fonte_dados"`
}

func (s *Service) Create(ctx context.Context, actor *models.User, in CreateInput) (*Indicador, error) {
	switch {
	case in.ProjetoID <= 0:
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "projeto_id is required")
	case in.Nome == "" || in.Unidade == "" || in.FonteDados == "":
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "nome, unidade and fonte_dados are required")
	case in.Meta <= 0:
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "meta must be positive")
	case in.ValorActual < 0:
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "valor_actual must not be negative")
	case !in.PeriodoReferencia.Valid():
		return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown periodo_referencia %q", in.PeriodoReferencia))
	}

	if s.projects != nil {
		if _, err := s.projects.FindByID(ctx, in.ProjetoID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, domainerrors.New(domainerrors.CodeNotFound, "project not found")
			}
			return nil, err
		}
	}

	ind := &Indicador{
		ProjetoID:         in.ProjetoID,
		Nome:              in.Nome,
		Unidade:           in.Unidade,
		Meta:              in.Meta,
		ValorActual:       in.ValorActual,
		PeriodoReferencia: in.PeriodoReferencia,
		FonteDados:        in.FonteDados,
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, ind); err != nil {
			return err
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     actorID(actor),
			Papel:      actorRole(actor),
			Acao:       audit.ActionCreate,
			Entidade:   "Indicador",
			EntidadeID: &ind.ID,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   fmt.Sprintf("Created indicator %s for project %d", ind.Nome, ind.ProjetoID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return ind, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Indicador, error) {
	ind, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "indicator not found")
		}
		return nil, err
	}
	return ind, nil
}

func (s *Service) List(ctx context.Context, f Filter, skip, limit int) ([]Indicador, error) {
	return s.store.List(ctx, f, skip, limit)
}

func (s *Service) Update(ctx context.Context, actor *models.User, id int64, in UpdateInput) (*Indicador, error) {
	ind, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var changes []audit.FieldChange
	if in.Nome != nil {
		changes = audit.Changed(changes, "nome", ind.Nome, *in.Nome)
		ind.Nome = *in.Nome
	}
	if in.Unidade != nil {
		changes = audit.Changed(changes, "unidade", ind.Unidade, *in.Unidade)
		ind.Unidade = *in.Unidade
	}
	if in.Meta != nil {
		if *in.Meta <= 0 {
			return nil, domainerrors.New(domainerrors.CodeBadRequest, "meta must be positive")
		}
		changes = audit.Changed(changes, "meta", formatNum(ind.Meta), formatNum(*in.Meta))
		ind.Meta = *in.Meta
	}
	if in.ValorActual != nil {
		if *in.ValorActual < 0 {
			return nil, domainerrors.New(domainerrors.CodeBadRequest, "valor_actual must not be negative")
		}
		changes = audit.Changed(changes, "valor_actual", formatNum(ind.ValorActual), formatNum(*in.ValorActual))
		ind.ValorActual = *in.ValorActual
	}
	if in.PeriodoReferencia != nil {
		if !in.PeriodoReferencia.Valid() {
			return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown periodo_referencia %q", *in.PeriodoReferencia))
		}
		changes = audit.Changed(changes, "periodo_referencia", string(ind.PeriodoReferencia), string(*in.PeriodoReferencia))
		ind.PeriodoReferencia = *in.PeriodoReferencia
	}
	if in.FonteDados != nil {
		changes = audit.Changed(changes, "fonte_dados", ind.FonteDados, *in.FonteDados)
		ind.FonteDados = *in.FonteDados
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Update(ctx, ind); err != nil {
			return err
		}
		detalhes := fmt.Sprintf("Updated indicator %s", ind.Nome)
		if diff := audit.FormatChanges(changes); diff != "" {
			detalhes = fmt.Sprintf("Updated indicator %s (%s)", ind.Nome, diff)
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:     actorID(actor),
			Papel:      actorRole(actor),
			Acao:       audit.ActionUpdate,
			Entidade:   "Indicador",
			EntidadeID: &id,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   detalhes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return ind, nil
}

func (s *Service) Delete(ctx context.Context, actor *models.User, id int64) error {
	ind, err := s.Get(ctx, id)
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
			Entidade:   "Indicador",
			EntidadeID: &id,
			IP:         requestcontext.ClientIP(ctx),
			Detalhes:   fmt.Sprintf("Deleted indicator %s", ind.Nome),
		})
		return err
	})
}

// Stats returns the dashboard aggregate with every trimestre present and the
// execution percentage rounded to two decimals.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("indicator stats: %w", err)
	}
	for _, t := range Trimestres() {
		if _, ok := stats.PorTrimestre[t]; !ok {
			stats.PorTrimestre[t] = 0
		}
	}
	stats.ExecucaoMediaPercentual = math.Round(stats.ExecucaoMediaPercentual*100) / 100
	return stats, nil
}

const exportMaxRows = 10000

var csvHeader = []string{
	"ID", "Projeto ID", "Nome", "Unidade", "Meta", "Valor Actual", "Período de Referência", "Fonte de Dados",
}

// ExportCSV serializes indicators matching the filter, capped at
// exportMaxRows, and records one EXPORT entry.
func (s *Service) ExportCSV(ctx context.Context, actor *models.User, f Filter) ([]byte, error) {
	indicators, err := s.store.List(ctx, f, 0, exportMaxRows)
	if err != nil {
		return nil, fmt.Errorf("export indicators: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, ind := range indicators {
		row := []string{
			strconv.FormatInt(ind.ID, 10),
			strconv.FormatInt(ind.ProjetoID, 10),
			ind.Nome,
			ind.Unidade,
			formatNum(ind.Meta),
			formatNum(ind.ValorActual),
			string(ind.PeriodoReferencia),
			ind.FonteDados,
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
		Entidade: "Indicador",
		IP:       requestcontext.ClientIP(ctx),
		Detalhes: fmt.Sprintf("Exported %d indicators", len(indicators)),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var importHeader = []string{
	"Projeto ID", "Nome", "Unidade", "Meta", "Valor Actual", "Período de Referência", "Fonte de Dados",
}

// ImportCSV creates one indicator per data row, all inside a single
// transaction with one IMPORT entry. Any invalid row aborts the whole import.
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

	if s.projects != nil {
		seen := map[int64]bool{}
		for _, in := range inputs {
			if seen[in.ProjetoID] {
				continue
			}
			if _, err := s.projects.FindByID(ctx, in.ProjetoID); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return 0, domainerrors.New(domainerrors.CodeNotFound, fmt.Sprintf("project %d not found", in.ProjetoID))
				}
				return 0, err
			}
			seen[in.ProjetoID] = true
		}
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		for _, in := range inputs {
			ind := &Indicador{
				ProjetoID:         in.ProjetoID,
				Nome:              in.Nome,
				Unidade:           in.Unidade,
				Meta:              in.Meta,
				ValorActual:       in.ValorActual,
				PeriodoReferencia: in.PeriodoReferencia,
				FonteDados:        in.FonteDados,
			}
			if err := s.store.Create(ctx, ind); err != nil {
				return err
			}
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:   actorID(actor),
			Papel:    actorRole(actor),
			Acao:     audit.ActionImport,
			Entidade: "Indicador",
			IP:       requestcontext.ClientIP(ctx),
			Detalhes: fmt.Sprintf("Imported %d indicators", len(inputs)),
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

	projetoID, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return in, fmt.Errorf("invalid projeto id %q", row[0])
	}
	in.ProjetoID = projetoID
	in.Nome = row[1]
	in.Unidade = row[2]

	if in.Meta, err = strconv.ParseFloat(row[3], 64); err != nil {
		return in, fmt.Errorf("invalid meta %q", row[3])
	}
	if row[4] != "" {
		if in.ValorActual, err = strconv.ParseFloat(row[4], 64); err != nil {
			return in, fmt.Errorf("invalid valor actual %q", row[4])
		}
	}
	in.PeriodoReferencia = Trimestre(row[5])
	in.FonteDados = row[6]

	switch {
	case in.Nome == "" || in.Unidade == "" || in.FonteDados == "":
		return in, errors.New("nome, unidade and fonte_dados are required")
	case in.Meta <= 0:
		return in, errors.New("meta must be positive")
	case in.ValorActual < 0:
		return in, errors.New("valor_actual must not be negative")
	case !in.PeriodoReferencia.Valid():
		return in, fmt.Errorf("unknown periodo_referencia %q", in.PeriodoReferencia)
	}
	return in, nil
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

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
