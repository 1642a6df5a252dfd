// Package dashboard aggregates the per-context statistics into the single
// payload the frontend dashboard renders.
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"aquicultura/internal/audit"
	"aquicultura/internal/indicator"
	"aquicultura/internal/licensing"
	"aquicultura/internal/planaxis"
	"aquicultura/internal/project"
	"aquicultura/internal/province"
	"aquicultura/internal/user/models"
)

type ProjectStats interface {
	Stats(ctx context.Context) (*project.Stats, error)
}

type IndicatorStats interface {
	Stats(ctx context.Context) (*indicator.Stats, error)
}

type LicensingStats interface {
	Stats(ctx context.Context) (*licensing.Stats, error)
}

type PlanStats interface {
	Stats(ctx context.Context) (*planaxis.Stats, error)
}

type ProvinceMap interface {
	Map(ctx context.Context) ([]province.MapEntry, error)
}

type AuditStats interface {
	Stats(ctx context.Context) (*audit.Stats, error)
}

// Resumo is the headline strip at the top of the dashboard.
type Resumo struct {
	TotalProjetos           int64 `json:"total_projetos"`
	ProjetosAtivos          int64 `json:"projetos_ativos"`
	TotalProvinciasCobertas int   `json:"total_provincias_cobertas"`
	TotalIndicadores        int64 `json:"total_indicadores"`
	LicencasAprovadas       int64 `json:"licencas_aprovadas"`
	LicencasPendentes       int64 `json:"licencas_pendentes"`
}

// Overview is the aggregated dashboard payload. Auditoria is only filled for
// ROOT principals.
type Overview struct {
	Projetos       *project.Stats      `json:"projetos"`
	Indicadores    *indicator.Stats    `json:"indicadores"`
	Licenciamentos *licensing.Stats    `json:"licenciamentos"`
	Eixos          *planaxis.Stats     `json:"eixos_5w2h"`
	Mapa           []province.MapEntry `json:"mapa"`
	Auditoria      *audit.Stats        `json:"auditoria,omitempty"`
	Resumo         Resumo              `json:"resumo"`
}

// Service fans the stats queries out to every context and stitches the
// results together.
type Service struct {
	projects   ProjectStats
	indicators IndicatorStats
	licences   LicensingStats
	plans      PlanStats
	provinces  ProvinceMap
	audits     AuditStats
}

func NewService(projects ProjectStats, indicators IndicatorStats, licences LicensingStats, plans PlanStats, provinces ProvinceMap, audits AuditStats) *Service {
	return &Service{
		projects:   projects,
		indicators: indicators,
		licences:   licences,
		plans:      plans,
		provinces:  provinces,
		audits:     audits,
	}
}

func (s *Service) Overview(ctx context.Context, actor *models.User) (*Overview, error) {
	var overview Overview

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.projects.Stats(ctx)
		overview.Projetos = stats
		return err
	})
	g.Go(func() error {
		stats, err := s.indicators.Stats(ctx)
		overview.Indicadores = stats
		return err
	})
	g.Go(func() error {
		stats, err := s.licences.Stats(ctx)
		overview.Licenciamentos = stats
		return err
	})
	g.Go(func() error {
		stats, err := s.plans.Stats(ctx)
		overview.Eixos = stats
		return err
	})
	g.Go(func() error {
		entries, err := s.provinces.Map(ctx)
		overview.Mapa = entries
		return err
	})
	if actor != nil && actor.Role == models.RoleRoot {
		g.Go(func() error {
			stats, err := s.audits.Stats(ctx)
			overview.Auditoria = stats
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var covered int
	for _, entry := range overview.Mapa {
		if entry.TotalProjetos > 0 {
			covered++
		}
	}
	overview.Resumo = Resumo{
		TotalProjetos:           overview.Projetos.TotalProjetos,
		ProjetosAtivos:          overview.Projetos.PorEstado[project.EstadoEmExecucao],
		TotalProvinciasCobertas: covered,
		TotalIndicadores:        overview.Indicadores.TotalIndicadores,
		LicencasAprovadas:       overview.Licenciamentos.PorStatus[licensing.StatusAprovado],
		LicencasPendentes:       overview.Licenciamentos.PorStatus[licensing.StatusPendente],
	}
	return &overview, nil
}
