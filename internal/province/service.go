package province

import (
	"context"
	"errors"
	"math"

	"aquicultura/internal/project"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/sentinel"
)

// ProjectRollup supplies per-province project aggregates for the map view.
// The project store implements this.
type ProjectRollup interface {
	ProvinceRollup(ctx context.Context) (map[int64]project.ProvinceStats, error)
}

// Service serves the province reference data and the dashboard map
// projection.
type Service struct {
	store    Store
	projects ProjectRollup
}

func NewService(store Store, projects ProjectRollup) *Service {
	return &Service{store: store, projects: projects}
}

func (s *Service) List(ctx context.Context) ([]Provincia, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*Provincia, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "province not found")
		}
		return nil, err
	}
	return p, nil
}

// Map returns one entry per province with its project distribution. Provinces
// without projects still appear so the map renders the whole country.
func (s *Service) Map(ctx context.Context) ([]MapEntry, error) {
	provinces, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	rollup, err := s.projects.ProvinceRollup(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]MapEntry, 0, len(provinces))
	for _, p := range provinces {
		stats := rollup[p.ID]
		counts := EstadoCounts{
			Planeado:   stats.PorEstado[project.EstadoPlaneado],
			EmExecucao: stats.PorEstado[project.EstadoEmExecucao],
			Concluido:  stats.PorEstado[project.EstadoConcluido],
			Suspenso:   stats.PorEstado[project.EstadoSuspenso],
		}

		var execucao float64
		if stats.OrcamentoPrevistoKz > 0 {
			execucao = math.Round(stats.OrcamentoExecutadoKz/stats.OrcamentoPrevistoKz*10000) / 100
		}

		entries = append(entries, MapEntry{
			ID:                   p.ID,
			Nome:                 p.Nome,
			TotalProjetos:        stats.Total,
			Estatisticas:         counts,
			OrcamentoTotalKz:     stats.OrcamentoPrevistoKz,
			OrcamentoExecutadoKz: stats.OrcamentoExecutadoKz,
			ExecucaoPercentual:   execucao,
			Cor:                  mapColor(counts),
			Coordenadas:          CoordenadasFor(p.Nome),
		})
	}
	return entries, nil
}

// mapColor picks the display color from the dominant state, in the fixed
// precedence the frontend expects.
func mapColor(c EstadoCounts) string {
	switch {
	case c.EmExecucao > 0:
		return "blue"
	case c.Concluido > 0:
		return "green"
	case c.Suspenso > 0:
		return "red"
	case c.Planeado > 0:
		return "yellow"
	default:
		return "gray"
	}
}
