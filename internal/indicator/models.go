package indicator

import "time"

// Trimestre is the quarterly reference period.
type Trimestre string

const (
	T1 Trimestre = "T1"
	T2 Trimestre = "T2"
	T3 Trimestre = "T3"
	T4 Trimestre = "T4"
)

func Trimestres() []Trimestre {
	return []Trimestre{T1, T2, T3, T4}
}

func (t Trimestre) Valid() bool {
	switch t {
	case T1, T2, T3, T4:
		return true
	}
	return false
}

// Indicador tracks one measurable result of a project, e.g. tonnes produced
// or families reached.
type Indicador struct {
	ID                int64      `json:"id"`
	ProjetoID         int64      `json:"projeto_id"`
	Nome              string     `json:"nome"`
	Unidade           string     `json:"unidade"`
	Meta              float64    `json:"meta"`
	ValorActual       float64    `json:"valor_actual"`
	PeriodoReferencia Trimestre  `json:"periodo_referencia"`
	FonteDados        string     `json:"fonte_dados"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// Filter narrows indicator listings. Search matches case-insensitive
// substrings of nome and fonte_dados.
type Filter struct {
	ProjetoID *int64
	Periodo   Trimestre
	Search    string
}

// Stats is the indicator aggregate consumed by the dashboard.
// ExecucaoMediaPercentual is total valor_actual over total meta.
type Stats struct {
	TotalIndicadores        int64               `json:"total_indicadores"`
	PorTrimestre            map[Trimestre]int64 `json:"indicadores_por_trimestre"`
	ExecucaoMediaPercentual float64             `json:"execucao_media_percentual"`
}
