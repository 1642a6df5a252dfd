package project

import "time"

// Tipo distinguishes community ponds from commercial operations.
type Tipo string

const (
	TipoComunitario Tipo = "COMUNITARIO"
	TipoEmpresarial Tipo = "EMPRESARIAL"
)

func Tipos() []Tipo {
	return []Tipo{TipoComunitario, TipoEmpresarial}
}

func (t Tipo) Valid() bool {
	return t == TipoComunitario || t == TipoEmpresarial
}

// Fonte is the funding source. Values mirror the programme names used by the
// ministry, hyphens included.
type Fonte string

const (
	FonteAFAP2   Fonte = "AFAP-2"
	FonteFADEPA  Fonte = "FADEPA"
	FonteFACRA   Fonte = "FACRA"
	FontePrivado Fonte = "PRIVADO"
)

func Fontes() []Fonte {
	return []Fonte{FonteAFAP2, FonteFADEPA, FonteFACRA, FontePrivado}
}

func (f Fonte) Valid() bool {
	switch f {
	case FonteAFAP2, FonteFADEPA, FonteFACRA, FontePrivado:
		return true
	}
	return false
}

// Estado is the project lifecycle state.
type Estado string

const (
	EstadoPlaneado   Estado = "PLANEADO"
	EstadoEmExecucao Estado = "EM_EXECUCAO"
	EstadoConcluido  Estado = "CONCLUIDO"
	EstadoSuspenso   Estado = "SUSPENSO"
)

func Estados() []Estado {
	return []Estado{EstadoPlaneado, EstadoEmExecucao, EstadoConcluido, EstadoSuspenso}
}

func (e Estado) Valid() bool {
	switch e {
	case EstadoPlaneado, EstadoEmExecucao, EstadoConcluido, EstadoSuspenso:
		return true
	}
	return false
}

// Projeto is one funded aquaculture project. Budget amounts are kwanzas.
type Projeto struct {
	ID                   int64      `json:"id"`
	Nome                 string     `json:"nome"`
	ProvinciaID          int64      `json:"provincia_id"`
	Tipo                 Tipo       `json:"tipo"`
	FonteFinanciamento   Fonte      `json:"fonte_financiamento"`
	Estado               Estado     `json:"estado"`
	Responsavel          string     `json:"responsavel"`
	OrcamentoPrevistoKz  float64    `json:"orcamento_previsto_kz"`
	OrcamentoExecutadoKz float64    `json:"orcamento_executado_kz"`
	DataInicioPrevista   time.Time  `json:"data_inicio_prevista"`
	DataFimPrevista      time.Time  `json:"data_fim_prevista"`
	Descricao            *string    `json:"descricao"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
}

// Filter narrows project listings. Fields are independently optional and
// combined with AND semantics. Search matches case-insensitive substrings of
// nome, responsavel and descricao.
type Filter struct {
	ProvinciaID *int64
	Tipo        Tipo
	Fonte       Fonte
	Estado      Estado
	Search      string
}

// Stats is the portfolio aggregate consumed by the dashboard. The enum maps
// always carry every member of their set, zero or not.
type Stats struct {
	TotalProjetos        int64            `json:"total_projetos"`
	PorEstado            map[Estado]int64 `json:"projetos_por_estado"`
	PorTipo              map[Tipo]int64   `json:"projetos_por_tipo"`
	PorFonte             map[Fonte]int64  `json:"projetos_por_fonte"`
	OrcamentoPrevistoKz  float64          `json:"orcamento_previsto_kz"`
	OrcamentoExecutadoKz float64          `json:"orcamento_executado_kz"`
}

// ProvinceStats is the per-province rollup behind the map view.
type ProvinceStats struct {
	Total                int64
	PorEstado            map[Estado]int64
	OrcamentoPrevistoKz  float64
	OrcamentoExecutadoKz float64
}
