package licensing

import "time"

// StatusLicenciamento is the lifecycle state of a licence request.
type StatusLicenciamento string

const (
	StatusPendente  StatusLicenciamento = "PENDENTE"
	StatusEmAnalise StatusLicenciamento = "EM_ANALISE"
	StatusAprovado  StatusLicenciamento = "APROVADO"
	StatusNegado    StatusLicenciamento = "NEGADO"
)

// Statuses returns every status in a stable order.
func Statuses() []StatusLicenciamento {
	return []StatusLicenciamento{StatusPendente, StatusEmAnalise, StatusAprovado, StatusNegado}
}

func (s StatusLicenciamento) Valid() bool {
	switch s {
	case StatusPendente, StatusEmAnalise, StatusAprovado, StatusNegado:
		return true
	}
	return false
}

// Decided reports whether the status closes the request. A decided licence
// carries a decision date.
func (s StatusLicenciamento) Decided() bool {
	return s == StatusAprovado || s == StatusNegado
}

// EntidadeResponsavel is the government body that reviews the request.
type EntidadeResponsavel string

const (
	EntidadeIPA  EntidadeResponsavel = "IPA"
	EntidadeDNA  EntidadeResponsavel = "DNA"
	EntidadeDNRM EntidadeResponsavel = "DNRM"
)

func Entidades() []EntidadeResponsavel {
	return []EntidadeResponsavel{EntidadeIPA, EntidadeDNA, EntidadeDNRM}
}

func (e EntidadeResponsavel) Valid() bool {
	switch e {
	case EntidadeIPA, EntidadeDNA, EntidadeDNRM:
		return true
	}
	return false
}

// Licenciamento is a licence request attached to a project.
type Licenciamento struct {
	ID                  int64               `json:"id"`
	ProjetoID           int64               `json:"projeto_id"`
	Status              StatusLicenciamento `json:"status"`
	EntidadeResponsavel EntidadeResponsavel `json:"entidade_responsavel"`
	DataSubmissao       time.Time           `json:"data_submissao"`
	DataDecisao         *time.Time          `json:"data_decisao"`
	Observacoes         *string             `json:"observacoes"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           *time.Time          `json:"updated_at"`
}

// Filter narrows licence listings. Zero values match everything.
type Filter struct {
	ProjetoID *int64
	Status    StatusLicenciamento
	Entidade  EntidadeResponsavel
	Search    string
}

// Stats is the licensing dashboard aggregate.
type Stats struct {
	TotalLicenciamentos         int64                         `json:"total_licenciamentos"`
	PorStatus                   map[StatusLicenciamento]int64 `json:"por_status"`
	PorEntidade                 map[EntidadeResponsavel]int64 `json:"por_entidade"`
	TempoMedioProcessamentoDias float64                       `json:"tempo_medio_processamento_dias"`
	TaxaAprovacao               float64                       `json:"taxa_aprovacao"`
}
