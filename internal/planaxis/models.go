package planaxis

import "time"

// Periodo is the 18-month execution window an axis belongs to, in months.
type Periodo string

const (
	Periodo0a6   Periodo = "0-6"
	Periodo7a12  Periodo = "7-12"
	Periodo13a18 Periodo = "13-18"
)

// Periodos returns every period in chronological order.
func Periodos() []Periodo {
	return []Periodo{Periodo0a6, Periodo7a12, Periodo13a18}
}

func (p Periodo) Valid() bool {
	switch p {
	case Periodo0a6, Periodo7a12, Periodo13a18:
		return true
	}
	return false
}

// Eixo is one 5W2H planning axis of a project: what will be done, why,
// where, when, by whom, how, and at what cost, plus its milestones.
type Eixo struct {
	ID        int64      `json:"id"`
	ProjetoID int64      `json:"projeto_id"`
	What      string     `json:"what"`
	Why       string     `json:"why"`
	Where     string     `json:"where"`
	When      string     `json:"when"`
	Who       string     `json:"who"`
	How       string     `json:"how"`
	HowMuchKz float64    `json:"how_much_kz"`
	Marcos    []string   `json:"marcos"`
	Periodo   Periodo    `json:"periodo"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// Filter narrows axis listings. Zero values match everything.
type Filter struct {
	ProjetoID *int64
	Periodo   Periodo
	Search    string
}

// Stats is the planning dashboard aggregate.
type Stats struct {
	TotalEixos          int64               `json:"total_eixos"`
	PorPeriodo          map[Periodo]int64   `json:"por_periodo"`
	ProjetosComEixos    int64               `json:"projetos_com_eixos"`
	OrcamentoPorPeriodo map[Periodo]float64 `json:"orcamento_por_periodo"`
}
