package province

import "time"

// Provincia is reference data. The 21 provinces are seeded at schema creation
// and never mutated through the API.
type Provincia struct {
	ID        int64      `json:"id"`
	Nome      string     `json:"nome"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Coordenadas is an approximate map anchor for a province.
type Coordenadas struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// EstadoCounts breaks a province's projects down by lifecycle state.
type EstadoCounts struct {
	Planeado   int64 `json:"planeado"`
	EmExecucao int64 `json:"em_execucao"`
	Concluido  int64 `json:"concluido"`
	Suspenso   int64 `json:"suspenso"`
}

// MapEntry is one province on the dashboard map: project distribution, budget
// execution and a display color derived from the dominant state.
type MapEntry struct {
	ID                   int64        `json:"id"`
	Nome                 string       `json:"nome"`
	TotalProjetos        int64        `json:"total_projetos"`
	Estatisticas         EstadoCounts `json:"estatisticas"`
	OrcamentoTotalKz     float64      `json:"orcamento_total_kz"`
	OrcamentoExecutadoKz float64      `json:"orcamento_executado_kz"`
	ExecucaoPercentual   float64      `json:"execucao_percentual"`
	Cor                  string       `json:"cor"`
	Coordenadas          Coordenadas  `json:"coordenadas"`
}

// coordenadas anchors each province on the Angola map. Unknown names fall
// back to the country centroid.
var coordenadas = map[string]Coordenadas{
	"Bengo":          {Lat: -8.5, Lng: 13.5},
	"Benguela":       {Lat: -12.5, Lng: 13.4},
	"Bié":            {Lat: -12.8, Lng: 17.4},
	"Cabinda":        {Lat: -5.6, Lng: 12.2},
	"Cuando Cubango": {Lat: -16.0, Lng: 18.0},
	"Cuanza Norte":   {Lat: -9.0, Lng: 14.5},
	"Cuanza Sul":     {Lat: -10.0, Lng: 15.0},
	"Cunene":         {Lat: -16.0, Lng: 15.0},
	"Huambo":         {Lat: -12.8, Lng: 15.7},
	"Huíla":          {Lat: -14.9, Lng: 14.9},
	"Icolo e Bengo":  {Lat: -8.5, Lng: 13.5},
	"Luanda":         {Lat: -8.8, Lng: 13.2},
	"Lunda Norte":    {Lat: -8.0, Lng: 20.0},
	"Lunda Sul":      {Lat: -10.0, Lng: 20.0},
	"Malanje":        {Lat: -9.5, Lng: 16.0},
	"Moxico":         {Lat: -11.0, Lng: 20.0},
	"Moxico Leste":   {Lat: -11.0, Lng: 22.0},
	"Namibe":         {Lat: -15.2, Lng: 12.2},
	"Uíge":           {Lat: -7.6, Lng: 15.0},
	"Zaire":          {Lat: -6.0, Lng: 12.0},
	"Zaire Sul":      {Lat: -6.5, Lng: 12.5},
}

// CoordenadasFor returns the map anchor for a province name.
func CoordenadasFor(nome string) Coordenadas {
	if c, ok := coordenadas[nome]; ok {
		return c
	}
	return Coordenadas{Lat: -12.0, Lng: 17.0}
}
