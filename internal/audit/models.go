package audit

import "time"

// Action is the closed set of audited action kinds. Values are stored
// verbatim in the audit_logs table and surfaced unchanged in the API.
type Action string

const (
	ActionLogin        Action = "LOGIN"
	ActionLogout       Action = "LOGOUT"
	ActionCreate       Action = "CREATE"
	ActionUpdate       Action = "UPDATE"
	ActionDelete       Action = "DELETE"
	ActionImport       Action = "IMPORT"
	ActionExport       Action = "EXPORT"
	ActionStatusChange Action = "STATUS_CHANGE"
)

// Actions returns every member of the closed action set, in a stable order.
// Stats iterates this so each kind appears in the output even at zero.
func Actions() []Action {
	return []Action{
		ActionLogin,
		ActionLogout,
		ActionCreate,
		ActionUpdate,
		ActionDelete,
		ActionImport,
		ActionExport,
		ActionStatusChange,
	}
}

// Valid reports whether a is a member of the closed action set.
func (a Action) Valid() bool {
	switch a {
	case ActionLogin, ActionLogout, ActionCreate, ActionUpdate,
		ActionDelete, ActionImport, ActionExport, ActionStatusChange:
		return true
	}
	return false
}

// Entry is one immutable audit record. Once written it is never updated or
// deleted through application paths. UserID is nil for system actions; Papel
// snapshots the actor's role at action time so later role changes do not
// rewrite history.
type Entry struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"user_id"`
	Papel      *string   `json:"papel"`
	Acao       Action    `json:"acao"`
	Entidade   *string   `json:"entidade"`
	EntidadeID *int64    `json:"entidade_id"`
	IP         *string   `json:"ip"`
	Timestamp  time.Time `json:"timestamp"`
	Detalhes   *string   `json:"detalhes"`
}

// Record is the input for appending one entry. Zero-value optionals are
// persisted as NULL.
type Record struct {
	UserID     *int64
	Papel      string
	Acao       Action
	Entidade   string
	EntidadeID *int64
	IP         string
	Detalhes   string
}

// Filter narrows list, count and export queries. Fields are independently
// optional and combined with AND semantics. From/To are inclusive. Search
// matches case-insensitive substrings of detalhes, entidade and acao.
type Filter struct {
	UserID   *int64
	Acao     Action
	Entidade string
	From     *time.Time
	To       *time.Time
	Search   string
}

// ActorActivity is one row of the top-actors aggregate.
type ActorActivity struct {
	UserID     int64 `json:"user_id"`
	TotalAcoes int64 `json:"total_acoes"`
}

// Stats is the aggregate view served to the dashboard. PorAcao always carries
// every action kind; PorEntidade carries each distinct non-null entity seen.
type Stats struct {
	TotalLogs          int64            `json:"total_logs"`
	PorAcao            map[Action]int64 `json:"por_acao"`
	PorEntidade        map[string]int64 `json:"por_entidade"`
	UsuariosMaisAtivos []ActorActivity  `json:"usuarios_mais_ativos"`
}
