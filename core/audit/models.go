package audit

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// Actions
const (
	ActionCreate   = "CREATE"
	ActionUpdate   = "UPDATE"
	ActionDelete   = "DELETE"
	ActionLogin    = "LOGIN"
	ActionLogout   = "LOGOUT"
	ActionExport   = "EXPORT"
	ActionImport   = "IMPORT"
	ActionPublish  = "PUBLISH"
	ActionPromote  = "PROMOTE"
	ActionRevise   = "REVISE"
	ActionGenerate = "GENERATE"
	ActionFinalize = "FINALIZE"
)

// Statuses
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

type Log struct {
	ID        string       `json:"id" db:"id"`
	SchoolID  null.String  `json:"school_id" db:"school_id"`
	UserID    null.String  `json:"user_id" db:"user_id"`
	Action    string       `json:"action" db:"action"`
	Module    string       `json:"module" db:"module"`
	Status    string       `json:"status" db:"status"`
	Details   core.JSONMap `json:"details" db:"details"`
	IPAddress string       `json:"ip_address" db:"ip_address"`
	UserAgent string       `json:"user_agent" db:"user_agent"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`

	// joined
	UserName null.String `json:"user_name" db:"user_name"`
}

type QueryFilter struct {
	SchoolID string
	UserID   string    `query:"user_id"`
	Module   string    `query:"module"`
	Action   string    `query:"action"`
	Status   string    `query:"status"`
	From     core.Date `query:"from"`
	To       core.Date `query:"to"` // inclusive
}
