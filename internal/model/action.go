package model

// ActionType is a CRUD operation proposed by the planner.
type ActionType string

// Action type constants.
const (
	ActionCreate ActionType = "create"
	ActionRead   ActionType = "read"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

// EntityKind identifies which business record an action operates on.
type EntityKind string

// Entity kind constants.
const (
	KindPayee    EntityKind = "payee"
	KindCategory EntityKind = "category"
)

// ActionPayload carries the typed data for a suggested action. Fields are
// populated according to the action's entity kind; the executor dispatches
// on (ActionType, EntityKind) and reads only the fields that apply.
type ActionPayload struct {
	Name        string       `json:"name,omitempty"`
	Email       string       `json:"email,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	Address     string       `json:"address,omitempty"`
	Category    string       `json:"category,omitempty"`
	Description string       `json:"description,omitempty"`
	Search      string       `json:"search,omitempty"`
	Type        CategoryType `json:"type,omitempty"`
	ID          int64        `json:"id,omitempty"`
}

// SuggestedAction is a single CRUD operation proposed by the planner. It is
// never persisted; it is either executed immediately or surfaced to the user
// for confirmation.
type SuggestedAction struct {
	ID          string        `json:"id"`
	Type        ActionType    `json:"type"`
	Entity      EntityKind    `json:"entity"`
	Description string        `json:"description"`
	Payload     ActionPayload `json:"data"`
}

// ResponsePlan is the planner's output: a natural-language message, zero or
// more proposed actions, and the confidence-gated execution decision.
type ResponsePlan struct {
	Message              string            `json:"message"`
	Actions              []SuggestedAction `json:"actions"`
	Confidence           float64           `json:"confidence"`
	RequiresConfirmation bool              `json:"requiresConfirmation"`
}

// AutoExecutable reports whether the plan's actions may run without explicit
// user confirmation. The comparison is strictly greater than 0.8; this single
// threshold is the safety valve against destructive operations on uncertain
// input and must not be loosened.
func (p ResponsePlan) AutoExecutable() bool {
	return p.Confidence > 0.8 && !p.RequiresConfirmation
}

// ExecutedOperation is the per-action result of dispatching one suggested
// action to the store. One action's failure never affects its neighbors.
type ExecutedOperation struct {
	ActionID string     `json:"actionId"`
	Type     ActionType `json:"type"`
	Entity   EntityKind `json:"entity"`
	Error    string     `json:"error,omitempty"`
	Payee    *Payee     `json:"payee,omitempty"`
	Category *Category  `json:"category,omitempty"`
	Count    int        `json:"count,omitempty"`
	Success  bool       `json:"success"`
}
