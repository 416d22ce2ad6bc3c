package models

// NodeKind discriminates the node union. Exactly one of the kind-specific
// payload pointers on Node is set for a well-formed node.
type NodeKind string

const (
	NodeKindTrigger   NodeKind = "trigger"
	NodeKindAction    NodeKind = "action"
	NodeKindCondition NodeKind = "condition"
	NodeKindEnd       NodeKind = "end"
)

// TriggerType enumerates how a workflow run can be started.
type TriggerType string

const (
	TriggerTypeTime        TriggerType = "time-based"
	TriggerTypeEvent       TriggerType = "event-based"
	TriggerTypeConditional TriggerType = "conditional"
	TriggerTypeManual      TriggerType = "manual"
)

// Position is canvas placement only. It never participates in execution.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a vertex in the workflow graph.
type Node struct {
	ID       string    `json:"id"       validate:"required"`
	Kind     NodeKind  `json:"kind"     validate:"required"`
	Label    string    `json:"label"`
	Position *Position `json:"position,omitempty"`

	Trigger   *TriggerSpec   `json:"trigger,omitempty"`
	Action    *ActionSpec    `json:"action,omitempty"`
	Condition *ConditionSpec `json:"condition,omitempty"`
}

// TriggerSpec configures the workflow's entry point. Which fields are
// meaningful depends on Type: Cron for time-based, EventName/EventFilter for
// event-based, Expression for conditional. Manual triggers carry no config.
type TriggerSpec struct {
	Type        TriggerType `json:"type" validate:"required"`
	Cron        string      `json:"cron,omitempty"`
	EventName   string      `json:"event_name,omitempty"`
	EventFilter string      `json:"event_filter,omitempty"`
	Expression  string      `json:"expression,omitempty"`
}

// ActionSpec configures a side-effecting action node. String values in Config
// may contain {{variable}} placeholders resolved against the execution's
// variable context at dispatch time.
type ActionSpec struct {
	Type            string         `json:"type" validate:"required"`
	Config          map[string]any `json:"config,omitempty"`
	ContinueOnError bool           `json:"continue_on_error,omitempty"`
	TimeoutSeconds  int            `json:"timeout_seconds,omitempty"`
}

// ConditionSpec holds the boolean expression a condition node evaluates
// against the variable context to pick its true or false branch.
type ConditionSpec struct {
	Expression string `json:"expression" validate:"required"`
}

// Edge is a directed connection between two nodes. Branch is set to "true" or
// "false" only on edges leaving a condition node.
type Edge struct {
	ID     string `json:"id"     validate:"required"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Branch string `json:"branch,omitempty"`
}

const (
	BranchTrue  = "true"
	BranchFalse = "false"
)
