package actions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/protocol"
)

// TypeDelay and TypeWaitCondition are suspension points: the engine parks the
// execution as waiting instead of dispatching them, and the scheduler resumes
// it later. Their factories exist so the registry can validate and advertise
// their configuration like any other action type.
const (
	TypeDelay         = "delay"
	TypeWaitCondition = "wait-condition"
)

// ParseDelay extracts the delay duration from an action config. Both Go
// duration strings ("90s", "5m") and a numeric seconds value are accepted.
func ParseDelay(config map[string]any) (time.Duration, error) {
	switch value := config["duration"].(type) {
	case string:
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid delay duration %q: %w", value, err)
		}

		if duration <= 0 {
			return 0, fmt.Errorf("delay duration must be positive, got %q", value)
		}

		return duration, nil
	case float64:
		if value <= 0 {
			return 0, fmt.Errorf("delay duration must be positive, got %v", value)
		}

		return time.Duration(value * float64(time.Second)), nil
	case int:
		if value <= 0 {
			return 0, fmt.Errorf("delay duration must be positive, got %d", value)
		}

		return time.Duration(value) * time.Second, nil
	default:
		return 0, fmt.Errorf("delay requires a duration, got %T", config["duration"])
	}
}

// ParseWaitCondition extracts the expression a waiting execution is resumed on.
func ParseWaitCondition(config map[string]any) (string, error) {
	expression, _ := config["expression"].(string)
	if expression == "" {
		return "", fmt.Errorf("wait-condition requires an expression")
	}

	return expression, nil
}

func NewDelayFactory() *DelayFactory {
	return &DelayFactory{}
}

type DelayFactory struct{}

func (*DelayFactory) ID() string   { return TypeDelay }
func (*DelayFactory) Name() string { return "Delay" }

func (*DelayFactory) Description() string {
	return "Suspends the execution for a fixed duration"
}

func (*DelayFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type: "object",
		Properties: map[string]*models.Property{
			"duration": {Type: "string", Description: "How long to wait, e.g. 90s or 15m"},
		},
		Required: []string{"duration"},
	}
}

func (*DelayFactory) Create(config map[string]any) (protocol.Action, error) {
	if _, err := ParseDelay(config); err != nil {
		return nil, err
	}

	return &suspensionAction{actionType: TypeDelay}, nil
}

func NewWaitConditionFactory() *WaitConditionFactory {
	return &WaitConditionFactory{}
}

type WaitConditionFactory struct{}

func (*WaitConditionFactory) ID() string   { return TypeWaitCondition }
func (*WaitConditionFactory) Name() string { return "Wait For Condition" }

func (*WaitConditionFactory) Description() string {
	return "Suspends the execution until an expression becomes true"
}

func (*WaitConditionFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type: "object",
		Properties: map[string]*models.Property{
			"expression": {Type: "string", Description: "Condition that resumes the execution"},
		},
		Required: []string{"expression"},
	}
}

func (*WaitConditionFactory) Create(config map[string]any) (protocol.Action, error) {
	if _, err := ParseWaitCondition(config); err != nil {
		return nil, err
	}

	return &suspensionAction{actionType: TypeWaitCondition}, nil
}

// suspensionAction exists only to satisfy the factory contract. The engine
// intercepts suspension types before dispatch, so reaching Execute means the
// node bypassed the engine's interpretation of waiting states.
type suspensionAction struct {
	actionType string
}

func (a *suspensionAction) Execute(_ context.Context, _ protocol.ActionInput, _ *slog.Logger) (map[string]any, error) {
	return nil, fmt.Errorf("%s is a suspension point and must be interpreted by the engine", a.actionType)
}
