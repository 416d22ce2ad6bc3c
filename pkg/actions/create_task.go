package actions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/protocol"
)

func NewCreateTaskFactory() *CreateTaskFactory {
	return &CreateTaskFactory{}
}

type CreateTaskFactory struct{}

func (*CreateTaskFactory) ID() string          { return "create-task" }
func (*CreateTaskFactory) Name() string        { return "Create Task" }
func (*CreateTaskFactory) Description() string { return "Creates a task in the task tracker" }

func (*CreateTaskFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type: "object",
		Properties: map[string]*models.Property{
			"title":    {Type: "string", Description: "Task title"},
			"assignee": {Type: "string", Description: "User the task is assigned to"},
			"due_date": {Type: "string", Format: "date", Description: "Due date (YYYY-MM-DD)"},
			"priority": {Type: "string", Enum: []any{"low", "medium", "high"}, Default: "medium"},
		},
		Required: []string{"title"},
	}
}

func (*CreateTaskFactory) Create(config map[string]any) (protocol.Action, error) {
	title := stringValue(config, "title")
	if title == "" {
		return nil, errors.New("create-task requires a title")
	}

	priority := stringValue(config, "priority")
	if priority == "" {
		priority = "medium"
	}

	return &createTaskAction{
		title:    title,
		assignee: stringValue(config, "assignee"),
		dueDate:  stringValue(config, "due_date"),
		priority: priority,
	}, nil
}

type createTaskAction struct {
	title    string
	assignee string
	dueDate  string
	priority string
}

func (a *createTaskAction) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	taskID := newID("task")

	logger.InfoContext(ctx, "Creating task",
		"action_type", "create-task",
		"title", a.title,
		"assignee", a.assignee,
		"task_id", taskID)

	return map[string]any{
		"task_id":       taskID,
		"task_title":    a.title,
		"task_status":   "open",
		"task_priority": a.priority,
		"created_at":    now(),
	}, nil
}
