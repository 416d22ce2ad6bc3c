package actions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/protocol"
)

func NewCreateProjectFactory() *CreateProjectFactory {
	return &CreateProjectFactory{}
}

type CreateProjectFactory struct{}

func (*CreateProjectFactory) ID() string          { return "create-project" }
func (*CreateProjectFactory) Name() string        { return "Create Project" }
func (*CreateProjectFactory) Description() string { return "Creates a new project workspace" }

func (*CreateProjectFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type: "object",
		Properties: map[string]*models.Property{
			"name":        {Type: "string", Description: "Project name"},
			"description": {Type: "string", Description: "What the project is about"},
			"owner":       {Type: "string", Description: "Project owner"},
		},
		Required: []string{"name"},
	}
}

func (*CreateProjectFactory) Create(config map[string]any) (protocol.Action, error) {
	name := stringValue(config, "name")
	if name == "" {
		return nil, errors.New("create-project requires a name")
	}

	return &createProjectAction{
		name:        name,
		description: stringValue(config, "description"),
		owner:       stringValue(config, "owner"),
	}, nil
}

type createProjectAction struct {
	name        string
	description string
	owner       string
}

func (a *createProjectAction) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	projectID := newID("prj")

	logger.InfoContext(ctx, "Creating project",
		"action_type", "create-project",
		"name", a.name,
		"owner", a.owner,
		"project_id", projectID)

	return map[string]any{
		"project_id":   projectID,
		"project_name": a.name,
		"created_at":   now(),
	}, nil
}
