package actions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/protocol"
)

func NewAssignToUserFactory() *AssignToUserFactory {
	return &AssignToUserFactory{}
}

type AssignToUserFactory struct{}

func (*AssignToUserFactory) ID() string          { return "assign-to-user" }
func (*AssignToUserFactory) Name() string        { return "Assign To User" }
func (*AssignToUserFactory) Description() string { return "Assigns an entity to a user" }

func (*AssignToUserFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type: "object",
		Properties: map[string]*models.Property{
			"entity_id": {Type: "string", Description: "Identifier of the record to assign"},
			"user":      {Type: "string", Description: "User receiving the assignment"},
		},
		Required: []string{"entity_id", "user"},
	}
}

func (*AssignToUserFactory) Create(config map[string]any) (protocol.Action, error) {
	entityID := stringValue(config, "entity_id")
	user := stringValue(config, "user")

	if entityID == "" || user == "" {
		return nil, errors.New("assign-to-user requires an entity_id and a user")
	}

	return &assignToUserAction{entityID: entityID, user: user}, nil
}

type assignToUserAction struct {
	entityID string
	user     string
}

func (a *assignToUserAction) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	logger.InfoContext(ctx, "Assigning to user",
		"action_type", "assign-to-user",
		"entity_id", a.entityID,
		"user", a.user)

	return map[string]any{
		"entity_id":   a.entityID,
		"assignee":    a.user,
		"assigned_at": now(),
	}, nil
}
