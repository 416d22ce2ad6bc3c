package actions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/protocol"
)

func NewUpdateStatusFactory() *UpdateStatusFactory {
	return &UpdateStatusFactory{}
}

type UpdateStatusFactory struct{}

func (*UpdateStatusFactory) ID() string          { return "update-status" }
func (*UpdateStatusFactory) Name() string        { return "Update Status" }
func (*UpdateStatusFactory) Description() string { return "Updates the status field of an entity" }

func (*UpdateStatusFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type: "object",
		Properties: map[string]*models.Property{
			"entity_id": {Type: "string", Description: "Identifier of the record to update"},
			"status":    {Type: "string", Description: "New status value"},
		},
		Required: []string{"entity_id", "status"},
	}
}

func (*UpdateStatusFactory) Create(config map[string]any) (protocol.Action, error) {
	entityID := stringValue(config, "entity_id")
	status := stringValue(config, "status")

	if entityID == "" || status == "" {
		return nil, errors.New("update-status requires an entity_id and a status")
	}

	return &updateStatusAction{entityID: entityID, status: status}, nil
}

type updateStatusAction struct {
	entityID string
	status   string
}

func (a *updateStatusAction) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	logger.InfoContext(ctx, "Updating status",
		"action_type", "update-status",
		"entity_id", a.entityID,
		"status", a.status)

	return map[string]any{
		"entity_id":  a.entityID,
		"status":     a.status,
		"updated_at": now(),
	}, nil
}
