package actions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/protocol"
)

func NewCreateDocumentFactory() *CreateDocumentFactory {
	return &CreateDocumentFactory{}
}

type CreateDocumentFactory struct{}

func (*CreateDocumentFactory) ID() string          { return "create-document" }
func (*CreateDocumentFactory) Name() string        { return "Create Document" }
func (*CreateDocumentFactory) Description() string { return "Creates a document in the workspace" }

func (*CreateDocumentFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type: "object",
		Properties: map[string]*models.Property{
			"title":   {Type: "string", Description: "Document title"},
			"content": {Type: "string", Description: "Initial document content"},
			"folder":  {Type: "string", Description: "Destination folder"},
		},
		Required: []string{"title"},
	}
}

func (*CreateDocumentFactory) Create(config map[string]any) (protocol.Action, error) {
	title := stringValue(config, "title")
	if title == "" {
		return nil, errors.New("create-document requires a title")
	}

	return &createDocumentAction{
		title:   title,
		content: stringValue(config, "content"),
		folder:  stringValue(config, "folder"),
	}, nil
}

type createDocumentAction struct {
	title   string
	content string
	folder  string
}

func (a *createDocumentAction) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	documentID := newID("doc")

	logger.InfoContext(ctx, "Creating document",
		"action_type", "create-document",
		"title", a.title,
		"folder", a.folder,
		"document_id", documentID)

	return map[string]any{
		"document_id":    documentID,
		"document_title": a.title,
		"created_at":     now(),
	}, nil
}
