package actions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/protocol"
)

func NewSendEmailFactory() *SendEmailFactory {
	return &SendEmailFactory{}
}

type SendEmailFactory struct{}

func (*SendEmailFactory) ID() string          { return "send-email" }
func (*SendEmailFactory) Name() string        { return "Send Email" }
func (*SendEmailFactory) Description() string { return "Delivers an email to a recipient" }

func (*SendEmailFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type: "object",
		Properties: map[string]*models.Property{
			"to":      {Type: "string", Description: "Recipient address"},
			"subject": {Type: "string", Description: "Subject line"},
			"body":    {Type: "string", Description: "Message body"},
		},
		Required: []string{"to"},
	}
}

func (*SendEmailFactory) Create(config map[string]any) (protocol.Action, error) {
	to := stringValue(config, "to")
	if to == "" {
		return nil, errors.New("send-email requires a recipient")
	}

	return &sendEmailAction{
		to:      to,
		subject: stringValue(config, "subject"),
		body:    stringValue(config, "body"),
	}, nil
}

type sendEmailAction struct {
	to      string
	subject string
	body    string
}

func (a *sendEmailAction) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	messageID := newID("msg")

	logger.InfoContext(ctx, "Sending email",
		"action_type", "send-email",
		"to", a.to,
		"subject", a.subject,
		"message_id", messageID)

	return map[string]any{
		"message_id": messageID,
		"email_to":   a.to,
		"sent_at":    now(),
	}, nil
}
