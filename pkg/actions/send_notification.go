package actions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/protocol"
)

func NewSendNotificationFactory() *SendNotificationFactory {
	return &SendNotificationFactory{}
}

type SendNotificationFactory struct{}

func (*SendNotificationFactory) ID() string   { return "send-notification" }
func (*SendNotificationFactory) Name() string { return "Send Notification" }

func (*SendNotificationFactory) Description() string {
	return "Pushes an in-app or channel notification to a recipient"
}

func (*SendNotificationFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type: "object",
		Properties: map[string]*models.Property{
			"recipient": {Type: "string", Description: "User or channel receiving the notification"},
			"message":   {Type: "string", Description: "Notification text"},
			"channel":   {Type: "string", Enum: []any{"in-app", "slack", "sms"}, Default: "in-app"},
		},
		Required: []string{"recipient", "message"},
	}
}

func (*SendNotificationFactory) Create(config map[string]any) (protocol.Action, error) {
	recipient := stringValue(config, "recipient")
	message := stringValue(config, "message")

	if recipient == "" || message == "" {
		return nil, errors.New("send-notification requires a recipient and a message")
	}

	channel := stringValue(config, "channel")
	if channel == "" {
		channel = "in-app"
	}

	return &sendNotificationAction{recipient: recipient, message: message, channel: channel}, nil
}

type sendNotificationAction struct {
	recipient string
	message   string
	channel   string
}

func (a *sendNotificationAction) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	notificationID := newID("ntf")

	logger.InfoContext(ctx, "Sending notification",
		"action_type", "send-notification",
		"recipient", a.recipient,
		"channel", a.channel,
		"notification_id", notificationID)

	return map[string]any{
		"notification_id": notificationID,
		"recipient":       a.recipient,
		"channel":         a.channel,
		"delivered_at":    now(),
	}, nil
}
