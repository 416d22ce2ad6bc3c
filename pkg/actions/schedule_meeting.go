package actions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/protocol"
)

func NewScheduleMeetingFactory() *ScheduleMeetingFactory {
	return &ScheduleMeetingFactory{}
}

type ScheduleMeetingFactory struct{}

func (*ScheduleMeetingFactory) ID() string          { return "schedule-meeting" }
func (*ScheduleMeetingFactory) Name() string        { return "Schedule Meeting" }
func (*ScheduleMeetingFactory) Description() string { return "Books a meeting with attendees" }

func (*ScheduleMeetingFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type: "object",
		Properties: map[string]*models.Property{
			"title":     {Type: "string", Description: "Meeting title"},
			"attendees": {Type: "array", Items: &models.Property{Type: "string"}, Description: "Attendee addresses"},
			"start":     {Type: "string", Format: "date-time", Description: "Meeting start time"},
			"duration":  {Type: "string", Description: "Meeting length, e.g. 30m"},
		},
		Required: []string{"title"},
	}
}

func (*ScheduleMeetingFactory) Create(config map[string]any) (protocol.Action, error) {
	title := stringValue(config, "title")
	if title == "" {
		return nil, errors.New("schedule-meeting requires a title")
	}

	attendees := make([]string, 0)

	if raw, ok := config["attendees"].([]any); ok {
		for _, item := range raw {
			if attendee, ok := item.(string); ok {
				attendees = append(attendees, attendee)
			}
		}
	}

	return &scheduleMeetingAction{
		title:     title,
		attendees: attendees,
		start:     stringValue(config, "start"),
	}, nil
}

type scheduleMeetingAction struct {
	title     string
	attendees []string
	start     string
}

func (a *scheduleMeetingAction) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (map[string]any, error) {
	meetingID := newID("mtg")

	logger.InfoContext(ctx, "Scheduling meeting",
		"action_type", "schedule-meeting",
		"title", a.title,
		"attendees", len(a.attendees),
		"meeting_id", meetingID)

	return map[string]any{
		"meeting_id":    meetingID,
		"meeting_title": a.title,
		"scheduled_at":  now(),
	}, nil
}
