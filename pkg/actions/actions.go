// Package actions contains the built-in action types dispatched by the
// execution engine. Side effects that would leave the process (mail, chat
// notifications, calendar invites) are simulated: each action logs what it
// would deliver and returns the identifiers a real integration would produce,
// so downstream nodes can reference them through the variable context.
package actions

import (
	"time"

	"github.com/flowgrid/flowgrid/pkg/registry"
	"github.com/google/uuid"
)

// RegisterDefaults registers every built-in action factory.
func RegisterDefaults(r *registry.Registry) {
	r.RegisterAction(NewSendEmailFactory())
	r.RegisterAction(NewSendNotificationFactory())
	r.RegisterAction(NewCreateTaskFactory())
	r.RegisterAction(NewCreateProjectFactory())
	r.RegisterAction(NewUpdateStatusFactory())
	r.RegisterAction(NewAssignToUserFactory())
	r.RegisterAction(NewCreateDocumentFactory())
	r.RegisterAction(NewScheduleMeetingFactory())
	r.RegisterAction(NewDelayFactory())
	r.RegisterAction(NewWaitConditionFactory())
}

func newID(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func stringValue(config map[string]any, key string) string {
	value, _ := config[key].(string)

	return value
}
