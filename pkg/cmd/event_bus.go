package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/flowgrid/flowgrid/pkg/channels/gochannel"
	"github.com/flowgrid/flowgrid/pkg/channels/kafka"
	"github.com/flowgrid/flowgrid/pkg/eventbus"
)

// NewEventBus builds the event bus for the given provider: kafka for
// production, gochannel for single-process development setups.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "flowgrid")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel", "":
		pub, sub := gochannel.CreateChannel(watermill.NewSlogLogger(logger))

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("unsupported event bus provider: " + provider)
	}
}
