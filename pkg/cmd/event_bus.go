package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/darinjswilliams/kindrahealth/pkg/channels/gochannel"
	"github.com/darinjswilliams/kindrahealth/pkg/channels/kafka"
	"github.com/darinjswilliams/kindrahealth/pkg/eventbus"
)

// NewEventBus creates an event bus backed by the named provider. "kafka"
// needs KAFKA_BROKERS set; "gochannel" is in-process and the default.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, "kindrahealth")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create in-process pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
