package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/coinflux/ruleflow/pkg/eventbus"
)

// NewEventBus creates the engine event bus for the given provider. Kafka is
// the production transport; "memory" backs single-process setups and local
// development.
func NewEventBus(provider, kafkaBrokers, serviceName string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := eventbus.NewKafkaChannel(kafkaBrokers, serviceName, watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "memory":
		channel := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))

		return eventbus.NewWatermillEventBus(channel, channel)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
