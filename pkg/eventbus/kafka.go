package eventbus

import (
	"errors"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

// NewKafkaChannel builds the Kafka publisher/subscriber pair used by the
// event bus.
func NewKafkaChannel(brokersCSV, serviceName string, logger watermill.LoggerAdapter) (*kafka.Publisher, *kafka.Subscriber, error) {
	subscriber, err := NewKafkaSubscriber(brokersCSV, serviceName, logger)
	if err != nil {
		return nil, nil, err
	}

	brokers := strings.Split(brokersCSV, ",")

	saramaPublisherConfig := sarama.NewConfig()
	saramaPublisherConfig.Producer.Return.Successes = true

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaPublisherConfig,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	return publisher, subscriber, nil
}

// NewKafkaSubscriber builds a consume-only Kafka subscriber with its own
// consumer group; the business-event listener uses this so inbound events
// are load-balanced across listener instances.
func NewKafkaSubscriber(brokersCSV, serviceName string, logger watermill.LoggerAdapter) (*kafka.Subscriber, error) {
	brokers := strings.Split(brokersCSV, ",")
	if len(brokers) == 0 || brokers[0] == "" {
		return nil, errors.New("no kafka brokers configured")
	}

	saramaSubscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaSubscriberConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	return kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaSubscriberConfig,
			ConsumerGroup:         "cg-" + serviceName,
			OTELEnabled:           true,
		},
		logger,
	)
}
