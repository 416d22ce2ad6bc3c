// Package kafka provides the Kafka pub/sub transport for multi-process
// deployments.
package kafka

import (
	"errors"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

// CreateChannel builds a Kafka publisher/subscriber pair from the
// KAFKA_BROKERS environment variable. Each service name gets its own consumer
// group, so workers of one service share a partition set while every other
// service still sees the full event stream.
func CreateChannel(logger watermill.LoggerAdapter, serviceName string) (*kafka.Publisher, *kafka.Subscriber, error) {
	brokers, err := brokerList()
	if err != nil {
		return nil, nil, err
	}

	subscriber, err := newSubscriber(logger, brokers, serviceName)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := newPublisher(logger, brokers, serviceName)
	if err != nil {
		return nil, nil, err
	}

	return publisher, subscriber, nil
}

func brokerList() ([]string, error) {
	brokers := strings.Split(os.Getenv("KAFKA_BROKERS"), ",")
	if len(brokers) == 0 || brokers[0] == "" {
		return nil, errors.New("KAFKA_BROKERS environment variable is not set or empty")
	}

	return brokers, nil
}

func newSubscriber(logger watermill.LoggerAdapter, brokers []string, serviceName string) (*kafka.Subscriber, error) {
	config := kafka.DefaultSaramaSubscriberConfig()
	config.ClientID = "flowgrid-" + serviceName
	// Replay from the beginning so a fresh consumer group picks up pending
	// execution requests published before it existed.
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	return kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: config,
			ConsumerGroup:         "flowgrid-" + serviceName,
			OTELEnabled:           true,
		},
		logger,
	)
}

func newPublisher(logger watermill.LoggerAdapter, brokers []string, serviceName string) (*kafka.Publisher, error) {
	config := sarama.NewConfig()
	config.ClientID = "flowgrid-" + serviceName
	config.Producer.Return.Successes = true

	return kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: config,
			OTELEnabled:           true,
		},
		logger,
	)
}
