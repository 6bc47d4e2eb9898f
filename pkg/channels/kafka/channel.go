// Package kafka provides the Kafka event channel for multi-process
// deployments.
package kafka

import (
	"fmt"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

const (
	brokersEnv = "KAFKA_BROKERS"

	// clientPrefix namespaces consumer groups and client ids per service, so
	// api and gateway processes each consume the full event stream.
	clientPrefix = "lensflow-"
)

// CreateChannel builds a Kafka publisher/subscriber pair for the given
// service from the KAFKA_BROKERS environment variable.
func CreateChannel(logger watermill.LoggerAdapter, serviceName string) (*kafka.Publisher, *kafka.Subscriber, error) {
	brokers, err := brokersFromEnv()
	if err != nil {
		return nil, nil, err
	}

	subscriber, err := newSubscriber(brokers, serviceName, logger)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := newPublisher(brokers, serviceName, logger)
	if err != nil {
		return nil, nil, err
	}

	return publisher, subscriber, nil
}

func brokersFromEnv() ([]string, error) {
	raw := os.Getenv(brokersEnv)
	if raw == "" {
		return nil, fmt.Errorf("%s environment variable is not set", brokersEnv)
	}

	return strings.Split(raw, ","), nil
}

func newSubscriber(brokers []string, serviceName string, logger watermill.LoggerAdapter) (*kafka.Subscriber, error) {
	config := kafka.DefaultSaramaSubscriberConfig()
	config.ClientID = clientPrefix + serviceName
	// Late-joining services replay the event stream from the beginning.
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	return kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: config,
			ConsumerGroup:         clientPrefix + serviceName,
			OTELEnabled:           true,
		},
		logger,
	)
}

func newPublisher(brokers []string, serviceName string, logger watermill.LoggerAdapter) (*kafka.Publisher, error) {
	config := sarama.NewConfig()
	config.ClientID = clientPrefix + serviceName
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
