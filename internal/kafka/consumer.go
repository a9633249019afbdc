package kafka

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SetupConsumer connects a consumer to brokers.
func SetupConsumer(brokers []string) (sarama.Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumer(brokers, config)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka consumer")
	}
	return consumer, nil
}

// Consume reads partition 0 of topic from the newest offset and passes every
// message value to handler. It blocks until ctx is cancelled or the
// partition is closed.
func Consume(ctx context.Context, consumer sarama.Consumer, topic string, handler func([]byte)) error {
	partitionConsumer, err := consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		return errors.Wrapf(err, "consume %s", topic)
	}
	defer partitionConsumer.Close()

	logrus.WithField("topic", topic).Info("Started consuming from topic")
	for {
		select {
		case <-ctx.Done():
			logrus.WithField("topic", topic).Info("Stopped consuming from topic")
			return nil
		case msg, ok := <-partitionConsumer.Messages():
			if !ok {
				return nil
			}
			logrus.WithFields(logrus.Fields{"topic": topic, "offset": msg.Offset}).Debug("Received message")
			handler(msg.Value)
		case err, ok := <-partitionConsumer.Errors():
			if !ok {
				return nil
			}
			logrus.WithError(err).WithField("topic", topic).Error("Error consuming")
		}
	}
}
