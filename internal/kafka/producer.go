// Package kafka connects the catalog to Apache Kafka: a synchronous
// producer for catalog events and a partition consumer for reacting to them.
package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"storefront/internal/events"
)

// Brokers splits a comma-separated broker list, dropping empty entries.
func Brokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// brokerTimeout caps each network step of a send, so a stalled broker
// delays a request by seconds rather than sarama's 30s defaults.
const brokerTimeout = 5 * time.Second

// SetupProducer creates a synchronous producer that waits for every
// message to be acknowledged.
func SetupProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Timeout = brokerTimeout
	config.Net.DialTimeout = brokerTimeout
	config.Net.ReadTimeout = brokerTimeout
	config.Net.WriteTimeout = brokerTimeout

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka producer")
	}

	logrus.WithField("brokers", brokers).Info("Kafka producer initialized")
	return producer, nil
}

// Publisher sends catalog events as JSON keyed by product id, so every
// event of one product lands on the same partition.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewPublisher(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

type sendResult struct {
	partition int32
	offset    int64
	err       error
}

// Publish blocks until the broker acknowledges the event or ctx is done.
// When ctx ends first the send keeps running in the background and its
// outcome is only logged.
func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "send %s event", e.Type)
	}

	value, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.ProductID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(e.Type)},
		},
	}
	done := make(chan sendResult, 1)
	go func() {
		var r sendResult
		r.partition, r.offset, r.err = p.producer.SendMessage(msg)
		done <- r
	}()

	select {
	case r := <-done:
		return p.logResult(e, r)
	case <-ctx.Done():
		go func() {
			if err := p.logResult(e, <-done); err != nil {
				logrus.WithError(err).WithField("product_id", e.ProductID).Warn("Abandoned event send failed")
			}
		}()
		return errors.Wrapf(ctx.Err(), "send %s event", e.Type)
	}
}

func (p *Publisher) logResult(e events.Event, r sendResult) error {
	if r.err != nil {
		return errors.Wrapf(r.err, "send %s event", e.Type)
	}
	logrus.WithFields(logrus.Fields{
		"topic":      p.topic,
		"type":       e.Type,
		"product_id": e.ProductID,
		"partition":  r.partition,
		"offset":     r.offset,
	}).Debug("Event published")
	return nil
}

// Close releases the underlying producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
