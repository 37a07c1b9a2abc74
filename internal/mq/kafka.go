package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/recipe-app/apiserver/config"
)

// KafkaClient publishes events to Kafka topics named after their channel.
type KafkaClient struct {
	brokers  []string
	groupID  string
	config   *sarama.Config
	producer sarama.SyncProducer
}

func NewKafkaClient(cfg config.KafkaConfig) (*KafkaClient, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 5
	sc.Producer.Return.Successes = true
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, err
	}
	return &KafkaClient{brokers: cfg.Brokers, groupID: cfg.GroupID, config: sc, producer: producer}, nil
}

func (k *KafkaClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("kafka channel is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	msg := &sarama.ProducerMessage{
		Topic:   channel,
		Value:   sarama.ByteEncoder(data),
		Headers: attributesToHeaders(attrs),
	}
	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%d/%d", channel, partition, offset), nil
}

// Subscribe joins the configured consumer group and blocks until ctx is
// done. Messages whose handler fails are left unmarked.
func (k *KafkaClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("kafka channel is required")
	}

	group, err := sarama.NewConsumerGroup(k.brokers, k.groupID, k.config)
	if err != nil {
		return err
	}
	defer group.Close()

	consumer := &kafkaGroupHandler{handler: handler}
	for {
		if err := group.Consume(ctx, []string{channel}, consumer); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (k *KafkaClient) Close() error {
	return k.producer.Close()
}

type kafkaGroupHandler struct {
	handler Handler
}

func (h *kafkaGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *kafkaGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *kafkaGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		message := Message{
			ID:         fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset),
			Data:       msg.Value,
			Attributes: headersToAttributes(msg.Headers),
		}
		if err := h.handler(session.Context(), message); err != nil {
			continue
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func attributesToHeaders(attrs map[string]string) []sarama.RecordHeader {
	headers := make([]sarama.RecordHeader, 0, len(attrs))
	for key, value := range attrs {
		headers = append(headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
	}
	return headers
}

func headersToAttributes(headers []*sarama.RecordHeader) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for _, header := range headers {
		if header == nil {
			continue
		}
		attrs[string(header.Key)] = string(header.Value)
	}
	return attrs
}
