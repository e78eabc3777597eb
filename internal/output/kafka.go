package output

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/models"
)

type KafkaOutput struct {
	producer    sarama.SyncProducer
	topicPrefix string
}

// NewSaramaConfig returns the producer settings used for summary topics.
func NewSaramaConfig(cfg models.KafkaConfig) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = true // required by SyncProducer
	saramaConfig.Net.DialTimeout = 30 * time.Second
	saramaConfig.Net.ReadTimeout = 30 * time.Second
	saramaConfig.Net.WriteTimeout = 30 * time.Second

	if cfg.SessionTimeoutMs > 0 {
		saramaConfig.Consumer.Group.Session.Timeout = time.Duration(cfg.SessionTimeoutMs) * time.Millisecond
	} else {
		saramaConfig.Consumer.Group.Session.Timeout = 45 * time.Second
	}
	return saramaConfig
}

func NewKafkaOutput(cfg models.KafkaConfig) (*KafkaOutput, error) {
	brokers := strings.Split(cfg.BrokerList, ",")
	producer, err := sarama.NewSyncProducer(brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
	}
	logging.Info().Strs("brokers", brokers).Msg("Kafka producer created")
	return NewKafkaOutputWithProducer(producer, cfg.TopicPrefix), nil
}

func NewKafkaOutputWithProducer(producer sarama.SyncProducer, topicPrefix string) *KafkaOutput {
	return &KafkaOutput{producer: producer, topicPrefix: topicPrefix}
}

// Topic applies the configured prefix to topic.
func (k *KafkaOutput) Topic(topic string) string {
	if k.topicPrefix == "" {
		return topic
	}
	return k.topicPrefix + "." + topic
}

func (k *KafkaOutput) WriteMessage(topic string, msg []byte) error {
	if k.producer == nil {
		return errors.New("kafka producer is closed")
	}
	_, _, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.Topic(topic),
		Key:   sarama.StringEncoder(topic),
		Value: sarama.ByteEncoder(msg),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", k.Topic(topic), err)
	}
	return nil
}

func (k *KafkaOutput) Close() error {
	if k.producer == nil {
		return nil
	}
	err := k.producer.Close()
	k.producer = nil
	return err
}
