// README: Best-effort Kafka publisher for order transition records. This is
// observability, not a durable queue: a failed publish is logged and lost.
package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"
)

type TransitionRecord struct {
	OrderID   string    `json:"order_id"`
	FromState string    `json:"from_state"`
	ToState   string    `json:"to_state"`
	ActorID   string    `json:"actor_id"`
	ActorRole string    `json:"actor_role"`
	At        time.Time `json:"at"`
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Timeout = 5 * time.Second
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &KafkaPublisher{producer: producer, topic: topic}, nil
}

func (p *KafkaPublisher) Record(_ context.Context, rec TransitionRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		log.Printf("audit: marshal record for order %s: %v", rec.OrderID, err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(rec.OrderID),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		log.Printf("audit: publish transition for order %s: %v", rec.OrderID, err)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
