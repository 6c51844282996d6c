package kafka

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

const contentTypeHeader = "content-type"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Producer публикует по одному сообщению; сообщения с одним ключом (номер
// трека) попадают в одну партицию и сохраняют порядок.
type Producer struct {
	w messageWriter
}

func NewProducer(brokers []string) *Producer {
	return newProducerWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	})
}

func newProducerWithWriter(w messageWriter) *Producer {
	return &Producer{w: w}
}

func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	return p.write(ctx, kafka.Message{Topic: topic, Key: key, Value: value})
}

// PublishJSON кодирует v в JSON и публикует с ключом key.
func (p *Producer) PublishJSON(ctx context.Context, topic, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	return p.write(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   b,
		Headers: []kafka.Header{{Key: contentTypeHeader, Value: []byte("application/json")}},
	})
}

func (p *Producer) write(ctx context.Context, msg kafka.Message) error {
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "kafka publish to %s", msg.Topic)
	}
	return nil
}

func (p *Producer) Close() error {
	if c, ok := p.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
