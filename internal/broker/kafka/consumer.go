package kafka

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler обрабатывает одно сообщение. Ошибка останавливает чтение, сообщение
// остаётся незакоммиченным.
type Handler func(ctx context.Context, key, value []byte) error

type Consumer struct {
	r     messageReader
	topic string
	log   *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log *zap.Logger) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	}
	if groupID != "" {
		cfg.GroupTopics = []string{topic}
	} else {
		cfg.Topic = topic
	}
	c := newConsumerWithReader(kafka.NewReader(cfg), log)
	c.topic = topic
	return c
}

func newConsumerWithReader(r messageReader, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{r: r, log: log}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			return errors.Wrap(err, "fetch message")
		}
		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			// Важно: commit делаем только при успехе, иначе потеряем сообщение.
			c.log.Error("kafka handler failed",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			return err
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, "commit message")
		}
	}
}

// Run читает до отмены ctx; отмена ошибкой не считается.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	c.log.Info("kafka consumer started", zap.String("topic", c.topic))
	err := c.Consume(ctx, handler)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
