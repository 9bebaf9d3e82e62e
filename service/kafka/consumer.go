package kafka

import (
	"context"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"

	"tripchat/global"
	"tripchat/logger"
)

// MessageHandler processes one consumed record. Returning an error
// logs it; the offset is marked either way, the feed is at-most-once
// toward connected clients anyway.
type MessageHandler func(topic string, key, value []byte) error

type groupHandler struct {
	handle MessageHandler
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	logger.Info("[kafka] consumer group session start")
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	logger.Info("[kafka] consumer group session end")
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.handle(msg.Topic, msg.Key, msg.Value); err != nil {
			logger.Warnf("[kafka] handler error topic=%s offset=%d: %v", msg.Topic, msg.Offset, err)
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

// RunConsumerGroup joins the group and consumes the topics until ctx
// is cancelled. Consume returns on every rebalance, so it loops.
func RunConsumerGroup(ctx context.Context, cfg global.KafkaConfig, topics []string, handle MessageHandler) error {
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, baseConfig())
	if err != nil {
		return errors.Wrap(err, "kafka consumer group")
	}
	defer group.Close()

	go func() {
		for err := range group.Errors() {
			logger.Warnf("[kafka] consumer group error: %v", err)
		}
	}()

	h := &groupHandler{handle: handle}
	for {
		if err := group.Consume(ctx, topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			logger.Warnf("[kafka] consume error: %v", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
