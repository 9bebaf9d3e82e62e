package kafka

import (
	"encoding/json"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"

	"tripchat/global"
)

// Client bundles a sarama client with a sync producer over it. The
// notification feed is low volume, so synchronous sends with full acks
// are the right trade.
type Client struct {
	cli  sarama.Client
	prod sarama.SyncProducer
}

func baseConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V2_1_0_0
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true
	return config
}

func NewClient(cfg global.KafkaConfig) (*Client, error) {
	cli, err := sarama.NewClient(cfg.Brokers, baseConfig())
	if err != nil {
		return nil, errors.Wrap(err, "kafka client")
	}
	prod, err := sarama.NewSyncProducerFromClient(cli)
	if err != nil {
		_ = cli.Close()
		return nil, errors.Wrap(err, "kafka producer")
	}
	return &Client{cli: cli, prod: prod}, nil
}

// SendSync publishes one message, keyed so events for the same user
// land on the same partition and stay ordered.
func (c *Client) SendSync(topic, key string, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(value),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}
	_, _, err := c.prod.SendMessage(msg)
	return err
}

func (c *Client) SendJSON(topic, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.SendSync(topic, key, raw)
}

func (c *Client) Close() error {
	if c.prod != nil {
		_ = c.prod.Close()
	}
	return c.cli.Close()
}
