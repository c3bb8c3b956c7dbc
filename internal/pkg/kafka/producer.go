package kafka

import (
	"Haggle/internal/api/config"
	"Haggle/internal/api/dto"
	"context"
	log "log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// Producer 把通知事件异步投递到 notify topic，
// 推送 / 短信 / 邮件的实际下发由通知协作方消费完成。
type Producer struct {
	producer sarama.AsyncProducer
	topic    string
}

func newSaramaConfig(kafkaCfg config.KafkaConfig) *sarama.Config {
	c := sarama.NewConfig()

	if kafkaCfg.Sasl.Enable {
		c.Net.SASL.Enable = true
		c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		c.Net.SASL.User = kafkaCfg.Sasl.Username
		c.Net.SASL.Password = kafkaCfg.Sasl.Password
	}

	c.Producer.RequiredAcks = sarama.WaitForLocal
	c.Producer.Compression = sarama.CompressionSnappy
	c.Producer.Flush.Frequency = 100 * time.Millisecond
	c.Producer.Return.Errors = true

	return c
}

func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	producer, err := sarama.NewAsyncProducer(cfg.Brokers, newSaramaConfig(cfg))
	if err != nil {
		return nil, err
	}

	p := &Producer{producer: producer, topic: cfg.NotifyTopic}

	// 投递失败只记日志，通知是尽力而为，不阻塞业务路径
	go func() {
		for err := range producer.Errors() {
			log.Error("通知事件投递失败", "topic", err.Msg.Topic, "err", err.Err)
		}
	}()

	return p, nil
}

// Notify 按接收用户分区投递事件
func (s *Producer) Notify(ctx context.Context, evt *dto.NotifyEvent) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.ErrorContext(ctx, "通知事件序列化失败", "type", evt.Type, "err", err)
		return
	}

	s.producer.Input() <- &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(evt.UserID, 10)),
		Value: sarama.ByteEncoder(data),
	}
}

func (s *Producer) Close() error {
	return s.producer.Close()
}
