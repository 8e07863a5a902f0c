package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSender 把通知写入 Kafka 主题，由下游邮件服务消费
type KafkaSender struct {
	writer kafkaMessageWriter
}

// kafkaMessageWriter 便于测试替换 kafka.Writer
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaSender brokers 为 host:port 列表
func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	var addrs []string
	for _, b := range brokers {
		b = strings.TrimSpace(b)
		if b != "" {
			addrs = append(addrs, b)
		}
	}
	return &KafkaSender{writer: &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}}
}

// NewKafkaSenderWith 仅供测试注入
func NewKafkaSenderWith(w kafkaMessageWriter) *KafkaSender {
	return &KafkaSender{writer: w}
}

func (k *KafkaSender) Send(ctx context.Context, msg Message) error {
	b, err := json.Marshal(&msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Recipient),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(msg.Event)},
		},
	})
}

// Close 释放底层连接
func (k *KafkaSender) Close() error {
	if w, ok := k.writer.(*kafka.Writer); ok {
		return w.Close()
	}
	return nil
}
