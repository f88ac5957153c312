// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"

	"rehber-go/internal/config"
	"rehber-go/pkg/log"
	"rehber-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// TaskProcessor defines the interface for any service that can process a
// title refinement task. This decouples the consumer from the service layer.
type TaskProcessor interface {
	ProcessTitleTask(ctx context.Context, task tasks.TitleRefineTask) error
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.TitleTopic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceTitleTask 发送一个标题优化任务到 Kafka。
// 标题优化是尽力而为的步骤，发送失败由调用方记录日志后吞掉。
func ProduceTitleTask(ctx context.Context, task tasks.TitleRefineTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}

	return producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.SessionID),
		Value: taskBytes,
	})
}

// StartConsumer 启动一个 Kafka 消费者来处理标题优化任务。
// 任务本身是可丢弃的：处理失败只记录日志并提交 offset，不做重试。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.TitleTopic,
		GroupID:  "rehber-title-consumer",
		MinBytes: 1,
		MaxBytes: 1e6,
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.TitleTopic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			log.Error("从 Kafka 读取消息失败", err)
			break
		}

		var task tasks.TitleRefineTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析标题任务: %v, value: %s", err, string(m.Value))
			if err := r.CommitMessages(ctx, m); err != nil {
				log.Errorf("提交错误消息失败: %v", err)
			}
			continue
		}

		if err := processor.ProcessTitleTask(ctx, task); err != nil {
			log.Warnf("标题优化任务失败（放弃重试）: session=%s, err=%v", task.SessionID, err)
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}

	if err := r.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
}
