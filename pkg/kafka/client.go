// Package kafka 提供了入库任务队列的生产者与消费者。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cogsearch-go/internal/config"
	"cogsearch-go/pkg/log"
	"cogsearch-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxAttempts 是单个任务的最大处理次数，达到后提交 offset 放弃重试。
const maxAttempts = 3

// TaskProcessor 处理一个入库任务，使消费者与具体的流水线实现解耦。
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IngestTask) error
}

// AttemptCounter 是失败计数使用的 Redis 命令子集。
type AttemptCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Producer 将入库任务写入 Kafka。
type Producer struct {
	w messageWriter
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Infof("Kafka 生产者初始化成功, topic: %s", cfg.Topic)
	return &Producer{w: w}
}

// Produce 发送一个入库任务，任务 ID 作为消息 key。
func (p *Producer) Produce(ctx context.Context, task tasks.IngestTask) error {
	if err := task.Validate(); err != nil {
		return err
	}
	value, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{Key: []byte(task.TaskID), Value: value})
}

// Close 关闭生产者。
func (p *Producer) Close() error {
	return p.w.Close()
}

// Consumer 从 Kafka 拉取入库任务并同步处理。
type Consumer struct {
	r         messageReader
	processor TaskProcessor
	attempts  AttemptCounter
}

// NewConsumer 创建消费者。attempts 为 nil 时失败任务会一直重试。
func NewConsumer(cfg config.KafkaConfig, processor TaskProcessor, attempts AttemptCounter) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{r: r, processor: processor, attempts: attempts}
}

// Run 阻塞运行直到 ctx 结束或读取失败。
func (c *Consumer) Run(ctx context.Context) error {
	log.Info("Kafka 消费者已启动")
	defer func() {
		if err := c.r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			log.Error("从 Kafka 读取消息失败", err)
			return err
		}
		c.handle(ctx, m)
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	log.Infof("收到 Kafka 消息: offset %d", m.Offset)

	var task tasks.IngestTask
	if err := json.Unmarshal(m.Value, &task); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		// 消息格式错误，直接提交，避免阻塞队列
		c.commit(ctx, m)
		return
	}

	log.Infof("开始处理入库任务: task=%s, index=%s, file=%s", task.TaskID, task.IndexName, task.FileName)
	key := fmt.Sprintf("kafka:attempts:%s", task.TaskID)
	if err := c.processor.Process(ctx, task); err != nil {
		log.Errorf("处理入库任务失败: task=%s, error: %v", task.TaskID, err)
		if c.attempts == nil {
			return
		}
		n, incErr := c.attempts.Incr(ctx, key).Result()
		if incErr != nil {
			// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
			return
		}
		_ = c.attempts.Expire(ctx, key, 24*time.Hour).Err()
		if n >= maxAttempts {
			log.Errorf("入库任务多次失败(>=%d)，提交 offset 终止重试: task=%s", maxAttempts, task.TaskID)
			c.commit(ctx, m)
		}
		return
	}

	log.Infof("入库任务处理成功: task=%s", task.TaskID)
	if c.attempts != nil {
		_ = c.attempts.Del(ctx, key).Err()
	}
	c.commit(ctx, m)
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
