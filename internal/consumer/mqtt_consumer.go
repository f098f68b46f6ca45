package consumer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"sentinel-pipeline/internal/config"
	mqttclient "sentinel-pipeline/internal/mqtt"
)

// MQTTConsumer 遥测接入工作者。
// 状态机：Disconnected → Connecting → Subscribed → (消息循环) → Disconnected。
// 订阅状态下按固定间隔做存活检查，发现断线则有界重连（失败记录日志，循环继续）。
type MQTTConsumer struct {
	config     *config.Config
	mqttClient *mqttclient.Client
	processor  *Processor
	logger     *zap.Logger

	// 在途消息处理跟踪，用于关闭时的有界宽限等待
	inflight sync.WaitGroup
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(
	cfg *config.Config,
	mqttClient *mqttclient.Client,
	processor *Processor,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		processor:  processor,
		logger:     logger,
	}
}

// Start 连接 broker 并订阅遥测主题。
// 初次连接失败时返回错误，由服务层决定切换到模拟模式。
func (c *MQTTConsumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Connect(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	if err := c.subscribe(); err != nil {
		return err
	}

	c.logger.Info("MQTT consumer started",
		zap.String("broker", c.config.MQTT.Broker),
		zap.String("topic_filter", c.config.Pipeline.TopicFilter),
	)

	return nil
}

// Run 维持连接存活：按固定间隔检查连接状态，断线时重连并重新订阅。
// 阻塞直至上下文取消。
func (c *MQTTConsumer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.config.Pipeline.LivenessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if c.mqttClient.IsConnected() {
				continue
			}

			c.logger.Warn("MQTT client disconnected, attempting to reconnect")

			if err := c.mqttClient.Connect(); err != nil {
				c.logger.Error("Failed to reconnect to MQTT broker", zap.Error(err))
				continue
			}

			if err := c.subscribe(); err != nil {
				c.logger.Error("Failed to resubscribe after reconnect", zap.Error(err))
				continue
			}

			c.logger.Info("Reconnected to MQTT broker",
				zap.String("broker", c.config.MQTT.Broker),
			)
		}
	}
}

// Stop 停止消费者：取消订阅，在宽限时间内等待在途消息处理完成，然后断开连接
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	if err := c.mqttClient.Unsubscribe(c.config.Pipeline.TopicFilter); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.config.Pipeline.ShutdownGrace):
		c.logger.Warn("Shutdown grace expired with in-flight message handlers remaining")
	case <-ctx.Done():
	}

	c.mqttClient.Disconnect()
	c.logger.Info("MQTT consumer stopped")
	return nil
}

func (c *MQTTConsumer) subscribe() error {
	if err := c.mqttClient.Subscribe(c.config.Pipeline.TopicFilter, c.config.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to telemetry topic: %w", err)
	}
	return nil
}

// handleMessage 每条消息独立处理，不阻塞下一条消息的接收。
// 同一设备的并发消息各自更新心跳，最后写入者生效。
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		if err := c.processor.ProcessMessage(context.Background(), topic, payload); err != nil {
			c.logger.Error("Failed to process telemetry message",
				zap.String("topic", topic),
				zap.Error(err),
			)
		}
	}()
}
