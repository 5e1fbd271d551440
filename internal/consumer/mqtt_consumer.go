package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	mqttcommon "wisefido-radmon/internal/mqtt"

	"go.uber.org/zap"
)

// Subscriber MQTT 订阅接口（*mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// ReadingSink 接收设备读数（signal.LatestValueSource 实现）
type ReadingSink interface {
	Update(value float64, at time.Time)
}

// DeviceReading 设备上报的读数
// 主题格式: radmon/{device_id}/reading
type DeviceReading struct {
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp,omitempty"` // 毫秒；为空时使用接收时间
}

// MQTTConsumer 订阅设备读数并交给信号源
type MQTTConsumer struct {
	subscriber Subscriber
	sink       ReadingSink
	topic      string
	qos        byte
	now        func() time.Time
	logger     *zap.Logger
}

// NewMQTTConsumer 创建 MQTT 消费者
func NewMQTTConsumer(subscriber Subscriber, sink ReadingSink, topic string, qos byte, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		subscriber: subscriber,
		sink:       sink,
		topic:      topic,
		qos:        qos,
		now:        time.Now,
		logger:     logger,
	}
}

// Start 订阅读数主题，阻塞直到 ctx 取消
func (c *MQTTConsumer) Start(ctx context.Context) error {
	if err := c.subscriber.Subscribe(c.topic, c.qos, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to reading topic: %w", err)
	}

	c.logger.Info("MQTT consumer started", zap.String("topic", c.topic))

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop() {
	if err := c.subscriber.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("MQTT consumer stopped")
}

// handleMessage 处理设备读数
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return fmt.Errorf("invalid topic format: %s", topic)
	}
	deviceID := parts[1]

	var reading DeviceReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return fmt.Errorf("failed to unmarshal reading: %w", err)
	}
	if math.IsNaN(reading.Value) || math.IsInf(reading.Value, 0) || reading.Value < 0 {
		return fmt.Errorf("invalid reading value from %s: %v", deviceID, reading.Value)
	}

	at := c.now()
	if reading.Timestamp > 0 {
		at = time.UnixMilli(reading.Timestamp)
	}
	c.sink.Update(reading.Value, at)

	c.logger.Debug("Device reading received",
		zap.String("device_id", deviceID),
		zap.Float64("value", reading.Value),
		zap.Time("at", at),
	)
	return nil
}
