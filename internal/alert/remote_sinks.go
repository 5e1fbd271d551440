package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-radmon/internal/models"
	rediscommon "wisefido-radmon/internal/redis"

	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Publisher MQTT 发布接口（*mqtt.Client 实现）
type Publisher interface {
	Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error
}

// MQTTSink 将报警命令发布到设备主题；设备端负责横幅、蜂鸣和振动
type MQTTSink struct {
	*eventSink
}

// NewMQTTSink 创建 MQTT 报警通道
func NewMQTTSink(pub Publisher, topic string, qos byte, logger *zap.Logger) *MQTTSink {
	deliver := func(ctx context.Context, evt models.AlertEvent) error {
		payload, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("failed to marshal alert event: %w", err)
		}
		return pub.Publish(ctx, topic, qos, false, payload)
	}
	return &MQTTSink{eventSink: newEventSink("mqtt", deliver, logger)}
}

func (s *MQTTSink) HapticsAvailable() bool { return true }

// StreamSink 将报警事件写入 Redis Stream，供其它服务消费
type StreamSink struct {
	*eventSink
}

// NewStreamSink 创建 Redis Streams 报警通道
func NewStreamSink(client *redis.Client, stream string, maxLen int64, logger *zap.Logger) *StreamSink {
	deliver := func(ctx context.Context, evt models.AlertEvent) error {
		_, err := rediscommon.PublishJSONToStream(ctx, client, stream, maxLen, evt)
		if err != nil {
			return fmt.Errorf("failed to publish alert to stream %s: %w", stream, err)
		}
		return nil
	}
	return &StreamSink{eventSink: newEventSink("stream", deliver, logger)}
}

// StreamSink 作为事件记录，也记录振动请求
func (s *StreamSink) HapticsAvailable() bool { return true }

// WebhookSink 将横幅报警 POST 到外部 webhook（不转发声音和振动）
type WebhookSink struct {
	*eventSink
}

// NewWebhookSink 创建 webhook 报警通道
func NewWebhookSink(url string, logger *zap.Logger) *WebhookSink {
	client := resty.New().
		SetTimeout(deliverTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json")

	deliver := func(ctx context.Context, evt models.AlertEvent) error {
		if evt.Kind != KindBanner {
			return nil
		}
		resp, err := client.R().
			SetContext(ctx).
			SetBody(evt).
			Post(url)
		if err != nil {
			return fmt.Errorf("failed to call webhook: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode())
		}
		return nil
	}
	return &WebhookSink{eventSink: newEventSink("webhook", deliver, logger)}
}

func (s *WebhookSink) HapticsAvailable() bool { return false }
