package render

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConn NATS 发布接口（*nats.Conn 实现）
type NATSConn interface {
	Publish(subj string, data []byte) error
}

// ConnectNATS 连接 NATS（无限重连）
func ConnectNATS(url, name string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// NATSPublisher 把更新发布到 <prefix>.<type> 主题
type NATSPublisher struct {
	conn   NATSConn
	prefix string
}

func NewNATSPublisher(conn NATSConn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject 更新类型对应的主题
func (p *NATSPublisher) Subject(typ string) string {
	if p.prefix == "" {
		return typ
	}
	return p.prefix + "." + typ
}

func (p *NATSPublisher) Publish(ctx context.Context, u Update) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}
	if err := p.conn.Publish(p.Subject(u.Type), b); err != nil {
		return fmt.Errorf("failed to publish to nats: %w", err)
	}
	return nil
}
