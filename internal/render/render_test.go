package render

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"wisefido-radmon/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type collectSink struct {
	mu      sync.Mutex
	updates []Update
}

func (c *collectSink) Publish(ctx context.Context, u Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
	return nil
}

func (c *collectSink) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.updates))
	for _, u := range c.updates {
		out = append(out, u.Type)
	}
	return out
}

func TestBroadcaster_DeliversInOrder(t *testing.T) {
	sink := &collectSink{}
	b := NewBroadcaster("test", sink, 16, zap.NewNop())
	b.Start(context.Background())
	defer b.Stop()

	b.OnReadingUpdated(0.2, models.SeverityCaution)
	b.OnElapsedUpdated(75)
	b.OnReliabilityUpdated(models.UnavailableReliability())

	require.Eventually(t, func() bool { return len(sink.types()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{TypeReading, TypeElapsed, TypeReliability}, sink.types())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	reading := sink.updates[0].Payload.(ReadingPayload)
	assert.Equal(t, "Caution", reading.Label)
	assert.Equal(t, "#F59E0B", reading.Color)
	assert.Equal(t, "01:15", sink.updates[1].Payload.(ElapsedPayload).Display)
	assert.Equal(t, "--", sink.updates[2].Payload.(ReliabilityPayload).Display)
}

func TestBroadcaster_DropsWhenQueueFull(t *testing.T) {
	sink := &collectSink{}
	b := NewBroadcaster("test", sink, 1, zap.NewNop())

	b.OnBatteryUpdated(100)
	b.OnBatteryUpdated(99)
	b.OnBatteryUpdated(98)

	assert.Equal(t, int64(2), b.Dropped())
}

type recordingRenderer struct {
	readings []float64
	history  int
}

func (r *recordingRenderer) OnReadingUpdated(value float64, severity models.Severity) {
	r.readings = append(r.readings, value)
}
func (r *recordingRenderer) OnChartFrame(frame models.ChartFrame)                {}
func (r *recordingRenderer) OnElapsedUpdated(seconds int)                        {}
func (r *recordingRenderer) OnReliabilityUpdated(reliability models.Reliability) {}
func (r *recordingRenderer) OnBatteryUpdated(percent int)                        {}
func (r *recordingRenderer) OnHistoryUpdated(records []models.HistoryRecord, stats models.HistoryStats) {
	r.history++
}
func (r *recordingRenderer) OnSessionStateChanged(state models.LiveState) {}
func (r *recordingRenderer) OnStabilizationUpdated(remainingSeconds int) {}

func TestMulti_FansOut(t *testing.T) {
	a, b := &recordingRenderer{}, &recordingRenderer{}
	m := Multi{a, b, NewLogRenderer(zap.NewNop())}

	m.OnReadingUpdated(0.5, models.SeverityCaution)
	m.OnHistoryUpdated(nil, models.HistoryStats{})

	assert.Equal(t, []float64{0.5}, a.readings)
	assert.Equal(t, []float64{0.5}, b.readings)
	assert.Equal(t, 1, a.history)
	assert.Equal(t, 1, b.history)
}

func TestHub_ReplaysLatestAndBroadcasts(t *testing.T) {
	hub := NewHub(zap.NewNop())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, Update{Type: TypeBattery, Payload: 97}))
	require.NoError(t, hub.Publish(ctx, Update{Type: TypeBattery, Payload: 96}))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var u map[string]interface{}
	require.NoError(t, json.Unmarshal(msg, &u))
	assert.Equal(t, TypeBattery, u["type"])
	assert.Equal(t, 96.0, u["payload"])

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hub.Publish(ctx, Update{Type: TypeElapsed, Payload: ElapsedPayload{Seconds: 5, Display: "00:05"}}))

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"display":"00:05"`)
}

func TestHub_ReplayNeverFollowsNewerUpdate(t *testing.T) {
	hub := NewHub(zap.NewNop())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, Update{Type: TypeBattery, Payload: 100}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for level := 99; level >= 0; level-- {
			_ = hub.Publish(ctx, Update{Type: TypeBattery, Payload: level})
		}
	}()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	<-done
	require.NoError(t, hub.Publish(ctx, Update{Type: TypeBattery, Payload: -1}))

	last := 101.0
	for {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var u struct {
			Payload float64 `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(msg, &u))
		require.LessOrEqual(t, u.Payload, last, "received an older battery level after a newer one")
		last = u.Payload
		if u.Payload == -1 {
			break
		}
	}
}

type fakeNATS struct {
	subjects []string
	data     [][]byte
}

func (f *fakeNATS) Publish(subj string, data []byte) error {
	f.subjects = append(f.subjects, subj)
	f.data = append(f.data, data)
	return nil
}

func TestNATSPublisher_SubjectPerType(t *testing.T) {
	conn := &fakeNATS{}
	p := NewNATSPublisher(conn, "radmon")

	require.NoError(t, p.Publish(context.Background(), Update{Type: TypeReading, Payload: ReadingPayload{Value: 1.5, Severity: models.SeverityDanger}}))

	assert.Equal(t, []string{"radmon.reading"}, conn.subjects)
	assert.Contains(t, string(conn.data[0]), `"severity":"danger"`)
	assert.Equal(t, "chart", NewNATSPublisher(conn, "").Subject(TypeChart))
}

func TestLiveCache_StoresLatestWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewLiveCache(client, "radmon:live", 10*time.Second)
	ctx := context.Background()

	require.NoError(t, cache.Publish(ctx, Update{Type: TypeBattery, Payload: 99}))
	require.NoError(t, cache.Publish(ctx, Update{Type: TypeBattery, Payload: 98}))
	require.NoError(t, cache.Publish(ctx, Update{Type: TypeStabilization, Payload: 200}))

	assert.JSONEq(t, "98", mr.HGet("radmon:live", TypeBattery))
	assert.JSONEq(t, "200", mr.HGet("radmon:live", TypeStabilization))
	assert.Equal(t, 10*time.Second, mr.TTL("radmon:live"))
}
