package alert

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"wisefido-radmon/internal/models"
	"wisefido-radmon/internal/scheduler"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	haptics    bool
	banners    []models.Severity
	dismissed  int
	tones      int
	vibrations [][]int
}

func (r *recordingSink) ShowBanner(severity models.Severity) { r.banners = append(r.banners, severity) }
func (r *recordingSink) PlayTone()                           { r.tones++ }
func (r *recordingSink) Vibrate(pattern []int)               { r.vibrations = append(r.vibrations, pattern) }
func (r *recordingSink) DismissBanner()                      { r.dismissed++ }
func (r *recordingSink) HapticsAvailable() bool              { return r.haptics }

func newTestCoordinator(sink Sink) (*Coordinator, *scheduler.Manual) {
	sched := scheduler.NewManual(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	return NewCoordinator(sink, sched, 3*time.Second, 300*time.Millisecond, zap.NewNop()), sched
}

func TestCoordinator_SafeNeverFires(t *testing.T) {
	sink := &recordingSink{haptics: true}
	c, _ := newTestCoordinator(sink)

	c.Evaluate(models.SeveritySafe, models.DefaultSettings())

	assert.Empty(t, sink.banners)
	assert.Zero(t, sink.tones)
	assert.Empty(t, sink.vibrations)
	assert.False(t, c.BannerActive())
}

func TestCoordinator_BannerDebounceAcrossLevels(t *testing.T) {
	sink := &recordingSink{haptics: true}
	c, sched := newTestCoordinator(sink)
	settings := models.DefaultSettings()

	c.Evaluate(models.SeverityCaution, settings)
	sched.Advance(time.Second)
	c.Evaluate(models.SeverityDanger, settings)

	assert.Equal(t, []models.Severity{models.SeverityCaution}, sink.banners)
	assert.Equal(t, 2, sink.tones)
	assert.Equal(t, [][]int{{100}, {200, 100, 200}}, sink.vibrations)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Banners)
	assert.Equal(t, int64(1), stats.BannersSuppressed)
	assert.Equal(t, int64(2), stats.Vibrations)
}

func TestCoordinator_BannerExpiresAfterDisplayAndTransition(t *testing.T) {
	sink := &recordingSink{}
	c, sched := newTestCoordinator(sink)
	settings := models.DefaultSettings()

	c.Evaluate(models.SeverityDanger, settings)
	require.True(t, c.BannerActive())

	sched.Advance(3 * time.Second)
	assert.Equal(t, 1, sink.dismissed)
	assert.True(t, c.BannerActive(), "banner stays active during the removal transition")

	c.Evaluate(models.SeverityDanger, settings)
	assert.Len(t, sink.banners, 1)

	sched.Advance(300 * time.Millisecond)
	assert.False(t, c.BannerActive())

	c.Evaluate(models.SeverityCaution, settings)
	assert.Equal(t, []models.Severity{models.SeverityDanger, models.SeverityCaution}, sink.banners)
}

func TestCoordinator_TogglesRespected(t *testing.T) {
	sink := &recordingSink{haptics: true}
	c, _ := newTestCoordinator(sink)
	settings := models.DefaultSettings()
	settings.SoundAlerts = false
	settings.VibrationAlerts = false

	c.Evaluate(models.SeverityDanger, settings)

	assert.Len(t, sink.banners, 1)
	assert.Zero(t, sink.tones)
	assert.Empty(t, sink.vibrations)
}

func TestCoordinator_NoVibrationWithoutHaptics(t *testing.T) {
	sink := &recordingSink{haptics: false}
	c, _ := newTestCoordinator(sink)

	c.Evaluate(models.SeverityDanger, models.DefaultSettings())

	assert.Equal(t, 1, sink.tones)
	assert.Empty(t, sink.vibrations)
}

func TestVibrationPattern(t *testing.T) {
	assert.Equal(t, []int{200, 100, 200}, VibrationPattern(models.SeverityDanger))
	assert.Equal(t, []int{100}, VibrationPattern(models.SeverityCaution))
	assert.Nil(t, VibrationPattern(models.SeveritySafe))

	p := VibrationPattern(models.SeverityDanger)
	p[0] = 1
	assert.Equal(t, 200, VibrationPattern(models.SeverityDanger)[0])
}

func TestMultiSink_VibrateOnlyHapticMembers(t *testing.T) {
	withHaptics := &recordingSink{haptics: true}
	without := &recordingSink{haptics: false}
	multi := MultiSink{withHaptics, without, NewLogSink(zap.NewNop())}

	assert.True(t, multi.HapticsAvailable())

	multi.ShowBanner(models.SeverityCaution)
	multi.PlayTone()
	multi.Vibrate([]int{100})
	multi.DismissBanner()

	assert.Len(t, withHaptics.banners, 1)
	assert.Len(t, without.banners, 1)
	assert.Equal(t, 1, without.tones)
	assert.Len(t, withHaptics.vibrations, 1)
	assert.Empty(t, without.vibrations)
	assert.Equal(t, 1, without.dismissed)

	assert.False(t, MultiSink{without}.HapticsAvailable())
}

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

func TestMQTTSink_PublishesAlertEvents(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewMQTTSink(pub, "radmon/alerts", 1, zap.NewNop())

	sink.ShowBanner(models.SeverityDanger)
	sink.Vibrate([]int{200, 100, 200})
	sink.Wait()

	require.Len(t, pub.payloads, 2)
	assert.Equal(t, "radmon/alerts", pub.topics[0])

	kinds := map[string]map[string]interface{}{}
	for _, p := range pub.payloads {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(p, &m))
		kinds[m["kind"].(string)] = m
	}
	require.Contains(t, kinds, KindBanner)
	assert.Equal(t, "danger", kinds[KindBanner]["severity"])
	assert.NotEmpty(t, kinds[KindBanner]["event_id"])
	require.Contains(t, kinds, KindVibrate)
	assert.Equal(t, []interface{}{200.0, 100.0, 200.0}, kinds[KindVibrate]["pattern"])
	assert.True(t, sink.HapticsAvailable())
}

// 模拟重连期间不返回确认的 broker
type stalledPublisher struct {
	calls chan struct{}
}

func (p *stalledPublisher) Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	p.calls <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func TestMQTTSink_StalledBrokerBoundedByTimeout(t *testing.T) {
	pub := &stalledPublisher{calls: make(chan struct{}, 2)}
	sink := NewMQTTSink(pub, "radmon/alerts", 1, zap.NewNop())
	sink.timeout = 50 * time.Millisecond

	sink.PlayTone()
	sink.Vibrate([]int{200, 100, 200})

	done := make(chan struct{})
	go func() {
		sink.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait blocked past the delivery timeout")
	}
	assert.Len(t, pub.calls, 2)
}

func TestStreamSink_AppendsToRedisStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := NewStreamSink(client, "radmon:alerts:stream", 0, zap.NewNop())
	sink.ShowBanner(models.SeverityCaution)
	sink.Wait()

	msgs, err := client.XRange(context.Background(), "radmon:alerts:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var evt map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &evt))
	assert.Equal(t, KindBanner, evt["kind"])
	assert.Equal(t, "caution", evt["severity"])
}

func TestWebhookSink_PostsBannersOnly(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL, zap.NewNop())
	sink.ShowBanner(models.SeverityDanger)
	sink.PlayTone()
	sink.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], `"kind":"banner"`)
	assert.Contains(t, bodies[0], `"severity":"danger"`)
	assert.False(t, sink.HapticsAvailable())
}
