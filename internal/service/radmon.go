package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"wisefido-radmon/internal/alert"
	"wisefido-radmon/internal/config"
	"wisefido-radmon/internal/consumer"
	"wisefido-radmon/internal/database"
	"wisefido-radmon/internal/httpapi"
	"wisefido-radmon/internal/models"
	mqttcommon "wisefido-radmon/internal/mqtt"
	rediscommon "wisefido-radmon/internal/redis"
	"wisefido-radmon/internal/render"
	"wisefido-radmon/internal/repository"
	"wisefido-radmon/internal/scheduler"
	"wisefido-radmon/internal/session"
	"wisefido-radmon/internal/signal"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	alertStreamMaxLen = 1000
	broadcastQueue    = 256
)

// RadmonService 辐射监测服务（整合各层）
type RadmonService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client
	natsConn    *nats.Conn
	logger      *zap.Logger

	// 各层组件
	controller   *session.Controller
	coordinator  *alert.Coordinator
	hub          *render.Hub
	broadcasters []*render.Broadcaster
	consumer     *consumer.MQTTConsumer
	waiters      []interface{ Wait() }
	router       *httpapi.Router
	server       *http.Server

	stopOnce sync.Once
}

// NewRadmonService 创建监测服务
// 外部依赖（Redis、PostgreSQL、MQTT、NATS）连接失败时记录日志并降级，不阻止服务启动
// level 为 logger 的运行时级别，通过 /api/v1/log/level 调整
func NewRadmonService(cfg *config.Config, logger *zap.Logger, level zap.AtomicLevel) (*RadmonService, error) {
	s := &RadmonService{
		config: cfg,
		logger: logger,
	}
	ctx := context.Background()

	// 1. 连接外部依赖
	s.connectRedis(ctx)
	if cfg.Radmon.Storage == "postgres" {
		s.connectPostgres(ctx)
	}
	if cfg.MQTT.Enabled {
		client, err := mqttcommon.NewClient(&cfg.MQTT, logger)
		if err != nil {
			logger.Warn("MQTT unavailable, device transport disabled", zap.Error(err))
		} else {
			s.mqttClient = client
		}
	}
	if cfg.NATS.Enabled {
		conn, err := render.ConnectNATS(cfg.NATS.URL, "wisefido-radmon")
		if err != nil {
			logger.Warn("NATS unavailable, live publishing disabled", zap.Error(err))
		} else {
			s.natsConn = conn
		}
	}

	defaults := settingsFromConfig(cfg)
	if err := defaults.Validate(); err != nil {
		s.closeConnections()
		return nil, fmt.Errorf("invalid default settings: %w", err)
	}

	// 2. 创建持久化层
	store, err := s.buildStore(ctx, defaults)
	if err != nil {
		s.closeConnections()
		return nil, err
	}

	// 3. 信号来源
	source := s.buildSource()

	// 4. 报警协调器
	sched := scheduler.NewTickerScheduler()
	s.coordinator = alert.NewCoordinator(
		s.buildAlertSinks(),
		sched,
		cfg.Radmon.BannerDisplay,
		cfg.Radmon.BannerTransition,
		logger,
	)

	// 5. 实时推送
	s.hub = render.NewHub(logger)
	renderer := s.buildRenderers()

	// 6. 会话控制器
	s.controller = session.NewController(session.Options{
		TickInterval:         cfg.Radmon.TickInterval,
		MinSessionSeconds:    cfg.Radmon.MinSessionSeconds,
		HistoryCapacity:      cfg.Radmon.HistoryCapacity,
		HistoryPageSize:      cfg.Radmon.HistoryPageSize,
		ChartPoints:          cfg.Radmon.ChartPoints,
		StabilizationSeconds: cfg.Radmon.StabilizationSeconds,
		CalibrationDelay:     cfg.Radmon.CalibrationDelay,
		Defaults:             defaults,
	}, session.Deps{
		Source:    source,
		Renderer:  renderer,
		Alerts:    s.coordinator,
		Store:     store,
		Scheduler: sched,
		Logger:    logger,
	})

	// 7. HTTP
	s.router = httpapi.NewRouter(logger)
	s.router.RegisterRadmonRoutes(httpapi.NewRadmonHandler(s.controller, logger))
	s.router.RegisterLiveRoutes(s.hub)
	s.router.RegisterLogLevelRoute(level)
	s.router.RegisterHealthRoutes(s.health)
	s.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s, nil
}

func (s *RadmonService) connectRedis(ctx context.Context) {
	client, err := rediscommon.Connect(ctx, &s.config.Redis)
	if err != nil {
		s.logger.Warn("Redis unavailable, running without cache", zap.Error(err))
		return
	}
	s.redisClient = client
}

func (s *RadmonService) connectPostgres(ctx context.Context) {
	db, err := database.NewPostgresDB(ctx, &s.config.Database)
	if err != nil {
		s.logger.Warn("PostgreSQL unavailable", zap.Error(err))
		return
	}
	s.db = db
}

func (s *RadmonService) buildStore(ctx context.Context, defaults models.Settings) (repository.PersistentStore, error) {
	switch s.config.Radmon.Storage {
	case "redis":
		if s.redisClient != nil {
			return repository.NewRedisStore(
				repository.NewRedisKVStore(s.redisClient),
				s.config.Radmon.Cache.SettingsKey,
				s.config.Radmon.Cache.HistoryKey,
				defaults,
				s.logger,
			), nil
		}
	case "postgres":
		if s.db != nil {
			store := repository.NewPostgresStore(s.db, defaults, s.logger)
			if err := store.EnsureSchema(ctx); err != nil {
				s.logger.Warn("Failed to ensure radmon schema", zap.Error(err))
				break
			}
			return store, nil
		}
	case "memory":
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", s.config.Radmon.Storage)
	}

	s.logger.Warn("Persistent storage unavailable, falling back to memory",
		zap.String("storage", s.config.Radmon.Storage),
	)
	return repository.NewMemoryStore(), nil
}

func (s *RadmonService) buildSource() signal.Source {
	if s.config.Radmon.Source == "mqtt" {
		if s.mqttClient == nil {
			s.logger.Warn("MQTT source requested but MQTT is unavailable, using simulator")
		} else {
			latest := signal.NewLatestValueSource(s.config.Radmon.ReadingMaxAge)
			s.consumer = consumer.NewMQTTConsumer(
				s.mqttClient,
				latest,
				s.config.Radmon.Topics.Reading,
				s.config.MQTT.QoS,
				s.logger,
			)
			return latest
		}
	}

	seed := s.config.Radmon.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return signal.NewRadiationSim(rand.New(rand.NewSource(seed)), nil)
}

func (s *RadmonService) buildAlertSinks() alert.Sink {
	sinks := alert.MultiSink{alert.NewLogSink(s.logger)}

	if s.mqttClient != nil && s.config.Radmon.Topics.Alert != "" {
		sink := alert.NewMQTTSink(s.mqttClient, s.config.Radmon.Topics.Alert, s.config.MQTT.QoS, s.logger)
		sinks = append(sinks, sink)
		s.waiters = append(s.waiters, sink)
	}
	if s.redisClient != nil && s.config.Radmon.Cache.AlertStream != "" {
		sink := alert.NewStreamSink(s.redisClient, s.config.Radmon.Cache.AlertStream, alertStreamMaxLen, s.logger)
		sinks = append(sinks, sink)
		s.waiters = append(s.waiters, sink)
	}
	if s.config.Radmon.WebhookURL != "" {
		sink := alert.NewWebhookSink(s.config.Radmon.WebhookURL, s.logger)
		sinks = append(sinks, sink)
		s.waiters = append(s.waiters, sink)
	}
	return sinks
}

func (s *RadmonService) buildRenderers() render.Renderer {
	hubCast := render.NewBroadcaster("websocket", s.hub, broadcastQueue, s.logger)
	s.broadcasters = append(s.broadcasters, hubCast)
	renderers := render.Multi{render.NewLogRenderer(s.logger), hubCast}

	if s.redisClient != nil && s.config.Radmon.Cache.LiveKey != "" {
		ttl := time.Duration(s.config.Radmon.Cache.LiveTTL) * time.Second
		cache := render.NewLiveCache(s.redisClient, s.config.Radmon.Cache.LiveKey, ttl)
		b := render.NewBroadcaster("redis", cache, broadcastQueue, s.logger)
		s.broadcasters = append(s.broadcasters, b)
		renderers = append(renderers, b)
	}
	if s.natsConn != nil {
		pub := render.NewNATSPublisher(s.natsConn, s.config.NATS.SubjectPrefix)
		b := render.NewBroadcaster("nats", pub, broadcastQueue, s.logger)
		s.broadcasters = append(s.broadcasters, b)
		renderers = append(renderers, b)
	}
	return renderers
}

func settingsFromConfig(cfg *config.Config) models.Settings {
	d := cfg.Radmon.Defaults
	return models.Settings{
		CautionThreshold: d.CautionThreshold,
		DangerThreshold:  d.DangerThreshold,
		SoundAlerts:      d.SoundAlerts,
		VibrationAlerts:  d.VibrationAlerts,
		Sensitivity:      d.Sensitivity,
	}
}

// health /health 中的组件状态
func (s *RadmonService) health() map[string]interface{} {
	dropped := make(map[string]int64, len(s.broadcasters))
	for _, b := range s.broadcasters {
		dropped[b.Name()] = b.Dropped()
	}
	out := map[string]interface{}{
		"storeDegraded":    s.controller.Degraded(),
		"websocketClients": s.hub.Clients(),
		"droppedUpdates":   dropped,
	}
	if s.mqttClient != nil {
		out["mqtt"] = map[string]interface{}{
			"connected":     s.mqttClient.IsConnected(),
			"subscriptions": s.mqttClient.Subscriptions(),
		}
	}
	return out
}

// Controller 会话控制器
func (s *RadmonService) Controller() *session.Controller {
	return s.controller
}

// Handler HTTP 处理器（API + websocket）
func (s *RadmonService) Handler() http.Handler {
	return s.router
}

// Start 启动服务，阻塞到 ctx 结束或 HTTP 服务出错
func (s *RadmonService) Start(ctx context.Context) error {
	s.logger.Info("Starting radmon service",
		zap.String("addr", s.config.HTTP.Addr),
		zap.String("storage", s.config.Radmon.Storage),
		zap.String("source", s.config.Radmon.Source),
	)

	for _, b := range s.broadcasters {
		b.Start(ctx)
	}

	// 恢复设置和历史
	s.controller.Restore(ctx)

	if s.consumer != nil {
		go func() {
			if err := s.consumer.Start(ctx); err != nil {
				s.logger.Error("MQTT consumer stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown http server", zap.Error(err))
		}
		return nil
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	}
}

// Stop 停止服务：结束当前会话（满足时长则记录历史），然后释放连接
func (s *RadmonService) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping radmon service")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.controller.Stop(ctx); err != nil {
			s.logger.Error("Failed to stop session", zap.Error(err))
		}

		if s.consumer != nil {
			s.consumer.Stop()
		}
		for _, b := range s.broadcasters {
			b.Stop()
		}
		s.hub.Close()
		for _, w := range s.waiters {
			w.Wait()
		}

		s.closeConnections()
	})
	return nil
}

func (s *RadmonService) closeConnections() {
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.natsConn != nil {
		if err := s.natsConn.Drain(); err != nil {
			s.logger.Error("Failed to drain nats", zap.Error(err))
		}
	}

	// 关闭数据库连接
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", zap.Error(err))
		}
	}

	// 关闭 Redis 连接
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis", zap.Error(err))
		}
	}
}
