package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 websocket hub）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterRadmonRoutes 注册检测会话、设置和历史路由
func (r *Router) RegisterRadmonRoutes(h *RadmonHandler) {
	// session
	r.Handle("/api/v1/session", h.GetSession)
	r.Handle("/api/v1/session/start", h.StartSession)
	r.Handle("/api/v1/session/stop", h.StopSession)
	r.Handle("/api/v1/session/toggle", h.ToggleSession)

	// settings
	r.Handle("/api/v1/settings", h.Settings)
	r.Handle("/api/v1/settings/calibrate", h.Calibrate)

	// history
	r.Handle("/api/v1/history", h.History)
	r.Handle("/api/v1/history/export", h.ExportHistory)

	r.Handle("/api/v1/metrics", h.Metrics)
}

// RegisterLiveRoutes 注册实时推送 websocket
func (r *Router) RegisterLiveRoutes(hub http.Handler) {
	r.HandleHandler("/ws", hub)
}

// RegisterLogLevelRoute GET/PUT /api/v1/log/level（zap.AtomicLevel）
func (r *Router) RegisterLogLevelRoute(level http.Handler) {
	r.HandleHandler("/api/v1/log/level", level)
}

// HealthFunc 返回各组件状态，合并到 /health 响应中
type HealthFunc func() map[string]interface{}

// RegisterHealthRoutes 健康检查；components 可为 nil
func (r *Router) RegisterHealthRoutes(components HealthFunc) {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		body := map[string]interface{}{"status": "ok"}
		if components != nil {
			for k, v := range components() {
				body[k] = v
			}
		}
		writeJSON(w, http.StatusOK, Ok(body))
	})
}
