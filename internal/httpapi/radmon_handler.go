package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"wisefido-radmon/internal/models"
	"wisefido-radmon/internal/session"

	"go.uber.org/zap"
)

// SessionController 会话控制接口（*session.Controller 实现）
type SessionController interface {
	Start() error
	Stop(ctx context.Context) (*models.HistoryRecord, error)
	Toggle(ctx context.Context) (bool, *models.HistoryRecord, error)
	Snapshot() models.LiveState
	Settings() models.Settings
	PatchSettings(ctx context.Context, patch func(*models.Settings) error) (models.Settings, error)
	Calibrate()
	History(limit int) ([]models.HistoryRecord, models.HistoryStats)
	AllHistory() []models.HistoryRecord
	ClearHistory(ctx context.Context)
	Metrics() session.Metrics
}

// RadmonHandler 检测会话、设置和历史的 HTTP 接口
type RadmonHandler struct {
	ctrl   SessionController
	logger *zap.Logger
}

func NewRadmonHandler(ctrl SessionController, logger *zap.Logger) *RadmonHandler {
	return &RadmonHandler{ctrl: ctrl, logger: logger}
}

// SessionResponse 会话操作响应
type SessionResponse struct {
	State  models.LiveState      `json:"state"`
	Record *models.HistoryRecord `json:"record,omitempty"` // 停止时生成的历史记录
}

// HistoryResponse 历史响应（统计覆盖全部保留记录）
type HistoryResponse struct {
	Records []models.HistoryRecord `json:"records"`
	Stats   models.HistoryStats    `json:"stats"`
}

// GetSession GET /api/v1/session
func (h *RadmonHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, Ok(SessionResponse{State: h.ctrl.Snapshot()}))
}

// StartSession POST /api/v1/session/start
func (h *RadmonHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := h.ctrl.Start(); err != nil {
		if !errors.Is(err, session.ErrSessionActive) {
			h.logger.Error("Failed to start session", zap.Error(err))
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(SessionResponse{State: h.ctrl.Snapshot()}))
}

// StopSession POST /api/v1/session/stop（空闲时为空操作）
func (h *RadmonHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	record, err := h.ctrl.Stop(r.Context())
	if err != nil {
		h.logger.Error("Failed to stop session", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(SessionResponse{State: h.ctrl.Snapshot(), Record: record}))
}

// ToggleSession POST /api/v1/session/toggle
func (h *RadmonHandler) ToggleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	_, record, err := h.ctrl.Toggle(r.Context())
	if err != nil {
		h.logger.Error("Failed to toggle session", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(SessionResponse{State: h.ctrl.Snapshot(), Record: record}))
}

// Settings GET/PUT /api/v1/settings
// PUT 支持部分字段，未提供的字段保持当前值
func (h *RadmonHandler) Settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, Ok(h.ctrl.Settings()))
	case http.MethodPut:
		patch, err := readSettingsPatch(r)
		if err != nil {
			writeError(w, err)
			return
		}
		settings, err := h.ctrl.PatchSettings(r.Context(), patch)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(settings))
	default:
		methodNotAllowed(w)
	}
}

// Calibrate POST /api/v1/settings/calibrate
func (h *RadmonHandler) Calibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	h.ctrl.Calibrate()
	writeJSON(w, http.StatusOK, Ok(SessionResponse{State: h.ctrl.Snapshot()}))
}

// History GET /api/v1/history?limit=N, DELETE /api/v1/history
func (h *RadmonHandler) History(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := parseLimit(r.URL.Query().Get("limit"))
		records, stats := h.ctrl.History(limit)
		writeJSON(w, http.StatusOK, Ok(HistoryResponse{Records: records, Stats: stats}))
	case http.MethodDelete:
		h.ctrl.ClearHistory(r.Context())
		records, stats := h.ctrl.History(0)
		writeJSON(w, http.StatusOK, Ok(HistoryResponse{Records: records, Stats: stats}))
	default:
		methodNotAllowed(w)
	}
}

// ExportHistory GET /api/v1/history/export
func (h *RadmonHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	records := h.ctrl.AllHistory()
	_, stats := h.ctrl.History(0)
	data, err := GenerateHistoryExport(records, stats)
	if err != nil {
		h.logger.Error("Failed to generate history export", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate export: %v", err)))
		return
	}

	filename := fmt.Sprintf("radmon-history-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Metrics GET /api/v1/metrics
func (h *RadmonHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.ctrl.Metrics()))
}
