package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"wisefido-radmon/internal/models"
	"wisefido-radmon/internal/session"
)

const maxBodyBytes = 1 << 16

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 按错误类型映射 HTTP 状态和业务码
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrConfigInvalid):
		writeJSON(w, http.StatusBadRequest, FailCode(ResultInvalidConfig, err.Error()))
	case errors.Is(err, session.ErrSessionActive):
		writeJSON(w, http.StatusConflict, FailCode(ResultSessionActive, err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
	}
}

// parseLimit 解析 ?limit=，缺省或非法时返回 0（使用默认页大小）
func parseLimit(s string) int {
	if s == "" {
		return 0
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0
	}
	return i
}

// readSettingsPatch 读取请求体，返回把其中字段覆盖到设置上的 patch；未知字段视为非法
func readSettingsPatch(r *http.Request) (func(*models.Settings) error, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfigInvalid, err)
	}
	return func(settings *models.Settings) error {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(settings); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %v", models.ErrConfigInvalid, err)
		}
		return nil
	}, nil
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, Fail("method not allowed"))
}
