package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oriys/physlab/internal/domain"
	"github.com/oriys/physlab/internal/history"
)

// ListHistory 返回计算历史，按写入顺序排列。
// HTTP端点: GET /api/history
//
// 查询参数:
//   - module: 按模块显示名称过滤（大小写不敏感）
//   - limit: 只返回最近的 N 条
//
// 响应体是一个 JSON 数组，没有记录时返回 []。
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := parseHistoryFilter(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if h.store == nil {
		writeJSON(w, http.StatusOK, []*domain.HistoryEntry{})
		return
	}

	entries, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logError(r, "ListHistory", "Failed to list history", err, nil)
		writeError(w, r, http.StatusInternalServerError, "failed to read history")
		return
	}
	if entries == nil {
		entries = []*domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ClearHistory 清空全部计算历史。
// HTTP端点: POST /api/history/clear
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Clear(r.Context()); err != nil {
			h.logError(r, "ClearHistory", "Failed to clear history", err, nil)
			writeError(w, r, http.StatusInternalServerError, "failed to clear history")
			return
		}
	}
	if h.metrics != nil {
		h.metrics.UpdateHistoryStats(0, nil)
	}
	h.logInfo(r, "ClearHistory", "History cleared", logrus.Fields{"driver": h.driver})
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Stats 返回历史记录统计。
// HTTP端点: GET /api/v1/stats
//
// 响应: {"total": 12, "by_module": {"Kinematics": 4, ...}}
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, &domain.HistoryStats{ByModule: map[string]int{}})
		return
	}
	stats, err := history.Stats(r.Context(), h.store)
	if err != nil {
		h.logError(r, "Stats", "Failed to compute history stats", err, nil)
		writeError(w, r, http.StatusInternalServerError, "failed to read history")
		return
	}
	if h.metrics != nil {
		h.metrics.UpdateHistoryStats(stats.Total, stats.ByModule)
	}
	writeJSON(w, http.StatusOK, stats)
}

// parseHistoryFilter 解析 module 和 limit 查询参数
func parseHistoryFilter(r *http.Request) (domain.HistoryFilter, error) {
	q := r.URL.Query()
	filter := domain.HistoryFilter{Module: strings.TrimSpace(q.Get("module"))}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, domain.NewInvalidInput("limit", "limit must be a non-negative integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}
