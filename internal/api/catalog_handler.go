package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/oriys/physlab/internal/auth"
	"github.com/oriys/physlab/internal/domain"
	"github.com/oriys/physlab/internal/units"
)

// ListModules 返回全部计算模块及其输入字段。
// HTTP端点: GET /api/v1/modules
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	modules := h.registry.Modules()
	infos := make([]domain.ModuleInfo, 0, len(modules))
	for _, m := range modules {
		infos = append(infos, m.Info())
	}
	writeJSON(w, http.StatusOK, map[string]any{"modules": infos})
}

// GetModule 返回单个模块的说明，支持别名。
// HTTP端点: GET /api/v1/modules/{module}
func (h *Handler) GetModule(w http.ResponseWriter, r *http.Request) {
	m, err := h.registry.Lookup(chi.URLParam(r, "module"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Info())
}

// ListUnits 返回单位换算支持的类别和单位。
// HTTP端点: GET /api/v1/units
func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": units.Categories()})
}

// tokenRequest 令牌签发请求
type tokenRequest struct {
	APIKey string `json:"api_key"`
}

// IssueToken 用 API Key 换取短期 JWT。
// HTTP端点: POST /api/v1/auth/token
//
// API Key 可以放在请求体的 api_key 字段，也可以放在 X-API-Key 请求头。
// 响应: {"token": "...", "expires_at": "...", "role": "admin"}
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if h.jwt == nil || h.keys == nil {
		writeError(w, r, http.StatusBadRequest, "authentication is not enabled")
		return
	}

	body, err := decodeBody(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	req := tokenRequest{APIKey: stringField(body, "api_key")}
	if req.APIKey == "" {
		req.APIKey = strings.TrimSpace(r.Header.Get("X-API-Key"))
	}
	if req.APIKey == "" {
		writeError(w, r, http.StatusBadRequest, "api_key is required")
		return
	}

	user, err := h.keys.ValidateAPIKey(req.APIKey)
	if err != nil {
		h.logWarn(r, "IssueToken", "Rejected token request", logrus.Fields{"remote": clientIP(r)})
		writeError(w, r, http.StatusUnauthorized, "invalid api key")
		return
	}

	token, expiresAt, err := h.jwt.Generate(user.UserID, user.Role)
	if err != nil {
		h.logError(r, "IssueToken", "Failed to sign token", err, nil)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logInfo(r, "IssueToken", "Token issued", logrus.Fields{"subject": user.UserID, "role": user.Role})
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt,
		"role":       user.Role,
	})
}

// Whoami 返回当前请求的认证身份，认证未启用时返回匿名身份。
// HTTP端点: GET /api/v1/auth/whoami
func (h *Handler) Whoami(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]string{"user": "anonymous"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user":   user.UserID,
		"role":   user.Role,
		"method": user.Method,
	})
}
