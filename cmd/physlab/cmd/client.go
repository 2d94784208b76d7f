package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/oriys/physlab/internal/domain"
	"github.com/oriys/physlab/internal/telemetry"
	"github.com/oriys/physlab/internal/units"
)

// Client 是物理计算服务的 API 客户端，使用 HTTP/JSON 协议。
type Client struct {
	baseURL    string
	apiKey     string
	token      string
	httpClient *http.Client
}

// NewClient 从 viper 配置中读取 api_url、api_key 和 token 创建客户端。
// 默认地址为 http://localhost:8080，超时 30 秒。
func NewClient() *Client {
	baseURL := strings.TrimRight(viper.GetString("api_url"), "/")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  viper.GetString("api_key"),
		token:   viper.GetString("token"),
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: telemetry.HTTPClientTransport(http.DefaultTransport),
		},
	}
}

// SolveResult 计算类接口的响应
type SolveResult struct {
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data"`
	Steps     []string       `json:"steps,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// ConvertRequest 单位换算请求
type ConvertRequest struct {
	Type     string  `json:"type"`
	Value    float64 `json:"value"`
	FromUnit string  `json:"from_unit"`
	ToUnit   string  `json:"to_unit"`
}

// TokenResponse 令牌签发响应
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
}

// APIError 表示 API 返回的错误响应。
type APIError struct {
	Code      int    `json:"-"`
	Message   string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("API error %d: %s", e.Code, e.Message))
	if e.Field != "" {
		sb.WriteString(fmt.Sprintf(" (field: %s)", e.Field))
	}
	if e.RequestID != "" {
		sb.WriteString(fmt.Sprintf("\n  Request ID: %s", e.RequestID))
	}
	return sb.String()
}

// do 执行 HTTP 请求并处理响应。
func (c *Client) do(method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			apiErr.Code = resp.StatusCode
			return &apiErr
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// ====== 计算 ======

// Solve 求解一个物理模块
func (c *Client) Solve(module string, params map[string]any) (*SolveResult, error) {
	var out SolveResult
	if err := c.do("POST", "/api/"+url.PathEscape(module), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Calculate 计算科学计算器表达式
func (c *Client) Calculate(expression string) (*SolveResult, error) {
	var out SolveResult
	if err := c.do("POST", "/api/calculator", map[string]string{"expression": expression}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Convert 单位换算
func (c *Client) Convert(req *ConvertRequest) (*SolveResult, error) {
	var out SolveResult
	if err := c.do("POST", "/api/converter", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ====== 目录 ======

func (c *Client) ListModules() ([]domain.ModuleInfo, error) {
	var result struct {
		Modules []domain.ModuleInfo `json:"modules"`
	}
	if err := c.do("GET", "/api/v1/modules", nil, &result); err != nil {
		return nil, err
	}
	return result.Modules, nil
}

func (c *Client) GetModule(name string) (*domain.ModuleInfo, error) {
	var info domain.ModuleInfo
	if err := c.do("GET", "/api/v1/modules/"+url.PathEscape(name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) ListUnits() ([]units.Category, error) {
	var result struct {
		Categories []units.Category `json:"categories"`
	}
	if err := c.do("GET", "/api/v1/units", nil, &result); err != nil {
		return nil, err
	}
	return result.Categories, nil
}

// ====== 历史 ======

// ListHistory 查询计算历史，module 为空表示全部，limit<=0 表示不限制
func (c *Client) ListHistory(module string, limit int) ([]*domain.HistoryEntry, error) {
	q := url.Values{}
	if module != "" {
		q.Set("module", module)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var entries []*domain.HistoryEntry
	if err := c.do("GET", path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) ClearHistory() error {
	return c.do("POST", "/api/history/clear", nil, nil)
}

func (c *Client) GetStats() (*domain.HistoryStats, error) {
	var stats domain.HistoryStats
	if err := c.do("GET", "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// IssueToken 用 API Key 换取 JWT
func (c *Client) IssueToken(key string) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.do("POST", "/api/v1/auth/token", map[string]string{"api_key": key}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
