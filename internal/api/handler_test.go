package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/oriys/physlab/internal/auth"
	"github.com/oriys/physlab/internal/config"
	"github.com/oriys/physlab/internal/domain"
	"github.com/oriys/physlab/internal/history"
	"github.com/oriys/physlab/internal/metrics"
)

// failingStore 写入总是失败的历史存储
type failingStore struct {
	history.Store
}

func (failingStore) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	return domain.ErrStorageConnection
}

// recordingPublisher 记录发布的事件，err 不为空时模拟发布失败
type recordingPublisher struct {
	mu        sync.Mutex
	published []*domain.HistoryEntry
	err       error
}

func (p *recordingPublisher) PublishCalculation(ctx context.Context, entry *domain.HistoryEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, entry)
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type testEnv struct {
	store   history.Store
	hub     *StreamHub
	handler *Handler
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := history.NewMemoryStore()
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test")
	hub := NewStreamHub(store, m, testLogger())
	t.Cleanup(hub.Close)
	h := NewHandler(HandlerConfig{
		Store:   store,
		Driver:  config.DriverMemory,
		Hub:     hub,
		Metrics: m,
		Logger:  testLogger(),
	})
	return &testEnv{
		store:   store,
		hub:     hub,
		handler: h,
		router:  NewRouter(&RouterConfig{Handler: h, Hub: hub, Logger: testLogger()}),
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/health", "/health/ready", "/health/live"} {
		if rec := env.do(t, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestSolve(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		body      string
		wantCode  int
		wantData  map[string]float64
		wantError string
		wantField string
	}{
		{
			name:     "欧姆定律求电流",
			path:     "/api/ohms_law",
			body:     `{"V": 10, "R": "5"}`,
			wantCode: http.StatusOK,
			wantData: map[string]float64{"I": 2, "P": 20},
		},
		{
			name:     "别名路径",
			path:     "/api/ohms-law",
			body:     `{"V": 12, "I": 3, "R": ""}`,
			wantCode: http.StatusOK,
			wantData: map[string]float64{"R": 4, "P": 36},
		},
		{
			name:      "输入数量错误",
			path:      "/api/ohms_law",
			body:      `{"V": 1, "I": 2, "R": 3}`,
			wantCode:  http.StatusBadRequest,
			wantError: "Please enter exactly 2 values!",
		},
		{
			name:      "非数字输入",
			path:      "/api/momentum",
			body:      `{"m1": "abc", "v1": 1, "m2": 1, "v2": 1}`,
			wantCode:  http.StatusBadRequest,
			wantError: "Mass 1 must be a valid number!",
			wantField: "m1",
		},
		{
			name:      "缺少必填项",
			path:      "/api/momentum",
			body:      `{"v1": 1, "m2": 1, "v2": 1}`,
			wantCode:  http.StatusBadRequest,
			wantError: "Mass 1 cannot be empty!",
			wantField: "m1",
		},
		{
			name:     "未知模块",
			path:     "/api/relativity",
			body:     `{}`,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "请求体不是对象",
			path:     "/api/ohms_law",
			body:     `[1, 2]`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			resp := decodeResponse(t, rec)
			if resp.Success != (tt.wantCode == http.StatusOK) {
				t.Errorf("success = %v", resp.Success)
			}
			if tt.wantError != "" && resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
			if resp.Field != tt.wantField {
				t.Errorf("field = %q, want %q", resp.Field, tt.wantField)
			}
			for key, want := range tt.wantData {
				got, ok := resp.Data[key].(float64)
				if !ok || math.Abs(got-want) > 1e-9 {
					t.Errorf("data[%s] = %v, want %v", key, resp.Data[key], want)
				}
			}

			n, _ := env.store.Count(context.Background())
			if tt.wantCode == http.StatusOK && n != 1 {
				t.Errorf("history count = %d, want 1", n)
			}
			if tt.wantCode != http.StatusOK && n != 0 {
				t.Errorf("failed calculation was recorded")
			}
		})
	}
}

func TestSolve_RecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/ohms_law", `{"V": 10, "R": 5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if len(resp.Steps) == 0 {
		t.Error("expected solution steps")
	}

	entries, _ := env.store.List(context.Background(), domain.HistoryFilter{})
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	entry := entries[0]
	if entry.Module != "Ohm's Law" {
		t.Errorf("module = %q", entry.Module)
	}
	if entry.Inputs["V"] != 10.0 || entry.Inputs["R"] != 5.0 {
		t.Errorf("inputs = %v", entry.Inputs)
	}
	if entry.Outputs["I"] != 2.0 {
		t.Errorf("outputs = %v", entry.Outputs)
	}
	if entry.Time().IsZero() {
		t.Errorf("timestamp %q not parseable", entry.Timestamp)
	}
}

func TestCalculator(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		want     float64
	}{
		{"四则运算", `{"expression": "2 + 3 * 4"}`, http.StatusOK, 14},
		{"空表达式", `{"expression": ""}`, http.StatusOK, 0},
		{"语法错误", `{"expression": "2 +"}`, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/api/calculator", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			resp := decodeResponse(t, rec)
			if got := resp.Data["result"].(float64); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("result = %v, want %v", got, tt.want)
			}
			entries, _ := env.store.List(context.Background(), domain.HistoryFilter{Module: CalculatorTitle})
			if len(entries) != 1 {
				t.Errorf("calculator entries = %d", len(entries))
			}
		})
	}
}

func TestConverter(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/converter", `{"value": 10, "from_unit": "m/s", "to_unit": "km/h"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if got := resp.Data["result"].(float64); math.Abs(got-36) > 1e-9 {
		t.Errorf("result = %v", got)
	}
	if resp.Data["from"] != "10 m/s" {
		t.Errorf("from = %v", resp.Data["from"])
	}

	errorCases := []struct {
		name string
		body string
	}{
		{"未知单位", `{"type": "speed", "value": 1, "from_unit": "furlong", "to_unit": "m/s"}`},
		{"未知类别", `{"type": "luminosity", "value": 1, "from_unit": "cd", "to_unit": "cd"}`},
		{"缺少数值", `{"type": "speed", "from_unit": "m/s", "to_unit": "km/h"}`},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := env.do(t, http.MethodPost, "/api/converter", tc.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
			}
		})
	}

	entries, _ := env.store.List(context.Background(), domain.HistoryFilter{Module: ConverterTitle})
	if len(entries) != 1 {
		t.Errorf("converter entries = %d, want 1", len(entries))
	}
}

func TestHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t)
	for _, body := range []string{`{"V": 10, "R": 5}`, `{"V": 9, "R": 3}`} {
		env.do(t, http.MethodPost, "/api/ohms_law", body)
	}
	env.do(t, http.MethodPost, "/api/calculator", `{"expression": "1+1"}`)

	list := func(path string) []*domain.HistoryEntry {
		t.Helper()
		rec := env.do(t, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
		var entries []*domain.HistoryEntry
		if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
			t.Fatal(err)
		}
		return entries
	}

	if got := list("/api/history"); len(got) != 3 {
		t.Errorf("all = %d, want 3", len(got))
	}
	if got := list("/api/history?module=ohm's%20law"); len(got) != 2 {
		t.Errorf("filtered = %d, want 2", len(got))
	}
	got := list("/api/history?limit=1")
	if len(got) != 1 || got[0].Module != CalculatorTitle {
		t.Errorf("limit=1 returned %+v", got)
	}
	if rec := env.do(t, http.MethodGet, "/api/history?limit=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid limit status = %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/stats", "")
	var stats domain.HistoryStats
	json.Unmarshal(rec.Body.Bytes(), &stats)
	if stats.Total != 3 || stats.ByModule["Ohm's Law"] != 2 {
		t.Errorf("stats = %+v", stats)
	}

	if rec := env.do(t, http.MethodPost, "/api/history/clear", ""); rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/history", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("cleared history = %s, want []", rec.Body.String())
	}
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/modules", "")
	var catalog struct {
		Modules []domain.ModuleInfo `json:"modules"`
	}
	json.Unmarshal(rec.Body.Bytes(), &catalog)
	if len(catalog.Modules) == 0 {
		t.Fatal("empty module catalog")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/modules/OHMS-LAW", "")
	var info domain.ModuleInfo
	json.Unmarshal(rec.Body.Bytes(), &info)
	if rec.Code != http.StatusOK || info.Key != "ohms_law" || len(info.Fields) != 3 {
		t.Errorf("module info = %d %+v", rec.Code, info)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/modules/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown module status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/units", ""); !strings.Contains(rec.Body.String(), "km/h") {
		t.Errorf("units = %s", rec.Body.String())
	}
}

func TestRecord(t *testing.T) {
	t.Run("写入失败不影响响应", func(t *testing.T) {
		h := NewHandler(HandlerConfig{Store: failingStore{}, Driver: "file", Logger: testLogger()})
		rec := httptest.NewRecorder()
		h.Calculator(rec, httptest.NewRequest(http.MethodPost, "/api/calculator", strings.NewReader(`{"expression": "1+1"}`)))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("事件发布", func(t *testing.T) {
		pub := &recordingPublisher{}
		hub := NewStreamHub(nil, nil, testLogger())
		ch := make(chan *domain.HistoryEntry, 1)
		hub.Subscribe(ch)
		h := NewHandler(HandlerConfig{Store: history.NewMemoryStore(), Events: pub, Hub: hub, Logger: testLogger()})

		h.Calculator(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"expression": "1"}`)))
		if len(pub.published) != 1 {
			t.Errorf("published = %d", len(pub.published))
		}
		select {
		case <-ch:
			t.Error("hub should be fed by the event subscription when publishing succeeds")
		default:
		}
	})

	t.Run("发布失败回退到本地推送", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("nats down")}
		hub := NewStreamHub(nil, nil, testLogger())
		ch := make(chan *domain.HistoryEntry, 1)
		hub.Subscribe(ch)
		h := NewHandler(HandlerConfig{Store: history.NewMemoryStore(), Events: pub, Hub: hub, Logger: testLogger()})

		h.Calculator(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"expression": "1"}`)))
		select {
		case entry := <-ch:
			if entry.Module != CalculatorTitle {
				t.Errorf("module = %q", entry.Module)
			}
		default:
			t.Error("expected local broadcast")
		}
	})
}

func TestStreamHub_WebSocket(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/calculator", `{"expression": "40 + 2"}`)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/history/stream?replay=5&module=ohm's%20law"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// 等待订阅完成
	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Post(srv.URL+"/api/ohms_law", "application/json", bytes.NewBufferString(`{"V": 10, "R": 5}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var entry domain.HistoryEntry
	if err := conn.ReadJSON(&entry); err != nil {
		t.Fatalf("read: %v", err)
	}
	// 计算器记录被 module 过滤掉，第一条应是欧姆定律
	if entry.Module != "Ohm's Law" {
		t.Errorf("module = %q", entry.Module)
	}
}

// racingStore 在读取积压记录前写入并广播一条新记录，模拟订阅与回放之间的写入
type racingStore struct {
	history.Store
	hub   *StreamHub
	entry *domain.HistoryEntry
	once  sync.Once
}

func (s *racingStore) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.HistoryEntry, error) {
	s.once.Do(func() {
		s.Store.Append(ctx, s.entry)
		s.hub.Broadcast(s.entry)
	})
	return s.Store.List(ctx, filter)
}

func TestStreamHub_ReplayNoDuplicates(t *testing.T) {
	mem := history.NewMemoryStore()
	first := domain.NewHistoryEntry("Energy", map[string]any{"m": 1.0}, map[string]any{"KE": 2.0})
	mem.Append(context.Background(), first)

	store := &racingStore{Store: mem}
	hub := NewStreamHub(store, nil, testLogger())
	defer hub.Close()
	store.hub = hub
	store.entry = domain.NewHistoryEntry("Momentum", map[string]any{"m1": 1.0}, map[string]any{"p1": 3.0})

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"?replay=10", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// 回放完成后再广播一条，用于确认没有重复记录插在中间
	last := domain.NewHistoryEntry("Optics", map[string]any{"f": 1.0}, map[string]any{"v": 2.0})

	var got []string
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for len(got) < 3 {
		var entry domain.HistoryEntry
		if err := conn.ReadJSON(&entry); err != nil {
			t.Fatalf("read: %v (got %v)", err, got)
		}
		got = append(got, entry.Module)
		if len(got) == 2 {
			hub.Broadcast(last)
		}
	}

	want := []string{"Energy", "Momentum", "Optics"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("modules = %v, want %v", got, want)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test")
	rl := NewRateLimiter(2, time.Minute, m)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/calculator", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Error("missing Retry-After")
		}
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	// 其它 IP 不受影响
	req := httptest.NewRequest(http.MethodPost, "/api/calculator", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("other ip status = %d", rec.Code)
	}
}

func TestIssueToken(t *testing.T) {
	key, hash, _ := auth.GenerateAPIKey()
	ring := auth.NewKeyRing([]config.APIKeyConfig{{Name: "ops", Hash: hash, Role: auth.RoleAdmin}})
	jwtm := auth.NewJWTManager("secret", time.Hour)
	h := NewHandler(HandlerConfig{Store: history.NewMemoryStore(), JWT: jwtm, Keys: ring, Logger: testLogger()})
	mw := auth.NewMiddleware(jwtm, "", ring, true)
	router := NewRouter(&RouterConfig{Handler: h, Auth: mw})

	post := func(path, body string, header http.Header) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		for k, v := range header {
			req.Header[k] = v
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := post("/api/v1/auth/token", `{"api_key": "`+key+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("token status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Token == "" || out.Role != auth.RoleAdmin {
		t.Fatalf("token response = %+v", out)
	}

	tests := []struct {
		name   string
		header http.Header
		want   int
	}{
		{"JWT 清空历史", http.Header{"Authorization": {"Bearer " + out.Token}}, http.StatusOK},
		{"API Key 清空历史", http.Header{"X-Api-Key": {key}}, http.StatusOK},
		{"未认证", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := post("/api/history/clear", "", tt.header); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if rec := post("/api/v1/auth/token", `{"api_key": "pl_bad"}`, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad key status = %d", rec.Code)
	}
}
