package physics

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/oriys/physlab/internal/domain"
)

// TestParseParams 测试各种 JSON 值的解析规则
func TestParseParams(t *testing.T) {
	fields := []Field{
		{Key: "m", Label: "Mass", Required: true},
		{Key: "v", Label: "Velocity"},
		{Key: "g", Label: "Gravity", Default: defaultValue(9.8)},
	}

	tests := []struct {
		name    string
		raw     map[string]any
		want    map[string]float64
		wantMsg string
	}{
		// 数值
		{name: "numbers", raw: map[string]any{"m": 2.0, "v": 3}, want: map[string]float64{"m": 2, "v": 3, "g": 9.8}},
		// 数字字符串，带空白
		{name: "numeric strings", raw: map[string]any{"m": " 2.5 ", "v": "-1e2"}, want: map[string]float64{"m": 2.5, "v": -100, "g": 9.8}},
		// 空字符串和 null 视为未提供
		{name: "blank and null", raw: map[string]any{"m": 1, "v": "", "g": nil}, want: map[string]float64{"m": 1, "g": 9.8}},
		// 空白字符串同样使用默认值
		{name: "blank uses default", raw: map[string]any{"m": 1, "g": "  "}, want: map[string]float64{"m": 1, "g": 9.8}},
		// 显式提供的值覆盖默认值
		{name: "explicit overrides default", raw: map[string]any{"m": 1, "g": "1.6"}, want: map[string]float64{"m": 1, "g": 1.6}},
		// json.Number
		{name: "json number", raw: map[string]any{"m": json.Number("4"), "g": json.Number("10")}, want: map[string]float64{"m": 4, "g": 10}},
		// 必填项缺失
		{name: "missing required", raw: map[string]any{"v": 1}, wantMsg: "Mass cannot be empty!"},
		// 必填项为空串
		{name: "blank required", raw: map[string]any{"m": "   "}, wantMsg: "Mass cannot be empty!"},
		// 非数字
		{name: "not a number", raw: map[string]any{"m": 1, "v": "fast"}, wantMsg: "Velocity must be a valid number!"},
		// 非有限数
		{name: "infinity", raw: map[string]any{"m": "Inf"}, wantMsg: "Mass must be a valid number!"},
		// 布尔值
		{name: "bool", raw: map[string]any{"m": true}, wantMsg: "Mass must be a valid number!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseParams(tt.raw, fields)
			if tt.wantMsg != "" {
				if err == nil {
					t.Fatalf("expected error %q", tt.wantMsg)
				}
				if err.Error() != tt.wantMsg {
					t.Errorf("error = %q, want %q", err.Error(), tt.wantMsg)
				}
				if !errors.Is(err, domain.ErrInvalidInput) {
					t.Errorf("error should wrap ErrInvalidInput")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseParams() error = %v", err)
			}
			got := p.Values()
			if len(got) != len(tt.want) {
				t.Fatalf("values = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

// TestParams_Checks 测试范围校验及错误字段
func TestParams_Checks(t *testing.T) {
	fields := []Field{{Key: "r", Label: "Radius"}, {Key: "x", Label: "X"}}
	p := NewParams(fields, map[string]float64{"r": 0, "x": -1})

	var inputErr *domain.InputError
	if err := p.Positive("r"); !errors.As(err, &inputErr) || inputErr.Field != "r" {
		t.Errorf("Positive(r) = %v", err)
	}
	if err := p.NonNegative("r"); err != nil {
		t.Errorf("NonNegative(r) = %v", err)
	}
	if err := p.NonNegative("x"); err == nil || err.Error() != "X must be non-negative!" {
		t.Errorf("NonNegative(x) = %v", err)
	}
	if err := p.NonZero("r"); !errors.Is(err, domain.ErrDomainViolation) {
		t.Errorf("NonZero(r) = %v", err)
	}
	// 未提供的字段不参与范围校验
	if err := p.Positive("missing"); err != nil {
		t.Errorf("Positive(missing) = %v", err)
	}
	if err := p.Require("missing"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Require(missing) = %v", err)
	}
	if p.Count("r", "x", "missing") != 2 {
		t.Errorf("Count = %d, want 2", p.Count("r", "x", "missing"))
	}
}

// TestSmallestNonNegativeRoot 测试二次方程求根
func TestSmallestNonNegativeRoot(t *testing.T) {
	tests := []struct {
		name    string
		A, B, C float64
		want    float64
		ok      bool
	}{
		{"two positive roots", 1, -5, 6, 2, true},
		{"one negative root", 1, 0, -4, 2, true},
		{"zero root", 1, -3, 0, 0, true},
		{"no real root", 1, 0, 4, 0, false},
		{"both negative", 1, 5, 6, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := smallestNonNegativeRoot(tt.A, tt.B, tt.C)
			if ok != tt.ok || (ok && !approx(got, tt.want)) {
				t.Errorf("got (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}
