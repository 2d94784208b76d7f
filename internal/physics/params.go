package physics

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/oriys/physlab/internal/domain"
)

// Field 描述模块的一个输入字段。
type Field struct {
	// Key 请求 JSON 中的键名
	Key string
	// Label 面向用户的字段名称，用于错误提示
	Label string
	// Unit 单位
	Unit string
	// Default 未提供时使用的默认值，nil 表示没有默认值
	Default *float64
	// Required 是否必填
	Required bool
}

func defaultValue(v float64) *float64 { return &v }

// Params 是解析后的输入集合。
// 只有请求中实际提供（或带默认值）的字段才会出现在 values 中，
// 求解器通过 Has 判断某个变量是否已知。
type Params struct {
	values map[string]float64
	labels map[string]string
}

// NewParams 直接由数值构造 Params，主要供测试和 CLI 使用。
func NewParams(fields []Field, values map[string]float64) *Params {
	p := &Params{values: make(map[string]float64, len(values)), labels: labelsOf(fields)}
	for k, v := range values {
		p.values[k] = v
	}
	return p
}

func labelsOf(fields []Field) map[string]string {
	labels := make(map[string]string, len(fields))
	for _, f := range fields {
		labels[f.Key] = f.Label
	}
	return labels
}

// ParseParams 按字段定义解析原始 JSON 输入。
// 数值与数字字符串均可接受；null、空串和纯空白视为未提供；
// 无法解析的字符串返回 "<Label> must be a valid number!"。
// 未声明的键被忽略；字段未提供（缺失、null 或空白）时使用默认值。
func ParseParams(raw map[string]any, fields []Field) (*Params, error) {
	p := &Params{values: make(map[string]float64, len(fields)), labels: labelsOf(fields)}

	for _, f := range fields {
		v, present, err := parseValue(raw[f.Key])
		if err != nil {
			return nil, domain.NewInvalidInput(f.Key, fmt.Sprintf("%s must be a valid number!", f.Label))
		}
		switch {
		case present:
			p.values[f.Key] = v
		case f.Default != nil:
			p.values[f.Key] = *f.Default
		case f.Required:
			return nil, domain.NewInvalidInput(f.Key, fmt.Sprintf("%s cannot be empty!", f.Label))
		}
	}
	return p, nil
}

// parseValue 将单个 JSON 值转换为 float64。
func parseValue(raw any) (value float64, present bool, err error) {
	switch v := raw.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return checkFinite(v)
	case float32:
		return checkFinite(float64(v))
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false, err
		}
		return checkFinite(f)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, err
		}
		return checkFinite(f)
	default:
		return 0, false, fmt.Errorf("unsupported type %T", raw)
	}
}

func checkFinite(f float64) (float64, bool, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("not a finite number")
	}
	return f, true, nil
}

// Has 判断变量是否已知。
func (p *Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Get 返回变量的值，未知变量返回 0。
func (p *Params) Get(key string) float64 {
	return p.values[key]
}

// Count 返回 keys 中已知变量的个数。
func (p *Params) Count(keys ...string) int {
	n := 0
	for _, k := range keys {
		if p.Has(k) {
			n++
		}
	}
	return n
}

// Values 返回全部已知变量的副本。
func (p *Params) Values() map[string]float64 {
	out := make(map[string]float64, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

func (p *Params) label(key string) string {
	if l, ok := p.labels[key]; ok {
		return l
	}
	return key
}

// Require 要求所有 keys 均已提供。
func (p *Params) Require(keys ...string) error {
	for _, k := range keys {
		if !p.Has(k) {
			return domain.NewInvalidInput(k, fmt.Sprintf("%s cannot be empty!", p.label(k)))
		}
	}
	return nil
}

// Positive 要求已提供的 keys 严格大于零。
func (p *Params) Positive(keys ...string) error {
	for _, k := range keys {
		if p.Has(k) && p.Get(k) <= 0 {
			return domain.NewDomainViolation(k, fmt.Sprintf("%s must be positive!", p.label(k)))
		}
	}
	return nil
}

// NonNegative 要求已提供的 keys 大于等于零。
func (p *Params) NonNegative(keys ...string) error {
	for _, k := range keys {
		if p.Has(k) && p.Get(k) < 0 {
			return domain.NewDomainViolation(k, fmt.Sprintf("%s must be non-negative!", p.label(k)))
		}
	}
	return nil
}

// NonZero 要求已提供的 keys 不为零。
func (p *Params) NonZero(keys ...string) error {
	for _, k := range keys {
		if p.Has(k) && p.Get(k) == 0 {
			return domain.NewDomainViolation(k, fmt.Sprintf("%s cannot be zero!", p.label(k)))
		}
	}
	return nil
}

// firstErr 返回第一个非 nil 错误。
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
