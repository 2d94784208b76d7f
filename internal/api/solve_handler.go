package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/oriys/physlab/internal/domain"
	"github.com/oriys/physlab/internal/physics"
	"github.com/oriys/physlab/internal/telemetry"
	"github.com/oriys/physlab/internal/units"
)

// 历史记录中非物理模块的显示名称
const (
	CalculatorTitle = "Scientific Calculator"
	ConverterTitle  = "Unit Converter"
)

// valueField 单位换算请求中数值字段的解析规则
var valueField = []physics.Field{{Key: "value", Label: "Value", Required: true}}

// Solve 求解一个物理模块。
// HTTP端点: POST /api/{module}
//
// 请求体为扁平的 JSON 对象，值可以是数字或数字字符串，空字符串视为未提供。
// 成功时返回 {success, data, steps, warnings, request_id}，并写入历史记录。
func (h *Handler) Solve(w http.ResponseWriter, r *http.Request) {
	module, err := h.registry.Lookup(chi.URLParam(r, "module"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	body, err := decodeBody(r)
	if err != nil {
		h.observe(module.Key, time.Now(), err)
		writeDomainError(w, r, err)
		return
	}

	ctx, span := telemetry.StartCalculationSpan(r.Context(), "solve", module.Key)
	start := time.Now()
	result, err := module.Run(body)
	telemetry.EndSpan(span, err)
	h.observe(module.Key, start, err)
	if err != nil {
		h.logDebug(r, "Solve", "Calculation rejected", logrus.Fields{
			"module": module.Key,
			"error":  err.Error(),
		})
		writeDomainError(w, r, err)
		return
	}

	h.record(r.WithContext(ctx), domain.NewHistoryEntry(result.Title, result.Inputs(), result.Data()))

	writeJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      result.Data(),
		Steps:     result.Steps,
		Warnings:  result.Warnings,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// Calculator 计算一个科学计算器表达式。
// HTTP端点: POST /api/calculator
//
// 请求体: {"expression": "sin(30) + 2^3"}
// 响应: {"success": true, "data": {"result": 8.5}}
func (h *Handler) Calculator(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	expression, ok := body["expression"].(string)
	if !ok && body["expression"] != nil {
		// 兼容直接传入数字
		expression = fmt.Sprint(body["expression"])
	}

	ctx, span := telemetry.StartCalculationSpan(r.Context(), "calculator", "calculator")
	start := time.Now()
	value, err := h.calc.Evaluate(expression)
	telemetry.EndSpan(span, err)
	h.observe("calculator", start, err)
	if err != nil {
		h.logDebug(r, "Calculator", "Expression rejected", logrus.Fields{
			"expression": expression,
			"error":      err.Error(),
		})
		writeDomainError(w, r, err)
		return
	}

	data := map[string]any{"result": value}
	h.record(r.WithContext(ctx), domain.NewHistoryEntry(CalculatorTitle,
		map[string]any{"expression": expression}, data))

	writeJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// Converter 在同类单位之间换算。
// HTTP端点: POST /api/converter
//
// 请求体: {"type": "speed", "value": 10, "from_unit": "m/s", "to_unit": "km/h"}
// 响应: {"success": true, "data": {"result": 36, "from": "10 m/s", "to": "36 km/h"}}
// type 缺省为 speed。
func (h *Handler) Converter(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	category := stringField(body, "type")
	if category == "" {
		category = "speed"
	}
	fromUnit := stringField(body, "from_unit")
	toUnit := stringField(body, "to_unit")

	p, err := physics.ParseParams(body, valueField)
	if err != nil {
		h.recordConversion(category, false)
		writeDomainError(w, r, err)
		return
	}

	ctx, span := telemetry.StartCalculationSpan(r.Context(), "converter", category)
	conv, err := units.Convert(category, p.Get("value"), fromUnit, toUnit)
	telemetry.EndSpan(span, err)
	if err != nil {
		h.recordConversion(category, false)
		writeDomainError(w, r, err)
		return
	}
	h.recordConversion(conv.Category, true)

	data := map[string]any{
		"result": conv.Result,
		"from":   conv.FromText(),
		"to":     conv.ToText(),
	}
	inputs := map[string]any{
		"type":      conv.Category,
		"value":     conv.Value,
		"from_unit": conv.FromUnit,
		"to_unit":   conv.ToUnit,
	}
	h.record(r.WithContext(ctx), domain.NewHistoryEntry(ConverterTitle, inputs, data))

	writeJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// record 写入历史记录并推送给订阅者。
// 写入失败只记录日志，不影响本次计算的响应。
func (h *Handler) record(r *http.Request, entry *domain.HistoryEntry) {
	if h.store == nil {
		return
	}
	if err := h.store.Append(r.Context(), entry); err != nil {
		h.logError(r, "record", "Failed to write history entry", err, logrus.Fields{
			"module": entry.Module,
			"driver": h.driver,
		})
		if h.metrics != nil {
			h.metrics.RecordHistoryWriteError(h.driver)
		}
		return
	}

	// 启用事件总线时由订阅端统一推送，便于多实例共享
	if h.events != nil {
		err := h.events.PublishCalculation(r.Context(), entry)
		if h.metrics != nil {
			h.metrics.RecordEventPublish(err == nil)
		}
		if err == nil {
			return
		}
		h.logWarn(r, "record", "Failed to publish calculation event", logrus.Fields{
			"module": entry.Module,
			"error":  err.Error(),
		})
	}
	if h.hub != nil {
		h.hub.Broadcast(entry)
	}
}

// observe 记录计算耗时与结果
func (h *Handler) observe(module string, start time.Time, err error) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordCalculation(module, float64(time.Since(start).Microseconds())/1000, errorType(err))
}

func (h *Handler) recordConversion(category string, success bool) {
	if h.metrics != nil {
		h.metrics.RecordConversion(strings.ToLower(category), success)
	}
}

// stringField 读取字符串字段，非字符串值按默认格式转换
func stringField(body map[string]any, key string) string {
	switch v := body[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return fmt.Sprint(v)
	}
}
