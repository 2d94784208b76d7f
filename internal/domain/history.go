package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryTimeLayout 历史记录时间戳格式（本地时间，精确到秒）
const HistoryTimeLayout = "2006-01-02 15:04:05"

// HistoryEntry 表示一条计算历史记录。
// 历史记录只追加不修改，文件后端将全部记录保存为一个 JSON 数组。
type HistoryEntry struct {
	// ID 记录的唯一标识符，旧版文件中的记录可能没有该字段
	ID string `json:"id,omitempty"`
	// Timestamp 记录时间，格式为 YYYY-MM-DD HH:MM:SS
	Timestamp string `json:"timestamp"`
	// Module 计算模块的显示名称
	Module string `json:"module"`
	// Inputs 计算输入
	Inputs map[string]any `json:"inputs"`
	// Outputs 计算输出
	Outputs map[string]any `json:"outputs"`
}

// NewHistoryEntry 以当前本地时间创建一条历史记录。
//
// 参数:
//   - module: 模块显示名称
//   - inputs: 计算输入
//   - outputs: 计算输出
//
// 返回:
//   - *HistoryEntry: 新创建的历史记录
func NewHistoryEntry(module string, inputs, outputs map[string]any) *HistoryEntry {
	if inputs == nil {
		inputs = map[string]any{}
	}
	if outputs == nil {
		outputs = map[string]any{}
	}
	return &HistoryEntry{
		ID:        uuid.New().String(),
		Timestamp: time.Now().Format(HistoryTimeLayout),
		Module:    module,
		Inputs:    inputs,
		Outputs:   outputs,
	}
}

// Time 解析记录的时间戳，格式错误时返回零值。
func (e *HistoryEntry) Time() time.Time {
	t, err := time.ParseInLocation(HistoryTimeLayout, e.Timestamp, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// HistoryFilter 历史记录查询条件。
type HistoryFilter struct {
	// Module 按模块显示名称过滤，为空表示全部
	Module string
	// Limit 只返回最近的 N 条，<=0 表示不限制
	Limit int
}

// HistoryStats 历史记录统计信息。
type HistoryStats struct {
	// Total 记录总数
	Total int `json:"total"`
	// ByModule 各模块的记录数
	ByModule map[string]int `json:"by_module"`
}
