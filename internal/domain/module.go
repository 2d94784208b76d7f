package domain

// FieldInfo 描述计算模块的一个输入字段。
type FieldInfo struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Unit     string   `json:"unit,omitempty"`
	Default  *float64 `json:"default,omitempty"`
	Required bool     `json:"required"`
}

// ModuleInfo 描述一个计算模块，用于模块目录接口和 CLI 展示。
type ModuleInfo struct {
	Key         string      `json:"key"`
	Title       string      `json:"title"`
	Aliases     []string    `json:"aliases,omitempty"`
	Description string      `json:"description"`
	Fields      []FieldInfo `json:"fields"`
}
