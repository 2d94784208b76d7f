package domain

// Result 表示一次公式求解的结果。
// 数值输出与文字属性分开存放，序列化给客户端时由 Data 合并。
type Result struct {
	// Module 计算模块的规范键名，如 kinematics
	Module string `json:"module"`
	// Title 写入历史记录时使用的模块显示名称，如 Ohm's Law
	Title string `json:"title"`
	// Given 用户实际提供（含默认值）的输入
	Given map[string]float64 `json:"given"`
	// Outputs 计算得到的数值结果
	Outputs map[string]float64 `json:"outputs"`
	// Attributes 文字类结果，如力的性质、像的性质
	Attributes map[string]string `json:"attributes,omitempty"`
	// Steps 面向学生的逐步解题过程
	Steps []string `json:"steps,omitempty"`
	// Warnings 输入值不现实或前后矛盾时的提示
	Warnings []string `json:"warnings,omitempty"`
}

// NewResult 创建一个空的求解结果。
func NewResult(module, title string) *Result {
	return &Result{
		Module:     module,
		Title:      title,
		Given:      make(map[string]float64),
		Outputs:    make(map[string]float64),
		Attributes: make(map[string]string),
	}
}

// Set 记录一个数值输出。
func (r *Result) Set(key string, value float64) {
	r.Outputs[key] = value
}

// Attr 记录一个文字属性。
func (r *Result) Attr(key, value string) {
	r.Attributes[key] = value
}

// Step 追加一行解题步骤。
func (r *Result) Step(line string) {
	r.Steps = append(r.Steps, line)
}

// Warn 追加一条输入警告。
func (r *Result) Warn(message string) {
	r.Warnings = append(r.Warnings, message)
}

// Data 返回 API 响应中的 data 对象：数值输出与文字属性合并后的扁平映射。
func (r *Result) Data() map[string]any {
	data := make(map[string]any, len(r.Outputs)+len(r.Attributes))
	for k, v := range r.Outputs {
		data[k] = v
	}
	for k, v := range r.Attributes {
		data[k] = v
	}
	return data
}

// Inputs 返回写入历史记录的输入映射。
func (r *Result) Inputs() map[string]any {
	inputs := make(map[string]any, len(r.Given))
	for k, v := range r.Given {
		inputs[k] = v
	}
	return inputs
}
