// Package domain 定义了物理计算服务的核心领域模型。
package domain

import "errors"

// 领域错误定义
// 这些错误用于在应用程序的不同层之间传递业务逻辑相关的错误信息。

var (
	// ========== 输入相关错误 ==========

	// ErrInvalidInput 表示输入缺失或无法解析为数字
	ErrInvalidInput = errors.New("invalid input")
	// ErrDomainViolation 表示输入超出公式的定义域（如除以零、负数开方）
	ErrDomainViolation = errors.New("domain violation")

	// ========== 模块相关错误 ==========

	// ErrUnknownModule 表示请求的计算模块不存在
	ErrUnknownModule = errors.New("unknown module")

	// ========== 单位换算相关错误 ==========

	// ErrUnknownUnit 表示换算类别或单位不受支持
	ErrUnknownUnit = errors.New("unknown unit")

	// ========== 科学计算器相关错误 ==========

	// ErrInvalidExpression 表示表达式语法错误或引用了未知的标识符
	ErrInvalidExpression = errors.New("invalid expression")
	// ErrMathError 表示表达式求值结果不是有限数值
	ErrMathError = errors.New("math error")

	// ========== 存储相关错误 ==========

	// ErrHistoryCorrupt 表示历史记录文件无法解析为 JSON 数组
	ErrHistoryCorrupt = errors.New("history log is corrupt")
	// ErrUnsupportedDriver 表示配置了不支持的历史记录存储驱动
	ErrUnsupportedDriver = errors.New("unsupported history driver")
	// ErrStorageConnection 表示存储连接错误（如数据库连接失败）
	ErrStorageConnection = errors.New("storage connection error")
)

// InputError 描述单个输入字段的校验失败。
// Error 返回面向用户的提示文本，Unwrap 返回所属的哨兵错误，
// 调用方通过 errors.Is 判断错误类别。
type InputError struct {
	// Field 出错的字段键名，整体性错误（如输入数量不足）为空
	Field string
	// Message 面向用户的提示信息
	Message string
	// Kind 哨兵错误：ErrInvalidInput 或 ErrDomainViolation
	Kind error
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return e.Kind }

// NewInvalidInput 创建一个输入缺失或格式错误的 InputError。
func NewInvalidInput(field, message string) *InputError {
	return &InputError{Field: field, Message: message, Kind: ErrInvalidInput}
}

// NewDomainViolation 创建一个超出公式定义域的 InputError。
func NewDomainViolation(field, message string) *InputError {
	return &InputError{Field: field, Message: message, Kind: ErrDomainViolation}
}
