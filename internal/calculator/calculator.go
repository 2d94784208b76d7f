// Package calculator 实现科学计算器的表达式求值。
//
// 表达式由 expr-lang/expr 编译执行，只暴露数学函数和常量，
// 三角函数按角度制处理。
package calculator

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"

	"github.com/oriys/physlab/internal/domain"
)

// MaxExpressionLength 表达式的最大长度
const MaxExpressionLength = 512

// 三角函数结果绝对值小于该阈值时视为 0，避免 sin(180) 显示为 1.2e-16
const trigEpsilon = 1e-12

// displayReplacer 将计算器按键上的符号替换为表达式语法
var displayReplacer = strings.NewReplacer(
	"×", "*",
	"÷", "/",
	"−", "-",
	"π", "pi",
	"√", "sqrt",
)

// Calculator 科学计算器。
// 可以被多个 goroutine 并发使用。
type Calculator struct {
	env     map[string]any
	options []expr.Option
}

// New 创建计算器。
func New() *Calculator {
	env := map[string]any{
		"pi": math.Pi,
		"e":  math.E,
	}
	c := &Calculator{env: env}
	c.options = []expr.Option{
		expr.Env(env),
		expr.DisableAllBuiltins(),
		expr.Patch(floatLiterals{}),
		expr.Function("fmod", func(params ...any) (any, error) {
			a, _ := toFloat(params[0])
			b, _ := toFloat(params[1])
			return floorMod(a, b)
		}, new(func(float64, float64) float64)),
		expr.Operator("%", "fmod"),
		unary("sin", func(x float64) (float64, error) { return cleanTrig(math.Sin(radians(x))), nil }),
		unary("cos", func(x float64) (float64, error) { return cleanTrig(math.Cos(radians(x))), nil }),
		unary("tan", tanDegrees),
		unary("asin", inverseTrig(math.Asin)),
		unary("acos", inverseTrig(math.Acos)),
		unary("atan", func(x float64) (float64, error) { return degrees(math.Atan(x)), nil }),
		unary("sqrt", func(x float64) (float64, error) {
			if x < 0 {
				return 0, fmt.Errorf("%w: square root of a negative number", domain.ErrMathError)
			}
			return math.Sqrt(x), nil
		}),
		unary("ln", logarithm(math.Log)),
		unary("log", logarithm(math.Log10)),
		unary("abs", func(x float64) (float64, error) { return math.Abs(x), nil }),
		unary("exp", func(x float64) (float64, error) { return math.Exp(x), nil }),
		unary("factorial", factorial),
		unary("reciprocal", func(x float64) (float64, error) {
			if x == 0 {
				return 0, fmt.Errorf("%w: division by zero", domain.ErrMathError)
			}
			return 1 / x, nil
		}),
	}
	return c
}

// Evaluate 计算表达式的值。
// 空表达式的值为 0；语法错误返回 ErrInvalidExpression，
// 结果不是有限数时返回 ErrMathError。
func (c *Calculator) Evaluate(expression string) (float64, error) {
	input := strings.TrimSpace(displayReplacer.Replace(expression))
	if input == "" {
		return 0, nil
	}
	if len(input) > MaxExpressionLength {
		return 0, fmt.Errorf("%w: expression longer than %d characters", domain.ErrInvalidExpression, MaxExpressionLength)
	}

	program, err := expr.Compile(input, c.options...)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", domain.ErrInvalidExpression, firstLine(err.Error()))
	}
	return c.run(program)
}

func (c *Calculator) run(program *vm.Program) (float64, error) {
	out, err := expr.Run(program, c.env)
	if err != nil {
		msg := firstLine(err.Error())
		if errors.Is(err, domain.ErrMathError) || strings.Contains(msg, domain.ErrMathError.Error()) {
			return 0, fmt.Errorf("%w: %s", domain.ErrMathError, mathDetail(msg))
		}
		return 0, fmt.Errorf("%w: %s", domain.ErrInvalidExpression, msg)
	}

	value, ok := toFloat(out)
	if !ok {
		return 0, fmt.Errorf("%w: result is not a number", domain.ErrInvalidExpression)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: result is not a finite number", domain.ErrMathError)
	}
	return value, nil
}

// mathDetail 从 expr 运行时错误中取出数学错误的描述，去掉前缀和 "(行:列)" 位置信息。
func mathDetail(msg string) string {
	prefix := domain.ErrMathError.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		msg = msg[i+len(prefix):]
	}
	if i := strings.LastIndex(msg, " ("); i >= 0 && strings.HasSuffix(msg, ")") {
		msg = msg[:i]
	}
	return msg
}

// floatLiterals 把整数字面量改写为浮点数，整数运算在 expr 中会静默溢出。
type floatLiterals struct{}

func (floatLiterals) Visit(node *ast.Node) {
	if n, ok := (*node).(*ast.IntegerNode); ok {
		ast.Patch(node, &ast.FloatNode{Value: float64(n.Value)})
	}
}

// floorMod 取模，结果符号与除数相同（-7 % 3 = 2）。
func floorMod(a, b float64) (float64, error) {
	if b == 0 {
		return 0, fmt.Errorf("%w: modulo by zero", domain.ErrMathError)
	}
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r, nil
}

// unary 注册一个单参数数学函数。
// 字面量都已是浮点数，声明参数类型后 % 等运算符可以作用于函数结果。
func unary(name string, fn func(float64) (float64, error)) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s expects 1 argument, got %d", name, len(params))
		}
		x, ok := toFloat(params[0])
		if !ok {
			return nil, fmt.Errorf("%s expects a number", name)
		}
		return fn(x)
	}, new(func(float64) float64))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func cleanTrig(v float64) float64 {
	if math.Abs(v) < trigEpsilon {
		return 0
	}
	return v
}

func tanDegrees(x float64) (float64, error) {
	if math.Abs(math.Cos(radians(x))) < trigEpsilon {
		return 0, fmt.Errorf("%w: tan(%g°) is undefined", domain.ErrMathError, x)
	}
	return cleanTrig(math.Tan(radians(x))), nil
}

func inverseTrig(fn func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		if x < -1 || x > 1 {
			return 0, fmt.Errorf("%w: argument %g outside [-1, 1]", domain.ErrMathError, x)
		}
		return degrees(fn(x)), nil
	}
}

func logarithm(fn func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		if x <= 0 {
			return 0, fmt.Errorf("%w: logarithm of a non-positive number", domain.ErrMathError)
		}
		return fn(x), nil
	}
}

// factorial 只接受 0 到 170 之间的整数，171! 超出 float64 范围。
func factorial(x float64) (float64, error) {
	if x < 0 || x != math.Trunc(x) {
		return 0, fmt.Errorf("%w: factorial requires a non-negative integer", domain.ErrMathError)
	}
	if x > 170 {
		return 0, fmt.Errorf("%w: factorial overflow", domain.ErrMathError)
	}
	result := 1.0
	for i := 2.0; i <= x; i++ {
		result *= i
	}
	return result, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
