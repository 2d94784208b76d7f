package calculator

import (
	"errors"
	"math"
	"testing"

	"github.com/oriys/physlab/internal/domain"
)

// TestEvaluate 测试表达式求值
func TestEvaluate(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		expr string
		want float64
	}{
		{"empty", "   ", 0},
		{"integer arithmetic", "2 + 3 * 4", 14},
		{"division is float", "7 / 2", 3.5},
		{"parentheses", "(2 + 3) * 4", 20},
		{"power caret", "2 ^ 10", 1024},
		{"power stars", "3 ** 2", 9},
		{"sin degrees", "sin(30)", 0.5},
		{"cos degrees", "cos(60)", 0.5},
		{"tan degrees", "tan(45)", 1},
		{"sin 180 is zero", "sin(180)", 0},
		{"asin degrees", "asin(1)", 90},
		{"sqrt", "sqrt(16)", 4},
		{"sqrt glyph", "√(9)", 3},
		{"pi constant", "pi", math.Pi},
		{"pi glyph", "2×π", 2 * math.Pi},
		{"division glyph", "9÷3", 3},
		{"e constant", "ln(e)", 1},
		{"log10", "log(1000)", 3},
		{"factorial", "factorial(5)", 120},
		{"reciprocal", "reciprocal(4)", 0.25},
		{"abs", "abs(-2.5)", 2.5},
		{"nested", "sqrt(sin(90) + 3)", 2},
		{"unary minus", "-3 + 1", -2},
		{"large product", "10000000000 * 10000000000", 1e20},
		{"max int64 plus one", "9223372036854775807 + 1", 9223372036854775808},
		{"modulo", "10 % 3", 1},
		{"float modulo", "7.5 % 2", 1.5},
		{"modulo float divisor", "10 % 2.5", 0},
		{"negative modulo", "-7 % 3", 2},
		{"modulo of function", "sqrt(49) % 4", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Evaluate(tt.expr)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.expr, err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

// TestEvaluate_Errors 测试非法表达式和数学错误
func TestEvaluate_Errors(t *testing.T) {
	c := New()

	tests := []struct {
		name    string
		expr    string
		wantErr error
	}{
		{"syntax error", "2 +* 3", domain.ErrInvalidExpression},
		{"unknown identifier", "x + 1", domain.ErrInvalidExpression},
		{"builtins disabled", "len([1, 2])", domain.ErrInvalidExpression},
		{"string result", "'abc'", domain.ErrInvalidExpression},
		{"bool result", "1 < 2", domain.ErrInvalidExpression},
		{"division by zero", "1 / 0", domain.ErrMathError},
		{"negative sqrt", "sqrt(-1)", domain.ErrMathError},
		{"log of zero", "ln(0)", domain.ErrMathError},
		{"tan 90", "tan(90)", domain.ErrMathError},
		{"asin domain", "asin(2)", domain.ErrMathError},
		{"factorial fraction", "factorial(2.5)", domain.ErrMathError},
		{"factorial overflow", "factorial(171)", domain.ErrMathError},
		{"reciprocal zero", "reciprocal(0)", domain.ErrMathError},
		{"modulo by zero", "5 % 0", domain.ErrMathError},
		{"float modulo by zero", "7.5 % 0.0", domain.ErrMathError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Evaluate(tt.expr)
			if err == nil {
				t.Fatalf("Evaluate(%q) expected error", tt.expr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Evaluate(%q) error = %v, want %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

// TestEvaluate_TooLong 测试表达式长度限制
func TestEvaluate_TooLong(t *testing.T) {
	long := make([]byte, MaxExpressionLength+1)
	for i := range long {
		long[i] = '1'
	}
	if _, err := New().Evaluate(string(long)); !errors.Is(err, domain.ErrInvalidExpression) {
		t.Errorf("expected ErrInvalidExpression, got %v", err)
	}
}

// TestMathDetail 测试数学错误描述的提取
func TestMathDetail(t *testing.T) {
	got := mathDetail("math error: square root of a negative number (1:1)")
	if got != "square root of a negative number" {
		t.Errorf("mathDetail() = %q", got)
	}
}
