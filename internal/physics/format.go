package physics

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/oriys/physlab/internal/domain"
)

// n 以最短形式格式化输入值，用于步骤中的代入行。
func n(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// f3 以三位小数格式化结果值；极大或极小的数改用科学计数法。
func f3(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs < 0.001 || abs >= 1e9) {
		return fmt.Sprintf("%.3e", v)
	}
	return fmt.Sprintf("%.3f", v)
}

// e2 以两位有效小数的科学计数法格式化，用于电荷、库仑力等量级跨度大的值。
func e2(v float64) string {
	return fmt.Sprintf("%.2e", v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// stepGiven 写入 "Given:" 段落，按字段定义顺序列出已知量。
func stepGiven(r *domain.Result, p *Params, fields []Field) {
	r.Step("Given:")
	for _, f := range fields {
		if !p.Has(f.Key) {
			continue
		}
		line := fmt.Sprintf("  %s = %s", f.Key, n(p.Get(f.Key)))
		if f.Unit != "" {
			line += " " + f.Unit
		}
		r.Step(line)
	}
	r.Step("")
}

// stepSolve 写入一段 "Solving for ..." 推导。
func stepSolve(r *domain.Result, title string, lines ...string) {
	r.Step(fmt.Sprintf("Solving for %s:", title))
	for _, l := range lines {
		r.Step("  " + l)
	}
}

// WarningMessage 将警告列表合并为一段展示文本，最多展示 3 条。
func WarningMessage(warnings []string) string {
	if len(warnings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("⚠ WARNINGS:\n")
	for i, w := range warnings {
		if i == 3 {
			break
		}
		b.WriteString("• " + w + "\n")
	}
	if len(warnings) > 3 {
		fmt.Fprintf(&b, "• ...and %d more warning(s)", len(warnings)-3)
	}
	return strings.TrimRight(b.String(), "\n")
}
