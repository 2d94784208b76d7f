// Package cmd 提供 physlab 命令行工具的所有子命令实现。
// 本文件实现输出格式化打印功能。
//
// Printer 支持以下输出格式：
//   - table: 表格格式（默认），适合人类阅读
//   - json:  JSON 格式，适合程序处理
//   - yaml:  YAML 格式
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oriys/physlab/internal/domain"
	"github.com/oriys/physlab/internal/units"
)

// Printer 根据配置的输出格式将数据写入 writer。
type Printer struct {
	format string
	writer io.Writer
}

// NewPrinter 创建打印器，w 为 nil 时输出到标准输出。
// 输出格式从 viper 的 output 配置读取，默认 table。
func NewPrinter(w io.Writer) *Printer {
	format := viper.GetString("output")
	if format == "" {
		format = "table"
	}
	if w == nil {
		w = os.Stdout
	}
	return &Printer{format: format, writer: w}
}

// PrintModules 打印模块目录。
func (p *Printer) PrintModules(modules []domain.ModuleInfo) error {
	switch p.format {
	case "json":
		return p.printJSON(modules)
	case "yaml":
		return p.printYAML(modules)
	}

	w := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODULE\tTITLE\tINPUTS\tDESCRIPTION")
	for _, m := range modules {
		keys := make([]string, len(m.Fields))
		for i, f := range m.Fields {
			keys[i] = f.Key
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Key, m.Title, strings.Join(keys, ","), truncate(m.Description, 60))
	}
	return w.Flush()
}

// PrintModule 打印单个模块的输入字段。
func (p *Printer) PrintModule(m *domain.ModuleInfo) error {
	switch p.format {
	case "json":
		return p.printJSON(m)
	case "yaml":
		return p.printYAML(m)
	}

	fmt.Fprintf(p.writer, "%s (%s)\n", m.Title, m.Key)
	if len(m.Aliases) > 0 {
		fmt.Fprintf(p.writer, "Aliases: %s\n", strings.Join(m.Aliases, ", "))
	}
	fmt.Fprintf(p.writer, "%s\n\n", m.Description)

	w := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tLABEL\tUNIT\tREQUIRED\tDEFAULT")
	for _, f := range m.Fields {
		def := "-"
		if f.Default != nil {
			def = formatNumber(*f.Default)
		}
		required := "no"
		if f.Required {
			required = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.Key, f.Label, orDash(f.Unit), required, def)
	}
	return w.Flush()
}

// PrintResult 打印计算结果、解题步骤和警告。
func (p *Printer) PrintResult(res *SolveResult) error {
	switch p.format {
	case "json":
		return p.printJSON(res)
	case "yaml":
		return p.printYAML(res)
	}

	w := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
	for _, key := range sortedKeys(res.Data) {
		fmt.Fprintf(w, "%s\t%s\n", key, formatValue(res.Data[key]))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(res.Steps) > 0 {
		fmt.Fprintln(p.writer)
		for _, step := range res.Steps {
			fmt.Fprintln(p.writer, step)
		}
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintln(p.writer)
		for _, warning := range res.Warnings {
			fmt.Fprintln(p.writer, warning)
		}
	}
	return nil
}

// PrintHistory 打印历史记录列表。
func (p *Printer) PrintHistory(entries []*domain.HistoryEntry) error {
	switch p.format {
	case "json":
		return p.printJSON(entries)
	case "yaml":
		return p.printYAML(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(p.writer, "No history entries found.")
		return nil
	}

	w := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tMODULE\tINPUTS\tOUTPUTS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			entryTime(e),
			e.Module,
			truncate(formatMap(e.Inputs), 40),
			truncate(formatMap(e.Outputs), 50),
		)
	}
	return w.Flush()
}

// PrintHistoryEntry 以单行打印一条实时推送的记录。
func (p *Printer) PrintHistoryEntry(e *domain.HistoryEntry) error {
	switch p.format {
	case "json":
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.writer, string(data))
		return err
	case "yaml":
		return p.printYAML(e)
	}
	_, err := fmt.Fprintf(p.writer, "%s\t%s\t%s => %s\n",
		e.Timestamp, e.Module, formatMap(e.Inputs), formatMap(e.Outputs))
	return err
}

// PrintStats 打印历史统计。
func (p *Printer) PrintStats(stats *domain.HistoryStats) error {
	switch p.format {
	case "json":
		return p.printJSON(stats)
	case "yaml":
		return p.printYAML(stats)
	}

	fmt.Fprintf(p.writer, "Total calculations: %s\n\n", humanize.Comma(int64(stats.Total)))
	if len(stats.ByModule) == 0 {
		return nil
	}

	modules := make([]string, 0, len(stats.ByModule))
	for m := range stats.ByModule {
		modules = append(modules, m)
	}
	// 按次数降序，次数相同按名称
	sort.Slice(modules, func(i, j int) bool {
		a, b := stats.ByModule[modules[i]], stats.ByModule[modules[j]]
		if a != b {
			return a > b
		}
		return modules[i] < modules[j]
	})

	w := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODULE\tCOUNT\tSHARE")
	for _, m := range modules {
		n := stats.ByModule[m]
		fmt.Fprintf(w, "%s\t%s\t%s%%\n", m, humanize.Comma(int64(n)),
			humanize.FtoaWithDigits(float64(n)*100/float64(stats.Total), 1))
	}
	return w.Flush()
}

// PrintUnits 打印单位换算类别。
func (p *Printer) PrintUnits(categories []units.Category) error {
	switch p.format {
	case "json":
		return p.printJSON(categories)
	case "yaml":
		return p.printYAML(categories)
	}

	w := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tBASE\tUNITS")
	for _, c := range categories {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Base, strings.Join(c.Symbols(), ", "))
	}
	return w.Flush()
}

func (p *Printer) printJSON(v interface{}) error {
	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) printYAML(v interface{}) error {
	// 先转为通用结构，保证 YAML 字段名与 JSON 一致
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(p.writer)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(generic)
}

// ====== 辅助函数 ======

// entryTime 返回相对时间，旧记录时间戳无法解析时原样返回
func entryTime(e *domain.HistoryEntry) string {
	t := e.Time()
	if t.IsZero() {
		return orDash(e.Timestamp)
	}
	return humanize.Time(t)
}

// formatMap 以 key=value 形式按键名排序输出
func formatMap(m map[string]any) string {
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, k+"="+formatValue(m[k]))
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return formatNumber(x)
	case nil:
		return "-"
	default:
		return fmt.Sprint(x)
	}
}

// formatNumber 保留有效数字，极大或极小的数使用科学计数法
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', 10, 64)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate 截断字符串到指定长度（按字符计）
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
