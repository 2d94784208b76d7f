// Package physics 实现各物理主题的公式求解器。
//
// 每个模块接收 2 到 5 个标量输入，根据哪些变量已知选择公式分支，
// 求出缺失的变量，并生成面向学生的解题步骤和输入警告。
// 求解器都是纯函数，不做任何 I/O。
package physics

import (
	"fmt"
	"strings"

	"github.com/oriys/physlab/internal/domain"
)

// Constants 求解器使用的物理常量。
type Constants struct {
	// Gravity 重力加速度（m/s²）
	Gravity float64
	// Coulomb 库仑常量（N·m²/C²）
	Coulomb float64
}

// DefaultConstants 返回教材常用的常量取值。
func DefaultConstants() Constants {
	return Constants{Gravity: 9.8, Coulomb: 8.99e9}
}

// SolveFunc 求解函数：读取已知量，将结果写入 r。
type SolveFunc func(p *Params, r *domain.Result) error

// Module 一个计算模块。
type Module struct {
	// Key 规范键名，同时是 API 路径段
	Key string
	// Title 历史记录中使用的显示名称
	Title string
	// Aliases 额外的路径别名
	Aliases []string
	// Description 简短说明
	Description string
	// Fields 输入字段定义
	Fields []Field
	// Solve 求解函数
	Solve SolveFunc
}

// Info 返回模块目录信息。
func (m *Module) Info() domain.ModuleInfo {
	info := domain.ModuleInfo{
		Key:         m.Key,
		Title:       m.Title,
		Aliases:     m.Aliases,
		Description: m.Description,
		Fields:      make([]domain.FieldInfo, 0, len(m.Fields)),
	}
	for _, f := range m.Fields {
		info.Fields = append(info.Fields, domain.FieldInfo{
			Key:      f.Key,
			Label:    f.Label,
			Unit:     f.Unit,
			Default:  f.Default,
			Required: f.Required,
		})
	}
	return info
}

// Run 解析原始输入并求解。
// 所有数值输出都保证是有限数，否则按定义域错误返回。
func (m *Module) Run(raw map[string]any) (*domain.Result, error) {
	p, err := ParseParams(raw, m.Fields)
	if err != nil {
		return nil, err
	}
	return m.solveParams(p)
}

func (m *Module) solveParams(p *Params) (*domain.Result, error) {
	r := domain.NewResult(m.Key, m.Title)
	r.Given = p.Values()
	if err := m.Solve(p, r); err != nil {
		return nil, err
	}
	for k, v := range r.Outputs {
		if !finite(v) {
			return nil, domain.NewDomainViolation(k, fmt.Sprintf("Result %s is not a finite number!", k))
		}
	}
	return r, nil
}

// Registry 按名称（含别名）索引计算模块。
type Registry struct {
	constants Constants
	modules   []*Module
	index     map[string]*Module
}

// NewRegistry 创建包含全部内置模块的注册表。
func NewRegistry(c Constants) *Registry {
	if c.Gravity == 0 {
		c.Gravity = DefaultConstants().Gravity
	}
	if c.Coulomb == 0 {
		c.Coulomb = DefaultConstants().Coulomb
	}
	r := &Registry{constants: c, index: make(map[string]*Module)}
	for _, m := range builtinModules(c) {
		r.register(m)
	}
	return r
}

func builtinModules(c Constants) []*Module {
	return []*Module{
		kinematicsModule(),
		ohmsLawModule(),
		energyModule(c),
		momentumModule(),
		opticsModule(),
		circularMotionModule(),
		projectileModule(c),
		thermodynamicsModule(),
		electrostaticsModule(c),
		shmModule(),
		vectorsModule(),
		newtonsLawModule(),
		freefallModule(c),
	}
}

func (r *Registry) register(m *Module) {
	r.modules = append(r.modules, m)
	for _, name := range append([]string{m.Key}, m.Aliases...) {
		r.index[name] = m
		r.index[strings.ReplaceAll(name, "_", "-")] = m
	}
}

// Constants 返回注册表使用的物理常量。
func (r *Registry) Constants() Constants {
	return r.constants
}

// Lookup 按规范键名或别名查找模块，大小写不敏感。
func (r *Registry) Lookup(name string) (*Module, error) {
	m, ok := r.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownModule, name)
	}
	return m, nil
}

// Modules 按固定顺序返回全部模块。
func (r *Registry) Modules() []*Module {
	out := make([]*Module, len(r.modules))
	copy(out, r.modules)
	return out
}

// Solve 查找模块并求解。
func (r *Registry) Solve(name string, raw map[string]any) (*domain.Result, error) {
	m, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return m.Run(raw)
}
