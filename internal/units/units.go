// Package units 提供物理量的单位换算。
//
// 每个类别以一个基准单位为准，其它单位记录相对基准单位的换算系数，
// 换算方式为 value / from × to。温度是仿射换算，单独带偏移量。
package units

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oriys/physlab/internal/domain"
)

// Unit 一个单位。
// 基准值与该单位数值的关系为 value = base × Scale + Offset。
type Unit struct {
	Symbol  string   `json:"symbol"`
	Scale   float64  `json:"scale"`
	Offset  float64  `json:"offset,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

func (u Unit) toBase(v float64) float64   { return (v - u.Offset) / u.Scale }
func (u Unit) fromBase(b float64) float64 { return b*u.Scale + u.Offset }

// Category 一类可以互相换算的单位。
type Category struct {
	Name  string `json:"name"`
	Base  string `json:"base"`
	Units []Unit `json:"units"`
}

func (c Category) lookup(symbol string) (Unit, bool) {
	symbol = strings.TrimSpace(symbol)
	for _, u := range c.Units {
		if u.Symbol == symbol {
			return u, true
		}
		for _, a := range u.Aliases {
			if a == symbol {
				return u, true
			}
		}
	}
	return Unit{}, false
}

// Symbols 返回类别内全部单位符号。
func (c Category) Symbols() []string {
	out := make([]string, len(c.Units))
	for i, u := range c.Units {
		out[i] = u.Symbol
	}
	return out
}

var categories = []Category{
	{Name: "speed", Base: "m/s", Units: []Unit{
		{Symbol: "m/s", Scale: 1},
		{Symbol: "km/h", Scale: 3.6},
		{Symbol: "mph", Scale: 2.237},
		{Symbol: "ft/s", Scale: 3.281},
		{Symbol: "knots", Scale: 1.944},
	}},
	{Name: "mass", Base: "kg", Units: []Unit{
		{Symbol: "kg", Scale: 1},
		{Symbol: "g", Scale: 1000},
		{Symbol: "mg", Scale: 1000000},
		{Symbol: "lb", Scale: 2.205},
		{Symbol: "oz", Scale: 35.274},
	}},
	{Name: "distance", Base: "m", Units: []Unit{
		{Symbol: "m", Scale: 1},
		{Symbol: "cm", Scale: 100},
		{Symbol: "mm", Scale: 1000},
		{Symbol: "km", Scale: 0.001},
		{Symbol: "ft", Scale: 3.281},
		{Symbol: "in", Scale: 39.37},
		{Symbol: "mile", Scale: 0.000621},
	}},
	{Name: "energy", Base: "J", Units: []Unit{
		{Symbol: "J", Scale: 1},
		{Symbol: "kJ", Scale: 0.001},
		{Symbol: "MJ", Scale: 0.000001},
		{Symbol: "cal", Scale: 0.239},
		{Symbol: "kcal", Scale: 0.000239},
		{Symbol: "eV", Scale: 6.242e18},
		{Symbol: "Wh", Scale: 0.000278},
	}},
	{Name: "voltage", Base: "V", Units: []Unit{
		{Symbol: "V", Scale: 1},
		{Symbol: "kV", Scale: 0.001},
		{Symbol: "mV", Scale: 1000},
		{Symbol: "μV", Scale: 1000000, Aliases: []string{"uV"}},
	}},
	{Name: "temperature", Base: "K", Units: []Unit{
		{Symbol: "K", Scale: 1},
		{Symbol: "C", Scale: 1, Offset: -273.15, Aliases: []string{"°C"}},
		{Symbol: "F", Scale: 1.8, Offset: -459.67, Aliases: []string{"°F"}},
	}},
}

// Categories 返回全部换算类别。
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Lookup 按名称查找类别，大小写不敏感。
func Lookup(name string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, c := range categories {
		if c.Name == key {
			return c, nil
		}
	}
	return Category{}, &domain.InputError{
		Field:   "type",
		Message: fmt.Sprintf("Unknown conversion type: %s", name),
		Kind:    domain.ErrUnknownUnit,
	}
}

// Conversion 一次换算的结果。
type Conversion struct {
	Category string  `json:"type"`
	Value    float64 `json:"value"`
	FromUnit string  `json:"from_unit"`
	ToUnit   string  `json:"to_unit"`
	Result   float64 `json:"result"`
}

// FromText 返回 "<value> <from>" 形式的描述。
func (c *Conversion) FromText() string {
	return format(c.Value) + " " + c.FromUnit
}

// ToText 返回 "<result> <to>" 形式的描述。
func (c *Conversion) ToText() string {
	return format(c.Result) + " " + c.ToUnit
}

// Convert 在同一类别的两个单位之间换算。
// 未知单位返回 "Unknown <category> unit: <unit>"。
func Convert(category string, value float64, from, to string) (*Conversion, error) {
	cat, err := Lookup(category)
	if err != nil {
		return nil, err
	}
	fu, ok := cat.lookup(from)
	if !ok {
		return nil, unknownUnit(cat.Name, "from_unit", from)
	}
	tu, ok := cat.lookup(to)
	if !ok {
		return nil, unknownUnit(cat.Name, "to_unit", to)
	}

	return &Conversion{
		Category: cat.Name,
		Value:    value,
		FromUnit: fu.Symbol,
		ToUnit:   tu.Symbol,
		Result:   tu.fromBase(fu.toBase(value)),
	}, nil
}

func unknownUnit(category, field, unit string) error {
	return &domain.InputError{
		Field:   field,
		Message: fmt.Sprintf("Unknown %s unit: %s", category, unit),
		Kind:    domain.ErrUnknownUnit,
	}
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
