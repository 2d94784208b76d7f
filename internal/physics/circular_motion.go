package physics

import (
	"fmt"
	"math"

	"github.com/oriys/physlab/internal/domain"
)

var circularFields = []Field{
	{Key: "m", Label: "Mass", Unit: "kg", Required: true},
	{Key: "r", Label: "Radius", Unit: "m", Required: true},
	{Key: "v", Label: "Velocity", Unit: "m/s"},
	{Key: "omega", Label: "Angular Velocity", Unit: "rad/s"},
	{Key: "T", Label: "Period", Unit: "s"},
}

func circularMotionModule() *Module {
	return &Module{
		Key:         "circular_motion",
		Title:       "Circular Motion",
		Aliases:     []string{"circular-motion"},
		Description: "Uniform circular motion from m, r and one of v, ω, T",
		Fields:      circularFields,
		Solve:       solveCircularMotion,
	}
}

// solveCircularMotion 按 v、ω、T 的优先顺序取第一个已知量，推导另外两个。
func solveCircularMotion(p *Params, r *domain.Result) error {
	if err := p.Positive("m", "r"); err != nil {
		return err
	}
	m, radius := p.Get("m"), p.Get("r")
	stepGiven(r, p, circularFields)

	var v, omega, T float64
	switch {
	case p.Has("v"):
		v = p.Get("v")
		if v == 0 {
			return domain.NewDomainViolation("v", "Velocity cannot be zero!")
		}
		omega = v / radius
		T = 2 * math.Pi / math.Abs(omega)
		stepSolve(r, "Angular Velocity and Period",
			"ω = v / r",
			fmt.Sprintf("ω = %s / %s = %s rad/s", n(v), n(radius), f3(omega)),
			"T = 2π / ω",
			fmt.Sprintf("T = %s s", f3(T)))
	case p.Has("omega"):
		omega = p.Get("omega")
		if omega == 0 {
			return domain.NewDomainViolation("omega", "Angular Velocity cannot be zero!")
		}
		v = omega * radius
		T = 2 * math.Pi / math.Abs(omega)
		stepSolve(r, "Velocity and Period",
			"v = ω × r",
			fmt.Sprintf("v = %s × %s = %s m/s", n(omega), n(radius), f3(v)),
			"T = 2π / ω",
			fmt.Sprintf("T = %s s", f3(T)))
	case p.Has("T"):
		if err := p.Positive("T"); err != nil {
			return err
		}
		T = p.Get("T")
		omega = 2 * math.Pi / T
		v = omega * radius
		stepSolve(r, "Angular Velocity and Velocity",
			"ω = 2π / T",
			fmt.Sprintf("ω = 2π / %s = %s rad/s", n(T), f3(omega)),
			"v = ω × r",
			fmt.Sprintf("v = %s × %s = %s m/s", f3(omega), n(radius), f3(v)))
	default:
		return domain.NewInvalidInput("", "Please enter velocity, angular velocity or period!")
	}

	Fc := m * v * v / radius
	ac := v * v / radius
	r.Set("v", v)
	r.Set("omega", omega)
	r.Set("T", T)
	r.Set("f", 1/T)
	r.Set("F_c", Fc)
	r.Set("a_c", ac)
	r.Step("")
	stepSolve(r, "Centripetal Force",
		"F_c = mv² / r",
		fmt.Sprintf("F_c = %s × %s² / %s", n(m), f3(v), n(radius)),
		fmt.Sprintf("F_c = %s N", f3(Fc)))
	r.Step("")
	stepSolve(r, "Centripetal Acceleration",
		"a_c = v² / r",
		fmt.Sprintf("a_c = %s m/s²", f3(ac)))

	if math.Abs(v) > 300 {
		r.Warn("⚠ Velocity is very high (>300 m/s). Check for errors?")
	}
	return nil
}
