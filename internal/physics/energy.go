package physics

import (
	"fmt"
	"math"

	"github.com/oriys/physlab/internal/domain"
)

func energyModule(c Constants) *Module {
	fields := []Field{
		{Key: "m", Label: "Mass", Unit: "kg", Required: true},
		{Key: "v", Label: "Velocity", Unit: "m/s", Required: true},
		{Key: "h", Label: "Height", Unit: "m"},
		{Key: "g", Label: "Gravity", Unit: "m/s²", Default: defaultValue(c.Gravity)},
		{Key: "F", Label: "Force", Unit: "N"},
		{Key: "d", Label: "Distance", Unit: "m"},
		{Key: "t", Label: "Time", Unit: "s"},
	}
	return &Module{
		Key:         "energy",
		Title:       "Energy",
		Description: "Kinetic energy, optional potential/mechanical energy, work and power",
		Fields:      fields,
		Solve: func(p *Params, r *domain.Result) error {
			return solveEnergy(p, r, fields)
		},
	}
}

// solveEnergy 计算动能，并按可选输入追加势能、机械能、功和功率。
func solveEnergy(p *Params, r *domain.Result, fields []Field) error {
	if err := p.Positive("m"); err != nil {
		return err
	}
	if p.Get("v") < 0 {
		return domain.NewDomainViolation("v", "Velocity cannot be negative!")
	}
	m, v := p.Get("m"), p.Get("v")
	stepGiven(r, p, fields)

	KE := 0.5 * m * v * v
	r.Set("KE", KE)
	stepSolve(r, "Kinetic Energy",
		"KE = ½mv²",
		fmt.Sprintf("KE = 0.5 × %s × %s²", n(m), n(v)),
		fmt.Sprintf("KE = 0.5 × %s × %s", n(m), n(v*v)),
		fmt.Sprintf("KE = %s Joules", f3(KE)))

	if p.Has("h") {
		if err := firstErr(p.NonNegative("h"), p.Positive("g")); err != nil {
			return err
		}
		h, g := p.Get("h"), p.Get("g")
		PE := m * g * h
		r.Set("PE", PE)
		r.Set("ME", KE+PE)
		r.Step("")
		stepSolve(r, "Potential Energy",
			"PE = mgh",
			fmt.Sprintf("PE = %s × %s × %s", n(m), n(g), n(h)),
			fmt.Sprintf("PE = %s Joules", f3(PE)))
		r.Step("")
		stepSolve(r, "Mechanical Energy",
			"ME = KE + PE",
			fmt.Sprintf("ME = %s + %s", f3(KE), f3(PE)),
			fmt.Sprintf("ME = %s Joules", f3(KE+PE)))
	}

	if p.Has("F") && p.Has("d") {
		F, d := p.Get("F"), p.Get("d")
		if F < 0 || d < 0 {
			r.Warn("⚠ Force and Distance should be non-negative!")
		}
		W := F * d
		r.Set("W", W)
		r.Step("")
		stepSolve(r, "Work Done",
			"W = F × d",
			fmt.Sprintf("W = %s × %s", n(F), n(d)),
			fmt.Sprintf("W = %s Joules", f3(W)))

		if p.Has("t") {
			if err := p.Positive("t"); err != nil {
				return err
			}
			t := p.Get("t")
			P := W / t
			r.Set("P", P)
			r.Step("")
			stepSolve(r, "Power",
				"P = W / t",
				fmt.Sprintf("P = %s / %s", f3(W), n(t)),
				fmt.Sprintf("P = %s Watts", f3(P)))
		}
	}

	if m > 1000000 {
		r.Warn("⚠ Mass is very large (>1M kg). Check for errors?")
	}
	if math.Abs(v) > 300 {
		r.Warn("⚠ Velocity is very high (>300 m/s). Check for errors?")
	}
	return nil
}
