package physics

import (
	"fmt"
	"math"

	"github.com/oriys/physlab/internal/domain"
)

var momentumFields = []Field{
	{Key: "m1", Label: "Mass 1", Unit: "kg", Required: true},
	{Key: "v1", Label: "Velocity 1", Unit: "m/s", Required: true},
	{Key: "m2", Label: "Mass 2", Unit: "kg", Required: true},
	{Key: "v2", Label: "Velocity 2", Unit: "m/s", Required: true},
}

func momentumModule() *Module {
	return &Module{
		Key:         "momentum",
		Title:       "Momentum",
		Description: "Momentum of two bodies with elastic and perfectly inelastic collision outcomes",
		Fields:      momentumFields,
		Solve:       solveMomentum,
	}
}

func solveMomentum(p *Params, r *domain.Result) error {
	if err := p.Positive("m1", "m2"); err != nil {
		return err
	}
	m1, v1, m2, v2 := p.Get("m1"), p.Get("v1"), p.Get("m2"), p.Get("v2")
	stepGiven(r, p, momentumFields)

	p1 := m1 * v1
	p2 := m2 * v2
	total := p1 + p2
	r.Set("p1", p1)
	r.Set("p2", p2)
	r.Set("p_total", total)
	stepSolve(r, "Momentum",
		"p = m × v",
		fmt.Sprintf("p₁ = %s × %s = %s kg·m/s", n(m1), n(v1), f3(p1)),
		fmt.Sprintf("p₂ = %s × %s = %s kg·m/s", n(m2), n(v2), f3(p2)),
		fmt.Sprintf("p_total = %s kg·m/s", f3(total)))

	M := m1 + m2
	vInelastic := total / M
	r.Set("v_inelastic", vInelastic)
	r.Step("")
	stepSolve(r, "Perfectly Inelastic Collision",
		"v_f = (m₁v₁ + m₂v₂) / (m₁ + m₂)",
		fmt.Sprintf("v_f = %s / %s = %s m/s", f3(total), n(M), f3(vInelastic)))

	v1e := ((m1-m2)*v1 + 2*m2*v2) / M
	v2e := ((m2-m1)*v2 + 2*m1*v1) / M
	r.Set("v1_elastic", v1e)
	r.Set("v2_elastic", v2e)
	r.Step("")
	stepSolve(r, "Elastic Collision",
		"v₁' = ((m₁ - m₂)v₁ + 2m₂v₂) / (m₁ + m₂)",
		fmt.Sprintf("v₁' = %s m/s", f3(v1e)),
		"v₂' = ((m₂ - m₁)v₂ + 2m₁v₁) / (m₁ + m₂)",
		fmt.Sprintf("v₂' = %s m/s", f3(v2e)))

	r.Set("KE_total", 0.5*m1*v1*v1+0.5*m2*v2*v2)

	if m1 > 1000000 {
		r.Warn("⚠ Object 1 mass is very large (>1M kg). Check for errors?")
	}
	if m2 > 1000000 {
		r.Warn("⚠ Object 2 mass is very large (>1M kg). Check for errors?")
	}
	if math.Abs(v1) > 300 {
		r.Warn("⚠ Object 1 velocity is very high (>300 m/s). Check for errors?")
	}
	if math.Abs(v2) > 300 {
		r.Warn("⚠ Object 2 velocity is very high (>300 m/s). Check for errors?")
	}
	if v1 > 0 && v2 > 0 && v1 <= v2 {
		r.Warn("ℹ Same direction: Object 1 slower. They may not collide.")
	}
	return nil
}
