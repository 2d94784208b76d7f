package physics

import (
	"fmt"
	"math"

	"github.com/oriys/physlab/internal/domain"
)

func electrostaticsModule(c Constants) *Module {
	fields := []Field{
		{Key: "q1", Label: "Charge 1", Unit: "C", Required: true},
		{Key: "q2", Label: "Charge 2", Unit: "C", Required: true},
		{Key: "r", Label: "Distance", Unit: "m", Required: true},
		{Key: "k", Label: "Coulomb Constant", Unit: "N·m²/C²", Default: defaultValue(c.Coulomb)},
	}
	return &Module{
		Key:         "electrostatics",
		Title:       "Electrostatics",
		Description: "Coulomb force between two charges, field and potential of charge 1",
		Fields:      fields,
		Solve:       solveElectrostatics,
	}
}

func solveElectrostatics(p *Params, r *domain.Result) error {
	if err := p.Positive("r", "k"); err != nil {
		return err
	}
	q1, q2, dist, k := p.Get("q1"), p.Get("q2"), p.Get("r"), p.Get("k")

	r.Step("Given:")
	r.Step(fmt.Sprintf("  q₁ = %s C", e2(q1)))
	r.Step(fmt.Sprintf("  q₂ = %s C", e2(q2)))
	r.Step(fmt.Sprintf("  r = %s m", f3(dist)))
	r.Step(fmt.Sprintf("  k = %s N·m²/C²", e2(k)))
	r.Step("")

	F := k * math.Abs(q1*q2) / (dist * dist)
	E := k * math.Abs(q1) / (dist * dist)
	V := k * q1 / dist

	forceType := "None"
	switch product := q1 * q2; {
	case product > 0:
		forceType = "Repulsive"
	case product < 0:
		forceType = "Attractive"
	}

	r.Set("F", F)
	r.Set("E", E)
	r.Set("V", V)
	r.Attr("force_type", forceType)

	stepSolve(r, "Coulomb's Force",
		"F = k × |q₁ × q₂| / r²",
		fmt.Sprintf("F = %s N", e2(F)))
	r.Step("")
	r.Step("Force Type: " + forceType)
	r.Step("")
	stepSolve(r, "Electric Field (from q₁)",
		"E = k × |q₁| / r²",
		fmt.Sprintf("E = %s N/C", e2(E)))
	r.Step("")
	stepSolve(r, "Electric Potential (from q₁)",
		"V = k × q₁ / r",
		fmt.Sprintf("V = %s V", e2(V)))
	return nil
}
