package physics

import (
	"fmt"
	"math"

	"github.com/oriys/physlab/internal/domain"
)

var thermoFields = []Field{
	{Key: "m", Label: "Mass", Unit: "kg", Required: true},
	{Key: "c", Label: "Specific Heat", Unit: "J/(kg·°C)", Required: true},
	{Key: "delta_t", Label: "Temperature Change", Unit: "°C"},
	{Key: "t1", Label: "Initial Temperature", Unit: "°C"},
	{Key: "t2", Label: "Final Temperature", Unit: "°C"},
	{Key: "Q", Label: "Heat", Unit: "J"},
}

func thermodynamicsModule() *Module {
	return &Module{
		Key:         "thermodynamics",
		Title:       "Thermodynamics",
		Description: "Heat transfer Q = mcΔT, solved for Q or for ΔT",
		Fields:      thermoFields,
		Solve:       solveThermodynamics,
	}
}

func solveThermodynamics(p *Params, r *domain.Result) error {
	if err := p.Positive("m", "c"); err != nil {
		return err
	}
	m, c := p.Get("m"), p.Get("c")
	stepGiven(r, p, thermoFields)

	var dT float64
	switch {
	case p.Has("delta_t"):
		dT = p.Get("delta_t")
	case p.Has("t1") && p.Has("t2"):
		dT = p.Get("t2") - p.Get("t1")
		r.Step(fmt.Sprintf("ΔT = T₂ - T₁ = %s - %s = %s °C", n(p.Get("t2")), n(p.Get("t1")), f3(dT)))
		r.Step("")
	case p.Has("Q"):
		Q := p.Get("Q")
		dT = Q / (m * c)
		r.Set("delta_t", dT)
		stepSolve(r, "Temperature Change",
			"ΔT = Q / (mc)",
			fmt.Sprintf("ΔT = %s / (%s × %s)", n(Q), n(m), n(c)),
			fmt.Sprintf("ΔT = %s °C", f3(dT)))
		if p.Has("t1") {
			t2 := p.Get("t1") + dT
			r.Set("t2", t2)
			r.Step(fmt.Sprintf("  T₂ = T₁ + ΔT = %s °C", f3(t2)))
		}
		r.Set("Q", Q)
		r.Set("Q_kJ", Q/1000)
		thermoWarnings(m, r)
		return nil
	default:
		return domain.NewInvalidInput("delta_t", "Please enter ΔT, both temperatures, or the heat Q!")
	}

	Q := m * c * dT
	r.Set("delta_t", dT)
	r.Set("Q", Q)
	r.Set("Q_kJ", Q/1000)
	stepSolve(r, "Heat",
		"Q = mcΔT",
		fmt.Sprintf("Q = %s × %s × %s", n(m), n(c), f3(dT)),
		fmt.Sprintf("Q = %s J", f3(Q)),
		fmt.Sprintf("Q = %s kJ", f3(Q/1000)))

	if p.Has("Q") && math.Abs(Q-p.Get("Q")) > 1 {
		r.Warn("⚠ Values may not satisfy Q = mcΔT")
	}
	thermoWarnings(m, r)
	return nil
}

func thermoWarnings(m float64, r *domain.Result) {
	if m > 1000000 {
		r.Warn("⚠ Mass is very large (>1M kg). Check for errors?")
	}
}

