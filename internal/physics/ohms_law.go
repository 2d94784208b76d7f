package physics

import (
	"fmt"

	"github.com/oriys/physlab/internal/domain"
)

var ohmsLawFields = []Field{
	{Key: "V", Label: "Voltage", Unit: "V"},
	{Key: "I", Label: "Current", Unit: "A"},
	{Key: "R", Label: "Resistance", Unit: "Ω"},
}

func ohmsLawModule() *Module {
	return &Module{
		Key:         "ohms_law",
		Title:       "Ohm's Law",
		Aliases:     []string{"ohms-law"},
		Description: "V = IR: enter exactly 2 of V, I, R; power P = VI is always reported",
		Fields:      ohmsLawFields,
		Solve:       solveOhmsLaw,
	}
}

func solveOhmsLaw(p *Params, r *domain.Result) error {
	if p.Count("V", "I", "R") != 2 {
		return domain.NewInvalidInput("", "Please enter exactly 2 values!")
	}
	V, I, R := p.Get("V"), p.Get("I"), p.Get("R")
	stepGiven(r, p, ohmsLawFields)

	switch {
	case !p.Has("V"):
		if err := p.Positive("I", "R"); err != nil {
			return err
		}
		V = I * R
		r.Set("V", V)
		stepSolve(r, "Voltage",
			"V = I × R",
			fmt.Sprintf("V = %s × %s", n(I), n(R)),
			fmt.Sprintf("V = %s V", f3(V)))
	case !p.Has("I"):
		if err := firstErr(p.NonNegative("V"), p.Positive("R")); err != nil {
			return err
		}
		I = V / R
		r.Set("I", I)
		stepSolve(r, "Current",
			"I = V / R",
			fmt.Sprintf("I = %s / %s", n(V), n(R)),
			fmt.Sprintf("I = %s A", f3(I)))
	default:
		if err := firstErr(p.NonNegative("V"), p.Positive("I")); err != nil {
			return err
		}
		R = V / I
		r.Set("R", R)
		stepSolve(r, "Resistance",
			"R = V / I",
			fmt.Sprintf("R = %s / %s", n(V), n(I)),
			fmt.Sprintf("R = %s Ω", f3(R)))
	}

	P := V * I
	r.Set("P", P)
	r.Step("")
	stepSolve(r, "Power",
		"P = V × I",
		fmt.Sprintf("P = %s × %s", f3(V), f3(I)),
		fmt.Sprintf("P = %s W", f3(P)))

	if V > 1000 {
		r.Warn("⚠ Voltage is very high (>1000V). This is industrial level.")
	}
	if I > 100 {
		r.Warn("⚠ Current is very high (>100A). This is industrial level.")
	}
	if R < 0.001 {
		r.Warn("⚠ Resistance is very low (<0.001Ω). Check for errors?")
	}
	if R > 1000000 {
		r.Warn("⚠ Resistance is very high (>1MΩ). Check for errors?")
	}
	return nil
}
