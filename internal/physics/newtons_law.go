package physics

import (
	"fmt"

	"github.com/oriys/physlab/internal/domain"
)

var newtonFields = []Field{
	{Key: "F", Label: "Force", Unit: "N"},
	{Key: "m", Label: "Mass", Unit: "kg"},
	{Key: "a", Label: "Acceleration", Unit: "m/s²"},
}

func newtonsLawModule() *Module {
	return &Module{
		Key:         "newtons_law",
		Title:       "Newton's Law",
		Description: "Newton's second law F = ma: enter exactly 2 of F, m, a",
		Fields:      newtonFields,
		Solve:       solveNewtonsLaw,
	}
}

func solveNewtonsLaw(p *Params, r *domain.Result) error {
	if p.Count("F", "m", "a") != 2 {
		return domain.NewInvalidInput("", "Please enter exactly 2 values!")
	}
	if err := p.Positive("m"); err != nil {
		return err
	}
	F, m, a := p.Get("F"), p.Get("m"), p.Get("a")
	stepGiven(r, p, newtonFields)

	switch {
	case !p.Has("F"):
		F = m * a
		r.Set("F", F)
		stepSolve(r, "Force", "F = m × a",
			fmt.Sprintf("F = %s × %s", n(m), n(a)),
			fmt.Sprintf("F = %s N", f3(F)))
	case !p.Has("m"):
		if a == 0 {
			return domain.NewDomainViolation("a", "Acceleration cannot be zero!")
		}
		m = F / a
		if m <= 0 {
			return domain.NewDomainViolation("m", "Force and acceleration must have the same sign!")
		}
		r.Set("m", m)
		stepSolve(r, "Mass", "m = F / a",
			fmt.Sprintf("m = %s / %s", n(F), n(a)),
			fmt.Sprintf("m = %s kg", f3(m)))
	default:
		a = F / m
		r.Set("a", a)
		stepSolve(r, "Acceleration", "a = F / m",
			fmt.Sprintf("a = %s / %s", n(F), n(m)),
			fmt.Sprintf("a = %s m/s²", f3(a)))
	}

	if m > 1000000 {
		r.Warn("⚠ Mass is very large (>1M kg). Check for errors?")
	}
	if a > 100 || a < -100 {
		r.Warn("⚠ Acceleration is very high (>100 m/s²). Check for errors?")
	}
	return nil
}
