package physics

import (
	"fmt"
	"math"

	"github.com/oriys/physlab/internal/domain"
)

func freefallModule(c Constants) *Module {
	fields := []Field{
		{Key: "h", Label: "Height", Unit: "m"},
		{Key: "v0", Label: "Initial Velocity", Unit: "m/s", Default: defaultValue(0)},
		{Key: "t", Label: "Time", Unit: "s"},
		{Key: "g", Label: "Gravity", Unit: "m/s²", Default: defaultValue(c.Gravity)},
	}
	return &Module{
		Key:         "freefall",
		Title:       "Free Fall",
		Aliases:     []string{"free_fall"},
		Description: "Vertical fall from rest or with downward initial velocity v0",
		Fields:      fields,
		Solve: func(p *Params, r *domain.Result) error {
			return solveFreefall(p, r, fields)
		},
	}
}

// solveFreefall 取向下为正方向。已知时间时优先按时间求解。
func solveFreefall(p *Params, r *domain.Result, fields []Field) error {
	if err := firstErr(p.Positive("g"), p.NonNegative("h", "t")); err != nil {
		return err
	}
	v0, g := p.Get("v0"), p.Get("g")
	stepGiven(r, p, fields)

	var h, t float64
	switch {
	case p.Has("t"):
		t = p.Get("t")
		h = v0*t + 0.5*g*t*t
		r.Set("h", h)
		stepSolve(r, "Height", "h = v₀t + ½gt²",
			fmt.Sprintf("h = %s×%s + ½×%s×%s²", n(v0), n(t), n(g), n(t)),
			fmt.Sprintf("h = %s m", f3(h)))
	case p.Has("h"):
		h = p.Get("h")
		disc := v0*v0 + 2*g*h
		if disc < 0 {
			return domain.NewDomainViolation("h", "The object never reaches this height!")
		}
		t = (-v0 + math.Sqrt(disc)) / g
		r.Set("t", t)
		stepSolve(r, "Time", "h = v₀t + ½gt²",
			"t = (-v₀ + √(v₀² + 2gh)) / g",
			fmt.Sprintf("t = %s s", f3(t)))
	default:
		return domain.NewInvalidInput("", "Please enter height or time!")
	}

	v := v0 + g*t
	r.Set("v", v)
	r.Step("")
	stepSolve(r, "Final Velocity", "v = v₀ + gt",
		fmt.Sprintf("v = %s + %s×%s", n(v0), n(g), f3(t)),
		fmt.Sprintf("v = %s m/s", f3(v)))

	if v > 300 {
		r.Warn("⚠ Final velocity is very high (>300 m/s). Check for errors?")
	}
	return nil
}
