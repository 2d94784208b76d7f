package physics

import (
	"fmt"
	"math"

	"github.com/oriys/physlab/internal/domain"
)

func projectileModule(c Constants) *Module {
	fields := []Field{
		{Key: "v0", Label: "Initial Velocity", Unit: "m/s", Required: true},
		{Key: "theta", Label: "Launch Angle", Unit: "°", Required: true},
		{Key: "h0", Label: "Initial Height", Unit: "m", Default: defaultValue(0)},
		{Key: "g", Label: "Gravity", Unit: "m/s²", Default: defaultValue(c.Gravity)},
	}
	return &Module{
		Key:         "projectile_motion",
		Title:       "Projectile Motion",
		Aliases:     []string{"projectile-motion"},
		Description: "Launch from height h0 at angle θ: peak height, flight time and range",
		Fields:      fields,
		Solve: func(p *Params, r *domain.Result) error {
			return solveProjectile(p, r, fields)
		},
	}
}

// solveProjectile 飞行时间取 h0 + v0y·t - ½gt² = 0 的正根，无实根时为 0。
func solveProjectile(p *Params, r *domain.Result, fields []Field) error {
	if err := p.Positive("v0", "g"); err != nil {
		return err
	}
	v0, theta, h0, g := p.Get("v0"), p.Get("theta"), p.Get("h0"), p.Get("g")
	stepGiven(r, p, fields)

	rad := theta * math.Pi / 180
	v0x := v0 * math.Cos(rad)
	v0y := v0 * math.Sin(rad)

	hMax := h0 + v0y*v0y/(2*g)
	tPeak := v0y / g
	if tPeak < 0 {
		// 向下抛出时最高点就是出发点
		tPeak = 0
		hMax = h0
	}

	tFlight := 0.0
	if disc := v0y*v0y + 2*g*h0; disc >= 0 {
		tFlight = (v0y + math.Sqrt(disc)) / g
	}
	if tFlight < 0 {
		tFlight = 0
	}
	rangeDist := v0x * tFlight

	r.Set("v0x", v0x)
	r.Set("v0y", v0y)
	r.Set("max_height", hMax)
	r.Set("time_to_peak", tPeak)
	r.Set("time_of_flight", tFlight)
	r.Set("range", rangeDist)

	r.Step("Velocity Components:")
	r.Step(fmt.Sprintf("  v₀ₓ = v₀ × cos(θ) = %s m/s", f3(v0x)))
	r.Step(fmt.Sprintf("  v₀ᵧ = v₀ × sin(θ) = %s m/s", f3(v0y)))
	r.Step("")
	r.Step("Flight Analysis:")
	r.Step(fmt.Sprintf("  Maximum Height = h₀ + v₀ᵧ²/2g = %s m", f3(hMax)))
	r.Step(fmt.Sprintf("  Time to Max Height = v₀ᵧ/g = %s s", f3(tPeak)))
	r.Step(fmt.Sprintf("  Total Flight Time = %s s", f3(tFlight)))
	r.Step(fmt.Sprintf("  Range = v₀ₓ × t = %s m", f3(rangeDist)))

	if v0 > 300 {
		r.Warn("⚠ Initial velocity is very high (>300 m/s). Check for errors?")
	}
	if theta < -90 || theta > 90 {
		r.Warn("⚠ Launch angle is outside -90° to 90°. Check for errors?")
	}
	return nil
}
