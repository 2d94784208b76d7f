package physics

import (
	"fmt"
	"math"

	"github.com/charmbracelet/harmonica"

	"github.com/oriys/physlab/internal/domain"
)

var shmFields = []Field{
	{Key: "A", Label: "Amplitude", Unit: "m", Required: true},
	{Key: "omega", Label: "Angular Frequency", Unit: "rad/s"},
	{Key: "f", Label: "Frequency", Unit: "Hz"},
	{Key: "T", Label: "Period", Unit: "s"},
	{Key: "phi", Label: "Phase", Unit: "rad", Default: defaultValue(0)},
	{Key: "m", Label: "Mass", Unit: "kg"},
	{Key: "k", Label: "Spring Constant", Unit: "N/m"},
	{Key: "t", Label: "Time", Unit: "s"},
	{Key: "zeta", Label: "Damping Ratio", Default: defaultValue(0)},
}

func shmModule() *Module {
	return &Module{
		Key:         "shm",
		Title:       "SHM",
		Aliases:     []string{"simple_harmonic_motion"},
		Description: "Simple harmonic motion from amplitude and ω, f, T or a mass-spring pair",
		Fields:      shmFields,
		Solve:       solveSHM,
	}
}

// solveSHM 角频率来源优先级：m 与 k、ω、f、T。
func solveSHM(p *Params, r *domain.Result) error {
	if err := firstErr(p.Positive("A", "m", "k"), p.NonNegative("t", "zeta")); err != nil {
		return err
	}
	A, phi := p.Get("A"), p.Get("phi")
	stepGiven(r, p, shmFields)

	var omega float64
	switch {
	case p.Has("m") && p.Has("k"):
		omega = math.Sqrt(p.Get("k") / p.Get("m"))
		stepSolve(r, "Angular Frequency", "ω = √(k/m)",
			fmt.Sprintf("ω = √(%s/%s) = %s rad/s", n(p.Get("k")), n(p.Get("m")), f3(omega)))
		r.Step("")
	case p.Has("omega"):
		if err := p.Positive("omega"); err != nil {
			return err
		}
		omega = p.Get("omega")
	case p.Has("f"):
		if err := p.Positive("f"); err != nil {
			return err
		}
		omega = 2 * math.Pi * p.Get("f")
	case p.Has("T"):
		if err := p.Positive("T"); err != nil {
			return err
		}
		omega = 2 * math.Pi / p.Get("T")
	default:
		return domain.NewInvalidInput("", "Please enter ω, f, T, or both mass and spring constant!")
	}

	f := omega / (2 * math.Pi)
	T := 1 / f
	vMax := A * omega
	aMax := A * omega * omega

	r.Set("omega", omega)
	r.Set("f", f)
	r.Set("T", T)
	r.Set("v_max", vMax)
	r.Set("a_max", aMax)

	r.Step("Motion Parameters:")
	r.Step(fmt.Sprintf("  ω = %s rad/s", f3(omega)))
	r.Step(fmt.Sprintf("  f = %s Hz", f3(f)))
	r.Step(fmt.Sprintf("  T = %s s", f3(T)))
	r.Step("")
	r.Step("Maximum Values:")
	r.Step(fmt.Sprintf("  Max Velocity = Aω = %s m/s", f3(vMax)))
	r.Step(fmt.Sprintf("  Max Acceleration = Aω² = %s m/s²", f3(aMax)))

	var k float64
	switch {
	case p.Has("k"):
		k = p.Get("k")
	case p.Has("m"):
		k = p.Get("m") * omega * omega
		r.Set("k", k)
	}
	if k > 0 {
		E := 0.5 * k * A * A
		r.Set("E", E)
		r.Step("")
		stepSolve(r, "Total Energy", "E = ½kA²", fmt.Sprintf("E = %s J", f3(E)))
	}

	if p.Has("t") {
		x, v := displacementAt(A, omega, phi, p.Get("zeta"), p.Get("t"))
		r.Set("x_t", x)
		r.Set("v_t", v)
		r.Step("")
		r.Step(fmt.Sprintf("State at t = %s s (ζ = %s):", n(p.Get("t")), n(p.Get("zeta"))))
		r.Step(fmt.Sprintf("  x = %s m", f3(x)))
		r.Step(fmt.Sprintf("  v = %s m/s", f3(v)))
	}

	r.Attr("equation", fmt.Sprintf("x(t) = %s·cos(%st + %s)", f3(A), f3(omega), f3(phi)))
	return nil
}

// displacementAt 返回振子在 t 时刻的位移和速度。
// 初始状态取 x(0) = A·cos(φ)、v(0) = -Aω·sin(φ)，平衡位置为 0；
// 以 t 作为单个时间步推进阻尼弹簧，zeta 为 0 时即为无阻尼简谐运动。
func displacementAt(A, omega, phi, zeta, t float64) (float64, float64) {
	x0 := A * math.Cos(phi)
	v0 := -A * omega * math.Sin(phi)
	if t == 0 {
		return x0, v0
	}
	spring := harmonica.NewSpring(t, omega, zeta)
	return spring.Update(x0, v0, 0)
}
