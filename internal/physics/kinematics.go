package physics

import (
	"fmt"
	"math"

	"github.com/oriys/physlab/internal/domain"
)

var kinematicsFields = []Field{
	{Key: "u", Label: "Initial Velocity", Unit: "m/s"},
	{Key: "v", Label: "Final Velocity", Unit: "m/s"},
	{Key: "a", Label: "Acceleration", Unit: "m/s²"},
	{Key: "t", Label: "Time", Unit: "s"},
	{Key: "s", Label: "Displacement", Unit: "m"},
}

func kinematicsModule() *Module {
	return &Module{
		Key:         "kinematics",
		Title:       "Kinematics",
		Description: "Uniformly accelerated motion (SUVAT): any 3 of u, v, a, t, s",
		Fields:      kinematicsFields,
		Solve:       solveKinematics,
	}
}

// suvat 匀加速直线运动的五个量。
type suvat struct {
	u, v, a, t, s float64
}

var errNegativeTime = domain.NewDomainViolation("t", "No non-negative time satisfies these values!")

// solveKinematics 求解匀加速直线运动。
// 已知 4 个量时按单一公式求剩余量；已知 3 个量时按缺失的两个量选择公式组；
// 5 个量全部已知时只做一致性检查。输出始终包含完整的 u、v、a、t、s。
func solveKinematics(p *Params, r *domain.Result) error {
	keys := []string{"u", "v", "a", "t", "s"}
	known := p.Count(keys...)
	if known < 3 {
		return domain.NewInvalidInput("", "Please enter at least 3 values!")
	}
	if err := p.NonNegative("t"); err != nil {
		return domain.NewDomainViolation("t", "Time cannot be negative!")
	}

	k := suvat{u: p.Get("u"), v: p.Get("v"), a: p.Get("a"), t: p.Get("t"), s: p.Get("s")}
	stepGiven(r, p, kinematicsFields)

	var err error
	switch known {
	case 5:
		r.Step("All five quantities given; checking consistency.")
	case 4:
		err = solveKinematicsOne(p, &k, r)
	default:
		err = solveKinematicsTwo(p, &k, r)
	}
	if err != nil {
		return err
	}

	if p.Count(keys...) == 5 {
		if math.Abs(k.s-(k.u*k.t+0.5*k.a*k.t*k.t)) > 1 {
			r.Warn("⚠ Values may be inconsistent with s = ut + ½at²")
		}
	}
	kinematicsWarnings(p, k, r)

	r.Set("u", k.u)
	r.Set("v", k.v)
	r.Set("a", k.a)
	r.Set("t", k.t)
	r.Set("s", k.s)
	return nil
}

// solveKinematicsOne 已知 4 个量时求剩余的 1 个。
func solveKinematicsOne(p *Params, k *suvat, r *domain.Result) error {
	switch {
	case !p.Has("u"):
		k.u = k.v - k.a*k.t
		stepSolve(r, "Initial Velocity",
			"v = u + at",
			"u = v - at",
			fmt.Sprintf("u = %s - %s×%s", n(k.v), n(k.a), n(k.t)),
			fmt.Sprintf("u = %s m/s", f3(k.u)))
	case !p.Has("v"):
		k.v = k.u + k.a*k.t
		stepSolve(r, "Final Velocity",
			"v = u + at",
			fmt.Sprintf("v = %s + %s×%s", n(k.u), n(k.a), n(k.t)),
			fmt.Sprintf("v = %s m/s", f3(k.v)))
	case !p.Has("a"):
		if k.t == 0 {
			return domain.NewDomainViolation("t", "Time cannot be zero when solving for acceleration!")
		}
		k.a = (k.v - k.u) / k.t
		stepSolve(r, "Acceleration",
			"v = u + at",
			"a = (v - u) / t",
			fmt.Sprintf("a = (%s - %s) / %s", n(k.v), n(k.u), n(k.t)),
			fmt.Sprintf("a = %s m/s²", f3(k.a)))
	case !p.Has("t"):
		if k.a == 0 {
			return domain.NewDomainViolation("a", "Acceleration cannot be zero when solving for time!")
		}
		k.t = (k.v - k.u) / k.a
		if k.t < 0 {
			return errNegativeTime
		}
		stepSolve(r, "Time",
			"v = u + at",
			"t = (v - u) / a",
			fmt.Sprintf("t = (%s - %s) / %s", n(k.v), n(k.u), n(k.a)),
			fmt.Sprintf("t = %s s", f3(k.t)))
	default:
		if k.a == 0 {
			k.s = k.u * k.t
			stepSolve(r, "Displacement",
				"a = 0, so s = ut",
				fmt.Sprintf("s = %s×%s", n(k.u), n(k.t)),
				fmt.Sprintf("s = %s m", f3(k.s)))
			return nil
		}
		k.s = (k.v*k.v - k.u*k.u) / (2 * k.a)
		stepSolve(r, "Displacement",
			"v² = u² + 2as",
			"s = (v² - u²) / 2a",
			fmt.Sprintf("s = (%s² - %s²) / (2×%s)", n(k.v), n(k.u), n(k.a)),
			fmt.Sprintf("s = (%s - %s) / %s", f3(k.v*k.v), f3(k.u*k.u), f3(2*k.a)),
			fmt.Sprintf("s = %s m", f3(k.s)))
	}
	return nil
}

// solveKinematicsTwo 已知 3 个量时求剩余的 2 个。
func solveKinematicsTwo(p *Params, k *suvat, r *domain.Result) error {
	missing := ""
	for _, key := range []string{"u", "v", "a", "t", "s"} {
		if !p.Has(key) {
			missing += key
		}
	}

	switch missing {
	case "vs":
		k.v = k.u + k.a*k.t
		k.s = k.u*k.t + 0.5*k.a*k.t*k.t
		stepSolve(r, "Final Velocity and Displacement",
			"v = u + at",
			fmt.Sprintf("v = %s + %s×%s = %s m/s", n(k.u), n(k.a), n(k.t), f3(k.v)),
			"s = ut + ½at²",
			fmt.Sprintf("s = %s×%s + ½×%s×%s² = %s m", n(k.u), n(k.t), n(k.a), n(k.t), f3(k.s)))

	case "ts":
		if k.a == 0 {
			return domain.NewDomainViolation("a", "Acceleration cannot be zero when solving for time!")
		}
		k.t = (k.v - k.u) / k.a
		if k.t < 0 {
			return errNegativeTime
		}
		k.s = (k.v*k.v - k.u*k.u) / (2 * k.a)
		stepSolve(r, "Time and Displacement",
			"t = (v - u) / a",
			fmt.Sprintf("t = (%s - %s) / %s = %s s", n(k.v), n(k.u), n(k.a), f3(k.t)),
			"s = (v² - u²) / 2a",
			fmt.Sprintf("s = (%s² - %s²) / (2×%s) = %s m", n(k.v), n(k.u), n(k.a), f3(k.s)))

	case "as":
		if k.t == 0 {
			return domain.NewDomainViolation("t", "Time cannot be zero when solving for acceleration!")
		}
		k.a = (k.v - k.u) / k.t
		k.s = (k.u + k.v) * k.t / 2
		stepSolve(r, "Acceleration and Displacement",
			"a = (v - u) / t",
			fmt.Sprintf("a = (%s - %s) / %s = %s m/s²", n(k.v), n(k.u), n(k.t), f3(k.a)),
			"s = (u + v)t / 2",
			fmt.Sprintf("s = (%s + %s)×%s / 2 = %s m", n(k.u), n(k.v), n(k.t), f3(k.s)))

	case "us":
		k.u = k.v - k.a*k.t
		k.s = k.v*k.t - 0.5*k.a*k.t*k.t
		stepSolve(r, "Initial Velocity and Displacement",
			"u = v - at",
			fmt.Sprintf("u = %s - %s×%s = %s m/s", n(k.v), n(k.a), n(k.t), f3(k.u)),
			"s = vt - ½at²",
			fmt.Sprintf("s = %s×%s - ½×%s×%s² = %s m", n(k.v), n(k.t), n(k.a), n(k.t), f3(k.s)))

	case "vt":
		if k.a == 0 {
			if k.u == 0 {
				return domain.NewDomainViolation("u", "Initial velocity and acceleration cannot both be zero!")
			}
			k.t = k.s / k.u
		} else {
			t, ok := smallestNonNegativeRoot(0.5*k.a, k.u, -k.s)
			if !ok {
				return errNegativeTime
			}
			k.t = t
		}
		if k.t < 0 {
			return errNegativeTime
		}
		k.v = k.u + k.a*k.t
		stepSolve(r, "Time and Final Velocity",
			"s = ut + ½at²",
			fmt.Sprintf("%s = %s·t + ½×%s·t²", n(k.s), n(k.u), n(k.a)),
			fmt.Sprintf("t = %s s", f3(k.t)),
			"v = u + at",
			fmt.Sprintf("v = %s + %s×%s = %s m/s", n(k.u), n(k.a), f3(k.t), f3(k.v)))

	case "va":
		if k.t == 0 {
			return domain.NewDomainViolation("t", "Time cannot be zero when solving for acceleration!")
		}
		k.a = 2 * (k.s - k.u*k.t) / (k.t * k.t)
		k.v = 2*k.s/k.t - k.u
		stepSolve(r, "Acceleration and Final Velocity",
			"a = 2(s - ut) / t²",
			fmt.Sprintf("a = 2×(%s - %s×%s) / %s² = %s m/s²", n(k.s), n(k.u), n(k.t), n(k.t), f3(k.a)),
			"v = 2s/t - u",
			fmt.Sprintf("v = 2×%s/%s - %s = %s m/s", n(k.s), n(k.t), n(k.u), f3(k.v)))

	case "uv":
		if k.t == 0 {
			return domain.NewDomainViolation("t", "Time cannot be zero when solving for velocity!")
		}
		k.u = k.s/k.t - 0.5*k.a*k.t
		k.v = k.u + k.a*k.t
		stepSolve(r, "Initial and Final Velocity",
			"u = s/t - ½at",
			fmt.Sprintf("u = %s/%s - ½×%s×%s = %s m/s", n(k.s), n(k.t), n(k.a), n(k.t), f3(k.u)),
			"v = u + at",
			fmt.Sprintf("v = %s + %s×%s = %s m/s", f3(k.u), n(k.a), n(k.t), f3(k.v)))

	case "at":
		if k.u+k.v == 0 {
			return domain.NewDomainViolation("v", "Initial and final velocity cannot sum to zero!")
		}
		k.t = 2 * k.s / (k.u + k.v)
		if k.t < 0 {
			return errNegativeTime
		}
		if k.t == 0 {
			return domain.NewDomainViolation("s", "Displacement cannot be zero when solving for time!")
		}
		k.a = (k.v - k.u) / k.t
		stepSolve(r, "Time and Acceleration",
			"t = 2s / (u + v)",
			fmt.Sprintf("t = 2×%s / (%s + %s) = %s s", n(k.s), n(k.u), n(k.v), f3(k.t)),
			"a = (v - u) / t",
			fmt.Sprintf("a = (%s - %s) / %s = %s m/s²", n(k.v), n(k.u), f3(k.t), f3(k.a)))

	case "ut":
		if k.a == 0 {
			if k.v == 0 {
				return domain.NewDomainViolation("v", "Final velocity and acceleration cannot both be zero!")
			}
			k.t = k.s / k.v
		} else {
			t, ok := smallestNonNegativeRoot(0.5*k.a, -k.v, k.s)
			if !ok {
				return errNegativeTime
			}
			k.t = t
		}
		if k.t < 0 {
			return errNegativeTime
		}
		k.u = k.v - k.a*k.t
		stepSolve(r, "Initial Velocity and Time",
			"s = vt - ½at²",
			fmt.Sprintf("%s = %s·t - ½×%s·t²", n(k.s), n(k.v), n(k.a)),
			fmt.Sprintf("t = %s s", f3(k.t)),
			"u = v - at",
			fmt.Sprintf("u = %s - %s×%s = %s m/s", n(k.v), n(k.a), f3(k.t), f3(k.u)))

	case "ua":
		if k.t == 0 {
			return domain.NewDomainViolation("t", "Time cannot be zero when solving for acceleration!")
		}
		k.u = 2*k.s/k.t - k.v
		k.a = (k.v - k.u) / k.t
		stepSolve(r, "Initial Velocity and Acceleration",
			"u = 2s/t - v",
			fmt.Sprintf("u = 2×%s/%s - %s = %s m/s", n(k.s), n(k.t), n(k.v), f3(k.u)),
			"a = (v - u) / t",
			fmt.Sprintf("a = (%s - %s) / %s = %s m/s²", n(k.v), f3(k.u), n(k.t), f3(k.a)))
	}
	return nil
}

// smallestNonNegativeRoot 返回 A·x² + B·x + C = 0 的最小非负实根，A 不为零。
func smallestNonNegativeRoot(A, B, C float64) (float64, bool) {
	disc := B*B - 4*A*C
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	r1 := (-B - sq) / (2 * A)
	r2 := (-B + sq) / (2 * A)
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	const eps = 1e-12
	switch {
	case r1 >= -eps:
		return math.Max(r1, 0), true
	case r2 >= -eps:
		return math.Max(r2, 0), true
	}
	return 0, false
}

// kinematicsWarnings 只针对用户提供的值给出提示。
func kinematicsWarnings(p *Params, k suvat, r *domain.Result) {
	if p.Has("u") && math.Abs(k.u) > 300 {
		r.Warn("⚠ Initial velocity is very high (>300 m/s). Check for errors?")
	}
	if p.Has("v") && math.Abs(k.v) > 300 {
		r.Warn("⚠ Final velocity is very high (>300 m/s). Check for errors?")
	}
	if p.Has("a") && math.Abs(k.a) > 100 {
		r.Warn("⚠ Acceleration is very high (>100 m/s²). Check for errors?")
	}
	if p.Has("t") && k.t > 1000 {
		r.Warn("⚠ Time is very large (>1000s). Check for errors?")
	}
	if p.Has("s") && math.Abs(k.s) > 1000000 {
		r.Warn("⚠ Displacement is very large (>1M meters). Check for errors?")
	}
	if p.Count("u", "v", "a", "t") == 4 && math.Abs(k.v-(k.u+k.a*k.t)) > 1 {
		r.Warn("⚠ Values may be inconsistent with kinematics equations")
	}
}
