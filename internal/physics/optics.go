package physics

import (
	"fmt"
	"math"

	"github.com/oriys/physlab/internal/domain"
)

var opticsFields = []Field{
	{Key: "f", Label: "Focal Length", Unit: "cm"},
	{Key: "u", Label: "Object Distance", Unit: "cm"},
	{Key: "v", Label: "Image Distance", Unit: "cm"},
}

func opticsModule() *Module {
	return &Module{
		Key:         "optics",
		Title:       "Optics",
		Description: "Thin lens equation 1/f = 1/u + 1/v with magnification m = -v/u",
		Fields:      opticsFields,
		Solve:       solveOptics,
	}
}

// solveOptics 采用实正虚负的符号约定：1/f = 1/u + 1/v。
func solveOptics(p *Params, r *domain.Result) error {
	if p.Count("f", "u", "v") < 2 {
		return domain.NewInvalidInput("", "Please enter at least 2 values!")
	}
	if err := firstErr(p.NonZero("f"), p.Positive("u")); err != nil {
		return err
	}
	f, u, v := p.Get("f"), p.Get("u"), p.Get("v")
	stepGiven(r, p, opticsFields)

	switch {
	case !p.Has("v"):
		if u == f {
			return domain.NewDomainViolation("u", "Object at focal point: image forms at infinity!")
		}
		v = f * u / (u - f)
		r.Set("v", v)
		stepSolve(r, "Image Distance",
			"1/f = 1/u + 1/v",
			fmt.Sprintf("1/%s = 1/%s + 1/v", n(f), n(u)),
			"v = (f × u) / (u - f)",
			fmt.Sprintf("v = (%s × %s) / (%s - %s)", n(f), n(u), n(u), n(f)),
			fmt.Sprintf("v = %s cm", f3(v)))
	case !p.Has("u"):
		if v == f {
			return domain.NewDomainViolation("v", "Image at focal point: object would be at infinity!")
		}
		u = v * f / (v - f)
		if u <= 0 {
			return domain.NewDomainViolation("u", "No real object distance produces this image!")
		}
		r.Set("u", u)
		stepSolve(r, "Object Distance",
			"1/f = 1/u + 1/v",
			"u = (f × v) / (v - f)",
			fmt.Sprintf("u = (%s × %s) / (%s - %s)", n(f), n(v), n(v), n(f)),
			fmt.Sprintf("u = %s cm", f3(u)))
	case !p.Has("f"):
		if u+v == 0 {
			return domain.NewDomainViolation("v", "Object and image distances cannot sum to zero!")
		}
		f = u * v / (u + v)
		r.Set("f", f)
		stepSolve(r, "Focal Length",
			"1/f = 1/u + 1/v",
			"f = (u × v) / (u + v)",
			fmt.Sprintf("f = (%s × %s) / (%s + %s)", n(u), n(v), n(u), n(v)),
			fmt.Sprintf("f = %s cm", f3(f)))
	default:
		if math.Abs(1/f-(1/u+1/v)) > 0.01*math.Abs(1/f) {
			r.Warn("⚠ Values may not satisfy the lens equation 1/f = 1/u + 1/v")
		}
	}

	m := -v / u
	r.Set("m", m)
	r.Step("")
	r.Step("Magnification:")
	r.Step("  m = -v/u")
	r.Step(fmt.Sprintf("  m = -%s/%s", f3(v), n(u)))
	r.Step(fmt.Sprintf("  m = %s", f3(m)))

	image := "Real, inverted"
	if m > 0 {
		image = "Virtual, upright"
	}
	size := "same size"
	switch {
	case math.Abs(m) > 1:
		size = "magnified"
	case math.Abs(m) < 1:
		size = "diminished"
	}
	r.Attr("image_type", fmt.Sprintf("%s, %s", image, size))

	if math.Abs(f) > 1000 {
		r.Warn("⚠ Focal length is very large (>1000 cm). Check for errors?")
	}
	if p.Has("u") && p.Has("f") && math.Abs(u) <= math.Abs(f) {
		r.Warn("ℹ Object is at or inside focal point. Virtual image will form.")
	}
	if u > 10000 {
		r.Warn("⚠ Object distance is very large (>10km). Check for errors?")
	}
	if v > 10000 {
		r.Warn("⚠ Image distance is very large (>10km). Check for errors?")
	}
	return nil
}
