package physics

import (
	"fmt"
	"math"

	"github.com/oriys/physlab/internal/domain"
)

var vectorFields = []Field{
	{Key: "x1", Label: "Vector 1 x", Required: true},
	{Key: "y1", Label: "Vector 1 y", Required: true},
	{Key: "z1", Label: "Vector 1 z", Default: defaultValue(0)},
	{Key: "x2", Label: "Vector 2 x"},
	{Key: "y2", Label: "Vector 2 y"},
	{Key: "z2", Label: "Vector 2 z"},
}

func vectorsModule() *Module {
	return &Module{
		Key:         "vectors",
		Title:       "Vectors",
		Description: "Magnitude of a vector; sum, dot product, cross product and angle of two vectors",
		Fields:      vectorFields,
		Solve:       solveVectors,
	}
}

type vec3 struct{ x, y, z float64 }

func (a vec3) add(b vec3) vec3 { return vec3{a.x + b.x, a.y + b.y, a.z + b.z} }
func (a vec3) dot(b vec3) float64 { return a.x*b.x + a.y*b.y + a.z*b.z }
func (a vec3) norm() float64 { return math.Sqrt(a.dot(a)) }
func (a vec3) cross(b vec3) vec3 { return vec3{a.y*b.z - a.z*b.y, a.z*b.x - a.x*b.z, a.x*b.y - a.y*b.x} }
func (a vec3) String() string { return fmt.Sprintf("(%s, %s, %s)", n(a.x), n(a.y), n(a.z)) }

// angleBetween 返回两向量夹角（弧度），任一向量长度为零时返回 0。
func angleBetween(a, b vec3) float64 {
	ma, mb := a.norm(), b.norm()
	if ma == 0 || mb == 0 {
		return 0
	}
	cos := a.dot(b) / (ma * mb)
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}

func solveVectors(p *Params, r *domain.Result) error {
	a := vec3{p.Get("x1"), p.Get("y1"), p.Get("z1")}
	r.Step("Given:")
	r.Step("  A = " + a.String())

	magA := a.norm()
	r.Set("magnitude_1", magA)

	second := p.Count("x2", "y2")
	if second == 0 {
		r.Step("")
		stepSolve(r, "Magnitude", "|A| = √(x² + y² + z²)", fmt.Sprintf("|A| = %s", f3(magA)))
		return nil
	}
	if second == 1 {
		return domain.NewInvalidInput("", "Please enter both x and y of vector 2!")
	}

	b := vec3{p.Get("x2"), p.Get("y2"), p.Get("z2")}
	r.Step("  B = " + b.String())
	r.Step("")

	sum := a.add(b)
	cross := a.cross(b)
	angle := angleBetween(a, b)

	r.Set("magnitude_2", b.norm())
	r.Set("resultant_x", sum.x)
	r.Set("resultant_y", sum.y)
	r.Set("resultant_z", sum.z)
	r.Set("magnitude", sum.norm())
	r.Set("dot_product", a.dot(b))
	r.Set("cross_x", cross.x)
	r.Set("cross_y", cross.y)
	r.Set("cross_z", cross.z)
	r.Set("angle_radians", angle)
	r.Set("angle_degrees", angle*180/math.Pi)

	stepSolve(r, "Resultant",
		"R = A + B",
		fmt.Sprintf("R = (%s, %s, %s)", f3(sum.x), f3(sum.y), f3(sum.z)),
		fmt.Sprintf("|R| = %s", f3(sum.norm())))
	r.Step("")
	stepSolve(r, "Dot Product",
		"A·B = AxBx + AyBy + AzBz",
		fmt.Sprintf("A·B = %s", f3(a.dot(b))))
	r.Step("")
	stepSolve(r, "Angle",
		"θ = acos(A·B / (|A||B|))",
		fmt.Sprintf("θ = %s° (%s rad)", f3(angle*180/math.Pi), f3(angle)))
	return nil
}
