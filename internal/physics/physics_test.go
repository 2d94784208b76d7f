package physics

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/oriys/physlab/internal/domain"
)

// approx 判断两个浮点数在相对误差范围内相等
func approx(got, want float64) bool {
	if want == 0 {
		return math.Abs(got) < 1e-9
	}
	return math.Abs(got-want) <= 1e-6*math.Abs(want)
}

// solve 通过默认注册表求解，失败时直接终止测试
func solve(t *testing.T, module string, raw map[string]any) *domain.Result {
	t.Helper()
	res, err := NewRegistry(DefaultConstants()).Solve(module, raw)
	if err != nil {
		t.Fatalf("Solve(%s, %v) error = %v", module, raw, err)
	}
	return res
}

// checkOutputs 校验期望的输出值
func checkOutputs(t *testing.T, res *domain.Result, want map[string]float64) {
	t.Helper()
	for k, w := range want {
		got, ok := res.Outputs[k]
		if !ok {
			t.Errorf("output %q missing, outputs = %v", k, res.Outputs)
			continue
		}
		if !approx(got, w) {
			t.Errorf("output %q = %v, want %v", k, got, w)
		}
	}
}

// TestSolvers 覆盖每个模块的主要求解分支
func TestSolvers(t *testing.T) {
	tests := []struct {
		name   string
		module string
		input  map[string]any
		want   map[string]float64
	}{
		// 运动学：已知 u、a、t
		{"kinematics u a t", "kinematics", map[string]any{"u": 0, "a": 9.8, "t": 5}, map[string]float64{"v": 49, "s": 122.5}},
		// 运动学：已知 u、v、a 求时间和位移
		{"kinematics u v a", "kinematics", map[string]any{"u": 10, "v": 20, "a": 2}, map[string]float64{"t": 5, "s": 75}},
		// 运动学：已知 4 个量求位移
		{"kinematics four known", "kinematics", map[string]any{"u": 0, "v": 20, "a": 2, "t": 10}, map[string]float64{"s": 100}},
		// 运动学：已知 u、a、s，解二次方程
		{"kinematics u a s", "kinematics", map[string]any{"u": 0, "a": 2, "s": 100}, map[string]float64{"t": 10, "v": 20}},
		// 运动学：已知 v、a、s
		{"kinematics v a s", "kinematics", map[string]any{"v": 20, "a": 2, "s": 100}, map[string]float64{"t": 10, "u": 0}},
		// 运动学：已知 u、v、s
		{"kinematics u v s", "kinematics", map[string]any{"u": 0, "v": 20, "s": 100}, map[string]float64{"t": 10, "a": 2}},
		// 运动学：已知 v、t、s
		{"kinematics v t s", "kinematics", map[string]any{"v": 20, "t": 10, "s": 100}, map[string]float64{"u": 0, "a": 2}},
		// 欧姆定律：求电流
		{"ohm current", "ohms_law", map[string]any{"V": 12, "R": 4}, map[string]float64{"I": 3, "P": 36}},
		// 欧姆定律：求电压（连字符别名）
		{"ohm voltage alias", "ohms-law", map[string]any{"I": 2, "R": 5}, map[string]float64{"V": 10, "P": 20}},
		// 欧姆定律：求电阻
		{"ohm resistance", "ohms_law", map[string]any{"V": 10, "I": 2}, map[string]float64{"R": 5, "P": 20}},
		// 能量：动能
		{"energy kinetic", "energy", map[string]any{"m": 2, "v": 3}, map[string]float64{"KE": 9}},
		// 能量：势能与机械能，g 使用默认值
		{"energy potential", "energy", map[string]any{"m": 2, "v": 3, "h": 10}, map[string]float64{"PE": 196, "ME": 205}},
		// 能量：功与功率
		{"energy work power", "energy", map[string]any{"m": 1, "v": 0, "F": 10, "d": 5, "t": 2}, map[string]float64{"KE": 0, "W": 50, "P": 25}},
		// 动量与碰撞
		{"momentum", "momentum", map[string]any{"m1": 2, "v1": 3, "m2": 1, "v2": -1}, map[string]float64{
			"p1": 6, "p2": -1, "p_total": 5, "v_inelastic": 5.0 / 3, "v1_elastic": 1.0 / 3, "v2_elastic": 13.0 / 3, "KE_total": 9.5,
		}},
		// 光学：求像距
		{"optics image", "optics", map[string]any{"f": 10, "u": 30}, map[string]float64{"v": 15, "m": -0.5}},
		// 光学：求物距
		{"optics object", "optics", map[string]any{"f": 10, "v": 15}, map[string]float64{"u": 30}},
		// 光学：求焦距
		{"optics focal", "optics", map[string]any{"u": 30, "v": 15}, map[string]float64{"f": 10}},
		// 圆周运动：已知线速度
		{"circular velocity", "circular_motion", map[string]any{"m": 2, "r": 4, "v": 8}, map[string]float64{
			"omega": 2, "T": math.Pi, "F_c": 32, "a_c": 16, "f": 1 / math.Pi,
		}},
		// 圆周运动：已知周期（连字符别名）
		{"circular period", "circular-motion", map[string]any{"m": 1, "r": 2, "T": 2 * math.Pi}, map[string]float64{"omega": 1, "v": 2}},
		// 抛体运动：竖直上抛
		{"projectile vertical", "projectile_motion", map[string]any{"v0": 20, "theta": 90, "g": 10}, map[string]float64{
			"v0y": 20, "max_height": 20, "time_to_peak": 2, "time_of_flight": 4,
		}},
		// 抛体运动：30° 斜抛，射程 v0²sin2θ/g
		{"projectile 30deg", "projectile-motion", map[string]any{"v0": 20, "theta": 30}, map[string]float64{
			"range": 400 * math.Sin(math.Pi/3) / 9.8, "time_of_flight": 20 / 9.8,
		}},
		// 抛体运动：从高处水平抛出
		{"projectile from height", "projectile_motion", map[string]any{"v0": 10, "theta": 0, "h0": 19.6}, map[string]float64{
			"time_of_flight": 2, "range": 20, "max_height": 19.6,
		}},
		// 热学：已知温度变化
		{"thermo delta", "thermodynamics", map[string]any{"m": 2, "c": 4186, "delta_t": 10}, map[string]float64{"Q": 83720, "Q_kJ": 83.72}},
		// 热学：已知初末温度
		{"thermo temps", "thermodynamics", map[string]any{"m": 2, "c": 4186, "t1": 20, "t2": 30}, map[string]float64{"Q": 83720, "delta_t": 10}},
		// 热学：已知热量反求温度
		{"thermo inverse", "thermodynamics", map[string]any{"m": 2, "c": 4186, "Q": 83720, "t1": 20}, map[string]float64{"delta_t": 10, "t2": 30, "Q": 83720, "Q_kJ": 83.72}},
		// 静电学：异号电荷
		{"electrostatics", "electrostatics", map[string]any{"q1": 1e-6, "q2": -2e-6, "r": 0.1}, map[string]float64{
			"F": 1.798, "E": 899000, "V": 89900,
		}},
		// 简谐运动：弹簧振子
		{"shm spring", "shm", map[string]any{"A": 0.1, "m": 1, "k": 4}, map[string]float64{
			"omega": 2, "v_max": 0.2, "a_max": 0.4, "E": 0.02, "T": math.Pi,
		}},
		// 简谐运动：已知频率
		{"shm frequency", "simple-harmonic-motion", map[string]any{"A": 2, "f": 1}, map[string]float64{"omega": 2 * math.Pi, "T": 1}},
		// 简谐运动：半个周期后位移反向
		{"shm state at t", "shm", map[string]any{"A": 1, "omega": 2, "t": math.Pi / 2}, map[string]float64{"x_t": -1, "v_t": 0}},
		// 向量：单个向量的模
		{"vector magnitude", "vectors", map[string]any{"x1": 3, "y1": 4}, map[string]float64{"magnitude_1": 5}},
		// 向量：两个正交向量
		{"vector pair", "vectors", map[string]any{"x1": 1, "y1": 0, "x2": 0, "y2": 1}, map[string]float64{
			"dot_product": 0, "angle_degrees": 90, "cross_z": 1, "magnitude": math.Sqrt2,
		}},
		// 牛顿第二定律：求力
		{"newton force", "newtons_law", map[string]any{"m": 2, "a": 3}, map[string]float64{"F": 6}},
		// 牛顿第二定律：求质量
		{"newton mass", "newtons-law", map[string]any{"F": 10, "a": 2}, map[string]float64{"m": 5}},
		// 自由落体：已知高度
		{"freefall height", "freefall", map[string]any{"h": 19.6}, map[string]float64{"t": 2, "v": 19.6}},
		// 自由落体：已知时间
		{"freefall time", "freefall", map[string]any{"t": 3}, map[string]float64{"h": 44.1, "v": 29.4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := solve(t, tt.module, tt.input)
			checkOutputs(t, res, tt.want)
			if len(res.Steps) == 0 {
				t.Error("expected solution steps")
			}
		})
	}
}

// TestSolvers_Errors 测试输入缺失和超出定义域的情况
func TestSolvers_Errors(t *testing.T) {
	tests := []struct {
		name    string
		module  string
		input   map[string]any
		wantErr error
		wantMsg string
	}{
		{"kinematics too few", "kinematics", map[string]any{"u": 1, "v": 2}, domain.ErrInvalidInput, "Please enter at least 3 values!"},
		{"kinematics zero accel for time", "kinematics", map[string]any{"u": 1, "v": 2, "a": 0}, domain.ErrDomainViolation, ""},
		{"kinematics negative time", "kinematics", map[string]any{"u": 20, "v": 10, "a": 2}, domain.ErrDomainViolation, "No non-negative time satisfies these values!"},
		{"kinematics given negative time", "kinematics", map[string]any{"u": 1, "a": 1, "t": -1}, domain.ErrDomainViolation, "Time cannot be negative!"},
		{"kinematics bad number", "kinematics", map[string]any{"u": "abc", "a": 1, "t": 1}, domain.ErrInvalidInput, "Initial Velocity must be a valid number!"},
		{"ohm three values", "ohms_law", map[string]any{"V": 1, "I": 1, "R": 1}, domain.ErrInvalidInput, "Please enter exactly 2 values!"},
		{"ohm zero current", "ohms_law", map[string]any{"V": 10, "I": 0}, domain.ErrDomainViolation, "Current must be positive!"},
		{"ohm negative voltage", "ohms_law", map[string]any{"V": -1, "R": 2}, domain.ErrDomainViolation, "Voltage must be non-negative!"},
		{"energy missing mass", "energy", map[string]any{"v": 2}, domain.ErrInvalidInput, "Mass cannot be empty!"},
		{"energy zero time", "energy", map[string]any{"m": 1, "v": 1, "F": 1, "d": 1, "t": 0}, domain.ErrDomainViolation, "Time must be positive!"},
		{"energy negative velocity", "energy", map[string]any{"m": 1, "v": -1}, domain.ErrDomainViolation, "Velocity cannot be negative!"},
		{"momentum zero mass", "momentum", map[string]any{"m1": 0, "v1": 1, "m2": 1, "v2": 1}, domain.ErrDomainViolation, "Mass 1 must be positive!"},
		{"optics at focus", "optics", map[string]any{"f": 10, "u": 10}, domain.ErrDomainViolation, "Object at focal point: image forms at infinity!"},
		{"optics zero focal", "optics", map[string]any{"f": 0, "u": 10}, domain.ErrDomainViolation, "Focal Length cannot be zero!"},
		{"optics one value", "optics", map[string]any{"f": 10}, domain.ErrInvalidInput, ""},
		{"circular no motion input", "circular_motion", map[string]any{"m": 1, "r": 1}, domain.ErrInvalidInput, ""},
		{"projectile zero speed", "projectile_motion", map[string]any{"v0": 0, "theta": 45}, domain.ErrDomainViolation, "Initial Velocity must be positive!"},
		{"thermo no temperature", "thermodynamics", map[string]any{"m": 1, "c": 1}, domain.ErrInvalidInput, ""},
		{"electrostatics zero distance", "electrostatics", map[string]any{"q1": 1, "q2": 1, "r": 0}, domain.ErrDomainViolation, "Distance must be positive!"},
		{"shm no frequency", "shm", map[string]any{"A": 1}, domain.ErrInvalidInput, ""},
		{"vectors half second", "vectors", map[string]any{"x1": 1, "y1": 1, "x2": 1}, domain.ErrInvalidInput, ""},
		{"newton zero accel", "newtons_law", map[string]any{"F": 10, "a": 0}, domain.ErrDomainViolation, "Acceleration cannot be zero!"},
		{"freefall nothing", "freefall", map[string]any{}, domain.ErrInvalidInput, "Please enter height or time!"},
		{"overflow", "kinematics", map[string]any{"u": 1e308, "a": 1e308, "t": 10}, domain.ErrDomainViolation, ""},
		{"unknown module", "relativity", map[string]any{}, domain.ErrUnknownModule, ""},
	}

	reg := NewRegistry(DefaultConstants())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Solve(tt.module, tt.input)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

// TestSolvers_Attributes 测试文字类结果
func TestSolvers_Attributes(t *testing.T) {
	tests := []struct {
		name   string
		module string
		input  map[string]any
		key    string
		want   string
	}{
		{"repulsive", "electrostatics", map[string]any{"q1": 1e-6, "q2": 1e-6, "r": 1}, "force_type", "Repulsive"},
		{"attractive", "electrostatics", map[string]any{"q1": 1e-6, "q2": -1e-6, "r": 1}, "force_type", "Attractive"},
		{"no force", "electrostatics", map[string]any{"q1": 0, "q2": 1e-6, "r": 1}, "force_type", "None"},
		{"real image", "optics", map[string]any{"f": 10, "u": 30}, "image_type", "Real, inverted, diminished"},
		{"virtual image", "optics", map[string]any{"f": 10, "u": 5}, "image_type", "Virtual, upright, magnified"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := solve(t, tt.module, tt.input)
			if got := res.Attributes[tt.key]; got != tt.want {
				t.Errorf("%s = %q, want %q", tt.key, got, tt.want)
			}
			if got := res.Data()[tt.key]; got != tt.want {
				t.Errorf("Data()[%s] = %v, want %q", tt.key, got, tt.want)
			}
		})
	}
}

// TestSolvers_Warnings 测试不现实输入的警告
func TestSolvers_Warnings(t *testing.T) {
	tests := []struct {
		name     string
		module   string
		input    map[string]any
		contains string
	}{
		{"fast start", "kinematics", map[string]any{"u": 400, "a": 0, "t": 1}, "Initial velocity is very high"},
		{"inconsistent suvat", "kinematics", map[string]any{"u": 0, "v": 50, "a": 1, "t": 1}, "inconsistent with kinematics"},
		{"industrial voltage", "ohms_law", map[string]any{"I": 20, "R": 100}, "Voltage is very high"},
		{"tiny resistance", "ohms_law", map[string]any{"V": 1, "I": 2000}, "Resistance is very low"},
		{"heavy object", "energy", map[string]any{"m": 2e6, "v": 1}, "Mass is very large"},
		{"same direction", "momentum", map[string]any{"m1": 1, "v1": 1, "m2": 1, "v2": 2}, "Same direction"},
		{"inside focus", "optics", map[string]any{"f": 10, "u": 5}, "inside focal point"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := solve(t, tt.module, tt.input)
			found := false
			for _, w := range res.Warnings {
				if strings.Contains(w, tt.contains) {
					found = true
				}
			}
			if !found {
				t.Errorf("warnings %v do not contain %q", res.Warnings, tt.contains)
			}
		})
	}
}

// TestKinematics_Steps 测试解题步骤的格式
func TestKinematics_Steps(t *testing.T) {
	res := solve(t, "kinematics", map[string]any{"u": 0, "v": 20, "a": 2, "t": 10})
	want := []string{
		"Given:",
		"  u = 0 m/s",
		"  v = 20 m/s",
		"  a = 2 m/s²",
		"  t = 10 s",
		"",
		"Solving for Displacement:",
		"  v² = u² + 2as",
		"  s = (v² - u²) / 2a",
		"  s = (20² - 0²) / (2×2)",
		"  s = (400.000 - 0.000) / 4.000",
		"  s = 100.000 m",
	}
	if len(res.Steps) != len(want) {
		t.Fatalf("steps = %q", res.Steps)
	}
	for i := range want {
		if res.Steps[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, res.Steps[i], want[i])
		}
	}
}

// TestRegistry_Lookup 测试别名与大小写解析
func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry(Constants{})
	tests := map[string]string{
		"kinematics":             "kinematics",
		"OHMS_LAW":               "ohms_law",
		"ohms-law":               "ohms_law",
		"circular-motion":        "circular_motion",
		"projectile-motion":      "projectile_motion",
		"simple_harmonic_motion": "shm",
		"simple-harmonic-motion": "shm",
		"newtons-law":            "newtons_law",
		" free-fall ":            "freefall",
	}
	for name, want := range tests {
		m, err := reg.Lookup(name)
		if err != nil {
			t.Errorf("Lookup(%q) error = %v", name, err)
			continue
		}
		if m.Key != want {
			t.Errorf("Lookup(%q) = %s, want %s", name, m.Key, want)
		}
	}

	if len(reg.Modules()) != 13 {
		t.Errorf("Modules() = %d, want 13", len(reg.Modules()))
	}
	if reg.Constants().Gravity != 9.8 {
		t.Errorf("zero constants should fall back to defaults, got %+v", reg.Constants())
	}
}

// TestRegistry_CustomGravity 测试配置的重力加速度作为默认值生效
func TestRegistry_CustomGravity(t *testing.T) {
	reg := NewRegistry(Constants{Gravity: 10, Coulomb: 9e9})
	res, err := reg.Solve("freefall", map[string]any{"t": 2})
	if err != nil {
		t.Fatal(err)
	}
	if !approx(res.Outputs["h"], 20) {
		t.Errorf("h = %v, want 20", res.Outputs["h"])
	}
	if res.Given["g"] != 10 {
		t.Errorf("given g = %v, want 10", res.Given["g"])
	}
}

// TestModule_Info 测试模块目录信息
func TestModule_Info(t *testing.T) {
	m, err := NewRegistry(DefaultConstants()).Lookup("projectile_motion")
	if err != nil {
		t.Fatal(err)
	}
	info := m.Info()
	if info.Title != "Projectile Motion" || len(info.Fields) != 4 {
		t.Fatalf("info = %+v", info)
	}
	if info.Fields[3].Default == nil || *info.Fields[3].Default != 9.8 {
		t.Errorf("gravity default = %v", info.Fields[3].Default)
	}
	if !info.Fields[0].Required {
		t.Error("v0 should be required")
	}
}

// TestWarningMessage 测试警告合并文本最多展示 3 条
func TestWarningMessage(t *testing.T) {
	if got := WarningMessage(nil); got != "" {
		t.Errorf("WarningMessage(nil) = %q", got)
	}
	msg := WarningMessage([]string{"a", "b", "c", "d", "e"})
	if !strings.Contains(msg, "• c") || strings.Contains(msg, "• d") {
		t.Errorf("unexpected message %q", msg)
	}
	if !strings.HasSuffix(msg, "...and 2 more warning(s)") {
		t.Errorf("missing overflow line: %q", msg)
	}
}
