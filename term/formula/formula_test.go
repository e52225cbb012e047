package formula

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
)

type flowFunc func(Branch, State) (float64, Derivatives)

var testBranch = Branch{Y: 1 / math.Hypot(0.02, 0.12), Ksi: math.Atan2(0.02, 0.12), G1: 0.001, B1: 0.03, G2: 0.002, B2: 0.025}

var testState = State{V1: 1.03, Ph1: 0.05, V2: 0.97, Ph2: -0.12, R1: 0.98, A1: 0.1}

// numeric 中心差分
func numeric(f flowFunc, s State, set func(*State, float64), get func(State) float64) float64 {
	const h = 1e-6
	x := get(s)
	sp, sm := s, s
	set(&sp, x+h)
	set(&sm, x-h)
	vp, _ := f(testBranch, sp)
	vm, _ := f(testBranch, sm)
	return (vp - vm) / (2 * h)
}

func checkDerivatives(t *testing.T, name string, f flowFunc, s State) {
	_, d := f(testBranch, s)
	cases := []struct {
		variable string
		analytic float64
		set      func(*State, float64)
		get      func(State) float64
	}{
		{"v1", d.V1, func(s *State, x float64) { s.V1 = x }, func(s State) float64 { return s.V1 }},
		{"ph1", d.Ph1, func(s *State, x float64) { s.Ph1 = x }, func(s State) float64 { return s.Ph1 }},
		{"v2", d.V2, func(s *State, x float64) { s.V2 = x }, func(s State) float64 { return s.V2 }},
		{"ph2", d.Ph2, func(s *State, x float64) { s.Ph2 = x }, func(s State) float64 { return s.Ph2 }},
		{"r1", d.R1, func(s *State, x float64) { s.R1 = x }, func(s State) float64 { return s.R1 }},
		{"a1", d.A1, func(s *State, x float64) { s.A1 = x }, func(s State) float64 { return s.A1 }},
	}
	for _, c := range cases {
		assert.InDelta(t, numeric(f, s, c.set, c.get), c.analytic, 1e-5, "%s d/d%s", name, c.variable)
	}
}

// TestDerivativesFiniteDifference 测试解析导数与差分一致
func TestDerivativesFiniteDifference(t *testing.T) {
	flows := map[string]flowFunc{
		"p1": ClosedP1, "q1": ClosedQ1, "i1": ClosedI1,
		"p2": ClosedP2, "q2": ClosedQ2, "i2": ClosedI2,
		"open2_p1": OpenSide2P1, "open2_q1": OpenSide2Q1, "open2_i1": OpenSide2I1,
		"open1_p2": OpenSide1P2, "open1_q2": OpenSide1Q2, "open1_i2": OpenSide1I2,
	}
	for name, f := range flows {
		checkDerivatives(t, name, f, testState)
	}
}

// complexFlows 用复数导纳直接计算两端功率和电流
func complexFlows(b Branch, s State) (s1, s2, i1, i2 complex128) {
	ys := seriesAdmittance(b)
	v1p := cmplx.Rect(s.R1*s.V1, s.Ph1+s.A1)
	v2 := cmplx.Rect(s.V2, s.Ph2)
	i1p := (complex(b.G1, b.B1)+ys)*v1p - ys*v2
	i2 = (complex(b.G2, b.B2)+ys)*v2 - ys*v1p
	s1 = v1p * cmplx.Conj(i1p)
	s2 = v2 * cmplx.Conj(i2)
	i1 = complex(s.R1, 0) * i1p
	return
}

// TestClosedMatchesComplex 测试实数公式与复数计算一致
func TestClosedMatchesComplex(t *testing.T) {
	s1, s2, i1, i2 := complexFlows(testBranch, testState)
	p1, _ := ClosedP1(testBranch, testState)
	q1, _ := ClosedQ1(testBranch, testState)
	p2, _ := ClosedP2(testBranch, testState)
	q2, _ := ClosedQ2(testBranch, testState)
	m1, _ := ClosedI1(testBranch, testState)
	m2, _ := ClosedI2(testBranch, testState)
	assert.InDelta(t, real(s1), p1, 1e-12)
	assert.InDelta(t, imag(s1), q1, 1e-12)
	assert.InDelta(t, real(s2), p2, 1e-12)
	assert.InDelta(t, imag(s2), q2, 1e-12)
	assert.InDelta(t, cmplx.Abs(i1), m1, 1e-12)
	assert.InDelta(t, cmplx.Abs(i2), m2, 1e-12)
}

// TestOpenMatchesFloatingBus 测试末端断开等价于末端电流为零的闭合支路
func TestOpenMatchesFloatingBus(t *testing.T) {
	ys := seriesAdmittance(testBranch)
	v1p := cmplx.Rect(testState.R1*testState.V1, testState.Ph1+testState.A1)
	// 末端电流为零时的末端电压
	v2 := ys * v1p / (complex(testBranch.G2, testBranch.B2) + ys)
	s := testState
	s.V2, s.Ph2 = cmplx.Abs(v2), cmplx.Phase(v2)

	closedP, _ := ClosedP1(testBranch, s)
	closedQ, _ := ClosedQ1(testBranch, s)
	closedI, _ := ClosedI1(testBranch, s)
	i2, _ := ClosedI2(testBranch, s)
	openP, _ := OpenSide2P1(testBranch, s)
	openQ, _ := OpenSide2Q1(testBranch, s)
	openI, _ := OpenSide2I1(testBranch, s)
	assert.InDelta(t, 0, i2, 1e-12)
	assert.InDelta(t, closedP, openP, 1e-12)
	assert.InDelta(t, closedQ, openQ, 1e-12)
	assert.InDelta(t, closedI, openI, 1e-12)
}

// TestZeroCurrentDerivative 测试电流为零时导数取零
func TestZeroCurrentDerivative(t *testing.T) {
	b := Branch{Y: 10, Ksi: 0.1}
	s := State{V1: 1, V2: 1, R1: 1}
	m, d := ClosedI1(b, s)
	assert.InDelta(t, 0, m, 1e-12)
	assert.Equal(t, Derivatives{}, d)
}
