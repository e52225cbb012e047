package asym

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"acflow/config"
	"acflow/equation"
	"acflow/network"
	"acflow/types"
	"acflow/vector"
)

// pinTypes 用于固定序电压变量的方程类型
var pinTypes = map[types.VariableType]types.EquationType{
	types.BusV:           types.BusTargetV,
	types.BusPhi:         types.BusTargetPhi,
	types.BusVZero:       types.BusTargetIxZero,
	types.BusPhiZero:     types.BusTargetIyZero,
	types.BusVNegative:   types.BusTargetIxNegative,
	types.BusPhiNegative: types.BusTargetIyNegative,
}

// fixture 两母线不平衡网络,全部序电压变量已激活
type fixture struct {
	net    *network.Network
	system *equation.EquationSystem
	set    *vector.Set
}

func newFixture(t *testing.T, y *mat.CDense) *fixture {
	n := network.New()
	n.AddBus(&network.Bus{})
	n.AddBus(&network.Bus{})
	n.AddBranch(&network.Branch{Bus1: 0, Bus2: 1, Connected1: true, Connected2: true,
		PiModel: network.PiModel{R: 0.02, X: 0.15, G1: 0.001, B1: 0.02, G2: 0.001, B2: 0.03, R1: 0.95, A1: 0.03},
		Asymmetry: &network.Asymmetry{
			Coupled:  true,
			Zero:     network.PiModel{R: 0.06, X: 0.45, B1: 0.01, B2: 0.01},
			Negative: network.PiModel{R: 0.021, X: 0.16, G1: 0.002, B1: 0.02, B2: 0.025},
			Y:        y,
		}})
	n.AddLoad(&network.Load{Bus: 1, Phases: &network.PhaseLoad{
		P: [3]float64{0.3, 0.25, 0.35},
		Q: [3]float64{0.1, 0.12, 0.08},
	}})
	n.AddGenerator(&network.Generator{Bus: 0})

	s := equation.NewEquationSystem()
	f := &fixture{net: n, system: s, set: vector.NewSet(n, s, config.Default())}
	for bus := 0; bus < 2; bus++ {
		for vType, eType := range pinTypes {
			s.CreateEquation(bus, eType).AddTerm(equation.NewVariableTerm(s.StateVector(), s.Variable(bus, vType)))
		}
	}
	s.Index().Update()
	require.Equal(t, 12, s.Index().ColumnCount())
	// 每条母线: V φ V0 φ0 V2 φ2
	s.StateVector().Set([]float64{
		1.02, 0.01, 0.05, 0.3, 0.04, -0.2,
		0.97, -0.04, 0.07, -0.5, 0.03, 0.9,
	})
	return f
}

// checkDer 中心差分检验偏导数
func checkDer(t *testing.T, sv *equation.StateVector, term equation.EquationTerm) {
	const h = 1e-6
	for _, v := range term.Variables() {
		row := v.Row()
		x := sv.Get(row)
		sv.SetValue(row, x+h)
		fp := term.Eval()
		sv.SetValue(row, x-h)
		fm := term.Eval()
		sv.SetValue(row, x)
		assert.InDelta(t, (fp-fm)/(2*h), term.Der(v), 1e-6, "%s 对 %s", term, v)
	}
}

// TestCoupledMatchesDecoupled 张量无序间耦合时耦合公式与独立公式一致
func TestCoupledMatchesDecoupled(t *testing.T) {
	f := newFixture(t, nil)
	br := f.net.Branches[0]
	for _, side := range []types.Side{types.SideOne, types.SideTwo} {
		for _, seq := range types.Sequences {
			cx := CoupledIx(f.set, f.system, br, side, seq)
			dx := DecoupledIx(f.set, f.system, br, side, seq)
			cy := CoupledIy(f.set, f.system, br, side, seq)
			dy := DecoupledIy(f.set, f.system, br, side, seq)
			assert.InDelta(t, dx.Eval(), cx.Eval(), 1e-12)
			assert.InDelta(t, dy.Eval(), cy.Eval(), 1e-12)
			for _, v := range dx.Variables() {
				assert.InDelta(t, dx.Der(v), cx.Der(v), 1e-12)
			}
		}
	}
	// 正序功率与平衡网络支路公式一致
	p1 := CoupledP(f.set, f.system, br, types.SideOne, types.SequencePositive)
	q2 := CoupledQ(f.set, f.system, br, types.SideTwo, types.SequencePositive)
	assert.InDelta(t, f.set.Branch.P1.Value[0], p1.Eval(), 1e-12)
	assert.InDelta(t, f.set.Branch.Q2.Value[0], q2.Eval(), 1e-12)
	assert.InDelta(t, f.set.Branch.P1.Der[0].V2, p1.Der(f.system.Variable(1, types.BusV)), 1e-12)
	assert.Zero(t, p1.Der(f.system.Variable(1, types.BusVZero)), "无耦合时正序功率与零序电压无关")
}

// TestCoupledDerivatives 满张量耦合项偏导数
func TestCoupledDerivatives(t *testing.T) {
	data := make([]complex128, 36)
	for i := range data {
		data[i] = complex(0.1*float64(i%7)-0.3, 0.05*float64(i%5)+0.2)
	}
	f := newFixture(t, mat.NewCDense(6, 6, data))
	br := f.net.Branches[0]
	sv := f.system.StateVector()
	for _, side := range []types.Side{types.SideOne, types.SideTwo} {
		for _, seq := range types.Sequences {
			checkDer(t, sv, CoupledIx(f.set, f.system, br, side, seq))
			checkDer(t, sv, CoupledIy(f.set, f.system, br, side, seq))
			checkDer(t, sv, CoupledP(f.set, f.system, br, side, seq))
			checkDer(t, sv, CoupledQ(f.set, f.system, br, side, seq))
		}
	}
}

// TestLoadTerm 分相负荷项
func TestLoadTerm(t *testing.T) {
	f := newFixture(t, nil)
	l := f.net.Loads[0]
	sv := f.system.StateVector()
	const eps = 1e-8
	checkDer(t, sv, LoadP(f.set, f.system, l, eps))
	checkDer(t, sv, LoadQ(f.set, f.system, l, eps))
	for _, seq := range []types.Sequence{types.SequenceZero, types.SequenceNegative} {
		checkDer(t, sv, LoadIx(f.set, f.system, l, seq, eps))
		checkDer(t, sv, LoadIy(f.set, f.system, l, seq, eps))
	}
}

// TestBalancedLoad 三相平衡时正序功率等于每相功率,零序负序电流为零
func TestBalancedLoad(t *testing.T) {
	f := newFixture(t, nil)
	l := f.net.Loads[0]
	l.Phases = &network.PhaseLoad{P: [3]float64{0.3, 0.3, 0.3}, Q: [3]float64{0.1, 0.1, 0.1}}
	sv := f.system.StateVector()
	values := append([]float64(nil), sv.Array()...)
	// 母线1只保留正序电压
	values[8], values[10] = 0, 0
	sv.Set(values)

	assert.InDelta(t, 0.3, LoadP(f.set, f.system, l, 1e-8).Eval(), 1e-12)
	assert.InDelta(t, 0.1, LoadQ(f.set, f.system, l, 1e-8).Eval(), 1e-12)
	assert.InDelta(t, 0, LoadIx(f.set, f.system, l, types.SequenceZero, 1e-8).Eval(), 1e-12)
	assert.InDelta(t, 0, LoadIy(f.set, f.system, l, types.SequenceNegative, 1e-8).Eval(), 1e-12)
}

// TestLoadSingular 相电压过低为致命错误
func TestLoadSingular(t *testing.T) {
	f := newFixture(t, nil)
	term := LoadP(f.set, f.system, f.net.Loads[0], 1e-8)
	values := append([]float64(nil), f.system.StateVector().Array()...)
	for i := 6; i < 12; i += 2 {
		values[i] = 0
	}
	f.system.StateVector().Set(values)
	err := func() (err error) {
		defer equation.Catch(&err)
		term.Eval()
		return nil
	}()
	require.Error(t, err)
	assert.True(t, errors.Is(err, equation.ErrSingular))
}

// TestConfigErrors 构建时拒绝的配置
func TestConfigErrors(t *testing.T) {
	f := newFixture(t, nil)
	build := func(fn func()) (err error) {
		defer equation.Catch(&err)
		fn()
		return nil
	}

	err := build(func() { GeneratorIx(f.set, f.system, f.net.Generators[0], types.SequenceZero) })
	assert.True(t, errors.Is(err, equation.ErrConfig), "未给定序阻抗")

	f.net.Generators[0].Sequence = &network.SequenceImpedance{R0: 0.01, X0: 0.1, R2: 0.02, X2: 0.2}
	g := GeneratorIx(f.set, f.system, f.net.Generators[0], types.SequenceNegative)
	checkDer(t, f.system.StateVector(), g)

	br := f.net.Branches[0]
	br.Connected2 = false
	err = build(func() { CoupledIx(f.set, f.system, br, types.SideOne, types.SequenceZero) })
	assert.True(t, errors.Is(err, equation.ErrUnsupported), "耦合支路单端断开")

	open := DecoupledIx(f.set, f.system, br, types.SideOne, types.SequenceZero)
	assert.Len(t, open.Variables(), 2)
	checkDer(t, f.system.StateVector(), open)
}
