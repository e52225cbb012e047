package asym

import (
	"fmt"
	"math/cmplx"

	"acflow/equation"
	"acflow/maths"
	"acflow/network"
	"acflow/types"
	"acflow/vector"
)

// LoadTerm 分相恒功率负荷
// 相电压由序电压合成,相电流 I_p = conj(S_p)/conj(V_p),再变换回序电流。
// 正序取功率 V1·conj(I1),零序/负序取电流实部/虚部
type LoadTerm struct {
	equation.TermBase
	bus       *vector.BusVector
	load      *network.Load
	seq       types.Sequence
	kind      quantity
	epsilon   float64
	ports     [3]port // 按序分量
	variables []*equation.Variable
}

func newLoadTerm(set *vector.Set, system *equation.EquationSystem, l *network.Load, seq types.Sequence,
	kind quantity, epsilon float64) *LoadTerm {
	if l.Phases == nil {
		panic(equation.Fatalf(equation.ErrConfig, "负荷 %d 缺少分相功率", l.Num))
	}
	t := &LoadTerm{
		TermBase: equation.NewTermBase(types.ElementLoad, l.Num),
		bus:      set.Bus,
		load:     l,
		seq:      seq,
		kind:     kind,
		epsilon:  epsilon,
	}
	for _, s := range types.Sequences {
		t.ports[s] = newPort(system, l.Bus, s)
		t.variables = append(t.variables, t.ports[s].v, t.ports[s].ph)
	}
	return t
}

// LoadP 分相负荷正序有功
func LoadP(set *vector.Set, system *equation.EquationSystem, l *network.Load, epsilon float64) *LoadTerm {
	return newLoadTerm(set, system, l, types.SequencePositive, activePower, epsilon)
}

// LoadQ 分相负荷正序无功
func LoadQ(set *vector.Set, system *equation.EquationSystem, l *network.Load, epsilon float64) *LoadTerm {
	return newLoadTerm(set, system, l, types.SequencePositive, reactivePower, epsilon)
}

// LoadIx 分相负荷零序/负序电流实部
func LoadIx(set *vector.Set, system *equation.EquationSystem, l *network.Load, seq types.Sequence, epsilon float64) *LoadTerm {
	return newLoadTerm(set, system, l, seq, currentX, epsilon)
}

// LoadIy 分相负荷零序/负序电流虚部
func LoadIy(set *vector.Set, system *equation.EquationSystem, l *network.Load, seq types.Sequence, epsilon float64) *LoadTerm {
	return newLoadTerm(set, system, l, seq, currentY, epsilon)
}

// Variables 依赖变量
func (t *LoadTerm) Variables() []*equation.Variable { return t.variables }

// phaseState 相电压与相电流
func (t *LoadTerm) phaseState() (v, i [3]complex128) {
	var seq [3]complex128
	for s := range t.ports {
		seq[s] = t.ports[s].voltage(t.bus)
	}
	v = maths.ToPhases(seq)
	for p := range v {
		if maths.Sq(cmplx.Abs(v[p])) < t.epsilon {
			panic(equation.Fatalf(equation.ErrSingular, "负荷 %d 第 %d 相电压过低: %g", t.load.Num, p, cmplx.Abs(v[p])))
		}
		s := complex(t.load.Phases.P[p], t.load.Phases.Q[p])
		i[p] = cmplx.Conj(s) / cmplx.Conj(v[p])
	}
	return v, i
}

// sequenceCurrent 本序电流
func (t *LoadTerm) sequenceCurrent(phases [3]complex128) complex128 {
	return maths.ToSequences(phases)[t.seq]
}

// Eval 当前值
func (t *LoadTerm) Eval() float64 {
	_, i := t.phaseState()
	is := t.sequenceCurrent(i)
	if t.kind == activePower || t.kind == reactivePower {
		return t.kind.pick(t.ports[t.seq].voltage(t.bus) * cmplx.Conj(is))
	}
	return t.kind.pick(is)
}

// Der 偏导数
func (t *LoadTerm) Der(x *equation.Variable) float64 {
	src, angle := -1, false
	for s, p := range t.ports {
		switch x {
		case p.v:
			src = s
		case p.ph:
			src, angle = s, true
		}
	}
	if src < 0 {
		panic(equation.UnknownVariable(t, x))
	}
	v, i := t.phaseState()
	dvs := t.ports[src].dVoltage(t.bus, angle)
	var di [3]complex128
	for p := range v {
		dv := maths.Fortescue(p, src) * dvs
		s := complex(t.load.Phases.P[p], t.load.Phases.Q[p])
		di[p] = -cmplx.Conj(s) * cmplx.Conj(dv) / (cmplx.Conj(v[p]) * cmplx.Conj(v[p]))
	}
	dis := t.sequenceCurrent(di)
	if t.kind != activePower && t.kind != reactivePower {
		return t.kind.pick(dis)
	}
	self := t.ports[t.seq]
	d := self.voltage(t.bus) * cmplx.Conj(dis)
	if src == int(t.seq) {
		d += dvs * cmplx.Conj(t.sequenceCurrent(i))
	}
	return t.kind.pick(d)
}

func (t *LoadTerm) String() string {
	return fmt.Sprintf("load_%s_%s(%d)", t.kind, t.seq, t.ElementNum())
}
