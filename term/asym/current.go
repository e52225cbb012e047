// Package asym 不平衡网络序分量方程项
//
// 零序/负序母线方程为电流平衡 Ix、Iy,正序沿用功率平衡。
// 线性元件的序电流写成 I = Σ c·V 形式,c 为当前系数,V 为各端口序电压相量,
// 对端口电压幅值和相角的偏导数按端口下标匹配求得。
package asym

import (
	"fmt"
	"math/cmplx"

	"acflow/equation"
	"acflow/network"
	"acflow/term/formula"
	"acflow/types"
	"acflow/vector"
)

// quantity 序分量量类别
type quantity uint8

const (
	currentX quantity = iota
	currentY
	activePower
	reactivePower
)

func (q quantity) String() string {
	return [...]string{"ix", "iy", "p", "q"}[q]
}

// pick 取电流或功率的实部/虚部
func (q quantity) pick(x complex128) float64 {
	if q == currentX || q == activePower {
		return real(x)
	}
	return imag(x)
}

// port 一条母线一个序分量的电压端口
type port struct {
	bus   int
	seq   types.Sequence
	v, ph *equation.Variable
}

func newPort(system *equation.EquationSystem, bus int, seq types.Sequence) port {
	vType, phType := types.BusVoltageTypes(seq)
	return port{bus: bus, seq: seq, v: system.Variable(bus, vType), ph: system.Variable(bus, phType)}
}

// voltage 端口电压相量
func (p port) voltage(bv *vector.BusVector) complex128 {
	return cmplx.Rect(bv.V[p.seq][p.bus], bv.Phi[p.seq][p.bus])
}

// dVoltage 端口电压对变量的偏导数,angle 为真时对相角
func (p port) dVoltage(bv *vector.BusVector, angle bool) complex128 {
	if angle {
		return complex(0, 1) * p.voltage(bv)
	}
	return cmplx.Rect(1, bv.Phi[p.seq][p.bus])
}

// CurrentTerm 线性序电流项 I = Σ c·V
// 功率量 S = V_self·conj(I),self 为本端本序端口
type CurrentTerm struct {
	equation.TermBase
	bus       *vector.BusVector
	kind      quantity
	ports     []port
	self      int
	coeff     func(c []complex128)
	c         []complex128
	variables []*equation.Variable
	label     string
}

func newCurrentTerm(element types.ElementType, num int, set *vector.Set, kind quantity, ports []port,
	coeff func(c []complex128), label string) *CurrentTerm {
	t := &CurrentTerm{
		TermBase: equation.NewTermBase(element, num),
		bus:      set.Bus,
		kind:     kind,
		ports:    ports,
		coeff:    coeff,
		c:        make([]complex128, len(ports)),
		label:    label,
	}
	seen := map[*equation.Variable]struct{}{}
	for _, p := range ports {
		for _, v := range []*equation.Variable{p.v, p.ph} {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				t.variables = append(t.variables, v)
			}
		}
	}
	return t
}

// Variables 依赖变量
func (t *CurrentTerm) Variables() []*equation.Variable { return t.variables }

// Current 当前序电流
func (t *CurrentTerm) Current() complex128 {
	t.coeff(t.c)
	i := complex(0, 0)
	for m, p := range t.ports {
		i += t.c[m] * p.voltage(t.bus)
	}
	return i
}

// Eval 当前值
func (t *CurrentTerm) Eval() float64 {
	i := t.Current()
	if t.kind == activePower || t.kind == reactivePower {
		return t.kind.pick(t.ports[t.self].voltage(t.bus) * cmplx.Conj(i))
	}
	return t.kind.pick(i)
}

// Der 偏导数,同一变量出现在多个端口时求和
func (t *CurrentTerm) Der(v *equation.Variable) float64 {
	i := t.Current()
	power := t.kind == activePower || t.kind == reactivePower
	found := false
	d := complex(0, 0)
	for m, p := range t.ports {
		var angle bool
		switch v {
		case p.v:
		case p.ph:
			angle = true
		default:
			continue
		}
		found = true
		dv := p.dVoltage(t.bus, angle)
		di := t.c[m] * dv
		if !power {
			d += di
			continue
		}
		d += t.ports[t.self].voltage(t.bus) * cmplx.Conj(di)
		if m == t.self {
			d += dv * cmplx.Conj(i)
		}
	}
	if !found {
		panic(equation.UnknownVariable(t, v))
	}
	return t.kind.pick(d)
}

func (t *CurrentTerm) String() string {
	return fmt.Sprintf("%s_%s(%s %d)", t.label, t.kind, t.ElementType(), t.ElementNum())
}

// ratio 首端复变比 ρ1·exp(j·α1),末端为1
func ratio(set *vector.Set, state *equation.StateVector, num int) [2]complex128 {
	st := set.Branch.State(num, state.Array())
	return [2]complex128{cmplx.Rect(st.R1, st.A1), 1}
}

// piBranch π模型常量参数
func piBranch(pi network.PiModel) formula.Branch {
	return formula.Branch{Y: pi.Y(), Ksi: pi.Ksi(), G1: pi.G1, B1: pi.B1, G2: pi.G2, B2: pi.B2}
}

func sideIndex(side types.Side) int {
	if side == types.SideOne {
		return 0
	}
	return 1
}

// Coupled 耦合支路序分量项,side 端 seq 序的量依赖两端三序全部电压
// I_{g,i} = conj(k_i)·Σ_{j,h} y_{ij,gh}·k_j·V_{h,j},张量下标为 side*3+sequence
func Coupled(set *vector.Set, system *equation.EquationSystem, br *network.Branch, side types.Side,
	seq types.Sequence, kind quantity) *CurrentTerm {
	if !br.IsClosed() {
		panic(equation.Fatalf(equation.ErrUnsupported, "耦合序参数支路 %d 单端断开", br.Num))
	}
	if br.Asymmetry == nil {
		panic(equation.Fatalf(equation.ErrConfig, "支路 %d 缺少序参数", br.Num))
	}
	y := br.Asymmetry.Tensor(br.PiModel)
	state := system.StateVector()
	i := sideIndex(side)
	ports := make([]port, 0, 6)
	for _, j := range []types.Side{types.SideOne, types.SideTwo} {
		for _, h := range types.Sequences {
			ports = append(ports, newPort(system, br.BusNum(j), h))
		}
	}
	coeff := func(c []complex128) {
		k := ratio(set, state, br.Num)
		row := i*3 + int(seq)
		for m := range ports {
			j := m / 3
			c[m] = cmplx.Conj(k[i]) * y.At(row, m) * k[j]
		}
	}
	t := newCurrentTerm(types.ElementBranch, br.Num, set, kind, ports, coeff, "coupled")
	t.self = i*3 + int(seq)
	return t
}

// CoupledIx 耦合支路序电流实部
func CoupledIx(set *vector.Set, system *equation.EquationSystem, br *network.Branch, side types.Side, seq types.Sequence) *CurrentTerm {
	return Coupled(set, system, br, side, seq, currentX)
}

// CoupledIy 耦合支路序电流虚部
func CoupledIy(set *vector.Set, system *equation.EquationSystem, br *network.Branch, side types.Side, seq types.Sequence) *CurrentTerm {
	return Coupled(set, system, br, side, seq, currentY)
}

// CoupledP 耦合支路序有功
func CoupledP(set *vector.Set, system *equation.EquationSystem, br *network.Branch, side types.Side, seq types.Sequence) *CurrentTerm {
	return Coupled(set, system, br, side, seq, activePower)
}

// CoupledQ 耦合支路序无功
func CoupledQ(set *vector.Set, system *equation.EquationSystem, br *network.Branch, side types.Side, seq types.Sequence) *CurrentTerm {
	return Coupled(set, system, br, side, seq, reactivePower)
}

// decoupled 各序独立的支路序电流,单端断开时取该端等值导纳
func decoupled(set *vector.Set, system *equation.EquationSystem, br *network.Branch, side types.Side,
	seq types.Sequence, kind quantity) *CurrentTerm {
	state := system.StateVector()
	if !br.IsClosed() {
		if (side == types.SideOne && !br.Connected1) || (side == types.SideTwo && !br.Connected2) {
			panic(equation.Fatalf(equation.ErrInvariant, "支路 %d 的 %s 端断开", br.Num, side))
		}
		ports := []port{newPort(system, br.BusNum(side), seq)}
		coeff := func(c []complex128) {
			pi := br.Sequence(seq)
			if side == types.SideOne {
				r1 := set.Branch.State(br.Num, state.Array()).R1
				c[0] = complex(r1*r1, 0) * formula.OpenSide2Admittance(piBranch(pi))
				return
			}
			c[0] = formula.OpenSide1Admittance(piBranch(pi))
		}
		return newCurrentTerm(types.ElementBranch, br.Num, set, kind, ports, coeff, "open")
	}
	ports := []port{newPort(system, br.Bus1, seq), newPort(system, br.Bus2, seq)}
	coeff := func(c []complex128) {
		pi := br.Sequence(seq)
		st := set.Branch.State(br.Num, state.Array())
		pi.R1, pi.A1 = st.R1, st.A1
		y11, y12, y21, y22 := pi.Admittance2x2()
		if side == types.SideOne {
			c[0], c[1] = y11, y12
		} else {
			c[0], c[1] = y21, y22
		}
	}
	t := newCurrentTerm(types.ElementBranch, br.Num, set, kind, ports, coeff, "decoupled")
	t.self = sideIndex(side)
	return t
}

// DecoupledIx 各序独立支路序电流实部
func DecoupledIx(set *vector.Set, system *equation.EquationSystem, br *network.Branch, side types.Side, seq types.Sequence) *CurrentTerm {
	return decoupled(set, system, br, side, seq, currentX)
}

// DecoupledIy 各序独立支路序电流虚部
func DecoupledIy(set *vector.Set, system *equation.EquationSystem, br *network.Branch, side types.Side, seq types.Sequence) *CurrentTerm {
	return decoupled(set, system, br, side, seq, currentY)
}

// admittance 母线对地导纳的序电流 I = y·V
func admittance(set *vector.Set, system *equation.EquationSystem, element types.ElementType, num, bus int,
	seq types.Sequence, y complex128, kind quantity, label string) *CurrentTerm {
	ports := []port{newPort(system, bus, seq)}
	return newCurrentTerm(element, num, set, kind, ports, func(c []complex128) { c[0] = y }, label)
}

// ShuntIx 并联补偿序电流实部,各序导纳取 g+jb
func ShuntIx(set *vector.Set, system *equation.EquationSystem, sh *network.Shunt, seq types.Sequence) *CurrentTerm {
	return admittance(set, system, types.ElementShunt, sh.Num, sh.Bus, seq, complex(sh.G, sh.B), currentX, "shunt")
}

// ShuntIy 并联补偿序电流虚部
func ShuntIy(set *vector.Set, system *equation.EquationSystem, sh *network.Shunt, seq types.Sequence) *CurrentTerm {
	return admittance(set, system, types.ElementShunt, sh.Num, sh.Bus, seq, complex(sh.G, sh.B), currentY, "shunt")
}

// GeneratorAdmittance 发电机零序/负序等值导纳,未给定序阻抗为配置错误
func GeneratorAdmittance(g *network.Generator, seq types.Sequence) complex128 {
	if g.Sequence == nil {
		panic(equation.Fatalf(equation.ErrConfig, "发电机 %d 缺少序阻抗", g.Num))
	}
	var z complex128
	switch seq {
	case types.SequenceZero:
		z = complex(g.Sequence.R0, g.Sequence.X0)
	case types.SequenceNegative:
		z = complex(g.Sequence.R2, g.Sequence.X2)
	default:
		panic(equation.Fatalf(equation.ErrInvariant, "发电机等值导纳不适用于 %s", seq))
	}
	if z == 0 {
		panic(equation.Fatalf(equation.ErrConfig, "发电机 %d 的 %s 阻抗为零", g.Num, seq))
	}
	return 1 / z
}

// GeneratorIx 发电机等值并联序电流实部
func GeneratorIx(set *vector.Set, system *equation.EquationSystem, g *network.Generator, seq types.Sequence) *CurrentTerm {
	return admittance(set, system, types.ElementGenerator, g.Num, g.Bus, seq, GeneratorAdmittance(g, seq), currentX, "gen")
}

// GeneratorIy 发电机等值并联序电流虚部
func GeneratorIy(set *vector.Set, system *equation.EquationSystem, g *network.Generator, seq types.Sequence) *CurrentTerm {
	return admittance(set, system, types.ElementGenerator, g.Num, g.Bus, seq, GeneratorAdmittance(g, seq), currentY, "gen")
}
