package vector

import (
	"acflow/equation"
	"acflow/network"
	"acflow/term/formula"
	"acflow/types"
)

// Flow 一类支路潮流量的缓存值及偏导数,按支路编号
type Flow struct {
	Value []float64
	Der   []formula.Derivatives
}

func newFlow(n int) Flow {
	return Flow{Value: make([]float64, n), Der: make([]formula.Derivatives, n)}
}

// BranchVector 支路向量
// 结构更新时按拓扑把支路分为闭合/首端断开/末端断开三组,数值更新时逐组直线计算
type BranchVector struct {
	net       *network.Network
	system    *equation.EquationSystem
	bus       *BusVector
	threshold float64

	Bus1, Bus2 []int
	Params     []formula.Branch // 常量参数
	R1, A1     []float64        // 固定变比与移相角
	R1Row      []int            // 变比变量行号,-1 时取固定值
	A1Row      []int            // 移相角变量行号,-1 时取固定值

	closed    []int // 两端合闸
	openSide1 []int // 首端断开
	openSide2 []int // 末端断开

	P1, Q1, I1 Flow
	P2, Q2, I2 Flow
}

func newBranchVector(net *network.Network, system *equation.EquationSystem, bus *BusVector, threshold float64) *BranchVector {
	n := len(net.Branches)
	v := &BranchVector{
		net:       net,
		system:    system,
		bus:       bus,
		threshold: threshold,
		Bus1:      make([]int, n),
		Bus2:      make([]int, n),
		Params:    make([]formula.Branch, n),
		R1:        make([]float64, n),
		A1:        make([]float64, n),
		R1Row:     make([]int, n),
		A1Row:     make([]int, n),
		P1:        newFlow(n),
		Q1:        newFlow(n),
		I1:        newFlow(n),
		P2:        newFlow(n),
		Q2:        newFlow(n),
		I2:        newFlow(n),
	}
	v.updateParameters()
	return v
}

// Len 支路数
func (v *BranchVector) Len() int { return len(v.Bus1) }

// updateParameters 读取网络常量并重新分组
func (v *BranchVector) updateParameters() {
	v.closed, v.openSide1, v.openSide2 = v.closed[:0], v.openSide1[:0], v.openSide2[:0]
	for num, br := range v.net.Branches {
		v.Bus1[num], v.Bus2[num] = br.Bus1, br.Bus2
		v.R1[num], v.A1[num] = br.R1, br.A1
		if br.IsZeroImpedance(v.threshold) {
			v.Params[num] = formula.Branch{}
			continue
		}
		v.Params[num] = formula.Branch{
			Y: br.Y(), Ksi: br.Ksi(),
			G1: br.G1, B1: br.B1, G2: br.G2, B2: br.B2,
		}
		switch {
		case br.Connected1 && br.Connected2:
			v.closed = append(v.closed, num)
		case br.Connected1:
			v.openSide2 = append(v.openSide2, num)
		case br.Connected2:
			v.openSide1 = append(v.openSide1, num)
		}
	}
}

func (v *BranchVector) updateRows() {
	vars := v.system.VariableSet()
	for num := range v.R1Row {
		v.R1Row[num] = vars.RowOf(num, types.BranchRho1)
		v.A1Row[num] = vars.RowOf(num, types.BranchAlpha1)
	}
}

// State 支路当前状态,变比和移相角未作为变量时取固定值
func (v *BranchVector) State(num int, state []float64) formula.State {
	const pos = types.SequencePositive
	b1, b2 := v.Bus1[num], v.Bus2[num]
	return formula.State{
		V1: v.bus.V[pos][b1], Ph1: v.bus.Phi[pos][b1],
		V2: v.bus.V[pos][b2], Ph2: v.bus.Phi[pos][b2],
		R1: valueOf(state, v.R1Row[num], v.R1[num]),
		A1: valueOf(state, v.A1Row[num], v.A1[num]),
	}
}

func (v *BranchVector) updateValues(state []float64) {
	for _, num := range v.closed {
		p, s := v.Params[num], v.State(num, state)
		v.P1.Value[num], v.P1.Der[num] = formula.ClosedP1(p, s)
		v.Q1.Value[num], v.Q1.Der[num] = formula.ClosedQ1(p, s)
		v.I1.Value[num], v.I1.Der[num] = formula.ClosedI1(p, s)
		v.P2.Value[num], v.P2.Der[num] = formula.ClosedP2(p, s)
		v.Q2.Value[num], v.Q2.Der[num] = formula.ClosedQ2(p, s)
		v.I2.Value[num], v.I2.Der[num] = formula.ClosedI2(p, s)
	}
	for _, num := range v.openSide2 {
		p, s := v.Params[num], v.State(num, state)
		v.P1.Value[num], v.P1.Der[num] = formula.OpenSide2P1(p, s)
		v.Q1.Value[num], v.Q1.Der[num] = formula.OpenSide2Q1(p, s)
		v.I1.Value[num], v.I1.Der[num] = formula.OpenSide2I1(p, s)
	}
	for _, num := range v.openSide1 {
		p, s := v.Params[num], v.State(num, state)
		v.P2.Value[num], v.P2.Der[num] = formula.OpenSide1P2(p, s)
		v.Q2.Value[num], v.Q2.Der[num] = formula.OpenSide1Q2(p, s)
		v.I2.Value[num], v.I2.Der[num] = formula.OpenSide1I2(p, s)
	}
}
