package vector

import (
	"math"

	"acflow/equation"
	"acflow/network"
	"acflow/types"
)

// ShuntVector 并联补偿向量 P = g·v², Q = -b·v²
type ShuntVector struct {
	net    *network.Network
	system *equation.EquationSystem
	bus    *BusVector

	G, B []float64 // 固定参数
	BRow []int     // 电纳变量行号

	P, DPDV       []float64
	Q, DQDV, DQDB []float64
}

func newShuntVector(net *network.Network, system *equation.EquationSystem, bus *BusVector) *ShuntVector {
	n := len(net.Shunts)
	v := &ShuntVector{
		net: net, system: system, bus: bus,
		G: make([]float64, n), B: make([]float64, n), BRow: make([]int, n),
		P: make([]float64, n), DPDV: make([]float64, n),
		Q: make([]float64, n), DQDV: make([]float64, n), DQDB: make([]float64, n),
	}
	v.updateParameters()
	return v
}

func (v *ShuntVector) updateParameters() {
	for num, sh := range v.net.Shunts {
		v.G[num], v.B[num] = sh.G, sh.B
	}
}

func (v *ShuntVector) updateRows() {
	vars := v.system.VariableSet()
	for num := range v.BRow {
		v.BRow[num] = vars.RowOf(num, types.ShuntB)
	}
}

// Susceptance 当前电纳,未作为变量时取固定值
func (v *ShuntVector) Susceptance(num int, state []float64) float64 {
	return valueOf(state, v.BRow[num], v.B[num])
}

func (v *ShuntVector) updateValues(state []float64) {
	vs := v.bus.V[types.SequencePositive]
	for num, sh := range v.net.Shunts {
		u := vs[sh.Bus]
		b := v.Susceptance(num, state)
		v.P[num] = v.G[num] * u * u
		v.DPDV[num] = 2 * v.G[num] * u
		v.Q[num] = -b * u * u
		v.DQDV[num] = -2 * b * u
		v.DQDB[num] = -u * u
	}
}

// LoadVector 电压指数负荷向量 P = P0·v^np, Q = Q0·v^nq
type LoadVector struct {
	net *network.Network
	bus *BusVector

	P, DPDV []float64
	Q, DQDV []float64
}

func newLoadVector(net *network.Network, bus *BusVector) *LoadVector {
	n := len(net.Loads)
	return &LoadVector{
		net: net, bus: bus,
		P: make([]float64, n), DPDV: make([]float64, n),
		Q: make([]float64, n), DQDV: make([]float64, n),
	}
}

func (v *LoadVector) updateValues() {
	vs := v.bus.V[types.SequencePositive]
	for num, l := range v.net.Loads {
		u := vs[l.Bus]
		v.P[num], v.DPDV[num] = exponential(l.P0, l.PExponent, u)
		v.Q[num], v.DQDV[num] = exponential(l.Q0, l.QExponent, u)
	}
}

// exponential x0·v^n 及其导数
func exponential(x0, n, v float64) (float64, float64) {
	if n == 0 {
		return x0, 0
	}
	value := x0 * math.Pow(v, n)
	if v == 0 {
		return value, 0
	}
	return value, n * value / v
}
