package vector

import (
	"acflow/equation"
	"acflow/network"
	"acflow/types"
)

// BusVector 母线电压向量
// 行号在索引更新时刷新,电压值在状态更新时刷新,变量未激活时取网络中的值
type BusVector struct {
	net    *network.Network
	system *equation.EquationSystem
	VRow   [3][]int     // 按序分量的电压幅值行号
	PhiRow [3][]int     // 按序分量的电压相角行号
	V      [3][]float64 // 按序分量的电压幅值
	Phi    [3][]float64 // 按序分量的电压相角
}

func newBusVector(net *network.Network, system *equation.EquationSystem) *BusVector {
	n := len(net.Buses)
	v := &BusVector{net: net, system: system}
	for s := range types.Sequences {
		v.VRow[s] = make([]int, n)
		v.PhiRow[s] = make([]int, n)
		v.V[s] = make([]float64, n)
		v.Phi[s] = make([]float64, n)
	}
	return v
}

// Len 母线数
func (v *BusVector) Len() int { return len(v.V[types.SequencePositive]) }

func (v *BusVector) updateRows() {
	vars := v.system.VariableSet()
	for _, s := range types.Sequences {
		vType, phiType := types.BusVoltageTypes(s)
		for num := range v.VRow[s] {
			v.VRow[s][num] = vars.RowOf(num, vType)
			v.PhiRow[s][num] = vars.RowOf(num, phiType)
		}
	}
}

func (v *BusVector) updateValues(state []float64) {
	for _, s := range types.Sequences {
		vRow, phiRow := v.VRow[s], v.PhiRow[s]
		for num, bus := range v.net.Buses {
			fixedV, fixedPhi := 0.0, 0.0
			if s == types.SequencePositive {
				fixedV, fixedPhi = bus.V, bus.Angle
			}
			v.V[s][num] = valueOf(state, vRow[num], fixedV)
			v.Phi[s][num] = valueOf(state, phiRow[num], fixedPhi)
		}
	}
}

// valueOf 行号有效时取状态值,否则取固定值
func valueOf(state []float64, row int, fixed float64) float64 {
	if row >= 0 && row < len(state) {
		return state[row]
	}
	return fixed
}
