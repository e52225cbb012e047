// Package debug 潮流迭代过程记录与可视化
package debug

import (
	"encoding/json"
	"fmt"
	"io"

	"acflow/control"
	"acflow/newton"
	"acflow/types"
)

// Record 记录迭代历史
type Record struct {
	Buses     []string    // 母线列表
	Links     [][2]int    // 支路两端母线
	Iteration []int       // 迭代序号列
	Norm      []float64   // 失配量无穷范数列
	Worst     []string    // 失配量最大的方程
	Voltage   [][]float64 // 母线电压幅值列
	Angle     [][]float64 // 母线电压相角列
}

var _ newton.Observer = (*Record)(nil)

// Init 初始化
func (r *Record) Init(sys *control.System) {
	net := sys.Network
	r.Buses = make([]string, len(net.Buses))
	for i, b := range net.Buses {
		if b.ID != "" {
			r.Buses[i] = b.ID
		} else {
			r.Buses[i] = fmt.Sprintf("Bus(%d)", b.Num)
		}
	}
	r.Links = r.Links[:0]
	for _, br := range net.Branches {
		if br.Disabled || !br.IsClosed() {
			continue
		}
		r.Links = append(r.Links, [2]int{br.Bus1, br.Bus2})
	}
}

// OnIteration 记录数据
func (r *Record) OnIteration(sys *control.System, it newton.Iteration) {
	if r.Buses == nil {
		r.Init(sys)
	}
	r.Iteration = append(r.Iteration, it.Iteration)
	r.Norm = append(r.Norm, it.Norm)
	r.Worst = append(r.Worst, it.Worst)
	vars := sys.Equations.VariableSet()
	state := sys.Equations.StateVector().Array()
	v := make([]float64, len(sys.Network.Buses))
	a := make([]float64, len(sys.Network.Buses))
	for i, b := range sys.Network.Buses {
		v[i], a[i] = b.V, b.Angle
		if row := vars.RowOf(b.Num, types.BusV); row >= 0 {
			v[i] = state[row]
		}
		if row := vars.RowOf(b.Num, types.BusPhi); row >= 0 {
			a[i] = state[row]
		}
	}
	r.Voltage = append(r.Voltage, v)
	r.Angle = append(r.Angle, a)
}

// Len 已记录的迭代数
func (r *Record) Len() int { return len(r.Iteration) }

// Render 格式和输出内容
func (r *Record) Render(w io.Writer) error { return json.NewEncoder(w).Encode(r) }
