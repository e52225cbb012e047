// Package vector 按元件展开的扁平数组缓存
// 索引更新时刷新行号(结构),状态更新时刷新潮流值及偏导数(数值)
package vector

import (
	"acflow/config"
	"acflow/equation"
	"acflow/network"
)

// Set 一个方程组的全部元件向量
type Set struct {
	system *equation.EquationSystem
	Bus    *BusVector
	Branch *BranchVector
	Shunt  *ShuntVector
	Load   *LoadVector
}

// NewSet 创建元件向量并注册到方程组的索引和状态监听
func NewSet(net *network.Network, system *equation.EquationSystem, params *config.Parameters) *Set {
	bus := newBusVector(net, system)
	s := &Set{
		system: system,
		Bus:    bus,
		Branch: newBranchVector(net, system, bus, params.LowImpedanceThreshold),
		Shunt:  newShuntVector(net, system, bus),
		Load:   newLoadVector(net, bus),
	}
	system.Index().AddListener(s)
	system.StateVector().AddListener(s)
	return s
}

// OnIndexUpdate 刷新行号
func (s *Set) OnIndexUpdate() {
	s.Bus.updateRows()
	s.Branch.updateRows()
	s.Shunt.updateRows()
}

// OnStateUpdate 刷新潮流值,母线电压最先
func (s *Set) OnStateUpdate() {
	state := s.system.StateVector().Array()
	s.Bus.updateValues(state)
	s.Branch.updateValues(state)
	s.Shunt.updateValues(state)
	s.Load.updateValues()
}

// Refresh 网络参数(变比、分接头、拓扑)变化后重新读取常量并刷新数值
func (s *Set) Refresh() {
	s.Branch.updateParameters()
	s.Shunt.updateParameters()
	s.OnStateUpdate()
}
