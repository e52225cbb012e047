package control

import (
	"github.com/pkg/errors"

	"acflow/equation"
	"acflow/types"
)

// initialValue 变量进入方程组时的初值
func (s *System) initialValue(v *equation.Variable) float64 {
	num := v.Num()
	switch v.Type() {
	case types.BusV:
		if target, ok := s.voltageTargets[num]; ok {
			return target
		}
		if s.Params.UniformInitialVoltage {
			return 1
		}
		return s.Network.Buses[num].V
	case types.BusPhi:
		if s.Params.UniformInitialVoltage {
			return 0
		}
		return s.Network.Buses[num].Angle
	case types.BranchRho1:
		return s.Network.Branches[num].R1
	case types.BranchAlpha1:
		return s.Network.Branches[num].A1
	case types.ShuntB:
		return s.Network.Shunts[num].B
	case types.BusVZero, types.BusVNegative:
		return 0.1
	}
	return 0
}

// InitState 按当前控制状态重置全部激活变量的初值
func (s *System) InitState() {
	idx := s.Equations.Index()
	idx.Update()
	vars := idx.Variables()
	values := make([]float64, len(vars))
	for col, v := range vars {
		values[col] = s.initialValue(v)
	}
	s.Equations.StateVector().Set(values)
}

// CheckSquareness 激活方程数与激活变量数相等
func (s *System) CheckSquareness() error {
	idx := s.Equations.Index()
	idx.Update()
	if rows, cols := idx.RowCount(), idx.ColumnCount(); rows != cols {
		return errors.Wrapf(equation.ErrNotSquare, "%d 个方程, %d 个变量", rows, cols)
	}
	return nil
}

// busPTarget 母线有功目标: 发电机出力减恒功率负荷
func (s *System) busPTarget(bus int) float64 {
	t := 0.0
	for _, g := range s.Network.Generators {
		if g.Bus == bus && !g.Disabled {
			t += g.TargetP
		}
	}
	for _, l := range s.Network.Loads {
		if l.Bus == bus && !l.Disabled && !s.isPhaseLoad(l) && l.PExponent == 0 {
			t -= l.P0
		}
	}
	return t
}

// busQTarget 母线无功目标,无功作为未知量的发电机不计入
func (s *System) busQTarget(bus int) float64 {
	t := 0.0
	for _, g := range s.Network.Generators {
		if g.Bus == bus && !g.Disabled && !s.qRegulating(g) {
			t += g.TargetQ
		}
	}
	for _, l := range s.Network.Loads {
		if l.Bus == bus && !l.Disabled && !s.isPhaseLoad(l) && l.QExponent == 0 {
			t -= l.Q0
		}
	}
	return t
}

// target 方程目标值
func (s *System) target(eq *equation.Equation) float64 {
	num := eq.Num()
	if d, ok := s.derived[derivedKey{num: num, eType: eq.Type()}]; ok {
		return d.target()
	}
	switch eq.Type() {
	case types.BusTargetP:
		return s.busPTarget(num)
	case types.BusTargetQ:
		return s.busQTarget(num)
	case types.BusTargetV:
		if v, ok := s.voltageTargets[num]; ok {
			return v
		}
		return s.Network.Buses[num].V
	case types.BusTargetPhi:
		return s.Network.Buses[num].Angle
	case types.BranchTargetP:
		return s.Network.Branches[num].PhaseControl.TargetP
	case types.BranchTargetQ:
		return s.Network.Generators[s.reactive[num]].ReactivePowerControl.TargetQ
	case types.BranchTargetAlpha1:
		return s.Network.Branches[num].A1
	case types.BranchTargetRho1:
		return s.Network.Branches[num].R1
	case types.ShuntTargetB:
		return s.Network.Shunts[num].B
	case types.ZeroPhi:
		return -s.Network.Branches[num].A1
	}
	return 0
}
