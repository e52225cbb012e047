// Package term 平衡网络方程项
package term

import (
	"fmt"

	"golang.org/x/exp/slices"

	"acflow/config"
	"acflow/equation"
	"acflow/term/formula"
	"acflow/types"
	"acflow/vector"
)

// quantity 支路潮流量类别
type quantity uint8

const (
	activePower quantity = iota
	reactivePower
	currentMagnitude
)

// BranchOptions 支路项构建选项
type BranchOptions struct {
	DeriveR1 bool                  // 变比作为变量
	DeriveA1 bool                  // 移相角作为变量
	Mode     config.DerivativeMode // 导数策略
}

// BranchTerm 由支路向量缓存提供值和导数的项
type BranchTerm struct {
	equation.TermBase
	flow      *vector.Flow
	kind      quantity
	side      types.Side
	mode      config.DerivativeMode
	label     string
	v1, ph1   *equation.Variable
	v2, ph2   *equation.Variable
	r1, a1    *equation.Variable
	variables []*equation.Variable
}

// newBranchTerm 创建支路项,首端/末端为nil表示该端不参与
func newBranchTerm(set *vector.Set, system *equation.EquationSystem, num int, kind quantity, side types.Side,
	connected1, connected2 bool, o BranchOptions, label string) *BranchTerm {
	bv := set.Branch
	t := &BranchTerm{
		TermBase: equation.NewTermBase(types.ElementBranch, num),
		kind:     kind,
		side:     side,
		mode:     o.Mode,
		label:    label,
	}
	switch {
	case kind == activePower && side == types.SideOne:
		t.flow = &bv.P1
	case kind == reactivePower && side == types.SideOne:
		t.flow = &bv.Q1
	case kind == currentMagnitude && side == types.SideOne:
		t.flow = &bv.I1
	case kind == activePower:
		t.flow = &bv.P2
	case kind == reactivePower:
		t.flow = &bv.Q2
	default:
		t.flow = &bv.I2
	}
	if connected1 {
		t.v1 = system.Variable(bv.Bus1[num], types.BusV)
		t.ph1 = system.Variable(bv.Bus1[num], types.BusPhi)
		t.variables = append(t.variables, t.v1, t.ph1)
	}
	if connected2 {
		t.v2 = system.Variable(bv.Bus2[num], types.BusV)
		t.ph2 = system.Variable(bv.Bus2[num], types.BusPhi)
		t.variables = appendUnique(t.variables, t.v2, t.ph2)
	}
	// 首端断开时变比不影响末端潮流
	if connected1 && o.DeriveR1 {
		t.r1 = system.Variable(num, types.BranchRho1)
		t.variables = append(t.variables, t.r1)
	}
	if connected1 && connected2 && o.DeriveA1 {
		t.a1 = system.Variable(num, types.BranchAlpha1)
		t.variables = append(t.variables, t.a1)
	}
	return t
}

// ClosedP1 闭合支路首端有功
func ClosedP1(set *vector.Set, system *equation.EquationSystem, num int, o BranchOptions) *BranchTerm {
	return newBranchTerm(set, system, num, activePower, types.SideOne, true, true, o, "p1")
}

// ClosedQ1 闭合支路首端无功
func ClosedQ1(set *vector.Set, system *equation.EquationSystem, num int, o BranchOptions) *BranchTerm {
	return newBranchTerm(set, system, num, reactivePower, types.SideOne, true, true, o, "q1")
}

// ClosedI1 闭合支路首端电流模值
func ClosedI1(set *vector.Set, system *equation.EquationSystem, num int, o BranchOptions) *BranchTerm {
	return newBranchTerm(set, system, num, currentMagnitude, types.SideOne, true, true, o, "i1")
}

// ClosedP2 闭合支路末端有功
func ClosedP2(set *vector.Set, system *equation.EquationSystem, num int, o BranchOptions) *BranchTerm {
	return newBranchTerm(set, system, num, activePower, types.SideTwo, true, true, o, "p2")
}

// ClosedQ2 闭合支路末端无功
func ClosedQ2(set *vector.Set, system *equation.EquationSystem, num int, o BranchOptions) *BranchTerm {
	return newBranchTerm(set, system, num, reactivePower, types.SideTwo, true, true, o, "q2")
}

// ClosedI2 闭合支路末端电流模值
func ClosedI2(set *vector.Set, system *equation.EquationSystem, num int, o BranchOptions) *BranchTerm {
	return newBranchTerm(set, system, num, currentMagnitude, types.SideTwo, true, true, o, "i2")
}

// OpenP1 末端断开支路首端有功
func OpenP1(set *vector.Set, system *equation.EquationSystem, num int, o BranchOptions) *BranchTerm {
	return newBranchTerm(set, system, num, activePower, types.SideOne, true, false, o, "open_p1")
}

// OpenQ1 末端断开支路首端无功
func OpenQ1(set *vector.Set, system *equation.EquationSystem, num int, o BranchOptions) *BranchTerm {
	return newBranchTerm(set, system, num, reactivePower, types.SideOne, true, false, o, "open_q1")
}

// OpenI1 末端断开支路首端电流模值
func OpenI1(set *vector.Set, system *equation.EquationSystem, num int, o BranchOptions) *BranchTerm {
	return newBranchTerm(set, system, num, currentMagnitude, types.SideOne, true, false, o, "open_i1")
}

// OpenP2 首端断开支路末端有功
func OpenP2(set *vector.Set, system *equation.EquationSystem, num int, o BranchOptions) *BranchTerm {
	return newBranchTerm(set, system, num, activePower, types.SideTwo, false, true, o, "open_p2")
}

// OpenQ2 首端断开支路末端无功
func OpenQ2(set *vector.Set, system *equation.EquationSystem, num int, o BranchOptions) *BranchTerm {
	return newBranchTerm(set, system, num, reactivePower, types.SideTwo, false, true, o, "open_q2")
}

// OpenI2 首端断开支路末端电流模值
func OpenI2(set *vector.Set, system *equation.EquationSystem, num int, o BranchOptions) *BranchTerm {
	return newBranchTerm(set, system, num, currentMagnitude, types.SideTwo, false, true, o, "open_i2")
}

// appendUnique 追加变量,两端接同一母线时去重
func appendUnique(list []*equation.Variable, vars ...*equation.Variable) []*equation.Variable {
	for _, v := range vars {
		if !slices.Contains(list, v) {
			list = append(list, v)
		}
	}
	return list
}

// Side 所在端
func (t *BranchTerm) Side() types.Side { return t.side }

// Variables 依赖变量
func (t *BranchTerm) Variables() []*equation.Variable { return t.variables }

// Eval 缓存值
func (t *BranchTerm) Eval() float64 { return t.flow.Value[t.ElementNum()] }

// Der 缓存偏导数,快速解耦时有功对电压、无功对相角的导数为零
func (t *BranchTerm) Der(v *equation.Variable) float64 {
	d := t.flow.Der[t.ElementNum()]
	found := false
	value := 0.0
	add := func(x *equation.Variable, dx float64) {
		if x != nil && x == v {
			value += dx
			found = true
		}
	}
	add(t.v1, d.V1)
	add(t.ph1, d.Ph1)
	add(t.v2, d.V2)
	add(t.ph2, d.Ph2)
	add(t.r1, d.R1)
	add(t.a1, d.A1)
	if !found {
		panic(equation.UnknownVariable(t, v))
	}
	if t.mode == config.DerivativeFastDecoupled {
		switch t.kind {
		case activePower:
			if v.Type().IsVoltageMagnitude() || v.Type() == types.BranchRho1 {
				return 0
			}
		case reactivePower:
			if v.Type().IsVoltageAngle() || v.Type() == types.BranchAlpha1 {
				return 0
			}
		}
	}
	return value
}

func (t *BranchTerm) String() string {
	return fmt.Sprintf("%s(branch %d)", t.label, t.ElementNum())
}

// Derivatives 当前缓存的全部偏导数
func (t *BranchTerm) Derivatives() formula.Derivatives { return t.flow.Der[t.ElementNum()] }
