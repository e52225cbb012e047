package term

import (
	"fmt"

	"acflow/equation"
	"acflow/types"
	"acflow/vector"
)

// ShuntTerm 并联补偿有功/无功
type ShuntTerm struct {
	equation.TermBase
	vec       *vector.ShuntVector
	reactive  bool
	v, b      *equation.Variable
	variables []*equation.Variable
}

// ShuntP 并联补偿有功 g·v²
func ShuntP(set *vector.Set, system *equation.EquationSystem, num, bus int) *ShuntTerm {
	v := system.Variable(bus, types.BusV)
	return &ShuntTerm{
		TermBase:  equation.NewTermBase(types.ElementShunt, num),
		vec:       set.Shunt,
		v:         v,
		variables: []*equation.Variable{v},
	}
}

// ShuntQ 并联补偿无功 -b·v²,deriveB 为真时电纳作为变量
func ShuntQ(set *vector.Set, system *equation.EquationSystem, num, bus int, deriveB bool) *ShuntTerm {
	t := &ShuntTerm{
		TermBase: equation.NewTermBase(types.ElementShunt, num),
		vec:      set.Shunt,
		reactive: true,
		v:        system.Variable(bus, types.BusV),
	}
	t.variables = []*equation.Variable{t.v}
	if deriveB {
		t.b = system.Variable(num, types.ShuntB)
		t.variables = append(t.variables, t.b)
	}
	return t
}

// Variables 依赖变量
func (t *ShuntTerm) Variables() []*equation.Variable { return t.variables }

// Eval 缓存值
func (t *ShuntTerm) Eval() float64 {
	if t.reactive {
		return t.vec.Q[t.ElementNum()]
	}
	return t.vec.P[t.ElementNum()]
}

// Der 偏导数
func (t *ShuntTerm) Der(v *equation.Variable) float64 {
	num := t.ElementNum()
	switch {
	case v == t.v && t.reactive:
		return t.vec.DQDV[num]
	case v == t.v:
		return t.vec.DPDV[num]
	case t.b != nil && v == t.b:
		return t.vec.DQDB[num]
	}
	panic(equation.UnknownVariable(t, v))
}

func (t *ShuntTerm) String() string {
	if t.reactive {
		return fmt.Sprintf("shunt_q(%d)", t.ElementNum())
	}
	return fmt.Sprintf("shunt_p(%d)", t.ElementNum())
}

// LoadTerm 电压相关负荷有功/无功
type LoadTerm struct {
	equation.TermBase
	vec       *vector.LoadVector
	reactive  bool
	v         *equation.Variable
	variables []*equation.Variable
}

// LoadP 负荷有功 P0·v^np
func LoadP(set *vector.Set, system *equation.EquationSystem, num, bus int) *LoadTerm {
	v := system.Variable(bus, types.BusV)
	return &LoadTerm{
		TermBase:  equation.NewTermBase(types.ElementLoad, num),
		vec:       set.Load,
		v:         v,
		variables: []*equation.Variable{v},
	}
}

// LoadQ 负荷无功 Q0·v^nq
func LoadQ(set *vector.Set, system *equation.EquationSystem, num, bus int) *LoadTerm {
	t := LoadP(set, system, num, bus)
	t.reactive = true
	return t
}

// Variables 依赖变量
func (t *LoadTerm) Variables() []*equation.Variable { return t.variables }

// Eval 缓存值
func (t *LoadTerm) Eval() float64 {
	if t.reactive {
		return t.vec.Q[t.ElementNum()]
	}
	return t.vec.P[t.ElementNum()]
}

// Der 偏导数
func (t *LoadTerm) Der(v *equation.Variable) float64 {
	if v != t.v {
		panic(equation.UnknownVariable(t, v))
	}
	if t.reactive {
		return t.vec.DQDV[t.ElementNum()]
	}
	return t.vec.DPDV[t.ElementNum()]
}

func (t *LoadTerm) String() string {
	if t.reactive {
		return fmt.Sprintf("load_q(%d)", t.ElementNum())
	}
	return fmt.Sprintf("load_p(%d)", t.ElementNum())
}
