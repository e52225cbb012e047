package equation

import (
	"fmt"
	"strings"

	"acflow/types"
)

// EquationTerm 方程项
// 项的种类集合固定,外部实现必须嵌入 TermBase
type EquationTerm interface {
	ElementType() types.ElementType // 所属元件类型
	ElementNum() int                // 所属元件编号
	Variables() []*Variable         // 依赖变量
	Eval() float64                  // 当前状态下的值
	Der(v *Variable) float64        // 对变量的偏导数,非依赖变量为致命错误
	IsActive() bool                 // 是否参与计算
	SetActive(active bool)          // 启用/停用
	Equation() *Equation            // 所属方程
	String() string                 // 调试输出
	base() *TermBase
}

// TermBase 方程项公共部分
type TermBase struct {
	element  types.ElementType
	num      int
	active   bool
	equation *Equation
	self     EquationTerm // 外层项,用于事件通知
}

// NewTermBase 创建项公共部分,初始为激活状态
func NewTermBase(element types.ElementType, num int) TermBase {
	return TermBase{element: element, num: num, active: true}
}

func (b *TermBase) base() *TermBase { return b }

// ElementType 所属元件类型
func (b *TermBase) ElementType() types.ElementType { return b.element }

// ElementNum 所属元件编号
func (b *TermBase) ElementNum() int { return b.num }

// IsActive 是否参与计算
func (b *TermBase) IsActive() bool { return b.active }

// Equation 所属方程
func (b *TermBase) Equation() *Equation { return b.equation }

// SetActive 启用/停用,状态不变时不通知
func (b *TermBase) SetActive(active bool) {
	if b.active == active {
		return
	}
	b.active = active
	if b.equation != nil && b.equation.system != nil {
		event := TermDeactivated
		if active {
			event = TermActivated
		}
		b.equation.system.notifyTermChange(b.equation, b.self, event)
	}
}

// UnknownVariable 非依赖变量求导时抛出致命错误
func UnknownVariable(t EquationTerm, v *Variable) *FatalError {
	return Fatalf(ErrUnknownVariable, "%s 对 %s 求导", t, v)
}

// VariableTerm 变量项,值即变量本身
type VariableTerm struct {
	TermBase
	variable  *Variable
	variables []*Variable
	sv        *StateVector
}

// NewVariableTerm 创建变量项
func NewVariableTerm(sv *StateVector, v *Variable) *VariableTerm {
	return &VariableTerm{
		TermBase:  NewTermBase(v.ElementType(), v.Num()),
		variable:  v,
		variables: []*Variable{v},
		sv:        sv,
	}
}

// Variable 被引用的变量
func (t *VariableTerm) Variable() *Variable { return t.variable }

// Variables 依赖变量
func (t *VariableTerm) Variables() []*Variable { return t.variables }

// Eval 变量当前值
func (t *VariableTerm) Eval() float64 { return t.sv.Get(t.variable.row) }

// Der 偏导数
func (t *VariableTerm) Der(v *Variable) float64 {
	if v != t.variable {
		panic(UnknownVariable(t, v))
	}
	return 1
}

func (t *VariableTerm) String() string { return t.variable.String() }

// multipliedTerm 乘以系数的项,系数在每次求值时重新计算
type multipliedTerm struct {
	TermBase
	term       EquationTerm
	multiplier func() float64
	label      string
}

// Multiply 乘以常数
func Multiply(term EquationTerm, scalar float64) EquationTerm {
	return MultiplyBy(term, func() float64 { return scalar }, fmt.Sprint(scalar))
}

// MultiplyBy 乘以动态系数,系数在每次 Eval/Der 时重新计算
func MultiplyBy(term EquationTerm, multiplier func() float64, label string) EquationTerm {
	return &multipliedTerm{
		TermBase:   NewTermBase(term.ElementType(), term.ElementNum()),
		term:       term,
		multiplier: multiplier,
		label:      label,
	}
}

// Minus 取负
func Minus(term EquationTerm) EquationTerm {
	return MultiplyBy(term, func() float64 { return -1 }, "-1")
}

func (t *multipliedTerm) Variables() []*Variable { return t.term.Variables() }

func (t *multipliedTerm) Eval() float64 { return t.multiplier() * t.term.Eval() }

func (t *multipliedTerm) Der(v *Variable) float64 { return t.multiplier() * t.term.Der(v) }

func (t *multipliedTerm) String() string {
	return fmt.Sprintf("%s * %s", t.label, t.term)
}

// Inner 被包装的项
func (t *multipliedTerm) Inner() EquationTerm { return t.term }

// Multiplier 当前系数
func (t *multipliedTerm) Multiplier() float64 { return t.multiplier() }

// ScaledTerm 带系数的包装项
type ScaledTerm interface {
	EquationTerm
	Inner() EquationTerm
	Multiplier() float64
}

// sumTerm 多个项之和,作为一个整体挂在方程上
// 子项的依赖变量可能随拓扑变化,每次查询时重新汇总
type sumTerm struct {
	TermBase
	terms []EquationTerm
}

// Sum 创建求和项,子项不单独属于任何方程
func Sum(element types.ElementType, num int, terms ...EquationTerm) EquationTerm {
	return &sumTerm{TermBase: NewTermBase(element, num), terms: terms}
}

func (t *sumTerm) Variables() []*Variable {
	var vars []*Variable
	seen := map[*Variable]struct{}{}
	for _, term := range t.terms {
		for _, v := range term.Variables() {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				vars = append(vars, v)
			}
		}
	}
	return vars
}

func (t *sumTerm) Eval() float64 {
	value := 0.0
	for _, term := range t.terms {
		value += term.Eval()
	}
	return value
}

func (t *sumTerm) Der(v *Variable) float64 {
	value := 0.0
	found := false
	for _, term := range t.terms {
		if dependsOn(term, v) {
			value += term.Der(v)
			found = true
		}
	}
	if !found {
		panic(UnknownVariable(t, v))
	}
	return value
}

func (t *sumTerm) String() string {
	parts := make([]string, len(t.terms))
	for i, term := range t.terms {
		parts[i] = term.String()
	}
	return "(" + strings.Join(parts, " + ") + ")"
}

// Terms 子项
func (t *sumTerm) Terms() []EquationTerm { return t.terms }

// CompositeTerm 由多个子项组成的项
type CompositeTerm interface {
	EquationTerm
	Terms() []EquationTerm
}

// dependsOn 项是否依赖变量,组合项逐层检查子项
func dependsOn(t EquationTerm, v *Variable) bool {
	switch x := t.(type) {
	case *sumTerm:
		for _, term := range x.terms {
			if dependsOn(term, v) {
				return true
			}
		}
		return false
	case *multipliedTerm:
		return dependsOn(x.term, v)
	}
	for _, tv := range t.Variables() {
		if tv == v {
			return true
		}
	}
	return false
}
