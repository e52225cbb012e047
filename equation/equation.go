package equation

import (
	"fmt"
	"strings"

	"acflow/types"
)

// Equation 方程
// 一个主体(元件,物理量)上若干项之和
type Equation struct {
	num    int                // 主体元件编号
	eType  types.EquationType // 方程类型
	system *EquationSystem    // 所属方程组,移除后为 nil
	row    int                // 方程行号,-1 表示未进入方程组
	active bool               // 是否激活
	terms  []EquationTerm     // 方程项
	name   string             // 求解器诊断用名称
	vars   []*Variable        // 依赖变量缓存
	gen    uint64             // 缓存对应的方程组结构版本
}

// Num 主体元件编号
func (e *Equation) Num() int { return e.num }

// Type 方程类型
func (e *Equation) Type() types.EquationType { return e.eType }

// ElementType 主体元件类型
func (e *Equation) ElementType() types.ElementType { return e.eType.ElementType() }

// Row 方程行号,未激活时为-1
// 行号在索引重建时分配,结构变化后需先调用 Index.Update
func (e *Equation) Row() int { return e.row }

// System 所属方程组
func (e *Equation) System() *EquationSystem { return e.system }

// IsActive 是否激活
func (e *Equation) IsActive() bool { return e.active }

// Name 诊断名称,未设置时由类型和编号生成
func (e *Equation) Name() string {
	if e.name != "" {
		return e.name
	}
	return fmt.Sprintf("%s_%d", e.eType.Symbol(), e.num)
}

// SetName 设置诊断名称
func (e *Equation) SetName(name string) *Equation {
	e.name = name
	return e
}

// SetActive 激活/停用方程,状态不变时不通知
func (e *Equation) SetActive(active bool) *Equation {
	if e.active == active {
		return e
	}
	e.active = active
	if e.system != nil {
		event := EquationDeactivated
		if active {
			event = EquationActivated
		}
		e.system.notifyEquationChange(e, event)
	}
	return e
}

// AddTerm 追加方程项
func (e *Equation) AddTerm(term EquationTerm) *Equation {
	b := term.base()
	if b.equation != nil {
		panic(Fatalf(ErrInvariant, "%s 已属于方程 %s", term, b.equation))
	}
	b.equation = e
	b.self = term
	e.terms = append(e.terms, term)
	if e.system != nil {
		e.system.notifyTermChange(e, term, TermAdded)
	}
	return e
}

// AddTerms 追加多个方程项
func (e *Equation) AddTerms(terms ...EquationTerm) *Equation {
	for _, t := range terms {
		e.AddTerm(t)
	}
	return e
}

// RemoveTerm 移除方程项,返回是否存在
func (e *Equation) RemoveTerm(term EquationTerm) bool {
	for i, t := range e.terms {
		if t == term {
			e.terms = append(e.terms[:i], e.terms[i+1:]...)
			term.base().equation = nil
			if e.system != nil {
				e.system.notifyTermChange(e, term, TermRemoved)
			}
			return true
		}
	}
	return false
}

// Terms 全部方程项(含未激活项)
func (e *Equation) Terms() []EquationTerm { return e.terms }

// Eval 激活项之和
func (e *Equation) Eval() float64 {
	value := 0.0
	for _, t := range e.terms {
		if t.IsActive() {
			value += t.Eval()
		}
	}
	return value
}

// Der 激活项对变量偏导数之和,不依赖该变量的项贡献为零
func (e *Equation) Der(v *Variable) float64 {
	value := 0.0
	for _, t := range e.terms {
		if t.IsActive() && dependsOn(t, v) {
			value += t.Der(v)
		}
	}
	return value
}

// Variables 激活项依赖的变量(去重,保持出现顺序)
// 属于方程组时按结构版本缓存,返回的切片只读
func (e *Equation) Variables() []*Variable {
	if e.system != nil && e.gen == e.system.generation {
		return e.vars
	}
	var vars []*Variable
	seen := map[*Variable]struct{}{}
	for _, t := range e.terms {
		if !t.IsActive() {
			continue
		}
		for _, v := range t.Variables() {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				vars = append(vars, v)
			}
		}
	}
	if e.system != nil {
		e.vars, e.gen = vars, e.system.generation
	}
	return vars
}

func (e *Equation) String() string {
	var b strings.Builder
	b.WriteString(e.Name())
	b.WriteString(" = ")
	first := true
	for _, t := range e.terms {
		if !t.IsActive() {
			continue
		}
		if !first {
			b.WriteString(" + ")
		}
		b.WriteString(t.String())
		first = false
	}
	if first {
		b.WriteString("0")
	}
	return b.String()
}
