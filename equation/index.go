package equation

import (
	"cmp"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// Index 方程组索引
// 激活方程与行号、激活变量与列号一一对应,结构变化后延迟重建
type Index struct {
	system    *EquationSystem
	dirty     bool
	equations []*Equation // 行号 -> 方程
	variables []*Variable // 列号 -> 变量
	listeners []IndexListener
}

func newIndex(system *EquationSystem) *Index {
	return &Index{system: system, dirty: true}
}

// AddListener 注册索引更新监听
func (idx *Index) AddListener(l IndexListener) {
	idx.listeners = append(idx.listeners, l)
}

// OnEquationChange 方程变化标记重建
func (idx *Index) OnEquationChange(*Equation, EquationEventType) { idx.dirty = true }

// OnEquationTermChange 方程项变化标记重建
func (idx *Index) OnEquationTermChange(*Equation, EquationTerm, TermEventType) {
	idx.dirty = true
}

// IsDirty 是否等待重建
func (idx *Index) IsDirty() bool { return idx.dirty }

// Update 按需重建索引
// 重建顺序: 分配行号,迁移状态值,通知索引监听,通知状态监听
func (idx *Index) Update() {
	if !idx.dirty {
		return
	}
	idx.dirty = false
	s := idx.system
	// 旧行号
	oldState := append([]float64(nil), s.state.Array()...)
	oldRows := make([]int, s.variables.Len())
	for i, v := range s.variables.Variables() {
		oldRows[i] = v.row
		v.row = -1
	}
	for _, eq := range s.order {
		eq.row = -1
	}
	// 激活方程
	idx.equations = idx.equations[:0]
	for _, eq := range s.order {
		if eq.active {
			idx.equations = append(idx.equations, eq)
		}
	}
	slices.SortFunc(idx.equations, compareEquations)
	// 激活变量: 被激活方程的激活项引用
	idx.variables = idx.variables[:0]
	seen := make([]bool, s.variables.Len())
	for _, eq := range idx.equations {
		for _, t := range eq.terms {
			if !t.IsActive() {
				continue
			}
			for _, v := range t.Variables() {
				if !seen[v.id] {
					seen[v.id] = true
					idx.variables = append(idx.variables, v)
				}
			}
		}
	}
	slices.SortFunc(idx.variables, compareVariables)
	for row, eq := range idx.equations {
		eq.row = row
	}
	state := make([]float64, len(idx.variables))
	for col, v := range idx.variables {
		v.row = col
		if old := oldRows[v.id]; old >= 0 && old < len(oldState) {
			state[col] = oldState[old]
		} else {
			state[col] = s.initializer(v)
		}
	}
	s.state.assign(state)
	s.log.WithFields(logrus.Fields{
		"equations": len(idx.equations),
		"variables": len(idx.variables),
	}).Debug("方程组索引重建")
	for _, l := range idx.listeners {
		l.OnIndexUpdate()
	}
	s.state.notify()
}

// Equations 激活方程(按行号)
func (idx *Index) Equations() []*Equation {
	idx.Update()
	return idx.equations
}

// Variables 激活变量(按列号)
func (idx *Index) Variables() []*Variable {
	idx.Update()
	return idx.variables
}

// RowCount 方程数
func (idx *Index) RowCount() int {
	idx.Update()
	return len(idx.equations)
}

// ColumnCount 变量数
func (idx *Index) ColumnCount() int {
	idx.Update()
	return len(idx.variables)
}

// EquationAt 行号对应方程
func (idx *Index) EquationAt(row int) *Equation {
	idx.Update()
	if row < 0 || row >= len(idx.equations) {
		panic(Fatalf(ErrInvariant, "方程行号越界: %d/%d", row, len(idx.equations)))
	}
	return idx.equations[row]
}

// VariableAt 列号对应变量
func (idx *Index) VariableAt(col int) *Variable {
	idx.Update()
	if col < 0 || col >= len(idx.variables) {
		panic(Fatalf(ErrInvariant, "变量列号越界: %d/%d", col, len(idx.variables)))
	}
	return idx.variables[col]
}

func compareEquations(a, b *Equation) int {
	if c := cmp.Compare(a.ElementType(), b.ElementType()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.num, b.num); c != 0 {
		return c
	}
	return cmp.Compare(a.eType, b.eType)
}

func compareVariables(a, b *Variable) int {
	if c := cmp.Compare(a.ElementType(), b.ElementType()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.num, b.num); c != 0 {
		return c
	}
	return cmp.Compare(a.vType, b.vType)
}
