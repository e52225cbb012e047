package equation

import (
	"github.com/sirupsen/logrus"

	"acflow/types"
)

// equationKey 方程身份
type equationKey struct {
	element types.ElementType
	num     int
	eType   types.EquationType
}

// VariableInitializer 变量进入方程组时的初始值
type VariableInitializer func(v *Variable) float64

// DefaultInitializer 电压幅值为1,其余为0
func DefaultInitializer(v *Variable) float64 {
	if v.Type().IsVoltageMagnitude() || v.Type() == types.BranchRho1 {
		return 1
	}
	return 0
}

// EquationSystem 方程组
// 持有全部方程、变量集、索引和状态向量,单线程使用。
// 方程和项的增删、激活切换只标记索引待重建,行号、列号和状态向量
// 在下一次查询索引时统一更新。
type EquationSystem struct {
	variables   *VariableSet
	equations   map[equationKey]*Equation
	order       []*Equation // 创建顺序,含已移除方程
	index       *Index
	state       *StateVector
	listeners   []EquationSystemListener
	initializer VariableInitializer
	log         logrus.FieldLogger
	generation  uint64 // 结构版本,方程或项变化时递增
}

// Option 方程组选项
type Option func(*EquationSystem)

// WithLogger 指定日志
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *EquationSystem) { s.log = log }
}

// WithInitializer 指定新激活变量的初始值
func WithInitializer(init VariableInitializer) Option {
	return func(s *EquationSystem) { s.initializer = init }
}

// NewEquationSystem 创建方程组
// 参数:
//
//	opts: 日志、变量初值等选项。
//
// 返回:
//
//	*EquationSystem: 空方程组,索引为待重建状态。
func NewEquationSystem(opts ...Option) *EquationSystem {
	s := &EquationSystem{
		variables:   NewVariableSet(),
		equations:   map[equationKey]*Equation{},
		state:       NewStateVector(),
		initializer: DefaultInitializer,
		log:         logrus.StandardLogger(),
		generation:  1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.index = newIndex(s)
	s.state.size = s.index.ColumnCount
	s.listeners = append(s.listeners, s.index)
	return s
}

// Log 日志
func (s *EquationSystem) Log() logrus.FieldLogger { return s.log }

// VariableSet 变量集
func (s *EquationSystem) VariableSet() *VariableSet { return s.variables }

// Variable 获取或创建变量
func (s *EquationSystem) Variable(num int, vType types.VariableType) *Variable {
	return s.variables.GetOrCreate(num, vType)
}

// StateVector 状态向量
func (s *EquationSystem) StateVector() *StateVector { return s.state }

// Index 方程组索引
func (s *EquationSystem) Index() *Index { return s.index }

// SetInitializer 指定新激活变量的初始值
func (s *EquationSystem) SetInitializer(init VariableInitializer) { s.initializer = init }

// AddListener 注册结构变化监听
func (s *EquationSystem) AddListener(l EquationSystemListener) {
	s.listeners = append(s.listeners, l)
}

// CreateEquation 获取或创建方程,新方程为激活状态
// 参数:
//
//	num: 主体元件编号。
//	eType: 方程类型,同时确定主体元件类型。
//
// 返回:
//
//	*Equation: 同一身份重复请求返回同一方程。
func (s *EquationSystem) CreateEquation(num int, eType types.EquationType) *Equation {
	key := equationKey{element: eType.ElementType(), num: num, eType: eType}
	if eq, ok := s.equations[key]; ok {
		return eq
	}
	eq := &Equation{num: num, eType: eType, system: s, row: -1, active: true}
	s.equations[key] = eq
	s.order = append(s.order, eq)
	s.notifyEquationChange(eq, EquationCreated)
	return eq
}

// Equation 查找方程,不存在时返回 false
func (s *EquationSystem) Equation(num int, eType types.EquationType) (*Equation, bool) {
	eq, ok := s.equations[equationKey{element: eType.ElementType(), num: num, eType: eType}]
	return eq, ok
}

// HasEquation 是否存在方程
func (s *EquationSystem) HasEquation(num int, eType types.EquationType) bool {
	_, ok := s.Equation(num, eType)
	return ok
}

// RemoveEquation 移除方程:停用并脱离方程组
// 参数:
//
//	num: 主体元件编号。
//	eType: 方程类型。
//
// 返回:
//
//	*Equation: 被移除的方程,不存在时返回 nil。
func (s *EquationSystem) RemoveEquation(num int, eType types.EquationType) *Equation {
	key := equationKey{element: eType.ElementType(), num: num, eType: eType}
	eq, ok := s.equations[key]
	if !ok {
		return nil
	}
	delete(s.equations, key)
	for i, e := range s.order {
		if e == eq {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	eq.active = false
	s.notifyEquationChange(eq, EquationRemoved)
	eq.system = nil
	eq.row = -1
	return eq
}

// Equations 全部方程(创建顺序)
func (s *EquationSystem) Equations() []*Equation { return s.order }

// EquationsOf 指定元件上的全部方程
func (s *EquationSystem) EquationsOf(element types.ElementType, num int) []*Equation {
	var list []*Equation
	for _, eq := range s.order {
		if eq.ElementType() == element && eq.num == num {
			list = append(list, eq)
		}
	}
	return list
}

func (s *EquationSystem) notifyEquationChange(eq *Equation, event EquationEventType) {
	s.generation++
	for _, l := range s.listeners {
		l.OnEquationChange(eq, event)
	}
}

func (s *EquationSystem) notifyTermChange(eq *Equation, term EquationTerm, event TermEventType) {
	s.generation++
	for _, l := range s.listeners {
		l.OnEquationTermChange(eq, term, event)
	}
}
