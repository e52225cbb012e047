package equation

import (
	"fmt"

	"acflow/types"
)

// Variable 方程组变量
// 身份由(元件类型,元件编号,变量类型)确定,由 VariableSet 唯一持有
type Variable struct {
	id    int                // 在变量集中的句柄
	num   int                // 元件编号
	vType types.VariableType // 变量类型
	row   int                // 状态向量行号,-1 表示未进入方程组
}

// ID 变量句柄(创建序号)
func (v *Variable) ID() int { return v.id }

// Num 元件编号
func (v *Variable) Num() int { return v.num }

// Type 变量类型
func (v *Variable) Type() types.VariableType { return v.vType }

// ElementType 所属元件类型
func (v *Variable) ElementType() types.ElementType { return v.vType.ElementType() }

// Row 状态向量行号,未激活时为-1
func (v *Variable) Row() int { return v.row }

// IsActive 是否属于当前求解变量
func (v *Variable) IsActive() bool { return v.row >= 0 }

func (v *Variable) String() string {
	return fmt.Sprintf("%s(%d)", v.vType, v.num)
}

// variableKey 变量身份
type variableKey struct {
	element types.ElementType
	num     int
	vType   types.VariableType
}

// VariableSet 变量工厂,保证同一身份只有一个实例
type VariableSet struct {
	variables []*Variable         // 按创建顺序保存
	byKey     map[variableKey]int // 身份到句柄
}

// NewVariableSet 创建变量集
func NewVariableSet() *VariableSet {
	return &VariableSet{byKey: map[variableKey]int{}}
}

// GetOrCreate 获取或创建变量,重复请求返回同一实例
func (s *VariableSet) GetOrCreate(num int, vType types.VariableType) *Variable {
	key := variableKey{element: vType.ElementType(), num: num, vType: vType}
	if id, ok := s.byKey[key]; ok {
		return s.variables[id]
	}
	v := &Variable{id: len(s.variables), num: num, vType: vType, row: -1}
	s.variables = append(s.variables, v)
	s.byKey[key] = v.id
	return v
}

// Lookup 查找变量,从未创建时返回 false
func (s *VariableSet) Lookup(num int, vType types.VariableType) (*Variable, bool) {
	id, ok := s.byKey[variableKey{element: vType.ElementType(), num: num, vType: vType}]
	if !ok {
		return nil, false
	}
	return s.variables[id], true
}

// Get 通过句柄获取变量
func (s *VariableSet) Get(id int) *Variable { return s.variables[id] }

// Variables 全部变量(创建顺序)
func (s *VariableSet) Variables() []*Variable { return s.variables }

// Len 变量数量
func (s *VariableSet) Len() int { return len(s.variables) }

// RowOf 查找变量当前行号,不存在或未激活时返回-1
func (s *VariableSet) RowOf(num int, vType types.VariableType) int {
	if v, ok := s.Lookup(num, vType); ok {
		return v.row
	}
	return -1
}
