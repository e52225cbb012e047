package types

import "fmt"

// VariableType 变量类型
type VariableType uint8

// 变量类型常量定义
const (
	BusV           VariableType = iota // 母线电压幅值
	BusPhi                             // 母线电压相角
	ShuntB                             // 并联补偿电纳
	BranchAlpha1                       // 移相器相角
	BranchRho1                         // 变压器变比
	DummyP                             // 零阻抗支路虚拟有功
	DummyQ                             // 零阻抗支路虚拟无功
	BusVZero                           // 零序电压幅值
	BusPhiZero                         // 零序电压相角
	BusVNegative                       // 负序电压幅值
	BusPhiNegative                     // 负序电压相角
)

// variableTypeConfig 变量类型注册信息
type variableTypeConfig struct {
	Name     string      // 名称
	Element  ElementType // 所属元件类型
	Sequence Sequence    // 所属序分量
}

// variableTypeString 变量映射
var variableTypeString = map[VariableType]variableTypeConfig{
	BusV:           {Name: "BUS_V", Element: ElementBus, Sequence: SequencePositive},
	BusPhi:         {Name: "BUS_PHI", Element: ElementBus, Sequence: SequencePositive},
	ShuntB:         {Name: "SHUNT_B", Element: ElementShunt, Sequence: SequencePositive},
	BranchAlpha1:   {Name: "BRANCH_ALPHA1", Element: ElementBranch, Sequence: SequencePositive},
	BranchRho1:     {Name: "BRANCH_RHO1", Element: ElementBranch, Sequence: SequencePositive},
	DummyP:         {Name: "DUMMY_P", Element: ElementBranch, Sequence: SequencePositive},
	DummyQ:         {Name: "DUMMY_Q", Element: ElementBranch, Sequence: SequencePositive},
	BusVZero:       {Name: "BUS_V_ZERO", Element: ElementBus, Sequence: SequenceZero},
	BusPhiZero:     {Name: "BUS_PHI_ZERO", Element: ElementBus, Sequence: SequenceZero},
	BusVNegative:   {Name: "BUS_V_NEGATIVE", Element: ElementBus, Sequence: SequenceNegative},
	BusPhiNegative: {Name: "BUS_PHI_NEGATIVE", Element: ElementBus, Sequence: SequenceNegative},
}

// String 返回变量类型的字符串表示
func (t VariableType) String() string {
	if vt, ok := variableTypeString[t]; ok {
		return vt.Name
	}
	return fmt.Sprintf("VARIABLE(%d)", uint8(t))
}

// ElementType 变量所属元件类型
func (t VariableType) ElementType() ElementType {
	return variableTypeString[t].Element
}

// Sequence 变量所属序分量
func (t VariableType) Sequence() Sequence {
	return variableTypeString[t].Sequence
}

// IsVoltageMagnitude 是否为电压幅值变量
func (t VariableType) IsVoltageMagnitude() bool {
	return t == BusV || t == BusVZero || t == BusVNegative
}

// IsVoltageAngle 是否为电压相角变量
func (t VariableType) IsVoltageAngle() bool {
	return t == BusPhi || t == BusPhiZero || t == BusPhiNegative
}

// BusVoltageTypes 指定序分量的电压幅值和相角变量类型
func BusVoltageTypes(s Sequence) (v, phi VariableType) {
	switch s {
	case SequenceZero:
		return BusVZero, BusPhiZero
	case SequenceNegative:
		return BusVNegative, BusPhiNegative
	}
	return BusV, BusPhi
}
