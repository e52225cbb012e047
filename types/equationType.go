package types

import "fmt"

// EquationType 方程类型
type EquationType uint8

// 方程类型常量定义
const (
	BusTargetP          EquationType = iota // 母线有功注入
	BusTargetQ                              // 母线无功注入
	BusTargetV                              // 母线电压幅值
	BusTargetPhi                            // 母线电压相角(参考母线)
	BusDistrQ                               // 多控制器无功分配
	BusDistrSlackP                          // 多平衡母线有功分配
	BranchTargetP                           // 支路有功潮流
	BranchTargetQ                           // 支路无功潮流
	BranchTargetAlpha1                      // 移相器相角固定
	BranchTargetRho1                        // 变压器变比固定
	DistrRho                                // 多变压器变比分配
	DistrShuntB                             // 多并联补偿电纳分配
	ShuntTargetB                            // 并联补偿电纳固定
	ZeroV                                   // 零阻抗支路电压相等
	ZeroPhi                                 // 零阻抗支路相角相等
	DummyTargetP                            // 虚拟有功为零
	DummyTargetQ                            // 虚拟无功为零
	BusTargetIxZero                         // 零序电流实部
	BusTargetIyZero                         // 零序电流虚部
	BusTargetIxNegative                     // 负序电流实部
	BusTargetIyNegative                     // 负序电流虚部
)

// equationTypeString 方程映射
var equationTypeString = map[EquationType]struct {
	Name    string      // 名称
	Element ElementType // 方程主体类型
	Symbol  string      // 简写
}{
	BusTargetP:          {Name: "BUS_TARGET_P", Element: ElementBus, Symbol: "bus_p"},
	BusTargetQ:          {Name: "BUS_TARGET_Q", Element: ElementBus, Symbol: "bus_q"},
	BusTargetV:          {Name: "BUS_TARGET_V", Element: ElementBus, Symbol: "bus_v"},
	BusTargetPhi:        {Name: "BUS_TARGET_PHI", Element: ElementBus, Symbol: "bus_φ"},
	BusDistrQ:           {Name: "BUS_DISTR_Q", Element: ElementBus, Symbol: "bus_dq"},
	BusDistrSlackP:      {Name: "BUS_DISTR_SLACK_P", Element: ElementBus, Symbol: "bus_dp"},
	BranchTargetP:       {Name: "BRANCH_TARGET_P", Element: ElementBranch, Symbol: "br_p"},
	BranchTargetQ:       {Name: "BRANCH_TARGET_Q", Element: ElementBranch, Symbol: "br_q"},
	BranchTargetAlpha1:  {Name: "BRANCH_TARGET_ALPHA1", Element: ElementBranch, Symbol: "br_α1"},
	BranchTargetRho1:    {Name: "BRANCH_TARGET_RHO1", Element: ElementBranch, Symbol: "br_ρ1"},
	DistrRho:            {Name: "DISTR_RHO", Element: ElementBranch, Symbol: "br_dρ"},
	DistrShuntB:         {Name: "DISTR_SHUNT_B", Element: ElementShunt, Symbol: "sh_db"},
	ShuntTargetB:        {Name: "SHUNT_TARGET_B", Element: ElementShunt, Symbol: "sh_b"},
	ZeroV:               {Name: "ZERO_V", Element: ElementBranch, Symbol: "br_zv"},
	ZeroPhi:             {Name: "ZERO_PHI", Element: ElementBranch, Symbol: "br_zφ"},
	DummyTargetP:        {Name: "DUMMY_TARGET_P", Element: ElementBranch, Symbol: "br_dum_p"},
	DummyTargetQ:        {Name: "DUMMY_TARGET_Q", Element: ElementBranch, Symbol: "br_dum_q"},
	BusTargetIxZero:     {Name: "BUS_TARGET_IX_ZERO", Element: ElementBus, Symbol: "bus_ix0"},
	BusTargetIyZero:     {Name: "BUS_TARGET_IY_ZERO", Element: ElementBus, Symbol: "bus_iy0"},
	BusTargetIxNegative: {Name: "BUS_TARGET_IX_NEGATIVE", Element: ElementBus, Symbol: "bus_ix2"},
	BusTargetIyNegative: {Name: "BUS_TARGET_IY_NEGATIVE", Element: ElementBus, Symbol: "bus_iy2"},
}

// String 返回方程类型的字符串表示
func (t EquationType) String() string {
	if et, ok := equationTypeString[t]; ok {
		return et.Name
	}
	return fmt.Sprintf("EQUATION(%d)", uint8(t))
}

// Symbol 方程简写,用于求解器诊断
func (t EquationType) Symbol() string {
	return equationTypeString[t].Symbol
}

// ElementType 方程主体类型
func (t EquationType) ElementType() ElementType {
	return equationTypeString[t].Element
}

// BusCurrentTypes 指定序分量的母线电流方程类型(仅零序和负序)
func BusCurrentTypes(s Sequence) (ix, iy EquationType, ok bool) {
	switch s {
	case SequenceZero:
		return BusTargetIxZero, BusTargetIyZero, true
	case SequenceNegative:
		return BusTargetIxNegative, BusTargetIyNegative, true
	}
	return 0, 0, false
}
