package types

import "fmt"

// ElementType 网络元件类型
type ElementType uint8

// 网络元件类型常量定义
const (
	ElementBus       ElementType = iota // 母线
	ElementBranch                       // 支路(线路/变压器)
	ElementShunt                        // 并联补偿
	ElementLoad                         // 负荷
	ElementGenerator                    // 发电机
)

// elementTypeString 元件映射
var elementTypeString = map[ElementType]string{
	ElementBus:       "BUS",
	ElementBranch:    "BRANCH",
	ElementShunt:     "SHUNT",
	ElementLoad:      "LOAD",
	ElementGenerator: "GENERATOR",
}

// String 返回元件类型的字符串表示
func (t ElementType) String() string {
	if name, ok := elementTypeString[t]; ok {
		return name
	}
	return fmt.Sprintf("ELEMENT(%d)", uint8(t))
}

// Sequence 序分量
type Sequence uint8

// 序分量常量定义
const (
	SequenceZero     Sequence = iota // 零序
	SequencePositive                 // 正序
	SequenceNegative                 // 负序
)

// Sequences 全部序分量,按张量下标顺序
var Sequences = [3]Sequence{SequenceZero, SequencePositive, SequenceNegative}

func (s Sequence) String() string {
	switch s {
	case SequenceZero:
		return "ZERO"
	case SequencePositive:
		return "POSITIVE"
	case SequenceNegative:
		return "NEGATIVE"
	}
	return fmt.Sprintf("SEQUENCE(%d)", uint8(s))
}

// Side 支路端
type Side uint8

// 支路端常量定义
const (
	SideOne Side = iota // 首端
	SideTwo             // 末端
)

func (s Side) String() string {
	if s == SideOne {
		return "ONE"
	}
	return "TWO"
}

// Other 另一端
func (s Side) Other() Side {
	if s == SideOne {
		return SideTwo
	}
	return SideOne
}
