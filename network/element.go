package network

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"acflow/types"
)

// Bus 母线
type Bus struct {
	Num       int     // 编号
	ID        string  // 标识
	NominalV  float64 // 额定电压 kV
	V         float64 // 电压幅值 pu(初值与结果)
	Angle     float64 // 电压相角 rad(初值与结果)
	Slack     bool    // 平衡母线
	Reference bool    // 相角参考
	Disabled  bool    // 停运
	network   *Network
}

// IsDisabled 是否停运
func (b *Bus) IsDisabled() bool { return b.Disabled }

// SetDisabled 投运/停运
func (b *Bus) SetDisabled(disabled bool) {
	if b.Disabled == disabled {
		return
	}
	b.Disabled = disabled
	b.network.fire(func(l Listener) { l.OnDisableChange(types.ElementBus, b.Num, disabled) })
}

// Generators 接入的发电机
func (b *Bus) Generators() []*Generator {
	var list []*Generator
	for _, g := range b.network.Generators {
		if g.Bus == b.Num {
			list = append(list, g)
		}
	}
	return list
}

// Loads 接入的负荷
func (b *Bus) Loads() []*Load {
	var list []*Load
	for _, l := range b.network.Loads {
		if l.Bus == b.Num {
			list = append(list, l)
		}
	}
	return list
}

// Shunts 接入的并联补偿
func (b *Bus) Shunts() []*Shunt {
	var list []*Shunt
	for _, sh := range b.network.Shunts {
		if sh.Bus == b.Num {
			list = append(list, sh)
		}
	}
	return list
}

// Branches 接入的支路(任一端)
func (b *Bus) Branches() []*Branch {
	var list []*Branch
	for _, br := range b.network.Branches {
		if br.Bus1 == b.Num || br.Bus2 == b.Num {
			list = append(list, br)
		}
	}
	return list
}

// PiModel 支路π型等值参数(标幺值)
type PiModel struct {
	R  float64 // 串联电阻
	X  float64 // 串联电抗
	G1 float64 // 首端并联电导
	B1 float64 // 首端并联电纳
	G2 float64 // 末端并联电导
	B2 float64 // 末端并联电纳
	R1 float64 // 首端变比
	A1 float64 // 首端移相角 rad
}

// Z 串联阻抗模值
func (p PiModel) Z() float64 { return math.Hypot(p.R, p.X) }

// Y 串联导纳模值
func (p PiModel) Y() float64 { return 1 / p.Z() }

// Ksi 阻抗角余角 atan2(r, x)
func (p PiModel) Ksi() float64 { return math.Atan2(p.R, p.X) }

// SeriesAdmittance 串联导纳
func (p PiModel) SeriesAdmittance() complex128 { return 1 / complex(p.R, p.X) }

// Admittance2x2 两端口导纳矩阵(含变比,末端变比为1)
func (p PiModel) Admittance2x2() (y11, y12, y21, y22 complex128) {
	ys := p.SeriesAdmittance()
	rho := cmplx.Rect(p.R1, p.A1)
	y11 = (complex(p.G1, p.B1) + ys) * complex(p.R1*p.R1, 0)
	y12 = -ys * cmplx.Conj(rho)
	y21 = -ys * rho
	y22 = complex(p.G2, p.B2) + ys
	return
}

// PhaseControlMode 移相器控制方式
type PhaseControlMode uint8

// 移相器控制方式常量定义
const (
	PhaseControlFixedTap    PhaseControlMode = iota // 固定分接头
	PhaseControlActivePower                         // 调节有功
)

// PhaseControl 移相器控制
type PhaseControl struct {
	Mode    PhaseControlMode
	Enabled bool
	Side    types.Side // 被控有功所在端
	TargetP float64    // 有功目标 pu
}

// VoltageControl 电压控制描述(发电机/变压器/并联补偿)
type VoltageControl struct {
	Enabled       bool
	ControlledBus int     // 被控母线
	TargetV       float64 // 电压目标 pu
}

// Asymmetry 支路序参数
// Coupled 为真时使用6x6序导纳张量,否则各序独立
type Asymmetry struct {
	Coupled  bool
	Zero     PiModel
	Negative PiModel
	Y        *mat.CDense // 下标 side*3+sequence
}

// Branch 支路
type Branch struct {
	Num        int
	ID         string
	Bus1       int  // 首端母线
	Bus2       int  // 末端母线
	Connected1 bool // 首端合闸
	Connected2 bool // 末端合闸
	PiModel
	Disabled       bool
	PhaseControl   *PhaseControl
	VoltageControl *VoltageControl // 变压器调压
	Asymmetry      *Asymmetry
	network        *Network
}

// IsDisabled 是否停运
func (br *Branch) IsDisabled() bool { return br.Disabled }

// SetDisabled 投运/停运
func (br *Branch) SetDisabled(disabled bool) {
	if br.Disabled == disabled {
		return
	}
	br.Disabled = disabled
	br.network.fire(func(l Listener) { l.OnDisableChange(types.ElementBranch, br.Num, disabled) })
}

// IsZeroImpedance 串联阻抗低于门槛
func (br *Branch) IsZeroImpedance(threshold float64) bool {
	return br.Z() < threshold
}

// IsClosed 两端均合闸
func (br *Branch) IsClosed() bool { return br.Connected1 && br.Connected2 }

// BusNum 指定端母线
func (br *Branch) BusNum(side types.Side) int {
	if side == types.SideOne {
		return br.Bus1
	}
	return br.Bus2
}

// SetTap 修改变比和移相角
func (br *Branch) SetTap(r1, a1 float64) {
	if br.R1 == r1 && br.A1 == a1 {
		return
	}
	br.R1, br.A1 = r1, a1
	br.network.fire(func(l Listener) { l.OnTapChange(br) })
}

// SetPhaseControlEnabled 投入/退出移相控制
func (br *Branch) SetPhaseControlEnabled(enabled bool) {
	if br.PhaseControl == nil || br.PhaseControl.Enabled == enabled {
		return
	}
	br.PhaseControl.Enabled = enabled
	br.network.fire(func(l Listener) { l.OnPhaseControlChange(br, enabled) })
}

// SetVoltageControlEnabled 投入/退出变压器调压
func (br *Branch) SetVoltageControlEnabled(enabled bool) {
	if br.VoltageControl == nil || br.VoltageControl.Enabled == enabled {
		return
	}
	br.VoltageControl.Enabled = enabled
	br.network.fire(func(l Listener) { l.OnTransformerVoltageControlChange(br, enabled) })
}

// Tensor 6x6序导纳张量,未给定时由各序π模型组成块对角形式
func (a *Asymmetry) Tensor(positive PiModel) *mat.CDense {
	if a.Y != nil {
		return a.Y
	}
	y := mat.NewCDense(6, 6, nil)
	for seq, pi := range [3]PiModel{a.Zero, positive, a.Negative} {
		y11, y12, y21, y22 := PiModel{R: pi.R, X: pi.X, G1: pi.G1, B1: pi.B1, G2: pi.G2, B2: pi.B2, R1: 1}.Admittance2x2()
		y.Set(seq, seq, y11)
		y.Set(seq, 3+seq, y12)
		y.Set(3+seq, seq, y21)
		y.Set(3+seq, 3+seq, y22)
	}
	return y
}

// Sequence 指定序的π模型(变比与正序相同)
func (br *Branch) Sequence(s types.Sequence) PiModel {
	if br.Asymmetry == nil || s == types.SequencePositive {
		return br.PiModel
	}
	pi := br.Asymmetry.Zero
	if s == types.SequenceNegative {
		pi = br.Asymmetry.Negative
	}
	pi.R1, pi.A1 = br.R1, br.A1
	return pi
}

// Shunt 并联补偿
type Shunt struct {
	Num            int
	ID             string
	Bus            int
	G              float64 // 电导 pu
	B              float64 // 电纳 pu
	Disabled       bool
	VoltageControl *VoltageControl
	network        *Network
}

// IsDisabled 是否停运
func (sh *Shunt) IsDisabled() bool { return sh.Disabled }

// SetDisabled 投运/停运
func (sh *Shunt) SetDisabled(disabled bool) {
	if sh.Disabled == disabled {
		return
	}
	sh.Disabled = disabled
	sh.network.fire(func(l Listener) { l.OnDisableChange(types.ElementShunt, sh.Num, disabled) })
}

// SetVoltageControlEnabled 投入/退出并联补偿调压
func (sh *Shunt) SetVoltageControlEnabled(enabled bool) {
	if sh.VoltageControl == nil || sh.VoltageControl.Enabled == enabled {
		return
	}
	sh.VoltageControl.Enabled = enabled
	sh.network.fire(func(l Listener) { l.OnShuntVoltageControlChange(sh, enabled) })
}

// PhaseLoad 分相恒功率负荷 pu
type PhaseLoad struct {
	P [3]float64
	Q [3]float64
}

// Load 负荷
type Load struct {
	Num       int
	ID        string
	Bus       int
	P0        float64    // 额定有功 pu
	Q0        float64    // 额定无功 pu
	PExponent float64    // 有功电压指数,0为恒功率
	QExponent float64    // 无功电压指数,0为恒功率
	Phases    *PhaseLoad // 不平衡分相负荷
	Disabled  bool
	network   *Network
}

// IsDisabled 是否停运
func (l *Load) IsDisabled() bool { return l.Disabled }

// SetDisabled 投运/停运
func (l *Load) SetDisabled(disabled bool) {
	if l.Disabled == disabled {
		return
	}
	l.Disabled = disabled
	l.network.fire(func(ls Listener) { ls.OnDisableChange(types.ElementLoad, l.Num, disabled) })
}

// IsVoltageDependent 是否电压相关负荷
func (l *Load) IsVoltageDependent() bool {
	return l.PExponent != 0 || l.QExponent != 0
}

// SetPower 修改额定功率
func (l *Load) SetPower(p0, q0 float64) {
	if l.P0 == p0 && l.Q0 == q0 {
		return
	}
	l.P0, l.Q0 = p0, q0
	l.network.fire(func(ls Listener) { ls.OnTargetChange(types.ElementLoad, l.Num) })
}

// ReactivePowerControl 发电机远方无功控制
type ReactivePowerControl struct {
	Enabled bool
	Branch  int        // 被控支路
	Side    types.Side // 被控端
	TargetQ float64    // 无功目标 pu
}

// SequenceImpedance 发电机负序/零序阻抗 pu
type SequenceImpedance struct {
	R0, X0 float64
	R2, X2 float64
}

// Generator 发电机
type Generator struct {
	Num                  int
	ID                   string
	Bus                  int
	TargetP              float64 // 有功目标 pu
	TargetQ              float64 // 无功目标 pu(不调压时)
	ReactiveKey          float64 // 无功分配系数
	Disabled             bool
	VoltageControl       *VoltageControl
	ReactivePowerControl *ReactivePowerControl
	Sequence             *SequenceImpedance
	network              *Network
}

// IsDisabled 是否停运
func (g *Generator) IsDisabled() bool { return g.Disabled }

// SetDisabled 投运/停运
func (g *Generator) SetDisabled(disabled bool) {
	if g.Disabled == disabled {
		return
	}
	g.Disabled = disabled
	g.network.fire(func(l Listener) { l.OnDisableChange(types.ElementGenerator, g.Num, disabled) })
}

// IsVoltageControlling 当前参与调压
func (g *Generator) IsVoltageControlling() bool {
	return !g.Disabled && g.VoltageControl != nil && g.VoltageControl.Enabled
}

// SetVoltageControlEnabled 投入/退出发电机调压
func (g *Generator) SetVoltageControlEnabled(enabled bool) {
	if g.VoltageControl == nil || g.VoltageControl.Enabled == enabled {
		return
	}
	g.VoltageControl.Enabled = enabled
	g.network.fire(func(l Listener) { l.OnGeneratorVoltageControlChange(g, enabled) })
}

// SetTargetV 修改电压目标
func (g *Generator) SetTargetV(v float64) {
	if g.VoltageControl == nil || g.VoltageControl.TargetV == v {
		return
	}
	g.VoltageControl.TargetV = v
	g.network.fire(func(l Listener) { l.OnTargetChange(types.ElementGenerator, g.Num) })
}

// SetTargetP 修改有功目标
func (g *Generator) SetTargetP(p float64) {
	if g.TargetP == p {
		return
	}
	g.TargetP = p
	g.network.fire(func(l Listener) { l.OnTargetChange(types.ElementGenerator, g.Num) })
}

// SetReactivePowerControlEnabled 投入/退出远方无功控制
func (g *Generator) SetReactivePowerControlEnabled(enabled bool) {
	if g.ReactivePowerControl == nil || g.ReactivePowerControl.Enabled == enabled {
		return
	}
	g.ReactivePowerControl.Enabled = enabled
	g.network.fire(func(l Listener) { l.OnReactivePowerControlChange(g, enabled) })
}
