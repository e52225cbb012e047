package control

import (
	"github.com/sirupsen/logrus"

	"acflow/equation"
	"acflow/network"
	"acflow/types"
)

// Updater 网络事件同步到方程组
// 事件处理中出现的致命错误以 *equation.FatalError panic,由调用方 Catch
type Updater struct {
	system *System
}

var _ network.Listener = (*Updater)(nil)

// refresh 重新推导控制状态,检查方程组仍为方阵
func (u *Updater) refresh(event string, fields logrus.Fields) {
	s := u.system
	s.log.WithFields(fields).Debug(event)
	s.update()
	s.Targets.Invalidate()
	if err := s.CheckSquareness(); err != nil {
		panic(equation.Fatalf(equation.ErrNotSquare, "%s 后方程组不是方阵: %v", event, err))
	}
}

// OnGeneratorVoltageControlChange 发电机调压投退
func (u *Updater) OnGeneratorVoltageControlChange(g *network.Generator, enabled bool) {
	u.refresh("发电机调压投退", logrus.Fields{"generator": g.Num, "enabled": enabled})
}

// OnTransformerVoltageControlChange 变压器调压投退
func (u *Updater) OnTransformerVoltageControlChange(br *network.Branch, enabled bool) {
	u.refresh("变压器调压投退", logrus.Fields{"branch": br.Num, "enabled": enabled})
}

// OnShuntVoltageControlChange 并联补偿调压投退
func (u *Updater) OnShuntVoltageControlChange(sh *network.Shunt, enabled bool) {
	u.refresh("并联补偿调压投退", logrus.Fields{"shunt": sh.Num, "enabled": enabled})
}

// OnPhaseControlChange 移相控制投退
func (u *Updater) OnPhaseControlChange(br *network.Branch, enabled bool) {
	u.refresh("移相控制投退", logrus.Fields{"branch": br.Num, "enabled": enabled})
}

// OnReactivePowerControlChange 远方无功控制投退
func (u *Updater) OnReactivePowerControlChange(g *network.Generator, enabled bool) {
	u.refresh("远方无功控制投退", logrus.Fields{"generator": g.Num, "enabled": enabled})
}

// OnDisableChange 元件投运/停运
func (u *Updater) OnDisableChange(element types.ElementType, num int, disabled bool) {
	u.refresh("元件投退", logrus.Fields{"element": element, "num": num, "disabled": disabled})
}

// OnTapChange 分接头变化只影响常量
func (u *Updater) OnTapChange(br *network.Branch) {
	u.system.Vectors.Refresh()
	u.system.Targets.Invalidate()
}

// OnTargetChange 设定值变化
// 合并调压组中从属母线的电压目标不参与计算,修改视为错误
func (u *Updater) OnTargetChange(element types.ElementType, num int) {
	s := u.system
	if element == types.ElementGenerator {
		g := s.Network.Generators[num]
		if g.VoltageControl != nil && s.IsDependent(g.VoltageControl.ControlledBus) {
			switch s.Mode(KindGeneratorVoltage, num) {
			case ModeRegulated, ModeDistributed:
				panic(equation.Fatalf(equation.ErrInvariant, "发电机 %d 的被控母线 %d 为从属母线, 不能修改目标",
					num, g.VoltageControl.ControlledBus))
			}
		}
	}
	u.refresh("设定值变化", logrus.Fields{"element": element, "num": num})
	if element == types.ElementLoad {
		s.Vectors.Refresh()
	}
}
