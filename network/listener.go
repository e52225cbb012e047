package network

import "acflow/types"

// Listener 网络事件监听
// 方程组订阅这些事件以切换控制方式
type Listener interface {
	OnGeneratorVoltageControlChange(g *Generator, enabled bool)
	OnTransformerVoltageControlChange(br *Branch, enabled bool)
	OnShuntVoltageControlChange(sh *Shunt, enabled bool)
	OnPhaseControlChange(br *Branch, enabled bool)
	OnReactivePowerControlChange(g *Generator, enabled bool)
	OnDisableChange(element types.ElementType, num int, disabled bool)
	OnTapChange(br *Branch)
	OnTargetChange(element types.ElementType, num int)
}

// BaseListener 空实现,嵌入后只覆盖关心的事件
type BaseListener struct{}

// OnGeneratorVoltageControlChange 发电机调压投退
func (BaseListener) OnGeneratorVoltageControlChange(*Generator, bool) {}

// OnTransformerVoltageControlChange 变压器调压投退
func (BaseListener) OnTransformerVoltageControlChange(*Branch, bool) {}

// OnShuntVoltageControlChange 并联补偿调压投退
func (BaseListener) OnShuntVoltageControlChange(*Shunt, bool) {}

// OnPhaseControlChange 移相控制投退
func (BaseListener) OnPhaseControlChange(*Branch, bool) {}

// OnReactivePowerControlChange 远方无功控制投退
func (BaseListener) OnReactivePowerControlChange(*Generator, bool) {}

// OnDisableChange 元件投运/停运
func (BaseListener) OnDisableChange(types.ElementType, int, bool) {}

// OnTapChange 分接头变化
func (BaseListener) OnTapChange(*Branch) {}

// OnTargetChange 设定值变化
func (BaseListener) OnTargetChange(types.ElementType, int) {}
