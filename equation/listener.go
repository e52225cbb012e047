package equation

// EquationEventType 方程事件
type EquationEventType uint8

// 方程事件常量定义
const (
	EquationCreated     EquationEventType = iota // 方程创建
	EquationRemoved                              // 方程移除
	EquationActivated                            // 方程激活
	EquationDeactivated                          // 方程停用
)

// TermEventType 方程项事件
type TermEventType uint8

// 方程项事件常量定义
const (
	TermAdded       TermEventType = iota // 项追加
	TermRemoved                          // 项移除
	TermActivated                        // 项激活
	TermDeactivated                      // 项停用
)

// EquationSystemListener 结构变化监听(控制模式切换时触发,频率低)
type EquationSystemListener interface {
	OnEquationChange(eq *Equation, event EquationEventType)
	OnEquationTermChange(eq *Equation, term EquationTerm, event TermEventType)
}

// IndexListener 索引重建完成监听,行号只在此通知后重新获取
type IndexListener interface {
	OnIndexUpdate()
}

// StateVectorListener 状态向量写入监听(每次牛顿迭代触发)
type StateVectorListener interface {
	OnStateUpdate()
}

// IndexListenerFunc 函数形式的索引监听
type IndexListenerFunc func()

// OnIndexUpdate 索引更新
func (f IndexListenerFunc) OnIndexUpdate() { f() }

// StateVectorListenerFunc 函数形式的状态监听
type StateVectorListenerFunc func()

// OnStateUpdate 状态更新
func (f StateVectorListenerFunc) OnStateUpdate() { f() }
