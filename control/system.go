// Package control 由网络构建潮流方程组,并按控制方式切换方程
//
// 每个受控对象对应一个显式状态机(固定/调节/分配/退出)。网络事件触发后
// update 按优先级重新推导全部状态,成对切换方程的激活标志,方程数保持不变。
package control

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"acflow/config"
	"acflow/equation"
	"acflow/network"
	"acflow/types"
	"acflow/vector"
)

// Mode 控制状态
type Mode uint8

// 控制状态常量定义
const (
	ModeFixed       Mode = iota // 固定目标,被调量作为常量
	ModeRegulated               // 调节,被调量作为未知量
	ModeDistributed             // 多控制器分配
	ModeDisabled                // 退出
)

func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "FIXED"
	case ModeRegulated:
		return "REGULATED"
	case ModeDistributed:
		return "DISTRIBUTED"
	case ModeDisabled:
		return "DISABLED"
	}
	return fmt.Sprintf("MODE(%d)", uint8(m))
}

// Kind 控制类别
type Kind uint8

// 控制类别常量定义
const (
	KindGeneratorVoltage   Kind = iota // 发电机调压,编号为发电机
	KindTransformerVoltage             // 变压器调压,编号为支路
	KindShuntVoltage                   // 并联补偿调压,编号为并联补偿
	KindPhase                          // 移相器有功控制,编号为支路
	KindReactivePower                  // 远方无功控制,编号为发电机
	KindSlack                          // 平衡母线,编号为母线
)

func (k Kind) String() string {
	return [...]string{"GENERATOR_VOLTAGE", "TRANSFORMER_VOLTAGE", "SHUNT_VOLTAGE", "PHASE", "REACTIVE_POWER", "SLACK"}[k]
}

// Subject 受控对象
type Subject struct {
	Kind Kind
	Num  int
}

func (s Subject) String() string { return fmt.Sprintf("%s(%d)", s.Kind, s.Num) }

// derivedKey 派生方程(分配方程)身份
type derivedKey struct {
	num   int
	eType types.EquationType
}

// derived 派生方程,控制器集合变化时按签名重建
type derived struct {
	signature string
	target    func() float64
}

// System 潮流方程组及其控制状态
// 单线程使用,网络修改通过事件同步到方程组。
// 每次事件都重新推导全部控制状态,推导中途失败时恢复推导前的状态,
// 错误以 *equation.FatalError panic,由调用方 Catch。
type System struct {
	Network   *network.Network
	Params    *config.Parameters
	Equations *equation.EquationSystem
	Vectors   *vector.Set
	Targets   *equation.TargetVector

	log     logrus.FieldLogger
	updater *Updater

	elementTerms   map[types.ElementType]map[int][]equation.EquationTerm // 随元件投退切换的项
	zero           *network.ZeroImpedanceGraph
	modes          map[Subject]Mode
	pending        map[Subject]Mode // 本轮 update 推导的状态
	voltageTargets map[int]float64 // 受控母线 -> 电压目标
	dependent      map[int]int     // 合并调压组中的从属受控母线 -> 主母线
	reactive       map[int]int     // 远方无功控制支路 -> 发电机
	derived        map[derivedKey]*derived
}

// Option 构建选项
type Option func(*System)

// WithLogger 指定日志
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *System) { s.log = log }
}

// Build 由网络创建方程组,初始化控制状态和状态向量,并订阅网络事件
// 参数:
//
//	net: 网络模型,构建后由方程组监听其事件。
//	params: 计算参数,构建前校验。
//	opts: 日志等选项。
//
// 返回:
//
//	*System: 激活方程数与激活变量数相等的方程组。
//	error: 参数无效、网络配置错误或方程组不是方阵。
func Build(net *network.Network, params *config.Parameters, opts ...Option) (sys *System, err error) {
	defer equation.Catch(&err)
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &System{
		Network:        net,
		Params:         params,
		log:            logrus.StandardLogger(),
		elementTerms:   map[types.ElementType]map[int][]equation.EquationTerm{},
		modes:          map[Subject]Mode{},
		voltageTargets: map[int]float64{},
		dependent:      map[int]int{},
		reactive:       map[int]int{},
		derived:        map[derivedKey]*derived{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Equations = equation.NewEquationSystem(equation.WithLogger(s.log), equation.WithInitializer(s.initialValue))
	s.Vectors = vector.NewSet(net, s.Equations, params)
	s.create()
	s.update()
	s.Targets = equation.NewTargetVector(s.Equations, s.target)
	if err := s.CheckSquareness(); err != nil {
		return nil, err
	}
	s.InitState()
	s.updater = &Updater{system: s}
	net.AddListener(s.updater)
	s.log.WithFields(logrus.Fields{
		"equations": s.Equations.Index().RowCount(),
		"variables": s.Equations.Index().ColumnCount(),
	}).Debug("方程组构建完成")
	return s, nil
}

// Close 取消网络事件订阅
func (s *System) Close() {
	if s.updater != nil {
		s.Network.RemoveListener(s.updater)
		s.updater = nil
	}
}

// Log 日志
func (s *System) Log() logrus.FieldLogger { return s.log }

// Mode 受控对象当前状态
// 参数:
//
//	kind: 控制类别。
//	num: 受控对象编号,含义由类别确定。
//
// 返回:
//
//	Mode: 未登记的对象返回 ModeDisabled。
func (s *System) Mode(kind Kind, num int) Mode {
	modes := s.modes
	if s.pending != nil {
		modes = s.pending
	}
	if m, ok := modes[Subject{Kind: kind, Num: num}]; ok {
		return m
	}
	return ModeDisabled
}

// IsDependent 母线是否为合并调压组中的从属受控母线
func (s *System) IsDependent(bus int) bool {
	_, ok := s.dependent[bus]
	return ok
}

// VoltageTarget 受控母线当前电压目标
func (s *System) VoltageTarget(bus int) (float64, bool) {
	v, ok := s.voltageTargets[bus]
	return v, ok
}

// setMode 登记本轮推导的状态
func (s *System) setMode(kind Kind, num int, mode Mode) {
	s.pending[Subject{Kind: kind, Num: num}] = mode
}

// commitModes 本轮状态生效,记录发生切换的对象
func (s *System) commitModes() {
	subjects := make([]Subject, 0, len(s.pending))
	for subject := range s.pending {
		subjects = append(subjects, subject)
	}
	for subject := range s.modes {
		if _, ok := s.pending[subject]; !ok {
			subjects = append(subjects, subject)
		}
	}
	slices.SortFunc(subjects, func(a, b Subject) int {
		if a.Kind != b.Kind {
			return int(a.Kind) - int(b.Kind)
		}
		return a.Num - b.Num
	})
	for _, subject := range subjects {
		from, ok := s.modes[subject]
		if !ok {
			from = ModeDisabled
		}
		to, ok := s.pending[subject]
		if !ok {
			to = ModeDisabled
		}
		if from != to && len(s.modes) > 0 {
			s.log.WithFields(logrus.Fields{"subject": subject, "from": from, "to": to}).Debug("控制状态切换")
		}
	}
	s.modes, s.pending = s.pending, nil
}

// snapshot 一轮推导前的控制状态和方程激活标志
type snapshot struct {
	zero           *network.ZeroImpedanceGraph
	voltageTargets map[int]float64
	dependent      map[int]int
	equations      map[*equation.Equation]bool
	terms          map[equation.EquationTerm]bool
}

func (s *System) snapshot() *snapshot {
	snap := &snapshot{
		zero:           s.zero,
		voltageTargets: s.voltageTargets,
		dependent:      s.dependent,
		equations:      map[*equation.Equation]bool{},
		terms:          map[equation.EquationTerm]bool{},
	}
	for _, eq := range s.Equations.Equations() {
		snap.equations[eq] = eq.IsActive()
		for _, t := range eq.Terms() {
			snap.terms[t] = t.IsActive()
		}
	}
	return snap
}

// restore 丢弃本轮推导结果,恢复推导前的激活标志
func (s *System) restore(snap *snapshot) {
	s.pending = nil
	s.zero, s.voltageTargets, s.dependent = snap.zero, snap.voltageTargets, snap.dependent
	for t, active := range snap.terms {
		t.SetActive(active)
	}
	for eq, active := range snap.equations {
		if eq.System() != nil {
			eq.SetActive(active)
		}
	}
	s.log.Warn("控制状态推导失败,已恢复")
}

// addElementTerm 项追加到方程,并登记到元件以便随投退切换
func (s *System) addElementTerm(eq *equation.Equation, t equation.EquationTerm) {
	eq.AddTerm(t)
	m, ok := s.elementTerms[t.ElementType()]
	if !ok {
		m = map[int][]equation.EquationTerm{}
		s.elementTerms[t.ElementType()] = m
	}
	m[t.ElementNum()] = append(m[t.ElementNum()], t)
}

// setElementActive 切换元件全部项
func (s *System) setElementActive(element types.ElementType, num int, active bool) {
	for _, t := range s.elementTerms[element][num] {
		t.SetActive(active)
	}
}

// setActive 方程存在时切换激活
func (s *System) setActive(num int, eType types.EquationType, active bool) {
	if eq, ok := s.Equations.Equation(num, eType); ok {
		eq.SetActive(active)
	}
}

// derive 确保派生方程存在且签名一致,否则删除重建
func (s *System) derive(seen map[derivedKey]bool, num int, eType types.EquationType, signature string,
	target func() float64, build func(eq *equation.Equation)) {
	key := derivedKey{num: num, eType: eType}
	seen[key] = true
	if d, ok := s.derived[key]; ok && d.signature == signature {
		d.target = target
		return
	}
	s.Equations.RemoveEquation(num, eType)
	eq := s.Equations.CreateEquation(num, eType)
	build(eq)
	s.derived[key] = &derived{signature: signature, target: target}
	s.log.WithFields(logrus.Fields{"equation": eq.Name(), "controllers": signature}).Debug("重建分配方程")
}

// prune 删除本轮未再需要的派生方程
func (s *System) prune(seen map[derivedKey]bool) {
	var stale []derivedKey
	for key := range s.derived {
		if !seen[key] {
			stale = append(stale, key)
		}
	}
	slices.SortFunc(stale, func(a, b derivedKey) int {
		if a.eType != b.eType {
			return int(a.eType) - int(b.eType)
		}
		return a.num - b.num
	})
	for _, key := range stale {
		s.Equations.RemoveEquation(key.num, key.eType)
		delete(s.derived, key)
		s.log.WithField("equation", fmt.Sprintf("%s_%d", key.eType.Symbol(), key.num)).Debug("删除分配方程")
	}
}

// busEnabled 母线存在且投运
func (s *System) busEnabled(num int) bool {
	b := s.Network.Bus(num)
	return b != nil && !b.Disabled
}

// branchActive 支路投运且合闸端母线投运
func (s *System) branchActive(br *network.Branch) bool {
	if br.Disabled || (!br.Connected1 && !br.Connected2) {
		return false
	}
	if br.Connected1 && !s.busEnabled(br.Bus1) {
		return false
	}
	return !br.Connected2 || s.busEnabled(br.Bus2)
}

// isZeroImpedance 零阻抗支路
func (s *System) isZeroImpedance(br *network.Branch) bool {
	return br.IsZeroImpedance(s.Params.LowImpedanceThreshold)
}

// groupKey 母线所在零阻抗组的代表母线
func (s *System) groupKey(bus int) int {
	return s.zero.Group(bus)[0]
}
