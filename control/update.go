package control

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"acflow/equation"
	"acflow/network"
	"acflow/term"
	"acflow/types"
)

// claims 本轮推导中各母线方程的占用情况
type claims struct {
	pOff     map[int]bool // 有功方程由平衡母线释放
	qOff     map[int]bool // 无功方程由调压/无功控制释放
	phiOn    map[int]bool // 参考母线
	claimed  map[int]bool // 已有电压控制的零阻抗组
	isolated []int        // 单母线连通分量
}

func newClaims() *claims {
	return &claims{
		pOff:    map[int]bool{},
		qOff:    map[int]bool{},
		phiOn:   map[int]bool{},
		claimed: map[int]bool{},
	}
}

// update 由网络当前状态重新推导全部控制状态并切换方程
// 推导只依赖网络和参数,同一网络状态总得到同一组激活方程
// 推导中途出现致命错误时恢复到推导前的状态
func (s *System) update() {
	s.checkReferences()
	prev := s.snapshot()
	defer func() {
		if s.pending != nil {
			s.restore(prev)
		}
	}()
	s.zero = s.Network.ZeroImpedance(s.Params.LowImpedanceThreshold)
	s.pending = map[Subject]Mode{}
	s.voltageTargets = map[int]float64{}
	s.dependent = map[int]int{}
	c := newClaims()
	seen := map[derivedKey]bool{}

	s.updateElements()
	s.updateZeroImpedance()
	s.updateSlack(c, seen)
	s.updateGeneratorVoltage(c, seen)
	s.updateReactivePower(c)
	s.updateTransformerVoltage(c, seen)
	s.updateShuntVoltage(c, seen)
	s.updatePhaseControl()
	s.applyBuses(c)
	s.prune(seen)
	s.commitModes()
}

// updateElements 元件项随投运状态切换
func (s *System) updateElements() {
	for _, br := range s.Network.Branches {
		active := s.branchActive(br)
		if s.isZeroImpedance(br) {
			active = active && br.IsClosed()
		}
		s.setElementActive(types.ElementBranch, br.Num, active)
	}
	for _, sh := range s.Network.Shunts {
		s.setElementActive(types.ElementShunt, sh.Num, !sh.Disabled && s.busEnabled(sh.Bus))
	}
	for _, l := range s.Network.Loads {
		s.setElementActive(types.ElementLoad, l.Num, !l.Disabled && s.busEnabled(l.Bus))
	}
	for _, g := range s.Network.Generators {
		s.setElementActive(types.ElementGenerator, g.Num, !g.Disabled && s.busEnabled(g.Bus))
	}
}

// updateZeroImpedance 生成森林中的零阻抗支路约束两端电压相等,
// 其余零阻抗支路的虚拟功率固定为零
func (s *System) updateZeroImpedance() {
	for _, br := range s.Network.Branches {
		if !s.isZeroImpedance(br) {
			continue
		}
		inService := br.IsClosed() && s.branchActive(br)
		spanning := inService && s.zero.IsSpanning(br.Num)
		s.setActive(br.Num, types.ZeroV, spanning)
		s.setActive(br.Num, types.ZeroPhi, spanning)
		s.setActive(br.Num, types.DummyTargetP, inService && !spanning)
		s.setActive(br.Num, types.DummyTargetQ, inService && !spanning)
	}
}

// checkReferences 每个连通分量至多一条参考母线
func (s *System) checkReferences() {
	for _, component := range s.Network.Components() {
		var refs []int
		for _, num := range component {
			if s.Network.Buses[num].Reference {
				refs = append(refs, num)
			}
		}
		if len(refs) > 1 {
			panic(equation.Fatalf(equation.ErrInvariant, "连通分量含多条参考母线: %v", refs))
		}
	}
}

// updateSlack 每个连通分量选一条参考母线,多平衡母线时按等量分配不平衡功率
func (s *System) updateSlack(c *claims, seen map[derivedKey]bool) {
	for _, component := range s.Network.Components() {
		var refs, slacks []int
		for _, num := range component {
			b := s.Network.Buses[num]
			if b.Reference {
				refs = append(refs, num)
			}
			if b.Slack {
				slacks = append(slacks, num)
			}
		}
		var ref int
		switch {
		case len(refs) == 1:
			ref = refs[0]
		case len(slacks) > 0:
			ref = slacks[0]
		default:
			ref = component[0]
			s.log.WithField("bus", ref).Warn("连通分量没有平衡母线,取编号最小的母线")
		}
		c.phiOn[ref] = true
		c.pOff[ref] = true
		if len(component) == 1 {
			c.isolated = append(c.isolated, ref)
		}

		var others []int
		for _, num := range slacks {
			if num != ref {
				others = append(others, num)
			}
		}
		if !s.Params.DistributedSlack || len(others) == 0 {
			s.setMode(KindSlack, ref, ModeRegulated)
			for _, num := range others {
				s.setMode(KindSlack, num, ModeFixed)
			}
			continue
		}
		s.setMode(KindSlack, ref, ModeDistributed)
		refP, _ := s.Equations.Equation(ref, types.BusTargetP)
		for _, num := range others {
			num := num
			c.pOff[num] = true
			s.setMode(KindSlack, num, ModeDistributed)
			p, _ := s.Equations.Equation(num, types.BusTargetP)
			target := func() float64 { return s.busPTarget(num) - s.busPTarget(ref) }
			s.derive(seen, num, types.BusDistrSlackP, fmt.Sprint(ref), target, func(eq *equation.Equation) {
				eq.AddTerms(term.Injection(p), equation.Minus(term.Injection(refP)))
			})
		}
	}
}

// voltageGroup 同一零阻抗组内的电压控制
type voltageGroup struct {
	controlled  []int // 被控母线,首个为主母线
	controllers []int // 控制母线
	nums        []int // 控制元件编号
	targetV     float64
}

func (g *voltageGroup) add(controlled, controller, num int) {
	if !slices.Contains(g.controlled, controlled) {
		g.controlled = append(g.controlled, controlled)
	}
	if !slices.Contains(g.controllers, controller) {
		g.controllers = append(g.controllers, controller)
	}
	g.nums = append(g.nums, num)
}

// groups 按零阻抗组代表母线排序的电压控制组
type groups struct {
	keys []int
	m    map[int]*voltageGroup
}

func (gs *groups) get(key int, targetV float64) *voltageGroup {
	if gs.m == nil {
		gs.m = map[int]*voltageGroup{}
	}
	g, ok := gs.m[key]
	if !ok {
		g = &voltageGroup{targetV: targetV}
		gs.m[key] = g
		gs.keys = append(gs.keys, key)
	}
	return g
}

func (gs *groups) sorted() []*voltageGroup {
	slices.Sort(gs.keys)
	list := make([]*voltageGroup, 0, len(gs.keys))
	for _, key := range gs.keys {
		list = append(list, gs.m[key])
	}
	return list
}

// joinGroup 按零阻抗组取电压控制组,目标与组内已有目标不一致时告警并沿用已有目标
func (s *System) joinGroup(gs *groups, kind Kind, num, controlled int, targetV float64) *voltageGroup {
	g := gs.get(s.groupKey(controlled), targetV)
	if g.targetV != targetV {
		s.log.WithFields(logrus.Fields{
			"subject": Subject{Kind: kind, Num: num},
			"bus":     controlled,
			"target":  targetV,
			"used":    g.targetV,
		}).Warn("合并调压组电压目标不一致")
	}
	return g
}

// claimGroup 登记主母线电压目标和从属母线,返回控制状态
func (s *System) claimGroup(c *claims, g *voltageGroup, kind Kind) Mode {
	slices.Sort(g.controlled)
	slices.Sort(g.controllers)
	main := g.controlled[0]
	c.claimed[s.groupKey(main)] = true
	s.voltageTargets[main] = g.targetV
	for _, bus := range g.controlled[1:] {
		s.dependent[bus] = main
		s.log.WithFields(logrus.Fields{"bus": bus, "main": main, "kind": kind}).Debug("零阻抗组合并调压")
	}
	mode := ModeRegulated
	if len(g.controllers) > 1 {
		mode = ModeDistributed
	}
	for _, num := range g.nums {
		s.setMode(kind, num, mode)
	}
	return mode
}

// updateGeneratorVoltage 发电机调压,同一母线上的发电机跟随首台发电机的被控母线
func (s *System) updateGeneratorVoltage(c *claims, seen map[derivedKey]bool) {
	var gs groups
	busControlled := map[int]int{}
	for _, g := range s.Network.Generators {
		vc := g.VoltageControl
		if vc == nil {
			continue
		}
		if g.Disabled || !s.busEnabled(g.Bus) {
			s.setMode(KindGeneratorVoltage, g.Num, ModeDisabled)
			continue
		}
		if !vc.Enabled {
			s.setMode(KindGeneratorVoltage, g.Num, ModeFixed)
			continue
		}
		controlled, ok := busControlled[g.Bus]
		if !ok {
			controlled = vc.ControlledBus
			if controlled != g.Bus && !s.Params.VoltageRemoteControl {
				controlled = g.Bus
			}
			if !s.busEnabled(controlled) {
				s.log.WithFields(logrus.Fields{"generator": g.Num, "bus": controlled}).Warn("被控母线停运,发电机调压退出")
				s.setMode(KindGeneratorVoltage, g.Num, ModeDisabled)
				continue
			}
			busControlled[g.Bus] = controlled
		}
		s.joinGroup(&gs, KindGeneratorVoltage, g.Num, controlled, vc.TargetV).add(controlled, g.Bus, g.Num)
	}
	for _, g := range gs.sorted() {
		s.claimGroup(c, g, KindGeneratorVoltage)
		for _, bus := range g.controllers {
			c.qOff[bus] = true
		}
		if len(g.controllers) > 1 {
			s.distributeReactive(seen, g.controllers)
		}
	}
}

// reactiveWeight 控制母线上调压发电机的无功分配系数之和
func (s *System) reactiveWeight(bus int) float64 {
	w := 0.0
	for _, g := range s.Network.Generators {
		if g.Bus == bus && g.IsVoltageControlling() && g.ReactiveKey > 0 {
			w += g.ReactiveKey
		}
	}
	if w == 0 {
		return 1
	}
	return w
}

// distributeReactive 控制母线间按分配系数分摊无功,首个控制母线之外每条一个分配方程
// x_j 取 q_j/share_j,使 Σ_j (share_j - δij)·x_j = 0 等价于 q_i = share_i·Σq
func (s *System) distributeReactive(seen map[derivedKey]bool, controllers []int) {
	shares := term.NormalizedShares(func() []float64 {
		w := make([]float64, len(controllers))
		for j, bus := range controllers {
			w[j] = s.reactiveWeight(bus)
		}
		return w
	})
	signature := fmt.Sprint(controllers)
	count := len(controllers)
	for i := 1; i < count; i++ {
		i, bus := i, controllers[i]
		target := func() float64 {
			sh := shares()
			t := 0.0
			for j, cb := range controllers {
				t += term.Coefficient(shares, i, j)() * s.busQTarget(cb) / sh[j]
			}
			return t
		}
		s.derive(seen, bus, types.BusDistrQ, signature, target, func(eq *equation.Equation) {
			eq.AddTerm(term.Distribution(types.ElementBus, bus, i, shares, count, func(j int) []equation.EquationTerm {
				q, _ := s.Equations.Equation(controllers[j], types.BusTargetQ)
				scale := func() float64 { return 1 / shares()[j] }
				return []equation.EquationTerm{equation.MultiplyBy(term.Injection(q), scale, fmt.Sprintf("1/k%d", j))}
			}))
		})
	}
}

// qRegulating 发电机无功作为未知量
func (s *System) qRegulating(g *network.Generator) bool {
	switch s.Mode(KindGeneratorVoltage, g.Num) {
	case ModeRegulated, ModeDistributed:
		return true
	}
	return s.Mode(KindReactivePower, g.Num) == ModeRegulated
}

// updateReactivePower 远方无功控制,发电机调压优先
func (s *System) updateReactivePower(c *claims) {
	for _, brNum := range sortedKeys(s.reactive) {
		br := s.Network.Branches[brNum]
		g := s.Network.Generators[s.reactive[brNum]]
		regulating := g.ReactivePowerControl.Enabled && !g.Disabled && s.busEnabled(g.Bus) &&
			s.branchActive(br) && !s.qRegulating(g) && !c.qOff[g.Bus]
		s.setActive(brNum, types.BranchTargetQ, regulating)
		switch {
		case regulating:
			c.qOff[g.Bus] = true
			s.setMode(KindReactivePower, g.Num, ModeRegulated)
		case g.Disabled:
			s.setMode(KindReactivePower, g.Num, ModeDisabled)
		default:
			s.setMode(KindReactivePower, g.Num, ModeFixed)
		}
	}
}

// regulator 变压器或并联补偿的电压控制
type regulator struct {
	num        int
	controlled int
	targetV    float64
}

// claimVoltage 零阻抗组未被占用时由调节元件控制电压,固定方程停用,
// 多个调节元件时其余元件的变量与首个相等
func (s *System) claimVoltage(c *claims, seen map[derivedKey]bool, kind Kind, regulators []regulator,
	fixed, distr types.EquationType, vType types.VariableType) {
	var gs groups
	for _, r := range regulators {
		key := s.groupKey(r.controlled)
		if c.claimed[key] {
			s.setActive(r.num, fixed, true)
			s.setMode(kind, r.num, ModeFixed)
			continue
		}
		s.joinGroup(&gs, kind, r.num, r.controlled, r.targetV).add(r.controlled, r.num, r.num)
	}
	for _, g := range gs.sorted() {
		s.claimGroup(c, g, kind)
		for _, num := range g.nums {
			s.setActive(num, fixed, false)
		}
		first := g.nums[0]
		for _, num := range g.nums[1:] {
			num := num
			s.derive(seen, num, distr, fmt.Sprint(g.nums), func() float64 { return 0 }, func(eq *equation.Equation) {
				eq.AddTerms(s.variableTerm(num, vType), equation.Minus(s.variableTerm(first, vType)))
			})
		}
	}
}

// updateTransformerVoltage 变压器调压
func (s *System) updateTransformerVoltage(c *claims, seen map[derivedKey]bool) {
	var regulators []regulator
	for _, br := range s.Network.Branches {
		if !s.Equations.HasEquation(br.Num, types.BranchTargetRho1) {
			continue
		}
		vc := br.VoltageControl
		active := s.branchActive(br)
		if vc.Enabled && active && br.IsClosed() && s.busEnabled(vc.ControlledBus) {
			regulators = append(regulators, regulator{num: br.Num, controlled: vc.ControlledBus, targetV: vc.TargetV})
			continue
		}
		s.setActive(br.Num, types.BranchTargetRho1, active)
		if active {
			s.setMode(KindTransformerVoltage, br.Num, ModeFixed)
		} else {
			s.setMode(KindTransformerVoltage, br.Num, ModeDisabled)
		}
	}
	s.claimVoltage(c, seen, KindTransformerVoltage, regulators, types.BranchTargetRho1, types.DistrRho, types.BranchRho1)
}

// updateShuntVoltage 并联补偿调压
func (s *System) updateShuntVoltage(c *claims, seen map[derivedKey]bool) {
	var regulators []regulator
	for _, sh := range s.Network.Shunts {
		if !s.Equations.HasEquation(sh.Num, types.ShuntTargetB) {
			continue
		}
		vc := sh.VoltageControl
		active := !sh.Disabled && s.busEnabled(sh.Bus)
		if vc.Enabled && active && s.busEnabled(vc.ControlledBus) {
			regulators = append(regulators, regulator{num: sh.Num, controlled: vc.ControlledBus, targetV: vc.TargetV})
			continue
		}
		s.setActive(sh.Num, types.ShuntTargetB, active)
		if active {
			s.setMode(KindShuntVoltage, sh.Num, ModeFixed)
		} else {
			s.setMode(KindShuntVoltage, sh.Num, ModeDisabled)
		}
	}
	s.claimVoltage(c, seen, KindShuntVoltage, regulators, types.ShuntTargetB, types.DistrShuntB, types.ShuntB)
}

// updatePhaseControl 移相器调节有功时移相角成为未知量
func (s *System) updatePhaseControl() {
	for _, br := range s.Network.Branches {
		if !s.Equations.HasEquation(br.Num, types.BranchTargetAlpha1) {
			continue
		}
		pc := br.PhaseControl
		active := s.branchActive(br)
		regulating := active && pc.Enabled && pc.Mode == network.PhaseControlActivePower
		s.setActive(br.Num, types.BranchTargetP, regulating)
		s.setActive(br.Num, types.BranchTargetAlpha1, active && !regulating)
		switch {
		case regulating:
			s.setMode(KindPhase, br.Num, ModeRegulated)
		case active:
			s.setMode(KindPhase, br.Num, ModeFixed)
		default:
			s.setMode(KindPhase, br.Num, ModeDisabled)
		}
	}
}

// applyBuses 按占用情况激活母线方程
func (s *System) applyBuses(c *claims) {
	for _, num := range c.isolated {
		// 孤立母线无功方程没有电压相关项,改为固定电压
		c.qOff[num] = true
		if _, ok := s.voltageTargets[num]; !ok {
			s.voltageTargets[num] = s.Network.Buses[num].V
		}
	}
	for _, b := range s.Network.Buses {
		enabled := !b.Disabled
		_, hasV := s.voltageTargets[b.Num]
		s.setActive(b.Num, types.BusTargetP, enabled && !c.pOff[b.Num])
		s.setActive(b.Num, types.BusTargetQ, enabled && !c.qOff[b.Num])
		s.setActive(b.Num, types.BusTargetV, enabled && hasV)
		s.setActive(b.Num, types.BusTargetPhi, enabled && c.phiOn[b.Num])
		if s.Params.Asymmetrical {
			for _, seq := range []types.Sequence{types.SequenceZero, types.SequenceNegative} {
				ix, iy, _ := types.BusCurrentTypes(seq)
				s.setActive(b.Num, ix, enabled && s.hasActiveTerm(b.Num, ix))
				s.setActive(b.Num, iy, enabled && s.hasActiveTerm(b.Num, iy))
			}
		}
	}
}

// hasActiveTerm 方程至少含一个激活项
func (s *System) hasActiveTerm(num int, eType types.EquationType) bool {
	eq, ok := s.Equations.Equation(num, eType)
	if !ok {
		return false
	}
	for _, t := range eq.Terms() {
		if t.IsActive() {
			return true
		}
	}
	return false
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
