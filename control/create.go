package control

import (
	"acflow/equation"
	"acflow/network"
	"acflow/term"
	"acflow/term/asym"
	"acflow/types"
)

// create 为每个元件创建方程、变量和项,激活状态由 update 决定
func (s *System) create() {
	for _, b := range s.Network.Buses {
		s.createBus(b)
	}
	for _, br := range s.Network.Branches {
		if s.isZeroImpedance(br) {
			s.createZeroImpedanceBranch(br)
		} else {
			s.createBranch(br)
		}
	}
	for _, sh := range s.Network.Shunts {
		s.createShunt(sh)
	}
	for _, l := range s.Network.Loads {
		s.createLoad(l)
	}
	for _, g := range s.Network.Generators {
		s.createReactivePowerControl(g)
	}
	if s.Params.Asymmetrical {
		s.createAsymmetric()
	}
}

// variableTerm 变量项
func (s *System) variableTerm(num int, vType types.VariableType) *equation.VariableTerm {
	return equation.NewVariableTerm(s.Equations.StateVector(), s.Equations.Variable(num, vType))
}

// createBus 母线有功/无功平衡方程,电压与相角固定方程默认不激活
func (s *System) createBus(b *network.Bus) {
	es := s.Equations
	es.CreateEquation(b.Num, types.BusTargetP)
	es.CreateEquation(b.Num, types.BusTargetQ)
	es.CreateEquation(b.Num, types.BusTargetV).AddTerm(s.variableTerm(b.Num, types.BusV)).SetActive(false)
	es.CreateEquation(b.Num, types.BusTargetPhi).AddTerm(s.variableTerm(b.Num, types.BusPhi)).SetActive(false)
}

// branchOptions 支路项选项,变比/移相角是否可能成为未知量由控制配置决定
func (s *System) branchOptions(br *network.Branch) term.BranchOptions {
	return term.BranchOptions{
		DeriveR1: s.Params.TransformerVoltageControl && br.VoltageControl != nil && br.Connected1,
		DeriveA1: s.Params.PhaseControl && br.PhaseControl != nil && br.IsClosed(),
		Mode:     s.Params.DerivativeMode,
	}
}

// isCoupled 不平衡计算中使用耦合序参数
func (s *System) isCoupled(br *network.Branch) bool {
	return s.Params.Asymmetrical && br.Asymmetry != nil && br.Asymmetry.Coupled
}

// createBranch 有阻抗支路: 两端潮流项加入母线方程
func (s *System) createBranch(br *network.Branch) {
	es, set := s.Equations, s.Vectors
	o := s.branchOptions(br)
	p1 := func() *equation.Equation { return es.CreateEquation(br.Bus1, types.BusTargetP) }
	q1 := func() *equation.Equation { return es.CreateEquation(br.Bus1, types.BusTargetQ) }
	p2 := func() *equation.Equation { return es.CreateEquation(br.Bus2, types.BusTargetP) }
	q2 := func() *equation.Equation { return es.CreateEquation(br.Bus2, types.BusTargetQ) }
	switch {
	case s.isCoupled(br):
		pos := types.SequencePositive
		s.addElementTerm(p1(), asym.CoupledP(set, es, br, types.SideOne, pos))
		s.addElementTerm(q1(), asym.CoupledQ(set, es, br, types.SideOne, pos))
		s.addElementTerm(p2(), asym.CoupledP(set, es, br, types.SideTwo, pos))
		s.addElementTerm(q2(), asym.CoupledQ(set, es, br, types.SideTwo, pos))
	case br.IsClosed():
		s.addElementTerm(p1(), term.ClosedP1(set, es, br.Num, o))
		s.addElementTerm(q1(), term.ClosedQ1(set, es, br.Num, o))
		s.addElementTerm(p2(), term.ClosedP2(set, es, br.Num, o))
		s.addElementTerm(q2(), term.ClosedQ2(set, es, br.Num, o))
	case br.Connected1:
		s.addElementTerm(p1(), term.OpenP1(set, es, br.Num, o))
		s.addElementTerm(q1(), term.OpenQ1(set, es, br.Num, o))
	case br.Connected2:
		s.addElementTerm(p2(), term.OpenP2(set, es, br.Num, o))
		s.addElementTerm(q2(), term.OpenQ2(set, es, br.Num, o))
	}
	if o.DeriveR1 {
		es.CreateEquation(br.Num, types.BranchTargetRho1).AddTerm(s.variableTerm(br.Num, types.BranchRho1))
	}
	if o.DeriveA1 {
		es.CreateEquation(br.Num, types.BranchTargetAlpha1).AddTerm(s.variableTerm(br.Num, types.BranchAlpha1))
		// 调节有功的方程与母线方程中的项相互独立
		if br.PhaseControl.Side == types.SideOne {
			es.CreateEquation(br.Num, types.BranchTargetP).AddTerm(term.ClosedP1(set, es, br.Num, o)).SetActive(false)
		} else {
			es.CreateEquation(br.Num, types.BranchTargetP).AddTerm(term.ClosedP2(set, es, br.Num, o)).SetActive(false)
		}
	}
}

// createZeroImpedanceBranch 零阻抗支路: 电压相等、相角相等方程和一对虚拟功率变量
// 虚拟功率在首端母线方程中为正,末端为负
func (s *System) createZeroImpedanceBranch(br *network.Branch) {
	if s.Params.Asymmetrical {
		panic(equation.Fatalf(equation.ErrUnsupported, "不平衡计算不支持零阻抗支路 %d", br.Num))
	}
	es := s.Equations
	num := br.Num
	es.CreateEquation(num, types.ZeroV).AddTerms(
		s.variableTerm(br.Bus1, types.BusV),
		equation.MultiplyBy(s.variableTerm(br.Bus2, types.BusV), func() float64 { return -1 / br.R1 }, "-1/ρ1"),
	).SetActive(false)
	es.CreateEquation(num, types.ZeroPhi).AddTerms(
		s.variableTerm(br.Bus1, types.BusPhi),
		equation.Minus(s.variableTerm(br.Bus2, types.BusPhi)),
	).SetActive(false)
	es.CreateEquation(num, types.DummyTargetP).AddTerm(s.variableTerm(num, types.DummyP)).SetActive(false)
	es.CreateEquation(num, types.DummyTargetQ).AddTerm(s.variableTerm(num, types.DummyQ)).SetActive(false)

	s.addElementTerm(es.CreateEquation(br.Bus1, types.BusTargetP), s.variableTerm(num, types.DummyP))
	s.addElementTerm(es.CreateEquation(br.Bus2, types.BusTargetP), equation.Minus(s.variableTerm(num, types.DummyP)))
	s.addElementTerm(es.CreateEquation(br.Bus1, types.BusTargetQ), s.variableTerm(num, types.DummyQ))
	s.addElementTerm(es.CreateEquation(br.Bus2, types.BusTargetQ), equation.Minus(s.variableTerm(num, types.DummyQ)))
}

// shuntControllable 并联补偿电纳可能成为未知量
func (s *System) shuntControllable(sh *network.Shunt) bool {
	return s.Params.ShuntVoltageControl && sh.VoltageControl != nil
}

// createShunt 并联补偿项
func (s *System) createShunt(sh *network.Shunt) {
	es, set := s.Equations, s.Vectors
	deriveB := s.shuntControllable(sh)
	s.addElementTerm(es.CreateEquation(sh.Bus, types.BusTargetP), term.ShuntP(set, es, sh.Num, sh.Bus))
	s.addElementTerm(es.CreateEquation(sh.Bus, types.BusTargetQ), term.ShuntQ(set, es, sh.Num, sh.Bus, deriveB))
	if deriveB {
		es.CreateEquation(sh.Num, types.ShuntTargetB).AddTerm(s.variableTerm(sh.Num, types.ShuntB))
	}
}

// isPhaseLoad 不平衡计算中按分相恒功率处理的负荷
func (s *System) isPhaseLoad(l *network.Load) bool {
	return s.Params.Asymmetrical && l.Phases != nil
}

// createLoad 电压相关负荷项,恒功率部分计入目标值
func (s *System) createLoad(l *network.Load) {
	es, set := s.Equations, s.Vectors
	if s.isPhaseLoad(l) {
		eps := s.Params.PhaseVoltageEpsilon
		s.addElementTerm(es.CreateEquation(l.Bus, types.BusTargetP), asym.LoadP(set, es, l, eps))
		s.addElementTerm(es.CreateEquation(l.Bus, types.BusTargetQ), asym.LoadQ(set, es, l, eps))
		return
	}
	if l.PExponent != 0 {
		s.addElementTerm(es.CreateEquation(l.Bus, types.BusTargetP), term.LoadP(set, es, l.Num, l.Bus))
	}
	if l.QExponent != 0 {
		s.addElementTerm(es.CreateEquation(l.Bus, types.BusTargetQ), term.LoadQ(set, es, l.Num, l.Bus))
	}
}

// createReactivePowerControl 远方无功控制: 被控支路一端无功方程,默认不激活
// 同一支路只接受编号最小的控制发电机
func (s *System) createReactivePowerControl(g *network.Generator) {
	rc := g.ReactivePowerControl
	if !s.Params.ReactivePowerRemoteControl || rc == nil || rc.Branch < 0 || rc.Branch >= len(s.Network.Branches) {
		return
	}
	br := s.Network.Branches[rc.Branch]
	if s.isZeroImpedance(br) || s.isCoupled(br) {
		s.log.WithField("generator", g.Num).Warn("被控支路不支持远方无功控制")
		return
	}
	if _, ok := s.reactive[br.Num]; ok {
		s.log.WithField("generator", g.Num).Warn("支路已有远方无功控制")
		return
	}
	es, set := s.Equations, s.Vectors
	o := s.branchOptions(br)
	var t *term.BranchTerm
	switch {
	case br.IsClosed() && rc.Side == types.SideOne:
		t = term.ClosedQ1(set, es, br.Num, o)
	case br.IsClosed():
		t = term.ClosedQ2(set, es, br.Num, o)
	case br.Connected1 && rc.Side == types.SideOne:
		t = term.OpenQ1(set, es, br.Num, o)
	case br.Connected2 && rc.Side == types.SideTwo:
		t = term.OpenQ2(set, es, br.Num, o)
	default:
		return
	}
	s.reactive[br.Num] = g.Num
	es.CreateEquation(br.Num, types.BranchTargetQ).AddTerm(t).SetActive(false)
}

// createAsymmetric 零序/负序母线电流平衡方程
func (s *System) createAsymmetric() {
	es, set := s.Equations, s.Vectors
	eps := s.Params.PhaseVoltageEpsilon
	for _, seq := range []types.Sequence{types.SequenceZero, types.SequenceNegative} {
		ixType, iyType, _ := types.BusCurrentTypes(seq)
		ix := func(bus int) *equation.Equation { return es.CreateEquation(bus, ixType) }
		iy := func(bus int) *equation.Equation { return es.CreateEquation(bus, iyType) }
		for _, b := range s.Network.Buses {
			ix(b.Num)
			iy(b.Num)
		}
		for _, br := range s.Network.Branches {
			for _, side := range []types.Side{types.SideOne, types.SideTwo} {
				if (side == types.SideOne && !br.Connected1) || (side == types.SideTwo && !br.Connected2) {
					continue
				}
				bus := br.BusNum(side)
				if s.isCoupled(br) {
					s.addElementTerm(ix(bus), asym.CoupledIx(set, es, br, side, seq))
					s.addElementTerm(iy(bus), asym.CoupledIy(set, es, br, side, seq))
				} else {
					s.addElementTerm(ix(bus), asym.DecoupledIx(set, es, br, side, seq))
					s.addElementTerm(iy(bus), asym.DecoupledIy(set, es, br, side, seq))
				}
			}
		}
		for _, sh := range s.Network.Shunts {
			s.addElementTerm(ix(sh.Bus), asym.ShuntIx(set, es, sh, seq))
			s.addElementTerm(iy(sh.Bus), asym.ShuntIy(set, es, sh, seq))
		}
		for _, g := range s.Network.Generators {
			s.addElementTerm(ix(g.Bus), asym.GeneratorIx(set, es, g, seq))
			s.addElementTerm(iy(g.Bus), asym.GeneratorIy(set, es, g, seq))
		}
		for _, l := range s.Network.Loads {
			if l.Phases == nil {
				continue
			}
			s.addElementTerm(ix(l.Bus), asym.LoadIx(set, es, l, seq, eps))
			s.addElementTerm(iy(l.Bus), asym.LoadIy(set, es, l, seq, eps))
		}
	}
}
