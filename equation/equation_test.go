package equation

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acflow/types"
)

// recorder 记录结构变化事件
type recorder struct {
	equations []EquationEventType
	terms     []TermEventType
}

func (r *recorder) OnEquationChange(_ *Equation, event EquationEventType) {
	r.equations = append(r.equations, event)
}

func (r *recorder) OnEquationTermChange(_ *Equation, _ EquationTerm, event TermEventType) {
	r.terms = append(r.terms, event)
}

func newTestSystem() *EquationSystem {
	log, _ := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return NewEquationSystem(WithLogger(log))
}

// TestVariableInterning 测试同一身份返回同一变量
func TestVariableInterning(t *testing.T) {
	set := NewVariableSet()
	v1 := set.GetOrCreate(3, types.BusV)
	v2 := set.GetOrCreate(3, types.BusV)
	assert.Same(t, v1, v2)
	assert.NotSame(t, v1, set.GetOrCreate(3, types.BusPhi))
	assert.Equal(t, 2, set.Len())

	_, ok := set.Lookup(4, types.BusV)
	assert.False(t, ok, "从未创建的变量应返回不存在")

	v, ok := set.Lookup(3, types.BusV)
	require.True(t, ok)
	assert.False(t, v.IsActive(), "存在但未激活")
	assert.Equal(t, -1, set.RowOf(3, types.BusV))
	assert.Equal(t, -1, set.RowOf(4, types.BusV))
}

// TestCreateEquationIdempotent 测试重复创建返回已有方程
func TestCreateEquationIdempotent(t *testing.T) {
	s := newTestSystem()
	rec := &recorder{}
	s.AddListener(rec)
	eq := s.CreateEquation(1, types.BusTargetP)
	assert.Same(t, eq, s.CreateEquation(1, types.BusTargetP))
	assert.Equal(t, []EquationEventType{EquationCreated}, rec.equations)
	assert.True(t, s.HasEquation(1, types.BusTargetP))
	assert.False(t, s.HasEquation(1, types.BusTargetQ))

	removed := s.RemoveEquation(1, types.BusTargetP)
	assert.Same(t, eq, removed)
	assert.False(t, eq.IsActive())
	assert.Nil(t, eq.System())
	assert.Nil(t, s.RemoveEquation(1, types.BusTargetP))
	assert.Equal(t, []EquationEventType{EquationCreated, EquationRemoved}, rec.equations)
}

// TestSetActiveIdempotent 测试激活状态不变时不通知
func TestSetActiveIdempotent(t *testing.T) {
	s := newTestSystem()
	rec := &recorder{}
	s.AddListener(rec)
	eq := s.CreateEquation(1, types.BusTargetV)
	term := NewVariableTerm(s.StateVector(), s.Variable(1, types.BusV))
	eq.AddTerm(term)

	eq.SetActive(true)
	eq.SetActive(false)
	eq.SetActive(false)
	eq.SetActive(true)
	assert.Equal(t, []EquationEventType{EquationCreated, EquationDeactivated, EquationActivated}, rec.equations)

	term.SetActive(true)
	term.SetActive(false)
	term.SetActive(false)
	assert.Equal(t, []TermEventType{TermAdded, TermDeactivated}, rec.terms)
}

// TestTermOwnedOnce 测试项不能属于两个方程
func TestTermOwnedOnce(t *testing.T) {
	s := newTestSystem()
	term := NewVariableTerm(s.StateVector(), s.Variable(1, types.BusV))
	s.CreateEquation(1, types.BusTargetV).AddTerm(term)
	assert.Panics(t, func() { s.CreateEquation(1, types.BusTargetQ).AddTerm(term) })
}

// TestUnknownVariable 测试对非依赖变量求导为致命错误
func TestUnknownVariable(t *testing.T) {
	s := newTestSystem()
	term := NewVariableTerm(s.StateVector(), s.Variable(1, types.BusV))
	other := s.Variable(1, types.BusPhi)

	der := func() (err error) {
		defer Catch(&err)
		term.Der(other)
		return nil
	}
	err := der()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownVariable))

	// 非 FatalError 的 panic 不被吞掉
	assert.Panics(t, func() {
		var err error
		defer Catch(&err)
		panic("boom")
	})
}

// TestMultiplyDynamicSupplier 测试动态系数每次求值时重新计算
func TestMultiplyDynamicSupplier(t *testing.T) {
	s := newTestSystem()
	v := s.Variable(1, types.BusV)
	eq := s.CreateEquation(1, types.BusTargetV)
	count := 3.0
	term := MultiplyBy(NewVariableTerm(s.StateVector(), v), func() float64 { return 1 / count }, "1/n")
	eq.AddTerm(term)
	s.Index().Update()
	s.StateVector().Set([]float64{2})

	assert.InDelta(t, 2.0/3, eq.Eval(), 1e-15)
	assert.InDelta(t, 1.0/3, eq.Der(v), 1e-15)
	count = 2
	assert.InDelta(t, 1.0, eq.Eval(), 1e-15)
	assert.InDelta(t, 0.5, eq.Der(v), 1e-15)

	neg := Minus(NewVariableTerm(s.StateVector(), v))
	assert.Equal(t, -2.0, neg.Eval())
	assert.Equal(t, -1.0, neg.Der(v))
	assert.Equal(t, 6.0, Multiply(NewVariableTerm(s.StateVector(), v), 3).Eval())
	assert.Equal(t, 0.0, eq.Der(s.Variable(9, types.BusV)), "方程对无关变量导数为零")
}

// buildSmallSystem P(1) = 2*V1 + phi1, Q(1) = V1, V(2) = V2
func buildSmallSystem(s *EquationSystem) {
	sv := s.StateVector()
	v1 := s.Variable(1, types.BusV)
	phi1 := s.Variable(1, types.BusPhi)
	v2 := s.Variable(2, types.BusV)
	// 创建顺序与行号顺序无关
	s.CreateEquation(2, types.BusTargetV).AddTerm(NewVariableTerm(sv, v2))
	s.CreateEquation(1, types.BusTargetQ).AddTerm(NewVariableTerm(sv, v1))
	s.CreateEquation(1, types.BusTargetP).AddTerms(
		Multiply(NewVariableTerm(sv, v1), 2),
		NewVariableTerm(sv, phi1),
	)
}

// TestIndexDeterministic 测试行号按(元件,编号,类型)排序且可复现
func TestIndexDeterministic(t *testing.T) {
	rows := func() []string {
		s := newTestSystem()
		buildSmallSystem(s)
		var names []string
		for _, eq := range s.Index().Equations() {
			names = append(names, eq.Name())
		}
		for _, v := range s.Index().Variables() {
			names = append(names, v.String())
		}
		return names
	}
	first := rows()
	assert.Equal(t, first, rows())

	s := newTestSystem()
	buildSmallSystem(s)
	idx := s.Index()
	assert.Equal(t, 3, idx.RowCount())
	assert.Equal(t, 3, idx.ColumnCount())
	assert.Equal(t, types.BusTargetP, idx.EquationAt(0).Type())
	assert.Equal(t, types.BusTargetQ, idx.EquationAt(1).Type())
	assert.Equal(t, 2, idx.EquationAt(2).Num())
	assert.Equal(t, types.BusV, idx.VariableAt(0).Type())
	assert.Equal(t, types.BusPhi, idx.VariableAt(1).Type())
	assert.Equal(t, 2, idx.VariableAt(2).Num())
	assert.Panics(t, func() { idx.EquationAt(3) })
}

// TestIndexStateMigration 测试重建后状态值随变量迁移
func TestIndexStateMigration(t *testing.T) {
	s := newTestSystem()
	buildSmallSystem(s)
	idx := s.Index()
	idx.Update()
	// 初始值: 电压幅值为1,相角为0
	assert.Equal(t, []float64{1, 0, 1}, s.StateVector().Array())
	s.StateVector().Set([]float64{1.05, 0.1, 0.98})

	var order []string
	idx.AddListener(IndexListenerFunc(func() { order = append(order, "index") }))
	s.StateVector().AddListener(StateVectorListenerFunc(func() { order = append(order, "state") }))

	// 停用 P(1) 后 phi1 不再被引用
	eq, ok := s.Equation(1, types.BusTargetP)
	require.True(t, ok)
	eq.SetActive(false)
	assert.True(t, idx.IsDirty())
	assert.Equal(t, 2, idx.ColumnCount())
	assert.Equal(t, []string{"index", "state"}, order)
	assert.Equal(t, []float64{1.05, 0.98}, s.StateVector().Array())
	phi1, _ := s.VariableSet().Lookup(1, types.BusPhi)
	assert.False(t, phi1.IsActive())
	assert.Equal(t, -1, eq.Row())

	// 重新激活,phi1 按默认值初始化
	eq.SetActive(true)
	assert.True(t, idx.IsDirty())
	assert.Equal(t, -1, eq.Row(), "重建前行号不变")
	assert.Equal(t, 3, idx.ColumnCount())
	assert.Equal(t, []float64{1.05, 0, 0.98}, s.StateVector().Array())
	assert.Equal(t, 0, eq.Row())
}

// TestInitializer 测试自定义初始值
func TestInitializer(t *testing.T) {
	s := NewEquationSystem(WithInitializer(func(v *Variable) float64 { return float64(v.Num()) * 10 }))
	buildSmallSystem(s)
	s.Index().Update()
	assert.Equal(t, []float64{10, 10, 20}, s.StateVector().Array())
}

// TestStateVectorSetLength 测试整体写入长度必须等于激活变量数
func TestStateVectorSetLength(t *testing.T) {
	s := newTestSystem()
	buildSmallSystem(s)
	set := func(values []float64) (err error) {
		defer Catch(&err)
		s.StateVector().Set(values)
		return nil
	}
	// 索引未重建时按激活变量数校验
	assert.True(t, s.Index().IsDirty())
	require.NoError(t, set([]float64{1.1, 0.1, 0.9}))
	assert.Equal(t, []float64{1.1, 0.1, 0.9}, s.StateVector().Array())

	err := set([]float64{1, 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariant))
	assert.Equal(t, []float64{1.1, 0.1, 0.9}, s.StateVector().Array(), "失败时不修改")
}

// TestEquationVariablesCache 依赖变量按结构版本缓存
func TestEquationVariablesCache(t *testing.T) {
	s := newTestSystem()
	buildSmallSystem(s)
	eq, ok := s.Equation(1, types.BusTargetP)
	require.True(t, ok)
	require.Len(t, eq.Variables(), 2)
	assert.Zero(t, testing.AllocsPerRun(10, func() { eq.Variables() }))

	phi := eq.Terms()[1]
	phi.SetActive(false)
	assert.Len(t, eq.Variables(), 1)
	phi.SetActive(true)
	assert.Len(t, eq.Variables(), 2)

	v3 := s.Variable(3, types.BusV)
	eq.AddTerm(NewVariableTerm(s.StateVector(), v3))
	assert.Equal(t, v3, eq.Variables()[2])

	removed := s.RemoveEquation(1, types.BusTargetP)
	assert.Len(t, removed.Variables(), 3, "移除后不缓存但仍可查询")
}

// TestEquationVectorAndJacobian 测试方程值向量与雅可比矩阵
func TestEquationVectorAndJacobian(t *testing.T) {
	s := newTestSystem()
	buildSmallSystem(s)
	eqv := NewEquationVector(s)
	target := NewTargetVector(s, func(eq *Equation) float64 {
		if eq.Type() == types.BusTargetV {
			return 1
		}
		return 0
	})
	jac := NewJacobianMatrix(s)
	s.Index().Update()
	s.StateVector().Set([]float64{1.1, 0.2, 0.9})

	values, err := eqv.Compute()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2.4, 1.1, 0.9}, values, 1e-12)
	assert.InDeltaSlice(t, []float64{2.4, 1.1, -0.1}, Mismatch(nil, eqv, target), 1e-12)

	m, err := jac.Matrix()
	require.NoError(t, err)
	assert.Equal(t, 4, m.NonZeroCount())
	assert.Equal(t, 2.0, m.Get(0, 0))
	assert.Equal(t, 1.0, m.Get(0, 1))
	assert.Equal(t, 1.0, m.Get(1, 0))
	assert.Equal(t, 0.0, m.Get(1, 1))
	assert.Equal(t, 1.0, m.Get(2, 2))

	// 状态变化后方程值刷新
	s.StateVector().SetValue(0, 2)
	assert.InDelta(t, 4.2, eqv.Array()[0], 1e-12)

	// 结构变化后雅可比重建
	eq, _ := s.Equation(1, types.BusTargetQ)
	eq.SetActive(false)
	dense, err := jac.Dense()
	require.NoError(t, err)
	r, c := dense.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
}

// TestWriteText 测试诊断输出
func TestWriteText(t *testing.T) {
	s := newTestSystem()
	buildSmallSystem(s)
	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf))
	assert.Contains(t, buf.String(), "方程 3 变量 3")
	assert.Contains(t, buf.String(), "BUS_V(2)")
}
