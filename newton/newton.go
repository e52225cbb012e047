// Package newton 牛顿-拉夫逊潮流迭代
package newton

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"acflow/config"
	"acflow/control"
	"acflow/equation"
	"acflow/maths"
	"acflow/types"
)

// Status 迭代结果
type Status string

// 迭代结果常量定义
const (
	StatusConverged     Status = "CONVERGED"
	StatusMaxIterations Status = "MAX_ITERATIONS"
)

// Iteration 一次迭代的失配量
type Iteration struct {
	Iteration int     // 序号,0为初值
	Norm      float64 // 失配量无穷范数
	Worst     string  // 失配量最大的方程
}

// Observer 迭代观察者
type Observer interface {
	OnIteration(sys *control.System, it Iteration)
}

// Result 求解结果
type Result struct {
	Status     Status
	Iterations int
	Norm       float64
	History    []Iteration
}

// Solver 牛顿迭代
type Solver struct {
	system    *control.System
	params    config.NewtonParameters
	log       logrus.FieldLogger
	eqv       *equation.EquationVector
	jacobian  *equation.JacobianMatrix
	observers []Observer
	mismatch  []float64
}

// Option 求解选项
type Option func(*Solver)

// WithObserver 注册迭代观察者
func WithObserver(o Observer) Option {
	return func(s *Solver) { s.observers = append(s.observers, o) }
}

// WithParameters 覆盖迭代参数
func WithParameters(p config.NewtonParameters) Option {
	return func(s *Solver) { s.params = p }
}

// decoupled 快速解耦: 略去 ∂P/∂v 与 ∂Q/∂φ
func decoupled(eq *equation.Equation, v *equation.Variable) bool {
	switch eq.Type() {
	case types.BusTargetP:
		return v.Type() == types.BusV
	case types.BusTargetQ:
		return v.Type() == types.BusPhi
	}
	return false
}

// New 创建求解器
func New(sys *control.System, opts ...Option) *Solver {
	var jopts []equation.JacobianOption
	if sys.Params.IsFastDecoupled() {
		jopts = append(jopts, equation.WithSkip(decoupled))
	}
	s := &Solver{
		system:   sys,
		params:   sys.Params.Newton,
		log:      sys.Log(),
		eqv:      equation.NewEquationVector(sys.Equations),
		jacobian: equation.NewJacobianMatrix(sys.Equations, jopts...),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve 从当前状态迭代到收敛或达到最大次数
// 每步求解 J·dx = f(x) - target,x -= dx
func (s *Solver) Solve() (res *Result, err error) {
	defer equation.Catch(&err)
	res = &Result{}
	sv := s.system.Equations.StateVector()
	for iter := 0; ; iter++ {
		s.mismatch = equation.Mismatch(s.mismatch, s.eqv, s.system.Targets)
		it := s.iteration(iter)
		res.History = append(res.History, it)
		res.Iterations, res.Norm = iter, it.Norm
		for _, o := range s.observers {
			o.OnIteration(s.system, it)
		}
		s.log.WithFields(logrus.Fields{"iteration": iter, "norm": it.Norm, "worst": it.Worst}).Debug("牛顿迭代")
		if it.Norm < s.params.Tolerance {
			res.Status = StatusConverged
			break
		}
		if iter >= s.params.MaxIterations {
			res.Status = StatusMaxIterations
			break
		}
		dx, err := s.step()
		if err != nil {
			return res, err
		}
		sv.Minus(dx)
	}
	s.log.WithFields(logrus.Fields{
		"status":     res.Status,
		"iterations": res.Iterations,
		"norm":       res.Norm,
	}).Info("潮流计算结束")
	return res, nil
}

// iteration 当前失配量统计
func (s *Solver) iteration(iter int) Iteration {
	it := Iteration{Iteration: iter}
	if len(s.mismatch) == 0 {
		return it
	}
	abs := make([]float64, len(s.mismatch))
	for i, x := range s.mismatch {
		abs[i] = math.Abs(x)
	}
	worst := floats.MaxIdx(abs)
	it.Norm = abs[worst]
	it.Worst = s.system.Equations.Index().EquationAt(worst).Name()
	return it
}

// step 修正量
func (s *Solver) step() ([]float64, error) {
	if s.params.LinearSolver == config.SolverDense {
		return s.denseStep()
	}
	j, err := s.jacobian.Matrix()
	if err != nil {
		return nil, err
	}
	var lu maths.LU
	if err := lu.Factorize(j); err != nil {
		return nil, errors.Wrapf(equation.ErrSingular, "雅可比矩阵奇异: %v", err)
	}
	dx := make([]float64, len(s.mismatch))
	if err := lu.SolveTo(dx, s.mismatch); err != nil {
		return nil, errors.Wrapf(equation.ErrSingular, "雅可比矩阵奇异: %v", err)
	}
	return dx, nil
}

// denseStep 稠密LU求解修正量
func (s *Solver) denseStep() ([]float64, error) {
	j, err := s.jacobian.Dense()
	if err != nil {
		return nil, err
	}
	var lu mat.LU
	lu.Factorize(j)
	n := len(s.mismatch)
	var dx mat.VecDense
	if err := lu.SolveVecTo(&dx, false, mat.NewVecDense(n, append([]float64(nil), s.mismatch...))); err != nil {
		return nil, errors.Wrapf(equation.ErrSingular, "雅可比矩阵奇异: %v", err)
	}
	return dx.RawVector().Data, nil
}

// WriteBack 收敛结果写回母线电压幅值和相角
func WriteBack(sys *control.System) {
	vars := sys.Equations.VariableSet()
	state := sys.Equations.StateVector().Array()
	for _, b := range sys.Network.Buses {
		if row := vars.RowOf(b.Num, types.BusV); row >= 0 {
			b.V = state[row]
		}
		if row := vars.RowOf(b.Num, types.BusPhi); row >= 0 {
			b.Angle = state[row]
		}
	}
}
