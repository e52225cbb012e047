package equation

import (
	"gonum.org/v1/gonum/floats"
)

// EquationVector 方程值向量,按方程行号保存激活项之和
// 索引或状态变化后失效,访问时重新计算
type EquationVector struct {
	system *EquationSystem
	array  []float64
	valid  bool
}

// NewEquationVector 创建方程值向量
func NewEquationVector(system *EquationSystem) *EquationVector {
	v := &EquationVector{system: system}
	system.Index().AddListener(IndexListenerFunc(v.invalidate))
	system.StateVector().AddListener(StateVectorListenerFunc(v.invalidate))
	return v
}

func (v *EquationVector) invalidate() { v.valid = false }

// Array 方程值,项求值出现致命错误时 panic
func (v *EquationVector) Array() []float64 {
	v.system.Index().Update()
	if v.valid {
		return v.array
	}
	eqs := v.system.Index().Equations()
	if cap(v.array) < len(eqs) {
		v.array = make([]float64, len(eqs))
	}
	v.array = v.array[:len(eqs)]
	for row, eq := range eqs {
		v.array[row] = eq.Eval()
	}
	v.valid = true
	return v.array
}

// Compute 计算方程值,致命错误以 error 返回
func (v *EquationVector) Compute() (values []float64, err error) {
	defer Catch(&err)
	return v.Array(), nil
}

// Norm 方程值的二范数
func (v *EquationVector) Norm() float64 {
	a := v.Array()
	if len(a) == 0 {
		return 0
	}
	return floats.Norm(a, 2)
}

// TargetFunc 方程目标值(右端项)
type TargetFunc func(eq *Equation) float64

// TargetVector 目标向量,按方程行号保存目标值
// 索引变化或网络参数修改后失效
type TargetVector struct {
	system *EquationSystem
	target TargetFunc
	array  []float64
	valid  bool
}

// NewTargetVector 创建目标向量
func NewTargetVector(system *EquationSystem, target TargetFunc) *TargetVector {
	v := &TargetVector{system: system, target: target}
	system.Index().AddListener(IndexListenerFunc(v.Invalidate))
	return v
}

// Invalidate 目标值失效,下次访问重新计算
func (v *TargetVector) Invalidate() { v.valid = false }

// Array 目标值
func (v *TargetVector) Array() []float64 {
	v.system.Index().Update()
	if v.valid {
		return v.array
	}
	eqs := v.system.Index().Equations()
	if cap(v.array) < len(eqs) {
		v.array = make([]float64, len(eqs))
	}
	v.array = v.array[:len(eqs)]
	for row, eq := range eqs {
		v.array[row] = v.target(eq)
	}
	v.valid = true
	return v.array
}

// Mismatch 失配量 f(x) - target,写入 dst 并返回
func Mismatch(dst []float64, eqv *EquationVector, target *TargetVector) []float64 {
	values := eqv.Array()
	targets := target.Array()
	if cap(dst) < len(values) {
		dst = make([]float64, len(values))
	}
	dst = dst[:len(values)]
	floats.SubTo(dst, values, targets)
	return dst
}
