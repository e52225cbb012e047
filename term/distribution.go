package term

import (
	"fmt"

	"acflow/equation"
	"acflow/types"
)

// Shares 当前分配系数(已归一化),每次求值时调用
type Shares func() []float64

// NormalizedShares 按权重归一化的分配系数,权重在每次求值时重新读取
func NormalizedShares(weights func() []float64) Shares {
	return func() []float64 {
		w := weights()
		sum := 0.0
		for _, x := range w {
			sum += x
		}
		out := make([]float64, len(w))
		for i, x := range w {
			if sum != 0 {
				out[i] = x / sum
			} else {
				out[i] = 1 / float64(len(w))
			}
		}
		return out
	}
}

// Coefficient 第 j 个控制器在第 i 个分配方程中的系数 share_j - δij
func Coefficient(shares Shares, i, j int) func() float64 {
	return func() float64 {
		c := shares()[j]
		if i == j {
			c--
		}
		return c
	}
}

// Distribution 分配方程项 Σ_j (share_j - δij)·x_j
// build 为每个控制器创建一组新的项实例
func Distribution(element types.ElementType, num, i int, shares Shares, count int,
	build func(j int) []equation.EquationTerm) equation.EquationTerm {
	terms := make([]equation.EquationTerm, 0, count)
	for j := 0; j < count; j++ {
		x := equation.Sum(element, num, build(j)...)
		label := fmt.Sprintf("k%d,%d", i, j)
		terms = append(terms, equation.MultiplyBy(x, Coefficient(shares, i, j), label))
	}
	return equation.Sum(element, num, terms...)
}

// injectionTerm 方程全部激活项之和,方程本身可以未激活
type injectionTerm struct {
	equation.TermBase
	eq *equation.Equation
}

// Injection 以方程的激活项之和作为一个项,用于在分配方程中引用其它母线的注入
func Injection(eq *equation.Equation) equation.EquationTerm {
	return &injectionTerm{TermBase: equation.NewTermBase(eq.ElementType(), eq.Num()), eq: eq}
}

func (t *injectionTerm) Variables() []*equation.Variable { return t.eq.Variables() }

func (t *injectionTerm) Eval() float64 { return t.eq.Eval() }

func (t *injectionTerm) Der(v *equation.Variable) float64 { return t.eq.Der(v) }

func (t *injectionTerm) String() string { return "Σ" + t.eq.Name() }
