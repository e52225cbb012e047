package maths

import (
	"math"
	"math/cmplx"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/mat"
)

// Sq 平方
func Sq[T constraints.Float](x T) T { return x * x }

// Polar 由幅值和相角构造复数
func Polar(magnitude, angle float64) complex128 {
	return cmplx.Rect(magnitude, angle)
}

// fortescueA 旋转因子 a = exp(j·2π/3)
var fortescueA = cmplx.Rect(1, 2*math.Pi/3)

// fortescue 相序变换矩阵,相量 = F × 序量,序量下标为(零序,正序,负序)
var fortescue = mat.NewCDense(3, 3, []complex128{
	1, 1, 1,
	1, fortescueA * fortescueA, fortescueA,
	1, fortescueA, fortescueA * fortescueA,
})

// fortescueInverse 逆变换矩阵,序量 = F⁻¹ × 相量
var fortescueInverse = mat.NewCDense(3, 3, []complex128{
	1.0 / 3, 1.0 / 3, 1.0 / 3,
	1.0 / 3, fortescueA / 3, fortescueA * fortescueA / 3,
	1.0 / 3, fortescueA * fortescueA / 3, fortescueA / 3,
})

// Fortescue 相序变换矩阵元素
func Fortescue(phase, seq int) complex128 {
	return fortescue.At(phase, seq)
}

// FortescueInverse 逆变换矩阵元素
func FortescueInverse(seq, phase int) complex128 {
	return fortescueInverse.At(seq, phase)
}

// ToPhases 序量转相量
func ToPhases(seq [3]complex128) (phases [3]complex128) {
	for p := 0; p < 3; p++ {
		for s := 0; s < 3; s++ {
			phases[p] += fortescue.At(p, s) * seq[s]
		}
	}
	return phases
}

// ToSequences 相量转序量
func ToSequences(phases [3]complex128) (seq [3]complex128) {
	for s := 0; s < 3; s++ {
		for p := 0; p < 3; p++ {
			seq[s] += fortescueInverse.At(s, p) * phases[p]
		}
	}
	return seq
}
