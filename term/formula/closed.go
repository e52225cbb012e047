// Package formula 支路π模型潮流公式及全部偏导数
// 末端变比固定为 R2=1, A2=0
package formula

import (
	"math"
)

// 末端变比与移相角
const (
	R2 = 1.0
	A2 = 0.0
)

// Branch 支路常量参数
type Branch struct {
	Y   float64 // 串联导纳模值
	Ksi float64 // atan2(r, x)
	G1  float64
	B1  float64
	G2  float64
	B2  float64
}

// State 支路两端状态及首端变比
type State struct {
	V1, Ph1 float64
	V2, Ph2 float64
	R1, A1  float64
}

// Derivatives 对六个量的偏导数
type Derivatives struct {
	V1, Ph1 float64
	V2, Ph2 float64
	R1, A1  float64
}

// Scale 数乘
func (d Derivatives) Scale(k float64) Derivatives {
	return Derivatives{V1: d.V1 * k, Ph1: d.Ph1 * k, V2: d.V2 * k, Ph2: d.Ph2 * k, R1: d.R1 * k, A1: d.A1 * k}
}

// Theta1 首端功率角 ksi - a1 + A2 - ph1 + ph2
func Theta1(b Branch, s State) float64 { return b.Ksi - s.A1 + A2 - s.Ph1 + s.Ph2 }

// Theta2 末端功率角 ksi + a1 - A2 + ph1 - ph2
func Theta2(b Branch, s State) float64 { return b.Ksi + s.A1 - A2 + s.Ph1 - s.Ph2 }

// ClosedP1 首端有功
func ClosedP1(b Branch, s State) (float64, Derivatives) {
	sinKsi := math.Sin(b.Ksi)
	sinT, cosT := math.Sincos(Theta1(b, s))
	r1, v1, v2, y := s.R1, s.V1, s.V2, b.Y
	cross := y * r1 * R2 * v1 * v2
	value := r1 * v1 * (b.G1*r1*v1 + y*r1*v1*sinKsi - y*R2*v2*sinT)
	return value, Derivatives{
		V1:  2*b.G1*r1*r1*v1 + 2*y*r1*r1*v1*sinKsi - y*r1*R2*v2*sinT,
		V2:  -y * r1 * R2 * v1 * sinT,
		Ph1: cross * cosT,
		Ph2: -cross * cosT,
		A1:  cross * cosT,
		R1:  2*b.G1*r1*v1*v1 + 2*y*r1*v1*v1*sinKsi - y*R2*v1*v2*sinT,
	}
}

// ClosedQ1 首端无功
func ClosedQ1(b Branch, s State) (float64, Derivatives) {
	cosKsi := math.Cos(b.Ksi)
	sinT, cosT := math.Sincos(Theta1(b, s))
	r1, v1, v2, y := s.R1, s.V1, s.V2, b.Y
	cross := y * r1 * R2 * v1 * v2
	value := r1 * v1 * (-b.B1*r1*v1 + y*r1*v1*cosKsi - y*R2*v2*cosT)
	return value, Derivatives{
		V1:  -2*b.B1*r1*r1*v1 + 2*y*r1*r1*v1*cosKsi - y*r1*R2*v2*cosT,
		V2:  -y * r1 * R2 * v1 * cosT,
		Ph1: -cross * sinT,
		Ph2: cross * sinT,
		A1:  -cross * sinT,
		R1:  -2*b.B1*r1*v1*v1 + 2*y*r1*v1*v1*cosKsi - y*R2*v1*v2*cosT,
	}
}

// ClosedP2 末端有功
func ClosedP2(b Branch, s State) (float64, Derivatives) {
	sinKsi := math.Sin(b.Ksi)
	sinT, cosT := math.Sincos(Theta2(b, s))
	r1, v1, v2, y := s.R1, s.V1, s.V2, b.Y
	cross := y * r1 * R2 * v1 * v2
	value := R2 * v2 * (b.G2*R2*v2 - y*r1*v1*sinT + y*R2*v2*sinKsi)
	return value, Derivatives{
		V1:  -y * r1 * R2 * v2 * sinT,
		V2:  2*b.G2*R2*R2*v2 - y*r1*R2*v1*sinT + 2*y*R2*R2*v2*sinKsi,
		Ph1: -cross * cosT,
		Ph2: cross * cosT,
		A1:  -cross * cosT,
		R1:  -y * R2 * v1 * v2 * sinT,
	}
}

// ClosedQ2 末端无功
func ClosedQ2(b Branch, s State) (float64, Derivatives) {
	cosKsi := math.Cos(b.Ksi)
	sinT, cosT := math.Sincos(Theta2(b, s))
	r1, v1, v2, y := s.R1, s.V1, s.V2, b.Y
	cross := y * r1 * R2 * v1 * v2
	value := R2 * v2 * (-b.B2*R2*v2 - y*r1*v1*cosT + y*R2*v2*cosKsi)
	return value, Derivatives{
		V1:  -y * r1 * R2 * v2 * cosT,
		V2:  -2*b.B2*R2*R2*v2 - y*r1*R2*v1*cosT + 2*y*R2*R2*v2*cosKsi,
		Ph1: cross * sinT,
		Ph2: -cross * sinT,
		A1:  cross * sinT,
		R1:  -y * R2 * v1 * v2 * cosT,
	}
}

// magnitude 电流模值及其对实部虚部的链式求导,模值为零时导数取零
func magnitude(re, im float64, dre, dim Derivatives) (float64, Derivatives) {
	m := math.Hypot(re, im)
	if m == 0 {
		return 0, Derivatives{}
	}
	return m, Derivatives{
		V1:  (re*dre.V1 + im*dim.V1) / m,
		Ph1: (re*dre.Ph1 + im*dim.Ph1) / m,
		V2:  (re*dre.V2 + im*dim.V2) / m,
		Ph2: (re*dre.Ph2 + im*dim.Ph2) / m,
		R1:  (re*dre.R1 + im*dim.R1) / m,
		A1:  (re*dre.A1 + im*dim.A1) / m,
	}
}

// ClosedI1 首端电流模值 |I1| = r1·|(y1+Ys)·V1' - Ys·V2|, V1' = r1·e^{ja1}·V1
func ClosedI1(b Branch, s State) (float64, Derivatives) {
	sinKsi, cosKsi := math.Sincos(b.Ksi)
	ar, ai := b.G1+b.Y*sinKsi, b.B1-b.Y*cosKsi // y1 + Ys
	yr, yi := b.Y*sinKsi, -b.Y*cosKsi          // Ys
	w1 := s.Ph1 + s.A1
	sinW, cosW := math.Sincos(w1)
	sinP2, cosP2 := math.Sincos(s.Ph2)
	r1, v1, v2 := s.R1, s.V1, s.V2

	aRe, aIm := ar*cosW-ai*sinW, ar*sinW+ai*cosW     // (y1+Ys)·e^{jw1}
	yRe, yIm := yr*cosP2-yi*sinP2, yr*sinP2+yi*cosP2 // Ys·e^{jph2}
	re := r1*v1*aRe - v2*yRe
	im := r1*v1*aIm - v2*yIm
	dre := Derivatives{
		V1: r1 * aRe, Ph1: -r1 * v1 * aIm, A1: -r1 * v1 * aIm,
		V2: -yRe, Ph2: v2 * yIm,
		R1: v1 * aRe,
	}
	dim := Derivatives{
		V1: r1 * aIm, Ph1: r1 * v1 * aRe, A1: r1 * v1 * aRe,
		V2: -yIm, Ph2: -v2 * yRe,
		R1: v1 * aIm,
	}
	m, dm := magnitude(re, im, dre, dim)
	d := dm.Scale(r1)
	d.R1 += m
	return r1 * m, d
}

// ClosedI2 末端电流模值 |I2| = |(y2+Ys)·V2 - Ys·V1'|
func ClosedI2(b Branch, s State) (float64, Derivatives) {
	sinKsi, cosKsi := math.Sincos(b.Ksi)
	br, bi := b.G2+b.Y*sinKsi, b.B2-b.Y*cosKsi // y2 + Ys
	yr, yi := b.Y*sinKsi, -b.Y*cosKsi
	w1 := s.Ph1 + s.A1
	sinW, cosW := math.Sincos(w1)
	sinP2, cosP2 := math.Sincos(s.Ph2)
	r1, v1, v2 := s.R1, s.V1, s.V2

	bRe, bIm := br*cosP2-bi*sinP2, br*sinP2+bi*cosP2 // (y2+Ys)·e^{jph2}
	yRe, yIm := yr*cosW-yi*sinW, yr*sinW+yi*cosW     // Ys·e^{jw1}
	re := v2*bRe - r1*v1*yRe
	im := v2*bIm - r1*v1*yIm
	dre := Derivatives{
		V2: bRe, Ph2: -v2 * bIm,
		V1: -r1 * yRe, Ph1: r1 * v1 * yIm, A1: r1 * v1 * yIm,
		R1: -v1 * yRe,
	}
	dim := Derivatives{
		V2: bIm, Ph2: v2 * bRe,
		V1: -r1 * yIm, Ph1: -r1 * v1 * yRe, A1: -r1 * v1 * yRe,
		R1: -v1 * yIm,
	}
	return magnitude(re, im, dre, dim)
}
