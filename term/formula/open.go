package formula

import (
	"math"
	"math/cmplx"
)

// seriesAdmittance Ys = y·(sin ksi - j·cos ksi)
func seriesAdmittance(b Branch) complex128 {
	sinKsi, cosKsi := math.Sincos(b.Ksi)
	return complex(b.Y*sinKsi, -b.Y*cosKsi)
}

// OpenSide2Admittance 末端断开时首端等值导纳 y1 + Ys·y2/(Ys + y2)
func OpenSide2Admittance(b Branch) complex128 {
	ys := seriesAdmittance(b)
	y2 := complex(b.G2, b.B2)
	if ys+y2 == 0 {
		return complex(b.G1, b.B1)
	}
	return complex(b.G1, b.B1) + ys*y2/(ys+y2)
}

// OpenSide1Admittance 首端断开时末端等值导纳 y2 + Ys·y1/(Ys + y1)
func OpenSide1Admittance(b Branch) complex128 {
	ys := seriesAdmittance(b)
	y1 := complex(b.G1, b.B1)
	if ys+y1 == 0 {
		return complex(b.G2, b.B2)
	}
	return complex(b.G2, b.B2) + ys*y1/(ys+y1)
}

// OpenSide2P1 末端断开时首端有功 (r1·v1)²·Re(yeq)
func OpenSide2P1(b Branch, s State) (float64, Derivatives) {
	g := real(OpenSide2Admittance(b))
	return s.R1 * s.R1 * s.V1 * s.V1 * g, Derivatives{
		V1: 2 * s.R1 * s.R1 * s.V1 * g,
		R1: 2 * s.R1 * s.V1 * s.V1 * g,
	}
}

// OpenSide2Q1 末端断开时首端无功 -(r1·v1)²·Im(yeq)
func OpenSide2Q1(b Branch, s State) (float64, Derivatives) {
	bb := imag(OpenSide2Admittance(b))
	return -s.R1 * s.R1 * s.V1 * s.V1 * bb, Derivatives{
		V1: -2 * s.R1 * s.R1 * s.V1 * bb,
		R1: -2 * s.R1 * s.V1 * s.V1 * bb,
	}
}

// OpenSide2I1 末端断开时首端电流模值 r1²·v1·|yeq|
func OpenSide2I1(b Branch, s State) (float64, Derivatives) {
	y := cmplx.Abs(OpenSide2Admittance(b))
	return s.R1 * s.R1 * s.V1 * y, Derivatives{
		V1: s.R1 * s.R1 * y,
		R1: 2 * s.R1 * s.V1 * y,
	}
}

// OpenSide1P2 首端断开时末端有功 v2²·Re(yeq)
func OpenSide1P2(b Branch, s State) (float64, Derivatives) {
	g := real(OpenSide1Admittance(b))
	return R2 * R2 * s.V2 * s.V2 * g, Derivatives{V2: 2 * R2 * R2 * s.V2 * g}
}

// OpenSide1Q2 首端断开时末端无功 -v2²·Im(yeq)
func OpenSide1Q2(b Branch, s State) (float64, Derivatives) {
	bb := imag(OpenSide1Admittance(b))
	return -R2 * R2 * s.V2 * s.V2 * bb, Derivatives{V2: -2 * R2 * R2 * s.V2 * bb}
}

// OpenSide1I2 首端断开时末端电流模值 v2·|yeq|
func OpenSide1I2(b Branch, s State) (float64, Derivatives) {
	y := cmplx.Abs(OpenSide1Admittance(b))
	return R2 * R2 * s.V2 * y, Derivatives{V2: R2 * R2 * y}
}
