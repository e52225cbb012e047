package maths

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSparseFromTriplets 测试由坐标项构建CSR结构,重复坐标共享位置
func TestSparseFromTriplets(t *testing.T) {
	entries := []Triplet{{1, 1}, {0, 2}, {0, 0}, {1, 1}, {2, 0}}
	m, pos := NewSparse(3, 3, entries)
	require.Equal(t, 4, m.NonZeroCount())
	assert.Equal(t, pos[0], pos[3], "重复坐标应共享位置")

	for i, v := range []float64{1, 2, 3, 4, 5} {
		m.AddAt(pos[i], v)
	}
	assert.Equal(t, 5.0, m.Get(1, 1))
	assert.Equal(t, 2.0, m.Get(0, 2))
	assert.Equal(t, 3.0, m.Get(0, 0))
	assert.Equal(t, 5.0, m.Get(2, 0))
	assert.Equal(t, 0.0, m.Get(2, 2))

	m.Increment(2, 0, 1)
	assert.Equal(t, 6.0, m.Get(2, 0))
	assert.Panics(t, func() { m.Increment(2, 2, 1) })

	y := m.MulVec([]float64{1, 1, 1})
	assert.Equal(t, []float64{5, 5, 6}, y)

	dense := m.ToDense()
	r, c := dense.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 5.0, dense.At(1, 1))

	m.Zero()
	assert.Equal(t, 0.0, m.Get(1, 1))
	assert.Equal(t, 4, m.NonZeroCount())
}

func TestSparseOutOfRange(t *testing.T) {
	assert.Panics(t, func() { NewSparse(2, 2, []Triplet{{2, 0}}) })
}

// TestFortescueRoundTrip 测试相序变换与逆变换互逆
func TestFortescueRoundTrip(t *testing.T) {
	seq := [3]complex128{0.1 + 0.05i, 1.0 - 0.2i, 0.02 + 0.01i}
	back := ToSequences(ToPhases(seq))
	for i := range seq {
		assert.InDelta(t, 0, cmplx.Abs(seq[i]-back[i]), 1e-12)
	}

	// 平衡正序电压只有正序分量
	balanced := [3]complex128{Polar(1, 0), Polar(1, -2.0943951023931953), Polar(1, 2.0943951023931953)}
	s := ToSequences(balanced)
	assert.InDelta(t, 0, cmplx.Abs(s[0]), 1e-12)
	assert.InDelta(t, 1, cmplx.Abs(s[1]), 1e-12)
	assert.InDelta(t, 0, cmplx.Abs(s[2]), 1e-12)
	assert.Equal(t, 4.0, Sq(2.0))
}

func denseSparse(n int, dense []float64) *Sparse {
	var entries []Triplet
	var vals []float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if v := dense[i*n+j]; v != 0 {
				entries = append(entries, Triplet{Row: i, Col: j})
				vals = append(vals, v)
			}
		}
	}
	m, pos := NewSparse(n, n, entries)
	for i, v := range vals {
		m.AddAt(pos[i], v)
	}
	return m
}

// TestLUSolve 测试带主元交换的分解求解
func TestLUSolve(t *testing.T) {
	// 首行主元为零,必须交换
	a := denseSparse(3, []float64{
		0, 3, 1,
		1, 2, 3,
		3, 1, 2,
	})
	var lu LU
	require.NoError(t, lu.Factorize(a))
	assert.Equal(t, 3, lu.Dim())
	want := []float64{1, -2, 0.5}
	b := a.MulVec(want)
	x := make([]float64, 3)
	require.NoError(t, lu.SolveTo(x, b))
	assert.InDeltaSlice(t, want, x, 1e-12)
}

func TestLUSparseFill(t *testing.T) {
	// 箭形矩阵: 首行首列稠密,消元产生填充
	n := 5
	dense := make([]float64, n*n)
	for i := 0; i < n; i++ {
		dense[i] = 1
		dense[i*n] = 1
	}
	for i := 0; i < n; i++ {
		dense[i*n+i] = 4
	}
	a := denseSparse(n, dense)
	var lu LU
	require.NoError(t, lu.Factorize(a))
	assert.GreaterOrEqual(t, lu.NonZeroCount(), a.NonZeroCount())
	want := []float64{1, 2, 3, 4, 5}
	x := make([]float64, n)
	require.NoError(t, lu.SolveTo(x, a.MulVec(want)))
	assert.InDeltaSlice(t, want, x, 1e-12)
}

func TestLUSingular(t *testing.T) {
	a := denseSparse(2, []float64{
		1, 2,
		2, 4,
	})
	var lu LU
	err := lu.Factorize(a)
	assert.ErrorIs(t, err, ErrSingular)

	_, pos := NewSparse(2, 3, nil)
	assert.Empty(t, pos)
	rect, _ := NewSparse(2, 3, nil)
	assert.Error(t, lu.Factorize(rect))
}
