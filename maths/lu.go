package maths

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Epsilon 主元奇异判定阈值
const Epsilon = 1e-16

// ErrSingular 矩阵奇异或接近奇异
var ErrSingular = errors.New("matrix is singular or nearly singular")

// row 消元过程中的稀疏行
type row map[int]float64

// packed 按列号排序的稀疏行
type packed struct {
	cols []int
	vals []float64
}

func pack(r row) packed {
	cols := maps.Keys(r)
	slices.Sort(cols)
	vals := make([]float64, len(cols))
	for i, c := range cols {
		vals[i] = r[c]
	}
	return packed{cols: cols, vals: vals}
}

// LU 稀疏矩阵LU分解 (PA = LU,部分主元)
// L 为单位下三角(对角线不存储),U 为上三角
type LU struct {
	n    int
	l    []packed
	u    []packed
	diag []float64
	p    []int     // p[i] 分解后第i行对应的原始行
	y    []float64 // 前向替换中间结果
}

// Dim 矩阵维度
func (lu *LU) Dim() int { return lu.n }

// Factorize 分解方阵
// 逐列选取绝对值最大的主元,只对主元行中的非零列做消元
func (lu *LU) Factorize(a *Sparse) error {
	if a.Rows() != a.Cols() {
		return errors.Errorf("lu: 矩阵不是方阵 %dx%d", a.Rows(), a.Cols())
	}
	n := a.Rows()
	lu.n = n
	lu.p = make([]int, n)
	lu.y = make([]float64, n)
	l := make([]row, n)
	u := make([]row, n)
	rowPtr, colInd, values := a.RowPtr(), a.ColInd(), a.Values()
	for i := 0; i < n; i++ {
		lu.p[i] = i
		l[i] = row{}
		u[i] = make(row, rowPtr[i+1]-rowPtr[i])
		for j := rowPtr[i]; j < rowPtr[i+1]; j++ {
			if values[j] != 0 {
				u[i][colInd[j]] += values[j]
			}
		}
	}

	for k := 0; k < n; k++ {
		// 部分主元
		maxRow, maxAbs := k, math.Abs(u[k][k])
		for i := k + 1; i < n; i++ {
			if v := math.Abs(u[i][k]); v > maxAbs {
				maxRow, maxAbs = i, v
			}
		}
		if maxAbs < Epsilon {
			return errors.Wrapf(ErrSingular, "第 %d 列无有效主元", k)
		}
		if maxRow != k {
			// L 中 j>=k 的列尚为零,整行交换即可
			u[k], u[maxRow] = u[maxRow], u[k]
			l[k], l[maxRow] = l[maxRow], l[k]
			lu.p[k], lu.p[maxRow] = lu.p[maxRow], lu.p[k]
		}

		pivot := pack(u[k])
		pivotVal := u[k][k]
		for i := k + 1; i < n; i++ {
			ui := u[i]
			vik, ok := ui[k]
			if !ok {
				continue
			}
			delete(ui, k)
			if math.Abs(vik) < Epsilon {
				continue
			}
			factor := vik / pivotVal
			l[i][k] = factor
			for idx, j := range pivot.cols {
				if j <= k {
					continue
				}
				v := ui[j] - factor*pivot.vals[idx]
				if math.Abs(v) < Epsilon {
					delete(ui, j)
				} else {
					ui[j] = v
				}
			}
		}
	}

	lu.l = make([]packed, n)
	lu.u = make([]packed, n)
	lu.diag = make([]float64, n)
	for i := 0; i < n; i++ {
		lu.diag[i] = u[i][i]
		delete(u[i], i)
		lu.l[i] = pack(l[i])
		lu.u[i] = pack(u[i])
	}
	return nil
}

// SolveTo 利用分解结果求解 Ax=b,结果写入 x
func (lu *LU) SolveTo(x, b []float64) error {
	if len(b) != lu.n || len(x) != lu.n {
		return errors.Errorf("lu: 向量维度 %d/%d 与矩阵维度 %d 不一致", len(b), len(x), lu.n)
	}
	// 前向替换 Ly = Pb
	for i := 0; i < lu.n; i++ {
		sum := b[lu.p[i]]
		li := lu.l[i]
		for idx, j := range li.cols {
			sum -= li.vals[idx] * lu.y[j]
		}
		lu.y[i] = sum
	}
	// 后向替换 Ux = y
	for i := lu.n - 1; i >= 0; i-- {
		sum := lu.y[i]
		if math.Abs(lu.diag[i]) < Epsilon {
			return errors.Wrapf(ErrSingular, "U 第 %d 个对角元为零", i)
		}
		ui := lu.u[i]
		for idx, j := range ui.cols {
			sum -= ui.vals[idx] * x[j]
		}
		x[i] = sum / lu.diag[i]
	}
	return nil
}

// NonZeroCount L 和 U 的非零元素总数(含填充)
func (lu *LU) NonZeroCount() int {
	count := 0
	for i := 0; i < lu.n; i++ {
		count += len(lu.l[i].cols) + len(lu.u[i].cols) + 1
	}
	return count
}
