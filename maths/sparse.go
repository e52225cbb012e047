package maths

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
)

// Triplet 稀疏矩阵坐标项
type Triplet struct {
	Row, Col int
}

// Sparse 稀疏矩阵
// 使用CSR (Compressed Sparse Row) 格式存储,结构在构建后固定,仅数值可变
type Sparse struct {
	rows, cols int
	rowPtr     []int     // 行指针数组
	colInd     []int     // 列索引数组
	values     []float64 // 非零元素值
}

// NewSparse 由坐标项构建稀疏结构
// 返回矩阵以及每个坐标项在值数组中的位置,重复坐标共享同一位置
func NewSparse(rows, cols int, entries []Triplet) (*Sparse, []int) {
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	// 按行列排序,相同坐标保持输入顺序
	slices.SortStableFunc(order, func(a, b int) int {
		ea, eb := entries[a], entries[b]
		if ea.Row != eb.Row {
			return ea.Row - eb.Row
		}
		return ea.Col - eb.Col
	})
	m := &Sparse{
		rows:   rows,
		cols:   cols,
		rowPtr: make([]int, rows+1), // 多一个元素用于存储结束位置
		colInd: make([]int, 0, len(entries)),
	}
	positions := make([]int, len(entries))
	last := Triplet{Row: -1, Col: -1}
	for _, i := range order {
		e := entries[i]
		if e.Row < 0 || e.Row >= rows || e.Col < 0 || e.Col >= cols {
			panic(fmt.Errorf("稀疏坐标越界: (%d,%d) 超出 %dx%d", e.Row, e.Col, rows, cols))
		}
		if e != last {
			m.colInd = append(m.colInd, e.Col)
			m.rowPtr[e.Row+1]++
			last = e
		}
		positions[i] = len(m.colInd) - 1
	}
	for r := 0; r < rows; r++ {
		m.rowPtr[r+1] += m.rowPtr[r]
	}
	m.values = make([]float64, len(m.colInd))
	return m, positions
}

// Rows 返回行数
func (m *Sparse) Rows() int { return m.rows }

// Cols 返回列数
func (m *Sparse) Cols() int { return m.cols }

// NonZeroCount 返回结构非零元素数量
func (m *Sparse) NonZeroCount() int { return len(m.values) }

// Values 返回值数组引用(直接操作底层数据)
func (m *Sparse) Values() []float64 { return m.values }

// RowPtr 返回行指针数组引用
func (m *Sparse) RowPtr() []int { return m.rowPtr }

// ColInd 返回列索引数组引用
func (m *Sparse) ColInd() []int { return m.colInd }

// Zero 将所有值清零,结构保持不变
func (m *Sparse) Zero() {
	clear(m.values)
}

// AddAt 在值数组指定位置累加
func (m *Sparse) AddAt(pos int, value float64) {
	m.values[pos] += value
}

// find 查找(row,col)在值数组中的位置
func (m *Sparse) find(row, col int) (int, bool) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic("index out of range")
	}
	start, end := m.rowPtr[row], m.rowPtr[row+1]
	// 二分查找列索引
	pos := sort.Search(end-start, func(i int) bool {
		return m.colInd[start+i] >= col
	}) + start
	return pos, pos < end && m.colInd[pos] == col
}

// Get 获取矩阵元素,结构零返回0
func (m *Sparse) Get(row, col int) float64 {
	if pos, ok := m.find(row, col); ok {
		return m.values[pos]
	}
	return 0
}

// Increment 增量设置矩阵元素,坐标必须属于已有结构
func (m *Sparse) Increment(row, col int, value float64) {
	pos, ok := m.find(row, col)
	if !ok {
		panic(fmt.Errorf("稀疏结构中不存在元素 (%d,%d)", row, col))
	}
	m.values[pos] += value
}

// MulVec 矩阵向量乘法,返回 A*x
func (m *Sparse) MulVec(x []float64) []float64 {
	if len(x) != m.cols {
		panic("vector dimension mismatch")
	}
	result := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := m.rowPtr[i]; j < m.rowPtr[i+1]; j++ {
			result[i] += m.values[j] * x[m.colInd[j]]
		}
	}
	return result
}

// ToDense 转换为 gonum 稠密矩阵
func (m *Sparse) ToDense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return &mat.Dense{}
	}
	dense := mat.NewDense(m.rows, m.cols, nil)
	for i := 0; i < m.rows; i++ {
		for j := m.rowPtr[i]; j < m.rowPtr[i+1]; j++ {
			dense.Set(i, m.colInd[j], dense.At(i, m.colInd[j])+m.values[j])
		}
	}
	return dense
}

// String 字符串表示
func (m *Sparse) String() string {
	var b strings.Builder
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			fmt.Fprintf(&b, "%10.4f ", m.Get(i, j))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
