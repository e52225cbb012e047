package equation

import (
	"gonum.org/v1/gonum/mat"

	"acflow/maths"
)

// jacobianSlot 一个项对一个变量的偏导数在稀疏值数组中的位置
type jacobianSlot struct {
	term     EquationTerm
	variable *Variable
	pos      int
}

// JacobianMatrix 雅可比矩阵
// 索引变化时重建稀疏结构,状态变化时只刷新数值
type JacobianMatrix struct {
	system      *EquationSystem
	matrix      *maths.Sparse
	slots       []jacobianSlot
	skip        func(eq *Equation, v *Variable) bool
	structValid bool
	valueValid  bool
}

// JacobianOption 雅可比矩阵选项
type JacobianOption func(*JacobianMatrix)

// WithSkip 结构中略去 skip 返回 true 的方程/变量对,用于解耦近似
func WithSkip(skip func(eq *Equation, v *Variable) bool) JacobianOption {
	return func(j *JacobianMatrix) { j.skip = skip }
}

// NewJacobianMatrix 创建雅可比矩阵
func NewJacobianMatrix(system *EquationSystem, opts ...JacobianOption) *JacobianMatrix {
	j := &JacobianMatrix{system: system}
	for _, opt := range opts {
		opt(j)
	}
	system.Index().AddListener(IndexListenerFunc(func() {
		j.structValid = false
		j.valueValid = false
	}))
	system.StateVector().AddListener(StateVectorListenerFunc(func() {
		j.valueValid = false
	}))
	return j
}

// Matrix 返回当前雅可比矩阵,致命错误以 error 返回
func (j *JacobianMatrix) Matrix() (m *maths.Sparse, err error) {
	defer Catch(&err)
	j.system.Index().Update()
	if !j.structValid {
		j.buildStructure()
	}
	if !j.valueValid {
		j.updateValues()
	}
	return j.matrix, nil
}

// Dense 稠密形式
func (j *JacobianMatrix) Dense() (*mat.Dense, error) {
	m, err := j.Matrix()
	if err != nil {
		return nil, err
	}
	return m.ToDense(), nil
}

func (j *JacobianMatrix) buildStructure() {
	idx := j.system.Index()
	j.slots = j.slots[:0]
	var entries []maths.Triplet
	for row, eq := range idx.Equations() {
		for _, t := range eq.terms {
			if !t.IsActive() {
				continue
			}
			for _, v := range t.Variables() {
				if v.row < 0 || (j.skip != nil && j.skip(eq, v)) {
					continue
				}
				entries = append(entries, maths.Triplet{Row: row, Col: v.row})
				j.slots = append(j.slots, jacobianSlot{term: t, variable: v})
			}
		}
	}
	var positions []int
	j.matrix, positions = maths.NewSparse(idx.RowCount(), idx.ColumnCount(), entries)
	for i := range j.slots {
		j.slots[i].pos = positions[i]
	}
	j.structValid = true
	j.system.log.WithField("nonZero", j.matrix.NonZeroCount()).Debug("雅可比矩阵结构重建")
}

func (j *JacobianMatrix) updateValues() {
	j.matrix.Zero()
	for _, s := range j.slots {
		j.matrix.AddAt(s.pos, s.term.Der(s.variable))
	}
	j.valueValid = true
}
