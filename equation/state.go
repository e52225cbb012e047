package equation

import (
	"gonum.org/v1/gonum/mat"
)

// StateVector 状态向量,按变量行号保存当前迭代值
type StateVector struct {
	array     []float64
	size      func() int // 激活变量数,取值时按需重建索引
	listeners []StateVectorListener
}

// NewStateVector 创建状态向量
func NewStateVector() *StateVector {
	return &StateVector{}
}

// AddListener 注册状态监听
func (sv *StateVector) AddListener(l StateVectorListener) {
	sv.listeners = append(sv.listeners, l)
}

// Len 长度
func (sv *StateVector) Len() int { return len(sv.array) }

// Get 获取指定行的值
func (sv *StateVector) Get(row int) float64 {
	if row < 0 || row >= len(sv.array) {
		panic(Fatalf(ErrInvariant, "状态向量行号越界: %d/%d", row, len(sv.array)))
	}
	return sv.array[row]
}

// Array 返回底层数组引用,只读
// 索引等待重建时返回的是上次重建后的值,需先调用 Index.Update
func (sv *StateVector) Array() []float64 { return sv.array }

// Set 整体写入并通知监听
// 属于方程组时长度必须等于激活变量数
func (sv *StateVector) Set(values []float64) {
	if sv.size != nil {
		if n := sv.size(); len(values) != n {
			panic(Fatalf(ErrInvariant, "状态值长度 %d 与激活变量数 %d 不一致", len(values), n))
		}
	}
	sv.assign(values)
	sv.notify()
}

// SetValue 写入单个值并通知监听
func (sv *StateVector) SetValue(row int, value float64) {
	if row < 0 || row >= len(sv.array) {
		panic(Fatalf(ErrInvariant, "状态向量行号越界: %d/%d", row, len(sv.array)))
	}
	sv.array[row] = value
	sv.notify()
}

// Minus 牛顿修正 x -= dx 并通知监听
func (sv *StateVector) Minus(dx []float64) {
	if len(dx) != len(sv.array) {
		panic(Fatalf(ErrInvariant, "修正量长度 %d 与状态向量长度 %d 不一致", len(dx), len(sv.array)))
	}
	for i, d := range dx {
		sv.array[i] -= d
	}
	sv.notify()
}

// VecDense 复制为 gonum 向量
func (sv *StateVector) VecDense() *mat.VecDense {
	if len(sv.array) == 0 {
		return &mat.VecDense{}
	}
	return mat.NewVecDense(len(sv.array), append([]float64(nil), sv.array...))
}

// assign 写入但不通知,供索引迁移使用
func (sv *StateVector) assign(values []float64) {
	if cap(sv.array) < len(values) {
		sv.array = make([]float64, len(values))
	}
	sv.array = sv.array[:len(values)]
	copy(sv.array, values)
}

func (sv *StateVector) notify() {
	for _, l := range sv.listeners {
		l.OnStateUpdate()
	}
}
