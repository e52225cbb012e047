package equation

import (
	"github.com/pkg/errors"
)

// 致命错误分类
var (
	ErrUnknownVariable = errors.New("项不依赖该变量")
	ErrNotSquare       = errors.New("方程组不是方阵")
	ErrSingular        = errors.New("数值奇异")
	ErrUnsupported     = errors.New("不支持的配置")
	ErrInvariant       = errors.New("不变量被破坏")
	ErrConfig          = errors.New("网络配置错误")
)

// FatalError 不可恢复的配置/不变量错误
// 在求值热路径中以 panic 形式抛出,由 Catch 在接口边界转换为 error
type FatalError struct {
	err error
}

// Fatalf 构造致命错误
func Fatalf(cause error, format string, args ...any) *FatalError {
	return &FatalError{err: errors.Wrapf(cause, format, args...)}
}

func (e *FatalError) Error() string { return e.err.Error() }

// Unwrap 返回被包装的错误,errors.Is 可匹配分类
func (e *FatalError) Unwrap() error { return e.err }

// Catch 将 FatalError 类型的 panic 转换为返回错误,其它 panic 继续抛出
// 用法: defer equation.Catch(&err)
func Catch(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if fe, ok := r.(*FatalError); ok {
		*err = fe
		return
	}
	panic(r)
}
