// Package acflow 交流潮流计算
package acflow

import (
	"io"
	"math"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"acflow/config"
	"acflow/control"
	"acflow/debug"
	"acflow/equation"
	"acflow/network"
	"acflow/newton"
	"acflow/types"
)

// Session 一次潮流计算会话: 网络、方程组和求解器
// 网络通过 Apply 修改,修改后的控制状态由方程组自动同步,
// 再次调用 Solve 即从当前状态继续迭代。
type Session struct {
	Network *network.Network
	Params  *config.Parameters
	System  *control.System
	Record  *debug.Charts // 最近一次求解的迭代记录

	solver *newton.Solver
	log    logrus.FieldLogger
}

// Option 会话选项
type Option func(*Session)

// WithLogger 指定日志
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) { s.log = log }
}

// NewSession 由网络创建会话
// 参数:
//
//	net: 网络模型。
//	params: 计算参数。
//	opts: 会话选项。
//
// 返回:
//
//	*Session: 已构建方程组的会话,使用完毕调用 Close。
//	error: 方程组构建错误。
func NewSession(net *network.Network, params *config.Parameters, opts ...Option) (*Session, error) {
	s := &Session{
		Network: net,
		Params:  params,
		Record:  &debug.Charts{},
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	sys, err := control.Build(net, params, control.WithLogger(s.log))
	if err != nil {
		return nil, errors.Wrap(err, "构建方程组")
	}
	s.System = sys
	s.solver = newton.New(sys, newton.WithObserver(s.Record))
	return s, nil
}

// Open 读取 CSV 目录创建会话
// 参数:
//
//	dir: 包含母线、支路等 CSV 文件的目录。
//	params: 计算参数。
//	opts: 会话选项。
//
// 返回:
//
//	*Session: 会话。
//	error: 读取或构建错误。
func Open(dir string, params *config.Parameters, opts ...Option) (*Session, error) {
	net, err := network.LoadCSV(dir)
	if err != nil {
		return nil, err
	}
	return NewSession(net, params, opts...)
}

// Solve 从当前状态迭代,收敛后结果写回网络
// 返回:
//
//	*newton.Result: 迭代状态、次数和残差。未收敛不是错误。
//	error: 数值奇异或方程组不变量被破坏。
func (s *Session) Solve() (*newton.Result, error) {
	s.Record.Record = debug.Record{}
	res, err := s.solver.Solve()
	if err != nil {
		return res, err
	}
	if res.Status == newton.StatusConverged {
		newton.WriteBack(s.System)
	} else {
		s.log.WithField("norm", res.Norm).Warn("潮流计算未收敛")
	}
	return res, nil
}

// Apply 修改网络,事件处理中的致命错误以 error 返回
// 参数:
//
//	fn: 对网络的修改,通过元件的 Set 方法触发事件。
//
// 返回:
//
//	error: 事件处理中的致命错误,如合并调压组从属母线的目标被修改。
func (s *Session) Apply(fn func(net *network.Network)) (err error) {
	defer equation.Catch(&err)
	fn(s.Network)
	return nil
}

// Reset 按当前控制状态重置变量初值
func (s *Session) Reset() { s.System.InitState() }

// WriteEquations 输出方程组
func (s *Session) WriteEquations(w io.Writer) error {
	return s.System.Equations.WriteText(w)
}

// BusResult 母线结果
type BusResult struct {
	ID       string  `csv:"id"`
	V        float64 `csv:"v"`
	AngleDeg float64 `csv:"angle_deg"`
	P        float64 `csv:"p"`
	Q        float64 `csv:"q"`
	Mode     string  `csv:"mode"`
}

// Results 母线电压和网络注入功率
func (s *Session) Results() (list []*BusResult, err error) {
	defer equation.Catch(&err)
	list = make([]*BusResult, 0, len(s.Network.Buses))
	for _, b := range s.Network.Buses {
		r := &BusResult{ID: b.ID, V: b.V, AngleDeg: b.Angle * 180 / math.Pi, Mode: "PQ"}
		if b.Disabled {
			r.Mode = "OFF"
		} else {
			r.P = s.injection(b.Num, types.BusTargetP)
			r.Q = s.injection(b.Num, types.BusTargetQ)
			switch {
			case s.isActive(b.Num, types.BusTargetPhi):
				r.Mode = "SLACK"
			case s.isActive(b.Num, types.BusTargetV):
				r.Mode = "PV"
			}
		}
		list = append(list, r)
	}
	return list, nil
}

func (s *Session) isActive(num int, eType types.EquationType) bool {
	eq, ok := s.System.Equations.Equation(num, eType)
	return ok && eq.IsActive()
}

// injection 母线注入功率,即功率方程激活项之和
func (s *Session) injection(num int, eType types.EquationType) float64 {
	eq, ok := s.System.Equations.Equation(num, eType)
	if !ok {
		return 0
	}
	return eq.Eval()
}

// WriteResults 母线结果输出为 CSV
func (s *Session) WriteResults(w io.Writer) error {
	list, err := s.Results()
	if err != nil {
		return err
	}
	return errors.Wrap(gocsv.Marshal(list, w), "输出母线结果")
}

// Close 取消网络事件订阅
func (s *Session) Close() { s.System.Close() }
