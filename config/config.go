package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DerivativeMode 导数策略
type DerivativeMode string

// 导数策略常量定义
const (
	DerivativeFull          DerivativeMode = "full"           // 完整雅可比
	DerivativeFastDecoupled DerivativeMode = "fast_decoupled" // 快速解耦: P-V 与 Q-φ 交叉项置零
)

// LinearSolver 修正方程求解方式
type LinearSolver string

// 求解方式常量定义
const (
	SolverSparse LinearSolver = "sparse" // 稀疏LU
	SolverDense  LinearSolver = "dense"  // 稠密LU
)

// NewtonParameters 牛顿迭代参数
type NewtonParameters struct {
	MaxIterations int          `yaml:"max_iterations"` // 最大迭代次数
	Tolerance     float64      `yaml:"tolerance"`      // 残差无穷范数收敛容差(标幺)
	LinearSolver  LinearSolver `yaml:"linear_solver"`  // 修正方程求解方式
}

// Parameters 方程系统构建参数
type Parameters struct {
	DerivativeMode             DerivativeMode   `yaml:"derivative_mode"`               // 导数策略
	Asymmetrical               bool             `yaml:"asymmetrical"`                  // 生成零序/负序方程
	LowImpedanceThreshold      float64          `yaml:"low_impedance_threshold"`       // 零阻抗支路判定阈值(标幺)
	PhaseVoltageEpsilon        float64          `yaml:"phase_voltage_epsilon"`         // 相电压奇异判定阈值(幅值平方)
	DistributedSlack           bool             `yaml:"distributed_slack"`             // 多平衡母线分配
	VoltageRemoteControl       bool             `yaml:"voltage_remote_control"`        // 发电机远端电压控制
	TransformerVoltageControl  bool             `yaml:"transformer_voltage_control"`   // 变压器调压
	ShuntVoltageControl        bool             `yaml:"shunt_voltage_control"`         // 并联补偿调压
	PhaseControl               bool             `yaml:"phase_control"`                 // 移相器有功控制
	ReactivePowerRemoteControl bool             `yaml:"reactive_power_remote_control"` // 远端无功控制
	UniformInitialVoltage      bool             `yaml:"uniform_initial_voltage"`       // 平启动
	Newton                     NewtonParameters `yaml:"newton"`                        // 牛顿迭代
}

// Default 默认参数
func Default() *Parameters {
	return &Parameters{
		DerivativeMode:             DerivativeFull,
		LowImpedanceThreshold:      1e-8,
		PhaseVoltageEpsilon:        1e-8,
		DistributedSlack:           true,
		VoltageRemoteControl:       true,
		TransformerVoltageControl:  true,
		ShuntVoltageControl:        true,
		PhaseControl:               true,
		ReactivePowerRemoteControl: true,
		UniformInitialVoltage:      true,
		Newton: NewtonParameters{
			MaxIterations: 15,
			Tolerance:     1e-8,
			LinearSolver:  SolverSparse,
		},
	}
}

// Parse 解析 YAML 参数,未给出的字段保留默认值
func Parse(data []byte) (*Parameters, error) {
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errors.Wrap(err, "解析参数失败")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load 从文件加载参数
func Load(path string) (*Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "读取参数文件 %s 失败", path)
	}
	return Parse(data)
}

// Validate 参数检查
func (p *Parameters) Validate() error {
	switch p.DerivativeMode {
	case DerivativeFull, DerivativeFastDecoupled:
	default:
		return errors.Errorf("未知导数策略: %q", p.DerivativeMode)
	}
	if p.LowImpedanceThreshold < 0 {
		return errors.Errorf("零阻抗阈值不能为负: %g", p.LowImpedanceThreshold)
	}
	if p.PhaseVoltageEpsilon <= 0 {
		return errors.Errorf("相电压奇异阈值必须为正: %g", p.PhaseVoltageEpsilon)
	}
	if p.Newton.MaxIterations <= 0 {
		return errors.Errorf("最大迭代次数必须为正: %d", p.Newton.MaxIterations)
	}
	if p.Newton.Tolerance <= 0 {
		return errors.Errorf("收敛容差必须为正: %g", p.Newton.Tolerance)
	}
	switch p.Newton.LinearSolver {
	case SolverSparse, SolverDense:
	default:
		return errors.Errorf("未知求解方式: %q", p.Newton.LinearSolver)
	}
	return nil
}

// IsFastDecoupled 是否使用快速解耦导数
func (p *Parameters) IsFastDecoupled() bool {
	return p.DerivativeMode == DerivativeFastDecoupled
}
