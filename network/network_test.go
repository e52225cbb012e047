package network

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acflow/types"
)

const testBuses = `id,nominal_v,v,angle_deg,slack,reference
b0,225,1.02,0,true,
b1,225,1,-5,,
b2,225,1,0,,
`

const testBranches = `id,bus1,bus2,r,x,g1,b1,g2,b2,r1,a1_deg,open_side,phase_control,phase_target_p,control_bus,target_v
l01,b0,b1,0.01,0.1,0,0.05,0,0.05,,,,,,,
t12,b1,b2,0,0.05,0,0,0,0,0.98,30,,active_power,0.5,b2,1.01
`

const testGenerators = `id,bus,target_p,target_q,target_v,control_bus,voltage_control,reactive_key
g0,b0,1.5,0,1.02,,true,
g2,b2,0.3,0.1,0,,false,2
`

// recorder 记录网络事件
type recorder struct {
	BaseListener
	events []string
}

func (r *recorder) OnGeneratorVoltageControlChange(g *Generator, enabled bool) {
	r.events = append(r.events, "gen_v")
}

func (r *recorder) OnDisableChange(element types.ElementType, num int, disabled bool) {
	r.events = append(r.events, element.String())
}

func (r *recorder) OnTapChange(br *Branch) {
	r.events = append(r.events, "tap")
}

// TestReadCSV 测试从CSV表读取网络
func TestReadCSV(t *testing.T) {
	n, err := ReadCSV(CSVSource{
		Buses:      strings.NewReader(testBuses),
		Branches:   strings.NewReader(testBranches),
		Loads:      strings.NewReader("id,bus,p0,q0,p_exponent,q_exponent\nld1,b1,1.2,0.4,,2\n"),
		Generators: strings.NewReader(testGenerators),
	})
	require.NoError(t, err)
	require.Len(t, n.Buses, 3)
	require.Len(t, n.Branches, 2)
	require.Len(t, n.Generators, 2)

	assert.True(t, n.Buses[0].Slack)
	assert.InDelta(t, -5*math.Pi/180, n.Buses[1].Angle, 1e-12)
	assert.Equal(t, 1.0, n.Buses[2].V, "未给定电压时默认为1")
	assert.Same(t, n.Buses[0], n.ReferenceBus())

	l01 := n.Branches[0]
	assert.Equal(t, 1.0, l01.R1, "未给定变比时默认为1")
	assert.True(t, l01.IsClosed())
	assert.Nil(t, l01.PhaseControl)

	t12 := n.Branches[1]
	require.NotNil(t, t12.PhaseControl)
	assert.Equal(t, PhaseControlActivePower, t12.PhaseControl.Mode)
	assert.Equal(t, 0.5, t12.PhaseControl.TargetP)
	require.NotNil(t, t12.VoltageControl)
	assert.Equal(t, 2, t12.VoltageControl.ControlledBus)
	assert.InDelta(t, math.Pi/6, t12.A1, 1e-12)

	g0 := n.Generators[0]
	require.NotNil(t, g0.VoltageControl)
	assert.Equal(t, 0, g0.VoltageControl.ControlledBus)
	assert.Equal(t, 1.0, g0.ReactiveKey)
	assert.Nil(t, n.Generators[1].VoltageControl)
	assert.Equal(t, 2.0, n.Generators[1].ReactiveKey)

	require.Len(t, n.Loads, 1)
	assert.True(t, n.Loads[0].IsVoltageDependent())
	assert.Len(t, n.Buses[1].Loads(), 1)
	assert.Len(t, n.Buses[1].Branches(), 2)
}

// TestReadCSVErrors 测试错误输入
func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(CSVSource{})
	assert.Error(t, err)

	_, err = ReadCSV(CSVSource{
		Buses:    strings.NewReader(testBuses),
		Branches: strings.NewReader("id,bus1,bus2,r,x\nl,b0,b9,0,0.1\n"),
	})
	assert.ErrorContains(t, err, "b9")

	_, err = ReadCSV(CSVSource{Buses: strings.NewReader("id\nb0\nb0\n")})
	assert.Error(t, err)
}

// TestLoadCSV 测试从目录读取,可选表缺失时跳过
func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, BusesFile), []byte(testBuses), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, GeneratorsFile), []byte(testGenerators), 0o644))
	n, err := LoadCSV(dir)
	require.NoError(t, err)
	assert.Len(t, n.Buses, 3)
	assert.Len(t, n.Generators, 2)
	assert.Empty(t, n.Branches)

	_, err = LoadCSV(t.TempDir())
	assert.Error(t, err)
}

// TestListenerEvents 测试事件只在状态变化时触发
func TestListenerEvents(t *testing.T) {
	n := New()
	b := n.AddBus(&Bus{ID: "b"})
	g := n.AddGenerator(&Generator{Bus: b.Num, VoltageControl: &VoltageControl{Enabled: true, ControlledBus: b.Num, TargetV: 1}})
	br := n.AddBranch(&Branch{Bus1: 0, Bus2: 0, Connected1: true, Connected2: true, PiModel: PiModel{X: 0.1}})
	rec := &recorder{}
	n.AddListener(rec)

	g.SetVoltageControlEnabled(true)
	g.SetVoltageControlEnabled(false)
	g.SetVoltageControlEnabled(false)
	br.SetDisabled(true)
	br.SetDisabled(true)
	br.SetTap(1, 0)
	br.SetTap(1.02, 0)
	b.SetDisabled(true)
	assert.Equal(t, []string{"gen_v", "BRANCH", "tap", "BUS"}, rec.events)

	n.RemoveListener(rec)
	b.SetDisabled(false)
	assert.Len(t, rec.events, 4)
	assert.Same(t, g, n.Element(types.ElementGenerator, 0))
	assert.Nil(t, n.Element(types.ElementLoad, 0))
}

// TestZeroImpedanceForest 测试零阻抗生成森林: 并联和成环支路不进入生成树
func TestZeroImpedanceForest(t *testing.T) {
	n := New()
	for i := 0; i < 5; i++ {
		n.AddBus(&Bus{})
	}
	closed := func(b1, b2 int, x float64) *Branch {
		return n.AddBranch(&Branch{Bus1: b1, Bus2: b2, Connected1: true, Connected2: true, PiModel: PiModel{X: x}})
	}
	closed(0, 1, 0)    // 0 生成树
	closed(1, 0, 0)    // 1 并联
	closed(1, 2, 0)    // 2 生成树
	closed(2, 0, 0)    // 3 成环
	closed(2, 3, 0.1)  // 4 非零阻抗
	closed(3, 4, 1e-9) // 5 生成树
	open := closed(4, 0, 0)
	open.Connected2 = false

	z := n.ZeroImpedance(1e-8)
	assert.Len(t, z.Branches(), 5)
	assert.True(t, z.IsSpanning(0))
	assert.False(t, z.IsSpanning(1))
	assert.True(t, z.IsSpanning(2))
	assert.False(t, z.IsSpanning(3))
	assert.False(t, z.IsSpanning(4))
	assert.True(t, z.IsSpanning(5))
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4}}, z.Groups())
	assert.True(t, z.SameGroup(0, 2))
	assert.False(t, z.SameGroup(2, 3))
	assert.Equal(t, []int{3, 4}, z.Group(4))

	n.Branches[0].SetDisabled(true)
	z = n.ZeroImpedance(1e-8)
	assert.True(t, z.IsSpanning(1), "停运后并联支路进入生成树")
}

// TestComponents 测试连通分量
func TestComponents(t *testing.T) {
	n := New()
	for i := 0; i < 4; i++ {
		n.AddBus(&Bus{})
	}
	n.AddBranch(&Branch{Bus1: 0, Bus2: 1, Connected1: true, Connected2: true, PiModel: PiModel{X: 0.1}})
	n.AddBranch(&Branch{Bus1: 2, Bus2: 3, Connected1: true, Connected2: false, PiModel: PiModel{X: 0.1}})
	assert.Equal(t, [][]int{{0, 1}, {2}, {3}}, n.Components())
	n.Buses[3].Disabled = true
	assert.Equal(t, [][]int{{0, 1}, {2}}, n.Components())
}

// TestAsymmetryTensor 测试块对角序导纳张量
func TestAsymmetryTensor(t *testing.T) {
	br := &Branch{PiModel: PiModel{R: 0.01, X: 0.1, B1: 0.02, B2: 0.02, R1: 1}, Asymmetry: &Asymmetry{
		Zero:     PiModel{R: 0.03, X: 0.3},
		Negative: PiModel{R: 0.01, X: 0.1},
	}}
	y := br.Asymmetry.Tensor(br.PiModel)
	r, c := y.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 6, c)
	ys := 1 / complex(0.01, 0.1)
	assert.InDelta(t, real(ys+complex(0, 0.02)), real(y.At(1, 1)), 1e-12)
	assert.InDelta(t, imag(ys+complex(0, 0.02)), imag(y.At(1, 1)), 1e-12)
	assert.Equal(t, complex128(0), y.At(0, 1), "序间无耦合")
	assert.InDelta(t, real(-1/complex(0.03, 0.3)), real(y.At(0, 3)), 1e-12)
	assert.Equal(t, 0.03, br.Sequence(types.SequenceZero).R)
	assert.Equal(t, 1.0, br.Sequence(types.SequenceZero).R1)
}
