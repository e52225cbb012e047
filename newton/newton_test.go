package newton

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acflow/config"
	"acflow/control"
	"acflow/network"
)

func twoBus() *network.Network {
	n := network.New()
	n.AddBus(&network.Bus{Slack: true})
	n.AddBus(&network.Bus{})
	n.AddBranch(&network.Branch{Bus1: 0, Bus2: 1, Connected1: true, Connected2: true,
		PiModel: network.PiModel{R: 0.01, X: 0.1, B1: 0.01, B2: 0.01}})
	n.AddLoad(&network.Load{Bus: 1, P0: 0.5, Q0: 0.2})
	n.AddGenerator(&network.Generator{Bus: 0, TargetP: 0.5,
		VoltageControl: &network.VoltageControl{Enabled: true, ControlledBus: 0, TargetV: 1}})
	return n
}

func build(t *testing.T, n *network.Network, params *config.Parameters) *control.System {
	log, _ := test.NewNullLogger()
	s, err := control.Build(n, params, control.WithLogger(log))
	require.NoError(t, err)
	return s
}

type history struct {
	norms []float64
}

func (h *history) OnIteration(_ *control.System, it Iteration) {
	h.norms = append(h.norms, it.Norm)
}

func TestSolveTwoBus(t *testing.T) {
	n := twoBus()
	sys := build(t, n, config.Default())
	h := &history{}
	res, err := New(sys, WithObserver(h)).Solve()
	require.NoError(t, err)
	assert.Equal(t, StatusConverged, res.Status)
	assert.Less(t, res.Iterations, 10)
	assert.Less(t, res.Norm, sys.Params.Newton.Tolerance)
	assert.Len(t, h.norms, res.Iterations+1)
	assert.Len(t, res.History, res.Iterations+1)
	assert.Greater(t, h.norms[0], h.norms[len(h.norms)-1])

	WriteBack(sys)
	assert.Less(t, n.Buses[1].V, 1.0, "负荷母线电压下降")
	assert.Greater(t, n.Buses[1].V, 0.9)
	assert.Less(t, n.Buses[1].Angle, 0.0, "负荷母线相角滞后")
	assert.InDelta(t, 1.0, n.Buses[0].V, 1e-9)
}

func TestSolveVoltageControl(t *testing.T) {
	n := twoBus()
	n.AddGenerator(&network.Generator{Bus: 1, TargetP: 0.2,
		VoltageControl: &network.VoltageControl{Enabled: true, ControlledBus: 1, TargetV: 1.02}})
	sys := build(t, n, config.Default())
	res, err := New(sys).Solve()
	require.NoError(t, err)
	require.Equal(t, StatusConverged, res.Status)
	WriteBack(sys)
	assert.InDelta(t, 1.02, n.Buses[1].V, 1e-9)
}

func TestSolveMaxIterations(t *testing.T) {
	sys := build(t, twoBus(), config.Default())
	res, err := New(sys, WithParameters(config.NewtonParameters{MaxIterations: 1, Tolerance: 1e-14})).Solve()
	require.NoError(t, err)
	assert.Equal(t, StatusMaxIterations, res.Status)
	assert.Equal(t, 1, res.Iterations)
	assert.Len(t, res.History, 2)
	assert.NotEmpty(t, res.History[0].Worst)
}

func TestResolveAfterEvent(t *testing.T) {
	n := twoBus()
	g := n.AddGenerator(&network.Generator{Bus: 1, TargetP: 0.2,
		VoltageControl: &network.VoltageControl{Enabled: true, ControlledBus: 1, TargetV: 1.02}})
	sys := build(t, n, config.Default())
	solver := New(sys)
	_, err := solver.Solve()
	require.NoError(t, err)

	g.SetVoltageControlEnabled(false)
	res, err := solver.Solve()
	require.NoError(t, err)
	assert.Equal(t, StatusConverged, res.Status)
	WriteBack(sys)
	assert.Less(t, n.Buses[1].V, 1.0)
}

func TestDenseSolverAgrees(t *testing.T) {
	sparse := twoBus()
	sysS := build(t, sparse, config.Default())
	_, err := New(sysS).Solve()
	require.NoError(t, err)
	WriteBack(sysS)

	dense := twoBus()
	params := config.Default()
	params.Newton.LinearSolver = config.SolverDense
	sysD := build(t, dense, params)
	res, err := New(sysD).Solve()
	require.NoError(t, err)
	require.Equal(t, StatusConverged, res.Status)
	WriteBack(sysD)
	assert.InDelta(t, sparse.Buses[1].V, dense.Buses[1].V, 1e-9)
	assert.InDelta(t, sparse.Buses[1].Angle, dense.Buses[1].Angle, 1e-9)
}

func TestFastDecoupled(t *testing.T) {
	n := twoBus()
	params := config.Default()
	params.DerivativeMode = config.DerivativeFastDecoupled
	params.Newton.MaxIterations = 100
	sys := build(t, n, params)
	res, err := New(sys).Solve()
	require.NoError(t, err)
	require.Equal(t, StatusConverged, res.Status)
	WriteBack(sys)

	full := twoBus()
	sysF := build(t, full, config.Default())
	resF, err := New(sysF).Solve()
	require.NoError(t, err)
	WriteBack(sysF)
	assert.GreaterOrEqual(t, res.Iterations, resF.Iterations)
	assert.InDelta(t, full.Buses[1].V, n.Buses[1].V, 1e-6)
}
