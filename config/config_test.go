package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())
	assert.False(t, p.IsFastDecoupled())
	assert.True(t, p.DistributedSlack)
	assert.Equal(t, SolverSparse, p.Newton.LinearSolver)
}

func TestParseKeepsDefaults(t *testing.T) {
	p, err := Parse([]byte(`
derivative_mode: fast_decoupled
asymmetrical: true
newton:
  max_iterations: 30
`))
	require.NoError(t, err)
	assert.True(t, p.IsFastDecoupled())
	assert.True(t, p.Asymmetrical)
	assert.Equal(t, 30, p.Newton.MaxIterations)
	// 未给出的字段保持默认值
	assert.Equal(t, 1e-8, p.Newton.Tolerance)
	assert.True(t, p.TransformerVoltageControl)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"导数策略", "derivative_mode: secant"},
		{"奇异阈值", "phase_voltage_epsilon: 0"},
		{"迭代次数", "newton:\n  max_iterations: 0"},
		{"负阈值", "low_impedance_threshold: -1"},
		{"语法", "derivative_mode: [full"},
		{"求解方式", "newton:\n  linear_solver: qr"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("asymmetrical: true\n"), 0o600))
	p, err := Load(path)
	require.NoError(t, err)
	assert.True(t, p.Asymmetrical)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
