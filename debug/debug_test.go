package debug

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acflow/config"
	"acflow/control"
	"acflow/network"
	"acflow/newton"
)

func solved(t *testing.T) *Charts {
	n := network.New()
	n.AddBus(&network.Bus{ID: "A", Slack: true})
	n.AddBus(&network.Bus{ID: "B"})
	n.AddBranch(&network.Branch{Bus1: 0, Bus2: 1, Connected1: true, Connected2: true,
		PiModel: network.PiModel{R: 0.01, X: 0.1}})
	n.AddLoad(&network.Load{Bus: 1, P0: 0.4, Q0: 0.1})
	n.AddGenerator(&network.Generator{Bus: 0, TargetP: 0.4,
		VoltageControl: &network.VoltageControl{Enabled: true, ControlledBus: 0, TargetV: 1}})
	log, _ := test.NewNullLogger()
	sys, err := control.Build(n, config.Default(), control.WithLogger(log))
	require.NoError(t, err)
	c := &Charts{}
	res, err := newton.New(sys, newton.WithObserver(c)).Solve()
	require.NoError(t, err)
	require.Equal(t, newton.StatusConverged, res.Status)
	require.Equal(t, res.Iterations+1, c.Len())
	return c
}

func TestRecord(t *testing.T) {
	c := solved(t)
	assert.Equal(t, []string{"A", "B"}, c.Buses)
	assert.Equal(t, [][2]int{{0, 1}}, c.Links)
	assert.Equal(t, 0, c.Iteration[0])
	assert.Equal(t, []float64{1, 1}, c.Voltage[0], "平启动")
	last := c.Voltage[c.Len()-1]
	assert.InDelta(t, 1, last[0], 1e-9)
	assert.Less(t, last[1], 1.0)

	var buf bytes.Buffer
	require.NoError(t, c.Record.Render(&buf))
	var decoded Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, c.Norm, decoded.Norm)
}

func TestCharts(t *testing.T) {
	c := solved(t)
	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	assert.Contains(t, buf.String(), "收敛曲线")
	assert.Contains(t, buf.String(), "网络拓扑")

	rec := httptest.NewRecorder()
	c.Handler(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "电压幅值")
}

func TestPlot(t *testing.T) {
	c := solved(t)
	_, err := c.VoltagePlot()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "norm.png")
	require.NoError(t, c.SavePlot(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, err = (&Record{}).Plot()
	assert.Error(t, err)
}
