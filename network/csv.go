package network

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"acflow/types"
)

// busRow 母线表
type busRow struct {
	ID        string  `csv:"id"`
	NominalV  float64 `csv:"nominal_v"`
	V         float64 `csv:"v"`
	AngleDeg  float64 `csv:"angle_deg"`
	Slack     bool    `csv:"slack"`
	Reference bool    `csv:"reference"`
}

// branchRow 支路表
type branchRow struct {
	ID           string  `csv:"id"`
	Bus1         string  `csv:"bus1"`
	Bus2         string  `csv:"bus2"`
	R            float64 `csv:"r"`
	X            float64 `csv:"x"`
	G1           float64 `csv:"g1"`
	B1           float64 `csv:"b1"`
	G2           float64 `csv:"g2"`
	B2           float64 `csv:"b2"`
	R1           float64 `csv:"r1"`
	A1Deg        float64 `csv:"a1_deg"`
	OpenSide     string  `csv:"open_side"`
	PhaseControl string  `csv:"phase_control"`
	PhaseTargetP float64 `csv:"phase_target_p"`
	ControlBus   string  `csv:"control_bus"`
	TargetV      float64 `csv:"target_v"`
}

// shuntRow 并联补偿表
type shuntRow struct {
	ID         string  `csv:"id"`
	Bus        string  `csv:"bus"`
	G          float64 `csv:"g"`
	B          float64 `csv:"b"`
	ControlBus string  `csv:"control_bus"`
	TargetV    float64 `csv:"target_v"`
}

// loadRow 负荷表
type loadRow struct {
	ID        string  `csv:"id"`
	Bus       string  `csv:"bus"`
	P0        float64 `csv:"p0"`
	Q0        float64 `csv:"q0"`
	PExponent float64 `csv:"p_exponent"`
	QExponent float64 `csv:"q_exponent"`
}

// generatorRow 发电机表
type generatorRow struct {
	ID             string  `csv:"id"`
	Bus            string  `csv:"bus"`
	TargetP        float64 `csv:"target_p"`
	TargetQ        float64 `csv:"target_q"`
	TargetV        float64 `csv:"target_v"`
	ControlBus     string  `csv:"control_bus"`
	VoltageControl bool    `csv:"voltage_control"`
	ReactiveKey    float64 `csv:"reactive_key"`
}

// CSVSource 各元件表的数据源,母线表必需,其余可为空
type CSVSource struct {
	Buses      io.Reader
	Branches   io.Reader
	Shunts     io.Reader
	Loads      io.Reader
	Generators io.Reader
}

// CSV 文件名
const (
	BusesFile      = "buses.csv"
	BranchesFile   = "branches.csv"
	ShuntsFile     = "shunts.csv"
	LoadsFile      = "loads.csv"
	GeneratorsFile = "generators.csv"
)

// LoadCSV 从目录读取网络,母线表之外的文件不存在时跳过
func LoadCSV(dir string) (*Network, error) {
	var src CSVSource
	targets := []struct {
		name string
		dst  *io.Reader
	}{
		{BusesFile, &src.Buses},
		{BranchesFile, &src.Branches},
		{ShuntsFile, &src.Shunts},
		{LoadsFile, &src.Loads},
		{GeneratorsFile, &src.Generators},
	}
	for _, t := range targets {
		file, err := os.Open(filepath.Join(dir, t.name))
		if os.IsNotExist(err) && t.name != BusesFile {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "打开 %s", t.name)
		}
		defer file.Close()
		*t.dst = file
	}
	return ReadCSV(src)
}

// ReadCSV 从数据源读取网络
func ReadCSV(src CSVSource) (*Network, error) {
	if src.Buses == nil {
		return nil, errors.New("缺少母线表")
	}
	n := New()
	var buses []*busRow
	if err := gocsv.Unmarshal(src.Buses, &buses); err != nil {
		return nil, errors.Wrap(err, "解析母线表")
	}
	for _, row := range buses {
		if _, ok := n.BusByID(row.ID); ok {
			return nil, errors.Errorf("母线 %s 重复", row.ID)
		}
		n.AddBus(&Bus{
			ID:        row.ID,
			NominalV:  row.NominalV,
			V:         row.V,
			Angle:     row.AngleDeg * math.Pi / 180,
			Slack:     row.Slack,
			Reference: row.Reference,
		})
	}
	bus := func(table, id string) (int, error) {
		b, ok := n.BusByID(id)
		if !ok {
			return -1, errors.Errorf("%s 引用了不存在的母线 %q", table, id)
		}
		return b.Num, nil
	}
	voltageControl := func(table, id string, targetV float64) (*VoltageControl, error) {
		if id == "" {
			return nil, nil
		}
		num, err := bus(table, id)
		if err != nil {
			return nil, err
		}
		return &VoltageControl{Enabled: true, ControlledBus: num, TargetV: targetV}, nil
	}

	if src.Branches != nil {
		var rows []*branchRow
		if err := gocsv.Unmarshal(src.Branches, &rows); err != nil {
			return nil, errors.Wrap(err, "解析支路表")
		}
		for _, row := range rows {
			b1, err := bus("支路 "+row.ID, row.Bus1)
			if err != nil {
				return nil, err
			}
			b2, err := bus("支路 "+row.ID, row.Bus2)
			if err != nil {
				return nil, err
			}
			br := &Branch{
				ID:         row.ID,
				Bus1:       b1,
				Bus2:       b2,
				Connected1: row.OpenSide != "1",
				Connected2: row.OpenSide != "2",
				PiModel: PiModel{
					R: row.R, X: row.X,
					G1: row.G1, B1: row.B1, G2: row.G2, B2: row.B2,
					R1: row.R1, A1: row.A1Deg * math.Pi / 180,
				},
			}
			switch strings.ToLower(row.PhaseControl) {
			case "":
			case "fixed":
				br.PhaseControl = &PhaseControl{Mode: PhaseControlFixedTap, Side: types.SideOne}
			case "active_power":
				br.PhaseControl = &PhaseControl{Mode: PhaseControlActivePower, Enabled: true, Side: types.SideOne, TargetP: row.PhaseTargetP}
			default:
				return nil, errors.Errorf("支路 %s 移相控制方式 %q 无效", row.ID, row.PhaseControl)
			}
			if br.VoltageControl, err = voltageControl("支路 "+row.ID, row.ControlBus, row.TargetV); err != nil {
				return nil, err
			}
			n.AddBranch(br)
		}
	}

	if src.Shunts != nil {
		var rows []*shuntRow
		if err := gocsv.Unmarshal(src.Shunts, &rows); err != nil {
			return nil, errors.Wrap(err, "解析并联补偿表")
		}
		for _, row := range rows {
			b, err := bus("并联补偿 "+row.ID, row.Bus)
			if err != nil {
				return nil, err
			}
			sh := &Shunt{ID: row.ID, Bus: b, G: row.G, B: row.B}
			if sh.VoltageControl, err = voltageControl("并联补偿 "+row.ID, row.ControlBus, row.TargetV); err != nil {
				return nil, err
			}
			n.AddShunt(sh)
		}
	}

	if src.Loads != nil {
		var rows []*loadRow
		if err := gocsv.Unmarshal(src.Loads, &rows); err != nil {
			return nil, errors.Wrap(err, "解析负荷表")
		}
		for _, row := range rows {
			b, err := bus("负荷 "+row.ID, row.Bus)
			if err != nil {
				return nil, err
			}
			n.AddLoad(&Load{ID: row.ID, Bus: b, P0: row.P0, Q0: row.Q0, PExponent: row.PExponent, QExponent: row.QExponent})
		}
	}

	if src.Generators != nil {
		var rows []*generatorRow
		if err := gocsv.Unmarshal(src.Generators, &rows); err != nil {
			return nil, errors.Wrap(err, "解析发电机表")
		}
		for _, row := range rows {
			b, err := bus("发电机 "+row.ID, row.Bus)
			if err != nil {
				return nil, err
			}
			g := &Generator{ID: row.ID, Bus: b, TargetP: row.TargetP, TargetQ: row.TargetQ, ReactiveKey: row.ReactiveKey}
			if row.VoltageControl {
				controlled := row.ControlBus
				if controlled == "" {
					controlled = row.Bus
				}
				if g.VoltageControl, err = voltageControl("发电机 "+row.ID, controlled, row.TargetV); err != nil {
					return nil, err
				}
			}
			n.AddGenerator(g)
		}
	}
	return n, nil
}
