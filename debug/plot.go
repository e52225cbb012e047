package debug

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// normFloor 对数坐标下范数的下限
const normFloor = 1e-16

// Plot 收敛曲线与母线电压曲线
func (r *Record) Plot() (*plot.Plot, error) {
	if r.Len() == 0 {
		return nil, errors.New("没有迭代记录")
	}
	p := plot.New()
	p.Title.Text = "收敛曲线"
	p.X.Label.Text = "迭代"
	p.Y.Label.Text = "失配量"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	pts := make(plotter.XYs, r.Len())
	for i := range pts {
		pts[i].X = float64(r.Iteration[i])
		pts[i].Y = math.Max(r.Norm[i], normFloor)
	}
	if err := plotutil.AddLinePoints(p, "范数", pts); err != nil {
		return nil, errors.Wrap(err, "绘制收敛曲线")
	}
	return p, nil
}

// VoltagePlot 母线电压幅值随迭代变化
func (r *Record) VoltagePlot() (*plot.Plot, error) {
	if r.Len() == 0 {
		return nil, errors.New("没有迭代记录")
	}
	p := plot.New()
	p.Title.Text = "母线电压"
	p.X.Label.Text = "迭代"
	p.Y.Label.Text = "V (pu)"
	vs := make([]any, 0, 2*len(r.Buses))
	for b, name := range r.Buses {
		pts := make(plotter.XYs, r.Len())
		for i := range pts {
			pts[i].X = float64(r.Iteration[i])
			pts[i].Y = r.Voltage[i][b]
		}
		vs = append(vs, name, pts)
	}
	if err := plotutil.AddLines(p, vs...); err != nil {
		return nil, errors.Wrap(err, "绘制电压曲线")
	}
	return p, nil
}

// SavePlot 收敛曲线保存为图片,格式由扩展名决定
func (r *Record) SavePlot(path string) error {
	p, err := r.Plot()
	if err != nil {
		return err
	}
	return errors.Wrapf(p.Save(6*vg.Inch, 4*vg.Inch, path), "保存 %s", path)
}
