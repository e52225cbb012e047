package debug

import (
	"io"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/sirupsen/logrus"
)

// Charts 曲线绘制
type Charts struct {
	Record
}

// legend 右侧滚动图例
var legend = opts.Legend{
	Type:   "scroll",
	Orient: "vertical",
	Right:  "10",
	Top:    "20",
	Bottom: "20",
}

// newLine 迭代曲线
func newLine(title, subtitle string, y opts.YAxis) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithLegendOpts(legend),
		charts.WithYAxisOpts(y),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithAnimation(true),
	)
	return line
}

// Render 格式化
func (c *Charts) Render(w io.Writer) error {
	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "网络拓扑",
			Subtitle: "母线与投运支路",
		}),
		charts.WithLegendOpts(legend),
	)
	nodes := make([]opts.GraphNode, len(c.Buses))
	for i, name := range c.Buses {
		nodes[i] = opts.GraphNode{
			Name:     name,
			Category: 0,
			Tooltip:  &opts.Tooltip{Show: opts.Bool(true)},
		}
		if n := c.Len(); n > 0 {
			nodes[i].Value = float32(c.Voltage[n-1][i])
		}
	}
	links := make([]opts.GraphLink, 0, len(c.Links))
	for _, l := range c.Links {
		links = append(links, opts.GraphLink{
			Source: c.Buses[l[0]],
			Target: c.Buses[l[1]],
		})
	}
	graph.AddSeries("母线", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Categories: []*opts.GraphCategory{
				{Name: "母线", ItemStyle: &opts.ItemStyle{Color: "#1987c7b7"}},
			},
			Roam:               opts.Bool(true),
			Force:              &opts.GraphForce{Repulsion: 80},
			FocusNodeAdjacency: opts.Bool(true),
		}),
		charts.WithLineStyleOpts(opts.LineStyle{
			Curveness: 0.3,
		}),
	)

	// 收敛曲线
	lineN := newLine("收敛曲线", "失配量无穷范数", opts.YAxis{Type: "log"})
	lineN.SetXAxis(c.Iteration)
	norms := make([]opts.LineData, c.Len())
	for i, n := range c.Norm {
		norms[i] = opts.LineData{Value: n, Name: c.Worst[i]}
	}
	lineN.AddSeries("范数", norms)

	lineV := newLine("电压幅值", "母线电压随迭代变化", opts.YAxis{Scale: opts.Bool(true)})
	lineA := newLine("电压相角", "母线相角随迭代变化", opts.YAxis{Scale: opts.Bool(true)})
	lineV.SetXAxis(c.Iteration)
	lineA.SetXAxis(c.Iteration)
	for b, name := range c.Buses {
		itemsV := make([]opts.LineData, c.Len())
		itemsA := make([]opts.LineData, c.Len())
		for i := range c.Iteration {
			itemsV[i].Value = c.Voltage[i][b]
			itemsA[i].Value = c.Angle[i][b]
		}
		lineV.AddSeries(name, itemsV)
		lineA.AddSeries(name, itemsA)
	}

	page := components.NewPage()
	page.AddCharts(
		graph,
		lineN,
		lineV,
		lineA,
	)
	return page.Render(w)
}

// Handler 发布到网页面
func (c *Charts) Handler(w http.ResponseWriter, _ *http.Request) {
	if err := c.Render(w); err != nil {
		logrus.WithError(err).Error("迭代曲线输出失败")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
