package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"acflow"
	"acflow/config"
	"acflow/newton"
)

var (
	configPath string
	logLevel   string
	equations  bool
	reportPath string
	plotPath   string
	recordPath string
	serveAddr  string
)

func main() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML 参数文件,缺省使用默认参数")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "日志级别")
	rootCmd.Flags().BoolVar(&equations, "equations", false, "输出方程组")
	rootCmd.Flags().StringVar(&reportPath, "report", "", "迭代曲线 HTML 输出路径")
	rootCmd.Flags().StringVar(&plotPath, "plot", "", "收敛曲线图片输出路径")
	rootCmd.Flags().StringVar(&recordPath, "record", "", "迭代记录 JSON 输出路径")
	rootCmd.Flags().StringVar(&serveAddr, "serve", "", "求解后在该地址发布迭代曲线")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "acflow [data directory]",
	Short: "AC power flow",
	Long: `Solve an AC power flow from CSV tables (buses.csv, branches.csv,
shunts.csv, loads.csv, generators.csv) and print bus results as CSV.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
		return run(args[0])
	},
}

func run(dir string) error {
	params := config.Default()
	if configPath != "" {
		var err error
		if params, err = config.Load(configPath); err != nil {
			return err
		}
	}
	s, err := acflow.Open(dir, params)
	if err != nil {
		return err
	}
	defer s.Close()
	if equations {
		if err := s.WriteEquations(os.Stderr); err != nil {
			return err
		}
	}
	res, err := s.Solve()
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"status":     res.Status,
		"iterations": res.Iterations,
		"norm":       res.Norm,
	}).Info("求解完成")
	if err := s.WriteResults(os.Stdout); err != nil {
		return err
	}
	if err := writeFile(reportPath, s.Record.Render); err != nil {
		return err
	}
	if err := writeFile(recordPath, s.Record.Record.Render); err != nil {
		return err
	}
	if plotPath != "" {
		if err := s.Record.SavePlot(plotPath); err != nil {
			return err
		}
	}
	if serveAddr != "" {
		logrus.WithField("addr", serveAddr).Info("发布迭代曲线")
		http.HandleFunc("/", s.Record.Handler)
		return http.ListenAndServe(serveAddr, nil)
	}
	if res.Status != newton.StatusConverged {
		return errors.Errorf("潮流计算未收敛: %d 次迭代后范数 %g", res.Iterations, res.Norm)
	}
	return nil
}

func writeFile(path string, render func(w io.Writer) error) error {
	if path == "" {
		return nil
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "创建 %s", path)
	}
	defer file.Close()
	return render(file)
}
