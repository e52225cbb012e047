package equation

import (
	"fmt"
	"io"
)

// WriteText 输出方程组可读列表,用于诊断
func (s *EquationSystem) WriteText(w io.Writer) error {
	idx := s.Index()
	if _, err := fmt.Fprintf(w, "方程 %d 变量 %d\n", idx.RowCount(), idx.ColumnCount()); err != nil {
		return err
	}
	for _, eq := range s.order {
		mark := " "
		if eq.active {
			mark = "*"
		}
		if _, err := fmt.Fprintf(w, "%s [%3d] %s\n", mark, eq.row, eq); err != nil {
			return err
		}
	}
	for col, v := range idx.Variables() {
		if _, err := fmt.Fprintf(w, "  x[%3d] %s = %g\n", col, v, s.state.Get(col)); err != nil {
			return err
		}
	}
	return nil
}
