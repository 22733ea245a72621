package nurbs

import "fmt"

// Grid is a dense rows × cols table stored row major.
type Grid[T any] struct {
	rows, cols int
	data       []T
}

// NewGrid returns a grid of zero values.
func NewGrid[T any](rows, cols int) *Grid[T] {
	if rows < 0 || cols < 0 {
		panic("negative grid size")
	}
	return &Grid[T]{rows: rows, cols: cols, data: make([]T, rows*cols)}
}

// GridFrom copies a slice of rows into a grid. Every row must have the same length.
func GridFrom[T any](rows [][]T) (*Grid[T], error) {
	if len(rows) == 0 {
		return NewGrid[T](0, 0), nil
	}
	g := NewGrid[T](len(rows), len(rows[0]))
	for r, row := range rows {
		if len(row) != g.cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", r, len(row), g.cols)
		}
		copy(g.data[r*g.cols:], row)
	}
	return g, nil
}

func (g *Grid[T]) Rows() int { return g.rows }
func (g *Grid[T]) Cols() int { return g.cols }

func (g *Grid[T]) At(r, c int) T {
	g.check(r, c)
	return g.data[r*g.cols+c]
}

func (g *Grid[T]) Set(r, c int, v T) {
	g.check(r, c)
	g.data[r*g.cols+c] = v
}

func (g *Grid[T]) check(r, c int) {
	if r < 0 || r >= g.rows || c < 0 || c >= g.cols {
		panic(fmt.Sprintf("grid index (%d,%d) out of range %dx%d", r, c, g.rows, g.cols))
	}
}

// Row returns a copy of row r.
func (g *Grid[T]) Row(r int) []T {
	g.check(r, 0)
	return append([]T(nil), g.data[r*g.cols:(r+1)*g.cols]...)
}

// Col returns a copy of column c.
func (g *Grid[T]) Col(c int) []T {
	g.check(0, c)
	out := make([]T, g.rows)
	for r := range out {
		out[r] = g.data[r*g.cols+c]
	}
	return out
}

// SetWithExpansion sets the value at (r,c), growing the grid with zero
// values when the index lies outside it.
func (g *Grid[T]) SetWithExpansion(r, c int, v T) {
	if r >= g.rows || c >= g.cols {
		rows, cols := max(g.rows, r+1), max(g.cols, c+1)
		data := make([]T, rows*cols)
		for i := 0; i < g.rows; i++ {
			copy(data[i*cols:], g.data[i*g.cols:(i+1)*g.cols])
		}
		g.rows, g.cols, g.data = rows, cols, data
	}
	g.Set(r, c, v)
}

// DeleteRow removes row r.
func (g *Grid[T]) DeleteRow(r int) {
	g.check(r, 0)
	g.data = append(g.data[:r*g.cols], g.data[(r+1)*g.cols:]...)
	g.rows--
}

// DeleteColumn removes column c.
func (g *Grid[T]) DeleteColumn(c int) {
	g.check(0, c)
	data := make([]T, 0, g.rows*(g.cols-1))
	for r := 0; r < g.rows; r++ {
		row := g.data[r*g.cols : (r+1)*g.cols]
		data = append(data, row[:c]...)
		data = append(data, row[c+1:]...)
	}
	g.data = data
	g.cols--
}

// Transpose returns a new grid with rows and columns swapped.
func (g *Grid[T]) Transpose() *Grid[T] {
	t := NewGrid[T](g.cols, g.rows)
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			t.data[c*g.rows+r] = g.data[r*g.cols+c]
		}
	}
	return t
}

// ReverseCols reverses the column order in place.
func (g *Grid[T]) ReverseCols() {
	for r := 0; r < g.rows; r++ {
		row := g.data[r*g.cols : (r+1)*g.cols]
		for i, j := 0, len(row)-1; i < j; i, j = i+1, j-1 {
			row[i], row[j] = row[j], row[i]
		}
	}
}

// Clone returns a copy of the grid.
func (g *Grid[T]) Clone() *Grid[T] {
	return &Grid[T]{rows: g.rows, cols: g.cols, data: append([]T(nil), g.data...)}
}
