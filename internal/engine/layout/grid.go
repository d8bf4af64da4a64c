package layout

import "math"

type cell struct {
	cx, cy int64
}

// grid buckets points into square cells so that every pair closer than the
// cell size lies in the same or an adjacent cell.
type grid struct {
	size  float64
	x, y  []float64
	cells map[cell][]int
}

func newGrid(x, y []float64, size float64) *grid {
	g := &grid{
		size:  size,
		x:     x,
		y:     y,
		cells: make(map[cell][]int, len(x)),
	}
	for i := range x {
		c := g.cellOf(i)
		g.cells[c] = append(g.cells[c], i)
	}
	return g
}

func (g *grid) cellOf(i int) cell {
	return cell{
		cx: int64(math.Floor(g.x[i] / g.size)),
		cy: int64(math.Floor(g.y[i] / g.size)),
	}
}

// pairs calls fn once for every candidate pair (i, j) with i < j, in an
// order that depends only on node indices.
func (g *grid) pairs(fn func(i, j int)) {
	for i := range g.x {
		c := g.cellOf(i)
		for ox := int64(-1); ox <= 1; ox++ {
			for oy := int64(-1); oy <= 1; oy++ {
				for _, j := range g.cells[cell{cx: c.cx + ox, cy: c.cy + oy}] {
					if j > i {
						fn(i, j)
					}
				}
			}
		}
	}
}
