package layout

import "math"

// maxQuadDepth stops subdivision for points that are equal or nearly so.
const maxQuadDepth = 48

// quad is a Barnes-Hut cell. Leaves hold point indices; internal cells
// aggregate the count and centroid of everything below them.
type quad struct {
	x0, y0, size float64
	children     [4]*quad
	points       []int
	internal     bool

	count  int
	cx, cy float64
}

func buildQuadtree(x, y []float64) *quad {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range x {
		minX, maxX = math.Min(minX, x[i]), math.Max(maxX, x[i])
		minY, maxY = math.Min(minY, y[i]), math.Max(maxY, y[i])
	}
	size := math.Max(maxX-minX, maxY-minY)
	if size == 0 {
		size = 1
	}

	root := &quad{x0: minX, y0: minY, size: size}
	for i := range x {
		root.insert(i, x, y, 0)
	}
	root.accumulate(x, y)
	return root
}

func (q *quad) insert(i int, x, y []float64, depth int) {
	if !q.internal {
		if len(q.points) == 0 || depth >= maxQuadDepth ||
			(x[q.points[0]] == x[i] && y[q.points[0]] == y[i]) {
			q.points = append(q.points, i)
			return
		}
		existing := q.points
		q.points = nil
		q.internal = true
		for _, j := range existing {
			q.childFor(j, x, y).insert(j, x, y, depth+1)
		}
	}
	q.childFor(i, x, y).insert(i, x, y, depth+1)
}

func (q *quad) childFor(i int, x, y []float64) *quad {
	half := q.size / 2
	idx := 0
	ox, oy := q.x0, q.y0
	if x[i] >= q.x0+half {
		idx |= 1
		ox += half
	}
	if y[i] >= q.y0+half {
		idx |= 2
		oy += half
	}
	if q.children[idx] == nil {
		q.children[idx] = &quad{x0: ox, y0: oy, size: half}
	}
	return q.children[idx]
}

func (q *quad) accumulate(x, y []float64) {
	if !q.internal {
		q.count = len(q.points)
		for _, i := range q.points {
			q.cx += x[i]
			q.cy += y[i]
		}
		if q.count > 0 {
			q.cx /= float64(q.count)
			q.cy /= float64(q.count)
		}
		return
	}
	for _, c := range q.children {
		if c == nil {
			continue
		}
		c.accumulate(x, y)
		q.count += c.count
		q.cx += c.cx * float64(c.count)
		q.cy += c.cy * float64(c.count)
	}
	if q.count > 0 {
		q.cx /= float64(q.count)
		q.cy /= float64(q.count)
	}
}

func (q *quad) contains(px, py float64) bool {
	return px >= q.x0 && px <= q.x0+q.size && py >= q.y0 && py <= q.y0+q.size
}

// applyTree adds the charge force on node i, treating distant cells as a
// single body at their centroid.
func (sim *simulation) applyTree(q *quad, i int, theta2 float64) {
	if q == nil || q.count == 0 {
		return
	}
	xi, yi := sim.x[i], sim.y[i]
	dx := q.cx - xi
	dy := q.cy - yi
	l := dx*dx + dy*dy

	if !q.contains(xi, yi) && q.size*q.size/theta2 < l {
		if dx == 0 {
			dx = jiggle(sim.p.Seed, sim.tick, i, -1, axisX)
			l += dx * dx
		}
		if dy == 0 {
			dy = jiggle(sim.p.Seed, sim.tick, i, -1, axisY)
			l += dy * dy
		}
		if l < distanceMin2 {
			l = math.Sqrt(distanceMin2 * l)
		}
		w := sim.p.RepulsionStrength * float64(q.count) * sim.alpha / l
		sim.dvx[i] += dx * w
		sim.dvy[i] += dy * w
		return
	}

	if q.internal {
		for _, c := range q.children {
			sim.applyTree(c, i, theta2)
		}
		return
	}
	for _, j := range q.points {
		if j != i {
			sim.charge(i, j)
		}
	}
}
