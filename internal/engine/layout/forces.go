package layout

import (
	"math"
)

// applyManyBody adds the pairwise charge force. Negative strength repels.
func (sim *simulation) applyManyBody() {
	if sim.p.RepulsionStrength == 0 || sim.n < 2 {
		return
	}
	if sim.useTree {
		tree := buildQuadtree(sim.x, sim.y)
		theta2 := sim.p.Theta * sim.p.Theta
		for i := range sim.n {
			sim.applyTree(tree, i, theta2)
		}
		return
	}
	for i := range sim.n {
		for j := range sim.n {
			if i != j {
				sim.charge(i, j)
			}
		}
	}
}

// charge applies the force of node j on node i.
func (sim *simulation) charge(i, j int) {
	dx := sim.x[j] - sim.x[i]
	dy := sim.y[j] - sim.y[i]
	l := dx*dx + dy*dy
	if dx == 0 {
		dx = sim.pairJiggle(i, j, axisX)
		l += dx * dx
	}
	if dy == 0 {
		dy = sim.pairJiggle(i, j, axisY)
		l += dy * dy
	}
	if l < distanceMin2 {
		l = math.Sqrt(distanceMin2 * l)
	}
	w := sim.p.RepulsionStrength * sim.alpha / l
	sim.dvx[i] += dx * w
	sim.dvy[i] += dy * w
}

// applyLinks pulls linked nodes toward LinkDistance. Each spring is scaled
// by the inverse of the smaller endpoint degree and split between the
// endpoints by degree, so hubs move less than leaves.
func (sim *simulation) applyLinks() {
	for _, ln := range sim.links {
		s, t := ln.source, ln.target
		dx := sim.x[t] + sim.vx[t] - sim.x[s] - sim.vx[s]
		dy := sim.y[t] + sim.vy[t] - sim.y[s] - sim.vy[s]
		if dx == 0 {
			dx = sim.pairJiggle(s, t, axisX)
		}
		if dy == 0 {
			dy = sim.pairJiggle(s, t, axisY)
		}
		l := math.Sqrt(dx*dx + dy*dy)
		l = (l - sim.p.LinkDistance) / l * sim.alpha * ln.strength
		dx *= l
		dy *= l
		sim.dvx[t] -= dx * ln.bias
		sim.dvy[t] -= dy * ln.bias
		sim.dvx[s] += dx * (1 - ln.bias)
		sim.dvy[s] += dy * (1 - ln.bias)
	}
}

// applyCollide separates overlapping discs. The force is proportional to
// the overlap and not cooled by alpha.
func (sim *simulation) applyCollide() {
	r := sim.p.CollisionRadius
	if r == 0 || sim.p.CollisionStrength == 0 || sim.n < 2 {
		return
	}
	px := make([]float64, sim.n)
	py := make([]float64, sim.n)
	for i := range sim.n {
		px[i] = sim.x[i] + sim.vx[i]
		py[i] = sim.y[i] + sim.vy[i]
	}

	minDist := 2 * r
	minDist2 := minDist * minDist
	g := newGrid(px, py, minDist)
	g.pairs(func(i, j int) {
		dx := px[i] - px[j]
		dy := py[i] - py[j]
		l := dx*dx + dy*dy
		if l >= minDist2 {
			return
		}
		if dx == 0 {
			dx = sim.pairJiggle(i, j, axisX)
			l += dx * dx
		}
		if dy == 0 {
			dy = sim.pairJiggle(i, j, axisY)
			l += dy * dy
		}
		l = math.Sqrt(l)
		l = (minDist - l) / l * sim.p.CollisionStrength
		dx *= l
		dy *= l
		// Equal radii split the correction evenly.
		sim.dvx[i] += dx * 0.5
		sim.dvy[i] += dy * 0.5
		sim.dvx[j] -= dx * 0.5
		sim.dvy[j] -= dy * 0.5
	})
}

// applyCentering pulls every node toward x = 0 and y = 0 independently.
func (sim *simulation) applyCentering() {
	k := sim.p.CenteringStrength * sim.alpha
	if k == 0 {
		return
	}
	for i := range sim.n {
		sim.dvx[i] -= sim.x[i] * k
		sim.dvy[i] -= sim.y[i] * k
	}
}
