package layout

import "math"

const (
	// settleSweepCap multiplies SettleSweeps into the hard sweep limit.
	settleSweepCap = 16
	// settleStall is how many sweeps past SettleSweeps may pass without
	// reducing the worst overlap before settle gives up.
	settleStall = 8
)

// settle removes residual overlap left after the last iteration. Each
// sweep visits overlapping pairs in index order and moves both nodes apart
// in place, so later pairs see earlier corrections. Sweeping stops once a
// sweep finds no overlap. Past SettleSweeps it continues only while the
// worst overlap keeps shrinking.
func (sim *simulation) settle() {
	r := sim.p.CollisionRadius
	if r == 0 || sim.n < 2 || sim.p.SettleSweeps == 0 {
		return
	}
	minDist := 2 * r
	tol := sim.p.SettleTolerance

	best := math.Inf(1)
	stalled := 0
	for sweep := range sim.p.SettleSweeps * settleSweepCap {
		worst := 0.0

		g := newGrid(sim.x, sim.y, minDist)
		g.pairs(func(i, j int) {
			dx := sim.x[j] - sim.x[i]
			dy := sim.y[j] - sim.y[i]
			d := math.Sqrt(dx*dx + dy*dy)
			if d >= minDist-tol {
				return
			}
			worst = math.Max(worst, minDist-d)
			if d == 0 {
				dx = jiggle(sim.p.Seed, -2-sweep, i, j, axisX)
				dy = jiggle(sim.p.Seed, -2-sweep, i, j, axisY)
				d = math.Sqrt(dx*dx + dy*dy)
			}
			push := (minDist - d + tol) / 2 / d
			sim.x[i] -= dx * push
			sim.y[i] -= dy * push
			sim.x[j] += dx * push
			sim.y[j] += dy * push
		})
		if worst == 0 {
			return
		}

		if worst < best {
			best = worst
			stalled = 0
		} else {
			stalled++
		}
		if sweep+1 >= sim.p.SettleSweeps && stalled >= settleStall {
			return
		}
	}
}
