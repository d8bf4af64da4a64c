package layout

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

const jiggleScale = 1e-6

const (
	axisX = iota
	axisY
)

// jiggle returns a tiny non-zero offset derived from the seed, the tick and
// the pair of nodes involved.
func jiggle(seed uint64, tick, a, b, axis int) float64 {
	var buf [40]byte
	binary.LittleEndian.PutUint64(buf[0:], seed)
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(tick)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(int64(a)))
	binary.LittleEndian.PutUint64(buf[24:], uint64(int64(b)))
	binary.LittleEndian.PutUint64(buf[32:], uint64(axis))

	h := xxhash.Sum64(buf[:])
	v := (float64(h>>11)/(1<<53) - 0.5) * jiggleScale
	if v == 0 {
		v = jiggleScale / 2
	}
	return v
}

// pairJiggle is antisymmetric: the offset seen from j is the negation of
// the offset seen from i, so both nodes are pushed apart along one line.
func (sim *simulation) pairJiggle(i, j, axis int) float64 {
	if i < j {
		return jiggle(sim.p.Seed, sim.tick, i, j, axis)
	}
	return -jiggle(sim.p.Seed, sim.tick, j, i, axis)
}
