// Package layout computes stable 2D positions for a graph snapshot with a
// one-shot force simulation.
//
// Each iteration computes every force from a single copy of the positions
// and velocities, then integrates all nodes at once. A run is a pure
// function of the snapshot and the parameters, including the seed used to
// separate coincident nodes.
package layout

import (
	"math"

	"go.trai.ch/claimgraph/internal/core/domain"
)

const (
	initialRadius = 10.0
	// distanceMin2 bounds the many-body force for nodes closer than one unit.
	distanceMin2 = 1.0
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Engine runs layouts. It holds no state between runs.
type Engine struct{}

// NewEngine creates a new Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Layout positions the nodes of s. It panics with a domain.ErrInvalidParameter
// error when p is not valid.
func (e *Engine) Layout(s *domain.Snapshot, p domain.LayoutParams) *domain.PositionedSnapshot {
	return Layout(s, p)
}

// Layout positions the nodes of s. See Engine.Layout.
func Layout(s *domain.Snapshot, p domain.LayoutParams) *domain.PositionedSnapshot {
	if err := p.Validate(); err != nil {
		panic(err)
	}
	if s == nil || s.Len() == 0 {
		out := &domain.PositionedSnapshot{Nodes: []domain.PositionedNode{}, Edges: []domain.Edge{}}
		if s != nil {
			out.Fingerprint = s.Fingerprint()
		}
		return out
	}

	sim := newSimulation(s, p)
	for range p.Iterations {
		sim.step()
	}
	sim.settle()

	return sim.freeze(s)
}

type link struct {
	source, target int
	strength       float64
	bias           float64
}

type simulation struct {
	p     domain.LayoutParams
	n     int
	x, y  []float64
	vx    []float64
	vy    []float64
	dvx   []float64
	dvy   []float64
	links []link

	alpha      float64
	alphaDecay float64
	tick       int
	useTree    bool
}

func newSimulation(s *domain.Snapshot, p domain.LayoutParams) *simulation {
	n := s.Len()
	sim := &simulation{
		p:          p,
		n:          n,
		x:          make([]float64, n),
		y:          make([]float64, n),
		vx:         make([]float64, n),
		vy:         make([]float64, n),
		dvx:        make([]float64, n),
		dvy:        make([]float64, n),
		alpha:      1,
		alphaDecay: p.AlphaDecay(),
		useTree:    p.BarnesHutThreshold > 0 && n > p.BarnesHutThreshold,
	}
	sim.place(s)
	sim.links = buildLinks(s)
	return sim
}

// place seeds positions from node hints, or on a phyllotaxis spiral whose
// first point is the origin.
func (sim *simulation) place(s *domain.Snapshot) {
	for i := range sim.n {
		node := s.Node(i)
		if node.Position != nil {
			sim.x[i], sim.y[i] = node.Position.X, node.Position.Y
			continue
		}
		r := initialRadius * math.Sqrt(float64(i))
		a := float64(i) * initialAngle
		sim.x[i], sim.y[i] = r*math.Cos(a), r*math.Sin(a)
	}

	seen := make(map[domain.Point]struct{}, sim.n)
	for i := range sim.n {
		pt := domain.Point{X: sim.x[i], Y: sim.y[i]}
		if _, dup := seen[pt]; dup {
			sim.x[i] += jiggle(sim.p.Seed, -1, i, -1, axisX)
			sim.y[i] += jiggle(sim.p.Seed, -1, i, -1, axisY)
			pt = domain.Point{X: sim.x[i], Y: sim.y[i]}
		}
		seen[pt] = struct{}{}
	}
}

// buildLinks resolves edges to indices. Self-loops carry no spring.
func buildLinks(s *domain.Snapshot) []link {
	edges := s.Edges()
	degree := make([]int, s.Len())
	links := make([]link, 0, len(edges))
	for _, e := range edges {
		if e.IsSelfLoop() {
			continue
		}
		src, _ := s.Index(e.Source)
		dst, _ := s.Index(e.Target)
		degree[src]++
		degree[dst]++
		links = append(links, link{source: src, target: dst})
	}
	for i := range links {
		ds, dt := float64(degree[links[i].source]), float64(degree[links[i].target])
		links[i].strength = 1 / math.Min(ds, dt)
		links[i].bias = ds / (ds + dt)
	}
	return links
}

func (sim *simulation) step() {
	sim.alpha += (0 - sim.alpha) * sim.alphaDecay

	clear(sim.dvx)
	clear(sim.dvy)

	sim.applyManyBody()
	sim.applyLinks()
	sim.applyCollide()
	sim.applyCentering()

	keep := 1 - sim.p.VelocityDecay
	for i := range sim.n {
		sim.vx[i] = (sim.vx[i] + sim.dvx[i]) * keep
		sim.vy[i] = (sim.vy[i] + sim.dvy[i]) * keep
		sim.x[i] += sim.vx[i]
		sim.y[i] += sim.vy[i]
	}
	sim.tick++
}

func (sim *simulation) freeze(s *domain.Snapshot) *domain.PositionedSnapshot {
	out := &domain.PositionedSnapshot{
		Nodes:       make([]domain.PositionedNode, sim.n),
		Edges:       s.Edges(),
		Fingerprint: s.Fingerprint(),
	}
	for i := range sim.n {
		node := s.Node(i)
		out.Nodes[i] = domain.PositionedNode{
			ID:       node.ID,
			Payload:  node.Payload,
			Position: domain.Point{X: sim.x[i], Y: sim.y[i]},
		}
	}
	return out
}
