package workload

import (
	mrand "math/rand"

	"github.com/weiihann/kernbench/buffer"
	"github.com/weiihann/kernbench/device"
	"github.com/weiihann/kernbench/verify"
)

const (
	// BFSMaxIterations caps the level-by-level relaxation.
	BFSMaxIterations = 50

	bfsRoot       = 0
	bfsMaxSources = 100
	bfsMaxTargets = 10
)

// BFS computes the depth of every node reachable from node 0 in a dense
// adjacency matrix, one level per sweep.
type BFS struct{}

func (BFS) Profile() Profile {
	return Profile{
		Name:            "bfs",
		Description:     "breadth-first search over a dense adjacency matrix",
		Entry:           "runBFS",
		GeneratedKernel: "bfs_runBFS_generated.cl",
		CustomKernel:    "bfs_runBFS_custom.cl",
		DefaultSize:     Size{X: 1000},
		Warmup:          10,
		Iterations:      30,
		Unit:            "MNodes/s",
		Scale:           1e6,
	}
}

func (w BFS) Generate(rng *mrand.Rand, size Size) (Instance, error) {
	if err := w.Profile().CheckSize(size); err != nil {
		return nil, err
	}

	n := size.X
	adj := make(buffer.Int32, n*n)

	sources := min(n/10, bfsMaxSources)
	if sources < 1 {
		sources = 1
	}

	targets := min(bfsMaxTargets, n)

	for k := 0; k < sources; k++ {
		from := rng.Intn(n)
		if k == 0 {
			from = bfsRoot
		}

		for i := 0; i < targets; i++ {
			connect(adj, n, from, rng.Intn(n))
		}
	}

	return &bfsInstance{n: n, adjacency: adj}, nil
}

// connect adds the edge from -> to unless it is a self loop or already
// present.
func connect(adj buffer.Int32, n, from, to int) {
	if from != to && adj[from*n+to] == 0 {
		adj[from*n+to] = 1
	}
}

type bfsInstance struct {
	n         int
	adjacency buffer.Int32
}

func (b *bfsInstance) Inputs() []buffer.Buffer {
	return []buffer.Buffer{b.adjacency}
}

func (b *bfsInstance) Operations() float64 {
	return float64(b.n)
}

func (b *bfsInstance) Validate(ref, cand buffer.Buffer) (verify.Outcome, error) {
	return verify.Compare(ref, cand, verify.ExactPolicy())
}

func (b *bfsInstance) NewRun() Run {
	return &bfsRun{
		inst:     b,
		vertices: make(buffer.Int32, b.n),
		modify:   make(buffer.Int32, 1),
		depth:    make(buffer.Int32, 1),
	}
}

// bfsRun carries the vertex depths plus the two single-element buffers
// that drive each sweep: modify is set to 1 before a sweep and cleared
// by any update, depth holds the level being expanded.
type bfsRun struct {
	inst     *bfsInstance
	vertices buffer.Int32
	modify   buffer.Int32
	depth    buffer.Int32
}

func (r *bfsRun) Reset() {
	r.vertices.Fill(-1)
	r.vertices[bfsRoot] = 0
	r.modify[0] = 1
	r.depth[0] = 0
}

func (r *bfsRun) Reference() Convergence {
	c, _ := Converge(BFSMaxIterations, func(iter int) (bool, error) {
		r.modify[0] = 1
		r.depth[0] = int32(iter)
		r.sweep()

		return r.modify[0] == 0, nil
	})

	return c
}

func (r *bfsRun) sweep() {
	n := r.inst.n
	adj := r.inst.adjacency
	level := r.depth[0]

	for from := 0; from < n; from++ {
		for to := 0; to < n; to++ {
			if adj[from*n+to] != 1 {
				continue
			}

			if r.vertices[from] == level && r.vertices[to] == -1 {
				r.vertices[to] = level + 1
				r.modify[0] = 0
			}
		}
	}
}

func (r *bfsRun) Bindings() ([]device.Binding, *device.Geometry) {
	n := r.inst.n

	return []device.Binding{
		device.Buffer("vertices", r.vertices, device.ReadWrite),
		device.Buffer("adjacencyMatrix", r.inst.adjacency, device.ReadOnly),
		device.Scalar("numNodes", int32(n)),
		device.Buffer("modify", r.modify, device.ReadWrite),
		device.Buffer("currentDepth", r.depth, device.ReadOnly),
	}, geometry(device.Geometry2D(n, n, device.DefaultLocalSize))
}

func (r *bfsRun) Device(plan device.Plan) (Convergence, error) {
	return Converge(BFSMaxIterations, func(iter int) (bool, error) {
		r.modify[0] = 1
		r.depth[0] = int32(iter)

		if err := plan.Execute(); err != nil {
			return false, err
		}

		return r.modify[0] == 0, nil
	})
}

func (r *bfsRun) Output() buffer.Buffer {
	return r.vertices
}
