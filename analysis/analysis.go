// Package analysis measures the collective state of a flock: its global
// alignment, the groups it splits into, and how both evolve over a run.
package analysis

import (
	"errors"
	"math"
	"sort"

	fs "github.com/PrincetonUniversity/flocksphere"
	"github.com/PrincetonUniversity/flocksphere/geom"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// ErrNoSamples is returned by Summarize when nothing is left to average.
var ErrNoSamples = errors.New("analysis: no samples")

// OrderParameter returns the norm of the mean unit heading of swarm, from
// 0 for uncorrelated headings to 1 for perfect alignment. Particles without
// a heading count as zero vectors. An empty swarm has an order of 0.
func OrderParameter(swarm []fs.Particle) float64 {
	if len(swarm) == 0 {
		return 0
	}
	var sum geom.Vec
	for _, p := range swarm {
		if u, err := p.Heading(); err == nil {
			sum = r3.Add(sum, u)
		}
	}
	return math.Min(r3.Norm(sum)/float64(len(swarm)), 1)
}

// ClusterOptions defines when two particles belong to the same cluster.
type ClusterOptions struct {
	// Radius is the largest chord distance between linked particles.
	Radius float64

	// MinAlignment is the smallest cosine between the headings of linked
	// particles, once transported to the same point. Values of -1 or less
	// link particles whatever their headings.
	MinAlignment float64
}

// A Cluster is a connected group of particles.
type Cluster struct {
	Members []int   `json:"members"` // sorted particle indices
	Order   float64 `json:"order"`   // order parameter of the members
}

// Clusters returns the connected components of the graph linking
// particles at a chord distance of at most radius. Each component is
// sorted, and components are sorted by their smallest index, so the
// partition does not depend on the order in which it was discovered.
func Clusters(swarm []fs.Particle, radius float64) [][]int {
	return components(swarm, ClusterOptions{Radius: radius, MinAlignment: -1})
}

// FindClusters is Clusters with an additional alignment criterion.
// Clusters are returned in the order of Clusters.
func FindClusters(swarm []fs.Particle, opts ClusterOptions) []Cluster {
	cc := components(swarm, opts)
	out := make([]Cluster, len(cc))
	members := make([]fs.Particle, 0, len(swarm))
	for i, c := range cc {
		members = members[:0]
		for _, j := range c {
			members = append(members, swarm[j])
		}
		out[i] = Cluster{Members: c, Order: OrderParameter(members)}
	}
	return out
}

func components(swarm []fs.Particle, opts ClusterOptions) [][]int {
	if len(swarm) == 0 {
		return nil
	}
	g := simple.NewUndirectedGraph()
	pos := make([]geom.Vec, len(swarm))
	for i, p := range swarm {
		g.AddNode(simple.Node(i))
		pos[i] = p.Pos
	}

	// the grid has a strict bound; the next float turns it into ≤ radius
	grid := fs.NewGrid(pos, math.Nextafter(opts.Radius, math.Inf(1)))
	var buf []int
	for i, p := range swarm {
		buf = grid.Neighbors(i, buf)
		for _, j := range buf {
			if j < i || !aligned(p, swarm[j], opts.MinAlignment) {
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(j)))
		}
	}

	var cc [][]int
	for _, nodes := range topo.ConnectedComponents(g) {
		c := make([]int, len(nodes))
		for k, n := range nodes {
			c[k] = int(n.ID())
		}
		sort.Ints(c)
		cc = append(cc, c)
	}
	sort.Slice(cc, func(a, b int) bool { return cc[a][0] < cc[b][0] })
	return cc
}

func aligned(p, q fs.Particle, minCos float64) bool {
	if minCos <= -1 {
		return true
	}
	u, err := p.Heading()
	if err != nil {
		return false
	}
	v, err := geom.Normalize(geom.Transport(q.Pos, p.Pos, q.Vel))
	if err != nil {
		return false
	}
	return r3.Dot(u, v) >= minCos
}

// ClusterSizes returns the sizes of clusters in increasing order.
func ClusterSizes(clusters [][]int) []int {
	sizes := make([]int, len(clusters))
	for i, c := range clusters {
		sizes[i] = len(c)
	}
	sort.Ints(sizes)
	return sizes
}

// SizeHistogram counts the clusters of each size from 1 to n:
// element s-1 of the result is the number of clusters of size s.
func SizeHistogram(sizes []int, n int) []float64 {
	if n < 1 {
		return nil
	}
	x := make([]float64, 0, len(sizes))
	for _, s := range sizes {
		if s >= 1 && s <= n {
			x = append(x, float64(s))
		}
	}
	sort.Float64s(x)
	dividers := floats.Span(make([]float64, n+1), 0.5, float64(n)+0.5)
	return stat.Histogram(nil, dividers, x, nil)
}

// Summary contains the statistics of a series.
type Summary struct {
	Samples int     `json:"samples"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"` // unbiased, 0 for a single sample
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Summarize returns the statistics of values after dropping the first
// burnIn of them.
func Summarize(values []float64, burnIn int) (Summary, error) {
	if burnIn < 0 {
		burnIn = 0
	}
	if burnIn >= len(values) {
		return Summary{}, ErrNoSamples
	}
	x := values[burnIn:]
	s := Summary{Samples: len(x), Min: floats.Min(x), Max: floats.Max(x)}
	if len(x) == 1 {
		s.Mean = x[0]
		return s, nil
	}
	s.Mean, s.Std = stat.MeanStdDev(x, nil)
	return s, nil
}
