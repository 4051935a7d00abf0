package analysis

import (
	"math"
	"testing"

	fs "github.com/PrincetonUniversity/flocksphere"
	"github.com/PrincetonUniversity/flocksphere/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func randomSwarm(seed uint64, n int) []fs.Particle {
	rng := rand.New(rand.NewSource(seed))
	swarm := make([]fs.Particle, n)
	for i := range swarm {
		p := geom.RandomUnit(rng)
		v, _ := geom.RandomTangent(rng, p)
		swarm[i] = fs.Particle{Pos: p, Vel: v}
	}
	return swarm
}

func TestOrderParameter(t *testing.T) {
	assert.Equal(t, 0.0, OrderParameter(nil))

	aligned := []fs.Particle{
		fs.FromSpherical(1, math.Pi/2, 0, 2, 0),
		fs.FromSpherical(1, math.Pi/2, 0, 0.5, 0),
		fs.FromSpherical(1, math.Pi/2, 1e-9, 1, 0),
	}
	assert.InDelta(t, 1, OrderParameter(aligned), 1e-12)

	opposed := []fs.Particle{
		{Pos: geom.Vec{X: 1}, Vel: geom.Vec{Y: 1}},
		{Pos: geom.Vec{X: 1}, Vel: geom.Vec{Y: -1}},
	}
	assert.InDelta(t, 0, OrderParameter(opposed), 1e-15)

	// particles at rest do not contribute
	rest := append(opposed[:1:1], fs.Particle{Pos: geom.Vec{Z: 1}})
	assert.InDelta(t, 0.5, OrderParameter(rest), 1e-15)

	o := OrderParameter(randomSwarm(1, 2000))
	assert.Less(t, o, 0.1)
}

func TestClusters(t *testing.T) {
	swarm := []fs.Particle{
		{Pos: geom.Vec{X: 1}},
		{Pos: geom.Vec{Y: 1}},
		{Pos: geom.FromSpherical(1, math.Pi/2, 0.1)},
		{Pos: geom.Vec{Z: -1}},
		{Pos: geom.FromSpherical(1, math.Pi/2, 1.5)},
	}
	assert.Equal(t, [][]int{{0, 2}, {1, 4}, {3}}, Clusters(swarm, 0.2))
	assert.Equal(t, [][]int{{0}, {1}, {2}, {3}, {4}}, Clusters(swarm, 0))
	assert.Equal(t, [][]int{{0, 1, 2, 3, 4}}, Clusters(swarm, math.Inf(1)))
	assert.Nil(t, Clusters(nil, 1))

	// the bound is inclusive
	pair := []fs.Particle{{Pos: geom.Vec{X: 1}}, {Pos: geom.Vec{X: -1}}}
	assert.Equal(t, [][]int{{0, 1}}, Clusters(pair, 2))
	assert.Equal(t, [][]int{{0}, {1}}, Clusters(pair, math.Nextafter(2, 0)))
}

func TestClustersPermutation(t *testing.T) {
	swarm := randomSwarm(2, 300)
	ref := Clusters(swarm, 0.15)

	rng := rand.New(rand.NewSource(3))
	for k := 0; k < 5; k++ {
		perm := rng.Perm(len(swarm))
		shuffled := make([]fs.Particle, len(swarm))
		for i, j := range perm {
			shuffled[i] = swarm[j]
		}

		// map the clusters back to the original indices
		got := map[int]int{}
		for c, members := range Clusters(shuffled, 0.15) {
			for _, i := range members {
				got[perm[i]] = c
			}
		}
		for _, members := range ref {
			for _, i := range members[1:] {
				assert.Equal(t, got[members[0]], got[i])
			}
		}
		assert.Len(t, Clusters(shuffled, 0.15), len(ref))
	}
}

func TestFindClustersAlignment(t *testing.T) {
	swarm := []fs.Particle{
		fs.FromSpherical(1, math.Pi/2, 0, 1, 0),
		fs.FromSpherical(1, math.Pi/2, 0.05, 1, 0.1),
		fs.FromSpherical(1, math.Pi/2, 0.1, 1, math.Pi),
	}
	all := FindClusters(swarm, ClusterOptions{Radius: 0.2, MinAlignment: -1})
	require.Len(t, all, 1)
	assert.Equal(t, []int{0, 1, 2}, all[0].Members)
	assert.Less(t, all[0].Order, 0.5)

	cs := FindClusters(swarm, ClusterOptions{Radius: 0.2, MinAlignment: 0.9})
	require.Len(t, cs, 2)
	assert.Equal(t, []int{0, 1}, cs[0].Members)
	assert.Equal(t, []int{2}, cs[1].Members)
	assert.Greater(t, cs[0].Order, 0.99)
	assert.InDelta(t, 1, cs[1].Order, 1e-15)
}

func TestSizeHistogram(t *testing.T) {
	sizes := ClusterSizes([][]int{{0, 3}, {1}, {2, 4, 5}, {6}})
	assert.Equal(t, []int{1, 1, 2, 3}, sizes)
	assert.Equal(t, []float64{2, 1, 1, 0, 0, 0, 0}, SizeHistogram(sizes, 7))
	assert.Nil(t, SizeHistogram(sizes, 0))
}

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{100, 1, 2, 3, 4, 5}, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Samples)
	assert.InDelta(t, 3, s.Mean, 1e-15)
	assert.InDelta(t, math.Sqrt(2.5), s.Std, 1e-15)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)

	s, err = Summarize([]float64{7}, -3)
	require.NoError(t, err)
	assert.Equal(t, Summary{Samples: 1, Mean: 7, Min: 7, Max: 7}, s)

	_, err = Summarize([]float64{1, 2}, 2)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestSeries(t *testing.T) {
	a := []fs.Particle{
		{Pos: geom.Vec{X: 1}, Vel: geom.Vec{Y: 1}},
		{Pos: geom.Vec{X: -1}, Vel: geom.Vec{Y: 1}},
	}
	b := []fs.Particle{
		{Pos: geom.Vec{X: 1}, Vel: geom.Vec{Y: 1}},
		{Pos: geom.Vec{X: -1}, Vel: geom.Vec{Y: -1}},
	}
	frames := []fs.Frame{{Step: 1, Timestamp: 0.1, Particles: a}, {Step: 2, Timestamp: 0.2, Particles: b}}

	os := OrderSeries(frames)
	require.Len(t, os, 2)
	assert.Equal(t, 2, os[1].Step)
	assert.InDelta(t, 1, os[0].Order, 1e-15)
	assert.InDelta(t, 0, os[1].Order, 1e-15)
	assert.Equal(t, []float64{os[0].Order, os[1].Order}, Orders(os))

	cs := ClusterSeries(frames, ClusterOptions{Radius: 0.5, MinAlignment: -1})
	require.Len(t, cs, 2)
	assert.Equal(t, 2, cs[0].Count)
	assert.Equal(t, 1, cs[0].Largest)
	assert.Equal(t, []float64{2, 0}, cs[0].Histogram)

	cs = ClusterSeries(frames, ClusterOptions{Radius: 3, MinAlignment: -1})
	assert.Equal(t, 1, cs[1].Count)
	assert.Equal(t, 2, cs[1].Largest)
	assert.InDelta(t, 0, cs[1].Clusters[0].Order, 1e-15)
}
