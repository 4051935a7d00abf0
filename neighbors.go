package flocksphere

import (
	"math"
	"sort"

	"github.com/PrincetonUniversity/flocksphere/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// maxCells bounds the number of grid cells along each axis.
const maxCells = 64

// A Grid buckets points into cubic cells whose side is at least the query
// radius, so the neighbors of a point lie in its own cell or in one of the
// 26 adjacent ones. Its answers are identical to NeighborsBrute.
type Grid struct {
	pos    []geom.Vec
	radius float64
	origin float64
	side   float64
	n      int
	cells  map[int][]int
}

// NewGrid indexes pos for neighbor queries within radius.
// pos must not be modified while the grid is in use.
func NewGrid(pos []geom.Vec, radius float64) *Grid {
	g := &Grid{pos: pos, radius: radius, n: 1}
	var extent float64
	for _, p := range pos {
		extent = math.Max(extent, math.Max(math.Abs(p.X), math.Max(math.Abs(p.Y), math.Abs(p.Z))))
	}
	// pad the box so that no point sits on its upper face
	extent = extent*(1+1e-9) + 1e-12
	g.origin = -extent
	g.side = 2 * extent
	if radius > 0 && radius < 2*extent {
		g.n = int(math.Min(math.Floor(2*extent/radius), maxCells))
		g.side = 2 * extent / float64(g.n)
		if g.side < radius && g.n > 1 {
			// rounding left cells slightly too small
			g.n--
			g.side = 2 * extent / float64(g.n)
		}
	}
	g.cells = make(map[int][]int)
	for i, p := range pos {
		k := g.key(g.coords(p))
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *Grid) coord(x float64) int {
	c := int(math.Floor((x - g.origin) / g.side))
	if c < 0 {
		return 0
	}
	if c >= g.n {
		return g.n - 1
	}
	return c
}

func (g *Grid) coords(p geom.Vec) [3]int {
	return [3]int{g.coord(p.X), g.coord(p.Y), g.coord(p.Z)}
}

func (g *Grid) key(c [3]int) int {
	return (c[0]*g.n+c[1])*g.n + c[2]
}

// Neighbors appends to buf the sorted indices of the points other than i
// at a chord distance strictly less than the radius from point i.
func (g *Grid) Neighbors(i int, buf []int) []int {
	buf = buf[:0]
	if !(g.radius > 0) {
		return buf
	}
	p := g.pos[i]
	c := g.coords(p)
	for x := max(c[0]-1, 0); x <= min(c[0]+1, g.n-1); x++ {
		for y := max(c[1]-1, 0); y <= min(c[1]+1, g.n-1); y++ {
			for z := max(c[2]-1, 0); z <= min(c[2]+1, g.n-1); z++ {
				for _, j := range g.cells[g.key([3]int{x, y, z})] {
					if j != i && r3.Norm(r3.Sub(g.pos[j], p)) < g.radius {
						buf = append(buf, j)
					}
				}
			}
		}
	}
	sort.Ints(buf)
	return buf
}

// NeighborsBrute returns the sorted indices of the points other than i
// at a chord distance strictly less than radius from point i.
func NeighborsBrute(pos []geom.Vec, i int, radius float64) []int {
	var out []int
	for j, q := range pos {
		if j != i && geom.Chord(pos[i], q) < radius {
			out = append(out, j)
		}
	}
	return out
}
