// Package spatial provides a uniform-grid point index for fixed-radius
// neighbour queries.
package spatial

import (
	"math"
	"sort"

	"ldraw-bridge/internal/mathutil"
)

type cellKey [3]int64

// Grid buckets points into cubic cells of a fixed size. A query of radius
// r ≤ cell visits at most 27 cells.
type Grid struct {
	cell  float64
	pts   []mathutil.Vec3
	cells map[cellKey][]int
}

// NewGrid indexes pts. cell should be at least the largest query radius;
// non-positive sizes fall back to 1.
func NewGrid(pts []mathutil.Vec3, cell float64) *Grid {
	if cell <= 0 || math.IsNaN(cell) {
		cell = 1
	}
	g := &Grid{
		cell:  cell,
		pts:   pts,
		cells: make(map[cellKey][]int, len(pts)),
	}
	for i, p := range pts {
		k := g.key(p)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *Grid) key(p mathutil.Vec3) cellKey {
	return cellKey{
		int64(math.Floor(p[0] / g.cell)),
		int64(math.Floor(p[1] / g.cell)),
		int64(math.Floor(p[2] / g.cell)),
	}
}

// Len returns the number of indexed points.
func (g *Grid) Len() int {
	return len(g.pts)
}

// Within returns the indices of all points at distance ≤ r from p, in
// ascending index order.
func (g *Grid) Within(p mathutil.Vec3, r float64) []int {
	if r < 0 {
		return nil
	}
	span := int64(math.Ceil(r / g.cell))
	c := g.key(p)
	r2 := r * r

	var out []int
	for dx := -span; dx <= span; dx++ {
		for dy := -span; dy <= span; dy++ {
			for dz := -span; dz <= span; dz++ {
				for _, i := range g.cells[cellKey{c[0] + dx, c[1] + dy, c[2] + dz}] {
					d := g.pts[i].Sub(p)
					if d.Dot(d) <= r2 {
						out = append(out, i)
					}
				}
			}
		}
	}
	sort.Ints(out)
	return out
}
