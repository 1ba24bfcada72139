// Package edges recovers which mesh edges correspond to explicit LDraw
// type-2 lines. The raw lines are transformed independently of the mesh
// vertices, so the match is by proximity rather than equality.
package edges

import (
	"ldraw-bridge/internal/ldraw"
	"ldraw-bridge/internal/mathutil"
	"ldraw-bridge/internal/spatial"
)

type pair [2]int

// Index is a symmetric relation over vertex indices: (a, b) is present
// when some raw edge has one endpoint near a and the other near b.
type Index struct {
	pairs map[pair]struct{}
}

// Build matches every raw edge endpoint against verts within tol. An
// endpoint near several vertices contributes all of them; over-marking is
// preferred to missing a crease.
func Build(verts []mathutil.Vec3, raw []ldraw.Edge, tol float64) *Index {
	ix := &Index{pairs: make(map[pair]struct{})}
	if len(verts) == 0 || len(raw) == 0 {
		return ix
	}

	grid := spatial.NewGrid(verts, tol)
	for _, e := range raw {
		near0 := grid.Within(e[0], tol)
		if len(near0) == 0 {
			continue
		}
		near1 := grid.Within(e[1], tol)
		for _, a := range near0 {
			for _, b := range near1 {
				ix.pairs[pair{a, b}] = struct{}{}
				ix.pairs[pair{b, a}] = struct{}{}
			}
		}
	}
	return ix
}

// Has reports whether (a, b) is a candidate sharp edge.
func (ix *Index) Has(a, b int) bool {
	_, ok := ix.pairs[pair{a, b}]
	return ok
}

// Len returns the number of ordered pairs.
func (ix *Index) Len() int {
	return len(ix.pairs)
}
