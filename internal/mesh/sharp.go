package mesh

import (
	"github.com/RoaringBitmap/roaring"

	"ldraw-bridge/internal/edges"
	"ldraw-bridge/internal/ldraw"
)

// MarkSharp flags every mesh edge whose endpoints both lie within tol of
// the two ends of some raw type-2 line. Flagged edges get bevel weight 1.
// The returned bitmap holds the vertices touched by a flagged edge.
func MarkSharp(m *Mesh, raw []ldraw.Edge, tol float64) *roaring.Bitmap {
	flagged := roaring.New()
	if len(raw) == 0 || len(m.Edges) == 0 {
		return flagged
	}
	ix := edges.Build(m.Verts, raw, tol)
	for i := range m.Edges {
		e := &m.Edges[i]
		if !ix.Has(e.V[0], e.V[1]) {
			continue
		}
		e.Sharp = true
		e.BevelWeight = 1.0
		flagged.Add(uint32(e.V[0]))
		flagged.Add(uint32(e.V[1]))
	}
	return flagged
}
