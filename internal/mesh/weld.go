package mesh

import (
	"github.com/RoaringBitmap/roaring"

	"ldraw-bridge/internal/spatial"
)

// Weld merges vertices closer than dist. When subset is non-nil only
// vertices in it take part. Each vertex collapses onto the lowest-index
// vertex within range; faces that lose a corner below three are removed.
// It returns the number of vertices removed.
func Weld(m *Mesh, dist float64, subset *roaring.Bitmap) int {
	if len(m.Verts) == 0 || dist < 0 {
		return 0
	}
	in := func(i int) bool {
		return subset == nil || subset.Contains(uint32(i))
	}

	grid := spatial.NewGrid(m.Verts, dist)
	target := make([]int, len(m.Verts))
	for i := range target {
		target[i] = -1
	}
	merged := roaring.New()
	for i := range m.Verts {
		if target[i] != -1 {
			continue
		}
		target[i] = i
		if !in(i) {
			continue
		}
		for _, j := range grid.Within(m.Verts[i], dist) {
			if j > i && target[j] == -1 && in(j) {
				target[j] = i
				merged.Add(uint32(j))
			}
		}
	}
	if merged.IsEmpty() {
		return 0
	}

	// Compact surviving vertices, keeping their relative order.
	remap := make([]int, len(m.Verts))
	verts := m.Verts[:0:0]
	for i, v := range m.Verts {
		if target[i] == i {
			remap[i] = len(verts)
			verts = append(verts, v)
		}
	}
	for i := range remap {
		remap[i] = remap[target[i]]
	}

	faces := m.Faces[:0:0]
	for _, f := range m.Faces {
		loop := make([]int, 0, len(f.V))
		for _, vi := range f.V {
			nv := remap[vi]
			if len(loop) > 0 && loop[len(loop)-1] == nv {
				continue
			}
			loop = append(loop, nv)
		}
		for len(loop) > 1 && loop[0] == loop[len(loop)-1] {
			loop = loop[:len(loop)-1]
		}
		if len(loop) < 3 {
			continue
		}
		f.V = loop
		faces = append(faces, f)
	}

	index := make(map[edgeKey]int, len(m.Edges))
	edges := m.Edges[:0:0]
	for _, e := range m.Edges {
		a, b := remap[e.V[0]], remap[e.V[1]]
		if a == b {
			continue
		}
		k := keyOf(a, b)
		if i, ok := index[k]; ok {
			edges[i].Sharp = edges[i].Sharp || e.Sharp
			if e.BevelWeight > edges[i].BevelWeight {
				edges[i].BevelWeight = e.BevelWeight
			}
			continue
		}
		index[k] = len(edges)
		e.V = [2]int{a, b}
		edges = append(edges, e)
	}

	m.Verts = verts
	m.Faces = faces
	m.Edges = edges
	if m.Normals != nil {
		m.ComputeNormals()
	}
	return int(merged.GetCardinality())
}
