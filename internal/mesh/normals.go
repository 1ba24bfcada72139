package mesh

import "ldraw-bridge/internal/mathutil"

// RecalcNormals makes face winding consistent across each connected
// patch, then orients every patch so its outermost face points away from
// the patch centre. It returns the number of faces flipped.
func RecalcNormals(m *Mesh) int {
	type use struct {
		face    int
		forward bool // face walks the edge low → high
	}
	adj := make(map[edgeKey][]use)
	for fi, f := range m.Faces {
		n := len(f.V)
		for i := 0; i < n; i++ {
			a, b := f.V[i], f.V[(i+1)%n]
			k := keyOf(a, b)
			adj[k] = append(adj[k], use{face: fi, forward: a < b})
		}
	}

	flip := make([]bool, len(m.Faces))
	visited := make([]bool, len(m.Faces))
	flipped := 0

	for seed := range m.Faces {
		if visited[seed] {
			continue
		}
		visited[seed] = true
		patch := []int{seed}
		for q := 0; q < len(patch); q++ {
			fi := patch[q]
			f := m.Faces[fi]
			n := len(f.V)
			for i := 0; i < n; i++ {
				a, b := f.V[i], f.V[(i+1)%n]
				fwd := (a < b) != flip[fi]
				for _, u := range adj[keyOf(a, b)] {
					if u.face == fi || visited[u.face] {
						continue
					}
					visited[u.face] = true
					// Neighbours must walk a shared edge in the opposite direction.
					flip[u.face] = u.forward == fwd
					patch = append(patch, u.face)
				}
			}
		}

		if m.patchFacesInward(patch, flip) {
			for _, fi := range patch {
				flip[fi] = !flip[fi]
			}
		}
	}

	for fi := range m.Faces {
		if flip[fi] {
			reverse(m.Faces[fi].V)
			flipped++
		}
	}
	if m.Normals != nil || flipped > 0 {
		m.ComputeNormals()
	}
	return flipped
}

// patchFacesInward checks the face farthest from the patch centroid: if
// its normal (after pending flips) points toward the centroid, the whole
// patch is inside out.
func (m *Mesh) patchFacesInward(patch []int, flip []bool) bool {
	var centre mathutil.Vec3
	count := 0
	for _, fi := range patch {
		for _, vi := range m.Faces[fi].V {
			centre = centre.Add(m.Verts[vi])
			count++
		}
	}
	if count == 0 {
		return false
	}
	centre = centre.Scale(1 / float64(count))

	far, farDist := -1, -1.0
	var farCentroid mathutil.Vec3
	for _, fi := range patch {
		c := m.faceCentroid(fi)
		if d := c.Dist(centre); d > farDist {
			far, farDist, farCentroid = fi, d, c
		}
	}
	if far < 0 || farDist < 1e-9 {
		return false
	}
	n := m.loopNormal(m.Faces[far].V)
	if flip[far] {
		n = n.Scale(-1)
	}
	return n.Dot(farCentroid.Sub(centre)) < 0
}

func (m *Mesh) faceCentroid(fi int) mathutil.Vec3 {
	var c mathutil.Vec3
	f := m.Faces[fi]
	for _, vi := range f.V {
		c = c.Add(m.Verts[vi])
	}
	return c.Scale(1 / float64(len(f.V)))
}
