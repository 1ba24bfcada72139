// Package mesh turns accumulated part geometry into indexed mesh buffers
// with per-face materials and sharp-edge flags.
package mesh

import (
	"fmt"
	"image/color"

	"ldraw-bridge/internal/ldraw"
	"ldraw-bridge/internal/mathutil"
)

// Kind says how a host should present the mesh.
type Kind int

const (
	KindSurface Kind = iota
	KindLines        // wireframe overlay built from type-2 lines
	KindStrokes      // the same lines as pen strokes
)

// Face is a polygon loop of vertex indices.
type Face struct {
	V        []int
	Material int // index into Mesh.Materials, -1 for none
	Smooth   bool
}

// Edge is an undirected vertex pair.
type Edge struct {
	V           [2]int
	Sharp       bool
	BevelWeight float64
}

// Material is the host-independent description of a face colour. Shading
// parameters are derived from it by the host.
type Material struct {
	Name         string
	Color        int
	RGBA         color.NRGBA
	UseEdgeColor bool
	Finish       string
	Texmap       *ldraw.Texmap
	Slopes       []int
}

// Mesh is an indexed polygon mesh in part-local LDraw coordinates.
type Mesh struct {
	Name      string
	Filename  string
	Kind      Kind
	Verts     []mathutil.Vec3
	Faces     []Face
	Edges     []Edge
	Materials []Material
	Normals   []mathutil.Vec3 // per face, see ComputeNormals

	EdgeBevel  bool
	AutoSmooth float64 // radians, 0 disables
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(v mathutil.Vec3) int {
	m.Verts = append(m.Verts, v)
	return len(m.Verts) - 1
}

// MaterialIndex returns the slot for mat, appending it on first use.
func (m *Mesh) MaterialIndex(mat Material) int {
	for i, existing := range m.Materials {
		if existing.Name == mat.Name {
			return i
		}
	}
	m.Materials = append(m.Materials, mat)
	return len(m.Materials) - 1
}

// FaceMaterial returns the material of face i, or false when unassigned.
func (m *Mesh) FaceMaterial(i int) (Material, bool) {
	idx := m.Faces[i].Material
	if idx < 0 || idx >= len(m.Materials) {
		return Material{}, false
	}
	return m.Materials[idx], true
}

type edgeKey [2]int

func keyOf(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// RebuildEdges derives the edge list from face loops in face order,
// keeping flags of edges that already existed and any loose edges not
// used by a face.
func (m *Mesh) RebuildEdges() {
	old := make(map[edgeKey]Edge, len(m.Edges))
	for _, e := range m.Edges {
		old[keyOf(e.V[0], e.V[1])] = e
	}

	seen := make(map[edgeKey]bool, len(m.Edges))
	edges := make([]Edge, 0, len(m.Edges))
	for _, f := range m.Faces {
		n := len(f.V)
		for i := 0; i < n; i++ {
			a, b := f.V[i], f.V[(i+1)%n]
			if a == b {
				continue
			}
			k := keyOf(a, b)
			if seen[k] {
				continue
			}
			seen[k] = true
			e, ok := old[k]
			if !ok {
				e = Edge{V: [2]int{a, b}}
			}
			edges = append(edges, e)
		}
	}
	for _, e := range m.Edges {
		k := keyOf(e.V[0], e.V[1])
		if !seen[k] {
			seen[k] = true
			edges = append(edges, e)
		}
	}
	m.Edges = edges
}

// FindEdge returns the index of the edge joining a and b, or -1.
func (m *Mesh) FindEdge(a, b int) int {
	k := keyOf(a, b)
	for i, e := range m.Edges {
		if keyOf(e.V[0], e.V[1]) == k {
			return i
		}
	}
	return -1
}

// SharpEdges returns the number of edges flagged sharp.
func (m *Mesh) SharpEdges() int {
	n := 0
	for _, e := range m.Edges {
		if e.Sharp {
			n++
		}
	}
	return n
}

// Transform applies mt to every vertex in place. A mirroring transform
// reverses every loop so faces keep their facing.
func (m *Mesh) Transform(mt mathutil.Mat4) {
	for i, v := range m.Verts {
		m.Verts[i] = mt.MulPoint(v)
	}
	if mt.Det3() < 0 {
		for _, f := range m.Faces {
			reverse(f.V)
		}
	}
	if m.Normals != nil {
		m.ComputeNormals()
	}
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	c := *m
	c.Verts = append([]mathutil.Vec3(nil), m.Verts...)
	c.Faces = make([]Face, len(m.Faces))
	for i, f := range m.Faces {
		f.V = append([]int(nil), f.V...)
		c.Faces[i] = f
	}
	c.Edges = append([]Edge(nil), m.Edges...)
	c.Materials = append([]Material(nil), m.Materials...)
	c.Normals = append([]mathutil.Vec3(nil), m.Normals...)
	return &c
}

// ComputeNormals fills Normals from each face's winding (Newell's method).
func (m *Mesh) ComputeNormals() {
	m.Normals = make([]mathutil.Vec3, len(m.Faces))
	for i, f := range m.Faces {
		m.Normals[i] = m.loopNormal(f.V)
	}
}

func (m *Mesh) loopNormal(loop []int) mathutil.Vec3 {
	pts := make([]mathutil.Vec3, len(loop))
	for i, vi := range loop {
		pts[i] = m.Verts[vi]
	}
	return newell(pts).Normalize()
}

// newell returns the unnormalized area vector of a polygon.
func newell(pts []mathutil.Vec3) mathutil.Vec3 {
	var n mathutil.Vec3
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		n[0] += (a[1] - b[1]) * (a[2] + b[2])
		n[1] += (a[2] - b[2]) * (a[0] + b[0])
		n[2] += (a[0] - b[0]) * (a[1] + b[1])
	}
	return n
}

func reverse(v []int) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}

// GeometryError describes a face that could not be built.
type GeometryError struct {
	Part   string
	Face   int
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("mesh: %s face %d: %s", e.Part, e.Face, e.Reason)
}
