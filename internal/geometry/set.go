// Package geometry accumulates the faces and edges contributed by one
// top-level part's subtree, stored in the part's own local space.
package geometry

import (
	"ldraw-bridge/internal/ldraw"
	"ldraw-bridge/internal/mathutil"
)

// FaceRecord is the face list of one file occurrence inside the subtree,
// with the transform that places it in part space and the colour it
// inherited.
type FaceRecord struct {
	Matrix      mathutil.Mat4
	ParentColor int
	Faces       []ldraw.Face
}

// Set is the accumulator for one resolved identity. It is mutable only
// until Seal; a sealed set is shared by every instance of the identity.
type Set struct {
	Records []FaceRecord
	Edges   []ldraw.Edge
	sealed  bool
}

func New() *Set {
	return &Set{}
}

// AppendFaces records a file's faces. Face vertices stay untransformed
// until the mesh is built.
func (s *Set) AppendFaces(m mathutil.Mat4, parentColor int, faces []ldraw.Face) {
	s.mustBeOpen()
	if len(faces) == 0 {
		return
	}
	s.Records = append(s.Records, FaceRecord{Matrix: m, ParentColor: parentColor, Faces: faces})
}

// AppendEdges transforms a file's type-2 lines into part space.
func (s *Set) AppendEdges(m mathutil.Mat4, edges []ldraw.Edge) {
	s.mustBeOpen()
	for _, e := range edges {
		s.Edges = append(s.Edges, ldraw.Edge{m.MulPoint(e[0]), m.MulPoint(e[1])})
	}
}

// Seal freezes the set.
func (s *Set) Seal() {
	s.sealed = true
}

func (s *Set) Sealed() bool {
	return s.sealed
}

func (s *Set) mustBeOpen() {
	if s.sealed {
		panic("geometry: append to sealed set")
	}
}

// FaceCount returns the number of polygons across all records.
func (s *Set) FaceCount() int {
	n := 0
	for _, r := range s.Records {
		n += len(r.Faces)
	}
	return n
}

// FaceInfo is the resolved colouring of one face.
type FaceInfo struct {
	Color        int
	UseEdgeColor bool
	Texmap       *ldraw.Texmap
}

// ResolveFace applies the inheritance rules: the face's own colour wins
// unless it is 16, and an inherited 24 means the face takes the edge colour.
func ResolveFace(f ldraw.Face, parentColor int) FaceInfo {
	info := FaceInfo{Color: parentColor, Texmap: f.Texmap}
	if parentColor == ldraw.ColorEdge {
		info.UseEdgeColor = true
	}
	if f.Color != ldraw.ColorInherit {
		info.Color = f.Color
	}
	return info
}
