package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ldraw-bridge/internal/ldraw"
	"ldraw-bridge/internal/mathutil"
)

func TestAppendEdgesTransforms(t *testing.T) {
	s := New()
	s.AppendEdges(mathutil.Translate(mathutil.Vec3{0, 5, 0}), []ldraw.Edge{{{0, 0, 0}, {1, 0, 0}}})
	assert.Equal(t, ldraw.Edge{{0, 5, 0}, {1, 5, 0}}, s.Edges[0])
}

func TestAppendFacesKeepsOrder(t *testing.T) {
	s := New()
	tri := ldraw.Face{Vertices: make([]mathutil.Vec3, 3), Color: 16}
	s.AppendFaces(mathutil.Mat4Identity(), 4, []ldraw.Face{tri})
	s.AppendFaces(mathutil.Mat4Identity(), 1, nil)
	s.AppendFaces(mathutil.Scale(2), 2, []ldraw.Face{tri, tri})

	assert.Len(t, s.Records, 2)
	assert.Equal(t, 4, s.Records[0].ParentColor)
	assert.Equal(t, 2, s.Records[1].ParentColor)
	assert.Equal(t, 3, s.FaceCount())
}

func TestSealedSetRejectsAppends(t *testing.T) {
	s := New()
	s.Seal()
	assert.True(t, s.Sealed())
	assert.Panics(t, func() { s.AppendEdges(mathutil.Mat4Identity(), nil) })
}

func TestResolveFace(t *testing.T) {
	inherit := ldraw.Face{Color: ldraw.ColorInherit}
	own := ldraw.Face{Color: 4}

	assert.Equal(t, FaceInfo{Color: 1}, ResolveFace(inherit, 1))
	assert.Equal(t, FaceInfo{Color: 4}, ResolveFace(own, 1))
	assert.Equal(t, FaceInfo{Color: 24, UseEdgeColor: true}, ResolveFace(inherit, 24))
	assert.Equal(t, FaceInfo{Color: 4, UseEdgeColor: true}, ResolveFace(own, 24))
}
