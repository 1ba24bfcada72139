package mesh

import (
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ldraw-bridge/internal/geometry"
	"ldraw-bridge/internal/ldraw"
	"ldraw-bridge/internal/mathutil"
)

func face(color int, pts ...mathutil.Vec3) ldraw.Face {
	return ldraw.Face{Vertices: pts, Color: color}
}

func setOf(faces ...ldraw.Face) *geometry.Set {
	s := geometry.New()
	s.AppendFaces(mathutil.Mat4Identity(), 4, faces)
	s.Seal()
	return s
}

func twoTriangles() *geometry.Set {
	return setOf(
		face(16, mathutil.Vec3{0, 0, 0}, mathutil.Vec3{1, 0, 0}, mathutil.Vec3{1, 1, 0}),
		face(16, mathutil.Vec3{0, 0, 0}, mathutil.Vec3{1, 1, 0}, mathutil.Vec3{0, 1, 0}),
	)
}

func TestBuildInsertsEveryLoop(t *testing.T) {
	m, st := Build("p", "p.dat", twoTriangles(), nil, Options{MergeDistance: 0.05})
	assert.Len(t, m.Verts, 6)
	assert.Len(t, m.Faces, 2)
	assert.Equal(t, 2, st.Faces)
	assert.Equal(t, 0, st.Welded)
	require.Len(t, m.Materials, 1)
	assert.Equal(t, "Material_4", m.Materials[0].Name)
}

func TestBuildRemoveDoubles(t *testing.T) {
	m, st := Build("p", "p.dat", twoTriangles(), nil, Options{MergeDistance: 0.05, RemoveDoubles: true})
	assert.Len(t, m.Verts, 4)
	assert.Equal(t, 2, st.Welded)
	assert.Len(t, m.Edges, 5)
}

func TestBuildTriangulatesNgons(t *testing.T) {
	pent := face(16,
		mathutil.Vec3{0, 0, 0}, mathutil.Vec3{2, 0, 0}, mathutil.Vec3{3, 1, 0},
		mathutil.Vec3{1, 2, 0}, mathutil.Vec3{-1, 1, 0})

	m, st := Build("p", "p.dat", setOf(pent), nil, Options{Triangulate: true})
	assert.Len(t, m.Faces, 3)
	assert.Equal(t, 1, st.Triangulated)
	for i := range m.Faces {
		assert.Greater(t, m.Normals[i][2], 0.0)
	}

	m, st = Build("p", "p.dat", setOf(pent), nil, Options{})
	assert.Empty(t, m.Faces)
	assert.Equal(t, 1, st.Dropped)
}

func TestBuildDropsDegenerateFaces(t *testing.T) {
	bad := face(16, mathutil.Vec3{0, 0, 0}, mathutil.Vec3{0, 0, 0}, mathutil.Vec3{1, 0, 0})
	m, st := Build("p", "p.dat", setOf(bad), nil, Options{})
	assert.Empty(t, m.Faces)
	assert.Equal(t, 1, st.Dropped)
}

func TestBuildEdgeColorMaterial(t *testing.T) {
	s := geometry.New()
	s.AppendFaces(mathutil.Mat4Identity(), ldraw.ColorEdge, []ldraw.Face{
		face(16, mathutil.Vec3{0, 0, 0}, mathutil.Vec3{1, 0, 0}, mathutil.Vec3{0, 1, 0}),
	})
	m, _ := Build("p", "p.dat", s, nil, Options{})
	require.Len(t, m.Materials, 1)
	assert.Equal(t, "Material_24_edge", m.Materials[0].Name)
	assert.True(t, m.Materials[0].UseEdgeColor)
}

func TestMaterialForSlopeAndTexture(t *testing.T) {
	colors := ldraw.DefaultColors()
	tex := &ldraw.Texmap{Method: "PLANAR", Texture: "Logo.PNG"}
	mat := MaterialFor(geometry.FaceInfo{Color: 4, Texmap: tex}, colors, PartSlopes("3039.dat"))
	assert.Equal(t, "Material_4_slope_logo.png", mat.Name)
	assert.Equal(t, []int{45}, mat.Slopes)
	assert.Nil(t, PartSlopes("3001.dat"))

	// Unknown codes fall back to the inherit colour.
	mat = MaterialFor(geometry.FaceInfo{Color: 9999}, colors, nil)
	assert.Equal(t, "Material_16", mat.Name)
}

func TestMarkSharpCloseVertices(t *testing.T) {
	const merge = 0.05
	m := &Mesh{}
	m.addLoop([]mathutil.Vec3{{0, 0, 0}, {0.03, 0, 0}, {5, 5, 0}}, 0, false)
	m.RebuildEdges()

	flagged := MarkSharp(m, []ldraw.Edge{{{0, 0, 0}, {0.03, 0, 0}}}, 2*merge)
	assert.Equal(t, 1, m.SharpEdges())
	i := m.FindEdge(0, 1)
	require.GreaterOrEqual(t, i, 0)
	assert.True(t, m.Edges[i].Sharp)
	assert.Equal(t, 1.0, m.Edges[i].BevelWeight)
	assert.Equal(t, []uint32{0, 1}, flagged.ToArray())
}

func TestBuildSharpensFromRawLines(t *testing.T) {
	s := geometry.New()
	s.AppendFaces(mathutil.Mat4Identity(), 4, []ldraw.Face{
		face(16, mathutil.Vec3{0, 0, 0}, mathutil.Vec3{1, 0, 0}, mathutil.Vec3{1, 1, 0}, mathutil.Vec3{0, 1, 0}),
	})
	s.AppendEdges(mathutil.Mat4Identity(), []ldraw.Edge{{{0, 0, 0}, {1, 0, 0}}, {{1, 1, 0}, {0, 1, 0}}})
	s.Seal()

	m, st := Build("p", "p.dat", s, nil, Options{MergeDistance: 0.05, RemoveDoubles: true, SharpenEdges: true, WeldSharp: true})
	assert.Equal(t, 2, st.Sharp)
	assert.Len(t, m.Edges, 4)
}

func TestWeldSubset(t *testing.T) {
	m := &Mesh{}
	m.addLoop([]mathutil.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, 0, false)
	m.addLoop([]mathutil.Vec3{{0, 0, 0}, {1, 0, 0}, {0, -1, 0}}, 0, false)
	m.RebuildEdges()

	// Only vertex 0 and its twin 3 may merge.
	n := Weld(m, 0.01, roaring.BitmapOf(0, 3))
	assert.Equal(t, 1, n)
	assert.Len(t, m.Verts, 5)
	assert.Equal(t, 0, m.Faces[1].V[0])
}

func cube() *Mesh {
	m := &Mesh{Verts: []mathutil.Vec3{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}}
	for _, loop := range [][]int{
		{0, 3, 2, 1}, {4, 5, 6, 7}, {0, 1, 5, 4},
		{3, 7, 6, 2}, {0, 4, 7, 3}, {1, 2, 6, 5},
	} {
		m.Faces = append(m.Faces, Face{V: loop})
	}
	m.RebuildEdges()
	return m
}

func assertOutward(t *testing.T, m *Mesh) {
	t.Helper()
	centre := mathutil.Vec3{0.5, 0.5, 0.5}
	for i := range m.Faces {
		out := m.faceCentroid(i).Sub(centre)
		assert.Greater(t, m.loopNormal(m.Faces[i].V).Dot(out), 0.0, "face %d", i)
	}
}

func TestRecalcNormalsFixesOneFace(t *testing.T) {
	m := cube()
	reverse(m.Faces[2].V)
	assert.Equal(t, 1, RecalcNormals(m))
	assertOutward(t, m)
}

func TestRecalcNormalsTurnsInsideOut(t *testing.T) {
	m := cube()
	for _, f := range m.Faces {
		reverse(f.V)
	}
	assert.Equal(t, 6, RecalcNormals(m))
	assertOutward(t, m)
}

func TestTriangulateConcave(t *testing.T) {
	pts := []mathutil.Vec3{{0, 0, 0}, {2, 0, 0}, {2, 1, 0}, {1, 1, 0}, {1, 2, 0}, {0, 2, 0}}
	tris, err := Triangulate(pts)
	require.NoError(t, err)
	require.Len(t, tris, 4)

	var area float64
	for _, tr := range tris {
		n := pts[tr[1]].Sub(pts[tr[0]]).Cross(pts[tr[2]].Sub(pts[tr[0]]))
		assert.Greater(t, n[2], 0.0)
		area += n.Len() / 2
	}
	assert.InDelta(t, 3.0, area, 1e-9)
}

func TestTriangulatePrefersWideAngles(t *testing.T) {
	// A long thin quad-like pentagon; the beauty choice never cuts a sliver
	// through the short side.
	pts := []mathutil.Vec3{{0, 0, 0}, {4, 0, 0}, {4, 1, 0}, {2, 1.0001, 0}, {0, 1, 0}}
	tris, err := Triangulate(pts)
	require.NoError(t, err)
	for _, tr := range tris {
		q := minAngle(pts[tr[0]], pts[tr[1]], pts[tr[2]])
		assert.Greater(t, q, 1e-3)
	}
}

func TestTriangulateRejectsDegenerate(t *testing.T) {
	_, err := Triangulate([]mathutil.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}})
	assert.Error(t, err)
	_, err = Triangulate([]mathutil.Vec3{{0, 0, 0}, {1, 0, 0}})
	assert.Error(t, err)
}

func TestTransformMirrorKeepsFacing(t *testing.T) {
	m := cube()
	m.Transform(mathutil.ScaleXYZ(-1, 1, 1))
	m.Transform(mathutil.Translate(mathutil.Vec3{1, 0, 0}))
	assertOutward(t, m)
}

func TestBuildEdgeMeshStrokes(t *testing.T) {
	s := geometry.New()
	s.AppendEdges(mathutil.Mat4Identity(), []ldraw.Edge{{{0, 0, 0}, {1, 0, 0}}, {{1, 1, 1}, {1, 1, 1}}})
	s.Seal()

	m := BuildEdgeMesh("gp_p", "p.dat", s, nil, true, 0.5)
	assert.Equal(t, KindStrokes, m.Kind)
	require.Len(t, m.Edges, 1)
	assert.Equal(t, mathutil.Vec3{0.5, 0, 0}, m.Verts[1])
	require.Len(t, m.Materials, 1)
	assert.Equal(t, "Material_0_edge", m.Materials[0].Name)
}

func TestBuildGapScale(t *testing.T) {
	m, _ := Build("p", "p.dat", twoTriangles(), nil, Options{GapScale: 0.5})
	for _, v := range m.Verts {
		assert.LessOrEqual(t, math.Max(v[0], v[1]), 0.5)
	}
}
