package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ldraw-bridge/internal/mathutil"
	"ldraw-bridge/internal/mesh"
)

type fakeScene struct {
	nodes    []Node
	selected map[int]bool
	active   int // index+1, 0 for none
	texts    map[string][]string
}

func (f *fakeScene) ExportNodes(selectedOnly bool) []Node {
	var out []Node
	for i, n := range f.nodes {
		if selectedOnly && !f.selected[i] {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (f *fakeScene) ActiveNode() (Node, bool) {
	if f.active == 0 {
		return Node{}, false
	}
	return f.nodes[f.active-1], true
}

func (f *fakeScene) HeaderText(name string) ([]string, bool) {
	l, ok := f.texts[name]
	return l, ok
}

func TestFixRound(t *testing.T) {
	cases := []struct {
		x      float64
		places int
		want   string
	}{
		{1.00001, 3, "1"},
		{-0.0001, 3, "0"},
		{2.5, 0, "2"},
		{3.5, 0, "4"},
		{0.125, 2, "0.12"},
		{-1.5, 3, "-1.5"},
		{10, 3, "10"},
		{100, 0, "100"},
		{0.0005, 3, "0.001"},
		{-0.0, 2, "0"},
		{123.4560, 4, "123.456"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FixRound(c.x, c.places), "FixRound(%v, %d)", c.x, c.places)
	}
}

func quad(color int, z float64) *mesh.Mesh {
	m := &mesh.Mesh{Name: "q"}
	mat := m.MaterialIndex(mesh.Material{Name: "Material", Color: color})
	for _, v := range []mathutil.Vec3{{0, 0, z}, {1, 0, z}, {1, 1, z}, {0, 1, z}} {
		m.AddVertex(v)
	}
	m.Faces = append(m.Faces, mesh.Face{V: []int{0, 1, 2, 3}, Material: mat})
	m.RebuildEdges()
	return m
}

func tri(color int) *mesh.Mesh {
	m := &mesh.Mesh{Name: "t"}
	mat := m.MaterialIndex(mesh.Material{Name: "Material", Color: color})
	for _, v := range []mathutil.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}} {
		m.AddVertex(v)
	}
	m.Faces = append(m.Faces, mesh.Face{V: []int{0, 1, 2}, Material: mat})
	m.RebuildEdges()
	return m
}

func polyScene(meshes ...*mesh.Mesh) *fakeScene {
	sc := &fakeScene{texts: map[string][]string{"p.dat": {"0 Poly", "0 !LDRAW_ORG Part"}}, active: 1}
	for _, m := range meshes {
		sc.nodes = append(sc.nodes, Node{Name: m.Name, World: mathutil.Rotation, Mesh: m, Filename: "p.dat", ExportPolygons: true, Linked: true})
	}
	return sc
}

func TestPolygonsSortedAndGrouped(t *testing.T) {
	sc := polyScene(quad(4, 0), tri(1), quad(1, 2), tri(4))
	lines, err := New(Options{}).Lines(sc)
	require.NoError(t, err)

	body := lines[2:]
	assert.Equal(t, []string{
		"0 // Blue",
		"3 1 0 0 0 1 0 0 0 1 0",
		"4 1 0 0 2 1 0 2 1 1 2 0 1 2",
		"",
		"0 // Red",
		"3 4 0 0 0 1 0 0 0 1 0",
		"4 4 0 0 0 1 0 0 1 1 0 0 1 0",
	}, body)

	blanks := 0
	for _, l := range body {
		if l == "" {
			blanks++
		}
	}
	assert.Equal(t, 1, blanks)
	assert.NotEqual(t, "", body[0])
}

func TestPolygonCoordinatesUndoRotation(t *testing.T) {
	m := tri(4)
	sc := polyScene(m)
	// A world of Rotation cancels against the export conversion.
	lines, err := New(Options{}).Lines(sc)
	require.NoError(t, err)
	assert.Contains(t, lines, "3 4 0 0 0 1 0 0 0 1 0")

	sc.nodes[0].World = mathutil.Mat4Identity()
	lines, err = New(Options{}).Lines(sc)
	require.NoError(t, err)
	assert.Contains(t, lines, "3 4 0 0 0 1 0 0 0 0 1")
}

func TestSharpEdgesExportAsLines(t *testing.T) {
	m := quad(4, 0)
	m.Edges[0].Sharp = true
	lines, err := New(Options{}).Lines(polyScene(m))
	require.NoError(t, err)
	assert.Equal(t, "2 24 0 0 0 1 0 0", lines[len(lines)-1])
	assert.Equal(t, "0 // Edge_Colour", lines[len(lines)-2])
}

func TestUnknownPolygonColourIsInherit(t *testing.T) {
	lines, err := New(Options{}).Lines(polyScene(tri(9999)))
	require.NoError(t, err)
	assert.Contains(t, lines, "3 16 0 0 0 1 0 0 0 1 0")
}

func TestExportTriangulatesNgons(t *testing.T) {
	m := &mesh.Mesh{Name: "hex"}
	for _, v := range []mathutil.Vec3{{0, 0, 0}, {2, 0, 0}, {3, 1, 0}, {2, 2, 0}, {0, 2, 0}, {-1, 1, 0}} {
		m.AddVertex(v)
	}
	m.Faces = append(m.Faces, mesh.Face{V: []int{0, 1, 2, 3, 4, 5}, Material: -1})
	sc := polyScene(m)
	sc.nodes[0].World = mathutil.Mat4Identity()

	lines, err := New(Options{Triangulate: true}).Lines(sc)
	require.NoError(t, err)
	tris := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "3 16 ") {
			tris++
		}
	}
	assert.Equal(t, 4, tris)

	lines, err = New(Options{}).Lines(sc)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestSubfileModelVersusPart(t *testing.T) {
	world := mathutil.Compose(mathutil.Rotation, mathutil.Translate(mathutil.Vec3{1, 2, 3}))
	four := 4
	node := Node{World: world, Mesh: tri(1), Filename: "3001.dat", Color: &four}

	model := &fakeScene{nodes: []Node{node}, active: 1, texts: map[string][]string{"3001.dat": {"0 !LDRAW_ORG Model"}}}
	lines, err := New(Options{}).Lines(model)
	require.NoError(t, err)
	assert.Equal(t, "1 4 1 2 3 1 0 0 0 1 0 0 0 1 3001.dat", lines[1])

	part := &fakeScene{nodes: []Node{node}, active: 1, texts: map[string][]string{"3001.dat": {"0 !LDRAW_ORG Part"}}}
	lines, err = New(Options{}).Lines(part)
	require.NoError(t, err)
	assert.Equal(t, "1 4 1 2 3 1 0 0 0 0 1 0 -1 0 3001.dat", lines[1])

	unofficial := &fakeScene{nodes: []Node{node}, active: 1, texts: map[string][]string{"3001.dat": {"0 !LDRAW_ORG LCAD Unofficial_Model"}}}
	lines, err = New(Options{}).Lines(unofficial)
	require.NoError(t, err)
	assert.Equal(t, "1 4 1 2 3 1 0 0 0 1 0 0 0 1 3001.dat", lines[1])
}

func TestSubfileColourAndPrecision(t *testing.T) {
	world := mathutil.Compose(mathutil.Rotation, mathutil.Translate(mathutil.Vec3{1.23456, 0, 0}))
	one := 1
	sc := &fakeScene{
		nodes: []Node{
			{World: world, Mesh: tri(14), Filename: "a.dat"},
			{World: world, Mesh: tri(14), Filename: "b.dat", Precision: &one},
			{World: world, Filename: "empty"},
			{World: world, Mesh: tri(14)},
		},
		active: 1,
		texts:  map[string][]string{"a.dat": {"0 !LDRAW_ORG Model"}},
	}
	lines, err := New(Options{}).Lines(sc)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "1 14 1.235 0 0 1 0 0 0 1 0 0 0 1 a.dat", lines[1])
	assert.Equal(t, "1 14 1.2 0 0 1 0 0 0 1 0 0 0 1 b.dat", lines[2])
}

func TestSelectionOnly(t *testing.T) {
	sc := &fakeScene{
		nodes: []Node{
			{World: mathutil.Rotation, Mesh: tri(4), Filename: "a.dat"},
			{World: mathutil.Rotation, Mesh: tri(4), Filename: "b.dat"},
		},
		selected: map[int]bool{1: true},
		active:   1,
		texts:    map[string][]string{"a.dat": {"0 !LDRAW_ORG Model"}},
	}
	lines, err := New(Options{SelectionOnly: true}).Lines(sc)
	require.NoError(t, err)
	assert.Equal(t, []string{"0 !LDRAW_ORG Model", "1 4 0 0 0 1 0 0 0 1 0 0 0 1 b.dat"}, lines)
}

func TestPreconditions(t *testing.T) {
	_, err := New(Options{}).Lines(&fakeScene{})
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))

	sc := &fakeScene{nodes: []Node{{Filename: "x.dat"}}, active: 1, texts: map[string][]string{}}
	_, err = New(Options{}).Lines(sc)
	assert.True(t, IsPrecondition(err))

	dir := t.TempDir()
	out := filepath.Join(dir, "out.ldr")
	require.NoError(t, os.WriteFile(out, []byte("keep\n"), 0o644))
	assert.Error(t, New(Options{}).WriteFile(out, sc))
	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "keep\n", string(raw))
}

func TestWriteFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.ldr")
	require.NoError(t, New(Options{}).WriteFile(out, polyScene(tri(4))))
	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "0 Poly\n0 !LDRAW_ORG Part\n0 // Red\n3 4 0 0 0 1 0 0 0 1 0\n", string(raw))

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
