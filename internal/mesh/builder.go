package mesh

import (
	"errors"
	"log/slog"
	"math"

	"ldraw-bridge/internal/geometry"
	"ldraw-bridge/internal/ldraw"
	"ldraw-bridge/internal/mathutil"
)

// Options controls mesh cleanup after the raw faces are inserted.
type Options struct {
	MergeDistance      float64
	RemoveDoubles      bool
	RecalculateNormals bool
	Triangulate        bool // split n-gons above four corners, otherwise drop them
	SharpenEdges       bool
	WeldSharp          bool
	ShadeSmooth        bool
	AutoSmooth         float64 // radians; only set when the host smooths by angle
	BevelEdges         bool
	GapScale           float64 // applied to vertices when not 0 or 1
	Logger             *slog.Logger
}

// Stats counts what happened while building one mesh.
type Stats struct {
	Faces        int
	Dropped      int
	Triangulated int
	Welded       int
	Sharp        int
	Flipped      int
}

// Add accumulates s2 into s.
func (s *Stats) Add(s2 Stats) {
	s.Faces += s2.Faces
	s.Dropped += s2.Dropped
	s.Triangulated += s2.Triangulated
	s.Welded += s2.Welded
	s.Sharp += s2.Sharp
	s.Flipped += s2.Flipped
}

// Build turns a sealed geometry set into a surface mesh. Every face loop
// is inserted with its own vertices; sharing is only introduced by the
// optional weld step.
func Build(name, filename string, set *geometry.Set, colors *ldraw.ColorTable, opts Options) (*Mesh, Stats) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if colors == nil {
		colors = ldraw.DefaultColors()
	}

	m := &Mesh{Name: name, Filename: filename, Kind: KindSurface, EdgeBevel: opts.BevelEdges}
	if opts.AutoSmooth > 0 {
		m.AutoSmooth = opts.AutoSmooth
	}
	slopes := PartSlopes(filename)
	var st Stats

	faceNo := 0
	for _, rec := range set.Records {
		for _, f := range rec.Faces {
			faceNo++
			info := geometry.ResolveFace(f, rec.ParentColor)
			mat := m.MaterialIndex(MaterialFor(info, colors, slopes))

			pts := make([]mathutil.Vec3, len(f.Vertices))
			for i, v := range f.Vertices {
				pts[i] = rec.Matrix.MulPoint(v)
			}
			if err := m.insert(pts, mat, opts, &st); err != nil {
				st.Dropped++
				log.Debug("drop face", "part", filename, "err", &GeometryError{Part: filename, Face: faceNo, Reason: err.Error()})
			}
		}
	}

	m.RebuildEdges()

	if opts.RemoveDoubles {
		st.Welded += Weld(m, opts.MergeDistance, nil)
	}
	if opts.RecalculateNormals {
		st.Flipped = RecalcNormals(m)
	}
	if opts.SharpenEdges {
		flagged := MarkSharp(m, set.Edges, 2*opts.MergeDistance)
		if opts.WeldSharp && !flagged.IsEmpty() {
			st.Welded += Weld(m, 2*opts.MergeDistance, flagged)
		}
		st.Sharp = m.SharpEdges()
	}
	if opts.GapScale != 0 && opts.GapScale != 1 {
		m.Transform(mathutil.Scale(opts.GapScale))
	}
	m.ComputeNormals()

	st.Faces = len(m.Faces)
	log.Debug("built mesh", "mesh", name, "faces", st.Faces, "dropped", st.Dropped, "sharp", st.Sharp)
	return m, st
}

var errTooFewUnique = errors.New("fewer than 3 distinct vertices")

func (m *Mesh) insert(pts []mathutil.Vec3, mat int, opts Options, st *Stats) error {
	if countDistinct(pts) < 3 {
		return errTooFewUnique
	}
	if len(pts) <= 4 {
		m.addLoop(pts, mat, opts.ShadeSmooth)
		return nil
	}
	if !opts.Triangulate {
		return errors.New("n-gon with triangulation disabled")
	}
	tris, err := Triangulate(pts)
	if err != nil {
		return err
	}
	for _, t := range tris {
		m.addLoop([]mathutil.Vec3{pts[t[0]], pts[t[1]], pts[t[2]]}, mat, opts.ShadeSmooth)
	}
	st.Triangulated++
	return nil
}

func (m *Mesh) addLoop(pts []mathutil.Vec3, mat int, smooth bool) {
	loop := make([]int, len(pts))
	for i, p := range pts {
		loop[i] = m.AddVertex(p)
	}
	m.Faces = append(m.Faces, Face{V: loop, Material: mat, Smooth: smooth})
}

func countDistinct(pts []mathutil.Vec3) int {
	n := 0
	for i, p := range pts {
		dup := false
		for _, q := range pts[:i] {
			if p.Dist(q) < mathutil.NormalizeEpsilon {
				dup = true
				break
			}
		}
		if !dup {
			n++
		}
	}
	return n
}

// BuildEdgeMesh makes a line-only mesh from the raw type-2 lines of a set.
// With strokes set it is tagged for pen-stroke display and takes the edge
// colour of black.
func BuildEdgeMesh(name, filename string, set *geometry.Set, colors *ldraw.ColorTable, strokes bool, gapScale float64) *Mesh {
	if colors == nil {
		colors = ldraw.DefaultColors()
	}
	m := &Mesh{Name: name, Filename: filename, Kind: KindLines}
	if strokes {
		m.Kind = KindStrokes
		m.MaterialIndex(MaterialFor(geometry.FaceInfo{Color: 0, UseEdgeColor: true}, colors, nil))
	}
	for _, e := range set.Edges {
		if e[0].Dist(e[1]) < mathutil.NormalizeEpsilon {
			continue
		}
		a := m.AddVertex(e[0])
		b := m.AddVertex(e[1])
		m.Edges = append(m.Edges, Edge{V: [2]int{a, b}})
	}
	if gapScale != 0 && gapScale != 1 {
		m.Transform(mathutil.Scale(gapScale))
	}
	return m
}

// AutoSmoothAngle is the crease angle set on meshes in auto-smooth mode.
var AutoSmoothAngle = 51.1 * math.Pi / 180
