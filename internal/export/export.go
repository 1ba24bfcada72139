// Package export writes scene objects back out as LDraw text.
package export

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"ldraw-bridge/internal/ldraw"
	"ldraw-bridge/internal/mathutil"
	"ldraw-bridge/internal/mesh"
)

// DefaultPrecision is the number of decimals written when neither the
// node nor the options say otherwise.
const DefaultPrecision = 3

// Node is the exporter's read-only view of one scene object.
type Node struct {
	Name           string
	World          mathutil.Mat4
	Mesh           *mesh.Mesh // nil for empties
	Filename       string
	Color          *int
	Precision      *int
	ExportPolygons bool
	Linked         bool
}

// Scene is what the exporter needs from a host scene.
type Scene interface {
	ExportNodes(selectedOnly bool) []Node
	ActiveNode() (Node, bool)
	HeaderText(name string) ([]string, bool)
}

// PreconditionError means the export cannot start; nothing is written.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "export: " + e.Reason
}

// Options configures an Exporter.
type Options struct {
	Precision     int
	SelectionOnly bool
	Triangulate   bool
	RemoveDoubles bool
	MergeDistance float64
	Colors        *ldraw.ColorTable
	Logger        *slog.Logger
}

type Exporter struct {
	opts Options
	log  *slog.Logger
}

func New(opts Options) *Exporter {
	if opts.Colors == nil {
		opts.Colors = ldraw.DefaultColors()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Exporter{opts: opts, log: log}
}

type polyLine struct {
	typ    int
	color  int
	fields []string
}

func (p polyLine) String() string {
	return strconv.Itoa(p.typ) + " " + strconv.Itoa(p.color) + " " + strings.Join(p.fields, " ")
}

// Lines builds the output text. The header text named by the active
// node's filename comes first, then one type-1 line per subfile node, then
// polygon lines grouped by colour.
func (e *Exporter) Lines(sc Scene) ([]string, error) {
	active, ok := sc.ActiveNode()
	if !ok || active.Filename == "" {
		return nil, &PreconditionError{Reason: "no active object with an LDraw filename"}
	}
	header, ok := sc.HeaderText(active.Filename)
	if !ok {
		return nil, &PreconditionError{Reason: fmt.Sprintf("no header text %q", active.Filename)}
	}

	lines := append([]string(nil), header...)
	isModel := headerIsModel(header)

	var polys []polyLine
	for _, n := range sc.ExportNodes(e.opts.SelectionOnly) {
		if n.Mesh == nil || n.Filename == "" {
			continue
		}
		// Line and stroke overlays mirror a part already written.
		if n.Mesh.Kind != mesh.KindSurface {
			e.log.Debug("skip edge overlay", "object", n.Name)
			continue
		}
		if n.ExportPolygons {
			if !n.Linked {
				e.log.Debug("skip unlinked object", "object", n.Name)
				continue
			}
			polys = append(polys, e.polygons(n)...)
			continue
		}
		lines = append(lines, e.subfile(n, isModel))
	}

	return append(lines, sortPolygons(polys, e.opts.Colors)...), nil
}

// WriteTo writes the export to w.
func (e *Exporter) WriteTo(w io.Writer, sc Scene) error {
	lines, err := e.Lines(sc)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			return fmt.Errorf("export: write: %w", err)
		}
	}
	return nil
}

// WriteFile writes the export to path through a temporary file, so a
// failed export leaves any existing file untouched.
func (e *Exporter) WriteFile(path string, sc Scene) error {
	lines, err := e.Lines(sc)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.ldr")
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	for _, l := range lines {
		if _, err := tmp.WriteString(l + "\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("export: write %s: %w", path, err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("export: rename %s: %w", path, err)
	}
	return nil
}

func (e *Exporter) precision(n Node) int {
	if n.Precision != nil {
		return *n.Precision
	}
	if e.opts.Precision > 0 {
		return e.opts.Precision
	}
	return DefaultPrecision
}

// subfile emits a type-1 line. Model files keep the node's axis order;
// parts get the axis swap and sign flips of the polygon convention.
func (e *Exporter) subfile(n Node, isModel bool) string {
	code := ldraw.ColorInherit
	if n.Color != nil {
		code = *n.Color
	} else if len(n.Mesh.Materials) > 0 {
		code = n.Mesh.Materials[0].Color
	}
	if c, ok := e.opts.Colors.Get(code); ok {
		code = c.Code
	}

	p := e.precision(n)
	r := func(x float64) string { return FixRound(x, p) }

	var f []string
	if isModel {
		aa := mathutil.Mat4Mul(mathutil.ReverseRotation, n.World)
		f = []string{
			r(aa.At(0, 3)), r(aa.At(1, 3)), r(aa.At(2, 3)),
			r(aa.At(0, 0)), r(aa.At(0, 1)), r(aa.At(0, 2)),
			r(aa.At(1, 0)), r(aa.At(1, 1)), r(aa.At(1, 2)),
			r(aa.At(2, 0)), r(aa.At(2, 1)), r(aa.At(2, 2)),
		}
	} else {
		aa := n.World
		a, b, c, x := r(aa.At(0, 0)), r(aa.At(0, 1)), r(-aa.At(0, 2)), r(aa.At(0, 3))
		d, ee, ff, y := r(aa.At(1, 0)), r(aa.At(1, 1)), r(-aa.At(1, 2)), r(aa.At(1, 3))
		g, h, i, z := r(-aa.At(2, 0)), r(-aa.At(2, 1)), r(aa.At(2, 2)), r(-aa.At(2, 3))
		f = []string{x, z, y, a, c, b, g, i, h, d, ff, ee}
	}
	return "1 " + strconv.Itoa(code) + " " + strings.Join(f, " ") + " " + n.Filename
}

func (e *Exporter) polygons(n Node) []polyLine {
	m := n.Mesh.Clone()
	m.Transform(mathutil.Mat4Mul(mathutil.ReverseRotation, n.World))
	if e.opts.Triangulate {
		e.triangulate(m)
	}
	if e.opts.RemoveDoubles {
		mesh.Weld(m, e.opts.MergeDistance, nil)
	}

	p := e.precision(n)
	var out []polyLine
	for i, f := range m.Faces {
		typ := 0
		switch len(f.V) {
		case 3:
			typ = 3
		case 4:
			typ = 4
		default:
			continue
		}
		code := ldraw.ColorInherit
		if mat, ok := m.FaceMaterial(i); ok {
			if c, ok := e.opts.Colors.Get(mat.Color); ok {
				code = c.Code
			}
		}
		fields := make([]string, 0, 3*len(f.V))
		for _, vi := range f.V {
			v := m.Verts[vi]
			fields = append(fields, FixRound(v[0], p), FixRound(v[1], p), FixRound(v[2], p))
		}
		out = append(out, polyLine{typ: typ, color: code, fields: fields})
	}

	for _, ed := range m.Edges {
		if !ed.Sharp {
			continue
		}
		a, b := m.Verts[ed.V[0]], m.Verts[ed.V[1]]
		out = append(out, polyLine{typ: 2, color: ldraw.ColorEdge, fields: []string{
			FixRound(a[0], p), FixRound(a[1], p), FixRound(a[2], p),
			FixRound(b[0], p), FixRound(b[1], p), FixRound(b[2], p),
		}})
	}
	return out
}

func (e *Exporter) triangulate(m *mesh.Mesh) {
	faces := make([]mesh.Face, 0, len(m.Faces))
	for _, f := range m.Faces {
		if len(f.V) <= 4 {
			faces = append(faces, f)
			continue
		}
		pts := make([]mathutil.Vec3, len(f.V))
		for i, vi := range f.V {
			pts[i] = m.Verts[vi]
		}
		tris, err := mesh.Triangulate(pts)
		if err != nil {
			e.log.Debug("drop face on export", "mesh", m.Name, "err", err)
			continue
		}
		for _, t := range tris {
			faces = append(faces, mesh.Face{V: []int{f.V[t[0]], f.V[t[1]], f.V[t[2]]}, Material: f.Material, Smooth: f.Smooth})
		}
	}
	m.Faces = faces
	m.RebuildEdges()
}

// sortPolygons orders lines by colour then line type and separates colour
// groups with a blank line and a comment naming the colour. The first
// group gets its comment but no blank line.
func sortPolygons(polys []polyLine, colors *ldraw.ColorTable) []string {
	sort.SliceStable(polys, func(i, j int) bool {
		if polys[i].color != polys[j].color {
			return polys[i].color < polys[j].color
		}
		return polys[i].typ < polys[j].typ
	})

	var out []string
	for i, p := range polys {
		if i == 0 || p.color != polys[i-1].color {
			if i > 0 {
				out = append(out, "")
			}
			out = append(out, "0 // "+colors.Lookup(p.color).Name)
		}
		out = append(out, p.String())
	}
	return out
}

// headerIsModel reads the !LDRAW_ORG type from header lines.
func headerIsModel(header []string) bool {
	for _, l := range header {
		fields := strings.Fields(l)
		if len(fields) < 3 || fields[0] != "0" || !strings.EqualFold(fields[1], "!LDRAW_ORG") {
			continue
		}
		t := fields[2]
		if strings.EqualFold(t, "lcad") && len(fields) > 3 {
			t = fields[3]
		}
		return ldraw.KindFromPartType(t) == ldraw.KindModel
	}
	return false
}

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
