package ldraw

import (
	"path"
	"strings"

	"ldraw-bridge/internal/mathutil"
)

// Colour sentinels.
const (
	// ColorInherit means "use the colour of the referencing line".
	ColorInherit = 16
	// ColorEdge is the edge-complement colour used by type-2 lines.
	ColorEdge = 24
)

// Kind classifies a file by its !LDRAW_ORG type.
type Kind int

const (
	KindPart Kind = iota
	KindModel
	KindSubpart
	KindPrimitive
	KindShortcut
)

func (k Kind) String() string {
	switch k {
	case KindModel:
		return "model"
	case KindSubpart:
		return "subpart"
	case KindPrimitive:
		return "primitive"
	case KindShortcut:
		return "shortcut"
	default:
		return "part"
	}
}

// MetaKind identifies a type-0 directive that the resolver acts on.
type MetaKind int

const (
	MetaNone MetaKind = iota
	MetaStep
	MetaSave
	MetaClear
	MetaGroupBegin
	MetaGroupEnd
	MetaGroupDef
	MetaGroupNxt
)

func (m MetaKind) String() string {
	switch m {
	case MetaStep:
		return "step"
	case MetaSave:
		return "save"
	case MetaClear:
		return "clear"
	case MetaGroupBegin:
		return "group_begin"
	case MetaGroupEnd:
		return "group_end"
	case MetaGroupDef:
		return "group_def"
	case MetaGroupNxt:
		return "group_nxt"
	default:
		return "none"
	}
}

// Texmap is a !TEXMAP projection reference. The projection parameters are
// carried through untouched; UV generation is the host's concern.
type Texmap struct {
	Method   string // PLANAR, CYLINDRICAL or SPHERICAL
	Params   []float64
	Texture  string
	Glossmap string
}

// Face is one type-3 or type-4 polygon in file-local coordinates.
type Face struct {
	Vertices []mathutil.Vec3
	Color    int
	Texmap   *Texmap
}

// Edge is one type-2 line segment in file-local coordinates.
type Edge [2]mathutil.Vec3

// Reference is one child of a file: either a type-1 sub-file reference or
// a meta-command (Meta != MetaNone, Name empty).
type Reference struct {
	Name     string
	Color    int
	Matrix   mathutil.Mat4
	Meta     MetaKind
	MetaArgs map[string]string
	Line     int
}

// IsMeta reports whether the reference is a directive rather than a file.
func (r Reference) IsMeta() bool {
	return r.Meta != MetaNone
}

// File is a parsed LDraw file. Files are immutable once registered in a
// Library and shared read-only between imports.
type File struct {
	Name     string // normalized identity
	Filename string // as written in the source
	Kind     Kind
	PartType string // raw !LDRAW_ORG type, lower-cased
	Header   []string
	Children []Reference
	Faces    []Face
	Edges    []Edge
}

func (f *File) IsModel() bool    { return f.Kind == KindModel }
func (f *File) IsPart() bool     { return f.Kind == KindPart }
func (f *File) IsSubpart() bool  { return f.Kind == KindSubpart }
func (f *File) IsShortcut() bool { return f.Kind == KindShortcut }

// IsEdgeLogo reports whether the file is a stud logo, which is only shown
// when logos are requested.
func (f *File) IsEdgeLogo() bool {
	base := path.Base(f.Name)
	return strings.HasPrefix(base, "logo") && strings.HasSuffix(base, ".dat")
}

// IsLikeStud reports whether the file is a stud primitive.
func (f *File) IsLikeStud() bool {
	return strings.HasPrefix(path.Base(f.Name), "stud")
}

// Basename returns the file name without directories.
func (f *File) Basename() string {
	return path.Base(strings.ReplaceAll(f.Filename, "\\", "/"))
}
