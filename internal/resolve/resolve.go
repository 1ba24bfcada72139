// Package resolve walks an LDraw reference tree into a scene: every
// top-level part occurrence becomes one placed object, and every distinct
// (part, colour) identity becomes one shared mesh.
package resolve

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path"

	"ldraw-bridge/internal/geometry"
	"ldraw-bridge/internal/ldraw"
	"ldraw-bridge/internal/mathutil"
	"ldraw-bridge/internal/mesh"
	"ldraw-bridge/internal/scene"
)

// Library is the part source.
type Library interface {
	Resolve(name string) (*ldraw.File, error)
	Colors() *ldraw.ColorTable
}

// Target is the host scene the resolver writes into.
type Target interface {
	CreateMesh(key string, m *mesh.Mesh) scene.MeshHandle
	Instance(spec scene.InstanceSpec) scene.NodeHandle
	Group(name string, parent scene.GroupHandle, hidden bool) scene.GroupHandle
	SetTimelineMarker(label string, frame int)
	HideGroup(g scene.GroupHandle, frame int)
	SetHeaderText(name string, lines []string)
}

type SmoothType string

const (
	SmoothEdgeSplit  SmoothType = "edge_split"
	SmoothAutoSmooth SmoothType = "auto_smooth"
	SmoothNone       SmoothType = "none"
)

type GapTarget string

const (
	GapMesh   GapTarget = "mesh"
	GapObject GapTarget = "object"
)

type GapStrategy string

const (
	GapByObject     GapStrategy = "object"
	GapByConstraint GapStrategy = "constraint"
)

// EdgeSplitAngle is the split angle of the edge-split modifier; faces
// meeting at 90 degrees and more are split.
var EdgeSplitAngle = 89.9 * math.Pi / 180

// Options controls one import.
type Options struct {
	ImportScale float64
	Mesh        mesh.Options

	SmoothType SmoothType
	BevelEdges bool

	MakeGaps    bool
	GapScale    float64
	GapTarget   GapTarget
	GapStrategy GapStrategy

	DisplayLogo bool
	NoStuds     bool

	ImportEdges       bool
	GreasePencilEdges bool

	Instancing    bool
	ParentToEmpty bool

	MetaStep           bool
	FramesPerStep      int
	StartingStepFrame  int
	SetTimelineMarkers bool
	MetaGroup          bool

	Logger *slog.Logger
}

// Stats summarizes an import.
type Stats struct {
	Parts     int
	Instances int
	Meshes    int
	Skipped   int
	Mesh      mesh.Stats
}

// Context owns all state of one import: counters, the geometry cache and
// the group bookkeeping for meta-commands. Create one per import.
type Context struct {
	lib    Library
	target Target
	opts   Options
	log    *slog.Logger

	PartCount   int
	CurrentStep int
	LastFrame   int
	Stats       Stats
	Errors      []error

	cache      map[Key]*geometry.Set
	meshes     map[Key]scene.MeshHandle
	edgeMeshes map[Key]scene.MeshHandle
	gpMeshes   map[Key]scene.MeshHandle
	prototypes map[Key]scene.GroupHandle

	topGroup   scene.GroupHandle
	haveTop    bool
	anchor     scene.NodeHandle
	gapEmpty   scene.NodeHandle
	partsGroup scene.GroupHandle
	gpGroup    scene.GroupHandle

	groupIDs     map[string]string
	metaGroups   map[string]scene.GroupHandle
	nextGroup    scene.GroupHandle
	endNextGroup bool

	inProgress map[string]bool
}

// NewContext prepares an import. Zero options receive the documented
// defaults.
func NewContext(lib Library, target Target, opts Options) *Context {
	if opts.ImportScale == 0 {
		opts.ImportScale = 0.04
	}
	if opts.GapScale == 0 {
		opts.GapScale = 0.997
	}
	if opts.GapTarget == "" {
		opts.GapTarget = GapObject
	}
	if opts.GapStrategy == "" {
		opts.GapStrategy = GapByObject
	}
	if opts.SmoothType == "" {
		opts.SmoothType = SmoothEdgeSplit
	}
	if opts.FramesPerStep == 0 {
		opts.FramesPerStep = 3
	}
	if opts.StartingStepFrame == 0 {
		opts.StartingStepFrame = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Mesh.Logger == nil {
		opts.Mesh.Logger = log
	}
	return &Context{lib: lib, target: target, opts: opts, log: log}
}

func (c *Context) reset() {
	c.PartCount = 0
	c.CurrentStep = 0
	c.LastFrame = 0
	c.Stats = Stats{}
	c.Errors = nil
	c.cache = make(map[Key]*geometry.Set)
	c.meshes = make(map[Key]scene.MeshHandle)
	c.edgeMeshes = make(map[Key]scene.MeshHandle)
	c.gpMeshes = make(map[Key]scene.MeshHandle)
	c.prototypes = make(map[Key]scene.GroupHandle)
	c.topGroup, c.haveTop = 0, false
	c.anchor, c.gapEmpty = 0, 0
	c.partsGroup, c.gpGroup = 0, 0
	c.groupIDs = make(map[string]string)
	c.metaGroups = make(map[string]scene.GroupHandle)
	c.nextGroup, c.endNextGroup = 0, false
	c.inProgress = make(map[string]bool)

	if c.opts.MetaStep {
		c.setStep()
	}
}

// Anchor returns the root empty created by the import, or zero.
func (c *Context) Anchor() scene.NodeHandle {
	return c.anchor
}

// TopGroup returns the group of the first model, or zero.
func (c *Context) TopGroup() scene.GroupHandle {
	return c.topGroup
}

// Import resolves name and walks it into the target. Only a missing root
// is an error; unresolved descendants are logged, collected in Errors and
// skipped.
func (c *Context) Import(name string) error {
	c.reset()
	root, err := c.lib.Resolve(name)
	if err != nil {
		return &ResolutionError{Name: name, Err: err}
	}
	c.target.SetHeaderText(root.Name, root.Header)

	c.walk(root, mathutil.Mat4Identity(), mathutil.Mat4Identity(), ldraw.ColorInherit, ldraw.ColorInherit, nil, false, 0)
	c.Stats.Parts = c.PartCount
	c.log.Info("import done", "file", root.Name, "parts", c.PartCount, "meshes", c.Stats.Meshes,
		"instances", c.Stats.Instances, "skipped", c.Stats.Skipped)
	return nil
}

func (c *Context) setStep() {
	fps := c.opts.FramesPerStep
	c.LastFrame = c.opts.StartingStepFrame + fps + fps*c.CurrentStep
	if c.opts.SetTimelineMarkers {
		c.target.SetTimelineMarker("STEP", c.LastFrame)
	}
}

func (c *Context) meta(ref ldraw.Reference, parentGroup scene.GroupHandle) {
	switch ref.Meta {
	case ldraw.MetaStep:
		c.CurrentStep++
		c.setStep()
	case ldraw.MetaGroupBegin:
		c.nextGroup = c.metaGroup(ref.MetaArgs["name"], parentGroup)
		c.endNextGroup = false
	case ldraw.MetaGroupEnd:
		c.endNextGroup = true
	case ldraw.MetaGroupDef:
		id, name := ref.MetaArgs["id"], ref.MetaArgs["name"]
		if _, ok := c.groupIDs[id]; !ok {
			c.groupIDs[id] = name
		}
		c.metaGroup(name, parentGroup)
	case ldraw.MetaGroupNxt:
		if name, ok := c.groupIDs[ref.MetaArgs["id"]]; ok {
			if g, ok := c.metaGroups[name]; ok {
				c.nextGroup = g
			}
		}
		c.endNextGroup = true
	case ldraw.MetaSave:
		if c.opts.SetTimelineMarkers {
			c.target.SetTimelineMarker("SAVE", c.LastFrame)
		}
	case ldraw.MetaClear:
		if c.opts.SetTimelineMarkers {
			c.target.SetTimelineMarker("CLEAR", c.LastFrame)
		}
		// Without step animation there is no frame that shows the cleared parts.
		if c.haveTop && c.opts.MetaStep {
			c.target.HideGroup(c.topGroup, c.LastFrame)
		}
	}
}

// metaGroup returns the group called name, creating it under parent.
func (c *Context) metaGroup(name string, parent scene.GroupHandle) scene.GroupHandle {
	if g, ok := c.metaGroups[name]; ok {
		return g
	}
	g := c.target.Group(name, parent, false)
	c.metaGroups[name] = g
	return g
}

// child resolves one reference of f and walks it.
func (c *Context) child(ref ldraw.Reference, matrix mathutil.Mat4, color int, geo *geometry.Set, edgeLogo bool, group scene.GroupHandle) {
	if ref.IsMeta() {
		c.meta(ref, group)
		return
	}
	f, err := c.lib.Resolve(ref.Name)
	if err != nil {
		c.skip(&ResolutionError{Name: ref.Name, Line: ref.Line, Err: err})
		return
	}
	c.walk(f, matrix, ref.Matrix, ref.Color, color, geo, edgeLogo, group)
}

func (c *Context) skip(err error) {
	c.Stats.Skipped++
	c.Errors = append(c.Errors, err)
	c.log.Warn("skip reference", "err", err)
}

// walk processes one occurrence of f placed by local under parent.
func (c *Context) walk(f *ldraw.File, parent, local mathutil.Mat4, ownColor, parentColor int, geo *geometry.Set, edgeLogo bool, parentGroup scene.GroupHandle) {
	if c.opts.NoStuds && f.IsLikeStud() {
		return
	}
	if c.inProgress[f.Name] {
		c.skip(&ResolutionError{Name: f.Name, Err: ErrCycle})
		return
	}

	color := parentColor
	if ownColor != ldraw.ColorInherit {
		color = ownColor
	}
	key := MakeKey(f.Name, color)

	matrix := mathutil.Compose(parent, local)
	group := parentGroup
	top := false

	switch {
	case f.IsModel():
		group = c.target.Group(path.Base(f.Name), parentGroup, false)
		if !c.haveTop {
			c.topGroup, c.haveTop = group, true
			if c.opts.ParentToEmpty && c.anchor == 0 {
				c.anchor = c.target.Instance(scene.InstanceSpec{
					Name:     path.Base(f.Name),
					Matrix:   mathutil.RootMatrix(c.opts.ImportScale),
					Group:    group,
					Filename: f.Name,
				})
			}
		}
	case geo == nil:
		geo = geometry.New()
		matrix = mathutil.Mat4Identity()
		top = true
		c.PartCount++
	}

	if c.opts.MetaGroup && c.nextGroup != 0 {
		group = c.nextGroup
		if c.endNextGroup {
			c.nextGroup = 0
		}
	}

	if cached, ok := c.cache[key]; top && ok {
		geo = cached
	} else {
		c.inProgress[f.Name] = true
		if geo != nil {
			if f.IsEdgeLogo() {
				edgeLogo = true
			}
			if !edgeLogo || c.opts.DisplayLogo {
				geo.AppendFaces(matrix, color, f.Faces)
				geo.AppendEdges(matrix, f.Edges)
			}
		}
		for _, ref := range f.Children {
			c.child(ref, matrix, color, geo, edgeLogo, group)
		}
		delete(c.inProgress, f.Name)
		if top {
			geo.Seal()
			c.cache[key] = geo
		}
	}

	if top {
		c.place(f, key, color, geo, parent, local, group)
	}
}

// place builds the mesh for key on first use and adds one object for this
// occurrence, plus the optional edge objects.
func (c *Context) place(f *ldraw.File, key Key, color int, geo *geometry.Set, parent, local mathutil.Mat4, group scene.GroupHandle) {
	mh, ok := c.meshes[key]
	if !ok {
		opts := c.opts.Mesh
		opts.BevelEdges = c.opts.BevelEdges
		if c.opts.SmoothType == SmoothAutoSmooth && opts.ShadeSmooth {
			opts.AutoSmooth = mesh.AutoSmoothAngle
		}
		opts.GapScale = c.meshGapScale()
		m, st := mesh.Build(string(key), f.Name, geo, c.lib.Colors(), opts)
		c.Stats.Mesh.Add(st)
		mh = c.target.CreateMesh(string(key), m)
		c.meshes[key] = mh
		c.Stats.Meshes++
		c.target.SetHeaderText(f.Name, f.Header)
	}

	c.object(string(key), mh, parent, local, group, f.Name, color)

	if !c.opts.ImportEdges {
		return
	}
	eh, ok := c.edgeMeshes[key]
	if !ok {
		ekey := "e_" + string(key)
		eh = c.target.CreateMesh(ekey, mesh.BuildEdgeMesh(ekey, f.Name, geo, c.lib.Colors(), false, c.meshGapScale()))
		c.edgeMeshes[key] = eh
	}
	c.object("e_"+string(key), eh, parent, local, group, f.Name+"_edges", color)

	if !c.opts.GreasePencilEdges {
		return
	}
	gh, ok := c.gpMeshes[key]
	if !ok {
		gkey := "gp_" + string(key)
		gh = c.target.CreateMesh(gkey, mesh.BuildEdgeMesh(gkey, f.Name, geo, c.lib.Colors(), true, c.meshGapScale()))
		c.gpMeshes[key] = gh
	}
	if c.gpGroup == 0 {
		c.gpGroup = c.target.Group("Grease Pencil Edges", 0, false)
	}
	c.object(string(key), gh, parent, local, c.gpGroup, "", color)
}

func (c *Context) meshGapScale() float64 {
	if c.opts.MakeGaps && c.opts.GapTarget == GapMesh {
		return c.opts.GapScale
	}
	return 0
}

// object creates one placed object and applies the transform, step
// keyframes and modifiers. color is the occurrence's effective colour.
func (c *Context) object(name string, mh scene.MeshHandle, parent, local mathutil.Mat4, group scene.GroupHandle, filename string, color int) scene.NodeHandle {
	spec := scene.InstanceSpec{
		Name:     name,
		Mesh:     mh,
		Group:    group,
		Filename: filename,
		Color:    &color,
	}
	if c.opts.Instancing {
		spec.InstanceOf = c.prototype(name, mh)
	}

	gaps := c.opts.MakeGaps && c.opts.GapTarget == GapObject
	if c.anchor == 0 {
		spec.Matrix = mathutil.Chain(mathutil.RootMatrix(c.opts.ImportScale), parent, local)
		if gaps {
			spec.Matrix = mathutil.Compose(spec.Matrix, mathutil.Scale(c.opts.GapScale))
		}
	} else {
		spec.Matrix = mathutil.Compose(parent, local)
		spec.Parent = c.anchor
		if gaps {
			switch c.opts.GapStrategy {
			case GapByConstraint:
				if c.gapEmpty == 0 && c.haveTop {
					c.gapEmpty = c.target.Instance(scene.InstanceSpec{
						Name:   "gap_scale",
						Matrix: mathutil.Scale(c.opts.GapScale),
						Parent: c.anchor,
						Group:  c.topGroup,
					})
				}
				spec.CopyScaleFrom = c.gapEmpty
			default:
				spec.Matrix = mathutil.Compose(spec.Matrix, mathutil.Scale(c.opts.GapScale))
			}
		}
	}

	if c.opts.MetaStep {
		spec.Keyframes = []scene.Keyframe{
			{Frame: c.opts.StartingStepFrame, Hidden: true},
			{Frame: c.LastFrame, Hidden: false},
		}
	}
	if c.opts.SmoothType == SmoothEdgeSplit {
		spec.Modifiers = append(spec.Modifiers, scene.EdgeSplit(EdgeSplitAngle))
	}
	if c.opts.BevelEdges {
		spec.Modifiers = append(spec.Modifiers, scene.Bevel())
	}

	c.Stats.Instances++
	return c.target.Instance(spec)
}

// prototype returns the hidden collection holding the single prototype
// object of a mesh, creating both on first use.
func (c *Context) prototype(name string, mh scene.MeshHandle) scene.GroupHandle {
	pkey := Key(name)
	if g, ok := c.prototypes[pkey]; ok {
		return g
	}
	if c.partsGroup == 0 {
		c.partsGroup = c.target.Group("Parts", 0, true)
	}
	g := c.target.Group(name, c.partsGroup, false)
	c.target.Instance(scene.InstanceSpec{Name: name, Mesh: mh, Matrix: mathutil.Mat4Identity(), Group: g})
	c.prototypes[pkey] = g
	return g
}

// IsResolution reports whether err is a ResolutionError caused by a
// missing file.
func IsResolution(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re) && errors.Is(re.Err, ldraw.ErrNotFound)
}

func (s Stats) String() string {
	return fmt.Sprintf("%d parts, %d meshes, %d instances, %d skipped, %d faces dropped",
		s.Parts, s.Meshes, s.Instances, s.Skipped, s.Mesh.Dropped)
}
