// Package scene is an in-memory host scene: meshes, placed objects,
// groups, timeline markers and stored header texts. The resolver writes
// into it and the exporter and preview renderer read from it.
package scene

import (
	"sort"

	"ldraw-bridge/internal/mathutil"
	"ldraw-bridge/internal/mesh"
)

// Handles are 1-based; the zero value means "none".
type (
	MeshHandle  int
	NodeHandle  int
	GroupHandle int
)

// Keyframe sets an object's hidden state from Frame onwards.
type Keyframe struct {
	Frame  int
	Hidden bool
}

type ModifierKind int

const (
	ModEdgeSplit ModifierKind = iota
	ModBevel
)

// Modifier is a non-destructive mesh operation the host applies at
// display time.
type Modifier struct {
	Kind       ModifierKind
	SplitAngle float64 // radians, edge split
	Width      float64 // bevel
	Segments   int
	Profile    float64
}

// EdgeSplit is the crease modifier attached to smoothed parts.
func EdgeSplit(angle float64) Modifier {
	return Modifier{Kind: ModEdgeSplit, SplitAngle: angle}
}

// Bevel is the weighted bevel attached when edge bevelling is requested.
func Bevel() Modifier {
	return Modifier{Kind: ModBevel, Width: 0.10, Segments: 4, Profile: 0.5}
}

// InstanceSpec describes one placed object. Mesh may be zero for an empty.
type InstanceSpec struct {
	Name          string
	Mesh          MeshHandle
	Matrix        mathutil.Mat4 // relative to Parent, or world when Parent is zero
	Parent        NodeHandle
	Group         GroupHandle
	Keyframes     []Keyframe
	Modifiers     []Modifier
	CopyScaleFrom NodeHandle
	InstanceOf    GroupHandle // prototype group when the object instances a collection
	Hidden        bool

	// Round-trip metadata.
	Filename       string
	Color          *int
	Precision      *int
	ExportPolygons bool
}

// Node is a placed object.
type Node struct {
	InstanceSpec
	Handle NodeHandle
}

// Group is a named collection of objects.
type Group struct {
	Name   string
	Parent GroupHandle
	Hidden bool
}

// Marker is a named timeline frame.
type Marker struct {
	Label string
	Frame int
}

// Memory is the in-memory scene. It is not safe for concurrent use; each
// import owns its own Memory.
type Memory struct {
	meshes   []*mesh.Mesh
	meshKeys map[string]MeshHandle
	nodes    []*Node
	groups   []*Group
	markers  []Marker
	texts    map[string][]string
	active   NodeHandle
	selected map[NodeHandle]bool
}

func NewMemory() *Memory {
	return &Memory{
		meshKeys: make(map[string]MeshHandle),
		texts:    make(map[string][]string),
		selected: make(map[NodeHandle]bool),
	}
}

// CreateMesh stores m under key. A key that already exists returns the
// stored mesh's handle and m is discarded.
func (s *Memory) CreateMesh(key string, m *mesh.Mesh) MeshHandle {
	if h, ok := s.meshKeys[key]; ok {
		return h
	}
	s.meshes = append(s.meshes, m)
	h := MeshHandle(len(s.meshes))
	s.meshKeys[key] = h
	return h
}

// Mesh returns the mesh for h, or nil.
func (s *Memory) Mesh(h MeshHandle) *mesh.Mesh {
	if h <= 0 || int(h) > len(s.meshes) {
		return nil
	}
	return s.meshes[h-1]
}

// MeshByKey looks a mesh up by the key it was created with.
func (s *Memory) MeshByKey(key string) (MeshHandle, bool) {
	h, ok := s.meshKeys[key]
	return h, ok
}

// MeshCount returns the number of distinct meshes.
func (s *Memory) MeshCount() int {
	return len(s.meshes)
}

// Instance places an object and returns its handle.
func (s *Memory) Instance(spec InstanceSpec) NodeHandle {
	n := &Node{InstanceSpec: spec, Handle: NodeHandle(len(s.nodes) + 1)}
	n.Keyframes = append([]Keyframe(nil), spec.Keyframes...)
	n.Modifiers = append([]Modifier(nil), spec.Modifiers...)
	s.nodes = append(s.nodes, n)
	return n.Handle
}

// Node returns the node for h, or nil.
func (s *Memory) Node(h NodeHandle) *Node {
	if h <= 0 || int(h) > len(s.nodes) {
		return nil
	}
	return s.nodes[h-1]
}

// Nodes returns every node in creation order.
func (s *Memory) Nodes() []*Node {
	return s.nodes
}

// Group creates a new group. Names need not be unique.
func (s *Memory) Group(name string, parent GroupHandle, hidden bool) GroupHandle {
	s.groups = append(s.groups, &Group{Name: name, Parent: parent, Hidden: hidden})
	return GroupHandle(len(s.groups))
}

// GroupInfo returns the group for h, or nil.
func (s *Memory) GroupInfo(h GroupHandle) *Group {
	if h <= 0 || int(h) > len(s.groups) {
		return nil
	}
	return s.groups[h-1]
}

// GroupsNamed returns every group called name, in creation order.
func (s *Memory) GroupsNamed(name string) []GroupHandle {
	var out []GroupHandle
	for i, g := range s.groups {
		if g.Name == name {
			out = append(out, GroupHandle(i+1))
		}
	}
	return out
}

// InGroup reports whether g is h or nested below it.
func (s *Memory) InGroup(g, h GroupHandle) bool {
	for seen := 0; g != 0 && seen <= len(s.groups); seen++ {
		if g == h {
			return true
		}
		grp := s.GroupInfo(g)
		if grp == nil {
			return false
		}
		g = grp.Parent
	}
	return false
}

// Members returns the nodes whose group is g or nested below it.
func (s *Memory) Members(g GroupHandle) []NodeHandle {
	var out []NodeHandle
	for _, n := range s.nodes {
		if n.Group != 0 && s.InGroup(n.Group, g) {
			out = append(out, n.Handle)
		}
	}
	return out
}

// HideGroup keys every object under g hidden from frame onwards. Objects
// without keys also get a visible key on the frame before, so they stay
// visible earlier in the timeline.
func (s *Memory) HideGroup(g GroupHandle, frame int) {
	for _, h := range s.Members(g) {
		n := s.Node(h)
		if len(n.Keyframes) == 0 {
			n.Keyframes = append(n.Keyframes, Keyframe{Frame: frame - 1, Hidden: false})
		}
		n.Keyframes = append(n.Keyframes, Keyframe{Frame: frame, Hidden: true})
	}
}

// SetTimelineMarker adds a marker. Markers may share a frame.
func (s *Memory) SetTimelineMarker(label string, frame int) {
	s.markers = append(s.markers, Marker{Label: label, Frame: frame})
}

// Markers returns the markers sorted by frame, stable for equal frames.
func (s *Memory) Markers() []Marker {
	out := append([]Marker(nil), s.markers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Frame < out[j].Frame })
	return out
}

// SetHeaderText stores the header lines of an imported file. An existing
// text of the same name is kept.
func (s *Memory) SetHeaderText(name string, lines []string) {
	if _, ok := s.texts[name]; ok {
		return
	}
	s.texts[name] = append([]string(nil), lines...)
}

// HeaderText returns a stored header text.
func (s *Memory) HeaderText(name string) ([]string, bool) {
	lines, ok := s.texts[name]
	return lines, ok
}

// SetActive makes h the active node.
func (s *Memory) SetActive(h NodeHandle) {
	s.active = h
}

// Active returns the active node handle, or zero.
func (s *Memory) Active() NodeHandle {
	return s.active
}

// Select adds nodes to the selection.
func (s *Memory) Select(hs ...NodeHandle) {
	for _, h := range hs {
		s.selected[h] = true
	}
}

// Selected reports whether h is selected.
func (s *Memory) Selected(h NodeHandle) bool {
	return s.selected[h]
}

// World composes the parent chain of h. A copy-scale constraint replaces
// the axis scales of the result with those of the constraint target.
func (s *Memory) World(h NodeHandle) mathutil.Mat4 {
	return s.world(h, 0)
}

func (s *Memory) world(h NodeHandle, depth int) mathutil.Mat4 {
	n := s.Node(h)
	if n == nil || depth > len(s.nodes) {
		return mathutil.Mat4Identity()
	}
	w := n.Matrix
	if n.Parent != 0 {
		w = mathutil.Compose(s.world(n.Parent, depth+1), n.Matrix)
	}
	if n.CopyScaleFrom != 0 {
		w = copyScale(w, s.world(n.CopyScaleFrom, depth+1))
	}
	return w
}

func copyScale(w, target mathutil.Mat4) mathutil.Mat4 {
	have := axisScales(w)
	want := axisScales(target)
	for c := 0; c < 3; c++ {
		if have[c] == 0 {
			continue
		}
		f := want[c] / have[c]
		for r := 0; r < 3; r++ {
			w[r*4+c] *= f
		}
	}
	return w
}

func axisScales(m mathutil.Mat4) [3]float64 {
	var out [3]float64
	for c := 0; c < 3; c++ {
		out[c] = mathutil.Vec3{m.At(0, c), m.At(1, c), m.At(2, c)}.Len()
	}
	return out
}

// VisibleAt evaluates the node's visibility keys with constant
// interpolation. Before the first key the first key's state holds. A
// node in a hidden group, or below a hidden node, is never visible.
func (s *Memory) VisibleAt(h NodeHandle, frame int) bool {
	n := s.Node(h)
	if n == nil || n.Hidden {
		return false
	}
	for g := n.Group; g != 0; {
		grp := s.GroupInfo(g)
		if grp == nil {
			break
		}
		if grp.Hidden {
			return false
		}
		g = grp.Parent
	}
	if len(n.Keyframes) > 0 {
		keys := append([]Keyframe(nil), n.Keyframes...)
		sort.SliceStable(keys, func(i, j int) bool { return keys[i].Frame < keys[j].Frame })
		hidden := keys[0].Hidden
		for _, k := range keys {
			if k.Frame > frame {
				break
			}
			hidden = k.Hidden
		}
		if hidden {
			return false
		}
	}
	if n.Parent != 0 && n.Parent != h {
		return s.parentVisible(n.Parent, frame, len(s.nodes))
	}
	return true
}

func (s *Memory) parentVisible(h NodeHandle, frame, budget int) bool {
	if budget <= 0 {
		return true
	}
	n := s.Node(h)
	if n == nil {
		return true
	}
	if n.Hidden {
		return false
	}
	if n.Parent != 0 {
		return s.parentVisible(n.Parent, frame, budget-1)
	}
	return true
}
