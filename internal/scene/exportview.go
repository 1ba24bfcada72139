package scene

import "ldraw-bridge/internal/export"

var _ export.Scene = (*Memory)(nil)

// ExportNodes lists nodes for the exporter, either all of them or only
// the selected ones, in creation order.
func (s *Memory) ExportNodes(selectedOnly bool) []export.Node {
	out := make([]export.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if selectedOnly && !s.selected[n.Handle] {
			continue
		}
		out = append(out, s.exportNode(n))
	}
	return out
}

// ActiveNode returns the active node, if any.
func (s *Memory) ActiveNode() (export.Node, bool) {
	n := s.Node(s.active)
	if n == nil {
		return export.Node{}, false
	}
	return s.exportNode(n), true
}

func (s *Memory) exportNode(n *Node) export.Node {
	return export.Node{
		Name:           n.Name,
		World:          s.World(n.Handle),
		Mesh:           s.Mesh(n.Mesh),
		Filename:       n.Filename,
		Color:          n.Color,
		Precision:      n.Precision,
		ExportPolygons: n.ExportPolygons,
		Linked:         true,
	}
}
