// internal/domain/evidence/hierarchy.go

package evidence

// ReligionNode is one node of the religion hierarchy tree. The root is
// synthetic (ID 0) and never appears in evidence data.
type ReligionNode struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Abbreviation string          `json:"abbreviation"`
	Color        string          `json:"color"`
	Children     []*ReligionNode `json:"children"`

	// DataCount is annotated after load with the number of evidence
	// tuples referencing this religion or any descendant.
	DataCount int `json:"data_count"`
}

// Hierarchy wraps the religion tree with the precomputed indexes the
// map pipeline needs: ancestor-at-level resolution, a stable display
// order and per-religion colors. Built once at load, immutable after.
type Hierarchy struct {
	Root *ReligionNode

	byID     map[int]*ReligionNode
	paths    map[int][]int // religion id -> ancestor ids from level 0 down, ending at itself
	order    map[int]int   // religion id -> depth-first display position
	maxDepth int
}

// NewHierarchy indexes a religion tree. The synthetic root itself is not
// indexed; level 0 is the root's direct children.
func NewHierarchy(root *ReligionNode) *Hierarchy {
	h := &Hierarchy{
		Root:  root,
		byID:  make(map[int]*ReligionNode),
		paths: make(map[int][]int),
		order: make(map[int]int),
	}
	if root != nil {
		for _, child := range root.Children {
			h.index(child, nil)
		}
	}
	return h
}

func (h *Hierarchy) index(node *ReligionNode, ancestors []int) {
	path := make([]int, len(ancestors), len(ancestors)+1)
	copy(path, ancestors)
	path = append(path, node.ID)

	h.byID[node.ID] = node
	h.paths[node.ID] = path
	h.order[node.ID] = len(h.order)
	if len(path) > h.maxDepth {
		h.maxDepth = len(path)
	}

	for _, child := range node.Children {
		h.index(child, path)
	}
}

// Node returns the religion node for an id, or nil if unknown.
func (h *Hierarchy) Node(id int) *ReligionNode {
	return h.byID[id]
}

// ParentAtLevel resolves a religion id to its ancestor at the given
// hierarchy level (0 = coarsest). Levels deeper than the religion's own
// depth resolve to the religion itself. Unknown ids resolve to themselves
// so that a data-integrity problem degrades instead of crashing.
func (h *Hierarchy) ParentAtLevel(id, level int) int {
	path, ok := h.paths[id]
	if !ok || len(path) == 0 {
		return id
	}
	if level >= len(path) {
		return path[len(path)-1]
	}
	if level < 0 {
		level = 0
	}
	return path[level]
}

// MaxDepth returns the number of levels in the hierarchy. Valid levels
// for ParentAtLevel range over [0, MaxDepth()-1].
func (h *Hierarchy) MaxDepth() int {
	return h.maxDepth
}

// Order returns the stable depth-first display position of a religion,
// used to order pie arcs deterministically. Unknown ids sort last.
func (h *Hierarchy) Order(id int) int {
	if pos, ok := h.order[id]; ok {
		return pos
	}
	return len(h.order)
}

// Color returns the display color for a religion, or the empty string
// for unknown ids.
func (h *Hierarchy) Color(id int) string {
	if node, ok := h.byID[id]; ok {
		return node.Color
	}
	return ""
}

// AnnotateDataCounts fills in DataCount on every node from a per-religion
// tuple count. A node's count includes all of its descendants.
func (h *Hierarchy) AnnotateDataCounts(countByReligion map[int]int) {
	if h.Root == nil {
		return
	}
	for _, child := range h.Root.Children {
		annotate(child, countByReligion)
	}
}

func annotate(node *ReligionNode, counts map[int]int) int {
	total := counts[node.ID]
	for _, child := range node.Children {
		total += annotate(child, counts)
	}
	node.DataCount = total
	return total
}
