// internal/history/tree.go

package history

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Node is one entry of the visualization-state history: a full state
// snapshot plus a human-readable description of the change that created
// it. Nodes form a tree; pushing after navigating back starts a new
// branch instead of discarding the abandoned one.
type Node struct {
	ID          string          `json:"id"`
	ParentID    string          `json:"parent_id,omitempty"`
	Description string          `json:"description"`
	State       json.RawMessage `json:"state"`
	CreatedAt   time.Time       `json:"created_at"`

	parent   *Node
	children []*Node
}

// Children returns the ids of a node's children in creation order.
func (n *Node) Children() []string {
	ids := make([]string, len(n.children))
	for i, c := range n.children {
		ids[i] = c.ID
	}
	return ids
}

// Tree is a branching undo history with uuid-keyed nodes. Back moves to
// the current node's parent and remembers the abandoned node on a redo
// stack; Forward pops that stack; a new Push clears it.
type Tree struct {
	mu        sync.RWMutex
	root      *Node
	current   *Node
	byID      map[string]*Node
	redoStack []*Node
}

// New creates a history tree seeded with an initial state snapshot.
func New(description string, state json.RawMessage) *Tree {
	root := newNode(nil, description, state)
	return &Tree{
		root:    root,
		current: root,
		byID:    map[string]*Node{root.ID: root},
	}
}

func newNode(parent *Node, description string, state json.RawMessage) *Node {
	n := &Node{
		ID:          uuid.New().String(),
		Description: description,
		State:       append(json.RawMessage(nil), state...),
		CreatedAt:   time.Now(),
		parent:      parent,
	}
	if parent != nil {
		n.ParentID = parent.ID
		parent.children = append(parent.children, n)
	}
	return n
}

// Push records a new state as a child of the current node and clears
// the redo stack.
func (t *Tree) Push(description string, state json.RawMessage) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := newNode(t.current, description, state)
	t.byID[n.ID] = n
	t.current = n
	t.redoStack = nil
	return n
}

// Back moves to the parent of the current node and returns it. The
// abandoned node goes onto the redo stack.
func (t *Tree) Back() (*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.parent == nil {
		return nil, fmt.Errorf("already at the oldest state")
	}
	t.redoStack = append(t.redoStack, t.current)
	t.current = t.current.parent
	return t.current, nil
}

// Forward re-applies the most recently abandoned node.
func (t *Tree) Forward() (*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.redoStack) == 0 {
		return nil, fmt.Errorf("nothing to redo")
	}
	t.current = t.redoStack[len(t.redoStack)-1]
	t.redoStack = t.redoStack[:len(t.redoStack)-1]
	return t.current, nil
}

// GoTo jumps directly to a node by id. The redo stack is cleared: direct
// navigation abandons the linear back/forward trail.
func (t *Tree) GoTo(id string) (*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.byID[id]
	if !ok {
		return nil, fmt.Errorf("unknown history node %q", id)
	}
	t.current = n
	t.redoStack = nil
	return n, nil
}

// Current returns the current node.
func (t *Tree) Current() *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Node returns a node by id, or nil.
func (t *Tree) Node(id string) *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byID[id]
}

// Size returns the number of nodes in the tree.
func (t *Tree) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

// Reset discards all history and starts over from the given state.
func (t *Tree) Reset(description string, state json.RawMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	root := newNode(nil, description, state)
	t.root = root
	t.current = root
	t.byID = map[string]*Node{root.ID: root}
	t.redoStack = nil
}

// Prune collapses the tree to the path from the root to the current
// node, discarding all side branches but keeping the linear ancestry.
func (t *Tree) Prune() {
	t.mu.Lock()
	defer t.mu.Unlock()

	path := t.currentPath()
	t.byID = make(map[string]*Node, len(path))
	for i, n := range path {
		if i < len(path)-1 {
			n.children = []*Node{path[i+1]}
		} else {
			n.children = nil
		}
		t.byID[n.ID] = n
	}
	t.redoStack = nil
}

// PruneCondense collapses the whole history to just the root and the
// current state, keeping a two-node trail.
func (t *Tree) PruneCondense() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == t.root {
		t.root.children = nil
		t.byID = map[string]*Node{t.root.ID: t.root}
		t.redoStack = nil
		return
	}

	t.current.parent = t.root
	t.current.ParentID = t.root.ID
	t.current.children = nil
	t.root.children = []*Node{t.current}
	t.byID = map[string]*Node{
		t.root.ID:    t.root,
		t.current.ID: t.current,
	}
	t.redoStack = nil
}

// Nodes returns all nodes reachable from the root in depth-first order,
// for serialization to clients.
func (t *Tree) Nodes() []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n)
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return out
}

func (t *Tree) currentPath() []*Node {
	var reversed []*Node
	for n := t.current; n != nil; n = n.parent {
		reversed = append(reversed, n)
	}
	path := make([]*Node, len(reversed))
	for i, n := range reversed {
		path[len(reversed)-1-i] = n
	}
	return path
}
