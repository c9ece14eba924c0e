// internal/history/tree_test.go

package history

import (
	"encoding/json"
	"testing"
)

func state(s string) json.RawMessage {
	return json.RawMessage(`{"v":"` + s + `"}`)
}

func TestPushBackForward(t *testing.T) {
	tree := New("initial", state("a"))

	b := tree.Push("set time filter", state("b"))
	c := tree.Push("set religion filter", state("c"))

	if tree.Current().ID != c.ID {
		t.Fatalf("Expected current to be the last push")
	}

	n, err := tree.Back()
	if err != nil {
		t.Fatalf("Back failed: %v", err)
	}
	if n.ID != b.ID {
		t.Errorf("Expected back to land on b, got %s", n.Description)
	}

	n, err = tree.Forward()
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if n.ID != c.ID {
		t.Errorf("Expected forward to land on c, got %s", n.Description)
	}

	if _, err := tree.Forward(); err == nil {
		t.Errorf("Expected error when redo stack is empty")
	}
}

func TestBackAtRootFails(t *testing.T) {
	tree := New("initial", state("a"))
	if _, err := tree.Back(); err == nil {
		t.Errorf("Expected error when backing past the root")
	}
}

func TestPushAfterBackBranches(t *testing.T) {
	tree := New("initial", state("a"))
	b := tree.Push("b", state("b"))
	tree.Push("c", state("c"))

	if _, err := tree.Back(); err != nil {
		t.Fatalf("Back failed: %v", err)
	}
	d := tree.Push("d", state("d"))

	// The abandoned branch stays in the tree.
	if tree.Size() != 4 {
		t.Errorf("Expected 4 nodes after branching, got %d", tree.Size())
	}
	if got := tree.Node(b.ID).Children(); len(got) != 2 {
		t.Errorf("Expected b to have 2 children, got %d", len(got))
	}

	// But the redo stack was cleared by the push.
	if _, err := tree.Forward(); err == nil {
		t.Errorf("Expected forward to fail after a new push")
	}
	if tree.Current().ID != d.ID {
		t.Errorf("Expected current to be d")
	}
}

func TestGoTo(t *testing.T) {
	tree := New("initial", state("a"))
	b := tree.Push("b", state("b"))
	tree.Push("c", state("c"))

	n, err := tree.GoTo(b.ID)
	if err != nil {
		t.Fatalf("GoTo failed: %v", err)
	}
	if n.ID != b.ID {
		t.Errorf("Expected to land on b")
	}

	if _, err := tree.GoTo("not-a-node"); err == nil {
		t.Errorf("Expected error for unknown node id")
	}
}

func TestPruneKeepsCurrentPath(t *testing.T) {
	tree := New("initial", state("a"))
	tree.Push("b", state("b"))
	tree.Push("c", state("c"))
	tree.Back()
	tree.Push("d", state("d")) // branch: root -> b -> {c, d}

	tree.Prune()

	if tree.Size() != 3 {
		t.Errorf("Expected 3 nodes on the pruned path, got %d", tree.Size())
	}
	if tree.Current().Description != "d" {
		t.Errorf("Expected current to stay d")
	}
	for _, n := range tree.Nodes() {
		if n.Description == "c" {
			t.Errorf("Expected the abandoned branch to be gone")
		}
	}
}

func TestPruneCondense(t *testing.T) {
	tree := New("initial", state("a"))
	tree.Push("b", state("b"))
	tree.Push("c", state("c"))

	tree.PruneCondense()

	if tree.Size() != 2 {
		t.Errorf("Expected 2 nodes after condensing, got %d", tree.Size())
	}
	if tree.Current().Description != "c" {
		t.Errorf("Expected current to stay c")
	}
	if tree.Current().ParentID == "" {
		t.Errorf("Expected current to be re-parented onto the root")
	}
}

func TestReset(t *testing.T) {
	tree := New("initial", state("a"))
	tree.Push("b", state("b"))

	tree.Reset("fresh", state("z"))

	if tree.Size() != 1 {
		t.Errorf("Expected 1 node after reset, got %d", tree.Size())
	}
	if tree.Current().Description != "fresh" {
		t.Errorf("Expected current to be the fresh root")
	}
	if _, err := tree.Back(); err == nil {
		t.Errorf("Expected no history to navigate after reset")
	}
}
