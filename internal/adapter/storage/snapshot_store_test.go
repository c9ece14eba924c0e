// internal/adapter/storage/snapshot_store_test.go

package storage

import (
	"encoding/json"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	state := json.RawMessage(`{"display-mode":"religion","show-filtered":true}`)
	info, err := store.Save(state)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(info.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var got, want map[string]interface{}
	if err := json.Unmarshal(loaded, &got); err != nil {
		t.Fatalf("Loaded snapshot is not valid JSON: %v", err)
	}
	if err := json.Unmarshal(state, &want); err != nil {
		t.Fatalf("Failed to unmarshal original: %v", err)
	}
	if got["display-mode"] != want["display-mode"] || got["show-filtered"] != want["show-filtered"] {
		t.Errorf("Snapshot changed across the round trip: %v vs %v", got, want)
	}
}

func TestSnapshotListAndDelete(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	first, err := store.Save(json.RawMessage(`{"a":1}`))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second, err := store.Save(json.RawMessage(`{"b":2}`))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(infos))
	}

	if err := store.Delete(first.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	infos, err = store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != second.ID {
		t.Errorf("Expected only snapshot %s to remain, got %v", second.ID, infos)
	}

	if _, err := store.Load(first.ID); err == nil {
		t.Errorf("Expected loading a deleted snapshot to fail")
	}
}

func TestSnapshotLoadUnknownID(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if _, err := store.Load("00000000-0000-0000-0000-000000000000"); err == nil {
		t.Errorf("Expected unknown snapshot id to fail")
	}
}
