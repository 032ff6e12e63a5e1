package model

import (
	"os"
	"path/filepath"
	"testing"
)

type persistedTree struct {
	State     *StateManager
	Feature   []int
	Threshold []float64
	Value     []float64
}

func sampleTree() *persistedTree {
	s := NewStateManager()
	s.SetFitted(3, 9)
	return &persistedTree{
		State:     s,
		Feature:   []int{0, -1, -1},
		Threshold: []float64{45.5, 0, 0},
		Value:     []float64{1200, 800, 1600},
	}
}

func TestSaveLoadModel(t *testing.T) {
	for _, name := range []string{"model.gob", "model.gob.xz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := SaveModel(sampleTree(), path); err != nil {
				t.Fatalf("SaveModel: %v", err)
			}
			if _, err := os.Stat(path); err != nil {
				t.Fatalf("artifact missing: %v", err)
			}

			var got persistedTree
			if err := LoadModel(&got, path); err != nil {
				t.Fatalf("LoadModel: %v", err)
			}
			if !got.State.IsFitted() {
				t.Error("fitted state was not restored")
			}
			if nf, ns := got.State.GetDimensions(); nf != 3 || ns != 9 {
				t.Errorf("dimensions = (%d, %d), want (3, 9)", nf, ns)
			}
			if len(got.Value) != 3 || got.Value[2] != 1600 {
				t.Errorf("values not restored: %v", got.Value)
			}
		})
	}
}

func TestCompressedFileIsXZ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.xz")
	if err := SaveModel(sampleTree(), path); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	magic := []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
	if len(raw) < len(magic) || string(raw[:len(magic)]) != string(magic) {
		t.Errorf("expected xz magic header, got % x", raw[:6])
	}
}

func TestSaveModelUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "model.gob")
	if err := SaveModel(sampleTree(), path); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
}

func TestLoadModelMissing(t *testing.T) {
	var got persistedTree
	if err := LoadModel(&got, filepath.Join(t.TempDir(), "nope.gob")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestStateManagerRequire(t *testing.T) {
	s := NewStateManager()
	if err := s.RequireFitted("RandomForestRegressor", "Predict"); err == nil {
		t.Error("unfitted state should fail RequireFitted")
	}
	s.SetFitted(5, 100)
	if err := s.RequireFitted("RandomForestRegressor", "Predict"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := s.RequireFeatures("Predict", 4); err == nil {
		t.Error("expected dimension error")
	}
	s.Reset()
	if s.IsFitted() {
		t.Error("Reset should clear fitted state")
	}
}
