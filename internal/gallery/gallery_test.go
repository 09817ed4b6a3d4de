package gallery

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/facescan/internal/facematch"
)

func testEntry(id, name string, d ...float32) facematch.GalleryEntry {
	return facematch.GalleryEntry{IdentityID: id, DisplayName: name, Descriptor: d}
}

func TestIndex_CopiesInput(t *testing.T) {
	in := []facematch.GalleryEntry{testEntry("a", "Jane Smith", 1, 2)}
	idx := New(in)

	in[0].DisplayName = "changed"
	in[0].Descriptor[0] = 99

	got, ok := idx.Get("a")
	if !ok {
		t.Fatal("entry a missing")
	}
	if got.DisplayName != "Jane Smith" || got.Descriptor[0] != 1 {
		t.Errorf("index was affected by caller mutation: %+v", got)
	}
	if idx.Dim() != 2 || idx.Len() != 1 {
		t.Errorf("Dim/Len = %d/%d, want 2/1", idx.Dim(), idx.Len())
	}
}

func TestIndex_FindByName(t *testing.T) {
	idx := New([]facematch.GalleryEntry{
		testEntry("1", "Emma García", 1),
		testEntry("2", "Tom Miller", 1),
		testEntry("3", "emma-garcia", 1),
	})

	got := idx.FindByName("EMMA GARCIA")
	if len(got) != 2 || got[0].IdentityID != "1" || got[1].IdentityID != "3" {
		t.Errorf("FindByName() = %+v", got)
	}
}

func TestValidate(t *testing.T) {
	ok := []facematch.GalleryEntry{testEntry("a", "", 1, 2), testEntry("b", "", 3, 4)}
	if err := Validate(ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Validate(nil); err != nil {
		t.Errorf("empty gallery is valid, got %v", err)
	}

	bad := append(ok, testEntry("c", "", 1))
	err := Validate(bad)
	var dimErr *facematch.DimensionError
	if !errors.As(err, &dimErr) || dimErr.IdentityID != "c" {
		t.Fatalf("expected DimensionError for c, got %v", err)
	}
	if !errors.Is(err, facematch.ErrDimensionMismatch) {
		t.Error("expected errors.Is ErrDimensionMismatch")
	}
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := NewStore([]facematch.GalleryEntry{testEntry("a", "", 1, 0)})
	before := s.Snapshot()

	if err := s.Add(testEntry("b", "", 0, 1)); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if before.Len() != 1 {
		t.Errorf("old snapshot changed: len %d", before.Len())
	}
	if s.Snapshot().Len() != 2 || len(s.All()) != 2 {
		t.Errorf("new snapshot len = %d, want 2", s.Snapshot().Len())
	}

	if err := s.Remove("a"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if _, ok := s.Snapshot().Get("a"); ok {
		t.Error("a still present after Remove")
	}
	if _, ok := before.Get("a"); !ok {
		t.Error("old snapshot lost a")
	}
}

func TestStore_AddRejects(t *testing.T) {
	s := NewStore([]facematch.GalleryEntry{testEntry("a", "", 1, 0)})

	if err := s.Add(testEntry("a", "", 0, 1)); err == nil {
		t.Error("expected duplicate id error")
	}
	if err := s.Add(testEntry("", "", 0, 1)); err == nil {
		t.Error("expected missing id error")
	}
	if err := s.Add(testEntry("b", "", 1, 2, 3)); !errors.Is(err, facematch.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
	if s.Snapshot().Len() != 1 {
		t.Error("failed Add must not change the gallery")
	}
	if err := s.Remove("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Replace(t *testing.T) {
	s := NewStore(nil)
	if err := s.Replace([]facematch.GalleryEntry{testEntry("a", "", 1), testEntry("b", "", 1, 2)}); err == nil {
		t.Error("expected error for mixed dimensions")
	}
	if err := s.Replace([]facematch.GalleryEntry{testEntry("a", "", 1)}); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}
	if s.Snapshot().Len() != 1 {
		t.Error("Replace did not swap the gallery")
	}
}

func TestParseYAML(t *testing.T) {
	doc := []byte(`
entries:
  - id: face_1
    name: John Doe
    location: New York
    source: public_database
    captured_at: 2026-09-01T10:00:00Z
    descriptor: [0.5, -0.25, 1]
    metadata:
      age: 42
      gender: male
      ethnicity: Other
  - id: face_2
    name: Jane Smith
    descriptor: [1, 0, 0]
`)
	entries, err := ParseYAML(doc)
	if err != nil {
		t.Fatalf("ParseYAML() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	e := entries[0]
	if e.IdentityID != "face_1" || e.Location != "New York" || e.Demographics.AgeEstimate != 42 {
		t.Errorf("unexpected entry: %+v", e)
	}
	if !e.CapturedAt.Equal(time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("CapturedAt = %v", e.CapturedAt)
	}
	if len(e.Descriptor) != 3 || e.Descriptor[1] != -0.25 {
		t.Errorf("Descriptor = %v", e.Descriptor)
	}
}

func TestParseYAML_Errors(t *testing.T) {
	tests := map[string]string{
		"missing id":    "entries:\n  - name: x\n    descriptor: [1]\n",
		"mixed lengths": "entries:\n  - id: a\n    descriptor: [1]\n  - id: b\n    descriptor: [1, 2]\n",
		"not yaml":      "entries: [unclosed",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseYAML([]byte(doc)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestWriteYAML_ReadsBack(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	entries := Generate(3, 4, 7, now)

	var buf bytes.Buffer
	if err := WriteYAML(&buf, entries); err != nil {
		t.Fatalf("WriteYAML() error: %v", err)
	}
	back, err := ParseYAML(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseYAML() error: %v", err)
	}
	if len(back) != 3 || back[2].IdentityID != "face_3" || !back[2].CapturedAt.Equal(entries[2].CapturedAt) {
		t.Errorf("unexpected entries after write: %+v", back)
	}
}

func TestGenerate(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	a := Generate(20, 128, 42, now)
	b := Generate(20, 128, 42, now)

	if len(a) != 20 {
		t.Fatalf("len = %d, want 20", len(a))
	}
	for i := range a {
		if a[i].IdentityID != b[i].IdentityID || a[i].Descriptor[5] != b[i].Descriptor[5] ||
			a[i].Demographics != b[i].Demographics {
			t.Fatalf("entry %d differs for the same seed", i)
		}
		if len(a[i].Descriptor) != 128 {
			t.Errorf("entry %d dim = %d", i, len(a[i].Descriptor))
		}
		age := a[i].Demographics.AgeEstimate
		if age < 20 || age > 69 {
			t.Errorf("entry %d age = %d", i, age)
		}
		if a[i].CapturedAt.After(now) || a[i].CapturedAt.Before(now.Add(-30*24*time.Hour)) {
			t.Errorf("entry %d captured at %v outside the last 30 days", i, a[i].CapturedAt)
		}
	}
	if a[8].DisplayName != "John Doe" || a[9].Location != "Los Angeles" {
		t.Error("names and locations should cycle")
	}

	c := Generate(1, 128, 43, now)
	if c[0].Descriptor[0] == a[0].Descriptor[0] && c[0].Descriptor[1] == a[0].Descriptor[1] {
		t.Error("different seeds should give different descriptors")
	}
}

func TestLoad(t *testing.T) {
	s, err := Load(context.Background(), DemoLoader{Size: 5, Dim: 8, Seed: 1})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.Snapshot().Len() != 5 || s.Snapshot().Dim() != 8 {
		t.Errorf("unexpected gallery: len %d dim %d", s.Snapshot().Len(), s.Snapshot().Dim())
	}

	if _, err := Load(context.Background(), YAMLLoader{Path: "does-not-exist.yaml"}); err == nil {
		t.Error("expected error for missing file")
	}
}
