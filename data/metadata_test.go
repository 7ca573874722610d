package data

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDecodeMetadata(t *testing.T) {
	md, err := DecodeMetadata([]byte(`{"plant": "arabidopsis", "count": 12, "nested": {"angle": 0.5}}`))
	if err != nil {
		t.Fatalf("DecodeMetadata failed: %v", err)
	}

	if md["plant"] != "arabidopsis" {
		t.Errorf("Expected plant 'arabidopsis', got %v", md["plant"])
	}
	if md["count"] != json.Number("12") {
		t.Errorf("Expected count to be kept as json.Number, got %#v", md["count"])
	}

	if _, err := DecodeMetadata([]byte(`[1, 2]`)); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for a JSON array, got %v", err)
	}

	empty, err := DecodeMetadata(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty metadata for empty input, got %v (%v)", empty, err)
	}
}

func TestNormalizeMetadata(t *testing.T) {
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	md, err := NormalizeMetadata(map[string]any{
		"taken":  when,
		"sizes":  []int64{1, 2},
		"camera": map[string]any{"model": "rx0"},
	})
	if err != nil {
		t.Fatalf("NormalizeMetadata failed: %v", err)
	}

	if md["taken"] != "2024-03-01T12:00:00Z" {
		t.Errorf("Expected time to become an RFC 3339 string, got %#v", md["taken"])
	}
	sizes, ok := md["sizes"].([]any)
	if !ok || len(sizes) != 2 {
		t.Errorf("Expected sizes to become []any, got %#v", md["sizes"])
	}
	if _, ok := md["camera"].(map[string]any); !ok {
		t.Errorf("Expected camera to stay an object, got %#v", md["camera"])
	}

	if _, err := NormalizeMetadata(map[string]any{"ch": make(chan int)}); err == nil {
		t.Error("Expected an error for a value JSON cannot encode")
	}
}

func TestMetadata_MergeClone(t *testing.T) {
	base := Metadata{"a": "1", "nested": map[string]any{"x": "y"}}

	clone := base.Clone()
	clone["nested"].(map[string]any)["x"] = "changed"
	if base["nested"].(map[string]any)["x"] != "y" {
		t.Error("Expected Clone to copy nested maps")
	}

	merged := base.Merge(Metadata{"a": "2", "b": "3"})
	if merged["a"] != "2" || merged["b"] != "3" {
		t.Errorf("Unexpected merge result %v", merged)
	}

	merged.Set("c", true)
	if value, exists := merged.Get("c"); !exists || value != true {
		t.Errorf("Expected 'c' to be set, got %v", value)
	}

	var nilMeta Metadata
	if got := nilMeta.Merge(Metadata{"k": "v"}); got["k"] != "v" {
		t.Errorf("Expected merge into nil metadata to allocate, got %v", got)
	}
}

func TestEntryUpdate_Apply(t *testing.T) {
	target := NewEntry("scan/images/img_0")
	before := target.ModifyTime

	update := &EntryUpdate{
		Mask: EntryUpdateFilename | EntryUpdateSize,
		Entry: &Entry{
			Filename: "img_0.png",
			Size:     42,
			Metadata: Metadata{"ignored": true},
		},
	}

	modified, err := update.Apply(target)
	if err != nil || !modified {
		t.Fatalf("Apply = %v, %v", modified, err)
	}
	if target.Filename != "img_0.png" || target.Size != 42 {
		t.Errorf("Unexpected entry after update: %+v", target)
	}
	if _, exists := target.Metadata["ignored"]; exists {
		t.Error("Expected metadata to be left untouched when not masked")
	}
	if target.ModifyTime.Before(before) {
		t.Error("Expected ModifyTime to move forward")
	}

	if _, err := (&EntryUpdate{Mask: EntryUpdateAll}).Apply(target); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid without an entry, got %v", err)
	}
}
