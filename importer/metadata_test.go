package importer

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mwantia/fsdb/data"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected data.Metadata
		err      bool
	}{
		{
			name:     "JSON",
			text:     `{"plant": "arabidopsis", "day": 12, "tags": ["a", "b"]}`,
			expected: data.Metadata{"plant": "arabidopsis", "day": json.Number("12"), "tags": []any{"a", "b"}},
		},
		{
			name:     "TOML",
			text:     "plant = \"arabidopsis\"\nday = 12\n\n[camera]\nexposure = 0.5\n",
			expected: data.Metadata{"plant": "arabidopsis", "day": json.Number("12"), "camera": map[string]any{"exposure": json.Number("0.5")}},
		},
		{
			name:     "EmptyObject",
			text:     "{}",
			expected: data.Metadata{},
		},
		{name: "Empty", text: "  ", err: true},
		{name: "Array", text: "[1, 2]", err: true},
		{name: "Garbage", text: "this is not metadata", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metadata, err := ParseMetadata(tt.text)
			if tt.err {
				if err == nil {
					t.Errorf("Expected error, got %v", metadata)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMetadata failed: %v", err)
			}
			if !reflect.DeepEqual(metadata, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, metadata)
			}
		})
	}
}

func TestLoadMetadataFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"meta.json": `{"source": "json"}`,
		"meta.toml": `source = "toml"`,
		"meta.txt":  `source = "fallback"`,
		"bad.json":  `source = "toml in json"`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	for name, expected := range map[string]string{"meta.json": "json", "meta.toml": "toml", "meta.txt": "fallback"} {
		metadata, err := LoadMetadataFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("LoadMetadataFile(%s) failed: %v", name, err)
		}
		if metadata["source"] != expected {
			t.Errorf("Expected source %q for %s, got %v", expected, name, metadata["source"])
		}
	}

	// The extension decides the format
	if _, err := LoadMetadataFile(filepath.Join(dir, "bad.json")); err == nil {
		t.Error("Expected TOML content in a .json file to fail")
	}

	if _, err := LoadMetadataFile(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}
