package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mwantia/fsdb/data"
)

// LoadMetadataFile reads fileset metadata from a JSON or TOML document.
// Files with other extensions are tried as JSON first, then as TOML.
func LoadMetadataFile(path string) (data.Metadata, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return data.DecodeMetadata(buf)
	case ".toml":
		return decodeTOML(string(buf))
	}

	return ParseMetadata(string(buf))
}

// ParseMetadata decodes inline metadata given as JSON object or TOML.
func ParseMetadata(text string) (data.Metadata, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty metadata: %w", data.ErrInvalid)
	}

	metadata, jsonErr := data.DecodeMetadata([]byte(text))
	if jsonErr == nil {
		return metadata, nil
	}

	metadata, tomlErr := decodeTOML(text)
	if tomlErr == nil {
		return metadata, nil
	}

	return nil, fmt.Errorf("metadata is neither JSON nor TOML: %w", errors.Join(jsonErr, tomlErr))
}

func decodeTOML(text string) (data.Metadata, error) {
	var document map[string]any
	if _, err := toml.Decode(text, &document); err != nil {
		return nil, fmt.Errorf("failed to decode TOML metadata: %w", err)
	}

	return data.NormalizeMetadata(document)
}
