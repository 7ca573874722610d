package main

import (
	"reflect"
	"testing"
)

func TestParseGlobalFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		config string
		rest   []string
		err    bool
	}{
		{"None", []string{"ls", "db"}, "", []string{"ls", "db"}, false},
		{"Short", []string{"-c", "fsdb.toml", "ls"}, "fsdb.toml", []string{"ls"}, false},
		{"Equals", []string{"--config=fsdb.toml", "rm", "db", "scan"}, "fsdb.toml", []string{"rm", "db", "scan"}, false},
		{"Help", []string{"--help"}, "", []string{"--help"}, false},
		{"MissingValue", []string{"--config"}, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, rest, err := parseGlobalFlags(tt.args)
			if (err != nil) != tt.err {
				t.Fatalf("Expected error %v, got %v", tt.err, err)
			}
			if tt.err {
				return
			}
			if config != tt.config {
				t.Errorf("Expected config %q, got %q", tt.config, config)
			}
			if !reflect.DeepEqual(rest, tt.rest) {
				t.Errorf("Expected rest %v, got %v", tt.rest, rest)
			}
		})
	}
}

func TestRun_Usage(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if code := run([]string{"unknown-command"}); code != 2 {
		t.Errorf("Expected exit code 2, got %d", code)
	}
	if code := run([]string{"help"}); code != 0 {
		t.Errorf("Expected exit code 0, got %d", code)
	}
}
