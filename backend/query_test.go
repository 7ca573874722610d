package backend

import (
	"reflect"
	"testing"
	"time"

	"github.com/mwantia/fsdb/data"
)

func TestEntryQuery_Matches(t *testing.T) {
	fileset := data.KindFileset

	tests := []struct {
		name  string
		query EntryQuery
		key   string
		want  bool
	}{
		{"root lists scans", EntryQuery{}, "scan", true},
		{"root skips filesets", EntryQuery{}, "scan/fs", false},
		{"recursive root", EntryQuery{Recursive: true}, "scan/fs/file", true},
		{"immediate child", EntryQuery{Parent: "scan"}, "scan/fs", true},
		{"grandchild", EntryQuery{Parent: "scan"}, "scan/fs/file", false},
		{"recursive grandchild", EntryQuery{Parent: "scan", Recursive: true}, "scan/fs/file", true},
		{"sibling prefix", EntryQuery{Parent: "scan", Recursive: true}, "scan_2/fs", false},
		{"parent itself", EntryQuery{Parent: "scan", Recursive: true}, "scan", false},
		{"kind filter", EntryQuery{Parent: "scan", Recursive: true, FilterKind: &fileset}, "scan/fs/file", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(tt.key, data.KindOf(tt.key)); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestApplyQuery(t *testing.T) {
	now := time.Now()
	entries := []*data.Entry{
		{Key: "scan/c", Kind: data.KindFileset, CreateTime: now},
		{Key: "scan/a", Kind: data.KindFileset, CreateTime: now.Add(2 * time.Second)},
		{Key: "scan/b", Kind: data.KindFileset, CreateTime: now.Add(time.Second)},
		{Key: "scan/a/file", Kind: data.KindFile, CreateTime: now},
		{Key: "other", Kind: data.KindScan, CreateTime: now},
	}

	keys := func(result *EntryQueryResult) []string {
		out := make([]string, 0, len(result.Candidates))
		for _, entry := range result.Candidates {
			out = append(out, entry.Key)
		}
		return out
	}

	result := ApplyQuery(entries, &EntryQuery{Parent: "scan"})
	if got := keys(result); !reflect.DeepEqual(got, []string{"scan/a", "scan/b", "scan/c"}) {
		t.Errorf("Expected key order, got %v", got)
	}
	if result.TotalCount != 3 || result.Paginating {
		t.Errorf("Expected 3 results without pagination, got %d (%v)", result.TotalCount, result.Paginating)
	}

	result = ApplyQuery(entries, &EntryQuery{Parent: "scan", SortBy: SortByCreateTime, SortOrder: SortDesc})
	if got := keys(result); !reflect.DeepEqual(got, []string{"scan/a", "scan/b", "scan/c"}) {
		t.Errorf("Expected newest first, got %v", got)
	}

	result = ApplyQuery(entries, &EntryQuery{Parent: "scan", Limit: 2})
	if got := keys(result); !reflect.DeepEqual(got, []string{"scan/a", "scan/b"}) {
		t.Errorf("Expected first page, got %v", got)
	}
	if !result.Paginating {
		t.Error("Expected more pages")
	}

	result = ApplyQuery(entries, &EntryQuery{Parent: "scan", Offset: 5})
	if len(result.Candidates) != 0 || result.TotalCount != 3 {
		t.Errorf("Expected empty page of 3, got %v of %d", keys(result), result.TotalCount)
	}
}

func TestEntryQuery_SQLOrder(t *testing.T) {
	tests := []struct {
		query EntryQuery
		want  string
	}{
		{EntryQuery{}, "ORDER BY key ASC"},
		{EntryQuery{SortOrder: SortDesc}, "ORDER BY key DESC"},
		{EntryQuery{SortBy: SortByModifyTime}, "ORDER BY modify_time ASC, key ASC"},
		{EntryQuery{SortBy: "key; DROP TABLE fsdb_entries"}, "ORDER BY key ASC"},
	}

	for _, tt := range tests {
		if got := tt.query.SQLOrder(); got != tt.want {
			t.Errorf("SQLOrder() = %q, want %q", got, tt.want)
		}
	}
}

func TestBackendCapabilities(t *testing.T) {
	caps := &BackendCapabilities{
		Capabilities:  []BackendCapability{CapabilityCatalog, CapabilityStorage},
		MaxObjectSize: 10,
	}

	if !caps.Contains(CapabilityStorage) || caps.Contains(CapabilityLock) {
		t.Errorf("Unexpected capabilities: %v", caps.Capabilities)
	}
	if !caps.Accepts(10) || caps.Accepts(11) {
		t.Error("Expected a limit of 10 bytes")
	}

	unlimited := &BackendCapabilities{}
	if !unlimited.Accepts(1 << 40) {
		t.Error("Expected zero MaxObjectSize to accept any size")
	}
}
