package backend

import (
	"slices"
	"strings"

	"github.com/mwantia/fsdb/data"
)

type EntryQuery struct {
	// Parent key whose children are listed; "" lists scans
	Parent string `json:"parent"`

	// Recursive includes all descendants instead of immediate children only
	Recursive bool `json:"recursive,omitempty"`

	// Filter by entry kind (scan, fileset, file)
	FilterKind *data.Kind `json:"filter_kind,omitempty"`

	// Max results to return (0 = unlimited)
	Limit int `json:"limit"`

	// Skip this many results during pagination
	Offset int `json:"offset"`

	SortBy    EntrySortField `json:"sort_by"`
	SortOrder SortOrder      `json:"sort_order"`
}

type EntryQueryResult struct {
	// List of all queried entries
	Candidates []*data.Entry

	// Total matches before pagination
	TotalCount int

	// Whenever more results exist beyond the returned page
	Paginating bool
}

type EntrySortField string

const (
	SortByKey        EntrySortField = "key"
	SortByCreateTime EntrySortField = "create_time"
	SortByModifyTime EntrySortField = "modify_time"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Matches reports whether key (of the given kind) is selected by the query,
// ignoring pagination.
func (q *EntryQuery) Matches(key string, kind data.Kind) bool {
	if q.Recursive {
		if !data.IsDescendantKey(q.Parent, key) {
			return false
		}
	} else if !data.IsChildKey(q.Parent, key) {
		return false
	}

	return q.FilterKind == nil || *q.FilterKind == kind
}

// ApplyQuery filters, sorts and paginates candidates for backends that cannot
// push the query down to their store.
func ApplyQuery(candidates []*data.Entry, query *EntryQuery) *EntryQueryResult {
	filtered := make([]*data.Entry, 0, len(candidates))
	for _, entry := range candidates {
		if query.Matches(entry.Key, entry.Kind) {
			filtered = append(filtered, entry)
		}
	}

	SortEntries(filtered, query.SortBy, query.SortOrder)

	total := len(filtered)
	if query.Offset > 0 {
		if query.Offset >= len(filtered) {
			filtered = filtered[:0]
		} else {
			filtered = filtered[query.Offset:]
		}
	}

	paginating := false
	if query.Limit > 0 && len(filtered) > query.Limit {
		filtered = filtered[:query.Limit]
		paginating = true
	}

	return &EntryQueryResult{
		Candidates: filtered,
		TotalCount: total,
		Paginating: paginating,
	}
}

// SortEntries orders entries in place; keys break ties so results are stable.
func SortEntries(entries []*data.Entry, field EntrySortField, order SortOrder) {
	slices.SortStableFunc(entries, func(a, b *data.Entry) int {
		result := 0
		switch field {
		case SortByCreateTime:
			result = a.CreateTime.Compare(b.CreateTime)
		case SortByModifyTime:
			result = a.ModifyTime.Compare(b.ModifyTime)
		}
		if result == 0 {
			result = strings.Compare(a.Key, b.Key)
		}
		if order == SortDesc {
			result = -result
		}
		return result
	})
}

// SQLOrder returns a safe ORDER BY clause for SQL backends.
func (q *EntryQuery) SQLOrder() string {
	column := "key"
	switch q.SortBy {
	case SortByCreateTime:
		column = "create_time"
	case SortByModifyTime:
		column = "modify_time"
	}

	direction := "ASC"
	if q.SortOrder == SortDesc {
		direction = "DESC"
	}

	if column == "key" {
		return "ORDER BY key " + direction
	}
	return "ORDER BY " + column + " " + direction + ", key " + direction
}
