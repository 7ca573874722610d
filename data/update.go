package data

import (
	"time"
)

// EntryUpdateMask controls which fields of an entry should be updated.
// This allows partial updates without needing to fetch and write back entire entries.
type EntryUpdateMask int

const (
	EntryUpdateFilename    EntryUpdateMask = 1 << iota // Update stored object name
	EntryUpdateSize                                    // Update Size
	EntryUpdateContentType                             // Update Content Type
	EntryUpdateMetadata                                // Replace Metadata map

	EntryUpdateContent = EntryUpdateFilename | EntryUpdateSize | EntryUpdateContentType
	EntryUpdateAll     = ^EntryUpdateMask(0) // Update all fields
)

// EntryUpdate represents a partial update to an entry.
type EntryUpdate struct {
	Mask  EntryUpdateMask `json:"mask"`
	Entry *Entry          `json:"entry"`
}

// Has reports whether the mask selects field.
func (eu *EntryUpdate) Has(field EntryUpdateMask) bool {
	return eu.Mask&field != 0
}

// Apply applies this update to an existing entry.
func (eu *EntryUpdate) Apply(target *Entry) (bool, error) {
	if eu.Entry == nil {
		return false, ErrInvalid
	}

	modified := false

	if eu.Has(EntryUpdateFilename) {
		target.Filename = eu.Entry.Filename
		modified = true
	}

	if eu.Has(EntryUpdateSize) {
		target.Size = eu.Entry.Size
		modified = true
	}

	if eu.Has(EntryUpdateContentType) {
		target.ContentType = eu.Entry.ContentType
		modified = true
	}

	if eu.Has(EntryUpdateMetadata) {
		target.Metadata = eu.Entry.Metadata.Clone()
		if target.Metadata == nil {
			target.Metadata = make(Metadata)
		}
		modified = true
	}

	// Only update ModifyTime if any form of modification actually happened
	if modified {
		target.ModifyTime = time.Now()
	}

	return modified, nil
}
