package data

import (
	"regexp"
	"slices"
	"strings"
)

// KeySeparator joins the IDs of a scan, fileset and file into a catalog key.
const KeySeparator = "/"

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_\-][A-Za-z0-9_.\-]*$`)

// ReservedIDs collide with files of the on-disk layout and cannot be used as IDs.
var ReservedIDs = []string{"metadata", "romidb", "lock", "files.json"}

// ValidateID reports whether id can name a scan, fileset or file.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return ErrInvalidID
	}
	if slices.Contains(ReservedIDs, id) {
		return ErrInvalidID
	}

	return nil
}

// Filename returns the name the content of file id is stored under when
// written with extension ext, given with or without leading dot.
func Filename(id, ext string) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if strings.Count(ext, ".") > 1 {
		return "", ErrInvalid
	}

	filename := id + ext
	if err := ValidateID(filename); err != nil {
		return "", ErrInvalid
	}

	return filename, nil
}

// JoinKey builds a catalog key from a path of IDs, e.g. "scan/fileset/file".
func JoinKey(ids ...string) string {
	return strings.Join(ids, KeySeparator)
}

// SplitKey returns the IDs a key is made of. The empty key has none.
func SplitKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, KeySeparator)
}

// ParentKey returns the key of the parent entry, or "" for scans.
func ParentKey(key string) string {
	if idx := strings.LastIndex(key, KeySeparator); idx >= 0 {
		return key[:idx]
	}
	return ""
}

// BaseID returns the last ID of a key.
func BaseID(key string) string {
	if idx := strings.LastIndex(key, KeySeparator); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

// KindOf derives the entry kind from the depth of a key.
func KindOf(key string) Kind {
	switch len(SplitKey(key)) {
	case 1:
		return KindScan
	case 2:
		return KindFileset
	case 3:
		return KindFile
	default:
		return KindUnknown
	}
}

// ValidateKey checks every ID of a key and its depth.
func ValidateKey(key string) error {
	if KindOf(key) == KindUnknown {
		return ErrInvalidID
	}
	for _, id := range SplitKey(key) {
		if err := ValidateID(id); err != nil {
			return err
		}
	}

	return nil
}

// IsDescendantKey reports whether key lies below parent. Every key is a
// descendant of the empty root key.
func IsDescendantKey(parent, key string) bool {
	if parent == "" {
		return key != ""
	}
	return strings.HasPrefix(key, parent+KeySeparator)
}

// IsChildKey reports whether key is an immediate child of parent.
func IsChildKey(parent, key string) bool {
	return IsDescendantKey(parent, key) && ParentKey(key) == parent
}
