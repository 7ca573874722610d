package data

import "time"

// ObjectStat describes a stored object as reported by a storage backend.
type ObjectStat struct {
	Key         string      `json:"key"`
	Size        int64       `json:"size"`
	ContentType ContentType `json:"content_type"`
	ETag        string      `json:"etag,omitempty"`
	ModifyTime  time.Time   `json:"modify_time"`
}
