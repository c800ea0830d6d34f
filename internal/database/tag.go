package database

import "time"

// Tag is created lazily on first use and shared across files. Tags are never
// deleted by the engine; orphans are acceptable.
type Tag struct {
	ID        int64  `gorm:"primaryKey"`
	TagName   string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

// FileTag links a File to a Tag. The pair is unique; inserting it twice is a
// no-op.
type FileTag struct {
	FileID    int64 `gorm:"index:,unique,composite:file_tag"`
	TagID     int64 `gorm:"index:,unique,composite:file_tag"`
	CreatedAt time.Time
}
