package database

import (
	"time"

	"github.com/teamvault/teamvault/internal/secret"
)

// Wire values for File.DataType, kept as the client sends them.
const (
	DataTypeTeam  = "1"
	DataTypeMatch = "2"
)

// File is a stored artifact row. The binary content lives in the object
// store under ObjectKey; a row with an empty ObjectKey never finished its
// upload and must not be served.
type File struct {
	ID              int64  `gorm:"primaryKey"`
	UploadUserID    *int64 `gorm:"index"`
	UploadOwnerName string `gorm:"not null"`
	FileName        string `gorm:"not null"`
	ObjectKey       string `gorm:"not null;default:''"`
	FileSize        int64  `gorm:"not null"`
	FileComment     string `gorm:"not null"`
	DataType        string `gorm:"not null;index;default:'1'"`
	DeletePassword  *string
	DownloadableAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Complete reports whether the upload pipeline finished writing the blob.
func (f *File) Complete() bool {
	return f.ObjectKey != ""
}

// Gated reports whether the file is withheld at the given instant. A file
// whose downloadable_at equals now is downloadable.
func (f *File) Gated(now time.Time) bool {
	return f.DownloadableAt != nil && now.Before(*f.DownloadableAt)
}

// PasswordHash returns the stored delete-password hash, if any. Authenticated
// uploads may carry one in addition to their user owner.
func (f *File) PasswordHash() (secret.Hashed, bool) {
	if f.DeletePassword == nil || *f.DeletePassword == "" {
		return secret.Hashed{}, false
	}
	return secret.Parse(*f.DeletePassword), true
}

// Owner derives the ownership union from the row.
func (f *File) Owner() Owner {
	if f.UploadUserID != nil {
		return OwnedBy(*f.UploadUserID)
	}
	hash, _ := f.PasswordHash()
	return AnonymousOwner(hash)
}

type ownerKind int

const (
	ownerUser ownerKind = iota + 1
	ownerAnonymous
)

// Owner is the deletion authority of a File: either an authenticated user id
// or a delete-password hash. Exactly one variant holds.
type Owner struct {
	kind   ownerKind
	userID int64
	hash   secret.Hashed
}

func OwnedBy(userID int64) Owner {
	return Owner{kind: ownerUser, userID: userID}
}

func AnonymousOwner(hash secret.Hashed) Owner {
	return Owner{kind: ownerAnonymous, hash: hash}
}

// User returns the owning user id when the file was uploaded authenticated.
func (o Owner) User() (int64, bool) {
	return o.userID, o.kind == ownerUser
}

// Anonymous reports the anonymous variant and its password hash.
func (o Owner) Anonymous() (secret.Hashed, bool) {
	return o.hash, o.kind == ownerAnonymous
}
