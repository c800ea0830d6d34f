// Package files is the content upload and retrieval engine: it owns file
// metadata, object placement, tag association, deletion authorization,
// download gating, and bulk archive generation. The relational and object
// stores are collaborators behind interfaces.
package files

import (
	"context"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/teamvault/teamvault/internal/database"
)

const (
	// MaxFileSize caps a single uploaded file.
	MaxFileSize = 10 << 20
	// MaxTags caps the tags attached to one file.
	MaxTags = 4
	// MaxBulkFiles caps the id list of one bulk download.
	MaxBulkFiles = 50
	// maxArchiveTotalBytes caps the bytes held in memory while building one
	// archive.
	maxArchiveTotalBytes = 100 << 20
)

// Identity is a caller resolved by the external auth collaborator. The engine
// never parses credentials itself; a nil *Identity means anonymous.
type Identity struct {
	UserID int64
	Email  string
}

type MetadataRepository interface {
	CreateFile(ctx context.Context, f *database.File) error
	SetObjectKey(ctx context.Context, id int64, key string) error
	GetFile(ctx context.Context, id int64) (*database.File, error)
	SearchFiles(ctx context.Context, q database.SearchQuery) ([]*database.File, int64, error)
	FilesByIDs(ctx context.Context, ids []int64) (map[int64]*database.File, error)
	TagsForFiles(ctx context.Context, ids []int64) (map[int64][]string, error)
	AttachTags(ctx context.Context, fileID int64, names []string) error
	ListTags(ctx context.Context) ([]string, error)
	DeleteFile(ctx context.Context, id int64) (bool, error)
}

// ObjectStore is the blob side. Delete of an absent key must be a no-op.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	repo  MetadataRepository
	store ObjectStore
	l     *log.Entry

	// now is swappable so gating boundaries are testable.
	now             func() time.Time
	maxArchiveBytes int64
}

func NewService(repo MetadataRepository, store ObjectStore, l *log.Entry) *Service {
	return &Service{
		repo:            repo,
		store:           store,
		l:               l,
		now:             time.Now,
		maxArchiveBytes: maxArchiveTotalBytes,
	}
}

// FileInfo is the caller-facing shape of a file row plus its tags.
type FileInfo struct {
	ID              int64      `json:"id"`
	UploadUserID    *int64     `json:"upload_user_id"`
	UploadOwnerName string     `json:"upload_owner_name"`
	FileName        string     `json:"file_name"`
	FileSize        int64      `json:"file_size"`
	FileComment     string     `json:"file_comment"`
	DataType        string     `json:"data_type"`
	DownloadableAt  *time.Time `json:"downloadable_at"`
	Tags            []string   `json:"tags"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

const maskedComment = "comment hidden until the file becomes downloadable"

func newFileInfo(f *database.File, tags []string) *FileInfo {
	if tags == nil {
		tags = []string{}
	}
	return &FileInfo{
		ID:              f.ID,
		UploadUserID:    f.UploadUserID,
		UploadOwnerName: f.UploadOwnerName,
		FileName:        f.FileName,
		FileSize:        f.FileSize,
		FileComment:     f.FileComment,
		DataType:        f.DataType,
		DownloadableAt:  f.DownloadableAt,
		Tags:            tags,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// mask hides the comment and tags of a file that is not yet downloadable.
func (i *FileInfo) mask() {
	i.FileComment = maskedComment
	i.Tags = []string{}
}
