package files

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/teamvault/teamvault/internal/apperr"
	"github.com/teamvault/teamvault/internal/database"
	"github.com/teamvault/teamvault/internal/secret"
)

type UploadInput struct {
	Content        io.Reader
	Size           int64
	FileName       string
	Comment        string
	Tags           []string
	OwnerName      string
	DeletePassword string
	DownloadableAt *time.Time
	DataType       string
}

type UploadResult struct {
	File *FileInfo
	// DeletePassword echoes the plaintext password exactly once, for
	// anonymous uploaders to record. Empty otherwise.
	DeletePassword string
}

// Upload validates the input, persists the metadata row, writes the blob, and
// links the tags. The row is inserted with an empty object key first and
// completed after the blob write succeeds; a failed blob write removes the
// row again.
func (s *Service) Upload(ctx context.Context, in UploadInput, ident *Identity) (*UploadResult, error) {
	if in.Content == nil || in.FileName == "" {
		return nil, apperr.New(apperr.KindValidation, "file is required")
	}
	if in.Size > MaxFileSize {
		return nil, apperr.New(apperr.KindCapacity, "file size exceeds the 10MiB limit")
	}
	comment := strings.TrimSpace(in.Comment)
	if comment == "" {
		return nil, apperr.New(apperr.KindValidation, "comment is required")
	}
	ownerName := strings.TrimSpace(in.OwnerName)
	password := strings.TrimSpace(in.DeletePassword)
	if ident == nil {
		// Without an identity the password is the only way to ever authorize
		// a delete, so both fields are mandatory.
		if ownerName == "" {
			return nil, apperr.New(apperr.KindValidation, "owner name is required for anonymous uploads")
		}
		if password == "" {
			return nil, apperr.New(apperr.KindValidation, "delete password is required for anonymous uploads")
		}
	}
	tags := normalizeTags(in.Tags)
	if len(tags) > MaxTags {
		return nil, apperr.Newf(apperr.KindValidation, "at most %d tags are allowed", MaxTags)
	}
	fileName := filepath.Base(filepath.FromSlash(in.FileName))
	if fileName == "." || fileName == string(filepath.Separator) {
		return nil, apperr.New(apperr.KindValidation, "invalid file name")
	}

	var passwordHash *string
	if password != "" {
		hashed, err := secret.Hash(password)
		if err != nil {
			s.l.WithError(err).Error("can't hash delete password")
			return nil, err
		}
		stored := hashed.String()
		passwordHash = &stored
	}

	f := &database.File{
		UploadOwnerName: resolveOwnerName(ownerName, ident),
		FileName:        fileName,
		FileSize:        in.Size,
		FileComment:     comment,
		DataType:        resolveDataType(in.DataType),
		DeletePassword:  passwordHash,
		DownloadableAt:  in.DownloadableAt,
	}
	if ident != nil {
		f.UploadUserID = &ident.UserID
	}
	if err := s.repo.CreateFile(ctx, f); err != nil {
		s.l.WithError(err).Error("can't create file row")
		return nil, err
	}

	l := s.l.WithField("file_id", f.ID)
	key := fmt.Sprintf("files/%d/%s", f.ID, fileName)
	if err := s.store.Put(ctx, key, in.Content); err != nil {
		l.WithError(err).Error("can't write object, removing file row")
		if _, rmErr := s.repo.DeleteFile(ctx, f.ID); rmErr != nil {
			l.WithError(rmErr).Error("can't remove file row after failed object write")
		}
		return nil, err
	}
	if err := s.repo.SetObjectKey(ctx, f.ID, key); err != nil {
		// The row stays incomplete; the reconciliation sweep will purge it.
		l.WithError(err).WithField("object_key", key).Error("can't set object key")
		return nil, err
	}
	f.ObjectKey = key

	if err := s.repo.AttachTags(ctx, f.ID, tags); err != nil {
		l.WithError(err).Error("can't attach tags")
		return nil, err
	}

	res := &UploadResult{File: newFileInfo(f, tags)}
	if ident == nil && password != "" {
		res.DeletePassword = password
	}
	return res, nil
}

// normalizeTags trims each tag, drops empties, and silently deduplicates
// while preserving the first occurrence order.
func normalizeTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}

// resolveOwnerName picks the display name by priority: explicit input, the
// identity's email, then "Anonymous".
func resolveOwnerName(input string, ident *Identity) string {
	if input != "" {
		return input
	}
	if ident != nil {
		return ident.Email
	}
	return "Anonymous"
}

func resolveDataType(input string) string {
	if input == database.DataTypeMatch {
		return database.DataTypeMatch
	}
	return database.DataTypeTeam
}
