package files

import (
	"context"
	"errors"
	"io"

	"github.com/teamvault/teamvault/internal/apperr"
	"github.com/teamvault/teamvault/internal/database"
	"github.com/teamvault/teamvault/internal/storage"
)

type Download struct {
	Content  io.ReadCloser
	FileName string
	Size     int64
}

// Download resolves a file id to its byte stream, enforcing the
// downloadable_at gate. A row whose backing object is gone is a data
// integrity fault: logged with full context, surfaced as not-found.
func (s *Service) Download(ctx context.Context, id int64) (*Download, error) {
	f, err := s.repo.GetFile(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperr.New(apperr.KindNotFound, "file not found")
		}
		s.l.WithError(err).WithField("file_id", id).Error("can't get file row")
		return nil, err
	}
	if !f.Complete() {
		// The upload never finished; never serve such rows.
		return nil, apperr.New(apperr.KindNotFound, "file not found")
	}
	if f.Gated(s.now()) {
		return nil, apperr.Gated(*f.DownloadableAt)
	}

	rc, err := s.store.Get(ctx, f.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.l.WithFields(map[string]any{
				"file_id":    f.ID,
				"object_key": f.ObjectKey,
			}).Error("metadata row exists but object is missing")
			return nil, apperr.New(apperr.KindIntegrity, "file not found")
		}
		s.l.WithError(err).WithField("object_key", f.ObjectKey).Error("can't get object")
		return nil, err
	}
	return &Download{Content: rc, FileName: f.FileName, Size: f.FileSize}, nil
}
