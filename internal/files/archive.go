package files

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/teamvault/teamvault/internal/apperr"
	"github.com/teamvault/teamvault/internal/storage"
)

type ArchiveResult struct {
	Name string
	Data []byte
	// SkippedNotAvailable lists files left out because their
	// downloadable_at has not been reached.
	SkippedNotAvailable []string
}

// BulkArchive packages many files into one zip held in memory. Missing rows
// and missing blobs are skipped (best-effort batch semantics); gated files
// are skipped and reported; blowing the memory ceiling aborts the whole
// operation rather than returning a partial archive.
func (s *Service) BulkArchive(ctx context.Context, ids []int64) (*ArchiveResult, error) {
	if len(ids) == 0 {
		return nil, apperr.New(apperr.KindValidation, "a list of file ids is required")
	}
	if len(ids) > MaxBulkFiles {
		return nil, apperr.Newf(apperr.KindCapacity, "at most %d files per download", MaxBulkFiles)
	}
	ids = uniqueIDs(ids)

	rows, err := s.repo.FilesByIDs(ctx, ids)
	if err != nil {
		s.l.WithError(err).Error("can't resolve file ids")
		return nil, err
	}

	var (
		buf        bytes.Buffer
		zw         = zip.NewWriter(&buf)
		total      int64
		added      int
		nameCounts = map[string]int{}
		skipped    []string
		now        = s.now()
	)
	for _, id := range ids {
		f, ok := rows[id]
		if !ok || !f.Complete() {
			continue
		}
		if f.Gated(now) {
			skipped = append(skipped, f.FileName)
			continue
		}

		rc, err := s.store.Get(ctx, f.ObjectKey)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				s.l.WithFields(map[string]any{
					"file_id":    f.ID,
					"object_key": f.ObjectKey,
				}).Error("metadata row exists but object is missing, skipping")
				continue
			}
			s.l.WithError(err).WithField("object_key", f.ObjectKey).Error("can't get object")
			return nil, err
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			s.l.WithError(err).WithField("object_key", f.ObjectKey).Error("can't read object")
			return nil, err
		}

		// Checked after every fetch so the ceiling holds mid-batch, not just
		// at the end.
		total += int64(len(data))
		if total > s.maxArchiveBytes {
			return nil, apperr.New(apperr.KindCapacity, "combined file size is too large")
		}

		w, err := zw.Create(entryName(f.FileName, nameCounts))
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		added++
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	if added == 0 {
		if len(skipped) > 0 {
			return nil, apperr.New(apperr.KindGated, "selected files are not downloadable yet")
		}
		return nil, apperr.New(apperr.KindNotFound, "no downloadable files")
	}

	return &ArchiveResult{
		Name:                fmt.Sprintf("bulk_download_%s.zip", s.now().Format("2006-01-02T15-04-05")),
		Data:                buf.Bytes(),
		SkippedNotAvailable: skipped,
	}, nil
}

func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// entryName keeps archive entry names unique by appending a numeric suffix
// before the extension on the second and later occurrences of a file name.
func entryName(fileName string, counts map[string]int) string {
	count := counts[fileName]
	counts[fileName]++
	if count == 0 {
		return fileName
	}
	ext := path.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	return fmt.Sprintf("%s_%d%s", base, count, ext)
}
