package database

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrRecordNotFound = gorm.ErrRecordNotFound

type Repository struct {
	db *gorm.DB
	l  *log.Entry
}

func NewRepository(db *gorm.DB, l *log.Entry) *Repository {
	return &Repository{db: db, l: l}
}

func (r *Repository) CreateFile(ctx context.Context, f *File) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// SetObjectKey marks the upload complete once the blob write is confirmed.
func (r *Repository) SetObjectKey(ctx context.Context, id int64, key string) error {
	return r.db.WithContext(ctx).
		Model(&File{}).
		Where("id = ?", id).
		Update("object_key", key).Error
}

func (r *Repository) GetFile(ctx context.Context, id int64) (*File, error) {
	f := &File{}
	if err := r.db.WithContext(ctx).First(f, id).Error; err != nil {
		return nil, err
	}
	return f, nil
}

// SearchFiles returns one page for the filter set plus the exact total for
// that same filter set. The count and page queries run in parallel.
func (r *Repository) SearchFiles(ctx context.Context, q SearchQuery) ([]*File, int64, error) {
	q = q.Normalized()

	var (
		files = make([]*File, 0, q.Limit)
		total int64
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return q.apply(r.db.WithContext(egCtx).Model(&File{})).Count(&total).Error
	})
	eg.Go(func() error {
		// Secondary sort on id keeps pagination stable across equal timestamps.
		return q.apply(r.db.WithContext(egCtx).Model(&File{})).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: !q.SortAsc}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: !q.SortAsc}).
			Limit(q.Limit).
			Offset(q.Offset()).
			Find(&files).Error
	})
	if err := eg.Wait(); err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

// FilesByIDs resolves many ids in one query. Absent ids are simply missing
// from the result map.
func (r *Repository) FilesByIDs(ctx context.Context, ids []int64) (map[int64]*File, error) {
	var files []*File
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&files).Error; err != nil {
		return nil, err
	}
	m := make(map[int64]*File, len(files))
	for _, f := range files {
		m[f.ID] = f
	}
	return m, nil
}

type fileTagRow struct {
	FileID  int64
	TagName string
}

// TagsForFiles resolves tag names for a whole result page in one query.
// Every requested id is present in the map, tags in lexicographic order.
func (r *Repository) TagsForFiles(ctx context.Context, ids []int64) (map[int64][]string, error) {
	m := make(map[int64][]string, len(ids))
	for _, id := range ids {
		m[id] = []string{}
	}
	if len(ids) == 0 {
		return m, nil
	}

	var rows []fileTagRow
	err := r.db.WithContext(ctx).
		Table("tags").
		Select("file_tags.file_id, tags.tag_name").
		Joins("INNER JOIN file_tags ON tags.id = file_tags.tag_id").
		Where("file_tags.file_id IN ?", ids).
		Order("file_tags.file_id, tags.tag_name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		m[row.FileID] = append(m[row.FileID], row.TagName)
	}
	return m, nil
}

// AttachTags upserts each tag by unique name and links it to the file. Both
// steps are idempotent, so a concurrent upload racing on a new tag name
// converges on one Tag row instead of surfacing a duplicate-key error.
func (r *Repository) AttachTags(ctx context.Context, fileID int64, names []string) error {
	for _, name := range names {
		tag := &Tag{TagName: name}
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "tag_name"}}, DoNothing: true}).
			Create(tag).Error
		if err != nil {
			return err
		}
		if tag.ID == 0 {
			// Lost the race; another upload created the name first.
			if err := r.db.WithContext(ctx).Where("tag_name = ?", name).First(tag).Error; err != nil {
				return err
			}
		}
		err = r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&FileTag{FileID: fileID, TagID: tag.ID}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

type tagUsageRow struct {
	TagName    string
	UsageCount int64
}

// ListTags returns all tag names ordered by usage count, most used first.
func (r *Repository) ListTags(ctx context.Context) ([]string, error) {
	var rows []tagUsageRow
	err := r.db.WithContext(ctx).
		Table("tags").
		Select("tags.tag_name, COUNT(file_tags.file_id) AS usage_count").
		Joins("LEFT JOIN file_tags ON tags.id = file_tags.tag_id").
		Group("tags.tag_name").
		Order("usage_count DESC, tags.tag_name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.TagName)
	}
	return names, nil
}

// DeleteFile removes the row and its tag associations. The returned bool is
// false when the row was already gone, so concurrent deletes resolve to
// exactly one winner.
func (r *Repository) DeleteFile(ctx context.Context, id int64) (bool, error) {
	if err := r.db.WithContext(ctx).Where("file_id = ?", id).Delete(&FileTag{}).Error; err != nil {
		return false, err
	}
	tx := r.db.WithContext(ctx).Delete(&File{}, id)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// PurgeIncomplete removes rows whose upload never completed. Only rows older
// than the cutoff go, so in-flight uploads are left alone.
func (r *Repository) PurgeIncomplete(ctx context.Context, cutoff time.Time) (int64, error) {
	err := r.db.WithContext(ctx).
		Where("file_id IN (?)", r.db.Model(&File{}).Select("id").
			Where("object_key = ?", "").Where("created_at < ?", cutoff)).
		Delete(&FileTag{}).Error
	if err != nil {
		return 0, err
	}
	tx := r.db.WithContext(ctx).
		Where("object_key = ?", "").
		Where("created_at < ?", cutoff).
		Delete(&File{})
	if tx.Error != nil {
		return 0, tx.Error
	}
	if tx.RowsAffected > 0 {
		r.l.WithField("purged", tx.RowsAffected).Warn("removed incomplete upload rows")
	}
	return tx.RowsAffected, nil
}

// IsNotFound reports whether err is the relational store's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
