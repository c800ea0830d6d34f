package files

import (
	"context"

	"github.com/teamvault/teamvault/internal/apperr"
	"github.com/teamvault/teamvault/internal/database"
)

type SearchInput struct {
	Page         int
	Limit        int
	Tag          string
	UploadUserID *int64
	Mine         bool
	Keyword      string
	DataType     string
	SortAsc      bool
}

type SearchResult struct {
	Files []*FileInfo
	Page  int
	Limit int
	Total int64
}

// Search returns one page of files for the filter set, newest first, plus the
// exact total for the same filter set.
func (s *Service) Search(ctx context.Context, in SearchInput, ident *Identity) (*SearchResult, error) {
	targetUserID := in.UploadUserID
	if in.Mine {
		if ident == nil {
			return nil, apperr.New(apperr.KindUnauthorized, `login required for the "mine" filter`)
		}
		targetUserID = &ident.UserID
	}

	q := database.SearchQuery{
		DataType:    in.DataType,
		OwnerUserID: targetUserID,
		Keyword:     in.Keyword,
		Tag:         in.Tag,
		Page:        in.Page,
		Limit:       in.Limit,
		SortAsc:     in.SortAsc,
	}.Normalized()

	rows, total, err := s.repo.SearchFiles(ctx, q)
	if err != nil {
		s.l.WithError(err).Error("can't search files")
		return nil, err
	}

	ids := make([]int64, 0, len(rows))
	for _, f := range rows {
		ids = append(ids, f.ID)
	}
	tags, err := s.repo.TagsForFiles(ctx, ids)
	if err != nil {
		s.l.WithError(err).Error("can't load tags for result page")
		return nil, err
	}

	now := s.now()
	infos := make([]*FileInfo, 0, len(rows))
	for _, f := range rows {
		info := newFileInfo(f, tags[f.ID])
		// Owners browsing their own uploads see gated files unmasked.
		if f.Gated(now) && !in.Mine {
			info.mask()
		}
		infos = append(infos, info)
	}

	return &SearchResult{
		Files: infos,
		Page:  q.Page,
		Limit: q.Limit,
		Total: total,
	}, nil
}

// Tags lists all tag names, most used first.
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	names, err := s.repo.ListTags(ctx)
	if err != nil {
		s.l.WithError(err).Error("can't list tags")
		return nil, err
	}
	return names, nil
}
