package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// SearchQuery is one filter set for the files table. Filters combine
// conjunctively; zero values mean "no filter".
type SearchQuery struct {
	DataType    string
	OwnerUserID *int64
	Keyword     string
	Tag         string
	Page        int
	Limit       int
	SortAsc     bool
}

// Normalized returns a copy with pagination defaults applied.
func (q SearchQuery) Normalized() SearchQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	return q
}

func (q SearchQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// predicate is one (column, operator, value) triple. The filter set folds
// into a single WHERE clause from these.
type predicate struct {
	column   string
	operator string
	value    any
}

func (p predicate) apply(db *gorm.DB) *gorm.DB {
	return db.Where(fmt.Sprintf("%s %s ?", p.column, p.operator), p.value)
}

func (q SearchQuery) predicates() []predicate {
	// Rows with an empty object key never finished uploading and are hidden
	// from every consumer.
	preds := []predicate{{column: "object_key", operator: "<>", value: ""}}
	if q.DataType != "" {
		preds = append(preds, predicate{column: "data_type", operator: "=", value: q.DataType})
	}
	if q.OwnerUserID != nil {
		preds = append(preds, predicate{column: "upload_user_id", operator: "=", value: *q.OwnerUserID})
	}
	return preds
}

// apply folds the filter set into db. The keyword group matches file name,
// comment, owner name, or a tag name, case-insensitively.
func (q SearchQuery) apply(db *gorm.DB) *gorm.DB {
	for _, p := range q.predicates() {
		db = p.apply(db)
	}
	if q.Keyword != "" {
		pattern := likePattern(q.Keyword)
		db = db.Where(
			`(LOWER(file_name) LIKE ? ESCAPE '\'`+
				` OR LOWER(file_comment) LIKE ? ESCAPE '\'`+
				` OR LOWER(upload_owner_name) LIKE ? ESCAPE '\'`+
				` OR id IN (`+tagNameSubquery+` LIKE ? ESCAPE '\'))`,
			pattern, pattern, pattern, pattern)
	}
	if q.Tag != "" {
		db = db.Where("id IN ("+tagNameSubquery+" = ?)", q.Tag)
	}
	return db
}

const tagNameSubquery = `SELECT file_tags.file_id FROM file_tags` +
	` INNER JOIN tags ON tags.id = file_tags.tag_id WHERE tags.tag_name`

// likePattern builds a lowercase substring pattern with LIKE metacharacters
// escaped, so user input never acts as a wildcard.
func likePattern(keyword string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(keyword))
	return "%" + escaped + "%"
}
