package handler

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/teamvault/teamvault/internal/apperr"
	"github.com/teamvault/teamvault/internal/files"
)

const (
	fieldNameFile           = "file"
	fieldNameComment        = "comment"
	fieldNameTags           = "tags"
	fieldNameDeletePassword = "deletePassword"
	fieldNameOwnerName      = "upload_owner_name"
	fieldNameDownloadableAt = "downloadable_at"
	fieldNameDataType       = "data_type"
)

// Accepted downloadable_at layouts: RFC 3339 plus the zone-less forms a
// datetime-local form field produces.
var downloadableAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

type uploadData struct {
	file           multipart.File
	header         *multipart.FileHeader
	comment        string
	tags           []string
	ownerName      string
	deletePassword string
	downloadableAt *time.Time
	dataType       string
}

func (ud *uploadData) close() {
	if ud.file != nil {
		_ = ud.file.Close()
	}
}

func newUploadData(r *http.Request, logger *log.Entry) (*uploadData, error) {
	if err := r.ParseMultipartForm(files.MaxFileSize); err != nil {
		logger.WithError(err).Debug("can't parse multipart form")
		return nil, apperr.New(apperr.KindValidation, "can't parse request form")
	}

	f, fh, err := r.FormFile(fieldNameFile)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "file is required")
	}
	ud := &uploadData{
		file:           f,
		header:         fh,
		comment:        r.FormValue(fieldNameComment),
		ownerName:      r.FormValue(fieldNameOwnerName),
		deletePassword: r.FormValue(fieldNameDeletePassword),
		dataType:       r.FormValue(fieldNameDataType),
	}

	if raw := r.FormValue(fieldNameTags); raw != "" {
		if err := json.Unmarshal([]byte(raw), &ud.tags); err != nil {
			ud.close()
			return nil, apperr.New(apperr.KindValidation, "tags must be a JSON array of strings")
		}
	}

	if raw := r.FormValue(fieldNameDownloadableAt); raw != "" {
		at, err := parseDownloadableAt(raw)
		if err != nil {
			ud.close()
			return nil, apperr.New(apperr.KindValidation, "downloadable_at must be an ISO 8601 timestamp")
		}
		ud.downloadableAt = &at
	}
	return ud, nil
}

func parseDownloadableAt(raw string) (time.Time, error) {
	var firstErr error
	for _, layout := range downloadableAtLayouts {
		t, err := time.ParseInLocation(layout, raw, time.Local)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
