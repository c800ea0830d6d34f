package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/teamvault/teamvault/internal/apperr"
	"github.com/teamvault/teamvault/internal/database"
	"github.com/teamvault/teamvault/internal/files"
	"github.com/teamvault/teamvault/internal/handler/middleware"
)

// NewHandler wires the engine's HTTP surface. Identity resolution and request
// ids apply to every route.
func NewHandler(svc *files.Service, l *log.Entry) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /files", http.HandlerFunc(searchFiles(svc, l)))
	mux.Handle("GET /files/tags", http.HandlerFunc(listTags(svc, l)))
	mux.Handle("GET /files/{id}", http.HandlerFunc(downloadFile(svc, l)))
	mux.Handle("POST /files", http.HandlerFunc(uploadFile(svc, l)))
	mux.Handle("DELETE /files/{id}", http.HandlerFunc(deleteFile(svc, l)))
	mux.Handle("POST /files/bulk-download", http.HandlerFunc(bulkDownload(svc, l)))

	return middleware.RequestID(middleware.ResolveIdentity(mux))
}

func requestLogger(l *log.Entry, r *http.Request) *log.Entry {
	return l.WithField("request_id", middleware.RequestIDFrom(r.Context()))
}

type paginationMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type fileListData struct {
	Files      []*files.FileInfo `json:"files"`
	Pagination paginationMeta    `json:"pagination"`
}

func searchFiles(svc *files.Service, l *log.Entry) func(rw http.ResponseWriter, r *http.Request) {
	return func(rw http.ResponseWriter, r *http.Request) {
		rl := requestLogger(l, r)
		in, err := parseSearchInput(r)
		if err != nil {
			writeError(rw, rl, err)
			return
		}

		res, err := svc.Search(r.Context(), *in, middleware.IdentityFrom(r.Context()))
		if err != nil {
			writeError(rw, rl, err)
			return
		}
		writeData(rw, http.StatusOK, fileListData{
			Files:      res.Files,
			Pagination: paginationMeta{Page: res.Page, Limit: res.Limit, Total: res.Total},
		})
	}
}

func parseSearchInput(r *http.Request) (*files.SearchInput, error) {
	query := r.URL.Query()
	in := &files.SearchInput{
		Tag:      query.Get("tag"),
		Keyword:  query.Get("keyword"),
		Mine:     query.Get("mine") == "true",
		SortAsc:  query.Get("sort_order") == "asc",
		DataType: query.Get("data_type"),
	}

	var err error
	if in.Page, err = parsePositiveInt(query.Get("page")); err != nil {
		return nil, apperr.New(apperr.KindValidation, "page must be a positive integer")
	}
	if in.Limit, err = parsePositiveInt(query.Get("limit")); err != nil {
		return nil, apperr.New(apperr.KindValidation, "limit must be a positive integer")
	}
	if raw := query.Get("upload_user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID < 1 {
			return nil, apperr.New(apperr.KindValidation, "upload_user_id must be a positive integer")
		}
		in.UploadUserID = &userID
	}
	if in.DataType != "" && in.DataType != database.DataTypeTeam && in.DataType != database.DataTypeMatch {
		return nil, apperr.New(apperr.KindValidation, "data_type must be 1 (team) or 2 (match)")
	}
	return in, nil
}

// parsePositiveInt returns 0 for an absent value so the engine applies its
// defaults, and rejects anything that is not a positive integer.
func parsePositiveInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}

func listTags(svc *files.Service, l *log.Entry) func(rw http.ResponseWriter, r *http.Request) {
	return func(rw http.ResponseWriter, r *http.Request) {
		tags, err := svc.Tags(r.Context())
		if err != nil {
			writeError(rw, requestLogger(l, r), err)
			return
		}
		writeData(rw, http.StatusOK, map[string][]string{"tags": tags})
	}
}

func downloadFile(svc *files.Service, l *log.Entry) func(rw http.ResponseWriter, r *http.Request) {
	return func(rw http.ResponseWriter, r *http.Request) {
		rl := requestLogger(l, r)
		id, err := parseFileID(r)
		if err != nil {
			writeError(rw, rl, err)
			return
		}

		dl, err := svc.Download(r.Context(), id)
		if err != nil {
			writeError(rw, rl, err)
			return
		}
		defer func() {
			if err := dl.Content.Close(); err != nil {
				rl.WithError(err).Error("can't close object stream")
			}
		}()

		rw.Header().Set("Content-Type", "application/octet-stream")
		rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.FileName))
		rw.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))
		if _, err := io.Copy(rw, dl.Content); err != nil {
			rl.WithError(err).WithField("file_id", id).Error("can't stream file")
		}
	}
}

func parseFileID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.New(apperr.KindValidation, "invalid file id")
	}
	return id, nil
}

type uploadResponseData struct {
	File           *files.FileInfo `json:"file"`
	DeletePassword string          `json:"deletePassword,omitempty"`
}

func uploadFile(svc *files.Service, l *log.Entry) func(rw http.ResponseWriter, r *http.Request) {
	return func(rw http.ResponseWriter, r *http.Request) {
		rl := requestLogger(l, r)
		ud, err := newUploadData(r, rl)
		if err != nil {
			writeError(rw, rl, err)
			return
		}
		defer ud.close()

		res, err := svc.Upload(r.Context(), files.UploadInput{
			Content:        ud.file,
			Size:           ud.header.Size,
			FileName:       ud.header.Filename,
			Comment:        ud.comment,
			Tags:           ud.tags,
			OwnerName:      ud.ownerName,
			DeletePassword: ud.deletePassword,
			DownloadableAt: ud.downloadableAt,
			DataType:       ud.dataType,
		}, middleware.IdentityFrom(r.Context()))
		if err != nil {
			writeError(rw, rl, err)
			return
		}
		writeData(rw, http.StatusCreated, uploadResponseData{
			File:           res.File,
			DeletePassword: res.DeletePassword,
		})
	}
}

type deleteRequestBody struct {
	DeletePassword string `json:"deletePassword"`
}

func deleteFile(svc *files.Service, l *log.Entry) func(rw http.ResponseWriter, r *http.Request) {
	return func(rw http.ResponseWriter, r *http.Request) {
		rl := requestLogger(l, r)
		id, err := parseFileID(r)
		if err != nil {
			writeError(rw, rl, err)
			return
		}

		// The body is optional; authenticated callers delete by identity.
		var body deleteRequestBody
		_ = json.NewDecoder(r.Body).Decode(&body)

		if err := svc.Delete(r.Context(), id, body.DeletePassword, middleware.IdentityFrom(r.Context())); err != nil {
			writeError(rw, rl, err)
			return
		}
		writeMessage(rw, http.StatusOK, "File deleted successfully")
	}
}

type bulkDownloadRequestBody struct {
	FileIDs []int64 `json:"fileIds"`
}

func bulkDownload(svc *files.Service, l *log.Entry) func(rw http.ResponseWriter, r *http.Request) {
	return func(rw http.ResponseWriter, r *http.Request) {
		rl := requestLogger(l, r)

		var body bulkDownloadRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(rw, rl, apperr.New(apperr.KindValidation, "a list of file ids is required"))
			return
		}

		res, err := svc.BulkArchive(r.Context(), body.FileIDs)
		if err != nil {
			writeError(rw, rl, err)
			return
		}

		if len(res.SkippedNotAvailable) > 0 {
			rw.Header().Set("X-Skipped-Not-Available", strings.Join(res.SkippedNotAvailable, ","))
		}
		rw.Header().Set("Content-Type", "application/zip")
		rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Name))
		rw.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
		if _, err := rw.Write(res.Data); err != nil {
			rl.WithError(err).Error("can't write archive")
		}
	}
}
