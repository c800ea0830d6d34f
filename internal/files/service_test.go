package files

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/teamvault/teamvault/internal/apperr"
	"github.com/teamvault/teamvault/internal/database"
	"github.com/teamvault/teamvault/internal/storage"
)

func getLogger() *log.Entry {
	l := log.New()
	l.SetLevel(log.FatalLevel)
	return l.WithField("in_test", true)
}

type testEnv struct {
	svc   *Service
	repo  *database.Repository
	store *storage.Disk
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewDb(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %s", err)
	}
	repo := database.NewRepository(db, getLogger())
	store, err := storage.NewDisk(t.TempDir(), getLogger())
	if err != nil {
		t.Fatalf("failed to create disk store: %s", err)
	}
	return &testEnv{
		svc:   NewService(repo, store, getLogger()),
		repo:  repo,
		store: store,
	}
}

func uploadInput(fileName, content string) UploadInput {
	return UploadInput{
		Content:        strings.NewReader(content),
		Size:           int64(len(content)),
		FileName:       fileName,
		Comment:        "a comment",
		OwnerName:      "Someone",
		DeletePassword: "pw123",
	}
}

func mustUpload(t *testing.T, env *testEnv, in UploadInput, ident *Identity) *UploadResult {
	t.Helper()
	res, err := env.svc.Upload(context.Background(), in, ident)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	return res
}

func TestUpload_Anonymous(t *testing.T) {
	env := newTestEnv(t)

	in := uploadInput("team.dat", "2kb of team data")
	in.Comment = "hello"
	in.Tags = []string{"a", "b", "a", " "}
	res := mustUpload(t, env, in, nil)

	assert.Equal(t, "team.dat", res.File.FileName)
	assert.Equal(t, "Someone", res.File.UploadOwnerName)
	assert.Equal(t, "hello", res.File.FileComment)
	assert.Equal(t, database.DataTypeTeam, res.File.DataType)
	assert.Nil(t, res.File.UploadUserID)
	assert.Equal(t, []string{"a", "b"}, res.File.Tags, "tags are deduplicated and trimmed")
	assert.Equal(t, "pw123", res.DeletePassword, "plaintext echoed once to anonymous uploaders")

	row, err := env.repo.GetFile(context.Background(), res.File.ID)
	assert.NoError(t, err)
	assert.True(t, row.Complete())
	assert.NotNil(t, row.DeletePassword)
	assert.NotEqual(t, "pw123", *row.DeletePassword, "password is never stored in clear")

	hash, ok := row.Owner().Anonymous()
	assert.True(t, ok)
	assert.True(t, hash.Verify("pw123"))
}

func TestUpload_Authenticated(t *testing.T) {
	env := newTestEnv(t)
	ident := &Identity{UserID: 42, Email: "kenta@example.com"}

	t.Run("owner name falls back to email", func(t *testing.T) {
		in := uploadInput("finals.dat", "match data")
		in.OwnerName = ""
		in.DeletePassword = ""
		in.DataType = database.DataTypeMatch
		res := mustUpload(t, env, in, ident)

		assert.Equal(t, "kenta@example.com", res.File.UploadOwnerName)
		assert.Equal(t, database.DataTypeMatch, res.File.DataType)
		assert.Equal(t, int64(42), *res.File.UploadUserID)

		row, err := env.repo.GetFile(context.Background(), res.File.ID)
		assert.NoError(t, err)
		userID, ok := row.Owner().User()
		assert.True(t, ok)
		assert.Equal(t, int64(42), userID)
	})

	t.Run("explicit owner name wins", func(t *testing.T) {
		in := uploadInput("named.dat", "x")
		in.DeletePassword = ""
		res := mustUpload(t, env, in, ident)
		assert.Equal(t, "Someone", res.File.UploadOwnerName)
	})

	t.Run("password accepted but not echoed", func(t *testing.T) {
		res := mustUpload(t, env, uploadInput("with-pw.dat", "x"), ident)
		assert.Empty(t, res.DeletePassword)

		row, err := env.repo.GetFile(context.Background(), res.File.ID)
		assert.NoError(t, err)
		_, ok := row.PasswordHash()
		assert.True(t, ok, "authenticated uploads may still set a delete password")
	})
}

func TestUpload_Validation(t *testing.T) {
	env := newTestEnv(t)

	noFile := uploadInput("x.dat", "x")
	noFile.Content = nil

	tooLarge := uploadInput("big.dat", "x")
	tooLarge.Size = MaxFileSize + 1

	noComment := uploadInput("x.dat", "x")
	noComment.Comment = "   "

	noOwner := uploadInput("x.dat", "x")
	noOwner.OwnerName = ""

	noPassword := uploadInput("x.dat", "x")
	noPassword.DeletePassword = ""

	tooManyTags := uploadInput("x.dat", "x")
	tooManyTags.Tags = []string{"a", "b", "c", "d", "e"}

	dupTagsWithinLimit := uploadInput("x.dat", "x")
	dupTagsWithinLimit.Tags = []string{"a", "a", "b", "b", "c"}

	tests := []struct {
		name     string
		in       UploadInput
		ident    *Identity
		wantKind apperr.Kind
	}{
		{name: "file missing", in: noFile, wantKind: apperr.KindValidation},
		{name: "file too large", in: tooLarge, wantKind: apperr.KindCapacity},
		{name: "comment empty", in: noComment, wantKind: apperr.KindValidation},
		{name: "anonymous without owner name", in: noOwner, wantKind: apperr.KindValidation},
		{name: "anonymous without password", in: noPassword, wantKind: apperr.KindValidation},
		{name: "too many tags", in: tooManyTags, wantKind: apperr.KindValidation},
		{name: "duplicates collapse below the limit", in: dupTagsWithinLimit, wantKind: apperr.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Upload(context.Background(), tt.in, tt.ident)
			if tt.wantKind == apperr.KindUnknown {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
		})
	}
}

func TestUpload_SharedTagConvergesOnOneRow(t *testing.T) {
	env := newTestEnv(t)

	first := uploadInput("one.dat", "x")
	first.Tags = []string{"shared"}
	second := uploadInput("two.dat", "y")
	second.Tags = []string{"shared"}

	r1 := mustUpload(t, env, first, nil)
	r2 := mustUpload(t, env, second, nil)

	tags, err := env.repo.TagsForFiles(context.Background(), []int64{r1.File.ID, r2.File.ID})
	assert.NoError(t, err)
	assert.Equal(t, []string{"shared"}, tags[r1.File.ID])
	assert.Equal(t, []string{"shared"}, tags[r2.File.ID])

	names, err := env.repo.ListTags(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"shared"}, names, "both uploads reference the same tag row")
}

func TestUpload_SanitizesFileName(t *testing.T) {
	env := newTestEnv(t)

	in := uploadInput("../../escape.dat", "x")
	res := mustUpload(t, env, in, nil)
	assert.Equal(t, "escape.dat", res.File.FileName)
}

func fixedTime() time.Time {
	return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
}
