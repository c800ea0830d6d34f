package files

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teamvault/teamvault/internal/apperr"
	"github.com/teamvault/teamvault/internal/database"
)

func TestDownload(t *testing.T) {
	env := newTestEnv(t)

	res := mustUpload(t, env, uploadInput("team.dat", "team data"), nil)

	dl, err := env.svc.Download(context.Background(), res.File.ID)
	assert.NoError(t, err)
	defer dl.Content.Close()

	assert.Equal(t, "team.dat", dl.FileName)
	assert.Equal(t, int64(len("team data")), dl.Size)
	got, err := io.ReadAll(dl.Content)
	assert.NoError(t, err)
	assert.Equal(t, "team data", string(got))
}

func TestDownload_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Download(context.Background(), 9999)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDownload_IncompleteRowHidden(t *testing.T) {
	env := newTestEnv(t)

	// A crash between the metadata insert and the object write leaves an
	// empty object key; such rows must read as not-found.
	f := &database.File{UploadOwnerName: "a", FileName: "crashed.dat", FileComment: "c", DataType: database.DataTypeTeam}
	assert.NoError(t, env.repo.CreateFile(context.Background(), f))

	_, err := env.svc.Download(context.Background(), f.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDownload_GatingBoundary(t *testing.T) {
	env := newTestEnv(t)
	now := fixedTime()
	env.svc.now = func() time.Time { return now }

	upload := func(name string, at time.Time) int64 {
		in := uploadInput(name, "gated data")
		in.DownloadableAt = &at
		return mustUpload(t, env, in, nil).File.ID
	}

	tests := []struct {
		name      string
		at        time.Time
		wantKind  apperr.Kind
		available bool
	}{
		{name: "downloadable exactly at now", at: now, available: true},
		{name: "downloadable in the past", at: now.Add(-time.Hour), available: true},
		{name: "gated one microsecond ahead", at: now.Add(time.Microsecond), wantKind: apperr.KindGated},
		{name: "gated far in the future", at: now.Add(48 * time.Hour), wantKind: apperr.KindGated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := upload(tt.name+".dat", tt.at)
			dl, err := env.svc.Download(context.Background(), id)
			if tt.available {
				assert.NoError(t, err)
				_ = dl.Content.Close()
				return
			}
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))

			var gatedErr *apperr.Error
			assert.ErrorAs(t, err, &gatedErr)
			assert.True(t, tt.at.Equal(gatedErr.AvailableAt), "gating error carries the availability timestamp")
		})
	}
}

func TestDownload_MissingObjectIsIntegrityFault(t *testing.T) {
	env := newTestEnv(t)

	res := mustUpload(t, env, uploadInput("gone.dat", "data"), nil)

	// Remove the blob behind the row's back.
	row, err := env.repo.GetFile(context.Background(), res.File.ID)
	assert.NoError(t, err)
	assert.NoError(t, env.store.Delete(context.Background(), row.ObjectKey))

	_, err = env.svc.Download(context.Background(), res.File.ID)
	assert.Equal(t, apperr.KindIntegrity, apperr.KindOf(err))
}
