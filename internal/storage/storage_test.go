package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func getLogger() *log.Entry {
	l := log.New()
	l.SetLevel(log.FatalLevel)
	return l.WithField("in_test", true)
}

func newTestDisk(t *testing.T) *Disk {
	t.Helper()
	s, err := NewDisk(t.TempDir(), getLogger())
	if err != nil {
		t.Fatalf("can't create disk store: %s", err)
	}
	return s
}

func TestDisk_PutGet(t *testing.T) {
	s := newTestDisk(t)
	ctx := context.Background()

	if err := s.Put(ctx, "files/1/team.dat", strings.NewReader("team data")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	r, err := s.Get(ctx, "files/1/team.dat")
	assert.NoError(t, err)
	got, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.NoError(t, r.Close())
	assert.Equal(t, "team data", string(got))
}

func TestDisk_GetMissing(t *testing.T) {
	s := newTestDisk(t)

	_, err := s.Get(context.Background(), "files/42/missing.dat")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Get() error = %v, want %v", err, ErrObjectNotFound)
	}
}

func TestDisk_Delete(t *testing.T) {
	s := newTestDisk(t)
	ctx := context.Background()

	assert.NoError(t, s.Put(ctx, "files/2/match.dat", strings.NewReader("match data")))
	assert.NoError(t, s.Delete(ctx, "files/2/match.dat"))

	_, err := s.Get(ctx, "files/2/match.dat")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	// Idempotent: deleting again is not an error.
	assert.NoError(t, s.Delete(ctx, "files/2/match.dat"))
}

func TestDisk_RejectsEscapingKeys(t *testing.T) {
	s := newTestDisk(t)
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
	}{
		{name: "parent traversal", key: "../outside.txt"},
		{name: "nested traversal", key: "files/../../outside.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Put(ctx, tt.key, strings.NewReader("x"))
			assert.ErrorIs(t, err, ErrInvalidKey)
			_, err = s.Get(ctx, tt.key)
			assert.ErrorIs(t, err, ErrInvalidKey)
			assert.ErrorIs(t, s.Delete(ctx, tt.key), ErrInvalidKey)
		})
	}
}

func TestDisk_PutOverwrites(t *testing.T) {
	s := newTestDisk(t)
	ctx := context.Background()

	assert.NoError(t, s.Put(ctx, "files/3/a.txt", strings.NewReader("first version")))
	assert.NoError(t, s.Put(ctx, "files/3/a.txt", strings.NewReader("second")))

	r, err := s.Get(ctx, "files/3/a.txt")
	assert.NoError(t, err)
	defer r.Close()
	got, _ := io.ReadAll(r)
	assert.Equal(t, "second", string(got))
}
