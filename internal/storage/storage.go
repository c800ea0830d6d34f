// Package storage is the object-store side of the engine: binary blobs
// addressed by key. Disk keeps them under a base directory, one file per key.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")

	ErrCantCreateObjectDir  = errors.New("can't create object dir")
	ErrCantCreateObjectFile = errors.New("can't create object file")
	ErrCantWriteObjectFile  = errors.New("can't write object file")
	ErrCantReadObject       = errors.New("can't read the object file")
	ErrCantDeleteObject     = errors.New("can't delete the object file")
)

type Disk struct {
	path string
	l    *log.Entry
}

func NewDisk(basePath string, l *log.Entry) (*Disk, error) {
	objectPath := filepath.Join(basePath, "objects")
	if err := os.MkdirAll(objectPath, fs.ModePerm); err != nil {
		return nil, fmt.Errorf("can't create object storage dir: %w", err)
	}
	return &Disk{path: objectPath, l: l.WithField("storage_base_path", objectPath)}, nil
}

// resolve maps a key to a path under the base dir, rejecting keys that would
// escape it.
func (s *Disk) resolve(key string) (string, error) {
	p := filepath.Join(s.path, filepath.FromSlash(key))
	if !strings.HasPrefix(p, s.path+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return p, nil
}

func (s *Disk) Put(ctx context.Context, key string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	objectFilePath, err := s.resolve(key)
	if err != nil {
		return err
	}
	objectDir := filepath.Dir(objectFilePath)
	if err := os.MkdirAll(objectDir, fs.ModePerm); err != nil {
		s.l.
			WithField("object_dir", objectDir).
			WithError(err).
			Error(ErrCantCreateObjectDir)
		return ErrCantCreateObjectDir
	}

	object, err := os.OpenFile(objectFilePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fs.ModePerm)
	if err != nil {
		s.l.WithField("object_path", objectFilePath).WithError(err).Error(ErrCantCreateObjectFile)
		return ErrCantCreateObjectFile
	}
	defer func(object *os.File) {
		if err := object.Close(); err != nil {
			s.l.WithError(err).Error("can't close object file")
		}
	}(object)

	if _, err := io.Copy(object, r); err != nil {
		s.l.WithError(err).Error(ErrCantWriteObjectFile)
		return ErrCantWriteObjectFile
	}
	return nil
}

func (s *Disk) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	objectFilePath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(objectFilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		s.l.WithField("object_path", objectFilePath).WithError(err).Error(ErrCantReadObject)
		return nil, ErrCantReadObject
	}
	return f, nil
}

// Delete removes the blob. Deleting an absent key is a no-op, so a delete
// retried after a crash cannot fail on the already-removed object.
func (s *Disk) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	objectFilePath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(objectFilePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		s.l.WithField("object_path", objectFilePath).WithError(err).Error(ErrCantDeleteObject)
		return ErrCantDeleteObject
	}
	return nil
}
