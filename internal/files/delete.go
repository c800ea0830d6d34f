package files

import (
	"context"

	"github.com/teamvault/teamvault/internal/apperr"
	"github.com/teamvault/teamvault/internal/database"
)

// Delete authorizes and performs a file deletion. An authenticated caller
// must own the file; an anonymous caller must present the delete password.
// The blob goes first, then the row; existence is re-checked at the row
// delete so concurrent attempts resolve to one winner.
func (s *Service) Delete(ctx context.Context, id int64, password string, ident *Identity) error {
	f, err := s.repo.GetFile(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			return apperr.New(apperr.KindNotFound, "file not found")
		}
		s.l.WithError(err).WithField("file_id", id).Error("can't get file row")
		return err
	}

	if err := s.authorizeDelete(f, password, ident); err != nil {
		return err
	}

	l := s.l.WithField("file_id", f.ID)
	if f.Complete() {
		// Store deletes are idempotent for absent keys; any other failure
		// aborts so we never silently drop the only reference to a blob.
		if err := s.store.Delete(ctx, f.ObjectKey); err != nil {
			l.WithError(err).WithField("object_key", f.ObjectKey).Error("can't delete object")
			return err
		}
	}

	deleted, err := s.repo.DeleteFile(ctx, f.ID)
	if err != nil {
		l.WithError(err).Error("can't delete file row")
		return err
	}
	if !deleted {
		// Lost a delete race; the other caller won.
		return apperr.New(apperr.KindNotFound, "file not found")
	}
	l.Info("file deleted")
	return nil
}

func (s *Service) authorizeDelete(f *database.File, password string, ident *Identity) error {
	if ident != nil {
		userID, ok := f.Owner().User()
		if !ok || userID != ident.UserID {
			return apperr.New(apperr.KindForbidden, "you cannot delete this file")
		}
		return nil
	}

	if password == "" {
		return apperr.New(apperr.KindUnauthorized, "delete password required")
	}
	hash, ok := f.PasswordHash()
	if !ok {
		// No stored hash means deletion by password is impossible, not that
		// any password works.
		return apperr.New(apperr.KindForbidden, "deletion failed")
	}
	if !hash.Verify(password) {
		return apperr.New(apperr.KindForbidden, "delete password is incorrect")
	}
	if hash.NeedsRehash() {
		// Legacy hashes age out naturally; flag the row for operators.
		s.l.WithField("file_id", f.ID).Info("delete password verified against legacy scheme")
	}
	return nil
}
