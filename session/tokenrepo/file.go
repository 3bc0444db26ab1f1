package tokenrepo

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/jrsteele09/trigpoint-web/session"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

var _ session.TokenRepo = (*FileRepo)(nil)

// FileRepo keeps one file per key under dir. Used by the CLI.
type FileRepo struct {
	dir   string
	codec codec
}

// NewFileRepo stores tokens under dir. sealer may be nil.
func NewFileRepo(dir string, sealer *Sealer) *FileRepo {
	return &FileRepo{dir: dir, codec: codec{sealer: sealer}}
}

func (r *FileRepo) path(key string) string {
	return filepath.Join(r.dir, url.PathEscape(key)+".token")
}

func (r *FileRepo) Save(_ context.Context, key string, tok *oauth2.Token) error {
	if err := validKey(key); err != nil {
		return err
	}
	data, err := r.codec.encode(tok)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return errors.Wrap(err, "create token dir")
	}

	tmp, err := os.CreateTemp(r.dir, ".token-*")
	if err != nil {
		return errors.Wrap(err, "create temp token file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write token file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close token file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), r.path(key)), "replace token file")
}

func (r *FileRepo) Load(ctx context.Context, key string) (*oauth2.Token, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.ErrNotFound
		}
		return nil, errors.Wrap(err, "read token file")
	}

	tok, err := r.codec.decode(data)
	if err != nil {
		return nil, err
	}
	if expired(tok, time.Now()) {
		_ = r.Delete(ctx, key)
		return nil, apperrors.ErrNotFound
	}
	return tok, nil
}

func (r *FileRepo) Delete(_ context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	err := os.Remove(r.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "remove token file")
	}
	return nil
}
