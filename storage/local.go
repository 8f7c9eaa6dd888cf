package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalProvider keeps objects as files below a root directory. Keys are
// slash-separated paths relative to the root.
type LocalProvider struct {
	root    string
	baseURL string
}

// NewLocalProvider creates root if needed. Public URLs are baseURL + "/" + key.
func NewLocalProvider(root, baseURL string) (*LocalProvider, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalProvider{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory objects are stored under.
func (p *LocalProvider) Root() string { return p.root }

func (p *LocalProvider) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(p.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Put writes r to key, replacing any existing object.
func (p *LocalProvider) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	dst, err := p.path(key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, err
	}
	return written, nil
}

// Delete removes key. Deleting a missing object is not an error.
func (p *LocalProvider) Delete(ctx context.Context, key string) error {
	dst, err := p.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ListObjects returns every regular file whose key starts with prefix.
func (p *LocalProvider) ListObjects(ctx context.Context, prefix string) ([]Object, error) {
	start := p.root
	if i := strings.LastIndex(prefix, "/"); i > 0 {
		start = filepath.Join(p.root, filepath.FromSlash(prefix[:i]))
	}
	if _, err := os.Stat(start); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var objects []Object
	err := filepath.WalkDir(start, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(p.root, full)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{Name: key, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// URL returns the public URL the router serves key under.
func (p *LocalProvider) URL(key string) string {
	return p.baseURL + "/" + strings.TrimPrefix(key, "/")
}
