package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPConfig describes the FTP server objects are stored on.
type FTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Root     string
	BaseURL  string
	Timeout  time.Duration
}

// FTPProvider stores objects on an FTP server. Every call opens its own
// connection and quits when done, so the provider holds no shared state.
type FTPProvider struct {
	cfg FTPConfig
}

// NewFTPProvider validates cfg and returns a provider.
func NewFTPProvider(cfg FTPConfig) (*FTPProvider, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("ftp storage: host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 21
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.Root = "/" + strings.Trim(cfg.Root, "/")
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &FTPProvider{cfg: cfg}, nil
}

func (p *FTPProvider) connect(ctx context.Context) (*ftp.ServerConn, error) {
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(p.cfg.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp dial %s: %w", addr, err)
	}
	if err := conn.Login(p.cfg.User, p.cfg.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("ftp login: %w", err)
	}
	return conn, nil
}

func (p *FTPProvider) remotePath(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return path.Join(p.cfg.Root, key), nil
}

// Put uploads r to key, creating intermediate directories.
func (p *FTPProvider) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	remote, err := p.remotePath(key)
	if err != nil {
		return 0, err
	}
	conn, err := p.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Quit()

	// MakeDir fails for directories that already exist; Stor reports real problems.
	dir := p.cfg.Root
	for _, part := range strings.Split(strings.Trim(path.Dir(key), "/"), "/") {
		if part == "" || part == "." {
			continue
		}
		dir = path.Join(dir, part)
		_ = conn.MakeDir(dir)
	}

	cr := &countingReader{r: r}
	if err := conn.Stor(remote, cr); err != nil {
		return 0, fmt.Errorf("ftp stor %s: %w", key, err)
	}
	return cr.n, nil
}

// Delete removes key from the server.
func (p *FTPProvider) Delete(ctx context.Context, key string) error {
	remote, err := p.remotePath(key)
	if err != nil {
		return err
	}
	conn, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit()
	if err := conn.Delete(remote); err != nil {
		return fmt.Errorf("ftp delete %s: %w", key, err)
	}
	return nil
}

// ListObjects walks the tree below prefix and returns every file.
func (p *FTPProvider) ListObjects(ctx context.Context, prefix string) ([]Object, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	start := p.cfg.Root
	if i := strings.LastIndex(prefix, "/"); i > 0 {
		start = path.Join(p.cfg.Root, prefix[:i])
	}
	// A prefix nobody uploaded to yet has no directory.
	if err := conn.ChangeDir(start); err != nil {
		if isMissing(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ftp cwd %s: %w", start, err)
	}

	var objects []Object
	w := conn.Walk(start)
	for w.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry := w.Stat()
		if entry == nil || entry.Type != ftp.EntryTypeFile {
			continue
		}
		key := strings.TrimPrefix(strings.TrimPrefix(w.Path(), p.cfg.Root), "/")
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		objects = append(objects, Object{Name: key, Size: int64(entry.Size)})
	}
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("ftp walk %s: %w", start, err)
	}
	return objects, nil
}

// isMissing reports whether err is the server saying the path does not exist.
func isMissing(err error) bool {
	var te *textproto.Error
	return errors.As(err, &te) && te.Code == ftp.StatusFileUnavailable
}

// URL returns the public URL of key under BaseURL.
func (p *FTPProvider) URL(key string) string {
	return p.cfg.BaseURL + "/" + strings.TrimPrefix(key, "/")
}
