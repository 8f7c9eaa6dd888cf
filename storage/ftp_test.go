package storage

import (
	"context"
	"errors"
	"net/textproto"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/homenest/estate/testutil"
)

func newFTPProvider(t *testing.T, srv *testutil.FTPServer) *FTPProvider {
	t.Helper()
	p, err := NewFTPProvider(FTPConfig{
		Host:    srv.Host,
		Port:    srv.Port,
		User:    "estate",
		Root:    "estate/",
		BaseURL: "https://cdn.example.com/",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFTPProviderListObjects(t *testing.T) {
	srv := testutil.NewFTPServer(t)
	srv.AddFile("/estate/properties/1/image/a.jpg", 4096)
	srv.AddFile("/estate/properties/1/image/b.png", 1024)
	srv.AddFile("/estate/properties/1/brochure/plan.pdf", 2048)
	srv.AddFile("/estate/properties/12/image/c.jpg", 512)
	p := newFTPProvider(t, srv)

	tests := []struct {
		prefix string
		want   map[string]int64
	}{
		{"properties/1/", map[string]int64{
			"properties/1/image/a.jpg":       4096,
			"properties/1/image/b.png":       1024,
			"properties/1/brochure/plan.pdf": 2048,
		}},
		{"properties/12/", map[string]int64{"properties/12/image/c.jpg": 512}},
		{"", map[string]int64{
			"properties/1/image/a.jpg":       4096,
			"properties/1/image/b.png":       1024,
			"properties/1/brochure/plan.pdf": 2048,
			"properties/12/image/c.jpg":      512,
		}},
	}
	for _, tt := range tests {
		t.Run("prefix="+tt.prefix, func(t *testing.T) {
			got, err := p.ListObjects(context.Background(), tt.prefix)
			if err != nil {
				t.Fatalf("ListObjects: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d objects %v, want %d", len(got), got, len(tt.want))
			}
			for _, o := range got {
				if size, ok := tt.want[o.Name]; !ok || size != o.Size {
					t.Errorf("unexpected object %+v", o)
				}
			}
		})
	}
}

func TestFTPProviderListMissingPrefix(t *testing.T) {
	srv := testutil.NewFTPServer(t)
	srv.AddFile("/estate/properties/1/image/a.jpg", 10)
	p := newFTPProvider(t, srv)

	got, err := p.ListObjects(context.Background(), "properties/99/")
	if err != nil {
		t.Fatalf("missing directory should list empty, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want no objects", got)
	}
}

func TestFTPProviderListServerError(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		code  int
	}{
		{"service unavailable", "421 Service not available, closing control connection", ftp.StatusNotAvailable},
		{"permission denied", "530 Not logged in", ftp.StatusNotLoggedIn},
		{"local error", "451 Requested action aborted", ftp.StatusActionAborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewFTPServer(t)
			srv.AddFile("/estate/properties/1/image/a.jpg", 10)
			srv.Reply("CWD /estate/properties/1", tt.reply)
			p := newFTPProvider(t, srv)

			got, err := p.ListObjects(context.Background(), "properties/1/")
			if err == nil {
				t.Fatalf("want error, got objects %v", got)
			}
			var te *textproto.Error
			if !errors.As(err, &te) || te.Code != tt.code {
				t.Errorf("error = %v, want wrapped %d reply", err, tt.code)
			}
		})
	}
}

func TestFTPProviderDialError(t *testing.T) {
	srv := testutil.NewFTPServer(t)
	srv.Reply("PASS secret", "530 Login incorrect")
	p, err := NewFTPProvider(FTPConfig{Host: srv.Host, Port: srv.Port, User: "estate", Password: "secret", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.ListObjects(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "ftp login") {
		t.Errorf("error = %v, want login failure", err)
	}
}

func TestFTPProviderPutDelete(t *testing.T) {
	srv := testutil.NewFTPServer(t)
	p := newFTPProvider(t, srv)
	ctx := context.Background()

	n, err := p.Put(ctx, "properties/3/image/front.jpg", strings.NewReader("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != int64(len("jpeg-bytes")) {
		t.Errorf("Put wrote %d bytes", n)
	}
	if body, ok := srv.File("/estate/properties/3/image/front.jpg"); !ok || string(body) != "jpeg-bytes" {
		t.Fatalf("stored %q, %v", body, ok)
	}

	var mkd []string
	for _, cmd := range srv.Commands() {
		if strings.HasPrefix(cmd, "MKD ") {
			mkd = append(mkd, strings.TrimPrefix(cmd, "MKD "))
		}
	}
	sort.Strings(mkd)
	want := []string{"/estate/properties", "/estate/properties/3", "/estate/properties/3/image"}
	if strings.Join(mkd, ",") != strings.Join(want, ",") {
		t.Errorf("MKD = %v, want %v", mkd, want)
	}

	if err := p.Delete(ctx, "properties/3/image/front.jpg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := srv.File("/estate/properties/3/image/front.jpg"); ok {
		t.Error("object still stored after Delete")
	}
	if err := p.Delete(ctx, "properties/3/image/front.jpg"); err == nil {
		t.Error("deleting a missing object should fail")
	}
	if _, err := p.Put(ctx, "../escape.jpg", strings.NewReader("x")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Put(../escape.jpg) = %v, want ErrInvalidKey", err)
	}
	if got := p.URL("properties/3/image/front.jpg"); got != "https://cdn.example.com/properties/3/image/front.jpg" {
		t.Errorf("URL = %q", got)
	}
}
