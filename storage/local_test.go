package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
)

func TestLocalProviderPutListDelete(t *testing.T) {
	p, err := NewLocalProvider(t.TempDir(), "/uploads/")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	files := map[string]string{
		"properties/1/image/a.jpg":    "aaaa",
		"properties/1/brochure/b.pdf": "bb",
		"properties/12/image/c.png":   "c",
	}
	for key, body := range files {
		n, err := p.Put(ctx, key, strings.NewReader(body))
		if err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
		if n != int64(len(body)) {
			t.Errorf("put %s wrote %d bytes, want %d", key, n, len(body))
		}
	}

	all, err := p.ListObjects(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("all objects = %d, want 3", len(all))
	}

	// "properties/1/" must not match properties/12.
	one, err := p.ListObjects(ctx, "properties/1/")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, o := range one {
		names = append(names, o.Name)
	}
	sort.Strings(names)
	if strings.Join(names, ",") != "properties/1/brochure/b.pdf,properties/1/image/a.jpg" {
		t.Errorf("prefix listing = %v", names)
	}

	if err := p.Delete(ctx, "properties/1/image/a.jpg"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := p.Delete(ctx, "properties/1/image/a.jpg"); err != nil {
		t.Errorf("second delete: %v, want nil", err)
	}
	one, _ = p.ListObjects(ctx, "properties/1/")
	if len(one) != 1 {
		t.Errorf("objects after delete = %d, want 1", len(one))
	}

	if got := p.URL("properties/12/image/c.png"); got != "/uploads/properties/12/image/c.png" {
		t.Errorf("URL = %s", got)
	}
}

func TestLocalProviderMissingPrefix(t *testing.T) {
	p, err := NewLocalProvider(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatal(err)
	}
	objs, err := p.ListObjects(context.Background(), "properties/404/")
	if err != nil || len(objs) != 0 {
		t.Errorf("ListObjects = %v, %v; want empty, nil", objs, err)
	}
}

func TestLocalProviderRejectsTraversal(t *testing.T) {
	p, err := NewLocalProvider(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "../escape.jpg", "properties/../../x.pdf"} {
		if _, err := p.Put(context.Background(), key, strings.NewReader("x")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}
