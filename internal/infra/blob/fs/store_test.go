package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"penguindash/internal/blob/core"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "blobs")
	s, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Root() != root || s.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected store %s %s", s.Root(), s.Driver())
	}
	info, err := s.Put(ctx, "exports/x/plot.svg", strings.NewReader("<svg/>"), core.PutOptions{ContentType: "image/svg+xml", Metadata: map[string]string{"rows": "3"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 6 || len(info.ETag) != 64 {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := os.Stat(filepath.Join(root, "exports", "x", "plot.svg")); err != nil {
		t.Fatalf("expected object on disk: %v", err)
	}

	got, body, err := s.Get(ctx, "exports/x/plot.svg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(body)
	_ = body.Close()
	if string(data) != "<svg/>" || got.ContentType != "image/svg+xml" || got.Metadata["rows"] != "3" || got.ETag != info.ETag {
		t.Fatalf("unexpected object %q %+v", data, got)
	}

	if _, err := s.Put(ctx, "exports/x/plot.svg", strings.NewReader("again"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, "exports/y/table.csv", strings.NewReader("a\n"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	list, err := s.List(ctx, "exports/")
	if err != nil || len(list) != 2 || list[0].Key != "exports/x/plot.svg" || list[1].Key != "exports/y/table.csv" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
	list, err = s.List(ctx, "exports/y")
	if err != nil || len(list) != 1 {
		t.Fatalf("unexpected filtered list %+v %v", list, err)
	}

	deleted, err := s.Delete(ctx, "exports/x/plot.svg")
	if err != nil || !deleted {
		t.Fatalf("expected delete, got %v %v", deleted, err)
	}
	if _, err := s.Head(ctx, "exports/x/plot.svg"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	deleted, err = s.Delete(ctx, "exports/x/plot.svg")
	if err != nil || deleted {
		t.Fatalf("expected no-op delete, got %v %v", deleted, err)
	}
}

func TestStoreMissing(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, _, err := s.Get(context.Background(), "absent.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSanitizeKey(t *testing.T) {
	for _, key := range []string{"", "  ", "/etc/passwd", "../escape", "a/../../b", "a/b.meta"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
	got, err := sanitizeKey("exports//a/./b.csv")
	if err != nil || got != "exports/a/b.csv" {
		t.Fatalf("unexpected clean key %q %v", got, err)
	}
	if _, err := sanitizeKey("file..name.csv"); err != nil {
		t.Fatalf("dots inside a name are allowed: %v", err)
	}
}
