package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/cte-extractor/internal/common"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoadDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.xml"), "<b/>")
	writeFile(t, filepath.Join(root, "a.XML"), "<a/>")
	writeFile(t, filepath.Join(root, "notes.txt"), "skip me")
	writeFile(t, filepath.Join(root, "sub", "c.xml"), "<c/>")
	writeFile(t, filepath.Join(root, ".hidden", "d.xml"), "<d/>")
	writeFile(t, filepath.Join(root, ".e.xml"), "<e/>")

	l := NewFSLoader(nil)
	sources, results, stats, err := l.LoadDirectory(context.Background(), root, true)
	if err != nil {
		t.Fatalf("load directory: %v", err)
	}
	want := []string{"a.XML", "b.xml", "sub/c.xml"}
	if len(sources) != len(want) {
		t.Fatalf("expected %d sources, got %d", len(want), len(sources))
	}
	for i, w := range want {
		if sources[i].Name != w {
			t.Errorf("source %d: expected %q, got %q", i, w, sources[i].Name)
		}
		if sources[i].ContentHash == "" {
			t.Errorf("source %d: missing hash", i)
		}
	}
	if stats.Matched != 3 || stats.Succeeded != 3 || stats.Failed != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}

	sources, _, _, err = l.LoadDirectory(context.Background(), root, false)
	if err != nil {
		t.Fatalf("load directory: %v", err)
	}
	if len(sources) != 5 {
		t.Errorf("expected hidden entries when not skipping, got %d", len(sources))
	}
}

func TestLoadDirectory_SizeLimit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "big.xml"), "<big>0123456789</big>")
	writeFile(t, filepath.Join(root, "small.xml"), "<s/>")

	l := NewFSLoader(nil)
	l.MaxBytes = 8
	sources, results, stats, err := l.LoadDirectory(context.Background(), root, false)
	if err != nil {
		t.Fatalf("load directory: %v", err)
	}
	if len(sources) != 1 || sources[0].Name != "small.xml" {
		t.Fatalf("expected only small.xml, got %+v", sources)
	}
	if stats.Failed != 1 || results[0].Err == "" {
		t.Errorf("expected big.xml to fail, got stats=%+v results=%+v", stats, results)
	}

	failed := FailedRecords(root, results)
	if len(failed) != 1 {
		t.Fatalf("expected one failed record, got %+v", failed)
	}
	if failed[0].Document != "big.xml" || !strings.Contains(failed[0].Error, "limit 8") {
		t.Errorf("unexpected failed record %+v", failed[0])
	}
}

func TestLoadDirectory_Errors(t *testing.T) {
	l := NewFSLoader(nil)
	if _, _, _, err := l.LoadDirectory(context.Background(), " ", false); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, _, err := l.LoadDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"), false); err == nil {
		t.Error("expected an error for a missing root")
	}
}

func TestLoadPath(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "doc.xml")
	writeFile(t, p, "<x/>")

	src, err := NewFSLoader(nil).LoadPath(context.Background(), p)
	if err != nil {
		t.Fatalf("load path: %v", err)
	}
	if src.Name != "doc.xml" || string(src.Data) != "<x/>" {
		t.Errorf("unexpected source %+v", src)
	}

	txt := filepath.Join(dir, "doc.txt")
	writeFile(t, txt, "x")
	if _, err := NewFSLoader(nil).LoadPath(context.Background(), txt); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.xml"), "<x/>")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("start watcher: %v", err)
	}

	want := filepath.Join(root, "existing.xml")
	select {
	case p := <-events:
		if p != want {
			t.Fatalf("expected %q from the initial scan, got %q", want, p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial scan")
	}

	writeFile(t, filepath.Join(root, "ignored.txt"), "x")
	writeFile(t, filepath.Join(root, "new.xml"), "<y/>")
	want = filepath.Join(root, "new.xml")
	deadline := time.After(3 * time.Second)
	for {
		select {
		case p := <-events:
			if p == want {
				cancel()
				return
			}
			if filepath.Ext(p) != ".xml" {
				t.Fatalf("unexpected non-xml event %q", p)
			}
		case <-deadline:
			t.Fatal("timed out waiting for new.xml")
		}
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{}); err == nil {
		t.Error("expected an error without roots")
	}
}
