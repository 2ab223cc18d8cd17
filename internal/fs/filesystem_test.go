package fs

import (
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"docshare/internal/hier"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func rels(sources []*Source) []string {
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, s.Rel)
	}
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestManager_Resolve(t *testing.T) {
	m := NewManager()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "hello"})

	t.Run("regular file", func(t *testing.T) {
		src, err := m.Resolve(filepath.Join(dir, "a.txt"))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if src.IsDir || src.Size != 5 || src.Name() != "a.txt" || !filepath.IsAbs(src.Path) {
			t.Errorf("Resolve() = %+v", src)
		}
	})

	t.Run("directory", func(t *testing.T) {
		src, err := m.Resolve(dir)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !src.IsDir {
			t.Error("IsDir = false for directory")
		}
	})

	t.Run("symlink rejected", func(t *testing.T) {
		link := filepath.Join(dir, "link")
		if err := os.Symlink(filepath.Join(dir, "a.txt"), link); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}
		if _, err := m.Resolve(link); !errors.Is(err, hier.ErrInvalidArgument) {
			t.Errorf("Resolve(symlink) error = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("missing path", func(t *testing.T) {
		if _, err := m.Resolve(filepath.Join(dir, "missing")); err == nil {
			t.Error("Resolve() expected error for missing path")
		}
	})
}

func TestManager_Open(t *testing.T) {
	m := NewManager()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "hello"})

	src, err := m.Resolve(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	rc, err := m.Open(src)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}

	root, _ := m.Resolve(dir)
	if _, err := m.Open(root); !errors.Is(err, hier.ErrInvalidArgument) {
		t.Errorf("Open(dir) error = %v, want ErrInvalidArgument", err)
	}
}

func TestManager_Walk(t *testing.T) {
	m := NewManager()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"readme.md":            "r",
		"docs/spec.pdf":        "pdf",
		"docs/drafts/v1.txt":   "v1",
		"build/out.o":          "obj",
		"notes/debug.log":      "log",
		".dsignore":            "build/\n*.log\n",
		"docs/drafts/keep.log": "k",
	})

	root, err := m.Resolve(dir)
	if err != nil {
		t.Fatal(err)
	}
	ignore, err := LoadIgnoreMatcher(dir, []string{"!keep.log"})
	if err != nil {
		t.Fatal(err)
	}

	tree, err := m.Walk(root, ignore)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	if got, want := rels(tree.Dirs), []string{"docs", "docs/drafts", "notes"}; !equal(got, want) {
		t.Errorf("Dirs = %v, want %v", got, want)
	}
	// keep.log is re-included by config but .dsignore's *.log comes later.
	if got, want := rels(tree.Files), []string{"docs/drafts/v1.txt", "docs/spec.pdf", "readme.md"}; !equal(got, want) {
		t.Errorf("Files = %v, want %v", got, want)
	}

	// Parents are listed before children.
	seen := map[string]bool{"": true}
	for _, d := range tree.Dirs {
		parent := filepath.ToSlash(filepath.Dir(d.Rel))
		if parent == "." {
			parent = ""
		}
		if !seen[parent] {
			t.Errorf("dir %s listed before its parent", d.Rel)
		}
		seen[d.Rel] = true
	}
}

func TestManager_WalkSkipsSpecialFiles(t *testing.T) {
	m := NewManager()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "a"})
	if err := os.Symlink(filepath.Join(dir, "a.txt"), filepath.Join(dir, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if l, err := net.Listen("unix", filepath.Join(dir, "sock")); err == nil {
		defer l.Close()
	}

	root, _ := m.Resolve(dir)
	tree, err := m.Walk(root, nil)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if got := rels(tree.Files); !equal(got, []string{"a.txt"}) {
		t.Errorf("Files = %v", got)
	}
	if len(tree.Skipped) == 0 || tree.Skipped[0] != "link" {
		t.Errorf("Skipped = %v, want link first", tree.Skipped)
	}
}

func TestManager_WalkRequiresDirectory(t *testing.T) {
	m := NewManager()
	if _, err := m.Walk(&Source{Path: "/tmp/x"}, nil); !errors.Is(err, hier.ErrInvalidArgument) {
		t.Errorf("Walk(file) error = %v, want ErrInvalidArgument", err)
	}
}
