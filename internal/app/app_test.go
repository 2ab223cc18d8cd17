package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"docshare/internal/config"
	"docshare/internal/hier"
)

var (
	alice = hier.Actor{UserID: "alice", Role: hier.RoleUser}
	bob   = hier.Actor{UserID: "bob", Role: hier.RoleUser}
	carol = hier.Actor{UserID: "carol", Role: hier.RoleUser}
	admin = hier.Actor{UserID: "root", Role: hier.RoleAdmin}
)

// newTestConfig returns a config whose database and blob store live on disk
// under a temp dir, so Apps for different actors share state.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return config.NewConfig("alice", t.TempDir())
}

func newTestApp(t *testing.T, cfg *config.Config, actor hier.Actor) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, actor)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// setupProject creates a project owned by alice with bob as a member.
func setupProject(t *testing.T, cfg *config.Config) string {
	t.Helper()
	ctx := context.Background()
	a := newTestApp(t, cfg, alice)
	p, err := a.CreateProject(ctx, "Apollo")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if err := a.AddMember(ctx, p.ID, "bob"); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	return p.ID
}

func TestApp_Projects(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	projectID := setupProject(t, cfg)

	b := newTestApp(t, cfg, bob)
	list, err := b.Projects(ctx)
	if err != nil || len(list) != 1 || list[0].ID != projectID {
		t.Fatalf("Projects() = %v, %v", list, err)
	}
	members, err := b.Members(ctx, projectID)
	if err != nil || len(members) != 2 || members[0].UserID != "alice" {
		t.Errorf("Members() = %+v, %v", members, err)
	}
	if err := b.AddMember(ctx, projectID, "carol"); !errors.Is(err, hier.ErrForbidden) {
		t.Errorf("AddMember() as member error = %v, want ErrForbidden", err)
	}

	c := newTestApp(t, cfg, carol)
	if _, err := c.Members(ctx, projectID); !errors.Is(err, hier.ErrForbidden) {
		t.Errorf("Members() as outsider error = %v, want ErrForbidden", err)
	}
	if _, err := c.Members(ctx, "ghost"); !errors.Is(err, hier.ErrNotFound) {
		t.Errorf("Members(ghost) error = %v, want ErrNotFound", err)
	}
	if _, err := newTestApp(t, cfg, admin).Members(ctx, projectID); err != nil {
		t.Errorf("Members() as admin error = %v", err)
	}
}

func TestApp_PathOperations(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	projectID := setupProject(t, cfg)
	a := newTestApp(t, cfg, alice)
	b := newTestApp(t, cfg, bob)
	local := t.TempDir()

	if _, err := a.CreateFolder(ctx, projectID, "", "Docs"); err != nil {
		t.Fatalf("CreateFolder(Docs) error = %v", err)
	}
	if _, err := a.CreateFolder(ctx, projectID, "/Docs/", "Sub"); err != nil {
		t.Fatalf("CreateFolder(Docs/Sub) error = %v", err)
	}

	src := writeFile(t, filepath.Join(local, "report.txt"), "version one")
	res, err := b.Upload(ctx, projectID, src, UploadOptions{Parent: "Docs"})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	report := res.Files[0]

	listing, err := a.List(ctx, projectID, "Docs")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var names []string
	for _, n := range listing {
		names = append(names, n.DisplayName)
	}
	if !slices.Equal(names, []string{"Sub", "report.txt"}) {
		t.Errorf("List(Docs) = %v", names)
	}

	info, err := a.Info(ctx, projectID, "Docs/report.txt")
	if err != nil || info.ID != report.ID {
		t.Errorf("Info() = %v, %v", info, err)
	}
	if _, err := a.Info(ctx, projectID, "Docs/missing.txt"); !errors.Is(err, hier.ErrNotFound) {
		t.Errorf("Info(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := a.Info(ctx, projectID, "/"); !errors.Is(err, hier.ErrInvalidArgument) {
		t.Errorf("Info(root) error = %v, want ErrInvalidArgument", err)
	}

	if _, err := a.Move(ctx, projectID, "Docs", "Docs/Sub"); !errors.Is(err, hier.ErrCycleRejected) {
		t.Errorf("Move(Docs into Docs/Sub) error = %v, want ErrCycleRejected", err)
	}
	if _, err := a.Move(ctx, projectID, "Docs/report.txt", "Docs/Sub"); err != nil {
		t.Fatalf("Move(report) error = %v", err)
	}

	writeFile(t, src, "version two")
	if _, err := b.Update(ctx, projectID, "Docs/Sub/report.txt", src); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, err := a.Update(ctx, projectID, "Docs/Sub/report.txt", src); !errors.Is(err, hier.ErrForbidden) {
		t.Errorf("Update() as project owner error = %v, want ErrForbidden", err)
	}

	var buf bytes.Buffer
	v, err := a.Download(ctx, projectID, "Docs/Sub/report.txt", 1, &buf, nil)
	if err != nil || buf.String() != "version one" || v.VersionNumber != 1 {
		t.Errorf("Download(v1) = %q, %v", buf.String(), err)
	}

	if _, err := b.Share(ctx, projectID, "Docs/Sub/report.txt", hier.VisibilityShared, nil); err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	if _, err := b.Delete(ctx, projectID, "Docs/Sub/report.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	history, err := b.History(ctx, projectID, IDPrefix+report.ID)
	if err != nil || len(history) != 3 || history[2].Action != hier.ActionDelete {
		t.Errorf("History(@id) = %+v, %v", history, err)
	}
	if _, err := b.History(ctx, projectID, "Docs/Sub/report.txt"); !errors.Is(err, hier.ErrNotFound) {
		t.Errorf("History(path of deleted) error = %v, want ErrNotFound", err)
	}
}

func TestApp_UploadDirectory(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	projectID := setupProject(t, cfg)
	b := newTestApp(t, cfg, bob)

	root := filepath.Join(t.TempDir(), "site")
	writeFile(t, filepath.Join(root, "index.html"), "<html></html>")
	writeFile(t, filepath.Join(root, "docs", "guide.md"), "# guide")
	writeFile(t, filepath.Join(root, "docs", "api", "v1.md"), "# v1")
	writeFile(t, filepath.Join(root, ".git", "config"), "[core]")
	writeFile(t, filepath.Join(root, "build.log"), "noise")
	writeFile(t, filepath.Join(root, ".dsignore"), "*.log\n")
	if err := os.Symlink(filepath.Join(root, "index.html"), filepath.Join(root, "link.html")); err != nil {
		t.Fatal(err)
	}

	if _, err := b.Upload(ctx, projectID, root, UploadOptions{}); !errors.Is(err, hier.ErrInvalidArgument) {
		t.Fatalf("Upload(dir) without recursive error = %v, want ErrInvalidArgument", err)
	}

	res, err := b.Upload(ctx, projectID, root, UploadOptions{Recursive: true, Visibility: hier.VisibilityShared})
	if err != nil {
		t.Fatalf("Upload(recursive) error = %v", err)
	}
	if len(res.Folders) != 3 {
		t.Errorf("folders created = %d, want 3 (site, docs, docs/api)", len(res.Folders))
	}
	var files []string
	for _, f := range res.Files {
		files = append(files, f.DisplayName)
		if f.Visibility != hier.VisibilityShared {
			t.Errorf("%s visibility = %q", f.DisplayName, f.Visibility)
		}
	}
	slices.Sort(files)
	if !slices.Equal(files, []string{"guide.md", "index.html", "v1.md"}) {
		t.Errorf("files uploaded = %v", files)
	}
	if !slices.Equal(res.Skipped, []string{"link.html"}) {
		t.Errorf("skipped = %v, want [link.html]", res.Skipped)
	}

	if _, err := b.Info(ctx, projectID, "site/docs/api/v1.md"); err != nil {
		t.Errorf("Info(site/docs/api/v1.md) error = %v", err)
	}

	// A second import reuses the folders and stops at the first taken file name.
	again, err := b.Upload(ctx, projectID, root, UploadOptions{Recursive: true})
	if !errors.Is(err, hier.ErrNameConflict) {
		t.Fatalf("re-import error = %v, want ErrNameConflict", err)
	}
	if len(again.Folders) != 0 {
		t.Errorf("re-import created %d folders, want 0", len(again.Folders))
	}
}

func TestApp_EncryptedContent(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	cfg.Encryption.Type = "test"
	projectID := setupProject(t, cfg)
	b := newTestApp(t, cfg, bob)

	src := writeFile(t, filepath.Join(t.TempDir(), "secret.txt"), "classified")
	res, err := b.Upload(ctx, projectID, src, UploadOptions{})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !res.Files[0].Encrypted {
		t.Fatal("upload was not encrypted")
	}

	if _, err := b.Download(ctx, projectID, "secret.txt", 0, &bytes.Buffer{}, nil); !errors.Is(err, hier.ErrInvalidArgument) {
		t.Errorf("Download() without passphrase error = %v, want ErrInvalidArgument", err)
	}

	prompted := 0
	var buf bytes.Buffer
	_, err = b.Download(ctx, projectID, "secret.txt", 0, &buf, func() (string, error) {
		prompted++
		return "any", nil
	})
	if err != nil || buf.String() != "classified" || prompted != 1 {
		t.Errorf("Download() = %q, %v (prompted %d)", buf.String(), err, prompted)
	}
}

func TestApp_SetupEncryptionDisabled(t *testing.T) {
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg, alice)
	if err := a.SetupEncryption("pass"); !errors.Is(err, hier.ErrInvalidArgument) {
		t.Errorf("SetupEncryption() error = %v, want ErrInvalidArgument", err)
	}
}

func TestApp_BackupDatabase(t *testing.T) {
	cfg := newTestConfig(t)
	setupProject(t, cfg)
	dest := filepath.Join(t.TempDir(), "snapshot.db")

	if err := newTestApp(t, cfg, alice).BackupDatabase(dest); !errors.Is(err, hier.ErrForbidden) {
		t.Errorf("BackupDatabase() as user error = %v, want ErrForbidden", err)
	}

	a := newTestApp(t, cfg, admin)
	if err := a.BackupDatabase(dest); err != nil {
		t.Fatalf("BackupDatabase() error = %v", err)
	}
	if info, err := os.Stat(dest); err != nil || info.Size() == 0 {
		t.Errorf("snapshot missing or empty: %v", err)
	}
	if err := a.BackupDatabase(dest); !errors.Is(err, hier.ErrNameConflict) {
		t.Errorf("BackupDatabase() over existing file error = %v, want ErrNameConflict", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.BlobStore.Type = "ftp"
	if _, err := New(context.Background(), cfg, alice); err == nil {
		t.Fatal("New() expected error for unknown blob store")
	}
}
