package hier_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"docshare/internal/hier"
	"docshare/internal/testutil"
)

func TestCreateFolder(t *testing.T) {
	ctx := context.Background()

	t.Run("records creator and synthetic key", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		n := mustFolder(t, h, bob, "", " Docs ")
		if n.DisplayName != "Docs" || n.OwnerID != "bob" || n.RemoteKey != "folders/p1/Docs" {
			t.Errorf("CreateFolder() = %+v", n)
		}
		if n.Versions[0].ActorID != "bob" || !n.CreatedAt.Equal(testutil.FixedClock().Now()) {
			t.Errorf("create record = %+v", n.Versions[0])
		}
	})

	t.Run("same name allowed for a file and under another parent", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		a := mustFolder(t, h, bob, "", "A")
		mustFolder(t, h, bob, a.ID, "A")
		mustUpload(t, h, bob, "", "A", "x", hier.VisibilityAll)
	})

	tests := []struct {
		name   string
		actor  hier.Actor
		req    func(docs, file *hier.Node) hier.CreateFolderRequest
		target error
	}{
		{"duplicate sibling", bob, func(d, _ *hier.Node) hier.CreateFolderRequest {
			return hier.CreateFolderRequest{ProjectID: "p1", Name: "Docs"}
		}, hier.ErrNameConflict},
		{"empty name", bob, func(d, _ *hier.Node) hier.CreateFolderRequest {
			return hier.CreateFolderRequest{ProjectID: "p1", Name: " "}
		}, hier.ErrInvalidArgument},
		{"parent is a file", bob, func(_, f *hier.Node) hier.CreateFolderRequest {
			return hier.CreateFolderRequest{ProjectID: "p1", ParentID: f.ID, Name: "x"}
		}, hier.ErrInvalidStructure},
		{"parent in another project", root, func(d, _ *hier.Node) hier.CreateFolderRequest {
			return hier.CreateFolderRequest{ProjectID: "p2", ParentID: d.ID, Name: "x"}
		}, hier.ErrInvalidStructure},
		{"missing parent", bob, func(_, _ *hier.Node) hier.CreateFolderRequest {
			return hier.CreateFolderRequest{ProjectID: "p1", ParentID: "ghost", Name: "x"}
		}, hier.ErrNotFound},
		{"unknown project", bob, func(_, _ *hier.Node) hier.CreateFolderRequest {
			return hier.CreateFolderRequest{ProjectID: "nope", Name: "x"}
		}, hier.ErrNotFound},
		{"non-member", dave, func(_, _ *hier.Node) hier.CreateFolderRequest {
			return hier.CreateFolderRequest{ProjectID: "p1", Name: "x"}
		}, hier.ErrForbidden},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			docs := mustFolder(t, h, alice, "", "Docs")
			file := mustUpload(t, h, bob, "", "a.txt", "a", hier.VisibilityAll)

			_, err := h.Service.CreateFolder(ctx, tt.actor, tt.req(docs, file))
			wantErr(t, err, tt.target)
		})
	}
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("stores content under a fresh key", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		n, err := h.Service.Upload(ctx, bob, hier.UploadRequest{
			ProjectID:    "p1",
			OriginalName: "Spec.PDF",
			DisplayName:  "Specification",
			Content:      strings.NewReader("%PDF-1.4\n"),
			SharedWith:   []string{" carol", "carol", ""},
		})
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if n.DisplayName != "Specification" || n.OriginalName != "Spec.PDF" {
			t.Errorf("names = %q / %q", n.DisplayName, n.OriginalName)
		}
		if !strings.HasSuffix(n.StoredName, ".pdf") || n.StoredName == n.OriginalName {
			t.Errorf("StoredName = %q", n.StoredName)
		}
		if n.RemoteKey != hier.BlobKey("p1", n.StoredName) || !h.Memory.Has(n.RemoteKey) {
			t.Errorf("RemoteKey = %q not stored", n.RemoteKey)
		}
		if n.MimeType != "application/pdf" || n.Size != 9 || n.Encrypted {
			t.Errorf("content fields = %q %d %v", n.MimeType, n.Size, n.Encrypted)
		}
		if n.Visibility != hier.VisibilityAll || !slices.Equal(n.SharedWith, []string{"carol"}) {
			t.Errorf("Visibility = %q, SharedWith = %v", n.Visibility, n.SharedWith)
		}
		if v := n.Versions[0]; v.StoredName != n.StoredName || v.RemoteKey != n.RemoteKey || v.Size != n.Size {
			t.Errorf("create record = %+v", v)
		}
		if got := h.StagingCount(t); got != 0 {
			t.Errorf("staging files left = %d", got)
		}
	})

	t.Run("two uploads of one name get distinct blobs", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		a := mustUpload(t, h, bob, "", "x.txt", "a", hier.VisibilityAll)
		docs := mustFolder(t, h, bob, "", "Docs")
		b := mustUpload(t, h, bob, docs.ID, "x.txt", "b", hier.VisibilityAll)
		if a.RemoteKey == b.RemoteKey {
			t.Errorf("both uploads stored at %s", a.RemoteKey)
		}
	})

	t.Run("name conflict moves no bytes", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		mustUpload(t, h, bob, "", "x.txt", "a", hier.VisibilityAll)
		before := h.Blobs.Puts()

		_, err := h.Service.Upload(ctx, carol, hier.UploadRequest{ProjectID: "p1", OriginalName: "x.txt", Content: strings.NewReader("b")})
		wantErr(t, err, hier.ErrNameConflict)
		if h.Blobs.Puts() != before {
			t.Error("conflicting upload reached the blob store")
		}
	})

	t.Run("oversized content is rejected before transfer", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.Service = hier.NewService(h.DB, h.Members, h.Blobs, testutil.NewTestStagingAreaWithSize(t, 4), nil, hier.NewNopLogger(), h.Clock, h.IDs)

		_, err := h.Service.Upload(ctx, bob, hier.UploadRequest{ProjectID: "p1", OriginalName: "big.bin", Content: strings.NewReader("too large")})
		wantErr(t, err, hier.ErrInvalidArgument)
		if h.Blobs.Puts() != 0 {
			t.Error("oversized upload reached the blob store")
		}
	})

	tests := []struct {
		name   string
		actor  hier.Actor
		req    hier.UploadRequest
		target error
	}{
		{"empty name", bob, hier.UploadRequest{ProjectID: "p1", OriginalName: "", Content: strings.NewReader("a")}, hier.ErrInvalidArgument},
		{"name with separator", bob, hier.UploadRequest{ProjectID: "p1", OriginalName: "a/b.txt", Content: strings.NewReader("a")}, hier.ErrInvalidArgument},
		{"no content", bob, hier.UploadRequest{ProjectID: "p1", OriginalName: "a.txt"}, hier.ErrInvalidArgument},
		{"bad visibility", bob, hier.UploadRequest{ProjectID: "p1", OriginalName: "a.txt", Visibility: "team", Content: strings.NewReader("a")}, hier.ErrInvalidArgument},
		{"non-member", dave, hier.UploadRequest{ProjectID: "p1", OriginalName: "a.txt", Content: strings.NewReader("a")}, hier.ErrForbidden},
		{"unknown project", bob, hier.UploadRequest{ProjectID: "nope", OriginalName: "a.txt", Content: strings.NewReader("a")}, hier.ErrNotFound},
		{"missing parent", bob, hier.UploadRequest{ProjectID: "p1", ParentID: "ghost", OriginalName: "a.txt", Content: strings.NewReader("a")}, hier.ErrNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			_, err := h.Service.Upload(ctx, tt.actor, tt.req)
			wantErr(t, err, tt.target)
			if h.Blobs.Puts() != 0 {
				t.Error("rejected upload reached the blob store")
			}
		})
	}

	t.Run("parent is a file", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		f := mustUpload(t, h, bob, "", "a.txt", "a", hier.VisibilityAll)
		_, err := h.Service.Upload(ctx, bob, hier.UploadRequest{ProjectID: "p1", ParentID: f.ID, OriginalName: "b.txt", Content: strings.NewReader("b")})
		wantErr(t, err, hier.ErrInvalidStructure)
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	content := func() hier.UpdateRequest { return hier.UpdateRequest{Content: strings.NewReader("new content")} }

	for _, actor := range []hier.Actor{alice, carol, root, dave} {
		actor := actor
		t.Run("denied for "+actor.UserID, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			n := mustUpload(t, h, bob, "", "a.txt", "old", hier.VisibilityAll)

			req := content()
			req.NodeID = n.ID
			_, err := h.Service.Update(ctx, actor, req)
			wantErr(t, err, hier.ErrForbidden)
			if h.Blobs.Puts() != 1 {
				t.Error("denied update reached the blob store")
			}
		})
	}

	t.Run("renames the original when asked", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		n := mustUpload(t, h, bob, "", "notes.txt", "old", hier.VisibilityAll)

		updated, err := h.Service.Update(ctx, bob, hier.UpdateRequest{NodeID: n.ID, OriginalName: "notes.md", Content: strings.NewReader("# new")})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if updated.OriginalName != "notes.md" || !strings.HasSuffix(updated.StoredName, ".md") {
			t.Errorf("OriginalName = %q, StoredName = %q", updated.OriginalName, updated.StoredName)
		}
		if updated.DisplayName != "notes.txt" {
			t.Errorf("DisplayName = %q, want unchanged", updated.DisplayName)
		}
	})

	t.Run("folder", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		f := mustFolder(t, h, bob, "", "Docs")
		req := content()
		req.NodeID = f.ID
		_, err := h.Service.Update(ctx, bob, req)
		wantErr(t, err, hier.ErrInvalidStructure)
	})

	t.Run("transfer failure keeps the current version", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		n := mustUpload(t, h, bob, "", "a.txt", "old", hier.VisibilityAll)

		h.Blobs.FailPuts(true)
		req := content()
		req.NodeID = n.ID
		_, err := h.Service.Update(ctx, bob, req)
		wantErr(t, err, hier.ErrTransferFailure)

		got, err := h.Service.Get(ctx, bob, n.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if len(got.Versions) != 1 || got.RemoteKey != n.RemoteKey {
			t.Errorf("node changed after failed update: %+v", got)
		}
		if got := h.StagingCount(t); got != 0 {
			t.Errorf("staging files left = %d", got)
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		actor  hier.Actor
		folder bool
		target error
	}{
		{"uploader deletes file", bob, false, nil},
		{"admin deletes file", root, false, nil},
		{"project owner may not delete a member's file", alice, false, hier.ErrForbidden},
		{"other member may not delete file", carol, false, hier.ErrForbidden},
		{"non-member", dave, false, hier.ErrForbidden},
		{"creator deletes folder", bob, true, nil},
		{"project owner deletes folder", alice, true, nil},
		{"other member may not delete folder", carol, true, hier.ErrForbidden},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			var n *hier.Node
			if tt.folder {
				n = mustFolder(t, h, bob, "", "Docs")
			} else {
				n = mustUpload(t, h, bob, "", "a.txt", "a", hier.VisibilityAll)
			}

			deleted, err := h.Service.Delete(ctx, tt.actor, n.ID)
			if tt.target != nil {
				wantErr(t, err, tt.target)
				if _, err := h.Service.Get(ctx, bob, n.ID); err != nil {
					t.Errorf("node gone after denied delete: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			last := deleted.LatestVersion()
			if last.Action != hier.ActionDelete || last.ActorID != tt.actor.UserID {
				t.Errorf("delete record = %+v", last)
			}
		})
	}

	t.Run("folder with active children", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		docs := mustFolder(t, h, bob, "", "Docs")
		f := mustUpload(t, h, bob, docs.ID, "a.txt", "a", hier.VisibilityAll)

		_, err := h.Service.Delete(ctx, bob, docs.ID)
		wantErr(t, err, hier.ErrInvalidStructure)

		if _, err := h.Service.Delete(ctx, bob, f.ID); err != nil {
			t.Fatalf("Delete(file) error = %v", err)
		}
		if _, err := h.Service.Delete(ctx, bob, docs.ID); err != nil {
			t.Errorf("Delete(emptied folder) error = %v", err)
		}
	})

	t.Run("blobs are kept", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		n := mustUpload(t, h, bob, "", "a.txt", "a", hier.VisibilityAll)
		if _, err := h.Service.Delete(ctx, bob, n.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if !h.Memory.Has(n.RemoteKey) {
			t.Error("blob removed by soft delete")
		}
	})
}

func TestMove(t *testing.T) {
	ctx := context.Background()

	t.Run("project owner moves a file", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		docs := mustFolder(t, h, bob, "", "Docs")
		f := mustUpload(t, h, bob, "", "a.txt", "a", hier.VisibilityAll)

		moved, err := h.Service.Move(ctx, alice, f.ID, docs.ID)
		if err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		if moved.ParentID != docs.ID || len(moved.Versions) != 1 {
			t.Errorf("Move() = parent %q, %d versions", moved.ParentID, len(moved.Versions))
		}
		if got := names(mustList(t, h, bob, docs.ID)); !slices.Equal(got, []string{"a.txt"}) {
			t.Errorf("Docs = %v", got)
		}
	})

	t.Run("creator moves own folder", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		a := mustFolder(t, h, bob, "", "A")
		b := mustFolder(t, h, carol, "", "B")
		if _, err := h.Service.Move(ctx, bob, a.ID, b.ID); err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		_, err := h.Service.Move(ctx, bob, b.ID, "")
		wantErr(t, err, hier.ErrForbidden)
	})

	t.Run("uploader may not move a file", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		docs := mustFolder(t, h, bob, "", "Docs")
		f := mustUpload(t, h, bob, "", "a.txt", "a", hier.VisibilityAll)
		_, err := h.Service.Move(ctx, bob, f.ID, docs.ID)
		wantErr(t, err, hier.ErrForbidden)
	})

	t.Run("target name taken", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		docs := mustFolder(t, h, alice, "", "Docs")
		mustUpload(t, h, bob, docs.ID, "a.txt", "a", hier.VisibilityAll)
		f := mustUpload(t, h, bob, "", "a.txt", "b", hier.VisibilityAll)
		_, err := h.Service.Move(ctx, alice, f.ID, docs.ID)
		wantErr(t, err, hier.ErrNameConflict)
	})

	t.Run("move in place is a no-op", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		docs := mustFolder(t, h, alice, "", "Docs")
		if _, err := h.Service.Move(ctx, alice, docs.ID, ""); err != nil {
			t.Errorf("Move() error = %v", err)
		}
	})

	t.Run("target is a file", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		docs := mustFolder(t, h, alice, "", "Docs")
		f := mustUpload(t, h, bob, "", "a.txt", "a", hier.VisibilityAll)
		_, err := h.Service.Move(ctx, alice, docs.ID, f.ID)
		wantErr(t, err, hier.ErrInvalidStructure)
	})

	t.Run("target in another project", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		docs := mustFolder(t, h, alice, "", "Docs")
		other, err := h.Service.CreateFolder(ctx, dave, hier.CreateFolderRequest{ProjectID: "p2", Name: "Other"})
		if err != nil {
			t.Fatalf("CreateFolder(p2) error = %v", err)
		}
		_, err = h.Service.Move(ctx, root, docs.ID, other.ID)
		wantErr(t, err, hier.ErrInvalidStructure)
	})

	t.Run("target deleted", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		a := mustFolder(t, h, alice, "", "A")
		b := mustFolder(t, h, alice, "", "B")
		if _, err := h.Service.Delete(ctx, alice, b.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		_, err := h.Service.Move(ctx, alice, a.ID, b.ID)
		wantErr(t, err, hier.ErrNotFound)
	})
}

func TestShare(t *testing.T) {
	ctx := context.Background()

	t.Run("grants read without a new version", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		n := mustUpload(t, h, bob, "", "a.txt", "a", hier.VisibilityShared)

		shared, err := h.Service.Share(ctx, bob, n.ID, hier.VisibilityShared, []string{"carol"})
		if err != nil {
			t.Fatalf("Share() error = %v", err)
		}
		if len(shared.Versions) != 1 {
			t.Errorf("Share() appended a version: %d", len(shared.Versions))
		}
		if _, err := h.Service.Get(ctx, carol, n.ID); err != nil {
			t.Errorf("Get() as carol error = %v", err)
		}
		if !contains(mustList(t, h, carol, ""), n.ID) {
			t.Error("shared file missing from carol's listing")
		}

		if _, err := h.Service.Share(ctx, alice, n.ID, hier.VisibilityShared, nil); err != nil {
			t.Fatalf("Share() as project owner error = %v", err)
		}
		_, err = h.Service.Get(ctx, carol, n.ID)
		wantErr(t, err, hier.ErrForbidden)
	})

	t.Run("shared-with user may not reshare", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		n := mustUpload(t, h, bob, "", "a.txt", "a", hier.VisibilityShared, "carol")
		_, err := h.Service.Share(ctx, carol, n.ID, hier.VisibilityAll, nil)
		wantErr(t, err, hier.ErrForbidden)
	})

	t.Run("folders", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		f := mustFolder(t, h, bob, "", "Docs")
		_, err := h.Service.Share(ctx, bob, f.ID, hier.VisibilityShared, nil)
		wantErr(t, err, hier.ErrInvalidStructure)
	})

	t.Run("bad visibility", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		n := mustUpload(t, h, bob, "", "a.txt", "a", hier.VisibilityAll)
		_, err := h.Service.Share(ctx, bob, n.ID, "team", nil)
		wantErr(t, err, hier.ErrInvalidArgument)
	})
}

func TestDownload(t *testing.T) {
	ctx := context.Background()

	t.Run("current and historical versions", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		n := mustUpload(t, h, bob, "", "a.txt", "one", hier.VisibilityAll)
		if _, err := h.Service.Update(ctx, bob, hier.UpdateRequest{NodeID: n.ID, Content: strings.NewReader("two")}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		for version, want := range map[int]string{0: "two", 1: "one", 2: "two"} {
			got, v, err := download(t, h, carol, hier.DownloadRequest{NodeID: n.ID, Version: version})
			if err != nil {
				t.Fatalf("Download(%d) error = %v", version, err)
			}
			if got != want {
				t.Errorf("Download(%d) = %q, want %q", version, got, want)
			}
			if version != 0 && v.VersionNumber != version {
				t.Errorf("Download(%d) served version %d", version, v.VersionNumber)
			}
		}
		_, _, err := download(t, h, carol, hier.DownloadRequest{NodeID: n.ID, Version: 3})
		wantErr(t, err, hier.ErrNotFound)
		if got := h.StagingCount(t); got != 0 {
			t.Errorf("staging files left = %d", got)
		}
	})

	t.Run("deleted file keeps its old versions", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		n := mustUpload(t, h, bob, "", "a.txt", "kept", hier.VisibilityAll)
		if _, err := h.Service.Delete(ctx, bob, n.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		got, _, err := download(t, h, bob, hier.DownloadRequest{NodeID: n.ID, Version: 1})
		if err != nil || got != "kept" {
			t.Errorf("Download(1) = %q, %v", got, err)
		}
		_, _, err = download(t, h, bob, hier.DownloadRequest{NodeID: n.ID, Version: 2})
		wantErr(t, err, hier.ErrInvalidStructure)
	})

	t.Run("read is authorized", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		n := mustUpload(t, h, bob, "", "a.txt", "secret", hier.VisibilityShared)
		out, _, err := download(t, h, carol, hier.DownloadRequest{NodeID: n.ID})
		wantErr(t, err, hier.ErrForbidden)
		if out != "" {
			t.Errorf("denied download wrote %q", out)
		}
	})

	t.Run("folder", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		f := mustFolder(t, h, bob, "", "Docs")
		_, _, err := download(t, h, bob, hier.DownloadRequest{NodeID: f.ID})
		wantErr(t, err, hier.ErrInvalidStructure)
	})

	t.Run("transfer failure writes nothing", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		n := mustUpload(t, h, bob, "", "a.txt", "content", hier.VisibilityAll)

		h.Blobs.FailGets(true)
		out, _, err := download(t, h, bob, hier.DownloadRequest{NodeID: n.ID})
		wantErr(t, err, hier.ErrTransferFailure)
		if out != "" {
			t.Errorf("failed download wrote %q", out)
		}
		if got := h.StagingCount(t); got != 0 {
			t.Errorf("staging files left = %d", got)
		}
	})
}

func TestEncryptedContent(t *testing.T) {
	ctx := context.Background()
	enc := testutil.NewTestEncryptor()
	h := newHarness(t, testutil.WithEncryption(enc))

	n := mustUpload(t, h, bob, "", "notes.txt", "plain words", hier.VisibilityAll)
	if !n.Encrypted || !n.Versions[0].Encrypted {
		t.Fatalf("Encrypted = %v, want true", n.Encrypted)
	}
	if n.Size != int64(len("plain words")) || !strings.HasPrefix(n.MimeType, "text/plain") {
		t.Errorf("plaintext metadata = %d %q", n.Size, n.MimeType)
	}

	raw := filepath.Join(t.TempDir(), "raw")
	if err := h.Blobs.Get(ctx, n.RemoteKey, raw); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	stored, err := os.ReadFile(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(stored), "DSENC") || strings.HasPrefix(string(stored), "plain") {
		t.Errorf("stored blob = %q, want sealed content", stored)
	}

	_, _, err = download(t, h, bob, hier.DownloadRequest{NodeID: n.ID})
	wantErr(t, err, hier.ErrInvalidArgument)

	dc, err := enc.Unlock("")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	got, _, err := download(t, h, bob, hier.DownloadRequest{NodeID: n.ID, Decrypt: dc})
	if err != nil || got != "plain words" {
		t.Errorf("Download() = %q, %v", got, err)
	}
	if count := h.StagingCount(t); count != 0 {
		t.Errorf("staging files left = %d", count)
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	n := mustUpload(t, h, bob, "", "a.txt", "a", hier.VisibilityShared)
	if _, err := h.Service.Delete(ctx, bob, n.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	for _, actor := range []hier.Actor{bob, alice, root} {
		history, err := h.Service.History(ctx, actor, n.ID)
		if err != nil || len(history) != 2 {
			t.Errorf("History() as %s = %d records, %v", actor.UserID, len(history), err)
		}
	}
	for _, actor := range []hier.Actor{carol, dave} {
		_, err := h.Service.History(ctx, actor, n.ID)
		wantErr(t, err, hier.ErrForbidden)
	}
	_, err := h.Service.History(ctx, bob, "ghost")
	wantErr(t, err, hier.ErrNotFound)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	docs := mustFolder(t, h, alice, "", "b-docs")
	mustFolder(t, h, alice, "", "a-folder")
	mustUpload(t, h, bob, "", "a-file.txt", "x", hier.VisibilityAll)
	f := mustUpload(t, h, bob, "", "c-file.txt", "x", hier.VisibilityAll)

	if got := names(mustList(t, h, carol, "")); !slices.Equal(got, []string{"a-folder", "b-docs", "a-file.txt", "c-file.txt"}) {
		t.Errorf("List() = %v, want folders first then by name", got)
	}
	if got := mustList(t, h, root, docs.ID); len(got) != 0 {
		t.Errorf("List(empty folder) = %v", names(got))
	}

	_, err := h.Service.List(ctx, bob, "p1", f.ID)
	wantErr(t, err, hier.ErrInvalidStructure)
	_, err = h.Service.List(ctx, bob, "p1", "ghost")
	wantErr(t, err, hier.ErrNotFound)
	_, err = h.Service.List(ctx, bob, "nope", "")
	wantErr(t, err, hier.ErrNotFound)

	h.Members.RemoveMember("p1", "carol")
	_, err = h.Service.List(ctx, carol, "p1", "")
	wantErr(t, err, hier.ErrForbidden)
}

func TestMembershipErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	n := mustUpload(t, h, bob, "", "a.txt", "a", hier.VisibilityAll)

	boom := errors.New("registry unavailable")
	h.Members.FailWith(boom)

	_, err := h.Service.Get(ctx, bob, n.ID)
	if !errors.Is(err, boom) || errors.Is(err, hier.ErrForbidden) {
		t.Errorf("Get() error = %v, want the registry failure", err)
	}
	_, err = h.Service.CreateFolder(ctx, bob, hier.CreateFolderRequest{ProjectID: "p1", Name: "Docs"})
	if !errors.Is(err, boom) {
		t.Errorf("CreateFolder() error = %v, want the registry failure", err)
	}
}
