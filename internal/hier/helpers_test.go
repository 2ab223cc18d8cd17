package hier_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"docshare/internal/hier"
	"docshare/internal/testutil"
)

var (
	alice = hier.Actor{UserID: "alice", Role: hier.RoleUser} // owner of p1
	bob   = hier.Actor{UserID: "bob", Role: hier.RoleUser}   // member of p1
	carol = hier.Actor{UserID: "carol", Role: hier.RoleUser} // member of p1
	dave  = hier.Actor{UserID: "dave", Role: hier.RoleUser}  // not a member
	root  = hier.Actor{UserID: "root", Role: hier.RoleAdmin}
)

// newHarness returns a harness with project p1 (owner alice, members bob and
// carol) and project p2 (owner dave).
func newHarness(t *testing.T, opts ...testutil.HarnessOption) *testutil.Harness {
	t.Helper()
	h := testutil.NewHarness(t, opts...)
	h.Members.AddProject("p1", "alice")
	h.Members.AddMember("p1", "bob")
	h.Members.AddMember("p1", "carol")
	h.Members.AddProject("p2", "dave")
	return h
}

func mustFolder(t *testing.T, h *testutil.Harness, actor hier.Actor, parentID, name string) *hier.Node {
	t.Helper()
	n, err := h.Service.CreateFolder(context.Background(), actor, hier.CreateFolderRequest{
		ProjectID: "p1", ParentID: parentID, Name: name,
	})
	if err != nil {
		t.Fatalf("CreateFolder(%s) error = %v", name, err)
	}
	return n
}

func mustUpload(t *testing.T, h *testutil.Harness, actor hier.Actor, parentID, name, content string, vis hier.Visibility, shared ...string) *hier.Node {
	t.Helper()
	n, err := h.Service.Upload(context.Background(), actor, hier.UploadRequest{
		ProjectID:    "p1",
		ParentID:     parentID,
		OriginalName: name,
		Content:      strings.NewReader(content),
		Visibility:   vis,
		SharedWith:   shared,
	})
	if err != nil {
		t.Fatalf("Upload(%s) error = %v", name, err)
	}
	return n
}

func mustList(t *testing.T, h *testutil.Harness, actor hier.Actor, parentID string) []*hier.Node {
	t.Helper()
	nodes, err := h.Service.List(context.Background(), actor, "p1", parentID)
	if err != nil {
		t.Fatalf("List(%s) as %s error = %v", parentID, actor.UserID, err)
	}
	return nodes
}

func download(t *testing.T, h *testutil.Harness, actor hier.Actor, req hier.DownloadRequest) (string, *hier.VersionRecord, error) {
	t.Helper()
	var buf bytes.Buffer
	v, err := h.Service.Download(context.Background(), actor, req, &buf)
	return buf.String(), v, err
}

func names(nodes []*hier.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.DisplayName)
	}
	return out
}

func contains(nodes []*hier.Node, id string) bool {
	for _, n := range nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// sameVersion compares records field by field, timestamps by instant.
func sameVersion(a, b hier.VersionRecord) bool {
	ts := a.Timestamp.Equal(b.Timestamp)
	a.Timestamp, b.Timestamp = b.Timestamp, b.Timestamp
	return ts && a == b
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}
