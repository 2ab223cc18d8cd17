package app

import (
	"context"
	"errors"
	"fmt"
	"path"

	"docshare/internal/fs"
	"docshare/internal/hier"
)

// UploadOptions control how a local path is uploaded.
type UploadOptions struct {
	Parent     string // folder reference; "" for the project root
	Name       string // display name; defaults to the local base name
	Visibility hier.Visibility
	SharedWith []string
	Recursive  bool // required to upload a directory
}

// UploadResult summarizes an upload.
type UploadResult struct {
	Folders []*hier.Node // created by a directory import
	Files   []*hier.Node
	Skipped []string // unsupported local entries, relative to the import root
}

// Upload uploads the local file or, with opts.Recursive, the directory at localPath.
func (a *App) Upload(ctx context.Context, projectID, localPath string, opts UploadOptions) (*UploadResult, error) {
	src, err := a.fsmgr.Resolve(localPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	parentID, err := a.resolveFolder(ctx, projectID, opts.Parent)
	if err != nil {
		return nil, err
	}

	if src.IsDir {
		if !opts.Recursive {
			return nil, fmt.Errorf("%w: %s is a directory (use --recursive)", hier.ErrInvalidArgument, src.Path)
		}
		return a.uploadTree(ctx, projectID, parentID, src, opts)
	}

	n, err := a.uploadFile(ctx, projectID, parentID, src, opts.Name, opts)
	if err != nil {
		return nil, err
	}
	return &UploadResult{Files: []*hier.Node{n}}, nil
}

func (a *App) uploadFile(ctx context.Context, projectID, parentID string, src *fs.Source, displayName string, opts UploadOptions) (*hier.Node, error) {
	r, err := a.fsmgr.Open(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return a.service.Upload(ctx, a.actor, hier.UploadRequest{
		ProjectID:    projectID,
		ParentID:     parentID,
		OriginalName: src.Name(),
		DisplayName:  displayName,
		Content:      r,
		Visibility:   opts.Visibility,
		SharedWith:   opts.SharedWith,
	})
}

// uploadTree mirrors a directory as a folder under parentID. Folders that
// already exist are reused; the first failing file stops the import.
func (a *App) uploadTree(ctx context.Context, projectID, parentID string, root *fs.Source, opts UploadOptions) (*UploadResult, error) {
	ignore, err := fs.LoadIgnoreMatcher(root.Path, a.cfg.Upload.Ignore)
	if err != nil {
		return nil, err
	}
	tree, err := a.fsmgr.Walk(root, ignore)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{Skipped: tree.Skipped}
	name := opts.Name
	if name == "" {
		name = root.Name()
	}

	folders := make(map[string]string) // relative dir -> node id
	if folders[""], err = a.ensureFolder(ctx, projectID, parentID, name, result); err != nil {
		return result, err
	}
	for _, dir := range tree.Dirs {
		id, err := a.ensureFolder(ctx, projectID, folders[parentRel(dir.Rel)], path.Base(dir.Rel), result)
		if err != nil {
			return result, fmt.Errorf("importing %s: %w", dir.Rel, err)
		}
		folders[dir.Rel] = id
	}

	for _, file := range tree.Files {
		n, err := a.uploadFile(ctx, projectID, folders[parentRel(file.Rel)], file, "", opts)
		if err != nil {
			return result, fmt.Errorf("importing %s: %w", file.Rel, err)
		}
		result.Files = append(result.Files, n)
	}

	a.logger.Info("directory imported", "project", projectID, "root", root.Path, "folders", len(result.Folders), "files", len(result.Files), "skipped", len(result.Skipped))
	return result, nil
}

// ensureFolder creates name under parentID, or returns the existing folder of that name.
func (a *App) ensureFolder(ctx context.Context, projectID, parentID, name string, result *UploadResult) (string, error) {
	n, err := a.service.CreateFolder(ctx, a.actor, hier.CreateFolderRequest{ProjectID: projectID, ParentID: parentID, Name: name})
	if err == nil {
		result.Folders = append(result.Folders, n)
		return n.ID, nil
	}
	if !errors.Is(err, hier.ErrNameConflict) {
		return "", err
	}
	existing, err := a.child(ctx, projectID, parentID, name, hier.KindFolder)
	if err != nil {
		return "", err
	}
	return existing.ID, nil
}

// parentRel returns the slash-separated parent of rel, "" at the import root.
func parentRel(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return dir
}
