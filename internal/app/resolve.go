package app

import (
	"context"
	"fmt"
	"path"
	"strings"

	"docshare/internal/hier"
)

// IDPrefix marks a reference as a literal node id rather than a path.
const IDPrefix = "@"

// resolveFolder returns the id of the folder at ref, or "" for the project root.
func (a *App) resolveFolder(ctx context.Context, projectID, ref string) (string, error) {
	if id, ok := strings.CutPrefix(ref, IDPrefix); ok {
		return id, nil
	}
	parentID := ""
	for _, name := range splitPath(ref) {
		n, err := a.child(ctx, projectID, parentID, name, hier.KindFolder)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", ref, err)
		}
		parentID = n.ID
	}
	return parentID, nil
}

// resolveNode returns the id of the node at ref. When a file and a folder
// share the final name, the file wins.
func (a *App) resolveNode(ctx context.Context, projectID, ref string) (string, error) {
	if id, ok := strings.CutPrefix(ref, IDPrefix); ok {
		return id, nil
	}
	parts := splitPath(ref)
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: the project root is not a node", hier.ErrInvalidArgument)
	}
	parentID, err := a.resolveFolder(ctx, projectID, path.Join(parts[:len(parts)-1]...))
	if err != nil {
		return "", err
	}
	n, err := a.child(ctx, projectID, parentID, parts[len(parts)-1], "")
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", ref, err)
	}
	return n.ID, nil
}

// child finds the readable child called name. An empty kind accepts either,
// preferring a file.
func (a *App) child(ctx context.Context, projectID, parentID, name string, kind hier.Kind) (*hier.Node, error) {
	children, err := a.service.List(ctx, a.actor, projectID, parentID)
	if err != nil {
		return nil, err
	}
	var folder *hier.Node
	for _, c := range children {
		if c.DisplayName != name {
			continue
		}
		switch {
		case kind == "" && c.IsFile(), kind == c.Kind:
			return c, nil
		case kind == "" && c.IsFolder():
			folder = c
		}
	}
	if folder != nil {
		return folder, nil
	}
	return nil, fmt.Errorf("%w: no %s named %q", hier.ErrNotFound, kindLabel(kind), name)
}

func kindLabel(kind hier.Kind) string {
	if kind == "" {
		return "node"
	}
	return string(kind)
}

func splitPath(ref string) []string {
	return strings.FieldsFunc(ref, func(r rune) bool { return r == '/' })
}
