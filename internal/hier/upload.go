package hier

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// UploadRequest describes a new file.
type UploadRequest struct {
	ProjectID    string
	ParentID     string // empty for the project root
	OriginalName string
	DisplayName  string // defaults to OriginalName
	Content      io.Reader
	Visibility   Visibility // defaults to VisibilityAll
	SharedWith   []string
}

// Upload stores content in the blob store and then records a new file node.
// Nothing is persisted unless the transfer succeeded.
func (s *Service) Upload(ctx context.Context, actor Actor, req UploadRequest) (*Node, error) {
	originalName := strings.TrimSpace(req.OriginalName)
	if err := ValidateName(originalName); err != nil {
		return nil, fmt.Errorf("original name: %w", err)
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = originalName
	}
	if err := ValidateName(displayName); err != nil {
		return nil, err
	}
	visibility, err := ParseVisibility(string(req.Visibility))
	if err != nil {
		return nil, err
	}
	if req.Content == nil {
		return nil, fmt.Errorf("%w: upload has no content", ErrInvalidArgument)
	}

	facts, err := s.facts(ctx, req.ProjectID, actor)
	if err != nil {
		return nil, err
	}

	// Fail fast before moving any bytes. The insert below re-checks under the
	// uniqueness constraint.
	err = s.database.View(ctx, func(q Queries) error {
		parent, err := resolveParent(ctx, q, req.ProjectID, req.ParentID)
		if err != nil {
			return err
		}
		if err := authorize(actor, facts, parent, OpCreate); err != nil {
			return err
		}
		return checkNameFree(ctx, q, req.ProjectID, req.ParentID, KindFile, displayName, "")
	})
	if err != nil {
		return nil, err
	}

	storedName := storedNameFor(s.idgen.New(), originalName)
	remoteKey := BlobKey(req.ProjectID, storedName)

	content, err := s.stage(req.Content)
	if err != nil {
		return nil, err
	}
	defer content.release()

	if err := s.blobs.Put(ctx, content.upload.Path, remoteKey); err != nil {
		return nil, transferFailed("storing", remoteKey, err)
	}

	now := s.clock.Now()
	n := &Node{
		ID:           s.idgen.New(),
		Kind:         KindFile,
		ProjectID:    req.ProjectID,
		ParentID:     req.ParentID,
		DisplayName:  displayName,
		StoredName:   storedName,
		OriginalName: originalName,
		OwnerID:      actor.UserID,
		Visibility:   visibility,
		SharedWith:   normalizeShares(req.SharedWith),
		Size:         content.size,
		MimeType:     content.mimeType,
		RemoteKey:    remoteKey,
		Encrypted:    content.encrypted,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	n.Versions = []VersionRecord{n.nextVersion(ActionCreate, actor.UserID, now)}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	err = s.database.Update(ctx, func(q Queries) error {
		if _, err := resolveParent(ctx, q, req.ProjectID, req.ParentID); err != nil {
			return err
		}
		if err := q.InsertNode(ctx, n); err != nil {
			return fmt.Errorf("inserting file: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("blob stored but file not recorded", "key", remoteKey, "project", req.ProjectID, "error", err)
		return nil, err
	}

	s.logger.Info("file uploaded", "node", n.ID, "project", n.ProjectID, "parent", n.ParentID, "key", remoteKey, "size", n.Size, "actor", actor.UserID)
	return n, nil
}

// UpdateRequest carries replacement content for an existing file.
type UpdateRequest struct {
	NodeID       string
	OriginalName string // defaults to the current original name
	Content      io.Reader
}

// Update replaces a file's content with a new version. Only the uploader may
// do this. The previous blob stays in the store and in the history.
func (s *Service) Update(ctx context.Context, actor Actor, req UpdateRequest) (*Node, error) {
	if req.Content == nil {
		return nil, fmt.Errorf("%w: update has no content", ErrInvalidArgument)
	}

	var current *Node
	err := s.database.View(ctx, func(q Queries) error {
		n, err := loadActive(ctx, q, req.NodeID)
		if err != nil {
			return err
		}
		current = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !current.IsFile() {
		return nil, fmt.Errorf("%w: %s is a folder", ErrInvalidStructure, current.ID)
	}

	facts, err := s.facts(ctx, current.ProjectID, actor)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, facts, current, OpUpdate); err != nil {
		return nil, err
	}

	originalName := strings.TrimSpace(req.OriginalName)
	if originalName == "" {
		originalName = current.OriginalName
	}
	if err := ValidateName(originalName); err != nil {
		return nil, fmt.Errorf("original name: %w", err)
	}

	storedName := storedNameFor(s.idgen.New(), originalName)
	remoteKey := BlobKey(current.ProjectID, storedName)

	content, err := s.stage(req.Content)
	if err != nil {
		return nil, err
	}
	defer content.release()

	if err := s.blobs.Put(ctx, content.upload.Path, remoteKey); err != nil {
		return nil, transferFailed("storing", remoteKey, err)
	}

	var updated *Node
	err = s.database.Update(ctx, func(q Queries) error {
		n, err := loadActive(ctx, q, req.NodeID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		n.StoredName = storedName
		n.OriginalName = originalName
		n.RemoteKey = remoteKey
		n.Size = content.size
		n.MimeType = content.mimeType
		n.Encrypted = content.encrypted
		n.UpdatedAt = now

		v := n.nextVersion(ActionUpdate, actor.UserID, now)
		if err := q.AppendVersion(ctx, n.ID, v); err != nil {
			return fmt.Errorf("appending version: %w", err)
		}
		if err := q.UpdateNode(ctx, n); err != nil {
			return fmt.Errorf("updating file: %w", err)
		}
		n.Versions = append(n.Versions, v)
		updated = n
		return nil
	})
	if err != nil {
		s.logger.Error("blob stored but version not recorded", "key", remoteKey, "node", req.NodeID, "error", err)
		return nil, err
	}

	s.logger.Info("file updated", "node", updated.ID, "version", len(updated.Versions), "key", remoteKey, "size", updated.Size, "actor", actor.UserID)
	return updated, nil
}
