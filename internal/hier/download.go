package hier

import (
	"context"
	"fmt"
	"io"
	"os"
)

// DownloadRequest selects a file version to fetch.
type DownloadRequest struct {
	NodeID  string
	Version int // 0 selects the current version

	// Decrypt must be set when the selected version was stored encrypted.
	Decrypt DecryptionContext
}

// Download writes the content of a file version to w and returns the record
// that was served. The blob is fetched into a staging file first so a failed
// transfer never leaves partial output in w.
//
// A soft-deleted file has no current version, but its earlier versions can
// still be fetched by number, like its history.
func (s *Service) Download(ctx context.Context, actor Actor, req DownloadRequest, w io.Writer) (*VersionRecord, error) {
	var n *Node
	err := s.database.View(ctx, func(q Queries) error {
		var err error
		n, err = q.GetNode(ctx, req.NodeID)
		if err != nil {
			return fmt.Errorf("loading node %s: %w", req.NodeID, err)
		}
		if n == nil || (!n.Active && req.Version == 0) {
			return fmt.Errorf("%w: node %s", ErrNotFound, req.NodeID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !n.IsFile() {
		return nil, fmt.Errorf("%w: %s is a folder", ErrInvalidStructure, n.ID)
	}

	facts, err := s.facts(ctx, n.ProjectID, actor)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, facts, n, OpRead); err != nil {
		return nil, err
	}

	v := n.LatestVersion()
	if req.Version != 0 {
		v = n.Version(req.Version)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s has no version %d", ErrNotFound, n.ID, req.Version)
	}
	if v.Action == ActionDelete {
		return nil, fmt.Errorf("%w: version %d records a deletion", ErrInvalidStructure, v.VersionNumber)
	}
	if v.Encrypted && req.Decrypt == nil {
		return nil, fmt.Errorf("%w: version %d is encrypted and no key was unlocked", ErrInvalidArgument, v.VersionNumber)
	}

	staged, err := s.staging.Reserve()
	if err != nil {
		return nil, fmt.Errorf("reserving staging file: %w", err)
	}
	defer s.staging.Release(staged)

	if err := s.blobs.Get(ctx, v.RemoteKey, staged.Path); err != nil {
		return nil, transferFailed("fetching", v.RemoteKey, err)
	}

	f, err := os.Open(staged.Path)
	if err != nil {
		return nil, fmt.Errorf("opening fetched content: %w", err)
	}
	defer f.Close()

	if v.Encrypted {
		if err := req.Decrypt.Decrypt(f, w); err != nil {
			return nil, fmt.Errorf("decrypting version %d: %w", v.VersionNumber, err)
		}
	} else if _, err := io.Copy(w, f); err != nil {
		return nil, fmt.Errorf("writing content: %w", err)
	}

	s.logger.Info("file downloaded", "node", n.ID, "version", v.VersionNumber, "actor", actor.UserID)
	return v, nil
}
