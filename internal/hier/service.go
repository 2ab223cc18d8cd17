package hier

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/gabriel-vasile/mimetype"
)

// maxDepth bounds ancestor walks. A chain longer than this means the stored
// tree is already corrupt.
const maxDepth = 4096

// Service implements the hierarchy operations for every project.
type Service struct {
	database  Database
	members   MembershipOracle
	blobs     BlobStore
	staging   StagingArea
	encryptor Encryptor
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewService creates a Service. encryptor may be nil, in which case content
// is stored as uploaded.
func NewService(database Database, members MembershipOracle, blobs BlobStore, staging StagingArea, encryptor Encryptor, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		database:  database,
		members:   members,
		blobs:     blobs,
		staging:   staging,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// facts resolves the actor's standing in a project. Unknown projects are ErrNotFound.
func (s *Service) facts(ctx context.Context, projectID string, actor Actor) (Facts, error) {
	exists, err := s.members.ProjectExists(ctx, projectID)
	if err != nil {
		return Facts{}, fmt.Errorf("checking project %s: %w", projectID, err)
	}
	if !exists {
		return Facts{}, fmt.Errorf("%w: project %s", ErrNotFound, projectID)
	}

	member, err := s.members.IsMember(ctx, projectID, actor.UserID)
	if err != nil {
		return Facts{}, fmt.Errorf("checking membership: %w", err)
	}
	owner, err := s.members.IsOwner(ctx, projectID, actor.UserID)
	if err != nil {
		return Facts{}, fmt.Errorf("checking ownership: %w", err)
	}
	return Facts{Member: member || owner, ProjectOwner: owner}, nil
}

// loadActive fetches a node that must exist and be active.
func loadActive(ctx context.Context, q Queries, id string) (*Node, error) {
	n, err := q.GetNode(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading node %s: %w", id, err)
	}
	if n == nil || !n.Active {
		return nil, fmt.Errorf("%w: node %s", ErrNotFound, id)
	}
	return n, nil
}

// resolveParent checks that parentID names an active folder of projectID.
// The project root ("") always resolves, to nil.
func resolveParent(ctx context.Context, q Queries, projectID, parentID string) (*Node, error) {
	if parentID == "" {
		return nil, nil
	}
	parent, err := loadActive(ctx, q, parentID)
	if err != nil {
		return nil, err
	}
	if !parent.IsFolder() {
		return nil, fmt.Errorf("%w: parent %s is not a folder", ErrInvalidStructure, parentID)
	}
	if parent.ProjectID != projectID {
		return nil, fmt.Errorf("%w: parent %s belongs to another project", ErrInvalidStructure, parentID)
	}
	return parent, nil
}

// checkNameFree rejects a name already taken by an active sibling of the same kind.
// exceptID is ignored so a node never collides with itself.
func checkNameFree(ctx context.Context, q Queries, projectID, parentID string, kind Kind, name, exceptID string) error {
	sibling, err := q.FindSibling(ctx, projectID, parentID, kind, name)
	if err != nil {
		return fmt.Errorf("checking sibling names: %w", err)
	}
	if sibling != nil && sibling.ID != exceptID {
		return fmt.Errorf("%w: %s %q already exists", ErrNameConflict, kind, name)
	}
	return nil
}

// stagedContent is content staged locally and ready for upload.
type stagedContent struct {
	upload    *StagedFile
	size      int64
	mimeType  string
	encrypted bool
	release   func()
}

// stage copies r to a staging file, sniffs its type and, when an encryptor is
// configured, seals it into a second staging file. The returned release func
// must always be called.
func (s *Service) stage(r io.Reader) (*stagedContent, error) {
	plain, err := s.staging.Stage(r)
	if err != nil {
		return nil, fmt.Errorf("staging content: %w", err)
	}
	sc := &stagedContent{
		upload:  plain,
		size:    plain.Size,
		release: func() { s.staging.Release(plain) },
	}

	mtype, err := mimetype.DetectFile(plain.Path)
	if err != nil {
		sc.release()
		return nil, fmt.Errorf("detecting content type: %w", err)
	}
	sc.mimeType = mtype.String()

	if s.encryptor == nil {
		return sc, nil
	}

	sealed, err := s.seal(plain)
	if err != nil {
		sc.release()
		return nil, err
	}
	sc.upload = sealed
	sc.encrypted = true
	sc.release = func() {
		s.staging.Release(sealed)
		s.staging.Release(plain)
	}
	return sc, nil
}

// seal encrypts a staged file into a new staged file.
func (s *Service) seal(plain *StagedFile) (*StagedFile, error) {
	src, err := os.Open(plain.Path)
	if err != nil {
		return nil, fmt.Errorf("opening staged content: %w", err)
	}
	defer src.Close()

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.encryptor.Encrypt(src, pw))
	}()

	sealed, err := s.staging.Stage(pr)
	pr.CloseWithError(err) // unblock the encryptor if staging failed early
	if err != nil {
		return nil, fmt.Errorf("encrypting content: %w", err)
	}
	return sealed, nil
}

// sortListing orders folders before files, then by display name.
func sortListing(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].IsFolder()
		}
		return nodes[i].DisplayName < nodes[j].DisplayName
	})
}
