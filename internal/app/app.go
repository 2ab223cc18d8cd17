// Package app wires configuration into a hier.Service and exposes the
// operations the CLI needs in terms of project paths and local files.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"docshare/internal/blobstore"
	"docshare/internal/config"
	"docshare/internal/database"
	"docshare/internal/encryption"
	"docshare/internal/fs"
	"docshare/internal/hier"
	"docshare/internal/projects"
	"docshare/internal/staging"

	"github.com/google/uuid"
)

// App is the application layer between the CLI and hier.Service.
// It constructs all dependencies from config, acts as a single actor, and
// releases the database and blob store sessions on Close.
type App struct {
	cfg       *config.Config
	actor     hier.Actor
	db        *database.SQLiteDatabase
	blobs     *blobstore.Pool
	staging   *staging.FileSystemStagingArea
	encryptor hier.Encryptor
	fsmgr     *fs.Manager
	projects  *projects.Registry
	service   *hier.Service
	logger    hier.Logger
	logFile   *os.File
}

// New creates a fully wired App acting as actor.
// The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config, actor hier.Actor) (*App, error) {
	session := time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
	slogger, logFile, err := newLogger(cfg.LogDir, session)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With("actor", actor.UserID)}

	a := &App{cfg: cfg, actor: actor, fsmgr: fs.NewManager(), logger: logger, logFile: logFile}
	if err := a.open(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) open(ctx context.Context) error {
	db, err := database.NewDatabaseFromConfig(a.cfg.Database)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	a.db = db
	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("database schema out of date: %w", err)
	}

	blobs, err := blobstore.NewBlobStoreFromConfig(ctx, a.cfg.BlobStore, a.logger)
	if err != nil {
		return fmt.Errorf("creating blob store: %w", err)
	}
	a.blobs = blobs

	sa, err := staging.NewStagingAreaFromConfig(a.cfg.Staging, a.logger)
	if err != nil {
		return fmt.Errorf("creating staging area: %w", err)
	}
	a.staging = sa

	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	a.encryptor = enc

	clock, idgen := hier.RealClock{}, hier.UUIDGenerator{}
	a.projects = projects.NewRegistry(db.DB(), clock, idgen)
	a.service = hier.NewService(db, a.projects, blobs, sa, sealer(enc), a.logger, clock, idgen)
	a.logger.Debug("app ready", "database", db.Path(), "blob_store", a.cfg.BlobStore.Type, "encryption", a.cfg.Encryption.Type)
	return nil
}

// sealer returns the encryptor to seal uploads with, or nil when none is
// configured or its keys have not been generated yet.
func sealer(enc hier.Encryptor) hier.Encryptor {
	if enc == nil || !enc.IsConfigured() {
		return nil
	}
	return enc
}

// Actor returns the identity the App acts as.
func (a *App) Actor() hier.Actor {
	return a.actor
}

// Close releases blob store sessions, the database and the log file.
func (a *App) Close() error {
	var firstErr error
	if a.blobs != nil {
		if err := a.blobs.Close(); err != nil {
			firstErr = fmt.Errorf("closing blob store: %w", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// SetupEncryption generates the key pair protected by passphrase.
func (a *App) SetupEncryption(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("%w: encryption is disabled in the config", hier.ErrInvalidArgument)
	}
	if err := a.encryptor.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up encryption: %w", err)
	}
	a.logger.Info("encryption keys generated", "type", a.cfg.Encryption.Type)
	return nil
}

// BackupDatabase writes a consistent snapshot of the metadata database to dest.
func (a *App) BackupDatabase(dest string) error {
	if !a.actor.IsAdmin() {
		return fmt.Errorf("%w: only admins may snapshot the database", hier.ErrForbidden)
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("%w: %s already exists", hier.ErrNameConflict, dest)
	}
	if err := a.db.BackupTo(dest); err != nil {
		return err
	}
	a.logger.Info("database snapshot written", "path", dest)
	return nil
}

// CreateProject registers a project owned by the actor.
func (a *App) CreateProject(ctx context.Context, name string) (*projects.Project, error) {
	p, err := a.projects.Create(ctx, a.actor, name)
	if err != nil {
		return nil, err
	}
	a.logger.Info("project created", "project", p.ID, "name", p.Name)
	return p, nil
}

// Projects lists the projects the actor belongs to.
func (a *App) Projects(ctx context.Context) ([]*projects.Project, error) {
	return a.projects.ListForUser(ctx, a.actor.UserID)
}

// Members lists a project's members. Only members and admins may see them.
func (a *App) Members(ctx context.Context, projectID string) ([]projects.Member, error) {
	if !a.actor.IsAdmin() {
		exists, err := a.projects.ProjectExists(ctx, projectID)
		if err != nil {
			return nil, err
		}
		member, err := a.projects.IsMember(ctx, projectID, a.actor.UserID)
		if err != nil {
			return nil, err
		}
		if exists && !member {
			return nil, fmt.Errorf("%w: %s is not a member of %s", hier.ErrForbidden, a.actor.UserID, projectID)
		}
	}
	return a.projects.Members(ctx, projectID)
}

// AddMember adds userID to the project.
func (a *App) AddMember(ctx context.Context, projectID, userID string) error {
	if err := a.projects.AddMember(ctx, a.actor, projectID, userID); err != nil {
		return err
	}
	a.logger.Info("member added", "project", projectID, "user", userID)
	return nil
}

// RemoveMember removes userID from the project.
func (a *App) RemoveMember(ctx context.Context, projectID, userID string) error {
	if err := a.projects.RemoveMember(ctx, a.actor, projectID, userID); err != nil {
		return err
	}
	a.logger.Info("member removed", "project", projectID, "user", userID)
	return nil
}

// CreateFolder creates name inside the folder at parentRef.
func (a *App) CreateFolder(ctx context.Context, projectID, parentRef, name string) (*hier.Node, error) {
	parentID, err := a.resolveFolder(ctx, projectID, parentRef)
	if err != nil {
		return nil, err
	}
	return a.service.CreateFolder(ctx, a.actor, hier.CreateFolderRequest{ProjectID: projectID, ParentID: parentID, Name: name})
}

// List returns the readable children of the folder at ref.
func (a *App) List(ctx context.Context, projectID, ref string) ([]*hier.Node, error) {
	parentID, err := a.resolveFolder(ctx, projectID, ref)
	if err != nil {
		return nil, err
	}
	return a.service.List(ctx, a.actor, projectID, parentID)
}

// Info returns the node at ref.
func (a *App) Info(ctx context.Context, projectID, ref string) (*hier.Node, error) {
	id, err := a.resolveNode(ctx, projectID, ref)
	if err != nil {
		return nil, err
	}
	return a.service.Get(ctx, a.actor, id)
}

// History returns the version records of the node at ref. Deleted nodes
// are reachable with an "@<id>" reference.
func (a *App) History(ctx context.Context, projectID, ref string) ([]hier.VersionRecord, error) {
	id, err := a.resolveNode(ctx, projectID, ref)
	if err != nil {
		return nil, err
	}
	return a.service.History(ctx, a.actor, id)
}

// Update replaces the content of the file at ref with the local file at localPath.
func (a *App) Update(ctx context.Context, projectID, ref, localPath string) (*hier.Node, error) {
	src, err := a.fsmgr.Resolve(localPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	id, err := a.resolveNode(ctx, projectID, ref)
	if err != nil {
		return nil, err
	}

	r, err := a.fsmgr.Open(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return a.service.Update(ctx, a.actor, hier.UpdateRequest{NodeID: id, OriginalName: src.Name(), Content: r})
}

// Delete soft-deletes the node at ref.
func (a *App) Delete(ctx context.Context, projectID, ref string) (*hier.Node, error) {
	id, err := a.resolveNode(ctx, projectID, ref)
	if err != nil {
		return nil, err
	}
	return a.service.Delete(ctx, a.actor, id)
}

// Move reparents the node at ref into the folder at targetRef.
func (a *App) Move(ctx context.Context, projectID, ref, targetRef string) (*hier.Node, error) {
	id, err := a.resolveNode(ctx, projectID, ref)
	if err != nil {
		return nil, err
	}
	targetID, err := a.resolveFolder(ctx, projectID, targetRef)
	if err != nil {
		return nil, err
	}
	return a.service.Move(ctx, a.actor, id, targetID)
}

// Share sets the visibility and share list of the file at ref.
func (a *App) Share(ctx context.Context, projectID, ref string, visibility hier.Visibility, users []string) (*hier.Node, error) {
	id, err := a.resolveNode(ctx, projectID, ref)
	if err != nil {
		return nil, err
	}
	return a.service.Share(ctx, a.actor, id, visibility, users)
}

// Download writes a version of the file at ref to w. passphrase is called
// only when the version is encrypted.
func (a *App) Download(ctx context.Context, projectID, ref string, version int, w io.Writer, passphrase func() (string, error)) (*hier.VersionRecord, error) {
	id, err := a.resolveNode(ctx, projectID, ref)
	if err != nil {
		return nil, err
	}
	history, err := a.service.History(ctx, a.actor, id)
	if err != nil {
		return nil, err
	}

	req := hier.DownloadRequest{NodeID: id, Version: version}
	selected := len(history)
	if version != 0 {
		selected = version
	}
	if selected >= 1 && selected <= len(history) && history[selected-1].Encrypted {
		dc, err := a.unlock(passphrase)
		if err != nil {
			return nil, err
		}
		req.Decrypt = dc
	}
	return a.service.Download(ctx, a.actor, req, w)
}

func (a *App) unlock(passphrase func() (string, error)) (hier.DecryptionContext, error) {
	if a.encryptor == nil || !a.encryptor.IsConfigured() {
		return nil, fmt.Errorf("%w: content is encrypted but no keys are configured", hier.ErrInvalidArgument)
	}
	if passphrase == nil {
		return nil, fmt.Errorf("%w: content is encrypted and no passphrase was given", hier.ErrInvalidArgument)
	}
	pass, err := passphrase()
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	dc, err := a.encryptor.Unlock(pass)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}
	return dc, nil
}
