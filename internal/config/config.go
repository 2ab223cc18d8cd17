package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for ds.
type Config struct {
	BaseDir    string           `toml:"base_dir" validate:"required"`
	LogDir     string           `toml:"log_dir" validate:"required"`
	Identity   IdentityConfig   `toml:"identity"`
	Database   DatabaseConfig   `toml:"database"`
	BlobStore  BlobStoreConfig  `toml:"blob_store"`
	Staging    StagingConfig    `toml:"staging"`
	Encryption EncryptionConfig `toml:"encryption"`
	Upload     UploadConfig     `toml:"upload"`
}

// IdentityConfig is the actor the CLI runs as when --as/--role are not given.
type IdentityConfig struct {
	UserID string `toml:"user_id"`
	Role   string `toml:"role" validate:"omitempty,oneof=user admin"`
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type" validate:"required,oneof=sqlite memory"`
	DataDir string `toml:"data_dir,omitempty" validate:"required_if=Type sqlite"`
}

// BlobStoreConfig selects where file content lives.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BlobStoreConfig struct {
	Type string `toml:"type" validate:"required,oneof=memory filesystem s3"`

	// Connection pool settings, shared by every backend.
	MaxConns    int    `toml:"max_conns" validate:"gte=0"` // concurrent sessions; 0 means the default
	DialRetries uint64 `toml:"dial_retries"`               // extra connection attempts before failing
	DialTimeout string `toml:"dial_timeout,omitempty"`     // Go duration, e.g. "10s"

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty" validate:"required_if=Type filesystem"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty" validate:"required_if=Type s3"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty" validate:"required_if=Type s3"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty" validate:"omitempty,url"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
	S3PathStyle bool   `toml:"s3_path_style,omitempty"`
}

// StagingConfig configures the local directory transfers are staged through.
type StagingConfig struct {
	Dir     string `toml:"dir,omitempty"`
	MaxSize int64  `toml:"max_size" validate:"gte=0"` // largest accepted upload in bytes; 0 means the default
}

// EncryptionConfig configures at-rest encryption of file content.
type EncryptionConfig struct {
	Type           string `toml:"type" validate:"omitempty,oneof=none age test"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path" validate:"required_if=Type age"`
	PrivateKeyPath string `toml:"private_key_path" validate:"required_if=Type age"`
}

// UploadConfig holds settings for importing local directories.
type UploadConfig struct {
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a Config rooted at baseDir with local defaults.
func NewConfig(userID, baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Identity: IdentityConfig{
			UserID: userID,
			Role:   "user",
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		BlobStore: BlobStoreConfig{
			Type:        "filesystem",
			FSRoot:      filepath.Join(baseDir, "blobs"),
			MaxConns:    4,
			DialRetries: 3,
			DialTimeout: "10s",
		},
		Staging: StagingConfig{
			Dir: filepath.Join(baseDir, "staging"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "ds.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "ds.key"),
		},
		Upload: UploadConfig{
			Ignore: []string{".DS_Store", ".git"},
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path, creating parent directories.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
