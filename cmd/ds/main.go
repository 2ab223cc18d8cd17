package main

import (
	"fmt"
	"os"
	"os/user"

	"docshare/internal/app"
	"docshare/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(app.ExitCode(err))
	}
}

// newApp reads the config and creates an App acting as the --as/--role
// identity. The caller must defer app.Close().
func newApp(cmd *cobra.Command) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	as, _ := cmd.Flags().GetString("as")
	role, _ := cmd.Flags().GetString("role")
	actor, err := app.ResolveActor(cfg.Identity, as, role)
	if err != nil {
		return nil, err
	}

	a, err := app.New(cmd.Context(), cfg, actor)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "ds",
	Short:        "Shared, versioned project documents",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			u, err := user.Current()
			if err != nil {
				return fmt.Errorf("determining current user (pass --user): %w", err)
			}
			userID = u.Username
		}

		cfg := config.NewConfig(userID, defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("User:     %s\n", userID)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("User:        %s (%s)\n", cfg.Identity.UserID, cfg.Identity.Role)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Database:    %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Blob Store:  %s\n", describeBlobStore(cfg.BlobStore))
		fmt.Printf("Staging:     %s\n", cfg.Staging.Dir)
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		fmt.Printf("Ignore:      %v\n", cfg.Upload.Ignore)
		return nil
	},
}

func describeBlobStore(c config.BlobStoreConfig) string {
	switch c.Type {
	case "filesystem":
		return "filesystem " + c.FSRoot
	case "s3":
		return fmt.Sprintf("s3 s3://%s/%s (%s)", c.S3Bucket, c.S3Prefix, c.S3Region)
	default:
		return c.Type
	}
}

// encryption command
var encryptionCmd = &cobra.Command{
	Use:   "encryption",
	Short: "Manage encryption keys",
}

var encryptionInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readNewPassphrase()
		if err != nil {
			return err
		}
		if err := a.SetupEncryption(pass); err != nil {
			return err
		}
		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Maintain the metadata database",
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a consistent snapshot of the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDatabase(args[0]); err != nil {
			return err
		}
		fmt.Printf("Database snapshot written to %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("as", "", "Act as this user id instead of the configured identity")
	rootCmd.PersistentFlags().String("role", "", "Global role to act with: user or admin")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("user", "", "User id to record as the default identity")

	encryptionCmd.AddCommand(encryptionInitCmd)
	dbCmd.AddCommand(dbBackupCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(encryptionCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(projectCmd)

	addNodeCommands(rootCmd)
}
