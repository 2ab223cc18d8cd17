package main

import (
	"fmt"
	"io"
	"os"
	"path"

	"docshare/internal/app"
	"docshare/internal/hier"

	"github.com/spf13/cobra"
)

// References name nodes by slash-separated path inside the project, or by
// id with an "@" prefix (the only way to reach deleted nodes).

var mkdirCmd = &cobra.Command{
	Use:   "mkdir PROJECT PATH",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		parent, name := path.Split(path.Clean("/" + args[1]))
		n, err := a.CreateFolder(cmd.Context(), args[0], parent, name)
		if err != nil {
			return err
		}
		fmt.Printf("Created folder %s (%s)\n", n.DisplayName, n.ID)
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload PROJECT LOCAL_PATH",
	Short: "Upload a file, or a directory with --recursive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.UploadOptions{}
		opts.Parent, _ = cmd.Flags().GetString("to")
		opts.Name, _ = cmd.Flags().GetString("name")
		opts.SharedWith, _ = cmd.Flags().GetStringSlice("share")
		opts.Recursive, _ = cmd.Flags().GetBool("recursive")
		visibility, _ := cmd.Flags().GetString("visibility")
		v, err := hier.ParseVisibility(visibility)
		if err != nil {
			return err
		}
		opts.Visibility = v

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Upload(cmd.Context(), args[0], args[1], opts)
		if res != nil && (len(res.Folders) > 0 || len(res.Files) > 0) {
			fmt.Printf("Created %d folder(s), uploaded %d file(s)\n", len(res.Folders), len(res.Files))
			for _, s := range res.Skipped {
				fmt.Printf("skipped unsupported entry: %s\n", s)
			}
		}
		return err
	},
}

var updateCmd = &cobra.Command{
	Use:   "update PROJECT REF LOCAL_PATH",
	Short: "Replace a file's content with a new version",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Update(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("%s is now at version %d\n", n.DisplayName, len(n.Versions))
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm PROJECT REF",
	Short: "Delete a file or an empty folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Delete(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %s (history stays available as %s%s)\n", n.DisplayName, app.IDPrefix, n.ID)
		return nil
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv PROJECT REF TARGET_FOLDER",
	Short: "Move a node into another folder (\"/\" for the project root)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Move(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("Moved %s\n", n.DisplayName)
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls PROJECT [FOLDER]",
	Short: "List a folder",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		folder := ""
		if len(args) > 1 {
			folder = args[1]
		}
		nodes, err := a.List(cmd.Context(), args[0], folder)
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			fmt.Println("Empty.")
			return nil
		}
		printNodes(os.Stdout, nodes)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info PROJECT REF",
	Short: "Show a node's details",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Info(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		printNode(os.Stdout, n)
		return nil
	},
}

var logCmd = &cobra.Command{
	Use:   "log PROJECT REF",
	Short: "View a node's version history",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		history, err := a.History(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		printHistory(os.Stdout, history)
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download PROJECT REF",
	Short: "Download the current or an earlier version of a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetInt("version")
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		prompt := func() (string, error) { return readPassphrase("Passphrase: ") }
		var served *hier.VersionRecord
		err = writeOutput(output, func(w io.Writer) error {
			var err error
			served, err = a.Download(cmd.Context(), args[0], args[1], version, w, prompt)
			return err
		})
		if err != nil {
			return err
		}
		if output != "" && output != "-" {
			fmt.Fprintf(os.Stderr, "Wrote version %d to %s\n", served.VersionNumber, output)
		}
		return nil
	},
}

var shareCmd = &cobra.Command{
	Use:   "share PROJECT REF",
	Short: "Change who may read a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		visibility, _ := cmd.Flags().GetString("visibility")
		users, _ := cmd.Flags().GetStringSlice("with")
		v, err := hier.ParseVisibility(visibility)
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Share(cmd.Context(), args[0], args[1], v, users)
		if err != nil {
			return err
		}
		fmt.Printf("%s is visible to %s", n.DisplayName, n.Visibility)
		if len(n.SharedWith) > 0 {
			fmt.Printf(", shared with %v", n.SharedWith)
		}
		fmt.Println()
		return nil
	},
}

func addNodeCommands(root *cobra.Command) {
	uploadCmd.Flags().String("to", "", "Destination folder")
	uploadCmd.Flags().String("name", "", "Display name (defaults to the local name)")
	uploadCmd.Flags().String("visibility", "all", "all or shared")
	uploadCmd.Flags().StringSlice("share", nil, "Users who may read a shared file")
	uploadCmd.Flags().BoolP("recursive", "r", false, "Upload a directory tree")

	downloadCmd.Flags().Int("version", 0, "Version number (0 for current)")
	downloadCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")

	shareCmd.Flags().String("visibility", "shared", "all or shared")
	shareCmd.Flags().StringSlice("with", nil, "Users who may read the file")

	for _, c := range []*cobra.Command{mkdirCmd, uploadCmd, updateCmd, rmCmd, mvCmd, lsCmd, infoCmd, logCmd, downloadCmd, shareCmd} {
		root.AddCommand(c)
	}
}
