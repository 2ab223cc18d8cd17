package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"docshare/internal/hier"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetAutoFormatHeaders(false)
	t.SetBorder(false)
	t.SetHeader(header)
	return t
}

func printNodes(w io.Writer, nodes []*hier.Node) {
	t := newTable(w, "KIND", "NAME", "SIZE", "OWNER", "VISIBILITY", "UPDATED", "ID")
	for _, n := range nodes {
		size, visibility := "-", "-"
		if n.IsFile() {
			size = humanize.Bytes(uint64(n.Size))
			visibility = string(n.Visibility)
		}
		t.Append([]string{string(n.Kind), n.DisplayName, size, n.OwnerID, visibility, humanize.Time(n.UpdatedAt), n.ID})
	}
	t.Render()
}

func printNode(w io.Writer, n *hier.Node) {
	fmt.Fprintf(w, "ID:          %s\n", n.ID)
	fmt.Fprintf(w, "Kind:        %s\n", n.Kind)
	fmt.Fprintf(w, "Name:        %s\n", n.DisplayName)
	fmt.Fprintf(w, "Owner:       %s\n", n.OwnerID)
	fmt.Fprintf(w, "Parent:      %s\n", orRoot(n.ParentID))
	if n.IsFile() {
		fmt.Fprintf(w, "Original:    %s\n", n.OriginalName)
		fmt.Fprintf(w, "Size:        %s (%d bytes)\n", humanize.Bytes(uint64(n.Size)), n.Size)
		fmt.Fprintf(w, "Type:        %s\n", n.MimeType)
		fmt.Fprintf(w, "Visibility:  %s\n", n.Visibility)
		if len(n.SharedWith) > 0 {
			fmt.Fprintf(w, "Shared with: %v\n", n.SharedWith)
		}
		fmt.Fprintf(w, "Encrypted:   %v\n", n.Encrypted)
	}
	fmt.Fprintf(w, "Versions:    %d\n", len(n.Versions))
	fmt.Fprintf(w, "Created:     %s\n", n.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Updated:     %s\n", n.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printHistory(w io.Writer, history []hier.VersionRecord) {
	t := newTable(w, "VERSION", "ACTION", "ACTOR", "SIZE", "NAME", "WHEN", "KEY")
	for _, v := range history {
		t.Append([]string{
			strconv.Itoa(v.VersionNumber),
			string(v.Action),
			v.ActorID,
			humanize.Bytes(uint64(v.Size)),
			v.OriginalName,
			v.Timestamp.Format("2006-01-02 15:04:05"),
			v.RemoteKey,
		})
	}
	t.Render()
}

func orRoot(id string) string {
	if id == "" {
		return "(project root)"
	}
	return id
}

// readPassphrase prompts on stderr and reads a line from the terminal without echo.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("a passphrase is required but stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func readNewPassphrase() (string, error) {
	pass, err := readPassphrase("New passphrase: ")
	if err != nil {
		return "", err
	}
	confirm, err := readPassphrase("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if pass != confirm {
		return "", errors.New("passphrases do not match")
	}
	return pass, nil
}

// writeOutput runs fn against a temporary file next to dest and renames it
// into place only if fn succeeds. An empty or "-" dest writes to stdout.
func writeOutput(dest string, fn func(io.Writer) error) error {
	if dest == "" || dest == "-" {
		return fn(os.Stdout)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".ds-download-*")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fn(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("moving output into place: %w", err)
	}
	return nil
}
