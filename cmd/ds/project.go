package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects and their members",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a project owned by you",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.CreateProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created project %s (%s)\n", p.Name, p.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List your projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.Projects(cmd.Context())
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No projects.")
			return nil
		}

		t := newTable(os.Stdout, "ID", "NAME", "CREATED BY", "CREATED")
		for _, p := range list {
			t.Append([]string{p.ID, p.Name, p.CreatedBy, humanize.Time(p.CreatedAt)})
		}
		t.Render()
		return nil
	},
}

var projectMembersCmd = &cobra.Command{
	Use:   "members PROJECT",
	Short: "List project members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		members, err := a.Members(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		t := newTable(os.Stdout, "USER", "ROLE", "ADDED")
		for _, m := range members {
			t.Append([]string{m.UserID, string(m.Role), humanize.Time(m.AddedAt)})
		}
		t.Render()
		return nil
	},
}

var projectAddMemberCmd = &cobra.Command{
	Use:   "add-member PROJECT USER",
	Short: "Add a user to a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.AddMember(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Added %s to %s\n", args[1], args[0])
		return nil
	},
}

var projectRemoveMemberCmd = &cobra.Command{
	Use:   "remove-member PROJECT USER",
	Short: "Remove a user from a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveMember(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Removed %s from %s\n", args[1], args[0])
		return nil
	},
}

func init() {
	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectMembersCmd)
	projectCmd.AddCommand(projectAddMemberCmd)
	projectCmd.AddCommand(projectRemoveMemberCmd)
}
