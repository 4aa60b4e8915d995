package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erazemk/zaloga/internal/store"
)

func (c *cli) branchCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "branch", Short: "Manage branches"}

	var contact string
	add := &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Register a branch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			b, err := a.store.CreateBranch(cmd.Context(), args[0], args[1], contact)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Branch %s (%s) created.\n", b.ID, b.Name)
			return nil
		},
	}
	add.Flags().StringVar(&contact, "contact", "", "contact details")

	var activeOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			branches, err := a.store.ListBranches(cmd.Context(), activeOnly)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), "ID", "NAME", "ACTIVE", "CONTACT")
			for _, b := range branches {
				row(tw, b.ID, b.Name, b.Active, b.Contact)
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&activeOnly, "active", false, "only active branches")

	var (
		name   string
		active bool
	)
	set := &cobra.Command{
		Use:   "set <id>",
		Short: "Change a branch's name, contact or active flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			var u store.BranchUpdate
			if cmd.Flags().Changed("name") {
				u.Name = &name
			}
			if cmd.Flags().Changed("contact") {
				u.Contact = &contact
			}
			if cmd.Flags().Changed("active") {
				u.Active = &active
			}
			b, err := a.store.UpdateBranch(cmd.Context(), args[0], u)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Branch %s updated (active: %t).\n", b.ID, b.Active)
			return nil
		},
	}
	set.Flags().StringVar(&name, "name", "", "display name")
	set.Flags().StringVar(&contact, "contact", "", "contact details")
	set.Flags().BoolVar(&active, "active", true, "whether the branch takes part in transfers")

	cmd.AddCommand(add, list, set)
	return cmd
}
