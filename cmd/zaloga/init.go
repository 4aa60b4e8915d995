package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func (c *cli) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.cfg.Database.Path
			if path != ":memory:" {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("database file %s already exists", path)
				}
			}
			if _, err := c.open(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database created: %s\n", path)
			fmt.Fprintln(out, "Schema initialized.")
			return nil
		},
	}
}
