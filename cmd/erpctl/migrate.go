package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type cmdMigrate struct {
	common *CmdControl
}

func (c *cmdMigrate) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE:  c.run,
	}

	return cmd
}

func (c *cmdMigrate) run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		return cmd.Help()
	}

	db, cfg, err := c.common.open(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintf(c.common.out, "%s schema is up to date\n", cfg.DBBackend)
	return nil
}
