// Package main provides erpctl, the operator tool for the ERP backend database.
package main

import (
	"context"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/smbworks/erp-backend/config"
	"github.com/smbworks/erp-backend/internal/credentials"
	"github.com/smbworks/erp-backend/internal/dal"
)

// CmdControl has what the erpctl commands share.
type CmdControl struct {
	FlagBackend string

	out io.Writer
}

// open loads configuration and connects to the database it names.
func (c *CmdControl) open(ctx context.Context) (dal.DB, *config.Config, error) {
	if c.FlagBackend != "" {
		if err := os.Setenv("DB_BACKEND", c.FlagBackend); err != nil {
			return nil, nil, err
		}
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := dal.Open(ctx, dal.OptionsFromConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}

func (c *CmdControl) manager(db dal.DB, cfg *config.Config) *credentials.Manager {
	return credentials.NewManager(db, credentials.Options{
		Iterations: cfg.APIKeyIterations,
		SaltBytes:  cfg.APIKeySaltBytes,
		KeyBytes:   cfg.APIKeyKeyBytes,
	})
}

func (c *CmdControl) renderTable(header []string, data [][]string) {
	table := tablewriter.NewWriter(c.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.AppendBulk(data)
	table.Render()
}

func newApp(out io.Writer) *cobra.Command {
	commonCmd := CmdControl{out: out}

	app := &cobra.Command{
		Use:               "erpctl",
		Short:             "Operate the ERP backend database and its API keys",
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	app.SetOut(out)
	app.PersistentFlags().StringVar(&commonCmd.FlagBackend, "backend", "", "Database backend (sqlite or postgres), overrides DB_BACKEND")

	var cmdMigrate = cmdMigrate{common: &commonCmd}
	app.AddCommand(cmdMigrate.command())

	var cmdAPIKey = cmdAPIKey{common: &commonCmd}
	app.AddCommand(cmdAPIKey.command())

	var cmdAudit = cmdAudit{common: &commonCmd}
	app.AddCommand(cmdAudit.command())

	app.InitDefaultHelpCmd()
	return app
}

func main() {
	if err := newApp(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
