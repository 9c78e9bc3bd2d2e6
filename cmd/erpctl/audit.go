package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type cmdAudit struct {
	common *CmdControl
}

func (c *cmdAudit) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and prune the API key audit trail",
		RunE:  c.run,
	}

	var cmdList = cmdAuditList{common: c.common}
	cmd.AddCommand(cmdList.command())

	var cmdPurge = cmdAuditPurge{common: c.common}
	cmd.AddCommand(cmdPurge.command())

	return cmd
}

func (c *cmdAudit) run(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

type cmdAuditList struct {
	common *CmdControl

	flagLimit int
}

func (c *cmdAuditList) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent audit events",
		RunE:  c.run,
	}

	cmd.Flags().IntVar(&c.flagLimit, "limit", 100, "Maximum number of events to show")

	return cmd
}

func (c *cmdAuditList) run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		return cmd.Help()
	}

	db, cfg, err := c.common.open(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := c.common.manager(db, cfg).ListAudit(cmd.Context(), c.flagLimit)
	if err != nil {
		return err
	}

	data := make([][]string, len(entries))
	for i, e := range entries {
		keyID := "-"
		if e.CredentialID != nil {
			keyID = strconv.FormatInt(*e.CredentialID, 10)
		}
		details := ""
		if len(e.Details) > 0 {
			b, err := json.Marshal(e.Details)
			if err != nil {
				return err
			}
			details = string(b)
		}
		data[i] = []string{strconv.FormatInt(e.ID, 10), keyID, e.EventType, e.Actor, formatTime(e.EventTime), details}
	}

	c.common.renderTable([]string{"ID", "KEY", "EVENT", "BY", "TIME", "DETAILS"}, data)
	return nil
}

type cmdAuditPurge struct {
	common *CmdControl

	flagDays int
}

func (c *cmdAuditPurge) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete audit events older than --days",
		RunE:  c.run,
	}

	cmd.Flags().IntVar(&c.flagDays, "days", 30, "Retention in days")

	return cmd
}

func (c *cmdAuditPurge) run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		return cmd.Help()
	}

	db, cfg, err := c.common.open(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	purged, err := c.common.manager(db, cfg).PurgeAudit(cmd.Context(), c.flagDays)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.common.out, "purged %d audit events\n", purged)
	return nil
}
