package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

const operatorActor = "erpctl"

type cmdAPIKey struct {
	common *CmdControl
}

func (c *cmdAPIKey) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		RunE:  c.run,
	}

	var cmdIssue = cmdAPIKeyIssue{common: c.common}
	cmd.AddCommand(cmdIssue.command())

	var cmdList = cmdAPIKeyList{common: c.common}
	cmd.AddCommand(cmdList.command())

	var cmdRotate = cmdAPIKeyRotate{common: c.common}
	cmd.AddCommand(cmdRotate.command())

	var cmdDelete = cmdAPIKeyDelete{common: c.common}
	cmd.AddCommand(cmdDelete.command())

	return cmd
}

func (c *cmdAPIKey) run(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

type cmdAPIKeyIssue struct {
	common *CmdControl
}

func (c *cmdAPIKeyIssue) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue [label]",
		Short: "Issue a new API key and print it once",
		RunE:  c.run,
	}

	return cmd
}

func (c *cmdAPIKeyIssue) run(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return cmd.Help()
	}

	db, cfg, err := c.common.open(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	label := ""
	if len(args) == 1 {
		label = args[0]
	}

	issued, err := c.common.manager(db, cfg).Issue(cmd.Context(), label)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.common.out, "id: %d\napi_key: %s\n", issued.ID, issued.Plaintext)
	return nil
}

type cmdAPIKeyList struct {
	common *CmdControl
}

func (c *cmdAPIKeyList) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE:  c.run,
	}

	return cmd
}

func (c *cmdAPIKeyList) run(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		return cmd.Help()
	}

	db, cfg, err := c.common.open(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	keys, err := c.common.manager(db, cfg).List(cmd.Context())
	if err != nil {
		return err
	}

	data := make([][]string, len(keys))
	for i, k := range keys {
		data[i] = []string{strconv.FormatInt(k.ID, 10), k.Label, formatTime(&k.CreatedAt), strconv.FormatBool(k.Active), formatTime(k.LastUsed)}
	}

	c.common.renderTable([]string{"ID", "LABEL", "CREATED", "ACTIVE", "LAST USED"}, data)
	return nil
}

type cmdAPIKeyRotate struct {
	common *CmdControl
}

func (c *cmdAPIKeyRotate) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotate <id>",
		Short: "Deactivate a key and issue its replacement",
		RunE:  c.run,
	}

	return cmd
}

func (c *cmdAPIKeyRotate) run(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return cmd.Help()
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	db, cfg, err := c.common.open(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	issued, err := c.common.manager(db, cfg).Rotate(cmd.Context(), id, operatorActor)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.common.out, "rotated %d\nid: %d\napi_key: %s\n", id, issued.ID, issued.Plaintext)
	return nil
}

type cmdAPIKeyDelete struct {
	common *CmdControl
}

func (c *cmdAPIKeyDelete) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		RunE:  c.run,
	}

	return cmd
}

func (c *cmdAPIKeyDelete) run(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return cmd.Help()
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	db, cfg, err := c.common.open(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := c.common.manager(db, cfg).Delete(cmd.Context(), id, operatorActor); err != nil {
		return err
	}

	fmt.Fprintf(c.common.out, "deleted %d\n", id)
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid key id %q", raw)
	}
	return id, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

