package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/politifan/school-peaky-minds/internal/application/services"
	"github.com/politifan/school-peaky-minds/internal/application/startup"
	"github.com/politifan/school-peaky-minds/internal/domain/user"
)

// whitelistCmd manages the bot access list
var whitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Show or edit the bot access list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return editWhitelist(cmd, func(c accessList) (user.Whitelist, error) {
			return c.Whitelist(cmd.Context())
		})
	},
}

var whitelistSetCmd = &cobra.Command{
	Use:   "set <ids...>",
	Short: "Replace the access list; ids may be separated by commas, spaces or newlines",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editWhitelist(cmd, func(c accessList) (user.Whitelist, error) {
			return c.Replace(cmd.Context(), strings.Join(args, " "))
		})
	},
}

var whitelistRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove one id; the last remaining id cannot be removed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		return editWhitelist(cmd, func(c accessList) (user.Whitelist, error) {
			return c.Remove(cmd.Context(), id)
		})
	},
}

func init() {
	whitelistCmd.AddCommand(whitelistSetCmd, whitelistRemoveCmd)
}

type accessList = *services.AccessService

func editWhitelist(cmd *cobra.Command, fn func(accessList) (user.Whitelist, error)) error {
	c, err := startup.Initialize(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer c.Logger.Close()
	defer c.Close()

	list, err := fn(c.AccessService)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, id := range list {
		if list.IsAdmin(id) {
			fmt.Fprintf(out, "%d\tadmin\n", id)
			continue
		}
		fmt.Fprintf(out, "%d\n", id)
	}
	return nil
}
