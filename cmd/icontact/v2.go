package main

import (
	"github.com/spf13/cobra"

	icontact "github.com/icontact-sdk/client-go"
)

func (a *app) v2Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "v2",
		Short: "Call the v2.2 JSON API",
	}
	cmd.AddCommand(
		a.v2AccountsCommand(),
		a.v2FoldersCommand(),
		a.v2ListsCommand(),
		a.v2ContactsCommand(),
	)
	return cmd
}

// v2IDsCommand builds a v2 command whose arguments are numeric ids.
func (a *app) v2IDsCommand(use, short string, n int, fn func(cmd *cobra.Command, c *icontact.V2Client, ids []int64) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(n),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, len(args))
			for i, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids[i] = id
			}
			c, err := a.v2Client()
			if err != nil {
				return err
			}
			out, err := fn(cmd, c, ids)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func (a *app) v2AccountsCommand() *cobra.Command {
	return a.v2IDsCommand("accounts", "List accounts", 0, func(cmd *cobra.Command, c *icontact.V2Client, _ []int64) (any, error) {
		return c.Accounts(cmd.Context())
	})
}

func (a *app) v2FoldersCommand() *cobra.Command {
	return a.v2IDsCommand("folders ACCOUNT_ID", "List client folders", 1, func(cmd *cobra.Command, c *icontact.V2Client, ids []int64) (any, error) {
		return c.ClientFolders(cmd.Context(), ids[0])
	})
}

func (a *app) v2ListsCommand() *cobra.Command {
	return a.v2IDsCommand("lists ACCOUNT_ID FOLDER_ID", "List mailing lists of a folder", 2, func(cmd *cobra.Command, c *icontact.V2Client, ids []int64) (any, error) {
		return c.Lists(cmd.Context(), ids[0], ids[1])
	})
}

func (a *app) v2ContactsCommand() *cobra.Command {
	var filter map[string]string
	cmd := a.v2IDsCommand("contacts ACCOUNT_ID FOLDER_ID", "Find contacts of a folder", 2, func(cmd *cobra.Command, c *icontact.V2Client, ids []int64) (any, error) {
		return c.Contacts(cmd.Context(), ids[0], ids[1], icontact.ContactFilter(filter))
	})
	cmd.Flags().StringToStringVar(&filter, "filter", nil, "field=value filters")
	return cmd
}
