package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	icontact "github.com/icontact-sdk/client-go"
	"github.com/icontact-sdk/client-go/credstore"
)

// idCommand builds a command taking one numeric id argument.
func (a *app) idCommand(use, short string, fn func(cmd *cobra.Command, c *icontact.Client, id int64) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			out, err := fn(cmd, c, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

// plainCommand builds a command without arguments.
func (a *app) plainCommand(use, short string, fn func(cmd *cobra.Command, c *icontact.Client) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			out, err := fn(cmd, c)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func (a *app) loginCommand() *cobra.Command {
	return a.plainCommand("login", "Log in and cache the session", func(cmd *cobra.Command, c *icontact.Client) (any, error) {
		s, err := c.Login(cmd.Context())
		if err != nil {
			return nil, err
		}
		return map[string]any{"sequence": s.Sequence, "cached": a.settings.SessionFile != ""}, nil
	})
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.sessionStore()
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("no session file configured")
			}
			if err := store.Clear(); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"success": true})
		},
	}
}

func (a *app) listsCommand() *cobra.Command {
	return a.plainCommand("lists", "List mailing lists", func(cmd *cobra.Command, c *icontact.Client) (any, error) {
		return c.Lists(cmd.Context())
	})
}

func (a *app) listCommand() *cobra.Command {
	return a.idCommand("list LIST_ID", "Show a mailing list", func(cmd *cobra.Command, c *icontact.Client, id int64) (any, error) {
		return c.List(cmd.Context(), id)
	})
}

func (a *app) campaignsCommand() *cobra.Command {
	return a.plainCommand("campaigns", "List campaigns", func(cmd *cobra.Command, c *icontact.Client) (any, error) {
		return c.Campaigns(cmd.Context())
	})
}

func (a *app) campaignCommand() *cobra.Command {
	return a.idCommand("campaign CAMPAIGN_ID", "Show a campaign", func(cmd *cobra.Command, c *icontact.Client, id int64) (any, error) {
		return c.Campaign(cmd.Context(), id)
	})
}

func (a *app) contactsCommand() *cobra.Command {
	var filter map[string]string
	cmd := a.plainCommand("contacts", "Find contacts", func(cmd *cobra.Command, c *icontact.Client) (any, error) {
		return c.Contacts(cmd.Context(), icontact.ContactFilter(filter))
	})
	cmd.Flags().StringToStringVar(&filter, "filter", nil, "field=value filters, '*' matches anything")
	return cmd
}

func (a *app) contactCommand() *cobra.Command {
	return a.idCommand("contact CONTACT_ID", "Show a contact", func(cmd *cobra.Command, c *icontact.Client, id int64) (any, error) {
		return c.Contact(cmd.Context(), id)
	})
}

func (a *app) contactSaveCommand() *cobra.Command {
	var ct icontact.Contact
	cmd := a.plainCommand("contact-save", "Create or update a contact", func(cmd *cobra.Command, c *icontact.Client) (any, error) {
		return c.AddUpdateContact(cmd.Context(), &ct)
	})
	f := cmd.Flags()
	f.Int64Var(&ct.ID, "id", 0, "contact to update (omit to create)")
	f.StringVar(&ct.Email, "email", "", "email address")
	f.StringVar(&ct.FirstName, "first-name", "", "first name")
	f.StringVar(&ct.LastName, "last-name", "", "last name")
	f.StringVar(&ct.Business, "business", "", "business name")
	f.StringVar(&ct.City, "city", "", "city")
	f.StringVar(&ct.State, "state", "", "state")
	f.StringVar(&ct.Zip, "zip", "", "postal code")
	f.StringVar(&ct.Phone, "phone", "", "phone number")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) subscribeCommand() *cobra.Command {
	var unsubscribe bool
	cmd := &cobra.Command{
		Use:   "subscribe CONTACT_ID LIST_ID",
		Short: "Subscribe a contact to a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			contactID, err := parseID(args[0])
			if err != nil {
				return err
			}
			listID, err := parseID(args[1])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			ref, err := c.ContactChangeSubscription(cmd.Context(), contactID, listID, !unsubscribe)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ref)
		},
	}
	cmd.Flags().BoolVar(&unsubscribe, "unsubscribe", false, "unsubscribe instead")
	return cmd
}

func (a *app) subscriptionsCommand() *cobra.Command {
	var listID int64
	cmd := a.idCommand("subscriptions CONTACT_ID", "Show a contact's subscriptions", func(cmd *cobra.Command, c *icontact.Client, id int64) (any, error) {
		return c.ContactSubscriptions(cmd.Context(), id, listID)
	})
	cmd.Flags().Int64Var(&listID, "list", 0, "only this list")
	return cmd
}

func (a *app) customFieldsCommand() *cobra.Command {
	return a.idCommand("custom-fields CONTACT_ID", "Show a contact's custom fields", func(cmd *cobra.Command, c *icontact.Client, id int64) (any, error) {
		return c.ContactCustomFields(cmd.Context(), id)
	})
}

func (a *app) messageCommand() *cobra.Command {
	return a.idCommand("message MESSAGE_ID", "Show a message", func(cmd *cobra.Command, c *icontact.Client, id int64) (any, error) {
		return c.Message(cmd.Context(), id)
	})
}

func (a *app) messageCreateCommand() *cobra.Command {
	var msg icontact.NewMessage
	cmd := a.plainCommand("message-create", "Create a message", func(cmd *cobra.Command, c *icontact.Client) (any, error) {
		return c.CreateMessage(cmd.Context(), msg)
	})
	f := cmd.Flags()
	f.Int64Var(&msg.CampaignID, "campaign", 0, "campaign of the message")
	f.StringVar(&msg.Subject, "subject", "", "subject line")
	f.StringVar(&msg.HTMLBody, "html", "", "HTML body")
	f.StringVar(&msg.TextBody, "text", "", "plain text body")
	_ = cmd.MarkFlagRequired("campaign")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func (a *app) scheduleCommand() *cobra.Command {
	var (
		lists   []int64
		at      string
		archive bool
	)
	cmd := a.idCommand("schedule MESSAGE_ID", "Schedule a message for sending", func(cmd *cobra.Command, c *icontact.Client, id int64) (any, error) {
		when := time.Now().Add(time.Minute)
		if at != "" {
			t, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return nil, fmt.Errorf("--at: %w", err)
			}
			when = t
		}
		return c.ScheduleMessage(cmd.Context(), id, lists, when, archive)
	})
	f := cmd.Flags()
	f.Int64SliceVar(&lists, "list", nil, "list to send to (repeatable)")
	f.StringVar(&at, "at", "", "send time, RFC 3339 (default in one minute)")
	f.BoolVar(&archive, "archive", true, "archive the message")
	_ = cmd.MarkFlagRequired("list")
	return cmd
}

func (a *app) statsCommand() *cobra.Command {
	var kind string
	cmd := a.idCommand("stats MESSAGE_ID", "Show message statistics", func(cmd *cobra.Command, c *icontact.Client, id int64) (any, error) {
		return c.MessageStats(cmd.Context(), id, icontact.StatKind(kind))
	})
	cmd.Flags().StringVar(&kind, "kind", "", "list contacts for opens, clicks, bounces, unsubscribes or forwards")
	return cmd
}

func (a *app) deliveryCommand() *cobra.Command {
	var wait time.Duration
	cmd := a.idCommand("delivery MESSAGE_ID", "Show message delivery details", func(cmd *cobra.Command, c *icontact.Client, id int64) (any, error) {
		if wait > 0 {
			return c.WaitForDelivery(cmd.Context(), id, icontact.WithWaitTimeout(wait))
		}
		return c.MessageDeliveryDetails(cmd.Context(), id)
	})
	cmd.Flags().DurationVar(&wait, "wait", 0, "poll until the message is released, up to this long")
	return cmd
}

func (a *app) keyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "key",
		Short: "Generate a key for sealing the session file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := credstore.GenerateKey()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), k.String())
			return err
		},
	}
}
