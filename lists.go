package icontact

import "context"

// List is an iContact mailing list.
type List struct {
	ID          int64
	Href        string
	Name        string
	Description string
	// OwnerReceipt, SystemWelcome and SignupWelcome are false when the
	// service omits them.
	OwnerReceipt  bool
	SystemWelcome bool
	SignupWelcome bool
	WelcomeHTML   string
	WelcomeText   string
	OptinHTML     string
	OptinText     string
}

// Lists returns a reference to every list in the account.
func (c *Client) Lists(ctx context.Context) ([]ResourceRef, error) {
	env, err := c.get(ctx, "lists", nil)
	if err != nil {
		return nil, err
	}
	return refsAt(env, "lists/list"), nil
}

// List returns the details of one list.
func (c *Client) List(ctx context.Context, listID int64) (*List, error) {
	path := idPath("list/%d", listID)
	env, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	ref, err := refAt(path, env, "list")
	if err != nil {
		return nil, err
	}
	n := env.Root.Find("list")

	return &List{
		ID:            ref.ID,
		Href:          ref.Href,
		Name:          n.Find("name").Text(),
		Description:   n.Find("description").Text(),
		OwnerReceipt:  parseFlag(n.Find("ownerreceipt").Text()),
		SystemWelcome: parseFlag(n.Find("systemwelcome").Text()),
		SignupWelcome: parseFlag(n.Find("signupwelcome").Text()),
		WelcomeHTML:   n.Find("welcome_html").Text(),
		WelcomeText:   n.Find("welcome_text").Text(),
		OptinHTML:     n.Find("optin_html").Text(),
		OptinText:     n.Find("optin_text").Text(),
	}, nil
}
