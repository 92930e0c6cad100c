package icontact

import "context"

// Campaign holds the sender details shared by a group of messages.
type Campaign struct {
	ID                int64
	Href              string
	Name              string
	Description       string
	FromName          string
	FromEmail         string
	Street            string
	City              string
	State             string
	Zip               string
	Country           string
	PublicArchiveURL  string
	ArchiveByDefault  bool
	UseAccountAddress bool
}

// Campaigns returns a reference to every campaign in the account.
func (c *Client) Campaigns(ctx context.Context) ([]ResourceRef, error) {
	env, err := c.get(ctx, "campaigns", nil)
	if err != nil {
		return nil, err
	}
	return refsAt(env, "campaigns/campaign"), nil
}

// Campaign returns the details of one campaign.
func (c *Client) Campaign(ctx context.Context, campaignID int64) (*Campaign, error) {
	path := idPath("campaign/%d", campaignID)
	env, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	ref, err := refAt(path, env, "campaign")
	if err != nil {
		return nil, err
	}
	n := env.Root.Find("campaign")

	return &Campaign{
		ID:                ref.ID,
		Href:              ref.Href,
		Name:              n.Find("name").Text(),
		Description:       n.Find("description").Text(),
		FromName:          n.Find("fromname").Text(),
		FromEmail:         n.Find("fromemail").Text(),
		Street:            n.Find("street").Text(),
		City:              n.Find("city").Text(),
		State:             n.Find("state").Text(),
		Zip:               n.Find("zip").Text(),
		Country:           n.Find("country").Text(),
		PublicArchiveURL:  n.Find("publicarchiveurl").Text(),
		ArchiveByDefault:  parseFlag(n.Find("archivebydefault").Text()),
		UseAccountAddress: parseFlag(n.Find("useaccountaddress").Text()),
	}, nil
}
