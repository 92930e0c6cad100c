package icontact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/icontact-sdk/client-go/internal/api"
)

// V2Client calls the iContact v2.2 JSON API. Credentials travel as headers
// on every call, so there is no login step and a 401 is returned at once.
// Rate-limited calls are retried like on the v1 Client.
type V2Client struct {
	apiClient *api.Client
	log       *zap.Logger
}

// NewV2 creates a v2.2 client. password is the API application password in
// clear text; the v2.2 API does not hash it.
func NewV2(appID, username, password string, opts ...Option) (*V2Client, error) {
	if appID == "" {
		return nil, ErrMissingAPIKey
	}
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	cfg := newConfig(V2BaseURL, opts)
	scheme := &api.HeaderAuth{AppID: appID, Username: username, Password: password}
	apiClient, err := buildAPIClient(scheme, cfg)
	if err != nil {
		return nil, err
	}

	log := cfg.logger
	if log == nil {
		log = zap.NewNop()
	}
	return &V2Client{apiClient: apiClient, log: log.Named("icontact.v2")}, nil
}

// Execute issues a raw v2.2 call through the request pipeline.
func (c *V2Client) Execute(ctx context.Context, req *Request) (*Envelope, error) {
	env, err := c.apiClient.Execute(ctx, req)
	return env, wrapError(err)
}

// Retries returns the retry counter.
func (c *V2Client) Retries() int {
	return c.apiClient.Retries()
}

// ResetRetries clears the retry counter.
func (c *V2Client) ResetRetries() {
	c.apiClient.ResetRetries()
}

func (c *V2Client) get(ctx context.Context, path string, params map[string]string) (*Envelope, error) {
	return c.Execute(ctx, &Request{Path: path, Params: params})
}

func (c *V2Client) post(ctx context.Context, path string, payload any) (*Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, &Request{
		Path:     path,
		Method:   http.MethodPost,
		Body:     body,
		Encoding: EncodingJSON,
	})
}

// Account is a v2.2 account.
type Account struct {
	ID          int64
	CompanyName string
	Email       string
	FirstName   string
	LastName    string
	Enabled     bool
}

// ClientFolder is a folder of an account. Lists and contacts live in
// folders.
type ClientFolder struct {
	ID   int64
	Name string
}

// V2Contact is a contact as the v2.2 API represents it.
type V2Contact struct {
	ID         int64  `json:"contactId,omitempty,string"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Prefix     string `json:"prefix,omitempty"`
	Suffix     string `json:"suffix,omitempty"`
	Business   string `json:"business,omitempty"`
	Street     string `json:"street,omitempty"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Fax        string `json:"fax,omitempty"`

	// Status is read-only; the service reports "normal", "bounced" and so on.
	Status string `json:"-"`
}

// V2List is a mailing list as the v2.2 API represents it.
type V2List struct {
	ID                 int64
	Name               string
	Description        string
	EmailOwnerOnChange bool
	WelcomeOnManualAdd bool
	WelcomeOnSignupAdd bool
	WelcomeMessageID   int64
}

// V2Subscription subscribes a contact to a list. Status defaults to
// "normal".
type V2Subscription struct {
	ContactID int64  `json:"contactId,string"`
	ListID    int64  `json:"listId,string"`
	Status    string `json:"status"`
}

// SubscribeResult lists the subscriptions the service created and the
// contact ids it refused.
type SubscribeResult struct {
	Created []V2Subscription
	Failed  []int64
}

// Accounts returns the accounts the credentials can access.
func (c *V2Client) Accounts(ctx context.Context) ([]Account, error) {
	env, err := c.get(ctx, "a/", nil)
	if err != nil {
		return nil, err
	}

	var accounts []Account
	env.Get("accounts").ForEach(func(_, a gjson.Result) bool {
		accounts = append(accounts, Account{
			ID:          a.Get("accountId").Int(),
			CompanyName: a.Get("companyName").String(),
			Email:       a.Get("email").String(),
			FirstName:   a.Get("firstName").String(),
			LastName:    a.Get("lastName").String(),
			Enabled:     a.Get("enabled").Int() == 1,
		})
		return true
	})
	return accounts, nil
}

// ClientFolders returns the folders of an account.
func (c *V2Client) ClientFolders(ctx context.Context, accountID int64) ([]ClientFolder, error) {
	env, err := c.get(ctx, idPath("a/%d/c/", accountID), nil)
	if err != nil {
		return nil, err
	}

	var folders []ClientFolder
	env.Get("clientfolders").ForEach(func(_, f gjson.Result) bool {
		folders = append(folders, ClientFolder{
			ID:   f.Get("clientFolderId").Int(),
			Name: f.Get("name").String(),
		})
		return true
	})
	return folders, nil
}

// Contacts returns the contacts of a folder matching filter. Filter keys are
// v2.2 field names such as email or lastName; limit and offset page through
// large folders.
func (c *V2Client) Contacts(ctx context.Context, accountID, folderID int64, filter ContactFilter) ([]V2Contact, error) {
	path := idPath("a/%d/c/%d/contacts", accountID, folderID)
	env, err := c.get(ctx, path, filter)
	if err != nil {
		return nil, err
	}
	return v2Contacts(env.Get("contacts")), nil
}

// CreateContacts adds contacts to a folder and returns them with the ids
// the service assigned. Contacts the service rejects are left out and
// logged.
func (c *V2Client) CreateContacts(ctx context.Context, accountID, folderID int64, contacts []V2Contact) ([]V2Contact, error) {
	if len(contacts) == 0 {
		return nil, nil
	}
	for _, ct := range contacts {
		if ct.Email == "" {
			return nil, errors.New("icontact: contact email is required")
		}
	}

	path := idPath("a/%d/c/%d/contacts", accountID, folderID)
	env, err := c.post(ctx, path, map[string]any{"contact": contacts})
	if err != nil {
		return nil, err
	}

	if w := env.Get("warnings"); w.IsArray() && len(w.Array()) > 0 {
		c.log.Warn("contacts rejected", zap.String("path", path), zap.String("warnings", w.Raw))
	}
	return v2Contacts(env.Get("contacts")), nil
}

// Lists returns the lists of a folder.
func (c *V2Client) Lists(ctx context.Context, accountID, folderID int64) ([]V2List, error) {
	env, err := c.get(ctx, idPath("a/%d/c/%d/lists", accountID, folderID), nil)
	if err != nil {
		return nil, err
	}

	var lists []V2List
	env.Get("lists").ForEach(func(_, l gjson.Result) bool {
		lists = append(lists, V2List{
			ID:                 l.Get("listId").Int(),
			Name:               l.Get("name").String(),
			Description:        l.Get("description").String(),
			EmailOwnerOnChange: l.Get("emailOwnerOnChange").Int() == 1,
			WelcomeOnManualAdd: l.Get("welcomeOnManualAdd").Int() == 1,
			WelcomeOnSignupAdd: l.Get("welcomeOnSignupAdd").Int() == 1,
			WelcomeMessageID:   l.Get("welcomeMessageId").Int(),
		})
		return true
	})
	return lists, nil
}

// Subscribe adds subscriptions in one call.
func (c *V2Client) Subscribe(ctx context.Context, accountID, folderID int64, subs []V2Subscription) (*SubscribeResult, error) {
	payload := make([]V2Subscription, len(subs))
	for i, s := range subs {
		if s.Status == "" {
			s.Status = "normal"
		}
		payload[i] = s
	}

	env, err := c.post(ctx, idPath("a/%d/c/%d/subscriptions", accountID, folderID), payload)
	if err != nil {
		return nil, err
	}

	res := &SubscribeResult{}
	env.Get("subscriptions").ForEach(func(_, s gjson.Result) bool {
		res.Created = append(res.Created, V2Subscription{
			ContactID: s.Get("contactId").Int(),
			ListID:    s.Get("listId").Int(),
			Status:    s.Get("status").String(),
		})
		return true
	})
	env.Get("failed").ForEach(func(_, f gjson.Result) bool {
		if id, err := strconv.ParseInt(f.String(), 10, 64); err == nil {
			res.Failed = append(res.Failed, id)
		}
		return true
	})
	return res, nil
}

func v2Contacts(r gjson.Result) []V2Contact {
	var contacts []V2Contact
	r.ForEach(func(_, ct gjson.Result) bool {
		contacts = append(contacts, V2Contact{
			ID:         ct.Get("contactId").Int(),
			Email:      ct.Get("email").String(),
			FirstName:  ct.Get("firstName").String(),
			LastName:   ct.Get("lastName").String(),
			Prefix:     ct.Get("prefix").String(),
			Suffix:     ct.Get("suffix").String(),
			Business:   ct.Get("business").String(),
			Street:     ct.Get("street").String(),
			Street2:    ct.Get("street2").String(),
			City:       ct.Get("city").String(),
			State:      ct.Get("state").String(),
			PostalCode: ct.Get("postalCode").String(),
			Phone:      ct.Get("phone").String(),
			Fax:        ct.Get("fax").String(),
			Status:     ct.Get("status").String(),
		})
		return true
	})
	return contacts
}
