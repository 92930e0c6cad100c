package icontact

import (
	"context"
	"encoding/xml"
	"errors"
	"strconv"
)

// Contact is an iContact subscriber. Only Email is always present; the
// other fields are empty when unset.
type Contact struct {
	// ID is zero for a contact that has not been created yet.
	ID        int64
	Email     string
	FirstName string
	LastName  string
	Prefix    string
	Suffix    string
	Business  string
	Address1  string
	Address2  string
	City      string
	State     string
	Zip       string
	Phone     string
	Fax       string
	// CustomFieldsHref and SubscriptionsHref are read-only links.
	CustomFieldsHref  string
	SubscriptionsHref string
}

// ContactFilter restricts Contacts to those whose fields match. Keys are
// contact field names (email, fname, lname, state, ...); values are
// case-insensitive and may contain '*' wildcards.
type ContactFilter map[string]string

// CustomField is one custom field value of a contact.
type CustomField struct {
	Name       string
	PublicName string
	Type       string
	Value      string
}

// Subscription is a contact's status on one list.
type Subscription struct {
	ListID int64
	// Status is the service's status string, such as "subscribed",
	// "unsubscribed" or "pending".
	Status     string
	Subscribed bool
}

// Subscription statuses written by ContactChangeSubscription.
const (
	StatusSubscribed   = "subscribed"
	StatusUnsubscribed = "unsubscribed"
)

// Contacts returns references to the contacts matching filter, or to all
// contacts when filter is empty.
func (c *Client) Contacts(ctx context.Context, filter ContactFilter) ([]ResourceRef, error) {
	env, err := c.get(ctx, "contacts", filter)
	if err != nil {
		return nil, err
	}
	return refsAt(env, "contact"), nil
}

// Contact returns the details of one contact.
func (c *Client) Contact(ctx context.Context, contactID int64) (*Contact, error) {
	path := idPath("contact/%d", contactID)
	env, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	ref, err := refAt(path, env, "contact")
	if err != nil {
		return nil, err
	}
	n := env.Root.Find("contact")

	return &Contact{
		ID:                ref.ID,
		Email:             n.Find("email").Text(),
		FirstName:         n.Find("fname").Text(),
		LastName:          n.Find("lname").Text(),
		Prefix:            n.Find("prefix").Text(),
		Suffix:            n.Find("suffix").Text(),
		Business:          n.Find("business").Text(),
		Address1:          n.Find("address1").Text(),
		Address2:          n.Find("address2").Text(),
		City:              n.Find("city").Text(),
		State:             n.Find("state").Text(),
		Zip:               n.Find("zip").Text(),
		Phone:             n.Find("phone").Text(),
		Fax:               n.Find("fax").Text(),
		CustomFieldsHref:  n.Find("custom_fields").Href(),
		SubscriptionsHref: n.Find("subscriptions").Href(),
	}, nil
}

type contactDoc struct {
	XMLName   xml.Name `xml:"contact"`
	ID        string   `xml:"id,attr,omitempty"`
	FirstName string   `xml:"fname,omitempty"`
	LastName  string   `xml:"lname,omitempty"`
	Email     string   `xml:"email"`
	Prefix    string   `xml:"prefix,omitempty"`
	Suffix    string   `xml:"suffix,omitempty"`
	Business  string   `xml:"business,omitempty"`
	Address1  string   `xml:"address1,omitempty"`
	Address2  string   `xml:"address2,omitempty"`
	City      string   `xml:"city,omitempty"`
	State     string   `xml:"state,omitempty"`
	Zip       string   `xml:"zip,omitempty"`
	Phone     string   `xml:"phone,omitempty"`
	Fax       string   `xml:"fax,omitempty"`
}

// AddUpdateContact creates contact when its ID is zero and updates the
// existing contact otherwise. Empty fields are left unchanged. It returns
// the contact's reference, which carries the new ID after a create.
func (c *Client) AddUpdateContact(ctx context.Context, contact *Contact) (ResourceRef, error) {
	if contact == nil || contact.Email == "" {
		return ResourceRef{}, errors.New("icontact: contact email is required")
	}

	doc := contactDoc{
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Email:     contact.Email,
		Prefix:    contact.Prefix,
		Suffix:    contact.Suffix,
		Business:  contact.Business,
		Address1:  contact.Address1,
		Address2:  contact.Address2,
		City:      contact.City,
		State:     contact.State,
		Zip:       contact.Zip,
		Phone:     contact.Phone,
		Fax:       contact.Fax,
	}
	path := "contact"
	if contact.ID != 0 {
		doc.ID = strconv.FormatInt(contact.ID, 10)
		path = idPath("contact/%d", contact.ID)
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return ResourceRef{}, err
	}
	env, err := c.put(ctx, path, body)
	if err != nil {
		return ResourceRef{}, err
	}
	return refAt(path, env, "result/contact")
}

type subscriptionDoc struct {
	XMLName xml.Name `xml:"subscription"`
	ListID  int64    `xml:"id,attr"`
	Status  string   `xml:"status"`
}

// ContactChangeSubscription subscribes a contact to a list, or
// unsubscribes it when subscribed is false. It returns the reference of the
// subscription.
func (c *Client) ContactChangeSubscription(ctx context.Context, contactID, listID int64, subscribed bool) (ResourceRef, error) {
	status := StatusUnsubscribed
	if subscribed {
		status = StatusSubscribed
	}

	body, err := xml.Marshal(subscriptionDoc{ListID: listID, Status: status})
	if err != nil {
		return ResourceRef{}, err
	}

	path := idPath("contact/%d/subscription/%d", contactID, listID)
	env, err := c.put(ctx, path, body)
	if err != nil {
		return ResourceRef{}, err
	}
	return refAt(path, env, "result/subscription")
}

// ContactCustomFields returns a contact's custom fields.
func (c *Client) ContactCustomFields(ctx context.Context, contactID int64) ([]CustomField, error) {
	env, err := c.get(ctx, idPath("contact/%d/custom_fields", contactID), nil)
	if err != nil {
		return nil, err
	}

	nodes := env.Root.FindAll("contact/custom_fields/custom_field")
	fields := make([]CustomField, 0, len(nodes))
	for _, n := range nodes {
		fields = append(fields, CustomField{
			Name:       n.Attr("name"),
			PublicName: n.Attr("formal_name"),
			Type:       n.Attr("type"),
			Value:      n.Find("value").Text(),
		})
	}
	return fields, nil
}

// ContactSubscriptions returns a contact's list subscriptions. A non-zero
// listID restricts the result to that list.
func (c *Client) ContactSubscriptions(ctx context.Context, contactID, listID int64) ([]Subscription, error) {
	path := idPath("contact/%d/subscriptions", contactID)
	if listID != 0 {
		path = idPath("contact/%d/subscriptions/%d", contactID, listID)
	}
	env, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	nodes := env.Root.FindAll("contact/subscription")
	subs := make([]Subscription, 0, len(nodes))
	for _, n := range nodes {
		status := n.Find("status").TrimmedText()
		subs = append(subs, Subscription{
			ListID:     parseInt(n.Attr("id")),
			Status:     status,
			Subscribed: status == StatusSubscribed,
		})
	}
	return subs, nil
}
