package icontact

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// StatKind selects the contact list MessageStats returns.
type StatKind string

// Stat kinds with per-contact detail.
const (
	StatSummary      StatKind = ""
	StatOpens        StatKind = "opens"
	StatClicks       StatKind = "clicks"
	StatBounces      StatKind = "bounces"
	StatUnsubscribes StatKind = "unsubscribes"
	StatForwards     StatKind = "forwards"
)

// StatCount is one summary figure of a sent message.
type StatCount struct {
	Count   int64
	Percent float64
	// Unique is zero when the service does not report unique counts for
	// the figure.
	Unique int64
	Href   string
}

// StatContact is a contact that performed the requested action.
type StatContact struct {
	Email string
	Name  string
	Href  string
	// Dates lists when the action happened, in document order. Unparseable
	// dates are skipped.
	Dates []time.Time
}

// MessageStats are the delivery statistics of a sent message. A nil
// figure means the service did not report it.
type MessageStats struct {
	Released     *StatCount
	Bounces      *StatCount
	Unsubscribes *StatCount
	Opens        *StatCount
	Clicks       *StatCount
	Forwards     *StatCount
	Comments     *StatCount
	Complaints   *StatCount
	// Contacts is filled when a StatKind other than StatSummary was asked
	// for.
	Contacts []StatContact
}

// DeliveryChannel is a list a message was delivered to.
type DeliveryChannel struct {
	Type  string
	ID    int64
	Href  string
	Name  string
	Count int64
}

// DeliveryDetails are the statistics of a sent message plus the lists it
// went to.
type DeliveryDetails struct {
	MessageStats
	Channels []DeliveryChannel
}

// MessageStats returns the statistics of a sent message. With a kind
// other than StatSummary the result also lists the contacts that
// performed that action.
func (c *Client) MessageStats(ctx context.Context, messageID int64, kind StatKind) (*MessageStats, error) {
	path := idPath("message/%d/stats", messageID)
	if kind != StatSummary {
		path += "/" + string(kind)
	}
	env, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	stats := parseStats(env.Root.Find("message/stats"))
	return &stats, nil
}

// MessageDeliveryDetails returns the statistics of a sent message and the
// lists it was delivered to.
func (c *Client) MessageDeliveryDetails(ctx context.Context, messageID int64) (*DeliveryDetails, error) {
	env, err := c.get(ctx, idPath("message/%d/sending_info/summary", messageID), nil)
	if err != nil {
		return nil, err
	}

	details := &DeliveryDetails{
		MessageStats: parseStats(env.Root.Find("message/sending_info/stats")),
	}
	for _, ch := range env.Root.FindAll(".//channels") {
		for _, l := range ch.FindAll("list") {
			details.Channels = append(details.Channels, DeliveryChannel{
				Type:  "list",
				ID:    parseInt(l.Attr("id")),
				Href:  l.Href(),
				Name:  l.Find("name").Text(),
				Count: parseInt(l.Find("count").Text()),
			})
		}
	}
	return details, nil
}

func parseStats(n *Node) MessageStats {
	stats := MessageStats{
		Released:     parseStatCount(n.Find("released")),
		Bounces:      parseStatCount(n.Find("bounces")),
		Unsubscribes: parseStatCount(n.Find("unsubscribes")),
		Opens:        parseStatCount(n.Find("opens")),
		Clicks:       parseStatCount(n.Find("clicks")),
		Forwards:     parseStatCount(n.Find("forwards")),
		Comments:     parseStatCount(n.Find("comments")),
		Complaints:   parseStatCount(n.Find("complaints")),
	}

	for _, cn := range n.FindAll("*/contact") {
		contact := StatContact{
			Email: cn.Attr("email"),
			Name:  cn.Attr("name"),
			Href:  cn.Href(),
		}
		for _, d := range cn.Children {
			if t, err := parseDate(d.Attr("date")); err == nil && !t.IsZero() {
				contact.Dates = append(contact.Dates, t)
			}
		}
		stats.Contacts = append(stats.Contacts, contact)
	}
	return stats
}

func parseStatCount(n *Node) *StatCount {
	if n == nil {
		return nil
	}
	percent, _ := strconv.ParseFloat(strings.TrimSpace(n.Attr("percent")), 64)
	return &StatCount{
		Count:   parseInt(n.Attr("count")),
		Percent: percent,
		Unique:  parseInt(n.Attr("unique")),
		Href:    n.Href(),
	}
}
