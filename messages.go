package icontact

import (
	"context"
	"encoding/xml"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ServiceZone is the fixed UTC-04:00 zone the v1 service reads schedule
// times in.
var ServiceZone = time.FixedZone("-0400", -4*60*60)

// scheduleLayout is the format of sending_info/@time.
const scheduleLayout = time.RFC1123Z

// Message is an email message of a campaign.
type Message struct {
	ID         int64
	Subject    string
	CampaignID int64
	// Created is zero when the service omits it or sends an unknown format.
	Created  time.Time
	Type     string
	Status   string
	HTMLBody string
	TextBody string
}

// NewMessage is the content of a message to create.
type NewMessage struct {
	CampaignID int64
	Subject    string
	HTMLBody   string
	TextBody   string
}

// Message returns a message and its bodies.
func (c *Client) Message(ctx context.Context, messageID int64) (*Message, error) {
	path := idPath("message/%d", messageID)
	env, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	ref, err := refAt(path, env, "message")
	if err != nil {
		return nil, err
	}
	n := env.Root.Find("message")

	created, err := parseDate(n.Find("created").Text())
	if err != nil {
		c.log.Debug("unparsed message date", zap.Int64("message_id", ref.ID), zap.Error(err))
	}

	return &Message{
		ID:         ref.ID,
		Subject:    n.Find("subject").Text(),
		CampaignID: parseInt(n.Find("campaign").Text()),
		Created:    created,
		Type:       n.Find("type").Text(),
		Status:     n.Find("status").Text(),
		HTMLBody:   n.Find("html_body").Text(),
		TextBody:   n.Find("text_body").Text(),
	}, nil
}

type messageDoc struct {
	XMLName  xml.Name `xml:"message"`
	Subject  string   `xml:"subject"`
	Campaign int64    `xml:"campaign"`
	TextBody string   `xml:"text_body"`
	HTMLBody string   `xml:"html_body"`
}

// CreateMessage creates a message in a campaign. The message is not sent;
// use ScheduleMessage for that.
func (c *Client) CreateMessage(ctx context.Context, msg NewMessage) (ResourceRef, error) {
	body, err := xml.Marshal(messageDoc{
		Subject:  msg.Subject,
		Campaign: msg.CampaignID,
		TextBody: msg.TextBody,
		HTMLBody: msg.HTMLBody,
	})
	if err != nil {
		return ResourceRef{}, err
	}

	env, err := c.put(ctx, "message", body)
	if err != nil {
		return ResourceRef{}, err
	}
	return refAt("message", env, "result/message")
}

type scheduleDoc struct {
	XMLName     xml.Name `xml:"message"`
	ID          int64    `xml:"id,attr"`
	SendingInfo struct {
		Time     string `xml:"time,attr"`
		Channels struct {
			Archive  bool   `xml:"archive,attr"`
			Category string `xml:"category,attr"`
			Lists    []struct {
				ID int64 `xml:"id,attr"`
			} `xml:"list"`
		} `xml:"channels"`
	} `xml:"sending_info"`
}

// ScheduleMessage schedules a message to be sent to lists at the given
// time. A message can be scheduled once; later changes need the web
// interface. It returns the message id and the href the service reports
// for the schedule.
func (c *Client) ScheduleMessage(ctx context.Context, messageID int64, listIDs []int64, at time.Time, archive bool) (ResourceRef, error) {
	if len(listIDs) == 0 {
		return ResourceRef{}, errors.New("icontact: at least one list is required")
	}

	var doc scheduleDoc
	doc.ID = messageID
	doc.SendingInfo.Time = FormatScheduleTime(at)
	doc.SendingInfo.Channels.Archive = archive
	doc.SendingInfo.Channels.Category = "hidden"
	for _, id := range listIDs {
		doc.SendingInfo.Channels.Lists = append(doc.SendingInfo.Channels.Lists, struct {
			ID int64 `xml:"id,attr"`
		}{ID: id})
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return ResourceRef{}, err
	}

	path := idPath("message/%d/sending_info", messageID)
	env, err := c.put(ctx, path, body)
	if err != nil {
		return ResourceRef{}, err
	}

	c.log.Info("message scheduled",
		zap.Int64("message_id", messageID),
		zap.String("time", doc.SendingInfo.Time),
		zap.Int("lists", len(listIDs)))

	return ResourceRef{ID: messageID, Href: env.Root.Find("results").Href()}, nil
}

// FormatScheduleTime renders t the way the v1 service expects schedule
// times: RFC 1123 with a numeric zone, in ServiceZone.
func FormatScheduleTime(t time.Time) string {
	return t.In(ServiceZone).Format(scheduleLayout)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02",
}

// parseDate accepts the date formats the service has been seen to return.
// Values without a zone are read as UTC. An empty string yields the zero
// time and no error.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognised date " + strconv.Quote(s))
}
