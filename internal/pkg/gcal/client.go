// Package gcal is the thin boundary to Google Calendar: OAuth consent,
// token exchange and event listing. All mapping to domain types happens in
// the business layer.
package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/kalendo/calendar-backend/internal/config"
)

type Client struct {
	oauthCfg *oauth2.Config
}

func NewClient() (*Client, error) {
	credJSON, err := os.ReadFile(config.ClientSecretPath())
	if err != nil {
		return nil, fmt.Errorf("can't open client secret: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(credJSON, calendar.CalendarEventsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("can't parse secrets: %w", err)
	}
	oauthCfg.RedirectURL = config.RedirectURL()

	return &Client{oauthCfg: oauthCfg}, nil
}

// AuthURL is where the browser goes to grant calendar access.
func (c *Client) AuthURL(state string) string {
	return c.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (c *Client) Exchange(ctx context.Context, authCode string) (*oauth2.Token, error) {
	token, err := c.oauthCfg.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}
	return token, nil
}

func MarshalToken(token *oauth2.Token) (string, error) {
	b, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("marshal token: %w", err)
	}
	return string(b), nil
}

func UnmarshalToken(s string) (*oauth2.Token, error) {
	token := &oauth2.Token{}
	if err := json.Unmarshal([]byte(s), token); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}
	return token, nil
}

// RemoteEvent is one already-expanded Google Calendar instance.
type RemoteEvent struct {
	Summary     string
	Description string
	Location    string
	AllDay      bool
	Start       time.Time
	End         time.Time
}

// Events lists the user's primary calendar instances in [from, to]. Google
// expands recurring events on its side (SingleEvents), so each item maps to
// exactly one occurrence.
func (c *Client) Events(ctx context.Context, token *oauth2.Token, from, to time.Time) ([]*RemoteEvent, error) {
	svc, err := calendar.NewService(ctx, option.WithTokenSource(c.oauthCfg.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}

	var res []*RemoteEvent
	nextPageToken := ""

	for {
		events, err := svc.Events.List("primary").
			Context(ctx).
			SingleEvents(true).
			ShowDeleted(false).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			PageToken(nextPageToken).
			Do()
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}

		for _, item := range events.Items {
			ev, err := mapToRemoteEvent(item)
			if err != nil {
				return nil, err
			}
			res = append(res, ev)
		}

		nextPageToken = events.NextPageToken
		if nextPageToken == "" {
			return res, nil
		}
	}
}

func mapToRemoteEvent(item *calendar.Event) (*RemoteEvent, error) {
	ev := &RemoteEvent{
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
	}

	var err error
	ev.Start, ev.AllDay, err = parseEventTime(item.Start)
	if err != nil {
		return nil, fmt.Errorf("event %q: %w", item.Id, err)
	}
	ev.End, _, err = parseEventTime(item.End)
	if err != nil {
		return nil, fmt.Errorf("event %q: %w", item.Id, err)
	}

	return ev, nil
}

func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool, error) {
	if edt == nil {
		return time.Time{}, false, fmt.Errorf("missing event time")
	}

	if edt.Date != "" {
		t, err := time.Parse("2006-01-02", edt.Date)
		return t, true, err
	}

	t, err := time.Parse(time.RFC3339, edt.DateTime)
	return t, false, err
}
