package slack

import (
	"context"
	"errors"
	"fmt"
	"time"

	goslack "github.com/slack-go/slack"
)

const (
	timeout = 3 * time.Second
)

// ErrNotFound is returned when Slack responds successfully, but without the requested data.
var ErrNotFound = errors.New("not found in Slack")

// User is the subset of a Slack user's profile that is needed to provision an xAPI actor.
type User struct {
	ID          string
	Email       string
	DisplayName string
	RealName    string
}

type Team struct {
	ID     string
	Name   string
	Domain string
}

type File struct {
	ID         string
	Permalink  string
	URLPrivate string
}

// API is the narrow set of Slack Web API lookups used by this service.
// Any error means that the data is unavailable, and callers should degrade.
type API interface {
	LookupUser(ctx context.Context, userID string) (*User, error)
	LookupTeam(ctx context.Context, teamID string) (*Team, error)
	LookupFile(ctx context.Context, fileID string) (*File, error)
	Permalink(ctx context.Context, channelID, messageTS string) (string, error)
}

// Client implements [API] with a Slack bot token.
type Client struct {
	api *goslack.Client
}

var _ API = (*Client)(nil)

// NewClient initializes a Web API client. It's safe for concurrent use,
// so a single instance should be constructed at startup and shared.
func NewClient(botToken string, opts ...goslack.Option) *Client {
	return &Client{api: goslack.New(botToken, opts...)}
}

// LookupUser is based on https://docs.slack.dev/reference/methods/users.info.
func (c *Client) LookupUser(ctx context.Context, userID string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Slack API error (users.info): %w", err)
	}
	if u == nil || u.ID == "" {
		return nil, ErrNotFound
	}

	return &User{
		ID:          u.ID,
		Email:       u.Profile.Email,
		DisplayName: u.Profile.DisplayName,
		RealName:    firstNonEmpty(u.RealName, u.Profile.RealName),
	}, nil
}

// LookupTeam is based on https://docs.slack.dev/reference/methods/team.info.
func (c *Client) LookupTeam(ctx context.Context, teamID string) (*Team, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t, err := c.api.GetOtherTeamInfoContext(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("Slack API error (team.info): %w", err)
	}
	if t == nil {
		return nil, ErrNotFound
	}

	return &Team{ID: t.ID, Name: t.Name, Domain: t.Domain}, nil
}

// LookupFile is based on https://docs.slack.dev/reference/methods/files.info.
func (c *Client) LookupFile(ctx context.Context, fileID string) (*File, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	f, _, _, err := c.api.GetFileInfoContext(ctx, fileID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("Slack API error (files.info): %w", err)
	}
	if f == nil {
		return nil, ErrNotFound
	}

	return &File{ID: f.ID, Permalink: f.Permalink, URLPrivate: f.URLPrivate}, nil
}

// Permalink is based on https://docs.slack.dev/reference/methods/chat.getPermalink.
func (c *Client) Permalink(ctx context.Context, channelID, messageTS string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p, err := c.api.GetPermalinkContext(ctx, &goslack.PermalinkParameters{Channel: channelID, Ts: messageTS})
	if err != nil {
		return "", fmt.Errorf("Slack API error (chat.getPermalink): %w", err)
	}
	if p == "" {
		return "", ErrNotFound
	}

	return p, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
