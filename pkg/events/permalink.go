package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tzrikka/slackxapi/pkg/slack"
)

// PermalinkResolver finds stable URLs for the messages, files
// and channels that events refer to, using the Slack Web API.
type PermalinkResolver struct {
	api slack.API
}

func NewPermalinkResolver(api slack.API) *PermalinkResolver {
	return &PermalinkResolver{api: api}
}

// Resolve returns the permalink that best fits the event type, or an
// empty string if there isn't one or it's unavailable. Lookup failures
// are logged, but never returned.
func (r *PermalinkResolver) Resolve(ctx context.Context, e *Event, refs Refs) string {
	l := zerolog.Ctx(ctx).With().Str("event_id", e.EventID).Str("event_type", e.EventType).Logger()

	link, err := r.resolve(ctx, e, refs)
	if err != nil {
		l.Warn().Err(err).Msg("permalink unavailable")
		return ""
	}
	return link
}

func (r *PermalinkResolver) resolve(ctx context.Context, e *Event, refs Refs) (string, error) {
	switch t := e.EventType; {
	case strings.Contains(t, "deleted"):
		return "", nil

	case t == "member_joined_channel" || t == "member_left_channel":
		return r.channelPermalink(ctx, e)

	case t != "file_share" && strings.Contains(t, "file") && e.HasFiles:
		return r.filePermalink(ctx, e)

	case t == "reaction_added":
		if refs.ItemChannel == "" || refs.ItemTS == "" {
			return "", nil
		}
		return r.api.Permalink(ctx, refs.ItemChannel, refs.ItemTS)

	case t == "star_added" || t == "pin_added":
		return refs.ItemPermalink, nil

	default:
		if e.Channel == "" || refs.MessageTS == "" {
			return "", nil
		}
		return r.api.Permalink(ctx, e.Channel, refs.MessageTS)
	}
}

func (r *PermalinkResolver) channelPermalink(ctx context.Context, e *Event) (string, error) {
	if e.Channel == "" {
		return "", fmt.Errorf("no channel ID in %q event", e.EventType)
	}

	team, err := r.api.LookupTeam(ctx, e.TeamID)
	if err != nil {
		return "", err
	}

	domain := team.Domain
	if domain == "" {
		domain = team.Name
	}
	return fmt.Sprintf("https://%s.slack.com/archives/%s", domain, e.Channel), nil
}

func (r *PermalinkResolver) filePermalink(ctx context.Context, e *Event) (string, error) {
	if len(e.FileIDs) == 0 {
		return "", fmt.Errorf("no file IDs in %q event", e.EventType)
	}

	f, err := r.api.LookupFile(ctx, e.FileIDs[0])
	if err != nil {
		return "", err
	}

	if f.Permalink != "" {
		return f.Permalink, nil
	}
	return f.URLPrivate, nil
}
