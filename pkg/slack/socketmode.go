package slack

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack/socketmode"
)

// EnqueueFunc hands over a raw Events API payload for asynchronous processing.
type EnqueueFunc func(ctx context.Context, payload []byte) error

// RunSocketMode receives Events API payloads over a Socket Mode WebSocket
// connection, and relays them to the same queue as HTTP webhooks. This
// requires the client to be initialized with an app-level token
// (see [github.com/slack-go/slack.OptionAppLevelToken]).
// It's blocking, and returns when the context is canceled.
func (c *Client) RunSocketMode(ctx context.Context, enqueue EnqueueFunc) error {
	l := zerolog.Ctx(ctx).With().Str("link_medium", "socket_mode").Logger()
	sm := socketmode.New(c.api)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sm.RunContext(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				l.Err(err).Msg("Socket Mode connection closed")
				return err
			}
			return nil

		case evt, ok := <-sm.Events:
			if !ok {
				return nil
			}
			c.handleSocketEvent(ctx, l, sm, evt, enqueue)
		}
	}
}

func (c *Client) handleSocketEvent(ctx context.Context, l zerolog.Logger, sm *socketmode.Client, evt socketmode.Event, enqueue EnqueueFunc) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		l.Debug().Msg("connecting to Slack with Socket Mode")
	case socketmode.EventTypeConnected:
		l.Info().Msg("connected to Slack with Socket Mode")
	case socketmode.EventTypeConnectionError:
		l.Warn().Any("data", evt.Data).Msg("Socket Mode connection error")

	case socketmode.EventTypeEventsAPI:
		if evt.Request == nil {
			return
		}
		sm.Ack(*evt.Request)

		if err := enqueue(ctx, evt.Request.Payload); err != nil {
			l.Err(err).Str("envelope_id", evt.Request.EnvelopeID).Msg("failed to enqueue Slack event")
			return
		}
		l.Debug().Str("envelope_id", evt.Request.EnvelopeID).Msg("enqueued Slack event")

	default:
		l.Trace().Str("type", string(evt.Type)).Msg("ignored Socket Mode event")
	}
}
