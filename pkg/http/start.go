package http

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/slackxapi/pkg/slack"
)

const (
	DefaultWebhookPort = 14480
)

// Flags defines CLI flags to configure the HTTP server. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "webhook-port",
			Usage: "local port number for Slack Events API webhooks and Prometheus metrics",
			Value: DefaultWebhookPort,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WEBHOOK_PORT"),
				toml.TOML("http.webhook_port", configFilePath),
			),
		},
	}
}

// Start runs the HTTP server, which hands over incoming Slack
// events to the given function. It blocks until the context is canceled.
func Start(ctx context.Context, cmd *cli.Command, enqueue slack.EnqueueFunc) error {
	return newHTTPServer(cmd.Int("webhook-port"), enqueue).run(ctx)
}

// InitLog initializes the logger for the server and CLI commands,
// based on whether it's running in development mode or not.
func InitLog(devMode bool) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	if !devMode {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Caller().Logger()
		return
	}

	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05.000",
	}).With().Caller().Logger()

	log.Warn().Msg("********** DEV MODE - UNSAFE IN PRODUCTION! **********")
}
