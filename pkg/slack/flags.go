package slack

import (
	"strings"

	goslack "github.com/slack-go/slack"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

// Flags defines CLI flags to configure a Slack Web API client. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "slack-bot-token",
			Usage: "Slack bot token (OAuth) for Web API lookups",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_BOT_TOKEN"),
				toml.TOML("slack.bot_token", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-app-token",
			Usage: "optional Slack app-level token, to also receive events over Socket Mode",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_APP_TOKEN"),
				toml.TOML("slack.app_token", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-thrippy-link-id",
			Usage: "optional Thrippy link ID to read the Slack bot token from, instead of --slack-bot-token",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_THRIPPY_LINK_ID"),
				toml.TOML("slack.thrippy_link_id", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:   "slack-api-url",
			Usage:  "override the Slack Web API base URL",
			Hidden: true,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_API_URL"),
				toml.TOML("slack.api_url", configFilePath),
			),
		},
	}
}

// NewClientFromFlags initializes a Web API client based on [Flags]. The app-level
// token is optional, and needed only to call [Client.RunSocketMode].
func NewClientFromFlags(cmd *cli.Command, botToken, appToken string) *Client {
	var opts []goslack.Option
	if u := cmd.String("slack-api-url"); u != "" {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		opts = append(opts, goslack.OptionAPIURL(u))
	}
	if appToken != "" {
		opts = append(opts, goslack.OptionAppLevelToken(appToken))
	}
	return NewClient(botToken, opts...)
}
