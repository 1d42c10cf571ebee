package events

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

// Flags defines CLI flags to configure event normalization. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "timezone",
			Usage: "IANA timezone for event dates and timestamps",
			Value: DefaultTimezone,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("TIMEZONE"),
				toml.TOML("events.timezone", configFilePath),
			),
		},
		&cli.BoolFlag{
			Name:  "permalinks",
			Usage: "enrich events and xAPI objects with Slack permalinks",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("ENABLE_PERMALINKS"),
				toml.TOML("events.permalinks", configFilePath),
			),
		},
	}
}
