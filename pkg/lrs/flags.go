package lrs

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

// Flags defines CLI flags to configure statement delivery. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "lrs-max-attempts",
			Usage: "maximum number of delivery attempts per statement and LRS",
			Value: DefaultMaxAttempts,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LRS_MAX_ATTEMPTS"),
				toml.TOML("lrs.max_attempts", configFilePath),
			),
		},
		&cli.DurationFlag{
			Name:  "lrs-retry-interval",
			Usage: "fixed interval between delivery attempts",
			Value: DefaultRetryInterval,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LRS_RETRY_INTERVAL"),
				toml.TOML("lrs.retry_interval", configFilePath),
			),
		},
		&cli.DurationFlag{
			Name:  "lrs-timeout",
			Usage: "timeout of each delivery attempt",
			Value: DefaultTimeout,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LRS_TIMEOUT"),
				toml.TOML("lrs.timeout", configFilePath),
			),
		},
	}
}

// NewDelivererFromFlags initializes a [Deliverer] based on [Flags].
func NewDelivererFromFlags(cmd *cli.Command) *Deliverer {
	return NewDeliverer(
		WithMaxAttempts(cmd.Int("lrs-max-attempts")),
		WithRetryInterval(cmd.Duration("lrs-retry-interval")),
		WithTimeout(cmd.Duration("lrs-timeout")),
	)
}
