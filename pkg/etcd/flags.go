package etcd

import (
	"context"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

const (
	DefaultEndpoint    = "http://localhost:2379"
	DefaultPrefix      = "/slackxapi/"
	DefaultDialTimeout = 5 * time.Second
)

// Flags defines CLI flags to configure an etcd gRPC client. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "etcd-endpoint-urls",
			Usage: "one or more etcd server endpoint URLs",
			Value: []string{DefaultEndpoint},
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("ETCD_ENDPOINTS"),
				toml.TOML("etcd.endpoint_urls", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "etcd-key-prefix",
			Usage: "prefix of all the keys that this service reads and writes",
			Value: DefaultPrefix,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("ETCD_KEY_PREFIX"),
				toml.TOML("etcd.key_prefix", configFilePath),
			),
		},
		&cli.DurationFlag{
			Name:  "etcd-dial-timeout",
			Usage: "timeout for establishing the initial connection to etcd",
			Value: DefaultDialTimeout,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("ETCD_DIAL_TIMEOUT"),
				toml.TOML("etcd.dial_timeout", configFilePath),
			),
		},
	}
}

// NewFromFlags connects to etcd based on [Flags].
func NewFromFlags(ctx context.Context, cmd *cli.Command) (*Store, func() error, error) {
	return New(ctx, cmd.StringSlice("etcd-endpoint-urls"), cmd.String("etcd-key-prefix"), cmd.Duration("etcd-dial-timeout"))
}
